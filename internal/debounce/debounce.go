// Package debounce coalesces bursts of calls into a single trailing call.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs only the most recent function handed to Trigger, once no
// new call has arrived for the configured delay.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending func()
}

// New creates a Debouncer. A non-positive delay runs every call immediately.
func New(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn, replacing any call still waiting.
func (d *Debouncer) Trigger(fn func()) {
	if d.delay <= 0 {
		fn()
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = fn
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

// Flush runs the waiting call now, if any.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	fn := d.pending
	d.pending = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Stop drops the waiting call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}
