package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTriggerCoalescesBurst(t *testing.T) {
	d := New(30 * time.Millisecond)
	var calls atomic.Int32
	var last atomic.Int32

	for i := 1; i <= 5; i++ {
		n := int32(i)
		d.Trigger(func() {
			calls.Add(1)
			last.Store(n)
		})
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(5), last.Load())
}

func TestZeroDelayRunsImmediately(t *testing.T) {
	d := New(0)
	ran := false
	d.Trigger(func() { ran = true })
	assert.True(t, ran)
}

func TestFlushAndStop(t *testing.T) {
	d := New(time.Hour)
	var calls atomic.Int32

	d.Trigger(func() { calls.Add(1) })
	d.Flush()
	assert.Equal(t, int32(1), calls.Load())

	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Flush()
	assert.Equal(t, int32(1), calls.Load())
}
