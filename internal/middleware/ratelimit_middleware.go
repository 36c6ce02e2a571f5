package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/GTDGit/elit_catalog/internal/utils"
)

// LoginRateLimiter throttles login attempts per client IP. Every attempt
// reaches ELIT with the submitted credentials, so bursts are capped.
type LoginRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	every    time.Duration
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginRateLimiter allows burst attempts per IP, refilled one every interval.
func NewLoginRateLimiter(every time.Duration, burst int) *LoginRateLimiter {
	return &LoginRateLimiter{
		limiters: make(map[string]*visitor),
		every:    every,
		burst:    burst,
	}
}

// Allow checks if IP can make another attempt.
func (r *LoginRateLimiter) Allow(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.limiters[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(r.every), r.burst)}
		r.limiters[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

// Handle rejects requests from IPs that exhausted their attempts.
func (r *LoginRateLimiter) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.Allow(c.ClientIP()) {
			utils.Error(c, 429, "RATE_LIMITED", "Too many login attempts, try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Cleanup drops idle entries on every tick until done is closed.
func (r *LoginRateLimiter) Cleanup(done <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			r.prune(time.Now())
		}
	}
}

func (r *LoginRateLimiter) prune(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idle := r.every * time.Duration(r.burst)
	for ip, v := range r.limiters {
		if now.Sub(v.lastSeen) > idle {
			delete(r.limiters, ip)
		}
	}
}
