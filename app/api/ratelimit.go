package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// siteLimiter allows one manual trigger per site per interval.
type siteLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	limiters map[string]*rate.Limiter
}

func newSiteLimiter(interval time.Duration) *siteLimiter {
	return &siteLimiter{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow consumes the site's token. When none is available it returns false
// and how long the caller has to wait.
func (l *siteLimiter) Allow(siteID string) (bool, time.Duration) {
	if l == nil || l.interval <= 0 {
		return true, 0
	}

	l.mu.Lock()
	limiter, ok := l.limiters[siteID]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(l.interval), 1)
		l.limiters[siteID] = limiter
	}
	l.mu.Unlock()

	reservation := limiter.Reserve()
	if delay := reservation.Delay(); delay > 0 {
		reservation.Cancel()
		return false, delay
	}
	return true, 0
}

func (l *siteLimiter) Forget(siteID string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	delete(l.limiters, siteID)
	l.mu.Unlock()
}
