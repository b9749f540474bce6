package ratelimit

import (
	"sync"
	"time"
)

// Limiter counts requests per (identity, resource) pair over a fixed
// window. Identity may be a session user or an API key; both share the
// same counting mechanism.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	checks  int

	limit  int
	period time.Duration
	now    func() time.Time
}

type window struct {
	start time.Time
	count int
}

// New creates a limiter allowing `limit` requests per `period` for each
// (identity, resource) key.
func New(limit int, period time.Duration) *Limiter {
	if limit <= 0 {
		limit = 120
	}
	if period <= 0 {
		period = time.Minute
	}
	return &Limiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Check records one request and reports whether it is allowed. On deny,
// retryAfter is the whole number of seconds until the window resets,
// at least 1.
func (l *Limiter) Check(identity, resource string) (allowed bool, retryAfter int) {
	key := identity + "|" + resource
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.checks++
	if l.checks%1024 == 0 {
		l.pruneLocked(now)
	}

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.period {
		l.windows[key] = &window{start: now, count: 1}
		return true, 0
	}

	w.count++
	if w.count <= l.limit {
		return true, 0
	}

	remaining := l.period - now.Sub(w.start)
	secs := int(remaining.Seconds())
	if remaining > time.Duration(secs)*time.Second {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return false, secs
}

// pruneLocked drops windows that have already expired.
func (l *Limiter) pruneLocked(now time.Time) {
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.period {
			delete(l.windows, key)
		}
	}
}
