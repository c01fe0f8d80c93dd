// Package ratelimit implements fixed window request counting in process
// memory. Windows are anchored to the first request: the counter starts
// when a key is first seen and resets Window later, not on wall clock
// boundaries. State is per process and vanishes on restart.
package ratelimit

import (
	"sync"
	"time"
)

// Policy describes one endpoint class budget
type Policy struct {
	// Max requests allowed within one window
	Limit int

	// Window length
	Window time.Duration
}

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// pruneEvery is how many Allow calls pass between opportunistic sweeps
// of stale windows. Keeps the map bounded under churning client keys
// without a background goroutine
const pruneEvery = 512

// Limiter counts requests per key under a single policy. Use one Limiter
// per endpoint class and compose the key from client address and route
type Limiter struct {
	policy Policy

	mu      sync.Mutex
	windows map[string]*window

	// calls since the last opportunistic sweep
	sinceSweep int

	// now is replaceable in tests
	now func() time.Time
}

func New(policy Policy) *Limiter {
	return &Limiter{
		policy:  policy,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow records one request for key and reports whether it fits the
// budget. Refused requests are not counted, retrying while blocked does
// not push the reset time further out. Every pruneEvery calls the stale
// windows of other keys are swept as a side effect
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	l.sinceSweep++
	if l.sinceSweep >= pruneEvery {
		l.sinceSweep = 0
		l.pruneLocked(now)
	}

	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.policy.Window)}
		l.windows[key] = w
	}

	if w.count >= l.policy.Limit {
		return Decision{Allowed: false, Remaining: 0, ResetAt: w.resetAt}
	}

	w.count++
	return Decision{
		Allowed:   true,
		Remaining: l.policy.Limit - w.count,
		ResetAt:   w.resetAt,
	}
}

// Forgive refunds one previously allowed request, used so successful
// logins do not eat the failed-attempt budget. A no-op when the window
// is gone or empty
func (l *Limiter) Forgive(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !l.now().Before(w.resetAt) {
		return
	}
	if w.count > 0 {
		w.count--
	}
}

// Prune drops windows that have already reset. Allow runs the same sweep
// on its own every pruneEvery calls; Prune exists for callers that want
// to force one
func (l *Limiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pruneLocked(l.now())
}

func (l *Limiter) pruneLocked(now time.Time) int {
	removed := 0
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// Len reports how many keys currently hold a window
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
