// Package ratelimit provides fixed-window admission control keyed by
// (domain, identifier). At most one extraction is admitted per window
// per key; the rest are rejected with a retry hint, never queued.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Result is the outcome of an admission check.
type Result struct {
	Allowed bool

	// RetryAfter is the whole-second wait before the window resets.
	// Set only on rejection, always > 0.
	RetryAfter int
}

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter tracks fixed windows per domain:identifier key. Safe for
// concurrent use. Rate limiting here is a politeness control: two
// near-simultaneous first requests to the same key may both be admitted,
// which is acceptable.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	window  time.Duration
	now     func() time.Time
	done    chan struct{}
}

// New creates a Limiter with the given window and starts the background
// sweep goroutine.
func New(window time.Duration) *Limiter {
	l := NewWithClock(window, time.Now)
	go l.sweepLoop(time.Minute)
	return l
}

// NewWithClock creates a Limiter with an injected clock and no
// background sweep, for deterministic expiry in tests.
func NewWithClock(window time.Duration, now func() time.Time) *Limiter {
	return &Limiter{
		entries: make(map[string]*entry),
		window:  window,
		now:     now,
		done:    make(chan struct{}),
	}
}

// Check admits or rejects one extraction for the (domain, identifier)
// pair. An empty identifier means "default". A fresh or elapsed window
// admits and resets; anything else rejects with RetryAfter.
func (l *Limiter) Check(domain, identifier string) Result {
	if identifier == "" {
		identifier = "default"
	}
	key := domain + ":" + identifier
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || now.After(e.resetAt) {
		l.entries[key] = &entry{count: 1, resetAt: now.Add(l.window)}
		return Result{Allowed: true}
	}

	e.count++
	retry := int(math.Ceil(e.resetAt.Sub(now).Seconds()))
	if retry < 1 {
		retry = 1
	}
	return Result{Allowed: false, RetryAfter: retry}
}

// Clear removes the entry for the (domain, identifier) pair.
func (l *Limiter) Clear(domain, identifier string) {
	if identifier == "" {
		identifier = "default"
	}
	l.mu.Lock()
	delete(l.entries, domain+":"+identifier)
	l.mu.Unlock()
}

// Sweep removes entries whose window has elapsed.
func (l *Limiter) Sweep() {
	now := l.now()
	l.mu.Lock()
	for k, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, k)
		}
	}
	l.mu.Unlock()
}

// Len reports the number of tracked windows.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Stop terminates the background sweep goroutine.
func (l *Limiter) Stop() {
	close(l.done)
}

func (l *Limiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}
