// Package ratelimit implements fixed-window request counters keyed by
// (operation class, principal). Windows live in process memory only; loss on
// restart fails open.
package ratelimit

import (
	"sync"
	"time"
)

// ClassConfig is the budget for one operation class.
type ClassConfig struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// Decision is the outcome of a Check call.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	// Remaining is the number of calls left in the current window.
	Remaining int
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter owns one fixed window per (class, principal) pair. Instances are
// explicitly constructed and injected, never package-level, so tests can run
// isolated limiters in parallel.
type Limiter struct {
	mu      sync.Mutex
	classes map[string]ClassConfig
	windows map[string]*window
	now     func() time.Time
}

// New creates a Limiter with per-class budgets. Classes absent from the map
// are unlimited.
func New(classes map[string]ClassConfig) *Limiter {
	cp := make(map[string]ClassConfig, len(classes))
	for k, v := range classes {
		cp[k] = v
	}
	return &Limiter{
		classes: cp,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

// Check counts one call against the (class, principal) window and reports
// whether it is allowed. On first access in a new window the counter resets
// to 1; within a live window it increments and is compared against the class
// limit. The expired window is replaced, not merged.
func (l *Limiter) Check(class, principalID string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg, ok := l.classes[class]
	if !ok || cfg.Limit <= 0 {
		return Decision{Allowed: true, Remaining: -1}
	}

	now := l.now()
	key := class + "\x00" + principalID
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		l.windows[key] = &window{count: 1, resetAt: now.Add(cfg.Window)}
		return Decision{Allowed: true, Remaining: cfg.Limit - 1}
	}

	w.count++
	if w.count > cfg.Limit {
		retry := w.resetAt.Sub(now)
		if retry < time.Second {
			retry = time.Second
		}
		return Decision{Allowed: false, RetryAfter: retry}
	}
	return Decision{Allowed: true, Remaining: cfg.Limit - w.count}
}

// Reset drops every window. Test hook.
func (l *Limiter) Reset() {
	l.mu.Lock()
	l.windows = make(map[string]*window)
	l.mu.Unlock()
}
