package authc

import (
	"sync"
	"time"
)

// A Lockout refuses further attempts for a principal once its
// failure count inside a sliding window reaches the limit.
// The window is cross-cutting: it is consulted before any realm runs
type Lockout struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	fails  map[string][]time.Time
}

var nowFunc = time.Now

// NewLockout returns a lockout that refuses attempts once limit
// failures accumulate inside the window. A non-positive limit
// disables it
func NewLockout(limit int, window time.Duration) *Lockout {
	return &Lockout{
		limit:  limit,
		window: window,
		fails:  make(map[string][]time.Time),
	}
}

// Allow reports whether the principal may attempt authentication
func (l *Lockout) Allow(principal string) bool {
	if l == nil || l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.prune(principal)) < l.limit
}

// RecordFailure notes one failed attempt for the principal
func (l *Lockout) RecordFailure(principal string) {
	if l == nil || l.limit <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.fails[principal] = append(l.prune(principal), nowFunc())
}

// RecordSuccess clears the principal's failure window
func (l *Lockout) RecordSuccess(principal string) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.fails, principal)
}

// prune drops failures older than the window; callers hold the lock
func (l *Lockout) prune(principal string) []time.Time {
	cutoff := nowFunc().Add(-l.window)
	kept := l.fails[principal][:0]
	for _, at := range l.fails[principal] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}

	if len(kept) == 0 {
		delete(l.fails, principal)
		return nil
	}

	l.fails[principal] = kept
	return kept
}
