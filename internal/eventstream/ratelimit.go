package eventstream

import (
	"sync"
	"time"

	"github.com/koofr/vault-sub003/internal/store"
)

// registerLimiter bounds how many Register requests the service will send
// for a given (mountId, path) subject within a rolling window, protecting
// the socket from being flooded by rapid subscribe/unsubscribe churn on
// that one logical subscription — a caller repeatedly toggling interest in
// a single noisy directory must not be able to starve every other
// subject's Register traffic. Adapted from the teacher's HTTP
// admin-endpoint sliding-window limiter, re-keyed per subject instead of
// one global counter since the vault core's register traffic is itself
// per-subject (§4.D).
type registerLimiter struct {
	window time.Duration
	limit  int
	now    func() time.Time

	mu     sync.Mutex
	events map[store.Subject][]time.Time
}

func newRegisterLimiter(window time.Duration, limit int, now func() time.Time) *registerLimiter {
	if now == nil {
		now = time.Now
	}
	return &registerLimiter{
		window: window,
		limit:  limit,
		now:    now,
		events: make(map[store.Subject][]time.Time),
	}
}

// Allow reports whether another Register send for subject may proceed
// under the configured per-subject rate, recording it if so.
func (l *registerLimiter) Allow(subject store.Subject) bool {
	if l == nil || l.limit <= 0 || l.window <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	kept := l.events[subject][:0]
	for _, ts := range l.events[subject] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		l.events[subject] = kept
		return false
	}

	l.events[subject] = append(kept, now)
	return true
}
