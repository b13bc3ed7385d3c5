package player

import (
	"sync"
	"time"
)

// StallTracker counts playback stalls inside a rolling window. Two stalls
// within the window trip the downgrade signal.
type StallTracker struct {
	window    time.Duration
	threshold int

	mu     sync.Mutex
	stalls []time.Time
	now    func() time.Time
}

func NewStallTracker(window time.Duration) *StallTracker {
	return &StallTracker{window: window, threshold: 2, now: time.Now}
}

// Record notes one stall and reports whether the downgrade threshold has
// been reached. Tripping the signal clears the window so the next tier gets
// a fresh measurement.
func (t *StallTracker) Record() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.stalls = append(t.stalls, now)
	t.prune(now)

	if len(t.stalls) >= t.threshold {
		t.stalls = t.stalls[:0]
		return true
	}
	return false
}

// Count reports the stalls currently inside the window.
func (t *StallTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(t.now())
	return len(t.stalls)
}

// Reset clears the window, used when playback moves to a new item.
func (t *StallTracker) Reset() {
	t.mu.Lock()
	t.stalls = t.stalls[:0]
	t.mu.Unlock()
}

func (t *StallTracker) prune(now time.Time) {
	cutoff := now.Add(-t.window)
	kept := t.stalls[:0]
	for _, s := range t.stalls {
		if s.After(cutoff) {
			kept = append(kept, s)
		}
	}
	t.stalls = kept
}
