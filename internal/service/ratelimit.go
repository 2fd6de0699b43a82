// internal/service/ratelimit.go
// Per-destination admission control
package service

import (
	"sync"
	"time"
)

// DestinationLimiter is a fixed-window request counter keyed by the
// destination identifier, not by caller identity: once a destination
// exceeds the threshold within the window, further validations of that
// destination are rejected until the window resets.
type DestinationLimiter struct {
	mu        sync.Mutex
	windows   map[string]*limiterWindow
	window    time.Duration
	threshold int
}

type limiterWindow struct {
	startedAt time.Time
	count     int
}

func NewDestinationLimiter(window time.Duration, threshold int) *DestinationLimiter {
	return &DestinationLimiter{
		windows:   make(map[string]*limiterWindow),
		window:    window,
		threshold: threshold,
	}
}

// Allow records one validation attempt for the destination and reports
// whether it is admitted.
func (l *DestinationLimiter) Allow(destination string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[destination]
	if !ok || now.Sub(w.startedAt) >= l.window {
		l.windows[destination] = &limiterWindow{startedAt: now, count: 1}
		return true
	}

	if w.count >= l.threshold {
		return false
	}
	w.count++
	return true
}

// Remaining reports how many validations the destination has left in the
// current window.
func (l *DestinationLimiter) Remaining(destination string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[destination]
	if !ok || time.Since(w.startedAt) >= l.window {
		return l.threshold
	}
	if w.count >= l.threshold {
		return 0
	}
	return l.threshold - w.count
}
