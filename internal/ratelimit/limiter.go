package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter enforces a per-sender-number fixed window. TryConsume combines
// the window reset and the increment into one atomic conditional operation
// so two workers can never both believe they reset the window. Status is
// read-only and must never move the counter.
type Limiter interface {
	TryConsume(ctx context.Context, number string, max int, window time.Duration) (bool, error)
	Status(ctx context.Context, number string, max int, window time.Duration) (Status, error)
}

// Status is a side-effect-free snapshot of one number's current window.
type Status struct {
	Number    string    `json:"number"`
	Count     int       `json:"count"`
	Max       int       `json:"max"`
	Remaining int       `json:"remaining"`
	UsagePct  float64   `json:"usagePct"`
	WindowEnd time.Time `json:"windowEnd"`
}

type fixedWindow struct {
	start time.Time
	count int
}

// MemoryLimiter keeps one fixed window per sender number in process. All
// decisions go through a single lock so reset-or-increment is indivisible.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*fixedWindow
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*fixedWindow),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) TryConsume(_ context.Context, number string, max int, window time.Duration) (bool, error) {
	if max <= 0 {
		return false, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[number]

	// No active window, or the current one expired: start fresh and take
	// the first slot in the same step.
	if !ok || now.Sub(w.start) >= window {
		l.windows[number] = &fixedWindow{start: now, count: 1}
		return true, nil
	}

	if w.count >= max {
		return false, nil
	}

	w.count++
	return true, nil
}

func (l *MemoryLimiter) Status(_ context.Context, number string, max int, window time.Duration) (Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	status := Status{Number: number, Max: max, Remaining: max}

	w, ok := l.windows[number]
	if !ok || now.Sub(w.start) >= window {
		status.WindowEnd = now.Add(window)
		return status, nil
	}

	status.Count = w.count
	status.Remaining = max - w.count
	if status.Remaining < 0 {
		status.Remaining = 0
	}
	if max > 0 {
		status.UsagePct = float64(w.count) / float64(max) * 100
	}
	status.WindowEnd = w.start.Add(window)

	return status, nil
}
