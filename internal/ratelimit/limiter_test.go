package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryLimiter_DeniesBeyondMax(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter()

	for i := 0; i < 3; i++ {
		ok, err := l.TryConsume(ctx, "+15550001111", 3, time.Hour)
		if err != nil {
			t.Fatalf("TryConsume returned error: %v", err)
		}
		if !ok {
			t.Fatalf("expected attempt %d to be allowed", i+1)
		}
	}

	ok, err := l.TryConsume(ctx, "+15550001111", 3, time.Hour)
	if err != nil {
		t.Fatalf("TryConsume returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected attempt max+1 to be denied")
	}
}

func TestMemoryLimiter_FreshWindowAfterExpiry(t *testing.T) {
	ctx := context.Background()

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter()
	l.now = func() time.Time { return current }

	for i := 0; i < 2; i++ {
		if ok, _ := l.TryConsume(ctx, "+15550001111", 2, time.Hour); !ok {
			t.Fatalf("expected attempt %d to be allowed", i+1)
		}
	}
	if ok, _ := l.TryConsume(ctx, "+15550001111", 2, time.Hour); ok {
		t.Fatalf("expected denial inside exhausted window")
	}

	// Advance past the window end; the next attempt starts a new window
	// and must be allowed.
	current = current.Add(time.Hour)
	ok, err := l.TryConsume(ctx, "+15550001111", 2, time.Hour)
	if err != nil {
		t.Fatalf("TryConsume returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected first attempt of fresh window to be allowed")
	}

	status, err := l.Status(ctx, "+15550001111", 2, time.Hour)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.Count != 1 {
		t.Fatalf("expected fresh window count 1, got %d", status.Count)
	}
}

func TestMemoryLimiter_IndependentNumbers(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter()

	if ok, _ := l.TryConsume(ctx, "+15550001111", 1, time.Hour); !ok {
		t.Fatalf("expected first number to be allowed")
	}
	if ok, _ := l.TryConsume(ctx, "+15550001111", 1, time.Hour); ok {
		t.Fatalf("expected first number to be exhausted")
	}
	if ok, _ := l.TryConsume(ctx, "+15550002222", 1, time.Hour); !ok {
		t.Fatalf("expected second number to be unaffected")
	}
}

func TestMemoryLimiter_BurstAllowsExactlyMax(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter()

	const (
		attempts = 150
		max      = 100
	)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
		denied  int
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.TryConsume(ctx, "+15550001111", max, time.Hour)
			if err != nil {
				t.Errorf("TryConsume returned error: %v", err)
				return
			}
			mu.Lock()
			if ok {
				allowed++
			} else {
				denied++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if allowed != max {
		t.Fatalf("expected exactly %d allowed, got %d", max, allowed)
	}
	if denied != attempts-max {
		t.Fatalf("expected exactly %d denied, got %d", attempts-max, denied)
	}
}

func TestMemoryLimiter_StatusHasNoSideEffect(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter()

	if ok, _ := l.TryConsume(ctx, "+15550001111", 5, time.Hour); !ok {
		t.Fatalf("expected attempt to be allowed")
	}

	for i := 0; i < 10; i++ {
		status, err := l.Status(ctx, "+15550001111", 5, time.Hour)
		if err != nil {
			t.Fatalf("Status returned error: %v", err)
		}
		if status.Count != 1 {
			t.Fatalf("expected count to stay 1, got %d", status.Count)
		}
		if status.Remaining != 4 {
			t.Fatalf("expected remaining 4, got %d", status.Remaining)
		}
		if status.UsagePct != 20 {
			t.Fatalf("expected usage 20%%, got %v", status.UsagePct)
		}
	}
}

// fakeCounterStore implements counterStore with the same INCR/EXPIRE
// semantics as the valkey client.
type fakeCounterStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (s *fakeCounterStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts == nil {
		s.counts = make(map[string]int64)
	}
	s.counts[key]++
	return s.counts[key], nil
}

func (s *fakeCounterStore) GetInt(_ context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.counts[key]
	return n, ok, nil
}

func TestRedisLimiter_AllowsUpToMaxPerBucket(t *testing.T) {
	ctx := context.Background()

	current := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	l := NewRedisLimiter(&fakeCounterStore{})
	l.now = func() time.Time { return current }

	allowed := 0
	for i := 0; i < 150; i++ {
		ok, err := l.TryConsume(ctx, "+15550001111", 100, time.Hour)
		if err != nil {
			t.Fatalf("TryConsume returned error: %v", err)
		}
		if ok {
			allowed++
		}
	}
	if allowed != 100 {
		t.Fatalf("expected exactly 100 allowed, got %d", allowed)
	}

	// Next hour bucket starts clean.
	current = current.Add(time.Hour)
	if ok, _ := l.TryConsume(ctx, "+15550001111", 100, time.Hour); !ok {
		t.Fatalf("expected first attempt of next bucket to be allowed")
	}
}

func TestRedisLimiter_StatusClampsOverCount(t *testing.T) {
	ctx := context.Background()

	current := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	l := NewRedisLimiter(&fakeCounterStore{})
	l.now = func() time.Time { return current }

	for i := 0; i < 7; i++ {
		if _, err := l.TryConsume(ctx, "+15550001111", 5, time.Hour); err != nil {
			t.Fatalf("TryConsume returned error: %v", err)
		}
	}

	status, err := l.Status(ctx, "+15550001111", 5, time.Hour)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.Count != 5 {
		t.Fatalf("expected clamped count 5, got %d", status.Count)
	}
	if status.Remaining != 0 {
		t.Fatalf("expected remaining 0, got %d", status.Remaining)
	}
	if status.WindowEnd != current.Truncate(time.Hour).Add(time.Hour) {
		t.Fatalf("unexpected window end %v", status.WindowEnd)
	}
}
