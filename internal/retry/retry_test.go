package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 1}
}

func TestPolicy_StopsAfterMaxAttempts(t *testing.T) {
	boom := errors.New("boom")
	var notified []int

	attempts, err := fastPolicy(3).Do(context.Background(), func(ctx context.Context, attempt int) error {
		return boom
	}, func(attempt int, err error, wait time.Duration) {
		notified = append(notified, attempt)
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts: want 3, got %d", attempts)
	}
	if len(notified) != 2 {
		t.Fatalf("notify calls: want 2, got %v", notified)
	}
}

func TestPolicy_SucceedsAfterTransientFailures(t *testing.T) {
	attempts, err := fastPolicy(5).Do(context.Background(), func(ctx context.Context, attempt int) error {
		if attempt < 3 {
			return errors.New("flaky")
		}
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts: want 3, got %d", attempts)
	}
}

func TestPolicy_NonRetryableStopsImmediately(t *testing.T) {
	fatal := errors.New("fatal")
	p := fastPolicy(5).WithRetryable(func(err error) bool { return !errors.Is(err, fatal) })

	attempts, err := p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		return fatal
	}, nil)
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts: want 1, got %d", attempts)
	}
}

func TestPolicy_HonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 10, InitialInterval: time.Hour, MaxInterval: time.Hour, Multiplier: 1}

	done := make(chan error, 1)
	go func() {
		_, err := p.Do(ctx, func(ctx context.Context, attempt int) error {
			return errors.New("again")
		}, nil)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Do should return once the context is canceled")
	}
}
