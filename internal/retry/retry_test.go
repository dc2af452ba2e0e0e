package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoSucceedsAfterFailures(t *testing.T) {
	policy := Policy{MaxAttempts: 3, Delay: time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Fatalf("op ran %d times, want 3", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	policy := Policy{MaxAttempts: 2, Delay: time.Millisecond}
	sentinel := errors.New("still broken")

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("op ran %d times, want 2", calls)
	}
}

func TestDoStopsOnPermanent(t *testing.T) {
	policy := Policy{MaxAttempts: 5, Delay: time.Millisecond}
	sentinel := errors.New("bad request")

	calls := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(sentinel)
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("op ran %d times, want 1", calls)
	}
}

func TestDoRespectsContext(t *testing.T) {
	policy := Policy{MaxAttempts: 10, Delay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		// Cancel while Do sleeps between attempts.
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := policy.Do(ctx, func(ctx context.Context) error {
		calls++
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("op ran %d times, want 1", calls)
	}
}

func TestNextDelay(t *testing.T) {
	fixed := Policy{Delay: time.Second}
	if got := fixed.nextDelay(time.Second); got != time.Second {
		t.Fatalf("fixed policy changed delay to %v", got)
	}

	doubling := Policy{Delay: time.Second, MaxDelay: 5 * time.Second}
	if got := doubling.nextDelay(time.Second); got != 2*time.Second {
		t.Fatalf("expected 2s, got %v", got)
	}
	if got := doubling.nextDelay(4 * time.Second); got != 5*time.Second {
		t.Fatalf("expected cap at 5s, got %v", got)
	}
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := Policy{}.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Fatalf("err=%v calls=%d, want nil/1", err, calls)
	}
}

func TestOnRetryObservesFailedAttempts(t *testing.T) {
	type observation struct {
		attempt int
		delay   time.Duration
	}
	var seen []observation

	policy := Policy{
		MaxAttempts: 3,
		Delay:       time.Millisecond,
		MaxDelay:    4 * time.Millisecond,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			if err == nil {
				t.Fatal("OnRetry called without an error")
			}
			seen = append(seen, observation{attempt, delay})
		},
	}
	_ = policy.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("transient")
	})

	// The final attempt fails the loop outright, so only two retries fire,
	// with the doubled delay visible on the second.
	want := []observation{{1, time.Millisecond}, {2, 2 * time.Millisecond}}
	if len(seen) != len(want) {
		t.Fatalf("OnRetry fired %d times, want %d", len(seen), len(want))
	}
	for i, o := range seen {
		if o != want[i] {
			t.Errorf("retry %d: got %+v, want %+v", i, o, want[i])
		}
	}
}
