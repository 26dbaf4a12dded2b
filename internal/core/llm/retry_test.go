package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeSleep records requested delays instead of waiting.
func fakeSleep(delays *[]time.Duration) func(ctx context.Context, d time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestRetryBackoffSchedule(t *testing.T) {
	var delays []time.Duration
	p := NewRetryPolicy(3, 2*time.Second)
	p.sleep = fakeSleep(&delays)

	calls := 0
	transient := TransientError("API overloaded (status 503)", nil)
	_, err := p.Do(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "", transient
	})

	if calls != 4 {
		t.Errorf("calls = %d, want 4 (initial + 3 retries)", calls)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
	if !errors.Is(err, transient) {
		t.Errorf("exhaustion must return the last transient error, got %v", err)
	}
}

func TestRetryFatalNotRetried(t *testing.T) {
	var delays []time.Duration
	p := NewRetryPolicy(3, 2*time.Second)
	p.sleep = fakeSleep(&delays)

	calls := 0
	fatal := FatalError("API request failed: 400", nil)
	_, err := p.Do(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		return "", fatal
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(delays) != 0 {
		t.Errorf("fatal failure must not back off, slept %v", delays)
	}
	if !errors.Is(err, fatal) {
		t.Errorf("err = %v, want the fatal error", err)
	}
}

func TestRetryRecoversAfterTransient(t *testing.T) {
	var delays []time.Duration
	p := NewRetryPolicy(3, time.Second)
	p.sleep = fakeSleep(&delays)

	calls := 0
	out, err := p.Do(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", TransientError("API overloaded (status 529)", nil)
		}
		return `{"rows": []}`, nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"rows": []}` {
		t.Errorf("out = %q", out)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(delays) != 2 {
		t.Errorf("slept %d times, want 2", len(delays))
	}
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewRetryPolicy(3, time.Second)
	p.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	calls := 0
	_, err := p.Do(ctx, func(ctx context.Context) (string, error) {
		calls++
		return "", TransientError("API overloaded (status 503)", nil)
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
