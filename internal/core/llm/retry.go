package llm

import (
	"context"
	"log"
	"time"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 2 * time.Second
)

// RetryPolicy bounds how often a transient inference failure is retried and
// how long to back off between attempts. Backoff doubles per attempt from
// BaseDelay; fatal failures pass through untouched on the first attempt.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration

	// sleep is swapped out by tests to observe delays without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryPolicy builds a policy with the given bounds, falling back to the
// defaults (3 retries, 2s base delay) for non-positive values.
func NewRetryPolicy(maxRetries int, baseDelay time.Duration) *RetryPolicy {
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	return &RetryPolicy{MaxRetries: maxRetries, BaseDelay: baseDelay, sleep: sleepCtx}
}

// Do runs fn, retrying only transient failures up to MaxRetries times with
// delays BaseDelay, 2*BaseDelay, 4*BaseDelay, ... A fatal failure returns
// immediately; exhausting the budget returns the last transient error.
func (p *RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if !IsTransient(err) {
			return "", err
		}
		lastErr = err

		if attempt == p.MaxRetries {
			break
		}

		backoff := p.BaseDelay << attempt
		log.Printf("inference attempt %d/%d failed, retrying in %v: %v",
			attempt+1, p.MaxRetries, backoff, err)
		if err := p.sleep(ctx, backoff); err != nil {
			return "", err
		}
	}

	return "", lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
