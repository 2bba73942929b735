// Package retry implements the generic backoff combinator spec.md §9 asks
// for in place of nested try/except: a single (maxAttempts, baseDelay,
// maxDelay, retryable-predicate) parameterization reused by HttpClient
// (spec.md §4.3), AuthClient (spec.md §4.2) and SegmentDownloader
// (spec.md §4.6).
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy parameterizes one retry loop.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Jitter is the fractional jitter applied to each delay, e.g. 0.5 for ±50%.
	Jitter float64
	// Retryable decides whether err warrants another attempt.
	Retryable func(err error) bool
}

// HTTPPolicy is the spec.md §4.3 policy: retry {400,401,403,500,502,503,504}
// and transport errors, max 3 attempts, delay min(2.0, 0.25*2^attempt) ±50%.
func HTTPPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		Jitter:      0.5,
		Retryable:   retryable,
	}
}

// SegmentPolicy is the spec.md §4.6 per-segment retry policy.
func SegmentPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		Jitter:      0.5,
		Retryable:   retryable,
	}
}

// AuthPolicy is the spec.md §4.2 "retried up to N (5) times" policy.
func AuthPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Jitter:      0.5,
		Retryable:   retryable,
	}
}

func (p Policy) delay(attempt int) time.Duration {
	d := p.BaseDelay * time.Duration(1<<uint(attempt))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		spread := float64(d) * p.Jitter
		d = time.Duration(float64(d) - spread + rand.Float64()*2*spread)
		if d < 0 {
			d = 0
		}
	}
	return d
}

// Do runs fn, retrying per the policy until it succeeds, the context is
// cancelled, fn returns an error the policy deems non-retryable, or attempts
// are exhausted. It returns fn's last error unchanged, so callers can
// compare or errors.Is/As against it directly.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt < max(p.MaxAttempts, 1); attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == p.MaxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.delay(attempt)):
		}
	}
	return lastErr
}

// Backoff builds a cenkalti/backoff/v5 exponential backoff configured to
// match this Policy, for call sites that want the library's own Retry
// driver (e.g. long-lived session refresh loops) rather than Do's
// one-shot loop.
func (p Policy) Backoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = p.Jitter
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
