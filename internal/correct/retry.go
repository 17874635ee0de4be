package correct

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/mallok/internal/metrics"
	"github.com/snarg/mallok/internal/task"
)

// RetryPolicy retries rate-limited calls with exponential backoff and
// jitter. Any other failure is returned on the first attempt.
type RetryPolicy struct {
	MaxAttempts int
	Base        time.Duration
	Jitter      time.Duration

	// Sleep and Rand are replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
	Rand  func() float64
}

// DefaultRetryPolicy waits 10s, 20s, 40s, 80s (plus up to 5s) across five attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, Base: 10 * time.Second, Jitter: 5 * time.Second}
}

// Backoff returns the wait after the given zero-based failed attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.Base << attempt
	if p.Jitter > 0 {
		r := rand.Float64
		if p.Rand != nil {
			r = p.Rand
		}
		d += time.Duration(r() * float64(p.Jitter))
	}
	return d
}

// Do runs fn until it succeeds, fails with a non-rate-limit error, or the
// attempts run out. Errors come back typed: CorrectionUnavailableError after
// exhausting retries, CorrectionEngineError otherwise.
func (p RetryPolicy) Do(ctx context.Context, log zerolog.Logger, fn func(context.Context) (string, error)) (string, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		if !IsRateLimit(err) {
			return "", &task.CorrectionEngineError{Err: err}
		}
		lastErr = &task.CorrectionRateLimitError{Err: err}
		if attempt == attempts-1 {
			break
		}

		wait := p.Backoff(attempt)
		metrics.CorrectionRetriesTotal.Inc()
		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", attempts).
			Dur("wait", wait).
			Msg("rate limited, retrying")
		if err := sleep(ctx, wait); err != nil {
			return "", &task.CorrectionEngineError{Err: err}
		}
	}
	return "", &task.CorrectionUnavailableError{Attempts: attempts, Err: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
