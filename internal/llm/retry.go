package llm

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultRetryAttempts = 2
	DefaultRetryBackoff  = 500 * time.Millisecond
	maxRetryAttempts     = 10
	maxRetryBackoff      = 10 * time.Second
)

// RetryPolicy bounds retries of a single Generate call.
type RetryPolicy struct {
	// Attempts is the number of retries after the first call (0 disables retry)
	Attempts int

	// Backoff is the initial delay; it doubles per retry up to a fixed cap
	Backoff time.Duration

	Logger zerolog.Logger
}

type retryingLLM struct {
	next   LLM
	policy RetryPolicy
}

// WithRetry wraps next so transient failures are retried with exponential
// backoff. Context cancellation, configuration errors and empty responses are
// returned without retrying.
func WithRetry(next LLM, policy RetryPolicy) LLM {
	if policy.Attempts <= 0 {
		return next
	}
	if policy.Attempts > maxRetryAttempts {
		policy.Attempts = maxRetryAttempts
	}
	if policy.Backoff <= 0 {
		policy.Backoff = DefaultRetryBackoff
	}
	return &retryingLLM{next: next, policy: policy}
}

func (r *retryingLLM) Generate(ctx context.Context, prompt string) (string, error) {
	backoff := retry.NewExponential(r.policy.Backoff)
	backoff = retry.WithCappedDuration(maxRetryBackoff, backoff)
	backoff = retry.WithMaxRetries(uint64(r.policy.Attempts), backoff) // #nosec G115 -- bounded above

	attempt := 0
	var out string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		text, err := r.next.Generate(ctx, prompt)
		if err != nil {
			if !isRetryable(ctx, err) {
				return err
			}
			r.policy.Logger.Debug().Err(err).Int("attempt", attempt).Msg("retrying LLM call")
			return retry.RetryableError(err)
		}
		out = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrEmptyResponse):
		return false
	}
	return true
}
