package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

type rateLimitedLLM struct {
	next    LLM
	limiter *rate.Limiter
}

// WithRateLimit wraps next so that at most requestsPerMinute calls start per
// minute. A non-positive rate returns next unchanged.
func WithRateLimit(next LLM, requestsPerMinute float64) LLM {
	if requestsPerMinute <= 0 {
		return next
	}
	every := time.Duration(float64(time.Minute) / requestsPerMinute)
	return &rateLimitedLLM{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(every), 1),
	}
}

func (r *rateLimitedLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	return r.next.Generate(ctx, prompt)
}
