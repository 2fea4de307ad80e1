package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/Veraticus/ingredient-moderator/internal/common"
)

// rateLimitedClient spaces out provider calls with a token bucket.
type rateLimitedClient struct {
	next    Client
	limiter *rate.Limiter
}

// withRateLimit allows requestsPerMinute calls per minute with a burst of
// one minute's allowance. Non-positive values default to 60.
func withRateLimit(next Client, requestsPerMinute int) Client {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	every := time.Minute / time.Duration(requestsPerMinute)
	return &rateLimitedClient{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(every), requestsPerMinute),
	}
}

func (c *rateLimitedClient) Complete(ctx context.Context, prompt string) (Completion, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Completion{}, fmt.Errorf("rate limiter canceled: %w", err)
	}
	return c.next.Complete(ctx, prompt)
}

// retryingClient retries transient provider failures.
type retryingClient struct {
	next Client
	opts common.RetryOptions
}

func withRetry(next Client, opts common.RetryOptions) Client {
	return &retryingClient{next: next, opts: opts}
}

func (c *retryingClient) Complete(ctx context.Context, prompt string) (Completion, error) {
	var out Completion
	err := common.WithRetry(ctx, func() error {
		completion, err := c.next.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		out = completion
		return nil
	}, c.opts)
	return out, err
}
