package llm

import (
	"context"
	"encoding/json"
	"math"

	"golang.org/x/time/rate"

	llmclient "nexus/internal/llm/client"
)

// RateLimit limits request rate with a token bucket.
// If rps <= 0, the limiter is disabled. Each call consumes one token before
// it is issued; a stream holds no token while it is being read.
func RateLimit(rps float64, burst int) Middleware {
	return func(next llmclient.Client) llmclient.Client {
		if rps <= 0 {
			return next
		}
		if burst < 1 {
			burst = int(math.Max(1, math.Ceil(rps)))
		}
		return &rateLimited{next: next, rl: rate.NewLimiter(rate.Limit(rps), burst)}
	}
}

type rateLimited struct {
	next llmclient.Client
	rl   *rate.Limiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error { return c.next.Close() }

func (c *rateLimited) wait(ctx context.Context, stage llmclient.Stage) error {
	if err := c.rl.Wait(ctx); err != nil {
		return &llmclient.NetworkError{Op: string(stage) + " rate limit", Err: err}
	}
	return nil
}

func (c *rateLimited) GenerateJSON(ctx context.Context, req llmclient.Request) (json.RawMessage, error) {
	if err := c.wait(ctx, req.Stage); err != nil {
		return nil, err
	}
	return c.next.GenerateJSON(ctx, req)
}

func (c *rateLimited) GenerateText(ctx context.Context, req llmclient.Request) (string, error) {
	if err := c.wait(ctx, req.Stage); err != nil {
		return "", err
	}
	return c.next.GenerateText(ctx, req)
}

func (c *rateLimited) GenerateStream(ctx context.Context, req llmclient.Request) (llmclient.Stream, error) {
	if err := c.wait(ctx, req.Stage); err != nil {
		return nil, err
	}
	return c.next.GenerateStream(ctx, req)
}
