package llm

import (
	"context"
	"encoding/json"
	"time"

	llmclient "nexus/internal/llm/client"
)

// WithTimeout bounds every call. For streams the deadline covers the whole
// read, and the context is released when the reader stops. d <= 0 disables it.
func WithTimeout(d time.Duration) Middleware {
	return func(next llmclient.Client) llmclient.Client {
		if d <= 0 {
			return next
		}
		return &timeboxed{next: next, d: d}
	}
}

type timeboxed struct {
	next llmclient.Client
	d    time.Duration
}

func (c *timeboxed) Name() string { return c.next.Name() }
func (c *timeboxed) Close() error { return c.next.Close() }

func (c *timeboxed) GenerateJSON(ctx context.Context, req llmclient.Request) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.d)
	defer cancel()
	return c.next.GenerateJSON(ctx, req)
}

func (c *timeboxed) GenerateText(ctx context.Context, req llmclient.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.d)
	defer cancel()
	return c.next.GenerateText(ctx, req)
}

func (c *timeboxed) GenerateStream(ctx context.Context, req llmclient.Request) (llmclient.Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, c.d)
	s, err := c.next.GenerateStream(ctx, req)
	if err != nil {
		cancel()
		return nil, err
	}
	return wrapStream(s, func(int, error) { cancel() }), nil
}
