package llm

import (
	"context"
	"encoding/json"
	"log"
	"time"

	llmclient "nexus/internal/llm/client"
)

// Middleware decorates a Client to inject cross-cutting concerns
// (rate limiting, logging, hooks, metrics).
type Middleware func(llmclient.Client) llmclient.Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.Client, mws ...Middleware) llmclient.Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// wrapStream runs done once the consumer stops ranging over s, with the
// terminal error (nil on a clean end) and the number of bytes delivered.
func wrapStream(s llmclient.Stream, done func(n int, err error)) llmclient.Stream {
	return func(yield func(string, error) bool) {
		n := 0
		var last error
		defer func() { done(n, last) }()
		for frag, err := range s {
			if err != nil {
				last = err
				yield("", err)
				return
			}
			n += len(frag)
			if !yield(frag, nil) {
				return
			}
		}
	}
}

// -------- Logging --------

// WithLogging logs request size, latency and errors. Provide a custom logger or nil
// to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next llmclient.Client) llmclient.Client {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next llmclient.Client
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) GenerateJSON(ctx context.Context, req llmclient.Request) (json.RawMessage, error) {
	start := time.Now()
	l.log.Printf("LLM request (%s/json): %d bytes", req.Stage, req.Size())
	raw, err := l.next.GenerateJSON(ctx, req)
	if err != nil {
		l.log.Printf("LLM error (%s/json): %v", req.Stage, err)
	} else {
		l.log.Printf("LLM response (%s/json): %d bytes in %s", req.Stage, len(raw), time.Since(start).Round(time.Millisecond))
	}
	return raw, err
}

func (l *logging) GenerateText(ctx context.Context, req llmclient.Request) (string, error) {
	start := time.Now()
	l.log.Printf("LLM request (%s/text): %d bytes", req.Stage, req.Size())
	out, err := l.next.GenerateText(ctx, req)
	if err != nil {
		l.log.Printf("LLM error (%s/text): %v", req.Stage, err)
	} else {
		l.log.Printf("LLM response (%s/text): %d bytes in %s", req.Stage, len(out), time.Since(start).Round(time.Millisecond))
	}
	return out, err
}

func (l *logging) GenerateStream(ctx context.Context, req llmclient.Request) (llmclient.Stream, error) {
	start := time.Now()
	l.log.Printf("LLM request (%s/stream): %d bytes", req.Stage, req.Size())
	s, err := l.next.GenerateStream(ctx, req)
	if err != nil {
		l.log.Printf("LLM error (%s/stream): %v", req.Stage, err)
		return nil, err
	}
	return wrapStream(s, func(n int, err error) {
		if err != nil {
			l.log.Printf("LLM stream error (%s): %v after %d bytes", req.Stage, err, n)
			return
		}
		l.log.Printf("LLM stream end (%s): %d bytes in %s", req.Stage, n, time.Since(start).Round(time.Millisecond))
	}), nil
}

// -------- Hooks --------

// WithHooks calls HookFrom(ctx).Before/After around every call.
// If no hook is present in the context, it is a no-op.
func WithHooks() Middleware {
	return func(next llmclient.Client) llmclient.Client {
		return &hooked{next: next}
	}
}

type hooked struct{ next llmclient.Client }

func (h *hooked) Name() string { return h.next.Name() }
func (h *hooked) Close() error { return h.next.Close() }

func (h *hooked) GenerateJSON(ctx context.Context, req llmclient.Request) (json.RawMessage, error) {
	hook := HookFrom(ctx)
	if hook != nil {
		hook.Before(ctx, req)
	}
	raw, err := h.next.GenerateJSON(ctx, req)
	if hook != nil {
		hook.After(ctx, req, string(raw), err)
	}
	return raw, err
}

func (h *hooked) GenerateText(ctx context.Context, req llmclient.Request) (string, error) {
	hook := HookFrom(ctx)
	if hook != nil {
		hook.Before(ctx, req)
	}
	out, err := h.next.GenerateText(ctx, req)
	if hook != nil {
		hook.After(ctx, req, out, err)
	}
	return out, err
}

func (h *hooked) GenerateStream(ctx context.Context, req llmclient.Request) (llmclient.Stream, error) {
	hook := HookFrom(ctx)
	if hook != nil {
		hook.Before(ctx, req)
	}
	s, err := h.next.GenerateStream(ctx, req)
	if err != nil {
		if hook != nil {
			hook.After(ctx, req, "", err)
		}
		return nil, err
	}
	if hook == nil {
		return s, nil
	}
	return wrapStream(s, func(_ int, err error) { hook.After(ctx, req, "", err) }), nil
}
