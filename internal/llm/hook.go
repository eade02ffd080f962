package llm

import (
	"context"

	llmclient "nexus/internal/llm/client"
)

// PromptHook observes generation calls. For streams, After fires when the
// consumer stops reading and output is empty.
type PromptHook interface {
	Before(ctx context.Context, req llmclient.Request)
	After(ctx context.Context, req llmclient.Request, output string, err error)
}

type ctxKeyHook struct{}

// WithHook attaches a PromptHook to the context read by WithHooks.
func WithHook(ctx context.Context, hook PromptHook) context.Context {
	return context.WithValue(ctx, ctxKeyHook{}, hook)
}

// HookFrom returns the hook stored in the context.
func HookFrom(ctx context.Context) PromptHook {
	if v := ctx.Value(ctxKeyHook{}); v != nil {
		if h, ok := v.(PromptHook); ok {
			return h
		}
	}
	return nil
}

// HookFuncs adapts plain functions to PromptHook. Nil fields are skipped.
type HookFuncs struct {
	BeforeFunc func(ctx context.Context, req llmclient.Request)
	AfterFunc  func(ctx context.Context, req llmclient.Request, output string, err error)
}

func (h HookFuncs) Before(ctx context.Context, req llmclient.Request) {
	if h.BeforeFunc != nil {
		h.BeforeFunc(ctx, req)
	}
}

func (h HookFuncs) After(ctx context.Context, req llmclient.Request, output string, err error) {
	if h.AfterFunc != nil {
		h.AfterFunc(ctx, req, output, err)
	}
}
