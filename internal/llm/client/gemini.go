package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	genai "google.golang.org/genai"
)

var ErrEmptyResponse = errors.New("llm: empty response from model")

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if strings.TrimSpace(model) == "" {
		model = "gemini-2.5-flash"
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

func (g *GeminiClient) config(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.Search {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return cfg
}

// GenerateJSON requests application/json constrained by req.Schema.
func (g *GeminiClient) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	if req.Schema == nil {
		return nil, errors.New("llm: structured request requires a schema")
	}
	cfg := g.config(req)
	cfg.ResponseMIMEType = "application/json"
	cfg.ResponseSchema = req.Schema.Genai()
	resp, err := g.cli.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, mapGenaiError(string(req.Stage), err)
	}
	txt := resp.Text()
	if strings.TrimSpace(txt) == "" {
		return nil, &ParseError{Err: ErrEmptyResponse}
	}
	return json.RawMessage(txt), nil
}

func (g *GeminiClient) GenerateText(ctx context.Context, req Request) (string, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), g.config(req))
	if err != nil {
		return "", mapGenaiError(string(req.Stage), err)
	}
	return resp.Text(), nil
}

// GenerateStream starts a streaming call. Errors raised before the first
// chunk arrive during iteration, mapped the same way as one-shot calls.
func (g *GeminiClient) GenerateStream(ctx context.Context, req Request) (Stream, error) {
	seq := g.cli.Models.GenerateContentStream(ctx, g.model, genai.Text(req.Prompt), g.config(req))
	stage := string(req.Stage)
	return Once(func(yield func(string, error) bool) {
		for chunk, err := range seq {
			if err != nil {
				yield("", mapGenaiError(stage, err))
				return
			}
			if chunk == nil {
				continue
			}
			if txt := chunk.Text(); txt != "" {
				if !yield(txt, nil) {
					return
				}
			}
		}
	}), nil
}

// mapGenaiError splits vendor failures into service and transport errors.
func mapGenaiError(op string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ServiceError{Status: apiErr.Code, Code: apiErr.Status, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &ServiceError{Status: apiErrPtr.Code, Code: apiErrPtr.Status, Message: apiErrPtr.Message}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &NetworkError{Op: op, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &NetworkError{Op: op, Err: err}
}

// StatusFromHTTP builds a ServiceError from a raw HTTP status and body text.
func StatusFromHTTP(status int, message string) *ServiceError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &ServiceError{Status: status, Message: message}
}
