package llmclient

import (
	"context"
	"encoding/json"
	"errors"

	"nexus/internal/util/jsonutil"
)

// GenerateStructured runs a structured call and decodes the result into T.
// A fenced payload is unwrapped once; anything still undecodable, or not
// matching req.Schema, is a *ParseError. No further repair is attempted.
func GenerateStructured[T any](ctx context.Context, c Client, req Request) (T, error) {
	var zero T
	if req.Schema == nil {
		return zero, errors.New("llm: structured request requires a schema")
	}
	raw, err := c.GenerateJSON(ctx, req)
	if err != nil {
		return zero, err
	}
	return DecodeStructured[T](raw, req.Schema)
}

// DecodeStructured applies the structured-response contract to raw bytes.
func DecodeStructured[T any](raw []byte, schema *Schema) (T, error) {
	var out T
	text, _ := jsonutil.StripCodeFence(string(raw))
	var generic any
	if err := json.Unmarshal([]byte(text), &generic); err != nil {
		return out, &ParseError{Raw: string(raw), Err: err}
	}
	if err := schema.Check(generic); err != nil {
		return out, &ParseError{Raw: string(raw), Err: err}
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return out, &ParseError{Raw: string(raw), Err: err}
	}
	return out, nil
}
