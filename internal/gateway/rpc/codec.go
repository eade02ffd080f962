// Package rpc serves the generation service over connect with a JSON codec
// on plain Go structs, and provides the matching client.
package rpc

import (
	"encoding/json"

	"nexus/internal/util/jsonutil"
)

// jsonCodec replaces connect's protobuf-only JSON codec. It is registered
// under the same name so both unary and streaming content types resolve to it.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

// Marshal leaves <, > and & unescaped; report markdown is full of them.
func (jsonCodec) Marshal(v any) ([]byte, error) { return jsonutil.MarshalNoEscape(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
