package jsonutil

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// MarshalNoEscape encodes v into JSON without escaping <, >, & into <, etc.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Remove trailing newline from json.Encoder.Encode
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalNoEscapeIndent encodes v into JSON with indentation but without HTML escaping.
func MarshalNoEscapeIndent(v any, prefix, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(prefix, indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

var reFence = regexp.MustCompile("(?s)^```[a-zA-Z0-9_-]*[ \t]*\n?(.*?)\n?```$")

// StripCodeFence removes exactly one surrounding markdown fence such as
// ```json ... ```. Text that is not fenced is returned trimmed. The second
// return reports whether a fence was removed.
func StripCodeFence(s string) (string, bool) {
	t := strings.TrimSpace(s)
	m := reFence.FindStringSubmatch(t)
	if m == nil {
		return t, false
	}
	return strings.TrimSpace(m[1]), true
}
