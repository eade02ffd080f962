package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		want     string
		stripped bool
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`, true},
		{"surrounding space", "  \n```json\n{}\n```\n ", `{}`, true},
		{"unfenced", `{"a":1}`, `{"a":1}`, false},
		{"only one layer", "```\n```json\n{}\n```\n```", "```json\n{}\n```", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := StripCodeFence(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.stripped, ok)
		})
	}
}

func TestMarshalNoEscape(t *testing.T) {
	b, err := MarshalNoEscape(map[string]string{"k": "<a&b>"})
	assert.NoError(t, err)
	assert.Equal(t, `{"k":"<a&b>"}`, string(b))
}
