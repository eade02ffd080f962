// Package kv provides the local key-value backends behind the persistence
// store. Values are opaque JSON documents.
package kv

import (
	"context"
	"errors"
	"strings"
)

// Store is a minimal durable key-value contract. Get reports a missing key
// with ok=false and a nil error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var ErrInvalidKey = errors.New("kv: invalid key")

func checkKey(key string) (string, error) {
	k := strings.TrimSpace(key)
	if k == "" || strings.ContainsAny(k, `/\`) || k == "." || k == ".." {
		return "", ErrInvalidKey
	}
	return k, nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
