package kv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"nexus/internal/safeio"
)

// File stores one JSON document per key under a root directory. Writes go
// through a temp file and rename.
type File struct {
	fs *safeio.SafeFS
	mu sync.Mutex
}

func NewFile(root string) (*File, error) {
	sfs, err := safeio.NewSafeFS(root)
	if err != nil {
		return nil, fmt.Errorf("kv: open %s: %w", root, err)
	}
	return &File{fs: sfs}, nil
}

func (f *File) Root() string { return f.fs.Root() }

func fileName(key string) string { return key + ".json" }

func (f *File) Get(ctx context.Context, key string) ([]byte, bool, error) {
	k, err := checkKey(key)
	if err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	b, err := f.fs.SafeReadFile(fileName(k))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (f *File) Set(ctx context.Context, key string, value []byte) error {
	k, err := checkKey(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fs.SafeWriteFile(fileName(k), value)
}

func (f *File) Delete(ctx context.Context, key string) error {
	k, err := checkKey(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fs.SafeRemove(fileName(k))
}
