package kv

import (
	"context"
	"sync"
)

// Memory keeps values in process. It is the default for tests and for
// sessions that do not need to survive a restart.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	k, err := checkKey(key)
	if err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[k]
	return clone(v), ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	k, err := checkKey(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[k] = clone(value)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	k, err := checkKey(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, k)
	return nil
}
