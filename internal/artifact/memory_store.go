package artifact

import (
	"context"
	"slices"
	"strings"
	"sync"
)

type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document)}
}

func (s *MemoryStore) Put(_ context.Context, doc Document) (Document, error) {
	doc, err := assignID(doc)
	if err != nil {
		return Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	return doc, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Document, error) {
	id, err := checkID(id)
	if err != nil {
		return Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (s *MemoryStore) List(_ context.Context, reportName string) ([]Document, error) {
	prefix := Slug(reportName) + "/"
	s.mu.RLock()
	out := make([]Document, 0, 8)
	for id, doc := range s.docs {
		if strings.HasPrefix(id, prefix) {
			out = append(out, doc)
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, newestFirst)
	return out, nil
}
