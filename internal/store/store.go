// Package store persists the autosave slot and the named saved
// configurations on top of a kv backend.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"nexus/internal/kv"
	"nexus/internal/types"
)

// Fixed keys; the names match the blobs written by earlier versions.
const (
	AutosaveKey = "nexusAutosaveReportParams"
	SavedKey    = "nexusSavedReports"
)

// ValidationError rejects a save before anything is written.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("store: %s %s", e.Field, e.Msg)
}

// PersistenceError wraps a serialization or backend failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// Store serializes access to the saved list so concurrent upserts do not
// lose entries.
type Store struct {
	kv kv.Store
	mu sync.Mutex
}

func New(backend kv.Store) *Store {
	if backend == nil {
		backend = kv.NewMemory()
	}
	return &Store{kv: backend}
}

// Autosave overwrites the autosave slot with p.
func (s *Store) Autosave(ctx context.Context, p types.ReportParameters) error {
	b, err := json.Marshal(p)
	if err != nil {
		return &PersistenceError{Op: "autosave", Err: err}
	}
	if err := s.kv.Set(ctx, AutosaveKey, b); err != nil {
		return &PersistenceError{Op: "autosave", Err: err}
	}
	return nil
}

// LoadAutosave returns the autosaved configuration, if any.
func (s *Store) LoadAutosave(ctx context.Context) (types.ReportParameters, bool, error) {
	b, ok, err := s.kv.Get(ctx, AutosaveKey)
	if err != nil {
		return types.ReportParameters{}, false, &PersistenceError{Op: "load autosave", Err: err}
	}
	if !ok {
		return types.ReportParameters{}, false, nil
	}
	var p types.ReportParameters
	if err := json.Unmarshal(b, &p); err != nil {
		return types.ReportParameters{}, false, &PersistenceError{Op: "load autosave", Err: err}
	}
	return p, true, nil
}

func (s *Store) ClearAutosave(ctx context.Context) error {
	if err := s.kv.Delete(ctx, AutosaveKey); err != nil {
		return &PersistenceError{Op: "clear autosave", Err: err}
	}
	return nil
}

// readSaved must be called with mu held.
func (s *Store) readSaved(ctx context.Context) ([]types.ReportParameters, error) {
	b, ok, err := s.kv.Get(ctx, SavedKey)
	if err != nil {
		return nil, &PersistenceError{Op: "read saved", Err: err}
	}
	if !ok || len(b) == 0 {
		return []types.ReportParameters{}, nil
	}
	var list []types.ReportParameters
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, &PersistenceError{Op: "read saved", Err: err}
	}
	if list == nil {
		list = []types.ReportParameters{}
	}
	return list, nil
}

func (s *Store) writeSaved(ctx context.Context, list []types.ReportParameters) error {
	b, err := json.Marshal(list)
	if err != nil {
		return &PersistenceError{Op: "write saved", Err: err}
	}
	if err := s.kv.Set(ctx, SavedKey, b); err != nil {
		return &PersistenceError{Op: "write saved", Err: err}
	}
	return nil
}

func index(list []types.ReportParameters, name string) int {
	for i, p := range list {
		if p.ReportName == name {
			return i
		}
	}
	return -1
}

// Save upserts p by report name. Existing entries are overwritten in place;
// new entries go first. It returns the updated list.
func (s *Store) Save(ctx context.Context, p types.ReportParameters) ([]types.ReportParameters, error) {
	if strings.TrimSpace(p.ReportName) == "" {
		return nil, &ValidationError{Field: "reportName", Msg: "is required to save"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.readSaved(ctx)
	if err != nil {
		return nil, err
	}
	entry := p.Clone()
	if i := index(list, p.ReportName); i >= 0 {
		list[i] = entry
	} else {
		list = append([]types.ReportParameters{entry}, list...)
	}
	if err := s.writeSaved(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// Load returns the saved configuration called name.
func (s *Store) Load(ctx context.Context, name string) (types.ReportParameters, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.readSaved(ctx)
	if err != nil {
		return types.ReportParameters{}, false, err
	}
	i := index(list, name)
	if i < 0 {
		return types.ReportParameters{}, false, nil
	}
	return list[i], true, nil
}

// Delete removes name from the saved list. Unknown names are a no-op and
// nothing is written.
func (s *Store) Delete(ctx context.Context, name string) ([]types.ReportParameters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.readSaved(ctx)
	if err != nil {
		return nil, err
	}
	i := index(list, name)
	if i < 0 {
		return list, nil
	}
	list = append(list[:i], list[i+1:]...)
	if err := s.writeSaved(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// List returns saved configurations, most recently created first.
func (s *Store) List(ctx context.Context) ([]types.ReportParameters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readSaved(ctx)
}
