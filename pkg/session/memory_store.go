package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in a map. Records are copied in and out so
// callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	closed  bool
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Insert(_ context.Context, rec Record) error {
	if err := Validate(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return StorageError(ErrStoreClosed)
	}
	if _, ok := s.records[rec.ID]; ok {
		return StorageError(ErrDuplicateSession)
	}
	s.records[rec.ID] = rec
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, StorageError(ErrStoreClosed)
	}
	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryStore) Touch(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return StorageError(ErrStoreClosed)
	}
	rec, ok := s.records[id]
	if !ok || !at.After(rec.LastActive) {
		return nil
	}
	rec.LastActive = at
	s.records[id] = rec
	return nil
}

func (s *MemoryStore) SetStatus(_ context.Context, id string, status Status) error {
	if !status.Valid() {
		return StorageError(ErrInvalidRecord)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return StorageError(ErrStoreClosed)
	}
	if rec, ok := s.records[id]; ok {
		rec.Status = status
		s.records[id] = rec
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return StorageError(ErrStoreClosed)
	}
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) DeleteInactive(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, StorageError(ErrStoreClosed)
	}
	n := 0
	for id, rec := range s.records {
		if rec.LastActive.Before(before) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, StorageError(ErrStoreClosed)
	}
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

// Close drops all records.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	return nil
}
