package item

import (
	"context"
	"slices"
	"sync"
)

// Store persists items. Get, Update and Delete return ErrNotFound for an
// unknown id.
type Store interface {
	Create(ctx context.Context, in Input) (int64, error)
	List(ctx context.Context) ([]Item, error)
	Get(ctx context.Context, id int64) (Item, error)
	Update(ctx context.Context, id int64, in Input) error
	Delete(ctx context.Context, id int64) error
}

// MemoryStore assigns ids from 1 upwards.
type MemoryStore struct {
	mu     sync.RWMutex
	items  map[int64]Item
	nextID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[int64]Item), nextID: 1}
}

func (s *MemoryStore) Create(_ context.Context, in Input) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.items[id] = Item{ID: id, Name: in.Name, Description: in.Description}
	return id, nil
}

// List returns items ordered by id.
func (s *MemoryStore) List(_ context.Context) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	slices.SortFunc(out, func(a, b Item) int { return int(a.ID - b.ID) })
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	return it, nil
}

func (s *MemoryStore) Update(_ context.Context, id int64, in Input) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	s.items[id] = Item{ID: id, Name: in.Name, Description: in.Description}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}
