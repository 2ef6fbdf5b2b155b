package catalog

import (
	"context"
	"sync"
)

type MemStore struct {
	mu    sync.RWMutex
	books []Record
	saves int
}

func NewMemStore(seed ...Record) *MemStore {
	return &MemStore{books: append([]Record(nil), seed...)}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Close() error { return nil }

func (s *MemStore) Load(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.books))
	copy(out, s.books)
	return out, nil
}

func (s *MemStore) Save(ctx context.Context, books []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.books = append(s.books[:0:0], books...)
	s.saves++
	return nil
}

// Saves reports how many times the table was rewritten.
func (s *MemStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
