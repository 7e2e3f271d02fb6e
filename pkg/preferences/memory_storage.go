package preferences

import (
	"context"
	"sync"
)

// MemoryStorage is an in-memory implementation of Storage for development
// and testing.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string]*Preferences
}

// NewMemoryStorage creates an empty in-memory preferences store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: make(map[string]*Preferences)}
}

func (s *MemoryStorage) Get(ctx context.Context, userID string) (*Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (s *MemoryStorage) Create(ctx context.Context, prefs *Preferences) error {
	if prefs.UserID == "" {
		return ErrMissingUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[prefs.UserID]; ok {
		return ErrAlreadyExists
	}
	rec := *prefs
	s.records[prefs.UserID] = &rec
	return nil
}

func (s *MemoryStorage) Update(ctx context.Context, prefs *Preferences) error {
	if prefs.UserID == "" {
		return ErrMissingUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := *prefs
	s.records[prefs.UserID] = &rec
	return nil
}
