package notification

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStorage is an in-memory implementation of Storage. Suitable for
// development and testing; production deployments use MongoStorage.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string]*Notification // id -> record
	byUser  map[string][]string      // userID -> ids, insertion order
}

// NewMemoryStorage creates an empty in-memory notification store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*Notification),
		byUser:  make(map[string][]string),
	}
}

func (s *MemoryStorage) Create(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		return ErrMissingID
	}
	if n.UserID == "" {
		return ErrMissingUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	// Store a copy to prevent external mutation of stored data.
	rec := *n
	s.records[n.ID] = &rec
	s.byUser[n.UserID] = append(s.byUser[n.UserID], n.ID)
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, id string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (s *MemoryStorage) Update(ctx context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[n.ID]; !ok {
		return ErrNotFound
	}
	rec := *n
	s.records[n.ID] = &rec
	return nil
}

func (s *MemoryStorage) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []Notification
	for _, id := range s.byUser[userID] {
		rec := s.records[id]
		if opts.Channel != "" && rec.Channel != opts.Channel {
			continue
		}
		if opts.OnlyUnread && rec.ReadAt != nil {
			continue
		}
		filtered = append(filtered, *rec)
	}

	// Newest first.
	slices.SortStableFunc(filtered, func(a, b Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	start := opts.Offset
	if start > len(filtered) {
		return []Notification{}, nil
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], nil
}

func (s *MemoryStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, id := range s.byUser[userID] {
		rec := s.records[id]
		if rec.Channel == ChannelInApp && rec.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStorage) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var modified int64
	for _, id := range s.byUser[userID] {
		rec := s.records[id]
		if rec.Channel != ChannelInApp || rec.ReadAt != nil {
			continue
		}
		if err := rec.MarkRead(); err != nil {
			continue // still pending or failed, not readable yet
		}
		modified++
	}
	return modified, nil
}

func (s *MemoryStorage) ListDue(ctx context.Context, now time.Time) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []Notification
	for _, rec := range s.records {
		if rec.IsDue(now) {
			due = append(due, *rec)
		}
	}
	return due, nil
}

func (s *MemoryStorage) ListRetryable(ctx context.Context, maxRetries int) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Notification
	for _, rec := range s.records {
		if rec.Status == StatusFailed && rec.RetryCount < maxRetries {
			out = append(out, *rec)
		}
	}
	return out, nil
}
