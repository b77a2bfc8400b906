package eventlog

import (
	"context"
	"sort"
	"sync"

	"github.com/telhawk-systems/homeids/internal/models"
)

// MemoryStore is an in-process Store guarded by a mutex.
type MemoryStore struct {
	mu     sync.RWMutex
	events []models.LogEvent
	nextID int64
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) Append(_ context.Context, e *models.LogEvent) error {
	if err := validate(e); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	e.ID = s.nextID
	s.nextID++
	s.events = append(s.events, *e)
	return nil
}

func (s *MemoryStore) Query(_ context.Context, f Filter) ([]models.LogEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	out := make([]models.LogEvent, 0, len(s.events))
	for i := range s.events {
		if f.matches(&s.events[i]) {
			out = append(out, s.events[i])
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Clear drops all records. IDs keep increasing across clears.
func (s *MemoryStore) Clear(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	n := int64(len(s.events))
	s.events = nil
	return n, nil
}

func (s *MemoryStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
