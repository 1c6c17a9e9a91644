package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
)

// DefaultCapacity bounds the in-memory history; the oldest events are
// dropped once it is exceeded.
const DefaultCapacity = 1000

// EventStore is an in-memory, bounded implementation of
// storage.EscalationEventRepository. It is the default backend when no
// database is configured.
type EventStore struct {
	mu       sync.RWMutex
	events   []*domain.Event
	capacity int
}

// NewEventStore creates a store bounded at capacity events (DefaultCapacity
// when capacity <= 0).
func NewEventStore(capacity int) *EventStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &EventStore{capacity: capacity}
}

func (s *EventStore) Append(ctx context.Context, event *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)
	if len(s.events) > s.capacity {
		s.events = s.events[len(s.events)-s.capacity:]
	}
	return nil
}

// Recent returns up to limit events, most-recent-first.
func (s *EventStore) Recent(ctx context.Context, limit int) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}
	out := make([]*domain.Event, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

func (s *EventStore) Since(ctx context.Context, cutoff time.Time) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Event
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Timestamp.Before(cutoff) {
			break
		}
		out = append(out, s.events[i])
	}
	return out, nil
}

func (s *EventStore) CountSince(
	ctx context.Context,
	cutoff time.Time,
	min domain.Level,
) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Timestamp.Before(cutoff) {
			break
		}
		if s.events[i].Level >= min {
			count++
		}
	}
	return count, nil
}

func (s *EventStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	return nil
}
