package audit

import (
	"context"
	"sync"
)

// Sink persists audit events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// MemorySink keeps events in memory, grouped by ambassador.
type MemorySink struct {
	mu     sync.RWMutex
	events map[int64][]Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{events: make(map[int64][]Event)}
}

func (s *MemorySink) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.AmbassadorID] = append(s.events[event.AmbassadorID], event)
	return nil
}

func (s *MemorySink) ListByAmbassador(_ context.Context, ambassadorID int64) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[ambassadorID]...), nil
}

// Len counts every stored event.
func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, evs := range s.events {
		n += len(evs)
	}
	return n
}
