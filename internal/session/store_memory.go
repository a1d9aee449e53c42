package session

import (
	"context"
	"sync"
)

// MemoryStore keeps actors in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	actors map[string]Actor
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{actors: make(map[string]Actor)}
}

func (s *MemoryStore) Load(_ context.Context, id string) (Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actors[id]
	if !ok {
		return Actor{}, ErrNoActor
	}
	return a, nil
}

func (s *MemoryStore) Save(_ context.Context, id string, a Actor) error {
	if id == "" {
		return ErrEmptySessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actors[id] = a
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.actors, id)
	return nil
}
