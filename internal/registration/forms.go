package registration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"fieldreg/internal/form"
	"fieldreg/internal/platform/metrics"
	"fieldreg/internal/records"
	"fieldreg/pkg/platform/sentinel"
)

// ErrFormNotFound is returned for unknown, expired or foreign form ids.
var ErrFormNotFound = fmt.Errorf("form not found: %w", sentinel.ErrNotFound)

// Target says what a submit writes: a new record when ID is zero, a
// partial update of record ID otherwise.
type Target struct {
	ID        int64 `json:"id,omitempty"`
	ReplicaID int64 `json:"replica_id,omitempty"`
}

// Creates reports whether a submit creates a record.
func (t Target) Creates() bool { return t.ID == 0 }

type entry struct {
	id    string
	owner string
	form  *form.Form
	// replica is the event a participant form registers into.
	replica records.Replica

	// lastUsed is guarded by FormStore.mu.
	lastUsed time.Time

	// submit serializes submits of one form.
	submit sync.Mutex

	mu     sync.Mutex
	target Target
}

func (e *entry) getTarget() Target {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.target
}

func (e *entry) setTarget(t Target) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.target = t
}

// FormStore holds mounted forms between requests. Untouched forms expire
// after the idle TTL.
type FormStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	clock   func() time.Time
	metrics *metrics.Metrics
}

func NewFormStore(ttl time.Duration, m *metrics.Metrics) *FormStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &FormStore{
		entries: make(map[string]*entry),
		ttl:     ttl,
		clock:   time.Now,
		metrics: m,
	}
}

func (s *FormStore) put(owner string, target Target, f *form.Form, replica records.Replica) *entry {
	e := &entry{id: uuid.NewString(), owner: owner, target: target, form: f, replica: replica}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.lastUsed = s.clock()
	s.entries[e.id] = e
	s.metrics.SetFormSessions(len(s.entries))
	return e
}

// get returns the form id opened by owner and refreshes its idle timer.
func (s *FormStore) get(id, owner string) (*entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || e.owner != owner {
		return nil, ErrFormNotFound
	}
	e.lastUsed = s.clock()
	return e, nil
}

func (s *FormStore) remove(id, owner string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok || e.owner != owner {
		s.mu.Unlock()
		return ErrFormNotFound
	}
	delete(s.entries, id)
	s.metrics.SetFormSessions(len(s.entries))
	s.mu.Unlock()
	e.form.Close()
	return nil
}

// dropOwner closes every form opened under owner.
func (s *FormStore) dropOwner(owner string) int {
	return s.evict(func(e *entry) bool { return e.owner == owner })
}

// Sweep closes forms idle for longer than the TTL.
func (s *FormStore) Sweep() int {
	cutoff := s.clock().Add(-s.ttl)
	return s.evict(func(e *entry) bool { return e.lastUsed.Before(cutoff) })
}

func (s *FormStore) evict(match func(*entry) bool) int {
	s.mu.Lock()
	var closing []*entry
	for id, e := range s.entries {
		if match(e) {
			closing = append(closing, e)
			delete(s.entries, id)
		}
	}
	s.metrics.SetFormSessions(len(s.entries))
	s.mu.Unlock()
	for _, e := range closing {
		e.form.Close()
	}
	return len(closing)
}

// Len counts live forms.
func (s *FormStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Run sweeps on every tick until ctx ends, then closes every form.
func (s *FormStore) Run(ctx context.Context, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.evict(func(*entry) bool { return true })
			return nil
		case <-ticker.C:
			s.Sweep()
		}
	}
}
