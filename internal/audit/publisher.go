package audit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"fieldreg/internal/platform/metrics"
	"fieldreg/pkg/requestcontext"
)

const defaultBuffer = 256

// Publisher stamps events with request metadata and queues them for the
// Worker. Emit never blocks: when the queue is full the event is dropped and
// counted, so a slow sink cannot stall a form submission.
type Publisher struct {
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	inbox  chan Event
	closed bool
}

// Option configures a Publisher.
type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func NewPublisher(buffer int, opts ...Option) *Publisher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	p := &Publisher{
		logger: slog.Default(),
		inbox:  make(chan Event, buffer),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Emit queues an event. A nil Publisher discards it.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Client == (requestcontext.ClientInfo{}) {
		event.Client = requestcontext.Client(ctx)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.inbox <- event:
		p.metrics.IncrementAudit("queued")
	default:
		p.metrics.IncrementAudit("dropped")
		p.logger.WarnContext(ctx, "audit queue full, event dropped",
			"action", event.Action,
			"ambassador_id", event.AmbassadorID,
		)
	}
}

// Inbox is the queue a Worker drains.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}

// Close stops accepting events and lets the Worker finish the queue.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
}
