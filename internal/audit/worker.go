package audit

import (
	"context"
	"log/slog"

	"fieldreg/internal/platform/metrics"
)

// Worker consumes audit events from a channel and appends them to a Sink.
// A failing sink is logged and counted; the worker keeps going.
type Worker struct {
	sink    Sink
	inbox   <-chan Event
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger, m *metrics.Metrics) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{sink: sink, inbox: inbox, logger: logger, metrics: m}
}

// Run returns nil once the inbox is closed and drained, or ctx.Err() when
// the context ends first.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			w.append(ctx, event)
		}
	}
}

func (w *Worker) append(ctx context.Context, event Event) {
	if err := w.sink.Append(ctx, event); err != nil {
		w.metrics.IncrementAudit("failed")
		w.logger.ErrorContext(ctx, "failed to append audit event",
			"event_id", event.ID,
			"action", event.Action,
			"error", err,
		)
		return
	}
	w.metrics.IncrementAudit("written")
}
