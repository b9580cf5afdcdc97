package audit

import (
	"context"
	"log/slog"

	"github.com/voxnote/voxnote-api/internal/domain"
)

// Sink receives audit events. Implementations must be safe for concurrent
// use; recording is observational and must never gate pipeline progress.
type Sink interface {
	// Record appends one event. A non-nil error signals the sink itself
	// failed; callers are expected to log and move on.
	Record(ctx context.Context, event *domain.AuditEvent) error
}

// FanOut broadcasts each event to every configured sink. Individual sink
// failures are logged and swallowed so one slow or broken sink cannot
// stall the pipeline or hide another sink's events.
type FanOut struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewFanOut creates a fan-out sink over the given sinks.
func NewFanOut(logger *slog.Logger, sinks ...Sink) *FanOut {
	if logger == nil {
		logger = slog.Default()
	}
	return &FanOut{
		sinks:  sinks,
		logger: logger.With(slog.String("component", "audit_fanout")),
	}
}

// Record implements Sink.
func (f *FanOut) Record(ctx context.Context, event *domain.AuditEvent) error {
	for i, sink := range f.sinks {
		if err := sink.Record(ctx, event); err != nil {
			f.logger.Error("audit sink failed to record event",
				slog.Int("sink_index", i),
				slog.String("event_id", event.ID.String()),
				slog.String("event_type", string(event.Type)),
				slog.String("error", err.Error()))
		}
	}
	return nil
}
