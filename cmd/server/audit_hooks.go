package main

import (
	"context"
	"log/slog"

	"github.com/voxnote/voxnote-api/internal/audit"
	"github.com/voxnote/voxnote-api/internal/domain"
	"github.com/voxnote/voxnote-api/internal/queue"
)

// recordStalled appends the job_stalled audit event when the watchdog
// reclaims a job whose worker stopped reporting.
func recordStalled(ctx context.Context, sink audit.Sink, log *slog.Logger, job *queue.Job) {
	event, err := domain.NewAuditEvent(domain.AuditJobStalled, job.NoteID, audit.CorrelationID(ctx), map[string]any{
		"job_id":   job.ID,
		"job_type": string(job.Type),
		"attempts": job.Attempts,
	})
	if err != nil {
		log.Warn("failed to build stalled audit event", slog.String("error", err.Error()))
		return
	}
	if err := sink.Record(ctx, event); err != nil {
		log.Warn("failed to record stalled audit event",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()))
	}
}
