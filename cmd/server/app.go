package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/voxnote/voxnote-api/internal/audit"
	"github.com/voxnote/voxnote-api/internal/config"
	"github.com/voxnote/voxnote-api/internal/lifecycle"
	"github.com/voxnote/voxnote-api/internal/platform/blob"
	"github.com/voxnote/voxnote-api/internal/platform/logger"
	"github.com/voxnote/voxnote-api/internal/platform/postgres"
	"github.com/voxnote/voxnote-api/internal/provider"
	"github.com/voxnote/voxnote-api/internal/provider/factory"
	"github.com/voxnote/voxnote-api/internal/queue"
	"github.com/voxnote/voxnote-api/internal/redact"
	"github.com/voxnote/voxnote-api/internal/service"
	"github.com/voxnote/voxnote-api/internal/worker"
)

// application owns every long-lived component and their shutdown order.
type application struct {
	cfg    *config.Config
	logger *slog.Logger

	db       *sql.DB
	broker   *queue.MemoryQueue
	kafka    *audit.KafkaPublisher
	stt      provider.STTProvider
	llm      provider.LLMProvider
	pools    []*worker.Pool
	pipeline *service.PipelineService
}

// newApplication wires the pipeline bottom-up: config, logging, database
// and migrations, stores, providers, queue, lifecycle machine, audit
// sinks, handlers, pools, and finally the producer-facing service.
func newApplication(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	db, err := openDatabase(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(db, log); err != nil {
		_ = db.Close()
		return nil, err
	}

	app := &application{cfg: cfg, logger: log, db: db}
	if err := app.wire(ctx); err != nil {
		_ = db.Close()
		app.shutdown()
		return nil, err
	}
	return app, nil
}

func (app *application) wire(ctx context.Context) error {
	cfg, log := app.cfg, app.logger

	noteStore := postgres.NewPostgresNoteStore(app.db, log)
	mediaStore := postgres.NewPostgresMediaStore(app.db, log)
	transcriptStore := postgres.NewPostgresTranscriptStore(app.db, log)
	summaryStore := postgres.NewPostgresSummaryStore(app.db, log)
	auditStore := postgres.NewPostgresAuditStore(app.db, log)
	jobStore := postgres.NewPostgresJobStore(app.db, log)

	blobStore, err := blob.NewFSStore(cfg.Blob.Root, log)
	if err != nil {
		return fmt.Errorf("failed to open blob storage: %w", err)
	}

	stt, err := factory.STT(cfg.STT, log)
	if err != nil {
		return fmt.Errorf("failed to construct STT provider: %w", err)
	}
	app.stt = stt

	llm, err := factory.LLM(ctx, cfg.LLM, log)
	if err != nil {
		return fmt.Errorf("failed to construct LLM provider: %w", err)
	}
	app.llm = llm

	sinks := []audit.Sink{audit.NewStoreSink(auditStore)}
	if cfg.Audit.KafkaEnabled {
		app.kafka = audit.NewKafkaPublisher(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		sinks = append(sinks, app.kafka)
	}
	sink := audit.NewFanOut(log, sinks...)

	machine, err := lifecycle.NewMachine(noteStore, sink, log)
	if err != nil {
		return fmt.Errorf("failed to construct lifecycle machine: %w", err)
	}

	app.broker = queue.NewMemoryQueue(queue.MemoryQueueConfig{
		RemoveOnComplete:     cfg.Queue.RemoveOnComplete,
		RemoveOnFail:         cfg.Queue.RemoveOnFail,
		StalledAfter:         cfg.Queue.StalledAfter,
		StalledCheckInterval: cfg.Queue.StalledCheckInterval,
		Policies: map[queue.JobType]queue.RetryPolicy{
			queue.JobTypeTranscribe: {
				MaxAttempts:    cfg.Workers.Transcribe.MaxAttempts,
				BackoffInitial: cfg.Workers.Transcribe.BackoffInitial,
			},
			queue.JobTypeSummarize: {
				MaxAttempts:    cfg.Workers.Summarize.MaxAttempts,
				BackoffInitial: cfg.Workers.Summarize.BackoffInitial,
			},
		},
	}, noteStore, jobStore, log)

	transcribeHandler, err := worker.NewTranscribeHandler(
		machine, mediaStore, blobStore, transcriptStore,
		stt, app.broker, sink, cfg.Workers.Transcribe, log)
	if err != nil {
		return fmt.Errorf("failed to construct transcribe handler: %w", err)
	}
	summarizeHandler, err := worker.NewSummarizeHandler(
		machine, transcriptStore, summaryStore,
		llm, app.broker, cfg.Workers.Summarize, log)
	if err != nil {
		return fmt.Errorf("failed to construct summarize handler: %w", err)
	}

	// The watchdog terminally fails stalled jobs; route them through the
	// owning handler so the note lands in its error state as well.
	app.broker.SetStalledHandler(func(ctx context.Context, job *queue.Job) {
		recordStalled(ctx, sink, log, job)
		switch job.Type {
		case queue.JobTypeTranscribe:
			transcribeHandler.OnExhausted(ctx, job, queue.ErrJobStalled)
		case queue.JobTypeSummarize:
			summarizeHandler.OnExhausted(ctx, job, queue.ErrJobStalled)
		}
	})

	transcribePool, err := worker.NewPool(app.broker, transcribeHandler, cfg.Workers.Transcribe, log)
	if err != nil {
		return fmt.Errorf("failed to construct transcribe pool: %w", err)
	}
	summarizePool, err := worker.NewPool(app.broker, summarizeHandler, cfg.Workers.Summarize, log)
	if err != nil {
		return fmt.Errorf("failed to construct summarize pool: %w", err)
	}
	app.pools = []*worker.Pool{transcribePool, summarizePool}

	app.pipeline, err = service.NewPipelineService(
		machine, noteStore, mediaStore, transcriptStore, app.broker, sink, log)
	if err != nil {
		return fmt.Errorf("failed to construct pipeline service: %w", err)
	}
	return nil
}

// start brings the broker and pools online. Recovery of persisted pending
// jobs happens inside the broker before the pools begin consuming.
func (app *application) start(ctx context.Context) {
	if err := app.broker.Start(ctx); err != nil {
		app.logger.Error("job recovery failed, continuing with empty queue",
			slog.String("error", err.Error()))
	}
	for _, pool := range app.pools {
		pool.Start(ctx)
	}
}

// shutdown releases components in reverse dependency order: pools drain
// first so no worker touches a closed broker or database.
func (app *application) shutdown() {
	for _, pool := range app.pools {
		pool.Stop()
	}
	if app.broker != nil {
		app.broker.Close()
	}
	if closer, ok := app.stt.(interface{ Close() }); ok && closer != nil {
		closer.Close()
	}
	if app.kafka != nil {
		if err := app.kafka.Close(); err != nil {
			app.logger.Warn("failed to close kafka publisher",
				slog.String("error", err.Error()))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn("failed to close database",
				slog.String("error", err.Error()))
		}
	}
}

// openDatabase connects with the pgx stdlib driver and verifies
// connectivity before wiring anything on top of it.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %s", redact.Error(err))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		// The driver error may echo the connection string; keep
		// credentials out of the log and the wrapped error.
		return nil, fmt.Errorf("failed to ping database: %s", redact.Error(err))
	}

	log.Info("database connection established")
	return db, nil
}
