package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voxnote/voxnote-api/internal/config"
	"github.com/voxnote/voxnote-api/internal/queue"
)

// Handler executes one job type. Handle is called once per delivery
// attempt; a nil return completes the job, a non-nil return counts one
// failed attempt. OnExhausted runs after the final attempt fails and is
// the handler's chance to move the note into its error state.
type Handler interface {
	// Type names the job type this handler consumes.
	Type() queue.JobType

	// Provider names the backend the handler runs jobs against, recorded
	// on the job for observability.
	Provider() string

	// Handle executes the job. The context carries the attempt's logger
	// and correlation ID.
	Handle(ctx context.Context, job *queue.Job) error

	// OnExhausted is invoked when the job's retry budget is spent.
	OnExhausted(ctx context.Context, job *queue.Job, cause error)
}

// Pool runs a fixed number of workers against one job type's delivery
// channel, gated by an optional sliding-window rate limit shared across
// the workers.
type Pool struct {
	consumer queue.Consumer
	handler  Handler
	limiter  *slidingWindowLimiter
	size     int
	logger   *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewPool creates a worker pool for the handler's job type. Concurrency
// and rate limit come from cfg; a RateLimitPerMinute of zero disables
// limiting.
func NewPool(consumer queue.Consumer, handler Handler, cfg config.WorkerConfig, logger *slog.Logger) (*Pool, error) {
	if consumer == nil {
		return nil, fmt.Errorf("consumer cannot be nil")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	size := cfg.Concurrency
	if size <= 0 {
		size = 1
	}
	return &Pool{
		consumer: consumer,
		handler:  handler,
		limiter:  newSlidingWindowLimiter(cfg.RateLimitPerMinute, time.Minute),
		size:     size,
		logger:   logger.With("component", "worker_pool", "job_type", handler.Type()),
	}, nil
}

// Start launches the workers. They run until Stop is called or the
// delivery channel closes.
func (p *Pool) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	ch := p.consumer.Channel(p.handler.Type())
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.run(runCtx, ch, i)
	}
	p.logger.Info("worker pool started", "concurrency", p.size)
}

// Stop signals the workers and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *Pool) run(ctx context.Context, ch <-chan string, workerID int) {
	defer p.wg.Done()
	log := p.logger.With("worker_id", workerID)

	for {
		select {
		case <-ctx.Done():
			return
		case jobID, open := <-ch:
			if !open {
				return
			}
			if err := p.limiter.Wait(ctx); err != nil {
				// Shutdown while waiting for a rate slot. The job was
				// never acquired and stays pending in the job store;
				// recovery on the next start redelivers it.
				return
			}
			p.process(ctx, log, jobID)
		}
	}
}

// process claims and executes one delivered job. Failures are routed
// through Fail so the queue owns the retry-versus-terminal decision;
// only a terminal failure reaches the handler's OnExhausted hook.
func (p *Pool) process(ctx context.Context, log *slog.Logger, jobID string) {
	jobType := p.handler.Type()

	job, ok, err := p.consumer.Acquire(ctx, jobType, jobID)
	if err != nil {
		log.Error("failed to acquire job", "job_id", jobID, "error", err)
		return
	}
	if !ok {
		// Lost the claim to cancellation or a duplicate delivery; abort
		// before any side effect.
		log.Debug("job claim lost, skipping", "job_id", jobID)
		return
	}

	log = log.With("job_id", job.ID, "note_id", job.NoteID, "attempt", job.Attempts)
	p.consumer.AnnotateProvider(ctx, jobType, job.ID, p.handler.Provider())

	log.Info("job started")
	start := time.Now()

	handleErr := p.handler.Handle(ctx, job)
	if handleErr == nil {
		if err := p.consumer.Complete(ctx, jobType, job.ID); err != nil {
			log.Error("failed to mark job completed", "error", err)
		}
		log.Info("job completed", "duration_ms", time.Since(start).Milliseconds())
		return
	}

	log.Warn("job attempt failed", "error", handleErr, "duration_ms", time.Since(start).Milliseconds())

	retrying, failErr := p.consumer.Fail(ctx, jobType, job.ID, handleErr)
	if failErr != nil {
		log.Error("failed to record job failure", "error", failErr)
		return
	}
	if retrying {
		log.Info("job scheduled for retry")
		return
	}

	log.Error("job retry budget exhausted", "error", handleErr)
	p.handler.OnExhausted(ctx, job, handleErr)
}
