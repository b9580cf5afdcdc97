package queue

import (
	"context"
	"errors"
)

// Common errors returned by the queue.
var (
	// ErrQueueClosed is returned when an operation hits a closed queue.
	ErrQueueClosed = errors.New("job queue is closed")

	// ErrUnknownJobType is returned for a job type the queue does not serve.
	ErrUnknownJobType = errors.New("unknown job type")

	// ErrUnknownNote is returned when an enqueued payload references a note
	// that does not exist. Validation failures never enter the queue.
	ErrUnknownNote = errors.New("payload references unknown note")

	// ErrJobNotFound is returned when the requested job does not exist
	// (possibly garbage-collected past the retention window).
	ErrJobNotFound = errors.New("job not found")

	// ErrJobStalled marks a job the watchdog reclaimed from a worker that
	// stopped reporting.
	ErrJobStalled = errors.New("job stalled beyond threshold")
)

// Queue is the producer-facing contract of the job broker. Any broker
// (in-memory, Redis-backed, managed) can satisfy it; tests run against the
// in-memory implementation.
type Queue interface {
	// Enqueue persists a typed job and schedules it for delivery.
	// The payload's note reference must exist. Returns the job's durable ID;
	// when opts.JobID names an existing pending/active job the call is
	// idempotent and returns that ID.
	Enqueue(ctx context.Context, jobType JobType, payload any, opts EnqueueOptions) (string, error)

	// Job returns a snapshot of the job record.
	Job(ctx context.Context, jobType JobType, jobID string) (*Job, error)

	// Stats summarizes queue depth for one job type.
	Stats(ctx context.Context, jobType JobType) (Stats, error)

	// Cancel removes a pending job. Cancelling an active or finished job is
	// a tolerated no-op returning false; cancellation races are expected.
	Cancel(ctx context.Context, jobType JobType, jobID string) bool

	// HealthCheck reports broker reachability and dispatch latency.
	HealthCheck(ctx context.Context) Health

	// Close stops delivery and releases broker resources.
	Close()
}

// Consumer is the worker-facing contract of the job broker. Delivery is
// at-least-once: a job ID read from Channel must be claimed via Acquire
// before any side effect, and exactly one of Complete or Fail reported
// afterwards, making retry-versus-terminal an explicit control-flow branch
// in the worker.
type Consumer interface {
	// Channel delivers ready job IDs for one job type.
	Channel(jobType JobType) <-chan string

	// Acquire claims a delivered job, marking it active and incrementing
	// its attempt counter. ok=false means the claim was lost (duplicate
	// delivery, cancellation, or a concurrent worker); the caller must
	// abort without side effects.
	Acquire(ctx context.Context, jobType JobType, jobID string) (job *Job, ok bool, err error)

	// Complete marks an acquired job successfully finished.
	Complete(ctx context.Context, jobType JobType, jobID string) error

	// Fail records a failed attempt. When attempts remain the job is
	// rescheduled with exponential backoff and retrying=true is returned;
	// otherwise the job is terminally failed.
	Fail(ctx context.Context, jobType JobType, jobID string, cause error) (retrying bool, err error)

	// ReportProgress records an advisory completion percentage.
	ReportProgress(ctx context.Context, jobType JobType, jobID string, progress int)

	// AnnotateProvider records which backend executed the job.
	AnnotateProvider(ctx context.Context, jobType JobType, jobID, providerName string)
}

// Broker combines both sides of the queue contract.
type Broker interface {
	Queue
	Consumer
}
