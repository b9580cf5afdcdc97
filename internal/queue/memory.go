package queue

import (
	"container/heap"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// deliveryBuffer sizes each job type's delivery channel.
const deliveryBuffer = 256

// MemoryQueueConfig tunes the in-memory broker.
type MemoryQueueConfig struct {
	// RemoveOnComplete caps retained completed job records per job type.
	RemoveOnComplete int

	// RemoveOnFail caps retained failed job records per job type.
	RemoveOnFail int

	// StalledAfter is how long a job may stay active before the watchdog
	// reclaims it from its worker.
	StalledAfter time.Duration

	// StalledCheckInterval is how often the watchdog scans for stalled jobs.
	StalledCheckInterval time.Duration

	// Policies sets the retry budget per job type. Types without an entry
	// use DefaultRetryPolicy.
	Policies map[JobType]RetryPolicy
}

// DefaultMemoryQueueConfig returns a MemoryQueueConfig with reasonable defaults.
func DefaultMemoryQueueConfig() MemoryQueueConfig {
	return MemoryQueueConfig{
		RemoveOnComplete:     100,
		RemoveOnFail:         500,
		StalledAfter:         5 * time.Minute,
		StalledCheckInterval: 30 * time.Second,
	}
}

// typeState holds the per-job-type scheduling structures.
type typeState struct {
	ready     pendingHeap
	delivery  chan string
	completed []string // oldest first, capped by RemoveOnComplete
	failed    []string // oldest first, capped by RemoveOnFail
}

// MemoryQueue is the in-memory Broker implementation. It owns the
// authoritative in-process job records and mirrors every mutation to an
// optional JobStore for durability and post-restart recovery. It backs both
// local development and the test suite; the contract is broker-agnostic so
// a Redis-backed implementation can replace it without touching callers.
type MemoryQueue struct {
	cfg      MemoryQueueConfig
	notes    NoteChecker
	jobStore JobStore
	logger   *slog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	rng    *rand.Rand
	jobs   map[string]*Job
	states map[JobType]*typeState
	timers map[string]*time.Timer
	seq    uint64
	closed bool

	// onStalled is invoked (outside the lock) for each job the watchdog
	// terminally fails, letting the worker layer terminalize the note.
	onStalled func(ctx context.Context, job *Job)

	wg       sync.WaitGroup
	shutdown chan struct{}
}

// NewMemoryQueue creates the in-memory broker. notes and jobStore may be
// nil; a nil notes checker skips payload validation, a nil jobStore keeps
// records in memory only.
func NewMemoryQueue(
	cfg MemoryQueueConfig,
	notes NoteChecker,
	jobStore JobStore,
	logger *slog.Logger,
) *MemoryQueue {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StalledAfter <= 0 {
		cfg.StalledAfter = 5 * time.Minute
	}
	if cfg.StalledCheckInterval <= 0 {
		cfg.StalledCheckInterval = 30 * time.Second
	}

	q := &MemoryQueue{
		cfg:      cfg,
		notes:    notes,
		jobStore: jobStore,
		logger:   logger.With(slog.String("component", "memory_queue")),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		jobs:     make(map[string]*Job),
		states:   make(map[JobType]*typeState),
		timers:   make(map[string]*time.Timer),
		shutdown: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)

	for _, jobType := range []JobType{JobTypeTranscribe, JobTypeSummarize} {
		q.states[jobType] = &typeState{
			delivery: make(chan string, deliveryBuffer),
		}
	}

	return q
}

// SetStalledHandler registers the callback invoked when the watchdog
// terminally fails a stalled job. Must be called before Start.
func (q *MemoryQueue) SetStalledHandler(handler func(ctx context.Context, job *Job)) {
	q.onStalled = handler
}

// Start recovers persisted jobs (when a JobStore is configured) and begins
// dispatching and watching for stalled jobs.
func (q *MemoryQueue) Start(ctx context.Context) error {
	if err := q.recover(ctx); err != nil {
		return fmt.Errorf("failed to recover jobs: %w", err)
	}

	for jobType := range q.states {
		q.wg.Add(1)
		go q.dispatch(jobType)
	}

	q.wg.Add(1)
	go q.stalledMonitor()

	return nil
}

// Close stops delivery and releases resources. Safe to call once.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for _, timer := range q.timers {
		timer.Stop()
	}
	q.timers = make(map[string]*time.Timer)
	q.mu.Unlock()

	close(q.shutdown)
	q.cond.Broadcast()
	q.wg.Wait()

	for _, state := range q.states {
		close(state.delivery)
	}
	q.logger.Info("job queue closed")
}

// Enqueue implements Queue.
func (q *MemoryQueue) Enqueue(
	ctx context.Context,
	jobType JobType,
	payload any,
	opts EnqueueOptions,
) (string, error) {
	if !IsValidJobType(jobType) {
		return "", fmt.Errorf("%w: %s", ErrUnknownJobType, jobType)
	}

	var noteID uuid.UUID
	if ref, ok := payload.(NotePayload); ok {
		noteID = ref.NoteRef()
		if q.notes != nil {
			exists, err := q.notes.NoteExists(ctx, noteID)
			if err != nil {
				return "", fmt.Errorf("failed to verify note reference: %w", err)
			}
			if !exists {
				return "", fmt.Errorf("%w: %s", ErrUnknownNote, noteID)
			}
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job payload: %w", err)
	}

	jobID := opts.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	policy, ok := q.cfg.Policies[jobType]
	if !ok {
		policy = DefaultRetryPolicy()
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return "", ErrQueueClosed
	}

	if existing, found := q.jobs[jobID]; found {
		switch existing.Status {
		case JobStatusPending, JobStatusActive:
			// Idempotent re-enqueue: the job already owns this identity.
			q.mu.Unlock()
			q.logger.Debug("enqueue absorbed by existing job",
				slog.String("job_id", jobID),
				slog.String("job_type", string(jobType)))
			return jobID, nil
		default:
			// Explicit re-enqueue of a finished job resets its attempt
			// budget and re-delivers (user-triggered retry after failure).
			q.dropFromRetentionLocked(existing)
			delete(q.jobs, jobID)
		}
	}

	now := time.Now().UTC()
	job := &Job{
		ID:          jobID,
		Type:        jobType,
		NoteID:      noteID,
		Status:      JobStatusPending,
		Attempts:    0,
		MaxAttempts: policy.MaxAttempts,
		Priority:    opts.Priority,
		Payload:     raw,
		CreatedAt:   now,
		NotBefore:   now.Add(opts.Delay),
	}
	q.jobs[jobID] = job

	if opts.Delay > 0 {
		q.scheduleLocked(job, opts.Delay)
	} else {
		q.pushReadyLocked(job)
	}

	snapshot := job.clone()
	q.mu.Unlock()

	if q.jobStore != nil {
		if err := q.jobStore.SaveJob(ctx, snapshot); err != nil {
			return "", fmt.Errorf("failed to persist job record: %w", err)
		}
	}

	q.logger.Info("job enqueued",
		slog.String("job_id", jobID),
		slog.String("job_type", string(jobType)),
		slog.String("note_id", noteID.String()),
		slog.Int("priority", opts.Priority))

	return jobID, nil
}

// Job implements Queue.
func (q *MemoryQueue) Job(_ context.Context, jobType JobType, jobID string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, found := q.jobs[jobID]
	if !found || job.Type != jobType {
		return nil, fmt.Errorf("%w: %s/%s", ErrJobNotFound, jobType, jobID)
	}
	return job.clone(), nil
}

// Stats implements Queue.
func (q *MemoryQueue) Stats(_ context.Context, jobType JobType) (Stats, error) {
	if !IsValidJobType(jobType) {
		return Stats{}, fmt.Errorf("%w: %s", ErrUnknownJobType, jobType)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now().UTC()
	var stats Stats
	for _, job := range q.jobs {
		if job.Type != jobType {
			continue
		}
		switch job.Status {
		case JobStatusPending:
			if job.NotBefore.After(now) {
				stats.Delayed++
			} else {
				stats.Waiting++
			}
		case JobStatusActive:
			stats.Active++
		case JobStatusCompleted:
			stats.Completed++
		case JobStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// Cancel implements Queue. Only pending jobs are removed; cancelling a job
// that is already active or finished returns false.
func (q *MemoryQueue) Cancel(ctx context.Context, jobType JobType, jobID string) bool {
	q.mu.Lock()

	job, found := q.jobs[jobID]
	if !found || job.Type != jobType || job.Status != JobStatusPending {
		q.mu.Unlock()
		return false
	}

	delete(q.jobs, jobID)
	if timer, ok := q.timers[jobID]; ok {
		timer.Stop()
		delete(q.timers, jobID)
	}
	// The heap entry, if any, is left behind; dispatch skips IDs that no
	// longer resolve to a pending job.
	q.mu.Unlock()

	if q.jobStore != nil {
		if err := q.jobStore.DeleteJob(ctx, jobID); err != nil {
			q.logger.Error("failed to delete cancelled job record",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()))
		}
	}

	q.logger.Info("job cancelled",
		slog.String("job_id", jobID),
		slog.String("job_type", string(jobType)))
	return true
}

// HealthCheck implements Queue. For the in-memory broker reachability is
// lock acquisition; a Redis-backed broker would ping here instead.
func (q *MemoryQueue) HealthCheck(_ context.Context) Health {
	start := time.Now()
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()

	status := "ok"
	if closed {
		status = "closed"
	}
	return Health{Status: status, Latency: time.Since(start)}
}

// Channel implements Consumer.
func (q *MemoryQueue) Channel(jobType JobType) <-chan string {
	return q.states[jobType].delivery
}

// Acquire implements Consumer.
func (q *MemoryQueue) Acquire(ctx context.Context, jobType JobType, jobID string) (*Job, bool, error) {
	q.mu.Lock()

	job, found := q.jobs[jobID]
	if !found || job.Type != jobType || job.Status != JobStatusPending {
		// Duplicate delivery, cancellation, or a concurrent worker won the
		// claim. The caller aborts without side effects.
		q.mu.Unlock()
		return nil, false, nil
	}

	now := time.Now().UTC()
	job.Status = JobStatusActive
	job.Attempts++
	job.StartedAt = &now
	job.Progress = 0
	snapshot := job.clone()
	q.mu.Unlock()

	q.persistUpdate(ctx, snapshot)
	return snapshot, true, nil
}

// Complete implements Consumer.
func (q *MemoryQueue) Complete(ctx context.Context, jobType JobType, jobID string) error {
	q.mu.Lock()

	job, found := q.jobs[jobID]
	if !found || job.Type != jobType {
		q.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", ErrJobNotFound, jobType, jobID)
	}
	if job.Status != JobStatusActive {
		// Replayed completion for a job the queue no longer considers
		// active; idempotent handlers make this safe to absorb.
		q.mu.Unlock()
		return nil
	}

	now := time.Now().UTC()
	job.Status = JobStatusCompleted
	job.CompletedAt = &now
	job.Progress = 100
	job.LastError = ""

	state := q.states[jobType]
	state.completed = append(state.completed, jobID)
	removed := q.trimRetentionLocked(&state.completed, q.cfg.RemoveOnComplete)

	snapshot := job.clone()
	q.mu.Unlock()

	q.persistUpdate(ctx, snapshot)
	q.deleteRecords(ctx, removed)

	q.logger.Info("job completed",
		slog.String("job_id", jobID),
		slog.String("job_type", string(jobType)),
		slog.Int("attempts", snapshot.Attempts))
	return nil
}

// Fail implements Consumer.
func (q *MemoryQueue) Fail(
	ctx context.Context,
	jobType JobType,
	jobID string,
	cause error,
) (bool, error) {
	causeMsg := "unknown failure"
	if cause != nil {
		causeMsg = cause.Error()
	}

	q.mu.Lock()

	job, found := q.jobs[jobID]
	if !found || job.Type != jobType {
		q.mu.Unlock()
		return false, fmt.Errorf("%w: %s/%s", ErrJobNotFound, jobType, jobID)
	}
	if job.Status != JobStatusActive {
		q.mu.Unlock()
		return false, nil
	}

	job.LastError = causeMsg

	if job.Attempts < job.MaxAttempts {
		delay := q.backoffLocked(job)
		job.Status = JobStatusPending
		job.StartedAt = nil
		job.NotBefore = time.Now().UTC().Add(delay)
		q.scheduleLocked(job, delay)

		snapshot := job.clone()
		q.mu.Unlock()

		q.persistUpdate(ctx, snapshot)
		q.logger.Warn("job attempt failed, retrying with backoff",
			slog.String("job_id", jobID),
			slog.String("job_type", string(jobType)),
			slog.Int("attempt", snapshot.Attempts),
			slog.Int("max_attempts", snapshot.MaxAttempts),
			slog.Duration("delay", delay),
			slog.String("error", causeMsg))
		return true, nil
	}

	now := time.Now().UTC()
	job.Status = JobStatusFailed
	job.CompletedAt = &now

	state := q.states[jobType]
	state.failed = append(state.failed, jobID)
	removed := q.trimRetentionLocked(&state.failed, q.cfg.RemoveOnFail)

	snapshot := job.clone()
	q.mu.Unlock()

	q.persistUpdate(ctx, snapshot)
	q.deleteRecords(ctx, removed)

	q.logger.Error("job terminally failed",
		slog.String("job_id", jobID),
		slog.String("job_type", string(jobType)),
		slog.Int("attempts", snapshot.Attempts),
		slog.String("error", causeMsg))
	return false, nil
}

// ReportProgress implements Consumer. Progress is advisory only.
func (q *MemoryQueue) ReportProgress(ctx context.Context, jobType JobType, jobID string, progress int) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	q.mu.Lock()
	job, found := q.jobs[jobID]
	if !found || job.Type != jobType || job.Status != JobStatusActive {
		q.mu.Unlock()
		return
	}
	job.Progress = progress
	snapshot := job.clone()
	q.mu.Unlock()

	q.persistUpdate(ctx, snapshot)
}

// AnnotateProvider implements Consumer. It records which backend executed
// the job on the shadow record.
func (q *MemoryQueue) AnnotateProvider(ctx context.Context, jobType JobType, jobID, providerName string) {
	q.mu.Lock()
	job, found := q.jobs[jobID]
	if !found || job.Type != jobType {
		q.mu.Unlock()
		return
	}
	job.Provider = providerName
	snapshot := job.clone()
	q.mu.Unlock()

	q.persistUpdate(ctx, snapshot)
}

// recover reloads persisted jobs after a restart, requeuing pending jobs
// and resetting jobs left active by a crashed worker.
func (q *MemoryQueue) recover(ctx context.Context) error {
	if q.jobStore == nil {
		return nil
	}

	pending, err := q.jobStore.ListJobsByStatus(ctx, JobStatusPending)
	if err != nil {
		return fmt.Errorf("failed to list pending jobs: %w", err)
	}
	active, err := q.jobStore.ListJobsByStatus(ctx, JobStatusActive)
	if err != nil {
		return fmt.Errorf("failed to list active jobs: %w", err)
	}

	q.logger.Info("recovering unfinished jobs",
		slog.Int("pending_count", len(pending)),
		slog.Int("active_count", len(active)))

	q.mu.Lock()
	for _, job := range pending {
		q.adoptLocked(job.clone())
	}
	for _, job := range active {
		reset := job.clone()
		reset.Status = JobStatusPending
		reset.StartedAt = nil
		q.adoptLocked(reset)
	}
	q.mu.Unlock()

	for _, job := range active {
		reset := job.clone()
		reset.Status = JobStatusPending
		reset.StartedAt = nil
		q.persistUpdate(ctx, reset)
	}

	return nil
}

// adoptLocked inserts a recovered job and schedules its delivery.
func (q *MemoryQueue) adoptLocked(job *Job) {
	if !IsValidJobType(job.Type) {
		q.logger.Error("dropping recovered job of unknown type",
			slog.String("job_id", job.ID),
			slog.String("job_type", string(job.Type)))
		return
	}
	q.jobs[job.ID] = job
	if delay := time.Until(job.NotBefore); delay > 0 {
		q.scheduleLocked(job, delay)
	} else {
		q.pushReadyLocked(job)
	}
}

// dispatch moves ready job IDs from the heap to the delivery channel for
// one job type.
func (q *MemoryQueue) dispatch(jobType JobType) {
	defer q.wg.Done()

	state := q.states[jobType]
	for {
		q.mu.Lock()
		for len(state.ready) == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			return
		}
		item := heap.Pop(&state.ready).(heapItem)
		job, found := q.jobs[item.id]
		if !found || job.Status != JobStatusPending {
			// Cancelled or superseded while queued; skip.
			q.mu.Unlock()
			continue
		}
		q.mu.Unlock()

		select {
		case state.delivery <- item.id:
		case <-q.shutdown:
			return
		}
	}
}

// stalledMonitor periodically reclaims jobs whose worker stopped reporting,
// rescheduling them while attempts remain and terminally failing them
// otherwise.
func (q *MemoryQueue) stalledMonitor() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.cfg.StalledCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.shutdown:
			return
		case <-ticker.C:
			q.reclaimStalled(context.Background())
		}
	}
}

// reclaimStalled fails every active job older than the stall threshold.
func (q *MemoryQueue) reclaimStalled(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-q.cfg.StalledAfter)

	q.mu.Lock()
	var stalled []*Job
	for _, job := range q.jobs {
		if job.Status == JobStatusActive && job.StartedAt != nil && job.StartedAt.Before(cutoff) {
			stalled = append(stalled, job.clone())
		}
	}
	q.mu.Unlock()

	for _, job := range stalled {
		q.logger.Warn("reclaiming stalled job",
			slog.String("job_id", job.ID),
			slog.String("job_type", string(job.Type)),
			slog.Int("attempts", job.Attempts))

		retrying, err := q.Fail(ctx, job.Type, job.ID, ErrJobStalled)
		if err != nil {
			q.logger.Error("failed to reclaim stalled job",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()))
			continue
		}
		if !retrying && q.onStalled != nil {
			terminal, err := q.Job(ctx, job.Type, job.ID)
			if err != nil {
				terminal = job
			}
			q.onStalled(ctx, terminal)
		}
	}
}

// pushReadyLocked makes the job visible to dispatch. Caller holds the lock.
func (q *MemoryQueue) pushReadyLocked(job *Job) {
	q.seq++
	state := q.states[job.Type]
	heap.Push(&state.ready, heapItem{id: job.ID, priority: job.Priority, seq: q.seq})
	q.cond.Broadcast()
}

// scheduleLocked arms a timer that makes the job ready after the delay.
// Caller holds the lock.
func (q *MemoryQueue) scheduleLocked(job *Job, delay time.Duration) {
	jobID := job.ID
	if existing, ok := q.timers[jobID]; ok {
		existing.Stop()
	}
	q.timers[jobID] = time.AfterFunc(delay, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.timers, jobID)
		if q.closed {
			return
		}
		job, found := q.jobs[jobID]
		if !found || job.Status != JobStatusPending {
			return
		}
		q.pushReadyLocked(job)
	})
}

// backoffLocked computes the retry delay for the job's next attempt:
// exponential from the policy base with jitter between 0.5x and 1.0x.
// Caller holds the lock.
func (q *MemoryQueue) backoffLocked(job *Job) time.Duration {
	policy, ok := q.cfg.Policies[job.Type]
	if !ok {
		policy = DefaultRetryPolicy()
	}

	backoff := float64(policy.BackoffInitial) * math.Pow(2, float64(job.Attempts-1))
	jitter := 0.5 + q.rng.Float64()*0.5
	return time.Duration(backoff * jitter)
}

// trimRetentionLocked drops the oldest retained IDs beyond the cap,
// removing their records from the in-memory map. Returns the dropped IDs
// so the caller can delete the durable records outside the lock. A cap of
// zero disables retention (records drop immediately on completion).
func (q *MemoryQueue) trimRetentionLocked(ids *[]string, limit int) []string {
	if limit < 0 || len(*ids) <= limit {
		return nil
	}
	drop := len(*ids) - limit
	removed := append([]string(nil), (*ids)[:drop]...)
	*ids = (*ids)[drop:]
	for _, id := range removed {
		delete(q.jobs, id)
	}
	return removed
}

// dropFromRetentionLocked removes the job from its retention list when a
// finished job is explicitly re-enqueued. Caller holds the lock.
func (q *MemoryQueue) dropFromRetentionLocked(job *Job) {
	state := q.states[job.Type]
	lists := []*[]string{&state.completed, &state.failed}
	for _, list := range lists {
		for i, id := range *list {
			if id == job.ID {
				*list = append((*list)[:i], (*list)[i+1:]...)
				return
			}
		}
	}
}

// persistUpdate mirrors a job mutation to the durable store. The in-memory
// record is authoritative; persistence failures are logged and do not fail
// the operation.
func (q *MemoryQueue) persistUpdate(ctx context.Context, job *Job) {
	if q.jobStore == nil {
		return
	}
	if err := q.jobStore.UpdateJob(ctx, job); err != nil {
		q.logger.Error("failed to persist job update",
			slog.String("job_id", job.ID),
			slog.String("status", string(job.Status)),
			slog.String("error", err.Error()))
	}
}

// deleteRecords removes garbage-collected job records from the durable store.
func (q *MemoryQueue) deleteRecords(ctx context.Context, ids []string) {
	if q.jobStore == nil {
		return
	}
	for _, id := range ids {
		if err := q.jobStore.DeleteJob(ctx, id); err != nil {
			q.logger.Error("failed to delete expired job record",
				slog.String("job_id", id),
				slog.String("error", err.Error()))
		}
	}
}

// Ensure MemoryQueue satisfies both sides of the broker contract.
var _ Broker = (*MemoryQueue)(nil)
