package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType identifies which pipeline stage a job executes.
type JobType string

// Job types processed by the pipeline.
const (
	JobTypeTranscribe JobType = "transcribe"
	JobTypeSummarize  JobType = "summarize"
)

// IsValidJobType checks if the given type is a known JobType.
func IsValidJobType(jobType JobType) bool {
	return jobType == JobTypeTranscribe || jobType == JobTypeSummarize
}

// JobStatus represents the current state of a job.
type JobStatus string

// Possible job status values. A pending job whose NotBefore lies in the
// future is reported as delayed in Stats but stored as pending.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is the durable shadow record of one stage execution for one note.
// It is created on enqueue and mutated only by the queue and the worker
// pool, never by the CRUD layer.
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	NoteID      uuid.UUID       `json:"note_id"`
	Status      JobStatus       `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Priority    int             `json:"priority"`
	Payload     []byte          `json:"payload"`
	Provider    string          `json:"provider,omitempty"`
	Progress    int             `json:"progress"`
	LastError   string          `json:"last_error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	NotBefore   time.Time       `json:"not_before"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// clone returns a copy safe to hand outside the queue's lock.
func (j *Job) clone() *Job {
	copied := *j
	if j.StartedAt != nil {
		startedAt := *j.StartedAt
		copied.StartedAt = &startedAt
	}
	if j.CompletedAt != nil {
		completedAt := *j.CompletedAt
		copied.CompletedAt = &completedAt
	}
	copied.Payload = append([]byte(nil), j.Payload...)
	return &copied
}

// JobOptions carries optional provider settings through a job payload.
type JobOptions struct {
	Language string `json:"language,omitempty"`
	Model    string `json:"model,omitempty"`
}

// TranscribeJobData is the wire payload of a transcribe job.
type TranscribeJobData struct {
	NoteID     uuid.UUID   `json:"noteId"`
	MediaID    uuid.UUID   `json:"mediaId"`
	StorageKey string      `json:"storageKey"`
	UserID     uuid.UUID   `json:"userId"`
	Options    *JobOptions `json:"options,omitempty"`
}

// NoteRef implements NotePayload.
func (d TranscribeJobData) NoteRef() uuid.UUID { return d.NoteID }

// SummarizeJobData is the wire payload of a summarize job.
type SummarizeJobData struct {
	NoteID         uuid.UUID   `json:"noteId"`
	TranscriptID   uuid.UUID   `json:"transcriptId"`
	TranscriptText string      `json:"transcriptText"`
	UserID         uuid.UUID   `json:"userId"`
	Options        *JobOptions `json:"options,omitempty"`
}

// NoteRef implements NotePayload.
func (d SummarizeJobData) NoteRef() uuid.UUID { return d.NoteID }

// DeterministicJobID builds the canonical job identity for a (type, note)
// pair. Enqueueing with this ID guarantees at most one pending or active
// job per stage per note.
func DeterministicJobID(jobType JobType, noteID uuid.UUID) string {
	return string(jobType) + ":" + noteID.String()
}

// NotePayload is implemented by job payloads that reference a note, letting
// the queue verify the reference on enqueue.
type NotePayload interface {
	NoteRef() uuid.UUID
}

// EnqueueOptions tunes one enqueue call.
type EnqueueOptions struct {
	// Priority orders delivery within a job type; higher runs first.
	Priority int

	// Delay postpones the job's first delivery.
	Delay time.Duration

	// JobID supplies a caller-chosen durable identity. When a job with
	// this ID is already pending or active the enqueue is idempotent and
	// returns the existing ID.
	JobID string
}

// Stats summarizes one job type's queue depth by state.
type Stats struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Delayed   int `json:"delayed"`
}

// Health reports broker reachability for the health-check collaborator.
type Health struct {
	Status  string        `json:"status"`
	Latency time.Duration `json:"latency"`
}

// RetryPolicy is the per-job-type retry budget and backoff base.
type RetryPolicy struct {
	MaxAttempts    int
	BackoffInitial time.Duration
}

// DefaultRetryPolicy returns the default policy: 3 attempts, exponential
// backoff starting at 2 seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BackoffInitial: 2 * time.Second,
	}
}
