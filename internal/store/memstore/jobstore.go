package memstore

import (
	"context"
	"sync"

	"github.com/voxnote/voxnote-api/internal/queue"
)

// JobStore is the in-memory queue.JobStore used by tests and dev mode.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]queue.Job
}

// NewJobStore creates an empty in-memory job store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]queue.Job)}
}

var _ queue.JobStore = (*JobStore)(nil)

// SaveJob implements queue.JobStore.
func (s *JobStore) SaveJob(ctx context.Context, job *queue.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

// UpdateJob implements queue.JobStore.
func (s *JobStore) UpdateJob(ctx context.Context, job *queue.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.jobs[job.ID]; !found {
		return queue.ErrJobNotFound
	}
	s.jobs[job.ID] = *job
	return nil
}

// GetJob implements queue.JobStore.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (*queue.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, found := s.jobs[jobID]
	if !found {
		return nil, queue.ErrJobNotFound
	}
	copied := job
	return &copied, nil
}

// ListJobsByStatus implements queue.JobStore.
func (s *JobStore) ListJobsByStatus(ctx context.Context, status queue.JobStatus) ([]*queue.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*queue.Job
	for id := range s.jobs {
		job := s.jobs[id]
		if job.Status == status {
			copied := job
			matched = append(matched, &copied)
		}
	}
	return matched, nil
}

// DeleteJob implements queue.JobStore.
func (s *JobStore) DeleteJob(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
	return nil
}
