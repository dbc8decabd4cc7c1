package queue

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is the in-memory Store implementation. A single RWMutex
// serializes all mutations, which is stronger than the required per-job
// ordering; reads copy under the read lock so they observe a single
// consistent state without blocking each other.
type MemoryStore struct {
	mu      sync.RWMutex
	jobs    map[string]*Job
	order   []string
	maxSize int64
	logger  *slog.Logger
}

// NewMemoryStore creates an empty store. maxSize bounds the artifact
// size accepted by Create; zero disables the check.
func NewMemoryStore(maxSize int64, logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		jobs:    make(map[string]*Job),
		maxSize: maxSize,
		logger:  logger,
	}
}

func (s *MemoryStore) Create(_ context.Context, req CreateRequest) (Job, error) {
	if err := ValidateCreate(req, s.maxSize); err != nil {
		return Job{}, err
	}

	now := nowUTC()
	job := &Job{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Platforms:   append([]string(nil), req.Platforms...),
		Filename:    req.Filename,
		Size:        req.Size,
		Status:      StatusQueued,
		Progress:    0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	s.mu.Unlock()

	s.logger.Info("Job created",
		slog.String("job_id", job.ID),
		slog.String("title", job.Title),
		slog.Any("platforms", job.Platforms),
		slog.Int64("size", job.Size),
	)

	return job.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(), nil
}

// listLocked copies all jobs in insertion order. Callers hold at least
// the read lock.
func (s *MemoryStore) listLocked() []Job {
	jobs := make([]Job, 0, len(s.order))
	for _, id := range s.order {
		jobs = append(jobs, s.jobs[id].Clone())
	}
	return jobs
}

func (s *MemoryStore) ApplyProgress(_ context.Context, id string, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}

	if IsTerminal(job.Status) {
		// Benign race: a late progress update arrived after the job
		// was finalized. Logged, never surfaced.
		s.logger.Debug("Progress update ignored for terminal job",
			slog.String("job_id", id),
			slog.String("status", job.Status),
			slog.Int("progress", progress),
		)
		return nil
	}

	job.Status = StatusUploading
	if p := ClampProgress(progress); p > job.Progress {
		job.Progress = p
	}
	job.UpdatedAt = nowUTC()
	return nil
}

func (s *MemoryStore) Complete(_ context.Context, id string) (Job, error) {
	return s.finalize(id, StatusCompleted, "")
}

func (s *MemoryStore) Fail(_ context.Context, id string, reason string) (Job, error) {
	return s.finalize(id, StatusFailed, reason)
}

func (s *MemoryStore) Cancel(_ context.Context, id string) (Job, error) {
	return s.finalize(id, StatusCancelled, "")
}

// finalize applies a terminal transition. Terminal states are absorbing:
// once reached, no command changes status, progress, or error.
func (s *MemoryStore) finalize(id, status, reason string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	if IsTerminal(job.Status) {
		return Job{}, ErrInvalidState
	}

	job.Status = status
	job.Error = reason
	if status == StatusCompleted {
		job.Progress = 100
	}
	job.UpdatedAt = nowUTC()

	s.logger.Info("Job finalized",
		slog.String("job_id", id),
		slog.String("status", status),
	)

	return job.Clone(), nil
}

func (s *MemoryStore) Snapshot(_ context.Context) (Snapshot, error) {
	s.mu.RLock()
	jobs := s.listLocked()
	s.mu.RUnlock()

	return Snapshot{
		Jobs:  jobs,
		Stats: ComputeStats(jobs, nowUTC()),
	}, nil
}
