package queue

import (
	"context"
	"time"
)

// Snapshot is a consistent point-in-time view of the store: the stats
// aggregate is computed from the same read as the job list.
type Snapshot struct {
	Jobs  []Job
	Stats Stats
}

// Store is the single source of truth for job records. Implementations
// must serialize mutations per job id: two concurrent commands against
// the same job resolve to exactly one outcome.
type Store interface {
	// Create validates the request and inserts a new record with
	// status queued and progress 0. It returns a snapshot copy.
	Create(ctx context.Context, req CreateRequest) (Job, error)

	// Get returns a copy of the job, or ErrNotFound.
	Get(ctx context.Context, id string) (Job, error)

	// List returns copies of all jobs in insertion order, oldest first.
	List(ctx context.Context) ([]Job, error)

	// ApplyProgress moves a queued job to uploading on first call and
	// raises its progress. Progress never decreases. Against a terminal
	// job it is a logged no-op: a late progress update racing a
	// finalized job is benign.
	ApplyProgress(ctx context.Context, id string, progress int) error

	// Complete, Fail, and Cancel transition the job into a terminal
	// state and return the updated record. Each returns ErrNotFound for
	// an unknown id and ErrInvalidState when the job is already
	// terminal, leaving it unchanged.
	Complete(ctx context.Context, id string) (Job, error)
	Fail(ctx context.Context, id string, reason string) (Job, error)
	Cancel(ctx context.Context, id string) (Job, error)

	// Snapshot returns the jobs and the stats aggregate from a single
	// consistent read.
	Snapshot(ctx context.Context) (Snapshot, error)
}

// ValidateCreate enforces the field rules shared by every Store
// implementation.
func ValidateCreate(req CreateRequest, maxSize int64) error {
	if req.Title == "" {
		return NewValidationError("title", "must not be empty")
	}
	if len(req.Platforms) == 0 {
		return NewValidationError("platforms", "at least one target platform is required")
	}
	if req.Size < 0 {
		return NewValidationError("size", "must not be negative")
	}
	if maxSize > 0 && req.Size > maxSize {
		return ErrArtifactTooLarge
	}
	return nil
}

// ClampProgress keeps progress inside 0..100.
func ClampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
