package queue

import "time"

// Job status constants
const (
	StatusQueued    = "queued"
	StatusUploading = "uploading"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// IsTerminal reports whether a status has no outgoing transitions.
func IsTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Job represents one requested content upload. The store owns the
// authoritative record; callers only ever receive copies.
type Job struct {
	ID          string    `json:"id" db:"job_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Platforms   []string  `json:"platforms"`
	Filename    string    `json:"filename" db:"filename"`
	Size        int64     `json:"size" db:"size_bytes"`
	Status      string    `json:"status" db:"status"`
	Progress    int       `json:"progress" db:"progress"`
	Error       string    `json:"error,omitempty" db:"error_message"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Clone returns a deep copy of the job. Platform slices are never shared
// between the store and callers.
func (j Job) Clone() Job {
	dup := j
	if len(j.Platforms) > 0 {
		dup.Platforms = make([]string, len(j.Platforms))
		copy(dup.Platforms, j.Platforms)
	}
	return dup
}

// CreateRequest carries the validated fields of an upload submission.
type CreateRequest struct {
	Title       string
	Description string
	Platforms   []string
	Filename    string
	Size        int64
}
