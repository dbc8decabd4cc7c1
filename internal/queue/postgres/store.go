package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ctpipe/uploadq/internal/queue"
	"github.com/ctpipe/uploadq/shared/postgresql"
)

const schema = `
	CREATE TABLE IF NOT EXISTS upload_jobs (
		seq           BIGSERIAL PRIMARY KEY,
		job_id        UUID NOT NULL UNIQUE,
		title         TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		platforms     TEXT[] NOT NULL,
		filename      TEXT NOT NULL,
		size_bytes    BIGINT NOT NULL,
		status        TEXT NOT NULL,
		progress      INT NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_upload_jobs_status ON upload_jobs (status);
`

// Store is the Postgres-backed queue.Store. Per-job serialization comes
// from conditional UPDATEs: a transition only lands when the row is
// still in a non-terminal state, so two racing commands resolve to
// exactly one winner inside the database.
type Store struct {
	db      *sqlx.DB
	maxSize int64
	logger  *slog.Logger
}

var _ queue.Store = (*Store)(nil)

// NewStore builds a store over an established client and creates the
// schema if it does not exist yet.
func NewStore(ctx context.Context, pg *postgresql.Client, maxSize int64, logger *slog.Logger) (*Store, error) {
	db := pg.GetDB()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return &Store{db: db, maxSize: maxSize, logger: logger}, nil
}

// jobRow mirrors the upload_jobs table.
type jobRow struct {
	JobID       string         `db:"job_id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Platforms   pq.StringArray `db:"platforms"`
	Filename    string         `db:"filename"`
	Size        int64          `db:"size_bytes"`
	Status      string         `db:"status"`
	Progress    int            `db:"progress"`
	Error       string         `db:"error_message"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r jobRow) toJob() queue.Job {
	return queue.Job{
		ID:          r.JobID,
		Title:       r.Title,
		Description: r.Description,
		Platforms:   []string(r.Platforms),
		Filename:    r.Filename,
		Size:        r.Size,
		Status:      r.Status,
		Progress:    r.Progress,
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

const selectColumns = `
	job_id, title, description, platforms, filename,
	size_bytes, status, progress, error_message, created_at, updated_at
`

func (s *Store) Create(ctx context.Context, req queue.CreateRequest) (queue.Job, error) {
	if err := queue.ValidateCreate(req, s.maxSize); err != nil {
		return queue.Job{}, err
	}

	now := time.Now().UTC()
	job := queue.Job{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Platforms:   append([]string(nil), req.Platforms...),
		Filename:    req.Filename,
		Size:        req.Size,
		Status:      queue.StatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := `
		INSERT INTO upload_jobs (
			job_id, title, description, platforms, filename,
			size_bytes, status, progress, error_message, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, '', $8, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		job.ID, job.Title, job.Description, pq.StringArray(job.Platforms),
		job.Filename, job.Size, job.Status, now,
	)
	if err != nil {
		return queue.Job{}, fmt.Errorf("failed to create job: %w", err)
	}

	return job, nil
}

func (s *Store) Get(ctx context.Context, id string) (queue.Job, error) {
	var row jobRow
	query := `SELECT ` + selectColumns + ` FROM upload_jobs WHERE job_id = $1`

	err := s.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return queue.Job{}, queue.ErrNotFound
		}
		return queue.Job{}, fmt.Errorf("failed to get job: %w", err)
	}

	return row.toJob(), nil
}

func (s *Store) List(ctx context.Context) ([]queue.Job, error) {
	return s.list(ctx, s.db)
}

type queryer interface {
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func (s *Store) list(ctx context.Context, q queryer) ([]queue.Job, error) {
	var rows []jobRow
	query := `SELECT ` + selectColumns + ` FROM upload_jobs ORDER BY seq ASC`

	if err := q.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	jobs := make([]queue.Job, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, row.toJob())
	}
	return jobs, nil
}

func (s *Store) ApplyProgress(ctx context.Context, id string, progress int) error {
	progress = queue.ClampProgress(progress)

	// Only non-terminal rows move; progress never decreases.
	query := `
		UPDATE upload_jobs
		SET status = $1,
		    progress = GREATEST(progress, $2),
		    updated_at = NOW()
		WHERE job_id = $3 AND status IN ($4, $1)
	`
	result, err := s.db.ExecContext(ctx, query,
		queue.StatusUploading, progress, id, queue.StatusQueued)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		// Terminal job: a late progress update is benign.
		s.logger.Debug("Progress update ignored for finalized job",
			slog.String("job_id", id),
			slog.Int("progress", progress),
		)
	}
	return nil
}

func (s *Store) Complete(ctx context.Context, id string) (queue.Job, error) {
	return s.finalize(ctx, id, queue.StatusCompleted, "", true)
}

func (s *Store) Fail(ctx context.Context, id string, reason string) (queue.Job, error) {
	return s.finalize(ctx, id, queue.StatusFailed, reason, false)
}

func (s *Store) Cancel(ctx context.Context, id string) (queue.Job, error) {
	return s.finalize(ctx, id, queue.StatusCancelled, "", false)
}

// finalize moves a non-terminal job into a terminal state. The status
// guard in the WHERE clause is what arbitrates concurrent commands.
func (s *Store) finalize(ctx context.Context, id, status, reason string, fullProgress bool) (queue.Job, error) {
	query := `
		UPDATE upload_jobs
		SET status = $1,
		    error_message = $2,
		    progress = CASE WHEN $3 THEN 100 ELSE progress END,
		    updated_at = NOW()
		WHERE job_id = $4 AND status IN ($5, $6)
		RETURNING ` + selectColumns

	var row jobRow
	err := s.db.QueryRowxContext(ctx, query,
		status, reason, fullProgress, id,
		queue.StatusQueued, queue.StatusUploading,
	).StructScan(&row)
	if err == nil {
		return row.toJob(), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return queue.Job{}, fmt.Errorf("failed to finalize job: %w", err)
	}

	// No row moved: either the job does not exist or it is already
	// terminal. Distinguish with a plain read.
	if _, getErr := s.Get(ctx, id); getErr != nil {
		return queue.Job{}, getErr
	}
	return queue.Job{}, queue.ErrInvalidState
}

func (s *Store) Snapshot(ctx context.Context) (queue.Snapshot, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
	if err != nil {
		return queue.Snapshot{}, fmt.Errorf("failed to begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	jobs, err := s.list(ctx, tx)
	if err != nil {
		return queue.Snapshot{}, err
	}
	if err := tx.Commit(); err != nil {
		return queue.Snapshot{}, fmt.Errorf("failed to commit snapshot tx: %w", err)
	}

	return queue.Snapshot{
		Jobs:  jobs,
		Stats: queue.ComputeStats(jobs, time.Now().UTC()),
	}, nil
}
