package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ctpipe/uploadq/internal/notify"
	"github.com/ctpipe/uploadq/internal/platform"
	"github.com/ctpipe/uploadq/internal/queue"
)

// Config holds upload pool configuration.
type Config struct {
	Logger        *slog.Logger
	Store         queue.Store
	Uploaders     map[string]platform.Uploader
	Notifier      notify.Notifier
	Concurrency   int
	QueueCapacity int
	JobTimeout    time.Duration
}

// Pool executes queued upload jobs. A fixed set of goroutines drains the
// jobs channel; each job is pushed to its target platforms in order,
// with progress written back to the store and mirrored on the push
// channel.
type Pool struct {
	logger      *slog.Logger
	store       queue.Store
	uploaders   map[string]platform.Uploader
	notifier    notify.Notifier
	concurrency int
	jobTimeout  time.Duration
	jobsChan    chan string
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

// NewPool creates a pool; Start must be called before Enqueue.
func NewPool(cfg *Config) *Pool {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}
	capacity := cfg.QueueCapacity
	if capacity <= 0 {
		capacity = 64
	}
	jobTimeout := cfg.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = 10 * time.Minute
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}

	return &Pool{
		logger:      cfg.Logger,
		store:       cfg.Store,
		uploaders:   cfg.Uploaders,
		notifier:    notifier,
		concurrency: concurrency,
		jobTimeout:  jobTimeout,
		jobsChan:    make(chan string, capacity),
		stopChan:    make(chan struct{}),
	}
}

// Start spawns the worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("Spawning upload pool",
		slog.Int("concurrency", p.concurrency),
		slog.Duration("job_timeout", p.jobTimeout),
	)

	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.workerLoop(ctx, i)
	}
}

// Stop drains the pool and waits for in-flight jobs to settle.
func (p *Pool) Stop() {
	p.logger.Info("Stopping upload pool...")
	close(p.stopChan)
	p.wg.Wait()
	p.logger.Info("Upload pool stopped")
}

// Enqueue hands a created job to the pool. It never blocks: a full
// queue is reported to the caller and the job stays queued in the store.
func (p *Pool) Enqueue(jobID string) error {
	select {
	case p.jobsChan <- jobID:
		return nil
	default:
		return fmt.Errorf("upload queue is at capacity")
	}
}

func (p *Pool) workerLoop(ctx context.Context, workerNum int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ctx.Done():
			return
		case jobID := <-p.jobsChan:
			p.logger.Info("Worker picked up job",
				slog.Int("worker_num", workerNum),
				slog.String("job_id", jobID),
			)
			p.process(ctx, jobID)
		}
	}
}

func (p *Pool) process(ctx context.Context, jobID string) {
	job, err := p.store.Get(ctx, jobID)
	if err != nil {
		p.logger.Warn("Enqueued job no longer exists",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
		return
	}

	// A job cancelled before a worker reached it needs no work.
	if job.Status != queue.StatusQueued {
		p.logger.Info("Skipping job not in queued state",
			slog.String("job_id", jobID),
			slog.String("status", job.Status),
		)
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()

	total := len(job.Platforms)
	for i, target := range job.Platforms {
		uploader, ok := p.uploaders[target]
		if !ok {
			p.finishFailed(ctx, jobID, fmt.Sprintf("no uploader registered for platform %q", target))
			return
		}

		platformIndex := i
		err := uploader.Upload(jobCtx, job.Filename, job.Size, func(pct int) {
			overall := (platformIndex*100 + pct) / total
			p.reportProgress(ctx, jobID, overall, cancel)
		})
		if err != nil {
			// Cancellation arrives as a context error after the store
			// already holds the terminal status.
			if current, gerr := p.store.Get(ctx, jobID); gerr == nil && queue.IsTerminal(current.Status) {
				p.logger.Info("Upload aborted, job already finalized",
					slog.String("job_id", jobID),
					slog.String("status", current.Status),
				)
				return
			}
			p.finishFailed(ctx, jobID, err.Error())
			return
		}
	}

	done, err := p.store.Complete(ctx, jobID)
	if err != nil {
		if errors.Is(err, queue.ErrInvalidState) {
			p.logger.Info("Job finalized elsewhere before completion",
				slog.String("job_id", jobID),
			)
		} else {
			p.logger.Error("Failed to mark job completed",
				slog.String("job_id", jobID),
				slog.Any("error", err),
			)
		}
		return
	}

	p.notifier.Publish(ctx, notify.Event{
		Type:    notify.EventUploadCompleted,
		JobID:   jobID,
		Payload: done,
	})
}

// reportProgress writes a progress step back to the store and mirrors it
// on the push channel. When the job turns out to be terminal the upload
// context is cancelled so the transfer stops.
func (p *Pool) reportProgress(ctx context.Context, jobID string, overall int, cancel context.CancelFunc) {
	if err := p.store.ApplyProgress(ctx, jobID, overall); err != nil {
		p.logger.Debug("Progress update not applied",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
		return
	}

	current, err := p.store.Get(ctx, jobID)
	if err != nil || queue.IsTerminal(current.Status) {
		cancel()
		return
	}

	p.notifier.Publish(ctx, notify.Event{
		Type:    notify.EventUploadProgress,
		JobID:   jobID,
		Payload: current.Progress,
	})
}

func (p *Pool) finishFailed(ctx context.Context, jobID, reason string) {
	failed, err := p.store.Fail(ctx, jobID, reason)
	if err != nil {
		if errors.Is(err, queue.ErrInvalidState) {
			p.logger.Debug("Failure raced with another terminal transition",
				slog.String("job_id", jobID),
			)
		} else {
			p.logger.Error("Failed to mark job failed",
				slog.String("job_id", jobID),
				slog.Any("error", err),
			)
		}
		return
	}

	p.logger.Error("Upload failed",
		slog.String("job_id", jobID),
		slog.String("reason", reason),
	)

	p.notifier.Publish(ctx, notify.Event{
		Type:    notify.EventUploadFailed,
		JobID:   jobID,
		Payload: failed.Error,
	})
}
