package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// FetchFunc retrieves one snapshot of a data category.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// View is the consumer-facing state of one polling loop. Data is nil
// until the first successful fetch; after a failure the last good data
// is retained alongside the error string.
type View[T any] struct {
	Data        *T
	Loading     bool
	Error       string
	LastUpdated time.Time
}

// Poller runs one repeating fetch-and-reconcile loop for a single data
// category. Ticks are strictly sequential: a new fetch never starts
// before the prior tick's reconciliation finished, so there is never
// more than one fetch in flight per category.
type Poller[T any] struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	fetch    FetchFunc[T]
	logger   *slog.Logger

	mu      sync.RWMutex
	view    View[T]
	stopped bool

	cancel    context.CancelFunc
	done      chan struct{}
	refetchCh chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a poller. The fetch timeout is bounded below the interval
// so a hung request cannot overlap the next tick.
func New[T any](name string, interval, timeout time.Duration, fetch FetchFunc[T], logger *slog.Logger) *Poller[T] {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if timeout <= 0 || timeout >= interval {
		timeout = interval * 8 / 10
	}
	return &Poller[T]{
		name:      name,
		interval:  interval,
		timeout:   timeout,
		fetch:     fetch,
		logger:    logger,
		refetchCh: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Start launches the loop with an immediate first tick. It returns
// right away.
func (p *Poller[T]) Start() {
	p.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		go p.loop(ctx)
	})
}

// Stop tears the loop down. After Stop returns no further
// reconciliation is observable, even when a fetch is still outstanding
// at the network layer; its eventual resolution is discarded.
func (p *Poller[T]) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()
		if p.cancel != nil {
			p.cancel()
		}
	})
}

// Refetch requests an immediate tick. It goes through the same
// fetch-and-reconcile path as the scheduled ticks and coalesces with an
// already pending request.
func (p *Poller[T]) Refetch() {
	select {
	case p.refetchCh <- struct{}{}:
	default:
	}
}

// Snapshot returns the current view. The data pointer is shared with
// the poller and must be treated as read-only.
func (p *Poller[T]) Snapshot() View[T] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.view
}

// Done is closed once the loop goroutine has exited.
func (p *Poller[T]) Done() <-chan struct{} {
	return p.done
}

func (p *Poller[T]) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		case <-p.refetchCh:
			p.tick(ctx)
		}
	}
}

// tick performs one fetch and reconciles the result. Both the scheduled
// and the manual paths land here, on the loop goroutine, so responses
// from two fetches can never mix into one state update.
func (p *Poller[T]) tick(ctx context.Context) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.view.Loading = true
	p.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	data, err := p.fetch(fetchCtx)
	cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	// A resolution arriving after teardown is discarded: the exposed
	// view stays exactly as it was before the fetch resolved.
	if p.stopped {
		return
	}

	p.view.Loading = false
	if err != nil {
		// Keep the last known data; a failed poll is retried on the
		// next scheduled tick.
		p.view.Error = err.Error()
		p.logger.Warn("Poll failed",
			slog.String("category", p.name),
			slog.Any("error", err),
		)
		return
	}

	p.view.Data = &data
	p.view.Error = ""
	p.view.LastUpdated = time.Now()
}
