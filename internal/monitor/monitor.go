package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/ctpipe/uploadq/internal/api/dto"
	"github.com/ctpipe/uploadq/internal/poller"
	"github.com/ctpipe/uploadq/internal/queue"
)

// Intervals configures the three polling cadences and the shared fetch
// timeout.
type Intervals struct {
	Queue        time.Duration
	Stats        time.Duration
	Platforms    time.Duration
	FetchTimeout time.Duration
}

// Monitor reconciles the backend's state into three independent local
// views, one polling loop per data category. The loops share nothing:
// each owns its view slice exclusively, and no loop blocks another.
type Monitor struct {
	logger *slog.Logger

	queuePoller     *poller.Poller[dto.QueueResponse]
	statsPoller     *poller.Poller[queue.Stats]
	platformsPoller *poller.Poller[dto.PlatformsResponse]
}

// New wires the three pollers to the fetcher. Nothing runs until Start.
func New(fetcher Fetcher, intervals Intervals, logger *slog.Logger) *Monitor {
	return &Monitor{
		logger:          logger,
		queuePoller:     poller.New("queue", intervals.Queue, intervals.FetchTimeout, fetcher.FetchQueue, logger),
		statsPoller:     poller.New("stats", intervals.Stats, intervals.FetchTimeout, fetcher.FetchStats, logger),
		platformsPoller: poller.New("platforms", intervals.Platforms, intervals.FetchTimeout, fetcher.FetchPlatforms, logger),
	}
}

// Start launches all three loops.
func (m *Monitor) Start() {
	m.queuePoller.Start()
	m.statsPoller.Start()
	m.platformsPoller.Start()
}

// Stop tears all loops down. No reconciliation is observable after it
// returns.
func (m *Monitor) Stop() {
	m.queuePoller.Stop()
	m.statsPoller.Stop()
	m.platformsPoller.Stop()
}

// Refetch triggers an immediate poll of every category.
func (m *Monitor) Refetch() {
	m.queuePoller.Refetch()
	m.statsPoller.Refetch()
	m.platformsPoller.Refetch()
}

// QueueView returns the queue category's current view state.
func (m *Monitor) QueueView() poller.View[dto.QueueResponse] {
	return m.queuePoller.Snapshot()
}

// StatsView returns the stats category's current view state.
func (m *Monitor) StatsView() poller.View[queue.Stats] {
	return m.statsPoller.Snapshot()
}

// PlatformsView returns the platform category's current view state.
func (m *Monitor) PlatformsView() poller.View[dto.PlatformsResponse] {
	return m.platformsPoller.Snapshot()
}

// Run starts the loops and logs a one-line summary of each view until
// the context is cancelled.
func (m *Monitor) Run(ctx context.Context, renderEvery time.Duration) {
	if renderEvery <= 0 {
		renderEvery = 10 * time.Second
	}

	m.Start()
	defer m.Stop()

	ticker := time.NewTicker(renderEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.render()
		}
	}
}

func (m *Monitor) render() {
	if view := m.QueueView(); view.Data != nil {
		counts := make(map[string]int)
		for _, job := range view.Data.Jobs {
			counts[job.Status]++
		}
		m.logger.Info("Queue",
			slog.Int("jobs", view.Data.Count),
			slog.Int("queued", counts[queue.StatusQueued]),
			slog.Int("uploading", counts[queue.StatusUploading]),
			slog.Int("completed", counts[queue.StatusCompleted]),
			slog.Int("failed", counts[queue.StatusFailed]),
			slog.Int("cancelled", counts[queue.StatusCancelled]),
			slog.String("error", view.Error),
		)
	} else if view.Error != "" {
		m.logger.Warn("Queue unavailable", slog.String("error", view.Error))
	}

	if view := m.StatsView(); view.Data != nil {
		m.logger.Info("Stats",
			slog.Int("total", view.Data.TotalUploads),
			slog.Int("successful", view.Data.SuccessfulUploads),
			slog.Int("failed", view.Data.FailedUploads),
			slog.Int64("views", view.Data.TotalViews),
			slog.Int64("engagement", view.Data.TotalEngagement),
		)
	}

	if view := m.PlatformsView(); view.Data != nil {
		connected := 0
		for _, p := range view.Data.Platforms {
			if p.Connected {
				connected++
			}
		}
		m.logger.Info("Platforms",
			slog.Int("connected", connected),
			slog.Int("total", view.Data.Count),
		)
	}
}
