package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/ctpipe/uploadq/internal/platform"
	"github.com/ctpipe/uploadq/internal/queue"
)

// Snapshot is the complete view served to polling clients: jobs and the
// stats aggregate come from a single consistent store read, so the
// aggregate always matches the job list it was computed from.
type Snapshot struct {
	Jobs        []queue.Job       `json:"jobs"`
	Stats       queue.Stats       `json:"stats"`
	Platforms   []platform.Status `json:"platforms"`
	LastUpdated time.Time         `json:"lastUpdated"`
}

// Publisher serializes current store state for polling clients.
type Publisher struct {
	store     queue.Store
	platforms *platform.Registry
}

// New creates a publisher over the given store and platform registry.
func New(store queue.Store, platforms *platform.Registry) *Publisher {
	return &Publisher{store: store, platforms: platforms}
}

// Snapshot produces the full view. The underlying store may be mutated
// concurrently; the returned copy is never a partial read.
func (p *Publisher) Snapshot(ctx context.Context) (Snapshot, error) {
	snap, err := p.store.Snapshot(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to snapshot job store: %w", err)
	}

	return Snapshot{
		Jobs:        snap.Jobs,
		Stats:       snap.Stats,
		Platforms:   p.platforms.List(),
		LastUpdated: snap.Stats.LastUpdated,
	}, nil
}
