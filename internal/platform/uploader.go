package platform

import (
	"context"
	"fmt"
	"time"
)

// Uploader pushes one artifact to a single platform, reporting progress
// as an integer percentage through the callback.
type Uploader interface {
	Platform() string
	Upload(ctx context.Context, filename string, size int64, progress func(pct int)) error
}

// simulatedUploader stands in for the real platform adapters. It walks
// the transfer in fixed chunks with a per-platform pace so queue
// movement is observable without any external credentials.
type simulatedUploader struct {
	name      string
	chunks    int
	chunkWait time.Duration
}

func (u *simulatedUploader) Platform() string { return u.name }

func (u *simulatedUploader) Upload(ctx context.Context, filename string, size int64, progress func(pct int)) error {
	if size <= 0 {
		return fmt.Errorf("nothing to upload for %q", filename)
	}

	for i := 1; i <= u.chunks; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(u.chunkWait):
		}
		progress(i * 100 / u.chunks)
	}
	return nil
}

// NewSimulatedUploaders builds one simulated uploader per supported
// platform, keyed by platform id. chunkWait paces each transfer step.
func NewSimulatedUploaders(chunkWait time.Duration) map[string]Uploader {
	if chunkWait <= 0 {
		chunkWait = 50 * time.Millisecond
	}

	// Chunk counts loosely mirror how granular each platform's
	// resumable upload sessions report progress.
	chunks := map[string]int{
		YouTube:   10,
		TikTok:    5,
		Instagram: 4,
		Twitter:   4,
	}

	uploaders := make(map[string]Uploader, len(chunks))
	for name, n := range chunks {
		uploaders[name] = &simulatedUploader{name: name, chunks: n, chunkWait: chunkWait}
	}
	return uploaders
}
