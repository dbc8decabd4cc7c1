package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMaxSize = 5 * 1024 * 1024 * 1024 // 5 GiB

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	return NewMemoryStore(testMaxSize, discardLogger())
}

func validRequest() CreateRequest {
	return CreateRequest{
		Title:     "Demo",
		Platforms: []string{"youtube"},
		Filename:  "demo.mp4",
		Size:      10 * 1024 * 1024,
	}
}

func TestMemoryStore_Create(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*CreateRequest)
		wantErr   bool
		errString string
	}{
		{
			name:   "valid request",
			mutate: func(r *CreateRequest) {},
		},
		{
			name:      "empty title",
			mutate:    func(r *CreateRequest) { r.Title = "" },
			wantErr:   true,
			errString: "invalid title",
		},
		{
			name:      "empty platforms",
			mutate:    func(r *CreateRequest) { r.Platforms = nil },
			wantErr:   true,
			errString: "invalid platforms",
		},
		{
			name:      "negative size",
			mutate:    func(r *CreateRequest) { r.Size = -1 },
			wantErr:   true,
			errString: "invalid size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			req := validRequest()
			tt.mutate(&req)

			job, err := store.Create(context.Background(), req)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.True(t, IsValidation(err))

				// No state change on rejection.
				jobs, listErr := store.List(context.Background())
				require.NoError(t, listErr)
				assert.Empty(t, jobs)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, job.ID)
			assert.Equal(t, StatusQueued, job.Status)
			assert.Equal(t, 0, job.Progress)
			assert.Equal(t, req.Title, job.Title)
			assert.Equal(t, req.Platforms, job.Platforms)
			assert.False(t, job.CreatedAt.IsZero())
			assert.Equal(t, job.CreatedAt, job.UpdatedAt)
		})
	}
}

func TestMemoryStore_Create_ArtifactTooLarge(t *testing.T) {
	store := newTestStore(t)

	req := validRequest()
	req.Size = 6 * 1024 * 1024 * 1024 // 6 GiB, over the 5 GiB limit

	_, err := store.Create(context.Background(), req)
	require.ErrorIs(t, err, ErrArtifactTooLarge)

	jobs, listErr := store.List(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, jobs)
}

func TestMemoryStore_Create_UniqueIDs(t *testing.T) {
	store := newTestStore(t)
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		job, err := store.Create(context.Background(), validRequest())
		require.NoError(t, err)
		assert.False(t, seen[job.ID], "duplicate job id issued: %s", job.ID)
		seen[job.ID] = true
	}
}

func TestMemoryStore_Get(t *testing.T) {
	store := newTestStore(t)

	created, err := store.Create(context.Background(), validRequest())
	require.NoError(t, err)

	got, err := store.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = store.Get(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_List_InsertionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		req := validRequest()
		req.Title = fmt.Sprintf("upload-%d", i)
		job, err := store.Create(ctx, req)
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}

	// Transition jobs out of order; listing order must not change.
	require.NoError(t, store.ApplyProgress(ctx, ids[3], 40))
	_, err := store.Complete(ctx, ids[3])
	require.NoError(t, err)
	_, err = store.Cancel(ctx, ids[1])
	require.NoError(t, err)
	_, err = store.Fail(ctx, ids[4], "network down")
	require.NoError(t, err)

	jobs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 5)
	for i, job := range jobs {
		assert.Equal(t, ids[i], job.ID, "job at index %d out of creation order", i)
	}
}

func TestMemoryStore_ApplyProgress(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, validRequest())
	require.NoError(t, err)

	// First progress moves queued -> uploading.
	require.NoError(t, store.ApplyProgress(ctx, job.ID, 25))
	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusUploading, got.Status)
	assert.Equal(t, 25, got.Progress)

	// Progress is monotonically non-decreasing.
	require.NoError(t, store.ApplyProgress(ctx, job.ID, 10))
	got, err = store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, got.Progress)

	require.NoError(t, store.ApplyProgress(ctx, job.ID, 80))
	got, err = store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, got.Progress)

	// Unknown id is reported.
	assert.ErrorIs(t, store.ApplyProgress(ctx, "missing", 10), ErrNotFound)
}

func TestMemoryStore_ApplyProgress_TerminalIsSilent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, validRequest())
	require.NoError(t, err)
	_, err = store.Cancel(ctx, job.ID)
	require.NoError(t, err)

	// Late progress against a finalized job is swallowed.
	require.NoError(t, store.ApplyProgress(ctx, job.ID, 90))

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Equal(t, 0, got.Progress)
}

func TestMemoryStore_TerminalStatesAreAbsorbing(t *testing.T) {
	type finalizer func(ctx context.Context, s *MemoryStore, id string) (Job, error)

	complete := func(ctx context.Context, s *MemoryStore, id string) (Job, error) { return s.Complete(ctx, id) }
	fail := func(ctx context.Context, s *MemoryStore, id string) (Job, error) { return s.Fail(ctx, id, "boom") }
	cancel := func(ctx context.Context, s *MemoryStore, id string) (Job, error) { return s.Cancel(ctx, id) }

	tests := []struct {
		name       string
		first      finalizer
		wantStatus string
	}{
		{"completed", complete, StatusCompleted},
		{"failed", fail, StatusFailed},
		{"cancelled", cancel, StatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			ctx := context.Background()

			job, err := store.Create(ctx, validRequest())
			require.NoError(t, err)

			first, err := tt.first(ctx, store, job.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, first.Status)

			// Every further terminal command fails and changes nothing.
			for _, second := range []finalizer{complete, fail, cancel} {
				_, err := second(ctx, store, job.ID)
				assert.ErrorIs(t, err, ErrInvalidState)
			}

			got, err := store.Get(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, first.Progress, got.Progress)
			assert.Equal(t, first.Error, got.Error)
		})
	}
}

func TestMemoryStore_CancelQueuedJob(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, validRequest())
	require.NoError(t, err)

	cancelled, err := store.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Empty(t, cancelled.Error)

	// Cancelling again is rejected and the job stays cancelled.
	_, err = store.Cancel(ctx, job.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
}

func TestMemoryStore_ConcurrentFinalize_OneWinner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		job, err := store.Create(ctx, validRequest())
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 2)

		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = store.Cancel(ctx, job.ID)
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = store.Complete(ctx, job.ID)
		}()
		wg.Wait()

		// Exactly one command wins; the other sees ErrInvalidState.
		winners := 0
		for _, err := range errs {
			if err == nil {
				winners++
			} else {
				assert.ErrorIs(t, err, ErrInvalidState)
			}
		}
		assert.Equal(t, 1, winners)

		got, err := store.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Contains(t, []string{StatusCancelled, StatusCompleted}, got.Status)
	}
}

func TestMemoryStore_Snapshot_Consistency(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var completed Job
	for i := 0; i < 4; i++ {
		req := validRequest()
		req.Platforms = []string{"youtube", "tiktok"}
		job, err := store.Create(ctx, req)
		require.NoError(t, err)
		if i == 0 {
			completed = job
		}
	}
	_, err := store.Complete(ctx, completed.ID)
	require.NoError(t, err)

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)

	assert.Len(t, snap.Jobs, 4)
	assert.Equal(t, 4, snap.Stats.TotalUploads)
	assert.Equal(t, 1, snap.Stats.SuccessfulUploads)
	assert.Equal(t, 0, snap.Stats.FailedUploads)
	assert.Equal(t, platformViews["youtube"]+platformViews["tiktok"], snap.Stats.TotalViews)
	assert.Equal(t, platformEngagement["youtube"]+platformEngagement["tiktok"], snap.Stats.TotalEngagement)
	assert.False(t, snap.Stats.LastUpdated.IsZero())
}

func TestMemoryStore_SnapshotIsACopy(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, validRequest())
	require.NoError(t, err)

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Jobs, 1)

	// Mutating the snapshot must not leak into the store.
	snap.Jobs[0].Status = StatusFailed
	snap.Jobs[0].Platforms[0] = "tampered"

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, got.Status)
	assert.Equal(t, []string{"youtube"}, got.Platforms)
}
