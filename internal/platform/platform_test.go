package platform

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupported(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"youtube", true},
		{"tiktok", true},
		{"instagram", true},
		{"twitter", true},
		{"YouTube", true},
		{"myspace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSupported(tt.name))
		})
	}
}

func TestRegistry_ConnectDisconnect(t *testing.T) {
	r := NewRegistry()

	// Everything starts disconnected.
	for _, s := range r.List() {
		assert.False(t, s.Connected, "%s should start disconnected", s.Name)
	}

	status, err := r.Connect("YouTube")
	require.NoError(t, err)
	assert.Equal(t, YouTube, status.Name)
	assert.True(t, status.Connected)

	status, err = r.Disconnect(YouTube)
	require.NoError(t, err)
	assert.False(t, status.Connected)

	_, err = r.Connect("myspace")
	assert.ErrorIs(t, err, ErrUnknownPlatform)
}

func TestRegistry_ListIsACopy(t *testing.T) {
	r := NewRegistry()

	list := r.List()
	require.NotEmpty(t, list)
	list[0].Connected = true

	assert.False(t, r.List()[0].Connected)
}

func TestSimulatedUploader_ReportsFullProgress(t *testing.T) {
	uploaders := NewSimulatedUploaders(time.Millisecond)
	u, ok := uploaders[YouTube]
	require.True(t, ok)

	var reports []int
	err := u.Upload(context.Background(), "demo.mp4", 1024, func(pct int) {
		reports = append(reports, pct)
	})
	require.NoError(t, err)

	require.NotEmpty(t, reports)
	assert.Equal(t, 100, reports[len(reports)-1])
	for i := 1; i < len(reports); i++ {
		assert.GreaterOrEqual(t, reports[i], reports[i-1], "progress must not decrease")
	}
}

func TestSimulatedUploader_CancelStopsTransfer(t *testing.T) {
	uploaders := NewSimulatedUploaders(10 * time.Millisecond)
	u := uploaders[TikTok]

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := u.Upload(ctx, "demo.mp4", 1024, func(int) {
		t.Fatal("no progress expected after cancellation")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulatedUploader_EmptyArtifact(t *testing.T) {
	uploaders := NewSimulatedUploaders(time.Millisecond)
	err := uploaders[Twitter].Upload(context.Background(), "empty.mp4", 0, func(int) {})
	assert.Error(t, err)
}
