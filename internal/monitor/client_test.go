package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_ValidatesBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{"http url", "http://127.0.0.1:8080", false},
		{"https url", "https://api.example.com", false},
		{"missing scheme", "127.0.0.1:8080", true},
		{"missing host", "http://", true},
		{"garbage", "://nope", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.baseURL)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClient_FetchStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/stats", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"totalUploads": 7,
			"successfulUploads": 4,
			"failedUploads": 1,
			"totalViews": 5250,
			"totalEngagement": 395,
			"lastUpdated": "2025-05-01T10:00:00Z"
		}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	stats, err := client.FetchStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, stats.TotalUploads)
	assert.Equal(t, 4, stats.SuccessfulUploads)
	assert.Equal(t, 1, stats.FailedUploads)
	assert.Equal(t, int64(5250), stats.TotalViews)
	assert.Equal(t, int64(395), stats.TotalEngagement)
}

func TestClient_FetchQueue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/queue", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"jobs": [
				{"id": "a1", "title": "First", "status": "uploading", "progress": 40},
				{"id": "b2", "title": "Second", "status": "queued", "progress": 0}
			],
			"count": 2,
			"lastUpdated": "2025-05-01T10:00:00Z"
		}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	resp, err := client.FetchQueue(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Jobs, 2)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "a1", resp.Jobs[0].ID)
	assert.Equal(t, "uploading", resp.Jobs[0].Status)
	assert.Equal(t, 40, resp.Jobs[0].Progress)
}

func TestClient_FetchPlatforms(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/platforms", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"platforms": [
				{"name": "youtube", "connected": true, "icon": "x"},
				{"name": "tiktok", "connected": false, "icon": "y"}
			],
			"count": 2
		}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	resp, err := client.FetchPlatforms(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Platforms, 2)
	assert.True(t, resp.Platforms[0].Connected)
	assert.False(t, resp.Platforms[1].Connected)
}

func TestClient_NonOKStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = client.FetchStats(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestClient_RespectsContextDeadline(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = client.FetchQueue(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_MalformedBodyIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totalUploads": `))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = client.FetchStats(context.Background())
	assert.Error(t, err)
}
