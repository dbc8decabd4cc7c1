package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ctpipe/uploadq/internal/api/dto"
	"github.com/ctpipe/uploadq/internal/queue"
)

const defaultUserAgent = "uploadq-monitor/0.1"

// Fetcher is the read-only API surface the pollers consume. *Client
// implements it; tests substitute their own.
type Fetcher interface {
	FetchStats(ctx context.Context) (queue.Stats, error)
	FetchQueue(ctx context.Context) (dto.QueueResponse, error)
	FetchPlatforms(ctx context.Context) (dto.PlatformsResponse, error)
}

var _ Fetcher = (*Client)(nil)

// Client talks to the upload API over HTTP.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

// NewClient builds a client for the given base URL, e.g.
// "http://127.0.0.1:8080". Per-request deadlines come from the caller's
// context; the pollers bound every fetch below their interval.
func NewClient(baseURL string) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api base url must include scheme and host: %q", baseURL)
	}

	return &Client{
		baseURL:   base,
		http:      &http.Client{},
		userAgent: defaultUserAgent,
	}, nil
}

// FetchStats retrieves the aggregate stats snapshot.
func (c *Client) FetchStats(ctx context.Context) (queue.Stats, error) {
	var payload queue.Stats
	if err := c.get(ctx, "/api/stats", &payload); err != nil {
		return queue.Stats{}, err
	}
	return payload, nil
}

// FetchQueue retrieves the current queue snapshot.
func (c *Client) FetchQueue(ctx context.Context) (dto.QueueResponse, error) {
	var payload dto.QueueResponse
	if err := c.get(ctx, "/api/queue", &payload); err != nil {
		return dto.QueueResponse{}, err
	}
	return payload, nil
}

// FetchPlatforms retrieves the platform connectivity snapshot.
func (c *Client) FetchPlatforms(ctx context.Context) (dto.PlatformsResponse, error) {
	var payload dto.PlatformsResponse
	if err := c.get(ctx, "/api/platforms", &payload); err != nil {
		return dto.PlatformsResponse{}, err
	}
	return payload, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	u := *c.baseURL
	u.Path = path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
