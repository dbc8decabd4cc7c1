package dto

import (
	"time"

	"github.com/ctpipe/uploadq/internal/platform"
	"github.com/ctpipe/uploadq/internal/queue"
)

// QueueResponse is the payload of GET /api/queue.
type QueueResponse struct {
	Jobs        []queue.Job `json:"jobs"`
	Count       int         `json:"count"`
	LastUpdated time.Time   `json:"lastUpdated"`
}

// PlatformsResponse is the payload of GET /api/platforms.
type PlatformsResponse struct {
	Platforms []platform.Status `json:"platforms"`
	Count     int               `json:"count"`
}

// PlatformActionResponse answers the connect/disconnect commands.
type PlatformActionResponse struct {
	Message  string          `json:"message"`
	Platform platform.Status `json:"platform"`
}

// HealthResponse is the payload of the health endpoints.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	QueueSize int    `json:"queueSize"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
