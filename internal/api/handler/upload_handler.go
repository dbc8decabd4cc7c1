package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ctpipe/uploadq/internal/api/dto"
	"github.com/ctpipe/uploadq/internal/notify"
	"github.com/ctpipe/uploadq/internal/platform"
	"github.com/ctpipe/uploadq/internal/queue"
)

// CreateUpload handles POST /api/upload.
// Accepts a multipart form (file, title, description, platforms[]) and
// enqueues a new upload job.
func (h *UploadHandler) CreateUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "no file provided"})
		return
	}

	// Cheap size gate before touching the store; the store enforces the
	// same bound for non-HTTP callers.
	if h.maxUploadSize > 0 && file.Size > h.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: "file exceeds maximum upload size"})
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	description := c.PostForm("description")
	platforms := parsePlatforms(c)

	for _, p := range platforms {
		if !platform.IsSupported(p) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "unsupported platform: " + p})
			return
		}
	}

	job, err := h.store.Create(c.Request.Context(), queue.CreateRequest{
		Title:       title,
		Description: description,
		Platforms:   platforms,
		Filename:    sanitizeFilename(file.Filename),
		Size:        file.Size,
	})
	if err != nil {
		h.writeStoreError(c, err)
		return
	}

	if h.uploadDir != "" {
		dst := filepath.Join(h.uploadDir, job.ID+"_"+job.Filename)
		if err := c.SaveUploadedFile(file, dst); err != nil {
			h.logger.Error("Failed to persist uploaded artifact",
				slog.String("job_id", job.ID),
				slog.String("path", dst),
				slog.Any("error", err),
			)
			if _, ferr := h.store.Fail(c.Request.Context(), job.ID, "failed to persist artifact"); ferr != nil {
				h.logger.Error("Failed to mark job failed after save error",
					slog.String("job_id", job.ID),
					slog.Any("error", ferr),
				)
			}
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to store uploaded file"})
			return
		}
	}

	h.notifier.Publish(c.Request.Context(), notify.Event{
		Type:    notify.EventJobCreated,
		JobID:   job.ID,
		Payload: job,
	})

	if h.dispatcher != nil {
		if err := h.dispatcher.Enqueue(job.ID); err != nil {
			// The job stays queued in the store; only dispatch failed.
			h.logger.Warn("Job created but not dispatched",
				slog.String("job_id", job.ID),
				slog.Any("error", err),
			)
		}
	}

	h.logger.Info("Upload job created",
		slog.String("job_id", job.ID),
		slog.String("title", job.Title),
		slog.Any("platforms", job.Platforms),
	)

	c.JSON(http.StatusCreated, job)
}

// GetUpload handles GET /api/upload/:job_id.
func (h *UploadHandler) GetUpload(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "job_id must be a valid UUID"})
		return
	}

	job, err := h.store.Get(c.Request.Context(), jobID)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// CancelUpload handles DELETE /api/upload/:job_id.
// Cancels a queued or uploading job; terminal jobs are rejected.
func (h *UploadHandler) CancelUpload(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "job_id must be a valid UUID"})
		return
	}

	job, err := h.store.Cancel(c.Request.Context(), jobID)
	if err != nil {
		h.writeStoreError(c, err)
		return
	}

	h.notifier.Publish(c.Request.Context(), notify.Event{
		Type:    notify.EventUploadCancelled,
		JobID:   job.ID,
		Payload: job,
	})

	h.logger.Info("Upload job cancelled",
		slog.String("job_id", job.ID),
	)

	c.JSON(http.StatusOK, job)
}

// GetQueue handles GET /api/queue.
func (h *UploadHandler) GetQueue(c *gin.Context) {
	snap, err := h.publisher.Snapshot(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to snapshot queue", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to read queue"})
		return
	}

	c.JSON(http.StatusOK, dto.QueueResponse{
		Jobs:        snap.Jobs,
		Count:       len(snap.Jobs),
		LastUpdated: snap.LastUpdated,
	})
}

// writeStoreError maps store errors onto the HTTP surface.
func (h *UploadHandler) writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, queue.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "job not found"})
	case errors.Is(err, queue.ErrInvalidState):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "job is already in a terminal state"})
	case errors.Is(err, queue.ErrArtifactTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: "file exceeds maximum upload size"})
	case queue.IsValidation(err):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	default:
		h.logger.Error("Store operation failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}

// parsePlatforms reads the platforms form field. Both repeated fields
// and a single JSON array value are accepted.
func parsePlatforms(c *gin.Context) []string {
	values := c.PostFormArray("platforms")
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var list []string
		if err := json.Unmarshal([]byte(values[0]), &list); err == nil {
			values = list
		}
	}

	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// sanitizeFilename strips any path components from a client-supplied
// filename.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" || name == "" {
		return "upload.bin"
	}
	return name
}
