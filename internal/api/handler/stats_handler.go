package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ctpipe/uploadq/internal/api/dto"
)

// GetStats handles GET /api/stats.
// The aggregate is recomputed from the same point-in-time view as the
// job list, never from counters that could drift.
func (h *UploadHandler) GetStats(c *gin.Context) {
	snap, err := h.publisher.Snapshot(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to compute stats", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to compute stats"})
		return
	}

	c.JSON(http.StatusOK, snap.Stats)
}

// Health handles GET /api/health.
func (h *UploadHandler) Health(c *gin.Context) {
	snap, err := h.publisher.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "store unavailable"})
		return
	}

	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:    "healthy",
		Service:   "upload-api-service",
		QueueSize: len(snap.Jobs),
	})
}
