package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ctpipe/uploadq/internal/api/dto"
	"github.com/ctpipe/uploadq/internal/platform"
)

// GetPlatforms handles GET /api/platforms.
func (h *UploadHandler) GetPlatforms(c *gin.Context) {
	statuses := h.platforms.List()
	c.JSON(http.StatusOK, dto.PlatformsResponse{
		Platforms: statuses,
		Count:     len(statuses),
	})
}

// ConnectPlatform handles POST /api/platforms/:platform/connect.
// The real OAuth handshake is out of scope; connecting only flips the
// connectivity record.
func (h *UploadHandler) ConnectPlatform(c *gin.Context) {
	name := c.Param("platform")

	status, err := h.platforms.Connect(name)
	if err != nil {
		h.writePlatformError(c, name, err)
		return
	}

	h.logger.Info("Platform connected", slog.String("platform", status.Name))

	c.JSON(http.StatusOK, dto.PlatformActionResponse{
		Message:  "successfully connected to " + status.Name,
		Platform: status,
	})
}

// DisconnectPlatform handles POST /api/platforms/:platform/disconnect.
func (h *UploadHandler) DisconnectPlatform(c *gin.Context) {
	name := c.Param("platform")

	status, err := h.platforms.Disconnect(name)
	if err != nil {
		h.writePlatformError(c, name, err)
		return
	}

	h.logger.Info("Platform disconnected", slog.String("platform", status.Name))

	c.JSON(http.StatusOK, dto.PlatformActionResponse{
		Message:  "successfully disconnected from " + status.Name,
		Platform: status,
	})
}

func (h *UploadHandler) writePlatformError(c *gin.Context, name string, err error) {
	if errors.Is(err, platform.ErrUnknownPlatform) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "platform not found: " + name})
		return
	}
	h.logger.Error("Platform command failed",
		slog.String("platform", name),
		slog.Any("error", err),
	)
	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
}
