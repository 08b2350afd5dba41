package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"estatehub/gateway/internal/api/middleware"
	"estatehub/gateway/internal/services"
)

// RestSessionHandler clears everything the gateway holds for a user on sign-out.
type RestSessionHandler struct {
	feedService     services.IFeedService
	snapshotService services.ISnapshotService
	logger          *zap.Logger
}

func NewRestSessionHandler(feedService services.IFeedService, snapshotService services.ISnapshotService, logger *zap.Logger) *RestSessionHandler {
	return &RestSessionHandler{feedService: feedService, snapshotService: snapshotService, logger: logger}
}

// SignOut handles DELETE /v1/session. Both stores are attempted even if the
// first fails.
func (h *RestSessionHandler) SignOut(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	feedErr := h.feedService.Discard(ctx, userID)
	if feedErr != nil {
		h.logger.Warn("failed to discard feed on sign-out", zap.String("user", userID), zap.Error(feedErr))
	}
	snapErr := h.snapshotService.Delete(ctx, userID)
	if snapErr != nil {
		h.logger.Warn("failed to delete snapshot on sign-out", zap.String("user", userID), zap.Error(snapErr))
	}

	if feedErr != nil {
		respondError(c, feedErr)
		return
	}
	if snapErr != nil {
		respondError(c, snapErr)
		return
	}
	c.Status(http.StatusNoContent)
}
