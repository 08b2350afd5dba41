package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"estatehub/gateway/internal/config"
	"estatehub/gateway/internal/services"
)

// RestConfigHandler exposes the runtime tuning a client needs to page sensibly.
type RestConfigHandler struct {
	cfg           *config.Config
	configService services.IConfigService
}

// NewRestConfigHandler creates a new RestConfigHandler.
func NewRestConfigHandler(cfg *config.Config, configService services.IConfigService) *RestConfigHandler {
	return &RestConfigHandler{cfg: cfg, configService: configService}
}

// GetPublicConfig handles GET /v1/config
func (h *RestConfigHandler) GetPublicConfig(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, gin.H{
		"feedPageSize":             h.configService.GetInt(ctx, services.KeyFeedPageSize, h.cfg.FeedPageSize),
		"nearbyRadiusKm":           h.configService.GetInt(ctx, services.KeyNearbyRadiusKM, h.cfg.NearbyRadiusKM),
		"conversationSyncMaxPages": h.configService.GetInt(ctx, services.KeyConversationSyncMaxPages, h.cfg.ConversationSyncMaxPages),
	})
}
