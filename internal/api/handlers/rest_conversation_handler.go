package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"estatehub/gateway/internal/api/middleware"
	"estatehub/gateway/internal/models"
	"estatehub/gateway/internal/services"
)

// ConversationStreamer upgrades a request into a live conversation stream.
type ConversationStreamer interface {
	ServeWs(w http.ResponseWriter, r *http.Request, userID string, initial []models.Conversation)
}

// RestConversationHandler exposes the reconciled conversation list.
type RestConversationHandler struct {
	conversationService services.IConversationService
	streamer            ConversationStreamer
}

func NewRestConversationHandler(conversationService services.IConversationService, streamer ConversationStreamer) *RestConversationHandler {
	return &RestConversationHandler{conversationService: conversationService, streamer: streamer}
}

// List handles GET /v1/conversations
func (h *RestConversationHandler) List(c *gin.Context) {
	list, err := h.conversationService.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": list})
}

// Sync handles POST /v1/conversations/sync?page=N
func (h *RestConversationHandler) Sync(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a positive integer"})
		return
	}

	res, err := h.conversationService.Sync(c.Request.Context(), middleware.UserID(c), page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Refresh handles POST /v1/conversations/refresh
func (h *RestConversationHandler) Refresh(c *gin.Context) {
	if err := h.conversationService.RequestRefresh(c.Request.Context(), middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": true})
}

// Update handles PUT /v1/conversations/:id
func (h *RestConversationHandler) Update(c *gin.Context) {
	var conv models.Conversation
	if err := c.ShouldBindJSON(&conv); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation body"})
		return
	}
	conv.ID = c.Param("id")

	list, err := h.conversationService.Update(c.Request.Context(), middleware.UserID(c), conv)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": list})
}

// Remove handles DELETE /v1/conversations/:id
func (h *RestConversationHandler) Remove(c *gin.Context) {
	list, err := h.conversationService.Remove(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": list})
}

// Stream handles GET /v1/conversations/stream
func (h *RestConversationHandler) Stream(c *gin.Context) {
	userID := middleware.UserID(c)
	initial, err := h.conversationService.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.streamer.ServeWs(c.Writer, c.Request, userID, initial)
}
