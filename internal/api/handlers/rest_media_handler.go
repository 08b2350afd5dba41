package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"estatehub/gateway/internal/api/middleware"
	"estatehub/gateway/internal/services"
)

type RestMediaHandler struct {
	mediaService services.IMediaService
}

func NewRestMediaHandler(mediaService services.IMediaService) *RestMediaHandler {
	return &RestMediaHandler{mediaService: mediaService}
}

type presignRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType"`
}

type confirmRequest struct {
	Key string `json:"key" binding:"required"`
}

// Presign handles POST /v1/media/presign
func (h *RestMediaHandler) Presign(c *gin.Context) {
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "filename is required"})
		return
	}

	upload, err := h.mediaService.Presign(c.Request.Context(), middleware.UserID(c), req.Filename, req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, upload)
}

// Confirm handles POST /v1/media/confirm
func (h *RestMediaHandler) Confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}

	if err := h.mediaService.Confirm(c.Request.Context(), middleware.UserID(c), req.Key); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"key": req.Key})
}
