package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"estatehub/gateway/internal/feed"
	"estatehub/gateway/internal/services"
	"estatehub/gateway/internal/transcode"
	"estatehub/gateway/internal/upstream"
)

// respondError writes err as JSON with the status that matches its kind.
// Anything unrecognised is a 500 and the detail stays in the gin error log.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		verr   *transcode.ValidationError
		netErr *upstream.NetworkError
		apiErr *upstream.APIError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, feed.ErrFetchInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "A page is already loading"})
	case errors.Is(err, feed.ErrStaleResult):
		c.JSON(http.StatusConflict, gin.H{"error": "Feed was reset while loading"})
	case errors.Is(err, services.ErrSnapshotConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Conversations changed, try again"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrInvalidLocation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location"})
	case errors.Is(err, services.ErrUnsupportedMedia):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrForeignMedia):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &netErr):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Upstream unreachable"})
	case errors.As(err, &apiErr):
		// Client errors are the caller's to fix, so they keep their status.
		status := http.StatusBadGateway
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			status = apiErr.Status
		}
		c.JSON(status, gin.H{"error": apiErr.Message})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
