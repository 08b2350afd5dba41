package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"estatehub/gateway/internal/api/middleware"
	"estatehub/gateway/internal/services"
)

// RestFeedHandler serves the listing feed.
type RestFeedHandler struct {
	feedService services.IFeedService
}

func NewRestFeedHandler(feedService services.IFeedService) *RestFeedHandler {
	return &RestFeedHandler{feedService: feedService}
}

type feedNextRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Place     string   `json:"place"`
}

// GetFeed handles GET /v1/feed
func (h *RestFeedHandler) GetFeed(c *gin.Context) {
	st, err := h.feedService.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Next handles POST /v1/feed/next. The location may come as a JSON body or as
// lat/lon/place query parameters; the body wins.
func (h *RestFeedHandler) Next(c *gin.Context) {
	q, ok := parseLocationQuery(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location"})
		return
	}

	res, err := h.feedService.Next(c.Request.Context(), middleware.UserID(c), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Reset handles POST /v1/feed/reset
func (h *RestFeedHandler) Reset(c *gin.Context) {
	st, err := h.feedService.Reset(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func parseLocationQuery(c *gin.Context) (services.LocationQuery, bool) {
	var body feedNextRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			return services.LocationQuery{}, false
		}
		return services.LocationQuery{Latitude: body.Latitude, Longitude: body.Longitude, Place: body.Place}, true
	}

	q := services.LocationQuery{Place: c.Query("place")}
	for name, dst := range map[string]**float64{"lat": &q.Latitude, "lon": &q.Longitude} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return services.LocationQuery{}, false
		}
		*dst = &v
	}
	return q, true
}
