package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"estatehub/gateway/internal/models"
	"estatehub/gateway/internal/services"
)

const (
	defaultLocationLimit = 20
	maxLocationLimit     = 100
)

// RestLocationHandler handles requests for location REST endpoints.
type RestLocationHandler struct {
	locationService services.ILocationService
}

// NewRestLocationHandler creates a new RestLocationHandler.
func NewRestLocationHandler(locationService services.ILocationService) *RestLocationHandler {
	return &RestLocationHandler{locationService: locationService}
}

// SearchLocations handles GET /v1/location/search and GET /v1/location/:country_code/search
func (h *RestLocationHandler) SearchLocations(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing search query parameter 'q'"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLocationLimit)))
	if err != nil || limit <= 0 || limit > maxLocationLimit {
		limit = defaultLocationLimit
	}

	var countryCode *string
	if cc := c.Param("country_code"); cc != "" {
		cc = strings.ToUpper(cc)
		countryCode = &cc
	}

	locations, err := h.locationService.SearchLocations(c.Request.Context(), query, countryCode, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]models.LocationAPIResponse, 0, len(locations))
	for i := range locations {
		results = append(results, locations[i].ToAPIResponse())
	}
	c.JSON(http.StatusOK, results)
}
