package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"estatehub/gateway/internal/api/middleware"
	"estatehub/gateway/internal/models"
	"estatehub/gateway/internal/services"
)

// RestListingHandler accepts listing and profile forms as JSON and forwards
// them upstream as multipart.
type RestListingHandler struct {
	submissionService services.ISubmissionService
}

func NewRestListingHandler(submissionService services.ISubmissionService) *RestListingHandler {
	return &RestListingHandler{submissionService: submissionService}
}

// CreateListing handles POST /v1/listings
func (h *RestListingHandler) CreateListing(c *gin.Context) {
	h.submitListing(c, "", http.StatusCreated)
}

// UpdateListing handles PUT /v1/listings/:id
func (h *RestListingHandler) UpdateListing(c *gin.Context) {
	h.submitListing(c, c.Param("id"), http.StatusOK)
}

func (h *RestListingHandler) submitListing(c *gin.Context, listingID string, status int) {
	var form models.ListingForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing form"})
		return
	}

	listing, err := h.submissionService.SubmitListing(c.Request.Context(), middleware.UserID(c), listingID, form)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, listing)
}

// GetProfile handles GET /v1/profile
func (h *RestListingHandler) GetProfile(c *gin.Context) {
	profile, err := h.submissionService.GetProfile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile handles PUT /v1/profile
func (h *RestListingHandler) UpdateProfile(c *gin.Context) {
	var form models.ProfileForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid profile form"})
		return
	}

	profile, err := h.submissionService.UpdateProfile(c.Request.Context(), middleware.UserID(c), form)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
