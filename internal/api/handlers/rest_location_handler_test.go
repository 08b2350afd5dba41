package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"estatehub/gateway/internal/api/handlers"
	"estatehub/gateway/internal/models"
)

func locationEngine(svc *MockLocationService) http.Handler {
	gin.SetMode(gin.TestMode)
	h := handlers.NewRestLocationHandler(svc)
	r := gin.New()
	r.GET("/v1/location/search", h.SearchLocations)
	r.GET("/v1/location/:country_code/search", h.SearchLocations)
	return r
}

func TestRestLocationHandler_SearchLocations_Success(t *testing.T) {
	svc := new(MockLocationService)
	found := []models.Location{
		{ID: 1, Name: "London", CountryCode: "GB", Context: []string{"England", "UK"}, Location: &models.GeoJSON{Type: "Point", Coordinates: []float64{0.1278, 51.5074}}},
		{ID: 2, Name: "London", CountryCode: "CA", Context: []string{"Ontario", "Canada"}},
	}
	svc.On("SearchLocations", mock.Anything, "London", (*string)(nil), 10).Return(found, nil)

	w := doJSON(locationEngine(svc), http.MethodGet, "/v1/location/search?q=London&limit=10", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var respBody []models.LocationAPIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	require.Len(t, respBody, 2)
	assert.Equal(t, 1, respBody[0].ID)
	assert.Equal(t, "UK, England", respBody[0].Context)
	assert.Equal(t, []float64{0.1278, 51.5074}, respBody[0].Coordinates)
	assert.Equal(t, "Canada, Ontario", respBody[1].Context)
	assert.Nil(t, respBody[1].Coordinates)
	svc.AssertExpectations(t)
}

func TestRestLocationHandler_SearchLocations_WithCountry(t *testing.T) {
	svc := new(MockLocationService)
	country := "FR"
	svc.On("SearchLocations", mock.Anything, "Paris", &country, 20).Return([]models.Location{{ID: 3, Name: "Paris", CountryCode: "FR"}}, nil)

	w := doJSON(locationEngine(svc), http.MethodGet, "/v1/location/fr/search?q=Paris&limit=500", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestRestLocationHandler_SearchLocations_MissingQuery(t *testing.T) {
	svc := new(MockLocationService)
	w := doJSON(locationEngine(svc), http.MethodGet, "/v1/location/search?q=%20", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "SearchLocations", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRestLocationHandler_SearchLocations_ServiceError(t *testing.T) {
	svc := new(MockLocationService)
	svc.On("SearchLocations", mock.Anything, "Rome", (*string)(nil), 20).Return(nil, assert.AnError)
	w := doJSON(locationEngine(svc), http.MethodGet, "/v1/location/search?q=Rome", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
