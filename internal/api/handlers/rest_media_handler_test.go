package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"estatehub/gateway/internal/api/handlers"
	"estatehub/gateway/internal/services"
)

func mediaEngine(svc *MockMediaService) http.Handler {
	h := handlers.NewRestMediaHandler(svc)
	r := newAuthedEngine()
	r.POST("/v1/media/presign", h.Presign)
	r.POST("/v1/media/confirm", h.Confirm)
	return r
}

func TestRestMediaHandler_Presign(t *testing.T) {
	svc := new(MockMediaService)
	svc.On("Presign", mock.Anything, testUser, "kitchen.jpg", "").Return(&services.PresignedUpload{
		URL:       "https://bucket.example/put",
		Key:       "uploads/u1/abc_kitchen.jpg",
		ExpiresAt: time.Unix(1700000000, 0).UTC(),
	}, nil)

	r := mediaEngine(svc)
	w := doJSON(r, http.MethodPost, "/v1/media/presign", map[string]string{"filename": "kitchen.jpg"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"key":"uploads/u1/abc_kitchen.jpg"`)

	w = doJSON(r, http.MethodPost, "/v1/media/presign", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNumberOfCalls(t, "Presign", 1)
}

func TestRestMediaHandler_PresignRejectsNonImage(t *testing.T) {
	svc := new(MockMediaService)
	svc.On("Presign", mock.Anything, testUser, "cv.pdf", "application/pdf").Return(nil, services.ErrUnsupportedMedia)

	w := doJSON(mediaEngine(svc), http.MethodPost, "/v1/media/presign", map[string]string{"filename": "cv.pdf", "contentType": "application/pdf"})
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestRestMediaHandler_Confirm(t *testing.T) {
	svc := new(MockMediaService)
	svc.On("Confirm", mock.Anything, testUser, "uploads/u1/a.jpg").Return(nil)
	svc.On("Confirm", mock.Anything, testUser, "uploads/u2/a.jpg").Return(services.ErrForeignMedia)

	r := mediaEngine(svc)
	assert.Equal(t, http.StatusAccepted, doJSON(r, http.MethodPost, "/v1/media/confirm", map[string]string{"key": "uploads/u1/a.jpg"}).Code)
	assert.Equal(t, http.StatusForbidden, doJSON(r, http.MethodPost, "/v1/media/confirm", map[string]string{"key": "uploads/u2/a.jpg"}).Code)
}
