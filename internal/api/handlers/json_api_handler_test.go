package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"estatehub/gateway/internal/api/handlers"
	"estatehub/gateway/internal/feed"
)

type serviceFixture struct {
	cfg      *MockConfigService
	convs    *MockConversationService
	feed     *MockFeedService
	shutdown chan struct{}
	router   http.Handler
}

func newServiceFixture() *serviceFixture {
	gin.SetMode(gin.TestMode)
	f := &serviceFixture{
		cfg:      new(MockConfigService),
		convs:    new(MockConversationService),
		feed:     new(MockFeedService),
		shutdown: make(chan struct{}, 1),
	}
	h := handlers.NewJsonApiHandler(f.cfg, f.convs, f.feed, f.shutdown, zap.NewNop())
	r := gin.New()
	r.POST("/api", h.HandleRequest)
	f.router = r
	return f
}

func decodeApiResponse(t *testing.T, body []byte) handlers.JsonApiResponse {
	t.Helper()
	var resp handlers.JsonApiResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestJsonApiHandler_Shutdown(t *testing.T) {
	f := newServiceFixture()

	w := doJSON(f.router, http.MethodPost, "/api", `{"method":"shutdown"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeApiResponse(t, w.Body.Bytes()).Success)

	select {
	case <-f.shutdown:
	default:
		t.Fatal("shutdown was not signalled")
	}

	// A second call must not block on the full channel.
	f.shutdown <- struct{}{}
	w = doJSON(f.router, http.MethodPost, "/api", `{"method":"shutdown"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJsonApiHandler_UnknownMethodAndBadBody(t *testing.T) {
	f := newServiceFixture()
	assert.Equal(t, http.StatusNotFound, doJSON(f.router, http.MethodPost, "/api", `{"method":"nope"}`).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(f.router, http.MethodPost, "/api", `{`).Code)
}

func TestJsonApiHandler_SetConfig(t *testing.T) {
	f := newServiceFixture()
	f.cfg.On("SetConfigValue", mock.Anything, "FEED_PAGE_SIZE", float64(50)).Return(nil)
	f.cfg.On("SetConfigValue", mock.Anything, "NEARBY_RADIUS_KM", nil).Return(nil)

	w := doJSON(f.router, http.MethodPost, "/api", `{"method":"setConfig","arguments":["FEED_PAGE_SIZE",50]}`)
	assert.True(t, decodeApiResponse(t, w.Body.Bytes()).Success)

	w = doJSON(f.router, http.MethodPost, "/api", `{"method":"setConfig","arguments":["NEARBY_RADIUS_KM",null]}`)
	assert.True(t, decodeApiResponse(t, w.Body.Bytes()).Success)

	w = doJSON(f.router, http.MethodPost, "/api", `{"method":"setConfig","arguments":["only-key"]}`)
	resp := decodeApiResponse(t, w.Body.Bytes())
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "expected 2 argument(s)")

	f.cfg.AssertExpectations(t)
}

func TestJsonApiHandler_GetAndReloadConfig(t *testing.T) {
	f := newServiceFixture()
	f.cfg.On("Get", mock.Anything, "FEED_PAGE_SIZE").Return(int32(30), nil)
	f.cfg.On("Load", mock.Anything).Return(nil)

	resp := decodeApiResponse(t, doJSON(f.router, http.MethodPost, "/api", `{"method":"getConfig","arguments":["FEED_PAGE_SIZE"]}`).Body.Bytes())
	assert.True(t, resp.Success)
	assert.Equal(t, float64(30), resp.Data)

	resp = decodeApiResponse(t, doJSON(f.router, http.MethodPost, "/api", `{"method":"reloadConfig"}`).Body.Bytes())
	assert.True(t, resp.Success)
}

func TestJsonApiHandler_UserOperations(t *testing.T) {
	f := newServiceFixture()
	f.convs.On("RequestRefresh", mock.Anything, "u5").Return(nil)
	f.feed.On("Reset", mock.Anything, "u5").Return(feed.NewState(), nil)

	resp := decodeApiResponse(t, doJSON(f.router, http.MethodPost, "/api", `{"method":"refreshConversations","arguments":["u5"]}`).Body.Bytes())
	assert.True(t, resp.Success)

	resp = decodeApiResponse(t, doJSON(f.router, http.MethodPost, "/api", `{"method":"resetFeed","arguments":["u5"]}`).Body.Bytes())
	assert.True(t, resp.Success)

	f.convs.AssertExpectations(t)
	f.feed.AssertExpectations(t)
}
