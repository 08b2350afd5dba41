package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"estatehub/gateway/internal/services"
)

// JsonApiRequest defines the expected structure for JSON API requests.
type JsonApiRequest struct {
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// JsonApiResponse defines the structure for JSON API responses.
type JsonApiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type ApiError struct {
	Message string
}

func (e *ApiError) Error() string {
	return e.Message
}

func NewApiError(message string) *ApiError {
	return &ApiError{Message: message}
}

type apiMethodFunc func(c *gin.Context, args json.RawMessage) (interface{}, *ApiError)

// JsonApiHandler serves the operator API on the service port. It is never
// exposed to app clients.
type JsonApiHandler struct {
	configService       services.IConfigService
	conversationService services.IConversationService
	feedService         services.IFeedService
	shutdownChan        chan<- struct{}
	logger              *zap.Logger
	methods             map[string]apiMethodFunc
}

func NewJsonApiHandler(
	configService services.IConfigService,
	conversationService services.IConversationService,
	feedService services.IFeedService,
	shutdownChan chan<- struct{},
	logger *zap.Logger,
) *JsonApiHandler {
	h := &JsonApiHandler{
		configService:       configService,
		conversationService: conversationService,
		feedService:         feedService,
		shutdownChan:        shutdownChan,
		logger:              logger,
	}
	h.methods = map[string]apiMethodFunc{
		"ping":                 h.ping,
		"shutdown":             h.shutdown,
		"getConfig":            h.getConfig,
		"setConfig":            h.setConfig,
		"reloadConfig":         h.reloadConfig,
		"refreshConversations": h.refreshConversations,
		"resetFeed":            h.resetFeed,
	}
	return h
}

func (h *JsonApiHandler) HandleRequest(c *gin.Context) {
	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var req JsonApiRequest
	if err := json.Unmarshal(bodyBytes, &req); err != nil {
		h.sendErrorResponse(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	handlerFunc, ok := h.methods[req.Method]
	if !ok {
		h.sendErrorResponse(c, http.StatusNotFound, fmt.Sprintf("Unknown service method: %s", req.Method))
		return
	}

	result, apiErr := handlerFunc(c, req.Arguments)
	if apiErr != nil {
		h.sendErrorResponse(c, http.StatusOK, apiErr.Message)
		return
	}
	c.JSON(http.StatusOK, JsonApiResponse{Success: true, Data: result})
}

func (h *JsonApiHandler) sendErrorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, JsonApiResponse{Success: false, Error: message})
}

func (h *JsonApiHandler) ping(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	return "pong", nil
}

func (h *JsonApiHandler) shutdown(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	h.logger.Info("received shutdown command via service API")
	select {
	case h.shutdownChan <- struct{}{}:
	default:
		h.logger.Info("shutdown already signalled")
	}
	return "Shutdown initiated", nil
}

func (h *JsonApiHandler) getConfig(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var key string
	if apiErr := parseArgs(args, &key); apiErr != nil {
		return nil, apiErr
	}
	v, err := h.configService.Get(c.Request.Context(), key)
	if err != nil {
		return nil, NewApiError(err.Error())
	}
	return v, nil
}

// setConfig takes [key, value]. A null value removes the override.
func (h *JsonApiHandler) setConfig(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var (
		key   string
		value interface{}
	)
	if apiErr := parseArgs(args, &key, &value); apiErr != nil {
		return nil, apiErr
	}
	if key == "" {
		return nil, NewApiError("Config key must not be empty")
	}
	if err := h.configService.SetConfigValue(c.Request.Context(), key, value); err != nil {
		h.logger.Error("failed to set config value", zap.String("key", key), zap.Error(err))
		return nil, NewApiError("Failed to set config value")
	}
	return true, nil
}

func (h *JsonApiHandler) reloadConfig(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	if err := h.configService.Load(c.Request.Context()); err != nil {
		h.logger.Error("failed to reload config", zap.Error(err))
		return nil, NewApiError("Failed to reload config")
	}
	return true, nil
}

func (h *JsonApiHandler) refreshConversations(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var userID string
	if apiErr := parseArgs(args, &userID); apiErr != nil {
		return nil, apiErr
	}
	if err := h.conversationService.RequestRefresh(c.Request.Context(), userID); err != nil {
		return nil, NewApiError(err.Error())
	}
	return true, nil
}

func (h *JsonApiHandler) resetFeed(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var userID string
	if apiErr := parseArgs(args, &userID); apiErr != nil {
		return nil, apiErr
	}
	st, err := h.feedService.Reset(c.Request.Context(), userID)
	if err != nil {
		return nil, NewApiError(err.Error())
	}
	return st, nil
}

// parseArgs decodes a positional 'arguments' array into targets, which must
// all be present.
func parseArgs(raw json.RawMessage, targets ...interface{}) *ApiError {
	if raw == nil {
		return NewApiError(fmt.Sprintf("Missing 'arguments' field; expected a JSON array with %d argument(s).", len(targets)))
	}
	var argArray []json.RawMessage
	if err := json.Unmarshal(raw, &argArray); err != nil {
		return NewApiError("Invalid 'arguments': expected a JSON array.")
	}
	if len(argArray) != len(targets) {
		return NewApiError(fmt.Sprintf("Invalid 'arguments': expected %d argument(s), got %d.", len(targets), len(argArray)))
	}
	for i, target := range targets {
		if err := json.Unmarshal(argArray[i], target); err != nil {
			return NewApiError(fmt.Sprintf("Invalid format for argument %d.", i+1))
		}
	}
	return nil
}
