package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"estatehub/gateway/internal/storage"
	"estatehub/gateway/internal/transcode"
)

var (
	// ErrUnsupportedMedia is returned for uploads that are not images.
	ErrUnsupportedMedia = errors.New("only image uploads are supported")
	// ErrForeignMedia is returned when a key lies outside the caller's uploads.
	ErrForeignMedia = errors.New("media key does not belong to the user")
)

// PresignedUpload is what a client needs to PUT a photo directly to storage.
type PresignedUpload struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IMediaService issues upload URLs and schedules photo normalisation.
type IMediaService interface {
	Presign(ctx context.Context, userID, filename, contentType string) (*PresignedUpload, error)
	Confirm(ctx context.Context, userID, key string) error
}

type mediaService struct {
	storage storage.IS3Storage
	tasks   TaskEnqueuer
	logger  *zap.Logger
}

func NewMediaService(store storage.IS3Storage, tasks TaskEnqueuer, logger *zap.Logger) IMediaService {
	return &mediaService{storage: store, tasks: tasks, logger: logger}
}

func (s *mediaService) Presign(ctx context.Context, userID, filename, contentType string) (*PresignedUpload, error) {
	if contentType == "" {
		contentType = transcode.InferContentType(filename)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrUnsupportedMedia
	}
	url, key, err := s.storage.GeneratePresignedPutURL(ctx, userID, filename, contentType)
	if err != nil {
		return nil, err
	}
	return &PresignedUpload{URL: url, Key: key, ExpiresAt: time.Now().Add(storage.PresignExpiry).UTC()}, nil
}

func (s *mediaService) Confirm(ctx context.Context, userID, key string) error {
	if !strings.HasPrefix(key, storage.UserPrefix(userID)) {
		return ErrForeignMedia
	}
	if err := s.tasks.EnqueueMediaNormalize(ctx, key); err != nil {
		return err
	}
	s.logger.Debug("media normalisation queued", zap.String("user_id", userID), zap.String("key", key))
	return nil
}
