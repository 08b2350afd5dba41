package services

import (
	"context"
	"io"
	"strings"

	"github.com/stretchr/testify/mock"

	"estatehub/gateway/internal/models"
)

type MockSnapshotService struct {
	mock.Mock
}

func (m *MockSnapshotService) Get(ctx context.Context, userID string) (*models.ClientSnapshot, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ClientSnapshot), args.Error(1)
}

func (m *MockSnapshotService) SaveConversations(ctx context.Context, userID string, revision int64, conversations []models.Conversation) error {
	return m.Called(ctx, userID, revision, conversations).Error(0)
}

func (m *MockSnapshotService) SaveProfile(ctx context.Context, userID string, profile *models.Profile) error {
	return m.Called(ctx, userID, profile).Error(0)
}

func (m *MockSnapshotService) Delete(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type MockConversationSource struct {
	mock.Mock
}

func (m *MockConversationSource) Conversations(ctx context.Context, page int) (*models.ConversationPage, error) {
	args := m.Called(ctx, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConversationPage), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) PublishConversations(ctx context.Context, userID string, conversations []models.Conversation) error {
	return m.Called(ctx, userID, conversations).Error(0)
}

type MockTaskEnqueuer struct {
	mock.Mock
}

func (m *MockTaskEnqueuer) EnqueueConversationSync(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockTaskEnqueuer) EnqueueMediaNormalize(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// MockSubmitter drains the request body so the encoder finishes, and records
// what it read.
type MockSubmitter struct {
	mock.Mock
	Bodies []string
}

func (m *MockSubmitter) drain(body io.Reader) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.Bodies = append(m.Bodies, string(b))
	return nil
}

func (m *MockSubmitter) CreateListing(ctx context.Context, contentType string, body io.Reader) (*models.Listing, error) {
	if err := m.drain(body); err != nil {
		return nil, err
	}
	args := m.Called(ctx, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockSubmitter) UpdateListing(ctx context.Context, id, contentType string, body io.Reader) (*models.Listing, error) {
	if err := m.drain(body); err != nil {
		return nil, err
	}
	args := m.Called(ctx, id, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockSubmitter) UpdateProfile(ctx context.Context, contentType string, body io.Reader) (*models.Profile, error) {
	if err := m.drain(body); err != nil {
		return nil, err
	}
	args := m.Called(ctx, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GeneratePresignedPutURL(ctx context.Context, userID, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, userID, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return io.NopCloser(strings.NewReader(args.String(0))), args.Error(1)
}

func (m *MockStorage) GetObject(ctx context.Context, key string) ([]byte, string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func (m *MockStorage) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	return m.Called(ctx, key, data, contentType).Error(0)
}

type MockLocationService struct {
	mock.Mock
}

func (m *MockLocationService) SearchLocations(ctx context.Context, query string, countryCode *string, limit int) ([]models.Location, error) {
	args := m.Called(ctx, query, countryCode, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Location), args.Error(1)
}

func (m *MockLocationService) ResolvePlace(ctx context.Context, place string) (*models.GeoPoint, error) {
	args := m.Called(ctx, place)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GeoPoint), args.Error(1)
}
