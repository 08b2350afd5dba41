package handlers_test

import (
	"context"
	"net/http"

	"github.com/stretchr/testify/mock"

	"estatehub/gateway/internal/feed"
	"estatehub/gateway/internal/models"
	"estatehub/gateway/internal/services"
)

// --- Mocks ---

type MockFeedService struct {
	mock.Mock
}

func (m *MockFeedService) Next(ctx context.Context, userID string, q services.LocationQuery) (*feed.Result, error) {
	args := m.Called(ctx, userID, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*feed.Result), args.Error(1)
}

func (m *MockFeedService) Reset(ctx context.Context, userID string) (*feed.State, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*feed.State), args.Error(1)
}

func (m *MockFeedService) Get(ctx context.Context, userID string) (*feed.State, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*feed.State), args.Error(1)
}

func (m *MockFeedService) Discard(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockFeedService) ResolveLocation(ctx context.Context, q services.LocationQuery) (*models.GeoPoint, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GeoPoint), args.Error(1)
}

type MockConversationService struct {
	mock.Mock
}

func (m *MockConversationService) List(ctx context.Context, userID string) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Conversation), args.Error(1)
}

func (m *MockConversationService) Find(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	args := m.Called(ctx, userID, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockConversationService) Sync(ctx context.Context, userID string, page int) (*services.SyncResult, error) {
	args := m.Called(ctx, userID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SyncResult), args.Error(1)
}

func (m *MockConversationService) SyncAll(ctx context.Context, userID string, maxPages int) (int, error) {
	args := m.Called(ctx, userID, maxPages)
	return args.Int(0), args.Error(1)
}

func (m *MockConversationService) RequestRefresh(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockConversationService) Update(ctx context.Context, userID string, conversation models.Conversation) ([]models.Conversation, error) {
	args := m.Called(ctx, userID, conversation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Conversation), args.Error(1)
}

func (m *MockConversationService) Remove(ctx context.Context, userID, conversationID string) ([]models.Conversation, error) {
	args := m.Called(ctx, userID, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Conversation), args.Error(1)
}

type MockStreamer struct {
	mock.Mock
}

func (m *MockStreamer) ServeWs(w http.ResponseWriter, r *http.Request, userID string, initial []models.Conversation) {
	m.Called(userID, initial)
	w.WriteHeader(http.StatusSwitchingProtocols)
}

type MockSubmissionService struct {
	mock.Mock
}

func (m *MockSubmissionService) SubmitListing(ctx context.Context, userID, listingID string, form models.ListingForm) (*models.Listing, error) {
	args := m.Called(ctx, userID, listingID, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockSubmissionService) UpdateProfile(ctx context.Context, userID string, form models.ProfileForm) (*models.Profile, error) {
	args := m.Called(ctx, userID, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockSubmissionService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

type MockMediaService struct {
	mock.Mock
}

func (m *MockMediaService) Presign(ctx context.Context, userID, filename, contentType string) (*services.PresignedUpload, error) {
	args := m.Called(ctx, userID, filename, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PresignedUpload), args.Error(1)
}

func (m *MockMediaService) Confirm(ctx context.Context, userID, key string) error {
	return m.Called(ctx, userID, key).Error(0)
}

// MockLocationService
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

// MockConfigService covers the calls the handlers make; anything else panics.
type MockConfigService struct {
	services.IConfigService
	mock.Mock
}

func (m *MockConfigService) Load(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockConfigService) Get(ctx context.Context, key string) (interface{}, error) {
	args := m.Called(ctx, key)
	return args.Get(0), args.Error(1)
}

func (m *MockConfigService) GetInt(ctx context.Context, key string, defaultValue int) int {
	args := m.Called(ctx, key, defaultValue)
	return args.Int(0)
}

func (m *MockConfigService) SetConfigValue(ctx context.Context, key string, value interface{}) error {
	return m.Called(ctx, key, value).Error(0)
}
