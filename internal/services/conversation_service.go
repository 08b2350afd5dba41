package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"estatehub/gateway/internal/models"
	"estatehub/gateway/internal/reconcile"
)

// ConversationSource is the upstream conversations API.
type ConversationSource interface {
	Conversations(ctx context.Context, page int) (*models.ConversationPage, error)
}

// ConversationNotifier fans a user's reconciled list out to live streams.
type ConversationNotifier interface {
	PublishConversations(ctx context.Context, userID string, conversations []models.Conversation) error
}

// TaskEnqueuer schedules background work.
type TaskEnqueuer interface {
	EnqueueConversationSync(ctx context.Context, userID string) error
	EnqueueMediaNormalize(ctx context.Context, key string) error
}

// SyncResult reports one page of a conversation sync.
type SyncResult struct {
	Page          int                   `json:"page"`
	Fetched       int                   `json:"fetched"`
	HasMore       bool                  `json:"hasMore"`
	Conversations []models.Conversation `json:"conversations"`
}

// IConversationService holds each user's reconciled conversation list.
type IConversationService interface {
	List(ctx context.Context, userID string) ([]models.Conversation, error)
	Find(ctx context.Context, userID, conversationID string) (*models.Conversation, error)
	Sync(ctx context.Context, userID string, page int) (*SyncResult, error)
	// SyncAll pulls pages until upstream reports no more or maxPages is hit.
	SyncAll(ctx context.Context, userID string, maxPages int) (int, error)
	RequestRefresh(ctx context.Context, userID string) error
	Update(ctx context.Context, userID string, conversation models.Conversation) ([]models.Conversation, error)
	Remove(ctx context.Context, userID, conversationID string) ([]models.Conversation, error)
}

type conversationService struct {
	source    ConversationSource
	snapshots ISnapshotService
	notifier  ConversationNotifier
	tasks     TaskEnqueuer
	logger    *zap.Logger
}

func NewConversationService(source ConversationSource, snapshots ISnapshotService, notifier ConversationNotifier, tasks TaskEnqueuer, logger *zap.Logger) IConversationService {
	return &conversationService{
		source:    source,
		snapshots: snapshots,
		notifier:  notifier,
		tasks:     tasks,
		logger:    logger,
	}
}

func (s *conversationService) List(ctx context.Context, userID string) ([]models.Conversation, error) {
	snap, err := s.snapshots.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return snap.Conversations, nil
}

func (s *conversationService) Find(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	list, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	c, ok := reconcile.Find(list, conversationID)
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// conversationWriteAttempts bounds how often a list change is replayed after
// losing to a concurrent write.
const conversationWriteAttempts = 5

// mutate applies change to the stored list and writes the result back against
// the revision it was read at. When another write got there first, change is
// replayed on the newer list, so an overlapping sync cannot bring back a
// removed conversation. change must not modify its argument.
func (s *conversationService) mutate(ctx context.Context, userID string, change func([]models.Conversation) ([]models.Conversation, error)) ([]models.Conversation, error) {
	for attempt := 1; ; attempt++ {
		snap, err := s.snapshots.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		list, err := change(snap.Conversations)
		if err != nil {
			return nil, err
		}
		err = s.snapshots.SaveConversations(ctx, userID, snap.Revision, list)
		if errors.Is(err, ErrSnapshotConflict) && attempt < conversationWriteAttempts {
			s.logger.Debug("conversation list changed underneath, replaying",
				zap.String("user_id", userID), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, err
		}
		s.publish(ctx, userID, list)
		return list, nil
	}
}

// publish notifies streams. A failed notification is logged only; the next
// change carries the full list again.
func (s *conversationService) publish(ctx context.Context, userID string, list []models.Conversation) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishConversations(ctx, userID, list); err != nil {
		s.logger.Warn("failed to publish conversation update", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *conversationService) Sync(ctx context.Context, userID string, page int) (*SyncResult, error) {
	if page < 1 {
		page = 1
	}
	resp, err := s.source.Conversations(ctx, page)
	if err != nil {
		return nil, err
	}
	for i := range resp.Conversations {
		if c := &resp.Conversations[i]; !c.HasValidParticipants() {
			s.logger.Warn("conversation has unexpected participants",
				zap.String("user_id", userID), zap.String("conversation_id", c.ID), zap.Int("participants", len(c.Participants)))
		}
	}

	merged, err := s.mutate(ctx, userID, func(existing []models.Conversation) ([]models.Conversation, error) {
		return reconcile.Merge(existing, resp.Conversations), nil
	})
	if err != nil {
		return nil, err
	}

	return &SyncResult{
		Page:          page,
		Fetched:       len(resp.Conversations),
		HasMore:       resp.HasMore,
		Conversations: merged,
	}, nil
}

func (s *conversationService) SyncAll(ctx context.Context, userID string, maxPages int) (int, error) {
	if maxPages < 1 {
		maxPages = 1
	}
	pages := 0
	for page := 1; page <= maxPages; page++ {
		res, err := s.Sync(ctx, userID, page)
		if err != nil {
			return pages, fmt.Errorf("conversation sync stopped at page %d: %w", page, err)
		}
		pages++
		if !res.HasMore {
			return pages, nil
		}
	}
	s.logger.Info("conversation sync hit page limit", zap.String("user_id", userID), zap.Int("max_pages", maxPages))
	return pages, nil
}

func (s *conversationService) RequestRefresh(ctx context.Context, userID string) error {
	if s.tasks == nil {
		return fmt.Errorf("background tasks are not configured")
	}
	return s.tasks.EnqueueConversationSync(ctx, userID)
}

func (s *conversationService) Update(ctx context.Context, userID string, conversation models.Conversation) ([]models.Conversation, error) {
	return s.mutate(ctx, userID, func(list []models.Conversation) ([]models.Conversation, error) {
		return reconcile.Update(list, conversation), nil
	})
}

func (s *conversationService) Remove(ctx context.Context, userID, conversationID string) ([]models.Conversation, error) {
	return s.mutate(ctx, userID, func(list []models.Conversation) ([]models.Conversation, error) {
		if _, ok := reconcile.Find(list, conversationID); !ok {
			return nil, ErrNotFound
		}
		return reconcile.Remove(list, conversationID), nil
	})
}
