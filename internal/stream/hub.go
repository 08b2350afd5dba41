// Package stream pushes reconciled conversation lists to websocket clients.
// Updates travel over Redis pub/sub so every gateway instance can deliver to
// the sockets it holds.
package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"estatehub/gateway/internal/models"
)

const updatesChannel = "conversations:updates"

// Update is the message sent to a user's sockets.
type Update struct {
	UserID        string                `json:"userId"`
	Conversations []models.Conversation `json:"conversations"`
}

// Hub tracks connected clients per user.
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan Update
	done       chan struct{}
	rdb        *redis.Client
	logger     *zap.Logger
}

// NewHub creates a hub. With a nil rdb updates are delivered in-process only.
func NewHub(rdb *redis.Client, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Update),
		done:       make(chan struct{}),
		rdb:        rdb,
		logger:     logger,
	}
}

// Run owns the client table until ctx is cancelled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = map[string]map[*Client]bool{}
			return

		case c := <-h.register:
			set, ok := h.clients[c.userID]
			if !ok {
				set = make(map[*Client]bool)
				h.clients[c.userID] = set
			}
			set[c] = true

		case c := <-h.unregister:
			h.drop(c)

		case u := <-h.broadcast:
			msg, err := json.Marshal(u)
			if err != nil {
				h.logger.Error("failed to encode conversation update", zap.Error(err))
				continue
			}
			for c := range h.clients[u.UserID] {
				select {
				case c.send <- msg:
				default:
					// Slow consumer; it reconnects and gets the full list.
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	set, ok := h.clients[c.userID]
	if !ok || !set[c] {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

// SubscribeToRedis forwards updates published by any instance to local
// clients. It returns when ctx is cancelled.
func (h *Hub) SubscribeToRedis(ctx context.Context) error {
	if h.rdb == nil {
		return nil
	}
	pubsub := h.rdb.Subscribe(ctx, updatesChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to subscribe to %s: %w", updatesChannel, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var u Update
			if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
				h.logger.Warn("dropping malformed conversation update", zap.Error(err))
				continue
			}
			h.deliver(ctx, u)
		}
	}
}

func (h *Hub) deliver(ctx context.Context, u Update) {
	select {
	case h.broadcast <- u:
	case <-h.done:
	case <-ctx.Done():
	}
}

// PublishConversations announces a user's new list to every instance.
func (h *Hub) PublishConversations(ctx context.Context, userID string, conversations []models.Conversation) error {
	u := Update{UserID: userID, Conversations: conversations}
	if h.rdb == nil {
		h.deliver(ctx, u)
		return nil
	}
	payload, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode conversation update: %w", err)
	}
	if err := h.rdb.Publish(ctx, updatesChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish conversation update: %w", err)
	}
	return nil
}
