// Package reconcile merges paginated conversation data into the list a client
// already holds. Every function here is pure and never fails on missing
// optional fields.
package reconcile

import (
	"sort"
	"strings"
	"time"

	"estatehub/gateway/internal/models"
)

// Merge overlays incoming onto existing by conversation id and returns the
// result ordered by last message time, newest first. Fields set on an incoming
// entry win; unset fields keep the existing value. Entries without an id are
// dropped since they cannot be keyed.
func Merge(existing, incoming []models.Conversation) []models.Conversation {
	byID := make(map[string]models.Conversation, len(existing)+len(incoming))
	order := make([]string, 0, len(existing)+len(incoming))

	put := func(c models.Conversation) {
		if c.ID == "" {
			return
		}
		if cur, ok := byID[c.ID]; ok {
			byID[c.ID] = overlay(cur, c)
			return
		}
		byID[c.ID] = c
		order = append(order, c.ID)
	}
	for _, c := range existing {
		put(c)
	}
	for _, c := range incoming {
		put(c)
	}

	out := make([]models.Conversation, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	sortByLastMessage(out)
	return out
}

// Remove returns list without the conversation identified by id.
func Remove(list []models.Conversation, id string) []models.Conversation {
	out := make([]models.Conversation, 0, len(list))
	for _, c := range list {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

// Update upserts item into list, merging its fields over any existing entry.
func Update(list []models.Conversation, item models.Conversation) []models.Conversation {
	return Merge(list, []models.Conversation{item})
}

// Find returns the conversation with the given id.
func Find(list []models.Conversation, id string) (models.Conversation, bool) {
	for _, c := range list {
		if c.ID == id {
			return c, true
		}
	}
	return models.Conversation{}, false
}

// overlay is a shallow merge: each top-level field of src that is set replaces
// the corresponding field of dst.
func overlay(dst, src models.Conversation) models.Conversation {
	if src.Participants != nil {
		dst.Participants = src.Participants
	}
	if src.Listing != "" {
		dst.Listing = src.Listing
	}
	if src.LastMessage != nil {
		dst.LastMessage = src.LastMessage
	}
	if src.UnreadCount != nil {
		dst.UnreadCount = src.UnreadCount
	}
	if src.CreatedAt != "" {
		dst.CreatedAt = src.CreatedAt
	}
	if src.UpdatedAt != "" {
		dst.UpdatedAt = src.UpdatedAt
	}
	return dst
}

func sortByLastMessage(list []models.Conversation) {
	keys := make(map[string]time.Time, len(list))
	for _, c := range list {
		keys[c.ID] = LastMessageTime(c)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return keys[list[i].ID].After(keys[list[j].ID])
	})
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// LastMessageTime returns the conversation's last message time, or the Unix
// epoch when it is missing or unparseable.
func LastMessageTime(c models.Conversation) time.Time {
	if c.LastMessage == nil {
		return time.Unix(0, 0).UTC()
	}
	return ParseTimestamp(c.LastMessage.CreatedAt)
}

// ParseTimestamp parses the timestamp formats the marketplace API emits.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Unix(0, 0).UTC()
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Unix(0, 0).UTC()
}
