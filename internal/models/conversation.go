package models

// MessageSnapshot is the denormalised last message shown in conversation lists.
// CreatedAt is kept as the wire string; ordering code parses it leniently.
type MessageSnapshot struct {
	ID        string `bson:"_id,omitempty" json:"_id,omitempty"`
	Text      string `bson:"text,omitempty" json:"text,omitempty"`
	Sender    string `bson:"sender,omitempty" json:"sender,omitempty"`
	CreatedAt string `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// Conversation is a two-party message thread. Optional fields are pointers or
// omitempty so that a partial update can be told apart from a zero value.
type Conversation struct {
	ID           string           `bson:"_id" json:"_id"`
	Participants []UserRef        `bson:"participants,omitempty" json:"participants,omitempty"`
	Listing      string           `bson:"listing,omitempty" json:"listing,omitempty"`
	LastMessage  *MessageSnapshot `bson:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	UnreadCount  *int             `bson:"unreadCount,omitempty" json:"unreadCount,omitempty"`
	CreatedAt    string           `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt    string           `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// HasValidParticipants reports whether the conversation is between exactly two
// distinct, non-empty identities.
func (c *Conversation) HasValidParticipants() bool {
	if len(c.Participants) != 2 {
		return false
	}
	a, b := c.Participants[0].ID, c.Participants[1].ID
	return a != "" && b != "" && a != b
}

// ConversationPage is one page of the upstream conversations endpoint.
type ConversationPage struct {
	Conversations []Conversation `json:"conversations"`
	HasMore       bool           `json:"hasMore"`
}
