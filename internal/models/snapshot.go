package models

import "time"

// CurrentSnapshotVersion is the schema version written by this build.
const CurrentSnapshotVersion = 2

// ClientSnapshot is the durable slice of a user's client state. Only the
// fields listed here survive restarts; the listing feed is deliberately absent.
type ClientSnapshot struct {
	UserID        string         `bson:"_id" json:"user_id"`
	SchemaVersion int            `bson:"schema_version" json:"schema_version"`
	Revision      int64          `bson:"revision" json:"revision"` // bumped on every conversations write
	Conversations []Conversation `bson:"conversations" json:"conversations"`
	Profile       *Profile       `bson:"profile,omitempty" json:"profile,omitempty"`
	UpdatedAt     time.Time      `bson:"updated_at" json:"updated_at"`
}
