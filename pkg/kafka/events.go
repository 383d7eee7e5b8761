package kafka

import "time"

// Engagement event types carried on the engagement_events topic
const (
	EventView    = "view"
	EventLike    = "like"
	EventUnlike  = "unlike"
	EventComment = "comment"
	EventShare   = "share"
	EventSave    = "save"
)

// EngagementEvent represents a single engagement event emitted by the
// routing/CRUD services when a user interacts with a post, flick or stream.
type EngagementEvent struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	EntityID      string    `json:"entity_id"`
	UserID        *string   `json:"user_id,omitempty"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
	SchemaVersion string    `json:"schema_version"`
}
