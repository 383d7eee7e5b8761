// Package tallyman defines the request/response types for the Tallyman
// engagement API. These are the wire types consumed by the routing layer and
// any service clients; internal packages keep their own model types.
package tallyman

import "time"

// CountResponse is returned by counter increment/decrement
type CountResponse struct {
	Count int64 `json:"count"`
}

// CountersResponse is returned by the counter read endpoint
type CountersResponse struct {
	Counts map[string]int64 `json:"counts"`
}

// RegisterRequest registers a viewer session on a stream
type RegisterRequest struct {
	OwnerID   string `json:"owner_id" binding:"required"`
	SessionID string `json:"session_id" binding:"required"`
}

// SessionRequest addresses an existing viewer session
type SessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// ViewerCountResponse is returned by all presence mutations
type ViewerCountResponse struct {
	ViewerCount int `json:"viewer_count"`
}

// SessionInfo describes one active viewer session
type SessionInfo struct {
	OwnerID         string    `json:"owner_id"`
	LastHeartbeatAt time.Time `json:"last_heartbeat_at"`
}

// PresenceResponse is returned by the presence read endpoint
type PresenceResponse struct {
	Count    int           `json:"count"`
	Sessions []SessionInfo `json:"sessions"`
}

// EngagementCounts carries raw engagement aggregates for a candidate
type EngagementCounts struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
	Saves    int64 `json:"saves"`
}

// FeedCandidate is a raw content item supplied by the candidate source,
// already joined with engagement aggregates and social-graph flags
type FeedCandidate struct {
	ID                   string           `json:"id"`
	AuthorID             string           `json:"author_id"`
	CreatedAt            time.Time        `json:"created_at"`
	Engagement           EngagementCounts `json:"engagement"`
	IsFromFollowedAuthor bool             `json:"is_from_followed_author"`
	IsVerifiedAuthor     bool             `json:"is_verified_author"`
}

// FeedRequest asks for one ranked, diversified feed page
type FeedRequest struct {
	ViewerID   string          `json:"viewer_id" binding:"required"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	Candidates []FeedCandidate `json:"candidates" binding:"required"`
}

// FeedItem is a scored candidate in its final page position
type FeedItem struct {
	FeedCandidate
	Score float64 `json:"score"`
}

// FeedResponse is one page of the viewer's feed
type FeedResponse struct {
	Items   []FeedItem `json:"items"`
	HasMore bool       `json:"has_more"`
}
