package v1

import (
	"time"

	"github.com/stacklok/photofeed/internal/feed"
)

// HealthResponse represents the health and readiness responses
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// PostSummary is a post as listed by the feed endpoint. The image itself is
// served separately at ImageURL.
type PostSummary struct {
	ID          string    `json:"id"`
	Caption     string    `json:"caption"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"createdAt"`
	ImageURL    string    `json:"imageUrl"`
	ImageFormat string    `json:"imageFormat"`
	ImageBytes  int       `json:"imageBytes"`
}

// FeedResponse is the body of GET /v1/feed
type FeedResponse struct {
	Posts    []PostSummary       `json:"posts"`
	Failures []feed.AssetFailure `json:"failures,omitempty"`
	SyncedAt time.Time           `json:"syncedAt"`
}

// SubmitResponse is the body of a successful POST /v1/posts
type SubmitResponse struct {
	Message string        `json:"message"`
	Receipt *feed.Receipt `json:"receipt"`
}

// SessionResponse is the body of GET /v1/session
type SessionResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// LogoutResponse is the body of POST /v1/session/logout when the remote
// revocation failed after the local session was cleared
type LogoutResponse struct {
	Status  string `json:"status"`
	Warning string `json:"warning,omitempty"`
}
