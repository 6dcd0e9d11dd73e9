package feed

import (
	"time"

	"github.com/stacklok/photofeed/internal/backend"
)

// Default schema of the post collection.
const (
	DefaultCollection = "PhotoPost"
	DefaultSortField  = backend.FieldCreatedAt
)

// Asset is a resolved image
type Asset struct {
	Ref    backend.AssetRef `json:"ref"`
	Data   []byte           `json:"-"`
	Format string           `json:"format"`
}

// Size returns the payload length in bytes
func (a Asset) Size() int {
	return len(a.Data)
}

// PostRecord is a post whose image has been resolved.
// Records are built fresh per sync and never mutated afterwards.
type PostRecord struct {
	ID        string    `json:"id"`
	Caption   string    `json:"caption"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	Asset     Asset     `json:"asset"`
}

// AssetFailure describes a row dropped from a sync
type AssetFailure struct {
	PostID string `json:"postId"`
	Reason string `json:"reason"`
}

// Result is the consolidated outcome of a successful sync
type Result struct {
	// Posts are the resolved posts, newest first
	Posts []PostRecord `json:"posts"`

	// Failures lists the rows dropped because their image did not resolve
	Failures []AssetFailure `json:"failures,omitempty"`

	// SyncedAt is when the query was issued
	SyncedAt time.Time `json:"syncedAt"`
}

// Partial reports whether any row was dropped
func (r *Result) Partial() bool {
	return r != nil && len(r.Failures) > 0
}

// Receipt confirms a stored post
type Receipt struct {
	PostID         string           `json:"postId"`
	Asset          backend.AssetRef `json:"asset"`
	IdempotencyKey string           `json:"idempotencyKey"`
}
