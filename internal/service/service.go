// Package service provides the feed operations served by the local gateway
package service

import (
	"context"
	"errors"

	"github.com/stacklok/photofeed/internal/backend"
	"github.com/stacklok/photofeed/internal/feed"
)

var (
	// ErrPostNotFound is returned when a post is not part of the latest feed
	ErrPostNotFound = errors.New("post not found")

	// ErrFeedNotLoaded is returned when no sync has succeeded yet
	ErrFeedNotLoaded = errors.New("feed not loaded")
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go FeedService

// FeedService defines the feed operations exposed over HTTP
type FeedService interface {
	// CheckReadiness reports whether a feed has been loaded
	CheckReadiness(ctx context.Context) error

	// GetFeed returns the latest feed, syncing first when the cached one is stale
	GetFeed(ctx context.Context) (*feed.Result, error)

	// Refresh forces a sync and returns its result
	Refresh(ctx context.Context) (*feed.Result, error)

	// GetPostImage returns the resolved image of a post in the latest feed
	GetPostImage(ctx context.Context, postID string) (*feed.Asset, error)

	// SubmitPost stores a new post as the current user
	SubmitPost(ctx context.Context, img []byte, caption, idempotencyKey string) (*feed.Receipt, error)

	// CurrentUser returns the logged in identity, or nil
	CurrentUser(ctx context.Context) (*backend.Identity, error)

	// LogOut ends the current session
	LogOut(ctx context.Context) error
}

// Syncer runs feed synchronizations
type Syncer interface {
	Sync(ctx context.Context) (*feed.Result, error)
}

// Submitter stores posts
type Submitter interface {
	Submit(
		ctx context.Context, img []byte, caption string, author *backend.Identity, opts ...feed.SubmitOption,
	) (*feed.Receipt, error)
}

// SessionProvider gives access to the current session
type SessionProvider interface {
	CurrentIdentity(ctx context.Context) (*backend.Identity, error)
	LogOut(ctx context.Context) error
}
