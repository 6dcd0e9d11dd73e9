// Package inmemory provides an in-memory implementation of the FeedService interface
package inmemory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stacklok/photofeed/internal/backend"
	"github.com/stacklok/photofeed/internal/feed"
	"github.com/stacklok/photofeed/internal/service"
)

// DefaultCacheDuration is how long a synced feed is served before GetFeed syncs again
const DefaultCacheDuration = 5 * time.Minute

// Service implements the FeedService interface, caching the latest feed.
// Observe lets a background refresher keep the cache current.
type Service struct {
	syncer    service.Syncer
	submitter service.Submitter
	session   service.SessionProvider

	mu        sync.RWMutex // Protects result, index, lastFetch
	result    *feed.Result
	index     map[string]int
	lastFetch time.Time

	cacheDuration time.Duration
	now           func() time.Time
}

var _ service.FeedService = (*Service)(nil)

// Option is a functional option for configuring the Service
type Option func(*Service)

// WithCacheDuration sets how long a synced feed stays fresh
func WithCacheDuration(duration time.Duration) Option {
	return func(s *Service) {
		if duration > 0 {
			s.cacheDuration = duration
		}
	}
}

// New creates a feed service. No sync happens until the first request or Observe.
func New(
	syncer service.Syncer, submitter service.Submitter, session service.SessionProvider, opts ...Option,
) (*Service, error) {
	if syncer == nil {
		return nil, fmt.Errorf("syncer is required")
	}
	if submitter == nil {
		return nil, fmt.Errorf("submitter is required")
	}
	if session == nil {
		return nil, fmt.Errorf("session provider is required")
	}

	s := &Service{
		syncer:        syncer,
		submitter:     submitter,
		session:       session,
		cacheDuration: DefaultCacheDuration,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Observe records the outcome of a sync run elsewhere. Failed syncs keep the
// previous feed.
func (s *Service) Observe(result *feed.Result, err error) {
	if err != nil || result == nil {
		return
	}
	s.store(result)
}

func (s *Service) store(result *feed.Result) {
	index := make(map[string]int, len(result.Posts))
	for i, post := range result.Posts {
		index[post.ID] = i
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
	s.index = index
	s.lastFetch = s.now()
}

func (s *Service) cached() (*feed.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fresh := s.result != nil && s.now().Sub(s.lastFetch) <= s.cacheDuration
	return s.result, fresh
}

// CheckReadiness implements FeedService.CheckReadiness
func (s *Service) CheckReadiness(_ context.Context) error {
	if result, _ := s.cached(); result == nil {
		return service.ErrFeedNotLoaded
	}
	return nil
}

// GetFeed implements FeedService.GetFeed. A failed sync falls back to the
// stale feed when there is one.
func (s *Service) GetFeed(ctx context.Context) (*feed.Result, error) {
	result, fresh := s.cached()
	if fresh {
		return result, nil
	}

	synced, err := s.Refresh(ctx)
	if err != nil {
		if result != nil {
			slog.WarnContext(ctx, "Failed to refresh feed, serving cached posts", "error", err)
			return result, nil
		}
		return nil, err
	}
	return synced, nil
}

// Refresh implements FeedService.Refresh
func (s *Service) Refresh(ctx context.Context) (*feed.Result, error) {
	result, err := s.syncer.Sync(ctx)
	if err != nil {
		return nil, err
	}
	s.store(result)
	return result, nil
}

// GetPostImage implements FeedService.GetPostImage
func (s *Service) GetPostImage(_ context.Context, postID string) (*feed.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.result == nil {
		return nil, service.ErrFeedNotLoaded
	}
	i, ok := s.index[postID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", service.ErrPostNotFound, postID)
	}
	asset := s.result.Posts[i].Asset
	return &asset, nil
}

// SubmitPost implements FeedService.SubmitPost. The new post shows up after the next sync.
func (s *Service) SubmitPost(
	ctx context.Context, img []byte, caption, idempotencyKey string,
) (*feed.Receipt, error) {
	author, err := s.session.CurrentIdentity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load current user: %w", err)
	}

	var opts []feed.SubmitOption
	if idempotencyKey != "" {
		opts = append(opts, feed.WithIdempotencyKey(idempotencyKey))
	}
	return s.submitter.Submit(ctx, img, caption, author, opts...)
}

// CurrentUser implements FeedService.CurrentUser
func (s *Service) CurrentUser(ctx context.Context) (*backend.Identity, error) {
	return s.session.CurrentIdentity(ctx)
}

// LogOut implements FeedService.LogOut
func (s *Service) LogOut(ctx context.Context) error {
	return s.session.LogOut(ctx)
}
