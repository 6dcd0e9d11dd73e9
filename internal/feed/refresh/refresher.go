package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/stacklok/photofeed/internal/feed"
	"github.com/stacklok/photofeed/internal/status"
)

const (
	// DefaultInterval is the time between two successful refreshes
	DefaultInterval = 5 * time.Minute

	// DefaultJitter is the maximum random offset applied to the interval
	DefaultJitter = 15 * time.Second

	// maxBackoffIntervals caps the failure backoff at this many intervals
	maxBackoffIntervals = 4

	// maxInitialBackoff caps the first retry delay after a failure
	maxInitialBackoff = 10 * time.Second
)

// Syncer runs one feed synchronization
//
//go:generate mockgen -destination=mocks/mock_syncer.go -package=mocks github.com/stacklok/photofeed/internal/feed/refresh Syncer
type Syncer interface {
	Sync(ctx context.Context) (*feed.Result, error)
	Collection() string
}

// Sink receives the outcome of every refresh
type Sink func(result *feed.Result, err error)

// Refresher periodically syncs a feed
type Refresher struct {
	syncer      Syncer
	persistence status.StatusPersistence

	interval time.Duration
	jitter   time.Duration
	sink     Sink
	backoff  *backoff.ExponentialBackOff

	// Lifecycle management
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// Option configures a Refresher
type Option func(*Refresher)

// WithInterval sets the time between successful refreshes
func WithInterval(interval time.Duration) Option {
	return func(r *Refresher) {
		if interval > 0 {
			r.interval = interval
		}
	}
}

// WithJitter sets the maximum random offset applied to the interval. 0 disables jitter.
func WithJitter(jitter time.Duration) Option {
	return func(r *Refresher) {
		if jitter >= 0 {
			r.jitter = jitter
		}
	}
}

// WithSink sets the callback receiving each refresh outcome
func WithSink(sink Sink) Option {
	return func(r *Refresher) {
		r.sink = sink
	}
}

// New creates a refresher for syncer. persistence may be nil to skip status tracking.
func New(syncer Syncer, persistence status.StatusPersistence, opts ...Option) *Refresher {
	r := &Refresher{
		syncer:      syncer,
		persistence: persistence,
		interval:    DefaultInterval,
		jitter:      DefaultJitter,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.jitter >= r.interval {
		r.jitter = r.interval / 2
	}

	r.backoff = backoff.NewExponentialBackOff()
	r.backoff.InitialInterval = min(r.interval, maxInitialBackoff)
	r.backoff.MaxInterval = maxBackoffIntervals * r.interval
	return r
}

// nextInterval returns the regular interval with a random jitter applied
func (r *Refresher) nextInterval() time.Duration {
	if r.jitter == 0 {
		return r.interval
	}
	//nolint:gosec // G404: Non-cryptographic randomness is sufficient for refresh jitter
	offset := time.Duration(rand.Int64N(int64(2*r.jitter))) - r.jitter
	return r.interval + offset
}

// Start syncs immediately and then on schedule.
// Blocks until ctx is cancelled or Stop is called.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.done != nil {
		r.mu.Unlock()
		return fmt.Errorf("refresher already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancelFunc = cancel
	r.done = make(chan struct{})
	done := r.done
	r.mu.Unlock()

	collection := r.syncer.Collection()
	slog.Info("Starting feed refresher",
		"collection", collection,
		"interval", r.interval,
		"jitter", r.jitter)
	defer func() {
		cancel()
		close(done)
		slog.Info("Feed refresher shut down", "collection", collection)
	}()

	timer := time.NewTimer(r.refresh(runCtx))
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			timer.Reset(r.refresh(runCtx))
		case <-runCtx.Done():
			return nil
		}
	}
}

// Stop cancels the loop and waits for the in-progress refresh to finish
func (r *Refresher) Stop() error {
	r.mu.Lock()
	cancel, done := r.cancelFunc, r.done
	r.mu.Unlock()

	if cancel != nil {
		slog.Info("Stopping feed refresher")
		cancel()
		<-done
	}
	return nil
}

// refresh performs one sync and returns the delay before the next one
func (r *Refresher) refresh(ctx context.Context) time.Duration {
	collection := r.syncer.Collection()

	previous := r.loadStatus(ctx, collection)
	attemptAt := time.Now()

	// Default to a failure in case the sync panics past us
	syncStatus := &status.SyncStatus{
		Phase:           status.SyncPhaseFailed,
		Message:         "Unexpected failure while refreshing the feed",
		LastAttempt:     &attemptAt,
		AttemptCount:    previous.AttemptCount + 1,
		LastSyncTime:    previous.LastSyncTime,
		PostCount:       previous.PostCount,
		RefreshInterval: r.interval.String(),
	}
	defer r.saveStatus(ctx, collection, syncStatus)

	result, err := r.syncer.Sync(ctx)
	if ctx.Err() != nil {
		// Stopped mid-sync; do not report or back off
		syncStatus.Phase = previous.Phase
		syncStatus.Message = "Refresh interrupted by shutdown"
		syncStatus.AttemptCount = previous.AttemptCount
		return r.interval
	}

	if r.sink != nil {
		r.sink(result, err)
	}

	if err != nil {
		syncStatus.Message = err.Error()
		wait := r.backoff.NextBackOff()
		slog.Warn("Feed refresh failed",
			"collection", collection,
			"attempt", syncStatus.AttemptCount,
			"retry_in", wait,
			"error", err)
		return wait
	}

	now := time.Now()
	syncStatus.Phase = status.SyncPhaseComplete
	syncStatus.Message = "Feed refreshed"
	if result.Partial() {
		syncStatus.Phase = status.SyncPhasePartial
		syncStatus.Message = fmt.Sprintf("%d post(s) dropped because their image did not load", len(result.Failures))
	}
	syncStatus.AttemptCount = 0
	syncStatus.LastSyncTime = &now
	syncStatus.PostCount = len(result.Posts)
	syncStatus.FailedAssetCount = len(result.Failures)

	r.backoff.Reset()
	return r.nextInterval()
}

func (r *Refresher) loadStatus(ctx context.Context, collection string) *status.SyncStatus {
	if r.persistence == nil {
		return &status.SyncStatus{Phase: status.SyncPhaseIdle}
	}
	previous, err := r.persistence.LoadStatus(ctx, collection)
	if err != nil {
		slog.Warn("Failed to load feed status, starting fresh", "collection", collection, "error", err)
		return &status.SyncStatus{Phase: status.SyncPhaseIdle}
	}
	return previous
}

func (r *Refresher) saveStatus(ctx context.Context, collection string, syncStatus *status.SyncStatus) {
	if r.persistence == nil {
		return
	}
	// Persist even when ctx was cancelled by shutdown
	if err := r.persistence.SaveStatus(context.WithoutCancel(ctx), collection, syncStatus); err != nil {
		slog.Error("Error updating feed status", "collection", collection, "error", err)
	}
}
