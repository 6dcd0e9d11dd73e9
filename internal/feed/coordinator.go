package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoding for asset validation
	_ "image/jpeg" // register JPEG decoding for asset validation
	_ "image/png"  // register PNG decoding for asset validation
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/photofeed/internal/backend"
	"github.com/stacklok/photofeed/internal/otel"
	"github.com/stacklok/photofeed/internal/status"
	"github.com/stacklok/photofeed/internal/telemetry"
)

const dispatcherBuffer = 16

// Coordinator synchronizes the feed with the remote store
type Coordinator struct {
	client        backend.Client
	collection    string
	sortField     string
	maxConcurrent int

	metrics *telemetry.FeedMetrics
	tracer  trace.Tracer
	now     func() time.Time

	flightMu sync.Mutex
	flight   *syncFlight

	dispatcherOnce sync.Once
	dispatcher     Dispatcher
	ownDispatcher  *SerialDispatcher

	mu    sync.RWMutex
	phase status.SyncPhase
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithCollection sets the collection holding the posts
func WithCollection(name string) Option {
	return func(c *Coordinator) {
		if name != "" {
			c.collection = name
		}
	}
}

// WithSortField sets the field the query orders by, newest first
func WithSortField(field string) Option {
	return func(c *Coordinator) {
		if field != "" {
			c.sortField = field
		}
	}
}

// WithMaxConcurrentFetches caps the number of image fetches in flight. 0 means no cap.
func WithMaxConcurrentFetches(n int) Option {
	return func(c *Coordinator) {
		if n >= 0 {
			c.maxConcurrent = n
		}
	}
}

// WithDispatcher sets where SyncAsync continuations run.
// Without it, a SerialDispatcher owned by the coordinator is started on first use.
func WithDispatcher(d Dispatcher) Option {
	return func(c *Coordinator) {
		c.dispatcher = d
	}
}

// WithMetrics sets the feed metrics
func WithMetrics(metrics *telemetry.FeedMetrics) Option {
	return func(c *Coordinator) {
		c.metrics = metrics
	}
}

// WithTracer sets the tracer for sync spans
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Coordinator) {
		c.tracer = tracer
	}
}

// NewCoordinator creates a coordinator reading posts through client
func NewCoordinator(client backend.Client, opts ...Option) (*Coordinator, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client is required")
	}

	c := &Coordinator{
		client:     client,
		collection: DefaultCollection,
		sortField:  DefaultSortField,
		now:        time.Now,
		phase:      status.SyncPhaseIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Collection returns the name of the synchronized collection
func (c *Coordinator) Collection() string {
	return c.collection
}

// Phase returns the phase of the most recent sync
func (c *Coordinator) Phase() status.SyncPhase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

func (c *Coordinator) setPhase(phase status.SyncPhase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = phase
}

// Sync runs one synchronization and returns the consolidated result.
// A call made while another is in flight joins it and returns the same result.
// The shared run is canceled only once every caller waiting on it has left.
func (c *Coordinator) Sync(ctx context.Context) (*Result, error) {
	f, joined := c.joinFlight(ctx)
	defer c.leaveFlight(f)

	if joined {
		slog.DebugContext(ctx, "Joined in-flight feed sync", "collection", c.collection)
	}
	trace.SpanFromContext(ctx).SetAttributes(otel.AttrCoalesced.Bool(joined))

	select {
	case <-f.done:
		if f.err != nil {
			return nil, f.err
		}
		return f.result, nil
	case <-ctx.Done():
		return nil, newError(ErrorKindCanceled, "sync canceled", ctx.Err())
	}
}

// syncFlight is one sync run shared by every caller that overlaps it
type syncFlight struct {
	done   chan struct{}
	result *Result
	err    error

	cancel  context.CancelFunc
	waiters int
}

func (c *Coordinator) joinFlight(ctx context.Context) (*syncFlight, bool) {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()

	if f := c.flight; f != nil {
		f.waiters++
		return f, true
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f := &syncFlight{
		done:    make(chan struct{}),
		cancel:  cancel,
		waiters: 1,
	}
	c.flight = f
	go func() {
		defer close(f.done)
		defer cancel()
		f.result, f.err = c.sync(runCtx)
		c.detachFlight(f)
	}()
	return f, false
}

func (c *Coordinator) leaveFlight(f *syncFlight) {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if c.flight == f {
		c.flight = nil
	}
}

func (c *Coordinator) detachFlight(f *syncFlight) {
	c.flightMu.Lock()
	defer c.flightMu.Unlock()
	if c.flight == f {
		c.flight = nil
	}
}

// SyncAsync runs Sync in the background and hands its outcome to fn on the
// coordinator's dispatcher. It returns immediately.
func (c *Coordinator) SyncAsync(ctx context.Context, fn func(*Result, error)) {
	dispatcher := c.deliveryDispatcher()
	go func() {
		result, err := c.Sync(ctx)
		dispatcher.Dispatch(func() {
			fn(result, err)
		})
	}()
}

// Close stops the dispatcher the coordinator started for SyncAsync, if any,
// after the pending continuations have run.
func (c *Coordinator) Close() {
	c.dispatcherOnce.Do(func() {})
	if c.ownDispatcher != nil {
		c.ownDispatcher.Close()
	}
}

func (c *Coordinator) deliveryDispatcher() Dispatcher {
	c.dispatcherOnce.Do(func() {
		if c.dispatcher == nil {
			c.ownDispatcher = NewSerialDispatcher(dispatcherBuffer)
			c.dispatcher = c.ownDispatcher
		}
	})
	return c.dispatcher
}

func (c *Coordinator) sync(ctx context.Context) (*Result, error) {
	ctx, span := otel.StartSpan(ctx, c.tracer, "feed.Sync",
		trace.WithAttributes(otel.AttrCollection.String(c.collection)),
	)
	defer span.End()

	start := time.Now()
	c.setPhase(status.SyncPhaseSyncing)

	result, err := c.run(ctx)

	phase := status.SyncPhaseComplete
	switch {
	case err != nil:
		phase = status.SyncPhaseFailed
		otel.RecordError(span, err)
		slog.ErrorContext(ctx, "Feed sync failed", "collection", c.collection, "error", err)
	case result.Partial():
		phase = status.SyncPhasePartial
	}
	c.setPhase(phase)

	var posts, failures int
	if result != nil {
		posts, failures = len(result.Posts), len(result.Failures)
		span.SetAttributes(
			otel.AttrResultCount.Int(posts),
			otel.AttrFailureCount.Int(failures),
		)
		slog.InfoContext(ctx, "Feed sync finished",
			"collection", c.collection,
			"phase", phase,
			"posts", posts,
			"dropped", failures,
			"duration", time.Since(start))
	}
	c.metrics.RecordSync(ctx, c.collection, time.Since(start), string(phase), posts, failures)

	return result, err
}

// slot is the outcome of resolving one row; each fetch goroutine owns exactly one
type slot struct {
	record  PostRecord
	failure *AssetFailure
}

func (c *Coordinator) run(ctx context.Context) (*Result, error) {
	syncedAt := c.now()

	rows, err := c.client.QueryCollection(ctx, c.collection, c.sortField, true)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, newError(ErrorKindCanceled, "sync canceled", ctx.Err())
		}
		return nil, newError(ErrorKindQueryFailure, fmt.Sprintf("failed to query %s", c.collection), err)
	}

	trace.SpanFromContext(ctx).SetAttributes(otel.AttrRowCount.Int(len(rows)))
	if len(rows) == 0 {
		return &Result{Posts: []PostRecord{}, SyncedAt: syncedAt}, nil
	}

	slots := make([]slot, len(rows))

	var g errgroup.Group
	if c.maxConcurrent > 0 {
		g.SetLimit(c.maxConcurrent)
	}
	for i, row := range rows {
		g.Go(func() error {
			slots[i] = c.resolve(ctx, row, syncedAt)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, newError(ErrorKindCanceled, "sync canceled", err)
	}

	return assemble(ctx, slots, syncedAt), nil
}

// resolve fetches and checks the image of one row
func (c *Coordinator) resolve(ctx context.Context, row backend.RawRecord, syncedAt time.Time) slot {
	ctx, span := otel.StartSpan(ctx, c.tracer, "feed.ResolveAsset",
		trace.WithAttributes(otel.AttrPostID.String(row.ID)),
	)
	defer span.End()

	fail := func(reason string, err error) slot {
		assetErr := newError(ErrorKindAssetFetchFailure, reason, err)
		otel.RecordError(span, assetErr)
		slog.WarnContext(ctx, "Dropping post whose image did not resolve",
			"post_id", row.ID,
			"error", assetErr)
		if err != nil {
			reason = fmt.Sprintf("%s: %v", reason, err)
		}
		return slot{failure: &AssetFailure{PostID: row.ID, Reason: reason}}
	}

	if err := ctx.Err(); err != nil {
		return fail("sync canceled", err)
	}
	if row.ID == "" {
		return fail("row has no object id", nil)
	}

	ref, ok := row.Asset(backend.FieldPhoto)
	if !ok {
		return fail("row has no image reference", backend.ErrMissingAssetRef)
	}

	data, err := c.client.FetchAsset(ctx, ref)
	if err != nil {
		return fail("failed to fetch image", err)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fail("image payload is not decodable", err)
	}
	span.SetAttributes(attribute.String("image.format", format))

	createdAt := row.CreatedAt
	if createdAt.IsZero() {
		createdAt = syncedAt
	}

	return slot{record: PostRecord{
		ID:        row.ID,
		Caption:   row.String(backend.FieldCaption),
		Author:    row.String(backend.FieldUsername),
		CreatedAt: createdAt,
		Asset: Asset{
			Ref:    ref,
			Data:   data,
			Format: format,
		},
	}}
}

// assemble collects the resolved rows in query order, keeping the first row
// of any duplicated id
func assemble(ctx context.Context, slots []slot, syncedAt time.Time) *Result {
	result := &Result{
		Posts:    make([]PostRecord, 0, len(slots)),
		SyncedAt: syncedAt,
	}
	seen := make(map[string]struct{}, len(slots))

	for _, s := range slots {
		if s.failure != nil {
			result.Failures = append(result.Failures, *s.failure)
			continue
		}
		if _, dup := seen[s.record.ID]; dup {
			slog.WarnContext(ctx, "Discarding duplicate post", "post_id", s.record.ID)
			continue
		}
		seen[s.record.ID] = struct{}{}
		result.Posts = append(result.Posts, s.record)
	}
	return result
}
