package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/photofeed/internal/api"
	"github.com/stacklok/photofeed/internal/backend"
	"github.com/stacklok/photofeed/internal/config"
	"github.com/stacklok/photofeed/internal/feed"
	"github.com/stacklok/photofeed/internal/feed/refresh"
	"github.com/stacklok/photofeed/internal/httpclient"
	"github.com/stacklok/photofeed/internal/service"
	"github.com/stacklok/photofeed/internal/service/inmemory"
	"github.com/stacklok/photofeed/internal/session"
	"github.com/stacklok/photofeed/internal/status"
	"github.com/stacklok/photofeed/internal/telemetry"
)

const (
	// Uploads go through the gateway, so requests may take as long as a backend call
	defaultRequestTimeout = 60 * time.Second
	defaultReadTimeout    = 30 * time.Second
	defaultWriteTimeout   = 75 * time.Second
	defaultIdleTimeout    = 60 * time.Second
)

// ComponentOption configures BuildComponents
type ComponentOption func(*componentConfig) error

type componentConfig struct {
	identityStore     backend.IdentityStore
	httpClient        httpclient.Client
	statusPersistence status.StatusPersistence
	instruments       *telemetry.Instruments
	tracer            trace.Tracer
	sinks             []refresh.Sink
}

// WithIdentityStore replaces the session store selected by the configuration
func WithIdentityStore(store backend.IdentityStore) ComponentOption {
	return func(cfg *componentConfig) error {
		if store == nil {
			return fmt.Errorf("identity store cannot be nil")
		}
		cfg.identityStore = store
		return nil
	}
}

// WithHTTPClient replaces the HTTP client used for the remote store
func WithHTTPClient(client httpclient.Client) ComponentOption {
	return func(cfg *componentConfig) error {
		if client == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		cfg.httpClient = client
		return nil
	}
}

// WithStatusPersistence replaces the file status persistence
func WithStatusPersistence(p status.StatusPersistence) ComponentOption {
	return func(cfg *componentConfig) error {
		cfg.statusPersistence = p
		return nil
	}
}

// WithInstruments enables feed and submission metrics
func WithInstruments(instruments *telemetry.Instruments) ComponentOption {
	return func(cfg *componentConfig) error {
		cfg.instruments = instruments
		return nil
	}
}

// WithTracer enables sync and submission spans
func WithTracer(tracer trace.Tracer) ComponentOption {
	return func(cfg *componentConfig) error {
		cfg.tracer = tracer
		return nil
	}
}

// WithRefreshSink adds a receiver for background refresh outcomes
func WithRefreshSink(sink refresh.Sink) ComponentOption {
	return func(cfg *componentConfig) error {
		if sink != nil {
			cfg.sinks = append(cfg.sinks, sink)
		}
		return nil
	}
}

// BuildComponents wires the remote client, feed operations and background
// refresh described by cfg. Nothing touches the network until used.
func BuildComponents(cfg *config.Config, opts ...ComponentOption) (*Components, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	b := &componentConfig{}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	if b.identityStore == nil {
		kind, path := cfg.GetSessionStore()
		store, err := session.NewStore(session.Kind(kind), path)
		if err != nil {
			return nil, fmt.Errorf("failed to create session store: %w", err)
		}
		b.identityStore = store
	}
	if b.httpClient == nil {
		b.httpClient = httpclient.NewDefaultClient(cfg.Backend.GetTimeout())
	}

	apiKey, err := cfg.Backend.GetRESTAPIKey()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve REST API key: %w", err)
	}
	client, err := backend.NewParseClient(backend.ParseConfig{
		ServerURL:     cfg.Backend.ServerURL,
		ApplicationID: cfg.Backend.ApplicationID,
		RESTAPIKey:    apiKey,
		QueryLimit:    cfg.Backend.QueryLimit,
	}, b.httpClient, b.identityStore)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	feedCfg := cfg.GetFeed()
	coordOpts := []feed.Option{
		feed.WithCollection(feedCfg.Collection),
		feed.WithSortField(feedCfg.SortField),
		feed.WithMaxConcurrentFetches(feedCfg.MaxConcurrentFetches),
		feed.WithTracer(b.tracer),
	}
	submitOpts := []feed.SubmitterOption{
		feed.WithSubmitCollection(feedCfg.Collection),
		feed.WithSubmitTracer(b.tracer),
	}
	if b.instruments != nil {
		coordOpts = append(coordOpts, feed.WithMetrics(b.instruments.Feed))
		submitOpts = append(submitOpts, feed.WithSubmissionMetrics(b.instruments.Submission))
	}

	coordinator, err := feed.NewCoordinator(client, coordOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed coordinator: %w", err)
	}
	submitter, err := feed.NewSubmitter(client, submitOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create post submitter: %w", err)
	}

	interval := feedCfg.GetRefreshInterval()
	svc, err := inmemory.New(coordinator, submitter, client, inmemory.WithCacheDuration(interval))
	if err != nil {
		return nil, fmt.Errorf("failed to create feed service: %w", err)
	}

	if b.statusPersistence == nil {
		b.statusPersistence = status.NewFileStatusPersistence(feedCfg.GetStatusDir())
	}

	sinks := append([]refresh.Sink{svc.Observe}, b.sinks...)
	refresher := refresh.New(coordinator, b.statusPersistence,
		refresh.WithInterval(interval),
		refresh.WithSink(func(result *feed.Result, err error) {
			for _, sink := range sinks {
				sink(result, err)
			}
		}),
	)

	slog.Debug("Components initialized",
		"server_url", cfg.Backend.ServerURL,
		"collection", feedCfg.Collection,
		"refresh_interval", interval)

	return &Components{
		Client:      client,
		Coordinator: coordinator,
		Submitter:   submitter,
		Service:     svc,
		Refresher:   refresher,
		Status:      b.statusPersistence,
	}, nil
}

// GatewayAppOption configures NewGatewayApp
type GatewayAppOption func(*gatewayAppConfig) error

type gatewayAppConfig struct {
	config     *config.Config
	components *Components
	telemetry  *telemetry.Telemetry

	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration
}

func baseConfig(opts ...GatewayAppOption) (*gatewayAppConfig, error) {
	cfg := &gatewayAppConfig{
		address:        config.DefaultGatewayAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) GatewayAppOption {
	return func(cfg *gatewayAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the listen address, "host:port"
func WithAddress(addr string) GatewayAppOption {
	return func(cfg *gatewayAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}
		if _, port, err := net.SplitHostPort(addr); err != nil || port == "" {
			return fmt.Errorf("address is not a valid host:port: %s", addr)
		}
		cfg.address = addr
		return nil
	}
}

// WithMiddlewares replaces the default middleware chain
func WithMiddlewares(mw ...func(http.Handler) http.Handler) GatewayAppOption {
	return func(cfg *gatewayAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithComponents injects prebuilt components instead of building them from the configuration
func WithComponents(c *Components) GatewayAppOption {
	return func(cfg *gatewayAppConfig) error {
		cfg.components = c
		return nil
	}
}

// WithTelemetry enables HTTP metrics and tracing and instruments the feed operations
func WithTelemetry(t *telemetry.Telemetry) GatewayAppOption {
	return func(cfg *gatewayAppConfig) error {
		cfg.telemetry = t
		return nil
	}
}

// NewGatewayApp builds the gateway server and its background refresh
func NewGatewayApp(ctx context.Context, opts ...GatewayAppOption) (*GatewayApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	var httpMetrics *telemetry.HTTPMetrics
	if cfg.components == nil {
		if cfg.config == nil {
			return nil, fmt.Errorf("config cannot be nil")
		}
		var componentOpts []ComponentOption
		if cfg.telemetry != nil {
			instruments, err := cfg.telemetry.Instruments()
			if err != nil {
				return nil, err
			}
			httpMetrics = instruments.HTTP
			componentOpts = append(componentOpts,
				WithInstruments(instruments),
				WithTracer(cfg.telemetry.Tracer()))
		}
		cfg.components, err = BuildComponents(cfg.config, componentOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to build components: %w", err)
		}
	}

	httpServer := buildHTTPServer(cfg, cfg.components.Service, httpMetrics)

	appCtx, cancel := context.WithCancel(ctx)
	return &GatewayApp{
		config:     cfg.config,
		components: cfg.components,
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancel,
	}, nil
}

// buildHTTPServer builds the HTTP server with router and middleware
func buildHTTPServer(
	b *gatewayAppConfig, svc service.FeedService, httpMetrics *telemetry.HTTPMetrics,
) *http.Server {
	middlewares := b.middlewares
	if middlewares == nil {
		middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Tracing and metrics go first so they see every request
	var instrumentation []func(http.Handler) http.Handler
	if b.telemetry != nil {
		instrumentation = append(instrumentation, telemetry.TracingMiddleware(b.telemetry.TracerProvider()))
	}
	if httpMetrics != nil {
		instrumentation = append(instrumentation, httpMetrics.Middleware)
	}
	middlewares = append(instrumentation, middlewares...)

	serverOpts := []api.ServerOption{api.WithMiddlewares(middlewares...)}
	if b.config != nil {
		serverOpts = append(serverOpts, api.WithMaxUploadSize(b.config.GetGateway().MaxUploadSize))
	}

	router := api.NewServer(svc, serverOpts...)
	if b.telemetry != nil {
		if metricsHandler := b.telemetry.MetricsHandler(); metricsHandler != nil {
			router.Handle("/metrics", metricsHandler)
		}
	}

	return &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}
}
