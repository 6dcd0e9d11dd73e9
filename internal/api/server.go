// Package api provides the local HTTP gateway in front of the feed.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	v1 "github.com/stacklok/photofeed/internal/api/v1"
	"github.com/stacklok/photofeed/internal/service"
)

// DefaultMaxUploadSize bounds the multipart body of POST /v1/posts
const DefaultMaxUploadSize int64 = 20 << 20

// ServerOption configures the gateway
type ServerOption func(*serverConfig)

type serverConfig struct {
	middlewares   []func(http.Handler) http.Handler
	maxUploadSize int64
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithMaxUploadSize bounds the size of submitted images
func WithMaxUploadSize(size int64) ServerOption {
	return func(cfg *serverConfig) {
		if size > 0 {
			cfg.maxUploadSize = size
		}
	}
}

// NewServer creates the gateway router serving svc
func NewServer(svc service.FeedService, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{maxUploadSize: DefaultMaxUploadSize}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	r.Mount("/", v1.HealthRouter(svc))
	r.Mount("/v1", v1.Router(svc, cfg.maxUploadSize))

	return r
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.DebugContext(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
