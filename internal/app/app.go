// Package app wires photofeed's components and manages the gateway lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/stacklok/photofeed/internal/config"
)

// GatewayApp runs the local HTTP gateway together with the background refresh
type GatewayApp struct {
	config     *config.Config
	components *Components
	httpServer *http.Server

	ctx        context.Context
	cancelFunc context.CancelFunc

	mu       sync.Mutex
	addr     net.Addr
	stopOnce sync.Once
	stopErr  error
}

// Start launches the background refresh and serves HTTP.
// It blocks until the server stops or fails.
func (app *GatewayApp) Start() error {
	listener, err := net.Listen("tcp", app.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", app.httpServer.Addr, err)
	}
	return app.Serve(listener)
}

// Serve is Start on an existing listener
func (app *GatewayApp) Serve(listener net.Listener) error {
	app.mu.Lock()
	app.addr = listener.Addr()
	app.mu.Unlock()

	go func() {
		if err := app.components.Refresher.Start(app.ctx); err != nil {
			slog.Error("Feed refresher failed", "error", err)
		}
	}()

	slog.Info("Gateway listening", "address", listener.Addr().String())
	if err := app.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop stops the refresh, then shuts the server down within timeout.
// Calls after the first return the first result.
func (app *GatewayApp) Stop(timeout time.Duration) error {
	app.stopOnce.Do(func() {
		slog.Info("Shutting down gateway...")

		if err := app.components.Refresher.Stop(); err != nil {
			slog.Error("Failed to stop feed refresher", "error", err)
		}
		if app.cancelFunc != nil {
			app.cancelFunc()
		}
		app.components.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
			app.stopErr = fmt.Errorf("server forced to shutdown: %w", err)
			return
		}
		slog.Info("Gateway shutdown complete")
	})
	return app.stopErr
}

// Addr returns the address the server listens on, or nil before Start
func (app *GatewayApp) Addr() net.Addr {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.addr
}

// GetConfig returns the application configuration
func (app *GatewayApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server
func (app *GatewayApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// Components returns the wired components
func (app *GatewayApp) Components() *Components {
	return app.components
}
