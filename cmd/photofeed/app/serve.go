package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stacklok/photofeed/internal/app"
	"github.com/stacklok/photofeed/internal/telemetry"
)

const (
	defaultGracefulTimeout  = 30 * time.Second
	telemetryShutdownBudget = 5 * time.Second
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cached feed over a local HTTP gateway",
		Long: `Start the HTTP gateway. The feed is refreshed in the background on the
configured interval and served from memory; posts submitted through the
gateway are stored as the logged-in user.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	serveCmd.Flags().String("address", "", "Address to listen on (default from gateway.address)")
	return serveCmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	address, err := cmd.Flags().GetString("address")
	if err != nil {
		return fmt.Errorf("failed to get address flag: %w", err)
	}
	if address == "" {
		address = cfg.GetGateway().Address
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownBudget)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Failed to flush telemetry", "error", err)
		}
	}()

	gateway, err := app.NewGatewayApp(ctx,
		app.WithConfig(cfg),
		app.WithAddress(address),
		app.WithTelemetry(tel),
	)
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- gateway.Start()
	}()

	select {
	case err := <-errCh:
		_ = gateway.Stop(defaultGracefulTimeout)
		return err
	case <-ctx.Done():
	}

	if err := gateway.Stop(defaultGracefulTimeout); err != nil {
		return err
	}
	return <-errCh
}
