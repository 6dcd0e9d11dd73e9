package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stacklok/photofeed/internal/app"
	"github.com/stacklok/photofeed/internal/feed"
)

// watchBuffer is the number of refresh outcomes that may wait to be printed
const watchBuffer = 4

func newSyncCmd() *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch the feed and its images once",
		Long: `Fetch every post of the feed collection, newest first, and download each
post's image concurrently. Posts whose image could not be loaded are listed
separately; the remaining posts are still shown.`,
		Args: cobra.NoArgs,
		RunE: runSync,
	}
	syncCmd.Flags().StringP("output", "o", outputTable, "Output format (table or json)")
	return syncCmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	if err := validateOutput(format); err != nil {
		return err
	}

	_, components, err := loadComponents()
	if err != nil {
		return err
	}
	defer components.Close()

	result, err := components.Coordinator.Sync(cmd.Context())
	if err != nil {
		return fmt.Errorf("%s: %w", feed.UserMessage(err), err)
	}
	return renderFeed(cmd.OutOrStdout(), result, format)
}

func newWatchCmd() *cobra.Command {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync the feed on the configured refresh interval until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
	watchCmd.Flags().StringP("output", "o", outputTable, "Output format (table or json)")
	return watchCmd
}

func runWatch(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	if err := validateOutput(format); err != nil {
		return err
	}

	dispatcher := feed.NewSerialDispatcher(watchBuffer)
	defer dispatcher.Close()
	printResult := newWatchSink(cmd.OutOrStdout(), format, dispatcher)

	_, components, err := loadComponents(app.WithRefreshSink(printResult))
	if err != nil {
		return err
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return components.Refresher.Start(ctx)
}

// newWatchSink returns a refresh sink that prints each outcome on dispatcher,
// so renders never interleave
func newWatchSink(out io.Writer, format string, dispatcher feed.Dispatcher) func(*feed.Result, error) {
	return func(result *feed.Result, err error) {
		dispatcher.Dispatch(func() {
			if err != nil {
				slog.Error("Feed refresh failed", "message", feed.UserMessage(err), "error", err)
				return
			}
			if err := renderFeed(out, result, format); err != nil {
				slog.Error("Failed to print feed", "error", err)
			}
		})
	}
}
