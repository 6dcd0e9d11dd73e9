// Package app provides the entry point for the photofeed command line client.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/photofeed/internal/config"
	"github.com/stacklok/photofeed/internal/versions"
)

// LogLevel is the level of the default slog handler.
// main seeds it from the environment; the loaded configuration can lower or raise it.
var LogLevel = new(slog.LevelVar)

// ParseLogLevel maps a level name to a slog.Level.
// An empty name is INFO; an unknown name is INFO and reports false.
func ParseLogLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// NewRootCmd creates a new root command for the photofeed client.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "photofeed",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Photo feed client for Parse-compatible backends",
		Long: `photofeed synchronizes a photo feed from a Parse-compatible backend,
submits new posts, and can serve the cached feed over a local HTTP gateway.`,
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String(flagConfig, "", "Path to configuration file (YAML format)")
	flags.String(flagLogLevel, "", "Log level (debug, info, warn, error)")
	flags.String(flagServerURL, "", "Backend REST mount point")
	flags.String(flagApplicationID, "", "Backend application id")
	flags.String(flagSessionStore, "", "Where the session is kept (keyring or file)")
	for _, name := range []string{flagConfig, flagLogLevel, flagServerURL, flagApplicationID, flagSessionStore} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			slog.Error("Error binding flag", "flag", name, "error", err)
		}
	}
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(
		newSyncCmd(),
		newWatchCmd(),
		newPostCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newStatusCmd(),
		newServeCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("failed to get format flag: %w", err)
			}

			if format == "json" {
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format version info as JSON: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return err
		},
	}
	versionCmd.Flags().String("format", "", "Output format (json)")
	return versionCmd
}
