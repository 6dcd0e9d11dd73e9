package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/stacklok/photofeed/internal/app"
	"github.com/stacklok/photofeed/internal/config"
)

const (
	flagConfig        = "config"
	flagLogLevel      = "log-level"
	flagServerURL     = "server-url"
	flagApplicationID = "application-id"
	flagSessionStore  = "session-store"
)

// loadConfig reads the config file named by --config, or the default one when it exists,
// and layers flags and PHOTOFEED_* environment variables over it.
func loadConfig() (*config.Config, error) {
	var opts []config.Option

	path := viper.GetString(flagConfig)
	if path == "" {
		if found, ok := config.FindConfigFile(); ok {
			path = found
		}
	}
	if path != "" {
		opts = append(opts, config.WithConfigPath(path))
	}
	opts = append(opts, config.WithOverride(applyOverrides))

	cfg, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if level, ok := ParseLogLevel(cfg.LogLevel); ok && cfg.LogLevel != "" {
		LogLevel.Set(level)
	}
	slog.Debug("Loaded configuration", "path", path, "server_url", cfg.Backend.ServerURL)
	return cfg, nil
}

func applyOverrides(cfg *config.Config) {
	if v := viper.GetString(flagServerURL); v != "" {
		cfg.Backend.ServerURL = v
	}
	if v := viper.GetString(flagApplicationID); v != "" {
		cfg.Backend.ApplicationID = v
	}
	if v := viper.GetString(flagSessionStore); v != "" {
		if cfg.Session == nil {
			cfg.Session = &config.SessionConfig{}
		}
		cfg.Session.Store = v
	}
	if v := viper.GetString(flagLogLevel); v != "" {
		cfg.LogLevel = v
	}
}

// loadComponents loads the configuration and builds the components every command shares.
// Callers must Close the returned components.
func loadComponents(opts ...app.ComponentOption) (*config.Config, *app.Components, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	components, err := app.BuildComponents(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	return cfg, components, nil
}
