// Package config provides configuration loading and validation for photofeed.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/photofeed/internal/telemetry"
)

const (
	// SessionStoreKeyring keeps the session in the OS keyring
	SessionStoreKeyring = "keyring"

	// SessionStoreFile keeps the session in a locked JSON file
	SessionStoreFile = "file"
)

const (
	// DefaultCollection is the collection holding the posts
	DefaultCollection = "PhotoPost"

	// DefaultSortField is the field posts are ordered by, newest first
	DefaultSortField = "createdAt"

	// DefaultRefreshInterval is the background refresh interval
	DefaultRefreshInterval = 5 * time.Minute

	// DefaultBackendTimeout bounds each remote call
	DefaultBackendTimeout = 30 * time.Second

	// DefaultGatewayAddress is the listen address of the local gateway
	DefaultGatewayAddress = "127.0.0.1:8420"

	// DefaultMaxUploadSize caps the image accepted by the gateway (20MB)
	DefaultMaxUploadSize = 20 * 1024 * 1024

	// EnvPrefix is the prefix of every environment variable photofeed reads
	EnvPrefix = "PHOTOFEED"

	// RESTAPIKeyEnvVar is read when no REST API key is configured
	RESTAPIKeyEnvVar = "PHOTOFEED_REST_API_KEY"

	defaultConfigFile = "photofeed/config.yaml"
	defaultStatusDir  = "photofeed/status"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path      string
	overrides []func(*Config)
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// WithOverride applies fn to the parsed configuration before it is validated.
// Command line flags and environment variables are layered this way.
func WithOverride(fn func(*Config)) Option {
	return func(cfg *loaderConfig) error {
		if fn == nil {
			return fmt.Errorf("override is required")
		}
		cfg.overrides = append(cfg.overrides, fn)
		return nil
	}
}

// DefaultConfigPath returns the config file location under the XDG config directory
func DefaultConfigPath() (string, error) {
	path, err := xdg.ConfigFile(defaultConfigFile)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config file path: %w", err)
	}
	return path, nil
}

// FindConfigFile returns the default config file if one exists under the XDG config directories
func FindConfigFile() (string, bool) {
	path, err := xdg.SearchConfigFile(defaultConfigFile)
	if err != nil {
		return "", false
	}
	return path, true
}

// Config represents the root configuration structure
type Config struct {
	Backend   BackendConfig     `yaml:"backend"`
	Feed      *FeedConfig       `yaml:"feed,omitempty"`
	Session   *SessionConfig    `yaml:"session,omitempty"`
	Gateway   *GatewayConfig    `yaml:"gateway,omitempty"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"logLevel,omitempty"`
}

// BackendConfig defines the connection to the Parse-compatible backend
type BackendConfig struct {
	// ServerURL is the REST mount point, e.g. "https://parseapi.back4app.com"
	ServerURL string `yaml:"serverURL"`

	// ApplicationID identifies the app on the server
	ApplicationID string `yaml:"applicationID"`

	// RESTAPIKey is the client key. Prefer RESTAPIKeyFile or the
	// PHOTOFEED_REST_API_KEY environment variable over inlining it.
	RESTAPIKey string `yaml:"restAPIKey,omitempty"`

	// RESTAPIKeyFile is the path to a file containing the client key
	RESTAPIKeyFile string `yaml:"restAPIKeyFile,omitempty"`

	// Timeout bounds each remote call (e.g., "30s")
	Timeout string `yaml:"timeout,omitempty"`

	// QueryLimit caps the number of posts returned by a sync; 0 keeps the server default
	QueryLimit int `yaml:"queryLimit,omitempty"`
}

// FeedConfig defines what is synchronized and how often
type FeedConfig struct {
	Collection string `yaml:"collection,omitempty"`
	SortField  string `yaml:"sortField,omitempty"`

	// MaxConcurrentFetches caps image fetches in flight; 0 means no cap
	MaxConcurrentFetches int `yaml:"maxConcurrentFetches,omitempty"`

	// RefreshInterval is the background refresh interval (e.g., "5m")
	RefreshInterval string `yaml:"refreshInterval,omitempty"`

	// StatusDir is where refresh status is persisted
	StatusDir string `yaml:"statusDir,omitempty"`
}

// SessionConfig defines where the logged in session is kept
type SessionConfig struct {
	// Store is "keyring" (default) or "file"
	Store string `yaml:"store,omitempty"`

	// Path is the session file when Store is "file"
	Path string `yaml:"path,omitempty"`
}

// GatewayConfig defines the local HTTP gateway
type GatewayConfig struct {
	Address string `yaml:"address,omitempty"`

	// MaxUploadSize caps the multipart body of POST /v1/posts, in bytes
	MaxUploadSize int64 `yaml:"maxUploadSize,omitempty"`
}

// GetRESTAPIKey returns the REST API key using the following priority:
// 1. Read from RESTAPIKeyFile if specified
// 2. The inline RESTAPIKey
// 3. The PHOTOFEED_REST_API_KEY environment variable
//
// An unset key is not an error; some servers do not require one.
func (b *BackendConfig) GetRESTAPIKey() (string, error) {
	if b.RESTAPIKeyFile != "" {
		data, err := os.ReadFile(filepath.Clean(b.RESTAPIKeyFile))
		if err != nil {
			return "", fmt.Errorf("failed to read REST API key from file %s: %w", b.RESTAPIKeyFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if b.RESTAPIKey != "" {
		return b.RESTAPIKey, nil
	}

	return os.Getenv(RESTAPIKeyEnvVar), nil
}

// GetTimeout returns the per-call timeout, using the default if unset or invalid
func (b *BackendConfig) GetTimeout() time.Duration {
	if d, err := time.ParseDuration(b.Timeout); err == nil && d > 0 {
		return d
	}
	return DefaultBackendTimeout
}

// GetFeed returns the feed configuration with defaults filled in
func (c *Config) GetFeed() FeedConfig {
	feed := FeedConfig{}
	if c.Feed != nil {
		feed = *c.Feed
	}
	if feed.Collection == "" {
		feed.Collection = DefaultCollection
	}
	if feed.SortField == "" {
		feed.SortField = DefaultSortField
	}
	return feed
}

// GetRefreshInterval returns the refresh interval, using the default if unset
func (f FeedConfig) GetRefreshInterval() time.Duration {
	if d, err := time.ParseDuration(f.RefreshInterval); err == nil && d > 0 {
		return d
	}
	return DefaultRefreshInterval
}

// GetStatusDir returns the status directory, defaulting to the XDG state directory
func (f FeedConfig) GetStatusDir() string {
	if f.StatusDir != "" {
		return f.StatusDir
	}
	return filepath.Join(xdg.StateHome, defaultStatusDir)
}

// GetSessionStore returns the configured session store kind and file path
func (c *Config) GetSessionStore() (store, path string) {
	store = SessionStoreKeyring
	if c.Session != nil {
		if c.Session.Store != "" {
			store = c.Session.Store
		}
		path = c.Session.Path
	}
	return store, path
}

// GetGateway returns the gateway configuration with defaults filled in
func (c *Config) GetGateway() GatewayConfig {
	gateway := GatewayConfig{}
	if c.Gateway != nil {
		gateway = *c.Gateway
	}
	if gateway.Address == "" {
		gateway.Address = DefaultGatewayAddress
	}
	if gateway.MaxUploadSize <= 0 {
		gateway.MaxUploadSize = DefaultMaxUploadSize
	}
	return gateway
}

// LoadConfig loads, overrides and validates the configuration.
// Without WithConfigPath the configuration is built from the overrides alone.
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	var config Config
	if loaderCfg.path != "" {
		data, err := os.ReadFile(loaderCfg.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}

	for _, override := range loaderCfg.overrides {
		override(&config)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	var errs []error

	if err := validateBackend(&c.Backend); err != nil {
		errs = append(errs, err)
	}
	if c.Feed != nil {
		if err := validateFeed(c.Feed); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Session != nil {
		if err := validateSession(c.Session); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Gateway != nil && c.Gateway.MaxUploadSize < 0 {
		errs = append(errs, fmt.Errorf("gateway.maxUploadSize must not be negative"))
	}
	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}
	if err := validateLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func validateBackend(b *BackendConfig) error {
	if b.ServerURL == "" {
		return fmt.Errorf("backend.serverURL is required")
	}
	u, err := url.Parse(b.ServerURL)
	if err != nil {
		return fmt.Errorf("backend.serverURL is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.serverURL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("backend.serverURL must include a host")
	}
	if b.ApplicationID == "" {
		return fmt.Errorf("backend.applicationID is required")
	}
	if b.Timeout != "" {
		if _, err := time.ParseDuration(b.Timeout); err != nil {
			return fmt.Errorf("backend.timeout must be a valid duration (e.g., '30s'): %w", err)
		}
	}
	if b.QueryLimit < 0 {
		return fmt.Errorf("backend.queryLimit must not be negative")
	}
	return nil
}

func validateFeed(f *FeedConfig) error {
	if f.MaxConcurrentFetches < 0 {
		return fmt.Errorf("feed.maxConcurrentFetches must not be negative")
	}
	if f.RefreshInterval != "" {
		d, err := time.ParseDuration(f.RefreshInterval)
		if err != nil {
			return fmt.Errorf("feed.refreshInterval must be a valid duration (e.g., '5m', '1h'): %w", err)
		}
		if d < time.Second {
			return fmt.Errorf("feed.refreshInterval must be at least 1s, got %s", d)
		}
	}
	return nil
}

func validateSession(s *SessionConfig) error {
	switch s.Store {
	case "", SessionStoreKeyring, SessionStoreFile:
		return nil
	default:
		return fmt.Errorf("session.store must be %q or %q, got %q", SessionStoreKeyring, SessionStoreFile, s.Store)
	}
}

func validateLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "", "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logLevel must be one of debug, info, warn, error; got %q", level)
	}
}
