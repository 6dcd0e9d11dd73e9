package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Getters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		cfg         *Config
		wantName    string
		wantVersion string
		wantEnd     string
	}{
		{
			name:        "nil config uses defaults",
			cfg:         nil,
			wantName:    DefaultServiceName,
			wantVersion: "unknown",
			wantEnd:     DefaultEndpoint,
		},
		{
			name:        "empty config uses defaults",
			cfg:         &Config{},
			wantName:    DefaultServiceName,
			wantVersion: "unknown",
			wantEnd:     DefaultEndpoint,
		},
		{
			name: "explicit values",
			cfg: &Config{
				ServiceName:    "photofeed-gateway",
				ServiceVersion: "v1.2.3",
				Endpoint:       "otel:4318",
			},
			wantName:    "photofeed-gateway",
			wantVersion: "v1.2.3",
			wantEnd:     "otel:4318",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantName, tt.cfg.GetServiceName())
			assert.Equal(t, tt.wantVersion, tt.cfg.GetServiceVersion())
			assert.Equal(t, tt.wantEnd, tt.cfg.GetEndpoint())
		})
	}
}

func TestConfig_Enabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		cfg         *Config
		wantTracing bool
		wantMetrics bool
	}{
		{name: "nil", cfg: nil},
		{
			name: "globally disabled",
			cfg: &Config{
				Tracing: &TracingConfig{Enabled: true},
				Metrics: &MetricsConfig{Enabled: true},
			},
		},
		{
			name: "enabled without signals",
			cfg:  &Config{Enabled: true},
		},
		{
			name: "tracing only",
			cfg: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true},
				Metrics: &MetricsConfig{Enabled: false},
			},
			wantTracing: true,
		},
		{
			name: "both",
			cfg: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true},
				Metrics: &MetricsConfig{Enabled: true},
			},
			wantTracing: true,
			wantMetrics: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantTracing, tt.cfg.TracingEnabled())
			assert.Equal(t, tt.wantMetrics, tt.cfg.MetricsEnabled())
		})
	}
}

func TestTracingConfig_GetSampling(t *testing.T) {
	t.Parallel()

	var nilCfg *TracingConfig
	assert.Equal(t, DefaultSampling, nilCfg.GetSampling())
	assert.Equal(t, DefaultSampling, (&TracingConfig{}).GetSampling())
	assert.Equal(t, 0.25, (&TracingConfig{Sampling: 0.25}).GetSampling())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     *Config
		wantErr string
	}{
		{name: "nil", cfg: nil},
		{
			name: "disabled config is not checked",
			cfg: &Config{
				Tracing: &TracingConfig{Enabled: true, Sampling: 7},
			},
		},
		{
			name: "valid sampling",
			cfg: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: 0.5},
			},
		},
		{
			name: "sampling above one",
			cfg: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: 1.5},
			},
			wantErr: "sampling must be between 0.0 and 1.0",
		},
		{
			name: "negative sampling",
			cfg: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: -0.1},
			},
			wantErr: "sampling must be between 0.0 and 1.0",
		},
		{
			name: "tracing disabled ignores sampling",
			cfg: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: false, Sampling: 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
