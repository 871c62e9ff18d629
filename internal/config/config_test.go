package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/passflow/internal/tracing"
)

func TestDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := Defaults()
	require.Equal(t, "vivado", cfg.DefaultBackend)
	require.True(t, cfg.History.Enabled)
	require.Equal(t, filepath.Join(home, ".config", "passflow", "history.db"), cfg.History.Path)
	require.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	require.False(t, cfg.Tracing.Enabled)
	require.Equal(t, tracing.ExporterFile, cfg.Tracing.Exporter)
	require.Equal(t, filepath.Join(home, ".config", "passflow", "traces", "traces.jsonl"), cfg.Tracing.FilePath)
	require.NoError(t, Validate(cfg))
}

func TestValidatePipelinesDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "vivado.yaml")
	require.NoError(t, os.WriteFile(file, []byte("backend: vivado"), 0o600))

	require.NoError(t, ValidatePipelinesDir(""))
	require.NoError(t, ValidatePipelinesDir(dir))
	require.Error(t, ValidatePipelinesDir(filepath.Join(dir, "missing")))

	err := ValidatePipelinesDir(file)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a directory")
}

func TestValidateHistory(t *testing.T) {
	tests := []struct {
		name    string
		cfg     HistoryConfig
		wantErr string
	}{
		{"disabled without path", HistoryConfig{}, ""},
		{"enabled with path", HistoryConfig{Enabled: true, Path: "/tmp/h.db"}, ""},
		{"enabled without path", HistoryConfig{Enabled: true}, "history.path is required"},
		{"negative keep", HistoryConfig{Keep: -1}, "history.keep"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHistory(tt.cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateWatch(t *testing.T) {
	require.NoError(t, ValidateWatch(WatchConfig{}))
	require.Error(t, ValidateWatch(WatchConfig{Debounce: -time.Second}))
}

func TestValidateTracing(t *testing.T) {
	tests := []struct {
		name    string
		cfg     tracing.Config
		wantErr string
	}{
		{"defaults", tracing.DefaultConfig(), ""},
		{"sample rate too high", tracing.Config{SampleRate: 1.5}, "sample_rate"},
		{"sample rate negative", tracing.Config{SampleRate: -0.1}, "sample_rate"},
		{"bad exporter", tracing.Config{Exporter: "jaeger"}, "unsupported exporter"},
		{"file without path", tracing.Config{Enabled: true, Exporter: tracing.ExporterFile}, "file_path"},
		{"otlp without endpoint", tracing.Config{Enabled: true, Exporter: tracing.ExporterOTLP}, "otlp_endpoint"},
		{"disabled otlp without endpoint", tracing.Config{Exporter: tracing.ExporterOTLP}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTracing(tt.cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_JoinsSections(t *testing.T) {
	cfg := Defaults()
	cfg.History = HistoryConfig{Keep: -3}
	cfg.Watch.Debounce = -time.Millisecond

	err := Validate(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "history.keep")
	require.Contains(t, err.Error(), "watch.debounce")
}

func TestWriteDefaultConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, WriteDefaultConfig(configPath))

	v := viper.New()
	v.SetConfigFile(configPath)
	require.NoError(t, v.ReadInConfig())

	cfg := Defaults()
	require.NoError(t, v.Unmarshal(&cfg))
	require.Equal(t, "vivado", cfg.DefaultBackend)
	require.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	require.Equal(t, 500, cfg.History.Keep)
	require.Equal(t, "passflow", cfg.Tracing.ServiceName)
	require.Equal(t, 1.0, cfg.Tracing.SampleRate)
	require.NoError(t, Validate(cfg))
}
