// Package config provides configuration types and defaults for passflow.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/passflow/internal/log"
	"github.com/zjrosen/passflow/internal/tracing"
)

// AppName names the config directory and default file locations.
const AppName = "passflow"

// Config holds all configuration options for passflow.
type Config struct {
	// PipelinesDir replaces the embedded pipeline files with the *.yaml files
	// in this directory. Empty uses the embedded defaults.
	PipelinesDir   string         `mapstructure:"pipelines_dir"`
	DefaultBackend string         `mapstructure:"default_backend"`
	Debug          bool           `mapstructure:"debug"`
	LogPath        string         `mapstructure:"log_path"`
	History        HistoryConfig  `mapstructure:"history"`
	Watch          WatchConfig    `mapstructure:"watch"`
	Tracing        tracing.Config `mapstructure:"tracing"`
	// Flags enables opt-in behavior by name. See package flags.
	Flags map[string]bool `mapstructure:"flags"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	// Keep is how many runs are retained after each recorded run. 0 keeps all.
	Keep int `mapstructure:"keep"`
}

// WatchConfig controls the watch command.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// DefaultConfigDir returns ~/.config/passflow, or "" when the home directory
// is unavailable.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", AppName)
}

// DefaultHistoryPath returns the default run history database path.
func DefaultHistoryPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "history.db")
}

// DefaultTracesFilePath returns the default path for trace file export.
func DefaultTracesFilePath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	tc := tracing.DefaultConfig()
	tc.FilePath = DefaultTracesFilePath()
	return Config{
		DefaultBackend: "vivado",
		LogPath:        "debug.log",
		History: HistoryConfig{
			Enabled: true,
			Path:    DefaultHistoryPath(),
			Keep:    500,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Tracing: tc,
	}
}

// Validate checks every section and joins the problems found.
func Validate(c Config) error {
	return errors.Join(
		ValidatePipelinesDir(c.PipelinesDir),
		ValidateHistory(c.History),
		ValidateWatch(c.Watch),
		ValidateTracing(c.Tracing),
	)
}

// ValidatePipelinesDir requires an existing directory when one is set.
func ValidatePipelinesDir(dir string) error {
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("pipelines_dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("pipelines_dir %q is not a directory", dir)
	}
	return nil
}

// ValidateHistory checks history configuration for errors.
func ValidateHistory(h HistoryConfig) error {
	if h.Keep < 0 {
		return fmt.Errorf("history.keep must be >= 0, got %d", h.Keep)
	}
	if h.Enabled && h.Path == "" {
		return fmt.Errorf("history.path is required when history is enabled")
	}
	return nil
}

// ValidateWatch checks watch configuration for errors.
func ValidateWatch(w WatchConfig) error {
	if w.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", w.Debounce)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
func ValidateTracing(tc tracing.Config) error {
	if tc.SampleRate < 0.0 || tc.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tc.SampleRate)
	}
	if err := tc.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	if tc.Enabled && tc.Exporter == tracing.ExporterOTLP && tc.OTLPEndpoint == "" {
		return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
	}
	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# passflow configuration

# Directory of pipeline files (*.yaml). Empty uses the built-in vivado,
# vitis and vitisaccelerator pipelines.
# pipelines_dir: ./pipelines

# Backend used when a flow name has no "<backend>:" prefix and no global
# flow of that name exists.
default_backend: vivado

# Write debug logs to log_path (also enabled by --debug or PASSFLOW_DEBUG=1).
debug: false
log_path: debug.log

history:
  enabled: true
  # path: ~/.config/passflow/history.db
  keep: 500

watch:
  debounce: 500ms

tracing:
  enabled: false
  exporter: file        # none, file, stdout, otlp
  # file_path: ~/.config/passflow/traces/traces.jsonl
  otlp_endpoint: localhost:4317
  sample_rate: 1.0
  service_name: passflow

# Opt-in behavior.
# flags:
#   strict-pipelines: true  # reject pipelines whose flows use unregistered passes
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
