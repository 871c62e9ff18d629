package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/passflow/internal/app"
	"github.com/zjrosen/passflow/internal/config"
	"github.com/zjrosen/passflow/internal/log"
	"github.com/zjrosen/passflow/internal/paths"
	"github.com/zjrosen/passflow/internal/presentation"
)

var (
	version   = "dev"
	cfgFile   string
	cfg       config.Config
	debugFlag bool
	jsonFlag  bool
	noColor   bool

	logCleanup func()
)

// localConfigPath is checked before the user config directory.
var localConfigPath = filepath.Join(paths.ProjectDir, "config.yaml")

var rootCmd = &cobra.Command{
	Use:   "passflow",
	Short: "Resolve and run compiler pass flows for HLS backends",
	Long: `passflow resolves named flows into ordered pass plans and runs them
against a model graph.

Backends (vivado, vitis, vitisaccelerator) and their flows are described in
pipeline files. The built-in pipelines are used unless pipelines_dir or
--pipelines points at a directory of *.yaml files.`,
	Version:            version,
	SilenceUsage:       true,
	PersistentPreRunE:  setupLogging,
	PersistentPostRunE: teardownLogging,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/passflow/config.yaml)")
	pf.BoolVar(&debugFlag, "debug", false, "write debug logs to log_path (also PASSFLOW_DEBUG=1)")
	pf.BoolVar(&jsonFlag, "json", false, "print JSON instead of text")
	pf.BoolVar(&noColor, "no-color", false, "disable colored output")
	pf.StringP("pipelines", "p", "", "directory of pipeline files (overrides pipelines_dir)")
	pf.StringP("backend", "b", "", "backend for bare flow names (overrides default_backend)")
}

func initConfig() {
	viper.Reset()
	cfg = config.Config{}

	defaults := config.Defaults()
	viper.SetDefault("pipelines_dir", defaults.PipelinesDir)
	viper.SetDefault("default_backend", defaults.DefaultBackend)
	viper.SetDefault("debug", defaults.Debug)
	viper.SetDefault("log_path", defaults.LogPath)
	viper.SetDefault("history.enabled", defaults.History.Enabled)
	viper.SetDefault("history.path", defaults.History.Path)
	viper.SetDefault("history.keep", defaults.History.Keep)
	viper.SetDefault("watch.debounce", defaults.Watch.Debounce)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)

	viper.SetEnvPrefix(config.AppName)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	pf := rootCmd.PersistentFlags()
	_ = viper.BindPFlag("pipelines_dir", pf.Lookup("pipelines"))
	_ = viper.BindPFlag("default_backend", pf.Lookup("backend"))

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) {
			if err := config.WriteDefaultConfig(cfgFile); err != nil {
				log.ErrorErr(log.CatConfig, "could not write default config", err, "path", cfgFile)
			}
		}
	} else {
		// Config lookup order:
		// 1. .passflow/config.yaml (current directory)
		// 2. ~/.config/passflow/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else if dir := config.DefaultConfigDir(); dir != "" {
			viper.AddConfigPath(dir)
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Nothing found anywhere: create the user config so later
			// settings changes have somewhere to go.
			if dir := config.DefaultConfigDir(); dir != "" {
				defaultPath := filepath.Join(dir, "config.yaml")
				if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
					viper.SetConfigFile(defaultPath)
					_ = viper.ReadInConfig()
				}
			}
		} else {
			log.ErrorErr(log.CatConfig, "could not read config", err, "path", viper.ConfigFileUsed())
		}
	}

	_ = viper.Unmarshal(&cfg)
	cfg.PipelinesDir = paths.ResolvePipelinesDir(cfg.PipelinesDir)
}

// configPath is the file settings changes are written to.
func configPath() string {
	if p := viper.ConfigFileUsed(); p != "" {
		return p
	}
	if dir := config.DefaultConfigDir(); dir != "" {
		return filepath.Join(dir, "config.yaml")
	}
	return localConfigPath
}

func setupLogging(_ *cobra.Command, _ []string) error {
	debug := debugFlag || cfg.Debug || os.Getenv("PASSFLOW_DEBUG") != ""
	if !debug || logCleanup != nil {
		return nil
	}
	logPath := cfg.LogPath
	if env := os.Getenv("PASSFLOW_LOG"); env != "" {
		logPath = env
	}
	cleanup, err := log.InitWithTeaLog(logPath, config.AppName+" ")
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	logCleanup = cleanup
	log.Info(log.CatConfig, "passflow starting", "version", version, "config", viper.ConfigFileUsed(),
		"pipelines", cfg.PipelinesDir, "backend", cfg.DefaultBackend)
	return nil
}

func teardownLogging(_ *cobra.Command, _ []string) error {
	if logCleanup != nil {
		logCleanup()
		logCleanup = nil
	}
	return nil
}

// openApp builds the application for one command. Callers must Close it.
func openApp(cmd *cobra.Command) (*app.App, error) {
	return app.New(cmd.Context(), cfg, configPath())
}

func textOutput(w io.Writer) *presentation.Text {
	return presentation.NewText(w, presentation.WithColor(!noColor))
}

func jsonOutput(w io.Writer) *presentation.Formatter {
	return presentation.NewFormatter(w)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
