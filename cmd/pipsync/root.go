package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BadgerOps/pipsync/internal/config"
	"github.com/BadgerOps/pipsync/internal/store"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgPath   string
	logLevel  string
	logFormat string
	quiet     bool
	noHistory bool
	globalCfg *config.Config
	logger    *slog.Logger

	// Global components
	globalStore *store.Store
	appFs       afero.Fs = afero.NewOsFs()
)

// initializeComponents opens the history store when the command uses it.
// An install run survives a broken history database; the history command does not.
func initializeComponents(cmdName string) error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	if !globalCfg.History.Enabled || noHistory {
		if cmdName == "history" {
			return fmt.Errorf("run history is disabled")
		}
		return nil
	}

	dbPath := globalCfg.HistoryDBPath()
	st, err := store.New(dbPath, logger)
	if err != nil {
		if cmdName == "history" {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		logger.Warn("run history unavailable, continuing without it", "path", dbPath, "error", err)
		return nil
	}
	globalStore = st

	logger.Debug("components initialized successfully", "db_path", dbPath)
	return nil
}

// shouldSkipComponentInit checks if a command should skip component initialization
func shouldSkipComponentInit(cmdName string) bool {
	needsStore := map[string]bool{
		"install": true,
		"history": true,
	}
	return !needsStore[cmdName]
}

// closeStore closes the global store connection
func closeStore() {
	if globalStore != nil {
		if err := globalStore.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
		globalStore = nil
	}
}

// execute runs cmd and releases the store whether or not the command failed.
func execute(cmd *cobra.Command) error {
	defer closeStore()
	return cmd.Execute()
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipsync",
		Short: "Install Python requirements through the first reachable package mirror",
		Long: `pipsync probes a list of Python package-index mirrors, picks the first one
that answers, then installs every entry of a requirements file with pip,
one package at a time. A package that fails to install is reported and
skipped; the remaining packages are still installed.`,
		Example: `  pipsync install
  pipsync install -r requirements.txt --python python3.12
  pipsync install --mirror https://mirrors.aliyun.com/pypi/simple/
  pipsync mirrors
  pipsync history --failed`,
		Version:      "0.1.0",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()

			if shouldSkipConfig(cmd.Name()) {
				return nil
			}

			if cfgPath == "" {
				var err error
				cfgPath, err = config.FindConfigFile()
				if err != nil {
					logger.Debug("config file not found, using defaults", "error", err)
				}
			}

			if cfgPath != "" {
				var err error
				globalCfg, err = config.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
			} else {
				globalCfg = config.DefaultConfig()
			}

			if err := globalCfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			logger.Debug("config loaded", "path", cfgPath, "mirrors", len(globalCfg.Mirrors))

			if !shouldSkipComponentInit(cmd.Name()) {
				if err := initializeComponents(cmd.Name()); err != nil {
					return fmt.Errorf("failed to initialize components: %w", err)
				}
			}

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (auto-discovered if not specified)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")
	cmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "only log errors")
	cmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "do not read or write the run history database")

	cmd.AddCommand(
		newInstallCmd(),
		newMirrorsCmd(),
		newHistoryCmd(),
		newConfigCmd(),
	)

	return cmd
}

// setupLogging initializes the slog logger based on flags
func setupLogging() {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if quiet {
		level = slog.LevelError
	}

	var handler slog.Handler
	if strings.ToLower(logFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// shouldSkipConfig checks if a command should skip config loading
func shouldSkipConfig(cmdName string) bool {
	skipConfigCmds := map[string]bool{
		"help":       true,
		"version":    true,
		"completion": true,
	}
	return skipConfigCmds[cmdName]
}
