// Package main implements the dbtypes command, which answers questions
// about which persistable types each storage backend supports.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cyclus/dbtypes/internal/app"
	"github.com/cyclus/dbtypes/internal/config"
	"github.com/cyclus/dbtypes/internal/logging"
)

var (
	version = "dev"
	commit  = "unknown"
)

var (
	// Global flags
	configFile string
	envFile    string
	dataDir    string
	sourceType string
	sourcePath string
	logLevel   string
	strict     bool
	jsonOutput bool
	showStats  bool

	logger      *zap.Logger
	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "dbtypes",
	Short: "Query the persistable type registry",
	Long: `dbtypes answers which data types each storage backend can persist at a
given schema version, and manages published copies of the definition table.

Configuration is read from --config (YAML or JSON), then DBTYPES_*
environment variables (a .env file is loaded if present), then flags.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
			return fmt.Errorf("failed to load env file: %w", err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger, err = logging.New(cfg.Log.Level, cfg.Log.Development)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		application, err = app.New(cfg, logger)
		return err
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	pf.StringVar(&envFile, "env-file", ".env", "Path to a .env file")
	pf.StringVar(&dataDir, "data-dir", "", "Base directory for storage and the catalog")
	pf.StringVar(&sourceType, "source", "", "Table source: embedded, file, object, snapshot")
	pf.StringVar(&sourcePath, "table", "", "Table file (implies --source file)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVar(&strict, "strict", false, "Fail to load a table with lint findings")
	pf.BoolVar(&jsonOutput, "json", false, "Write results as JSON")
	pf.BoolVar(&showStats, "stats", false, "Report lookup and cache statistics on stderr when done")

	rootCmd.AddCommand(
		supportedCmd,
		lookupCmd,
		listCmd,
		rankCmd,
		versionsCmd,
		diffCmd,
		lintCmd,
		exportCmd,
		snapshotCmd,
		publishCmd,
	)
}

// loadConfig loads configuration from file, environment, and command line flags.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg)

	// Flags have the highest priority
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if sourcePath != "" {
		cfg.Source.Type = config.SourceFile
		cfg.Source.Path = sourcePath
	}
	if sourceType != "" {
		cfg.Source.Type = config.SourceType(sourceType)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if strict {
		cfg.Strict = true
	}

	return cfg, nil
}

// execute runs the root command and releases the application whether or not
// the command succeeded.
func execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	shutdown(rootCmd.ErrOrStderr())
	return err
}

// shutdown reports usage, closes the application, and flushes the logger.
func shutdown(stderr io.Writer) {
	if application != nil {
		usage := application.Usage(10)
		logger.Debug("registry usage",
			zap.Int("tables", len(usage.Tables)),
			zap.Any("top_misses", usage.TopMisses),
			zap.Any("cache", usage.Cache))
		if showStats {
			if err := writeUsage(stderr, usage); err != nil {
				logger.Warn("failed to write stats", zap.Error(err))
			}
		}
		if err := application.Close(); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
		application = nil
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

func main() {
	if err := execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
