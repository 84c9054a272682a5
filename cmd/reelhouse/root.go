package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/reelhouse/reelhouse/internal/config"
	"github.com/reelhouse/reelhouse/internal/logger"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	envFiles   []string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "reelhouse",
		Short:         "Movie search aggregation and casting service",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file")
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "Dotenv files to load before reading config (default .env)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(
		newServeCmd(opts),
		newSearchCmd(opts),
		newMigrateCmd(opts),
	)

	return root
}

// loadConfig reads dotenv files, then the config file and environment.
func (o *options) loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(o.envFiles...); err != nil {
		return nil, err
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, out io.Writer) *logger.Logger {
	return logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
		Output:     out,
	})
}
