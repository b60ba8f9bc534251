// Package cmd holds the zmanimbot command line: the bot server and the
// operator helpers around it.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/edgard/zmanimbot/internal/config"
	"github.com/edgard/zmanimbot/internal/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "zmanimbot",
	Short: "WhatsApp community assistant answering zmanim and group questions",
	Long: `zmanimbot answers halachic time (zmanim) questions in WhatsApp groups,
routes messages addressed to it to summaries and knowledge-base answers, and
runs scheduled maintenance, ingestion and digest tasks.`,
	SilenceUsage: true,
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config.yaml", "Path to configuration file")
}

// setup loads the configuration and installs the process logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.Format == "json")
	slog.SetDefault(log)
	log.Debug("Logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)
	return cfg, log, nil
}
