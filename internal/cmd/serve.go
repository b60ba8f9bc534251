package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgard/zmanimbot/internal/bot"
	"github.com/edgard/zmanimbot/internal/bot/handlers"
	"github.com/edgard/zmanimbot/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot: webhook listener and scheduled tasks",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize bot", "error", err)
		return err
	}
	defer a.Close()

	if self, err := a.whatsapp.SelfJID(ctx); err != nil {
		log.Warn("Gateway identity not available yet, mentions resolve on first use", "error", err)
	} else {
		log.Info("Retrieved bot identity", "jid", self.String())
	}

	log.Info("Zmanim ready", "location", a.zmanim.Location().Name, "backends", a.zmanim.Backends())

	webhook := server.New(log, a.store, handlers.NewDispatcher(a.handlers), cfg.Server.HandlerTimeout, cfg.Server.Mode)
	app := bot.NewBot(log, cfg.Server.Addr, webhook, a.scheduler, cfg.Server.ShutdownTimeout)

	log.Info("Starting bot")
	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Bot stopped due to error", "error", err)
		return fmt.Errorf("bot stopped: %w", err)
	}
	log.Info("Bot stopped gracefully")
	return nil
}
