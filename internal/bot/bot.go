// Package bot orchestrates the running bot: the webhook HTTP server and the
// task scheduler share one lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Webhook is the HTTP side of the bot.
type Webhook interface {
	http.Handler
	// Wait blocks until in-flight message handling has finished.
	Wait()
}

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger          *slog.Logger
	server          *http.Server
	webhook         Webhook
	scheduler       *Scheduler
	shutdownTimeout time.Duration
}

// NewBot creates the orchestrator for a webhook listening on addr and the scheduler.
func NewBot(logger *slog.Logger, addr string, webhook Webhook, scheduler *Scheduler, shutdownTimeout time.Duration) *Bot {
	return &Bot{
		logger: logger.With("component", "bot_orchestrator"),
		server: &http.Server{
			Addr:              addr,
			Handler:           webhook,
			ReadHeaderTimeout: 10 * time.Second,
		},
		webhook:         webhook,
		scheduler:       scheduler,
		shutdownTimeout: shutdownTimeout,
	}
}

// Run starts the bot and all its components, handling graceful shutdown on context cancellation.
// It returns an error if any component fails during startup or execution.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting webhook listener", "addr", b.server.Addr)
		if err := b.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("webhook listener failed: %w", err)
		}
		b.logger.Info("Webhook listener stopped")

		if gCtx.Err() == nil {
			b.logger.Warn("Webhook listener stopped unexpectedly without context cancellation")
			return fmt.Errorf("webhook listener stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping webhook listener")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gCtx), b.shutdownTimeout)
		defer cancel()
		if err := b.server.Shutdown(shutdownCtx); err != nil {
			b.logger.Error("Error shutting down webhook listener", "error", err)
		}
		b.webhook.Wait()
		return nil
	})

	g.Go(func() error {
		b.logger.Info("Starting scheduler")
		if err := b.scheduler.Start(); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully")
	return nil
}
