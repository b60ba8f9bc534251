package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/zmanimbot/internal/bot"
	"github.com/edgard/zmanimbot/internal/bot/handlers"
	"github.com/edgard/zmanimbot/internal/bot/tasks"
	"github.com/edgard/zmanimbot/internal/classifier"
	"github.com/edgard/zmanimbot/internal/config"
	"github.com/edgard/zmanimbot/internal/database"
	"github.com/edgard/zmanimbot/internal/gemini"
	"github.com/edgard/zmanimbot/internal/hebcal"
	"github.com/edgard/zmanimbot/internal/knowledge"
	"github.com/edgard/zmanimbot/internal/whatsapp"
	"github.com/edgard/zmanimbot/internal/zmanim"
)

// app is the fully wired bot.
type app struct {
	db        *sqlx.DB
	store     database.Store
	whatsapp  *whatsapp.Client
	zmanim    *zmanim.Provider
	handlers  handlers.HandlerDeps
	scheduler *bot.Scheduler
}

func (a *app) Close() {
	if a.scheduler != nil {
		_ = a.scheduler.Stop()
	}
	database.CloseDB(a.db)
}

func openStore(cfg *config.Config, log *slog.Logger) (*sqlx.DB, database.Store, error) {
	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database %s: %w", cfg.Database.Path, err)
	}
	return db, database.NewStore(db, log), nil
}

// zmanimStack is the provider and the Hebrew date header of one location.
type zmanimStack struct {
	provider *zmanim.Provider
	dates    *zmanim.HebrewDateFormatter
}

// buildZmanim probes the backends in order. Offline skips every network
// collaborator, so only the local astronomy backends remain.
func buildZmanim(ctx context.Context, cfg *config.Config, log *slog.Logger, backends []string, offline bool) (zmanimStack, error) {
	loc, err := cfg.ZmanimLocation()
	if err != nil {
		return zmanimStack{}, fmt.Errorf("invalid location: %w", err)
	}

	var api zmanim.HebcalAPI
	var cal zmanim.HebrewCalendar
	if !offline {
		client := hebcal.NewClient(cfg.Zmanim.HebcalURL, cfg.Zmanim.HebcalTimeout, log)
		api, cal = client, client
	}

	list, err := zmanim.BuildBackends(backends, api, loc)
	if err != nil {
		return zmanimStack{}, err
	}
	return zmanimStack{
		provider: zmanim.NewProvider(ctx, loc, list, zmanim.NewCache[zmanim.Result](cfg.Zmanim.CacheSize), log),
		dates:    zmanim.NewHebrewDateFormatter(ctx, cal, cfg.Zmanim.CacheSize, log),
	}, nil
}

func buildApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	db, store, err := openStore(cfg, log)
	if err != nil {
		return nil, err
	}
	a := &app{db: db, store: store}

	gem, err := gemini.NewClient(ctx, cfg.Gemini, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	a.whatsapp = whatsapp.NewClient(cfg.WhatsApp, log)

	z, err := buildZmanim(ctx, cfg, log, cfg.Zmanim.Backends, false)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.zmanim = z.provider

	now := time.Now
	a.handlers = handlers.HandlerDeps{
		Logger:       log,
		Config:       cfg,
		Store:        store,
		GeminiClient: gem,
		Transport:    a.whatsapp,
		Zmanim:       z.provider,
		Dates:        z.dates,
		Classifier:   classifier.New(cfg.Zmanim.LLMClassifier, gem, log),
		Now:          now,
	}
	tDeps := tasks.TaskDeps{
		Logger:       log,
		Store:        store,
		GeminiClient: gem,
		Config:       cfg,
		Gateway:      a.whatsapp,
		Ingester:     knowledge.NewIngester(gem, log),
		Now:          now,
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps), z.provider.Location().TZ)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.scheduler = sched
	return a, nil
}
