package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rebately/offersync/internal/brand"
	"github.com/rebately/offersync/internal/config"
	"github.com/rebately/offersync/internal/contentstore"
	"github.com/rebately/offersync/internal/enrich"
	"github.com/rebately/offersync/internal/pipeline"
	"github.com/rebately/offersync/internal/ratelimit"
	"github.com/rebately/offersync/internal/shortener"
	"github.com/rebately/offersync/internal/store"
	"github.com/rebately/offersync/internal/upstream"
)

// app bundles the assembled collaborators for the commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	ops      *store.Store
	content  *contentstore.Postgres
	pipeline *pipeline.Pipeline
	sweeper  *enrich.Sweeper
}

// newApp loads configuration and wires the full pipeline.
func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ops, err := store.Open(cfg.Database.OpsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ops store: %w", err)
	}

	if cfg.Database.ContentDSN == "" {
		ops.Close()
		return nil, fmt.Errorf("database.content_dsn must be set")
	}
	content, err := contentstore.OpenPostgres(context.Background(), cfg.Database.ContentDSN)
	if err != nil {
		ops.Close()
		return nil, err
	}

	addrevenue := upstream.NewAddrevenueClient(cfg.Addrevenue.APIToken, cfg.Addrevenue.ChannelID)
	if cfg.Addrevenue.BaseURL != "" {
		addrevenue.SetBaseURL(cfg.Addrevenue.BaseURL)
	}
	awin := upstream.NewAwinClient(cfg.Awin.APIToken, cfg.Awin.PublisherID)
	if cfg.Awin.BaseURL != "" {
		awin.SetBaseURL(cfg.Awin.BaseURL)
	}

	chat := enrich.NewChatClient(cfg.Enrichment.APIKey, cfg.Enrichment.Model)
	if cfg.Enrichment.BaseURL != "" {
		chat.SetBaseURL(cfg.Enrichment.BaseURL)
	}
	chat.SetTuning(cfg.Enrichment.MaxTokens, cfg.Enrichment.Temperature)
	enricher := enrich.New(chat, ops, enrich.DefaultPrompts(), logger)

	var shorten pipeline.URLShortener
	if cfg.Shortener.Endpoint != "" {
		shorten = shortener.New(cfg.Shortener.Endpoint, cfg.Shortener.Signature)
	}

	limiter := ratelimit.New(cfg.Awin.RateLimitCalls,
		time.Duration(cfg.Awin.RateLimitWindowS)*time.Second)
	resolver := brand.NewResolver(content, nil, cfg.Brand.FuzzyThreshold, logger)

	procCfg := pipeline.Config{
		Market:      cfg.Market,
		BatchSize:   cfg.Sync.BatchSize,
		WindowStart: cfg.Sync.WindowStartHour,
		WindowEnd:   cfg.Sync.WindowEndHour,
		ChunkDelay:  time.Duration(cfg.Sync.ChunkDelaySeconds) * time.Second,
	}
	processor := pipeline.NewProcessor(procCfg, pipeline.ProcessorDeps{
		Store:     ops,
		Content:   content,
		Campaigns: addrevenue,
		Promos:    awin,
		Resolver:  resolver,
		Enricher:  enricher,
		Shortener: shorten,
		Limiter:   limiter,
		Logger:    logger,
	})
	gate := pipeline.NewGate(ops, cfg.Sync.WindowStartHour, cfg.Sync.WindowEndHour)

	return &app{
		cfg:      cfg,
		logger:   logger,
		ops:      ops,
		content:  content,
		pipeline: pipeline.New(gate, processor, ops, logger),
		sweeper:  enrich.NewSweeper(enricher, ops, content, logger),
	}, nil
}

// newOpsApp opens only the ops store, for read/control commands.
func newOpsApp() (*config.Config, *store.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	ops, err := store.Open(cfg.Database.OpsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open ops store: %w", err)
	}
	return cfg, ops, nil
}

func (a *app) Close() {
	a.content.Close()
	a.ops.Close()
}
