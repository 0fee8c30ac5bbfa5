package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dshills/codexref/internal/config"
	"github.com/dshills/codexref/internal/extractor"
	"github.com/dshills/codexref/internal/graph"
	"github.com/dshills/codexref/internal/reconcile"
	"github.com/dshills/codexref/internal/searcher"
	"github.com/dshills/codexref/internal/storage"
)

// app holds the engine components shared by all commands
type app struct {
	cfg        *config.Config
	log        *slog.Logger
	store      *storage.DocumentStore
	searcher   *searcher.Searcher
	graph      *graph.Engine
	reconciler *reconcile.Engine
}

// loadConfig reads the config file and applies command-line overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagStore != "" {
		cfg.StorePath = flagStore
	}
	if flagLogLevel != "" {
		if _, err := config.ParseLevel(flagLogLevel); err != nil {
			return nil, err
		}
		cfg.LogLevel = flagLogLevel
	}
	return cfg, nil
}

// newLogger logs to stderr; stdout is reserved for command output and MCP
func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
}

// openApp loads configuration and opens the store with all engines wired to it
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	storePath := config.ExpandPath(cfg.StorePath)
	indexPath := config.ExpandPath(cfg.IndexPath)
	for _, p := range []string{storePath, indexPath} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	store := storage.NewDocumentStore(storage.Options{
		SnapshotPath: storePath,
		IndexPath:    indexPath,
		Logger:       logger,
	})
	if err := store.Open(ctx); err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	g := graph.New(store, logger)
	return &app{
		cfg:   cfg,
		log:   logger,
		store: store,
		searcher: searcher.New(store, searcher.Options{
			CacheSize: cfg.CacheSize,
			CacheTTL:  cfg.CacheTTL,
			Logger:    logger,
		}),
		graph: g,
		reconciler: reconcile.New(store, g, extractor.DefaultRegistry(), reconcile.Options{
			Workers: cfg.Workers,
			Logger:  logger,
		}),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// indexOptions merges command flags over the configured defaults
func (a *app) indexOptions(force bool, tests, vendor *bool) reconcile.IndexOptions {
	opts := reconcile.IndexOptions{
		Force:         force,
		IncludeTests:  a.cfg.IncludeTests,
		IncludeVendor: a.cfg.IncludeVendor,
	}
	if tests != nil {
		opts.IncludeTests = *tests
	}
	if vendor != nil {
		opts.IncludeVendor = *vendor
	}
	return opts
}
