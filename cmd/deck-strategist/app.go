package main

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ramonehamilton/deck-strategist/internal/analysis"
	"github.com/ramonehamilton/deck-strategist/internal/config"
	"github.com/ramonehamilton/deck-strategist/internal/deck"
	"github.com/ramonehamilton/deck-strategist/internal/llm"
	"github.com/ramonehamilton/deck-strategist/internal/prompts"
	"github.com/ramonehamilton/deck-strategist/internal/scryfall"
	"github.com/ramonehamilton/deck-strategist/internal/storage"
	"github.com/ramonehamilton/deck-strategist/internal/strategy"
)

// app holds the wired components of one command run.
type app struct {
	facade  *strategy.Facade
	source  *deck.Source
	storage *storage.Service
	catalog *scryfall.Client
}

// appOptions tunes wiring per command.
type appOptions struct {
	events strategy.Publisher

	// remote is the base URL of a running server that serves analyses.
	remote string
}

// newApp wires catalog, storage, provider and deck into a facade.
func newApp(cfg *config.Config, logger *zap.Logger, opts appOptions) (*app, error) {
	a := &app{}

	if cfg.Storage.Enabled {
		db, err := storage.Open(storage.DefaultConfig(cfg.Storage.Path))
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.storage = storage.NewService(db)
		a.storage.SetHistoryPerKind(cfg.Storage.HistoryPerKind)
	}

	cache, err := scryfall.NewCache(scryfall.Policy(cfg.Cache.Policy), cfg.Cache.MaxSize)
	if err != nil {
		a.close()
		return nil, err
	}
	if a.storage != nil && cfg.Cache.Persistent {
		cache = scryfall.NewTieredCache(cache, a.storage, logger.Named("cache"))
	}
	a.catalog = scryfall.NewClient(&scryfall.Config{
		BaseURL:        cfg.Catalog.BaseURL,
		UserAgent:      cfg.Catalog.UserAgent,
		RequestTimeout: cfg.CatalogTimeout(),
		Cache:          cache,
		Logger:         logger.Named("scryfall"),
	})

	provider := llm.NewClient(&llm.Config{
		APIKey:        cfg.LLM.APIKey,
		BaseURL:       cfg.LLM.BaseURL,
		Model:         cfg.LLM.Model,
		StreamTimeout: cfg.StreamTimeout(),
		Logger:        logger.Named("llm"),
	})

	a.source, err = deck.NewSource(cfg.Deck.Path, logger.Named("deck"))
	switch {
	case errors.Is(err, deck.ErrDeckNotFound):
		logger.Warn("no deck loaded", zap.String("path", cfg.Deck.Path))
		a.source = nil
	case err != nil:
		a.close()
		return nil, err
	}

	fc := strategy.Config{
		Catalog:     a.catalog,
		Provider:    provider,
		Prompts:     prompts.NewAssembler(prompts.Config{Dir: cfg.Prompts.Dir, Logger: logger.Named("prompts")}),
		Deck:        a.source,
		Events:      opts.events,
		PassTimeout: cfg.PassTimeout(),
		Logger:      logger,
	}
	if a.storage != nil {
		fc.History = a.storage
	}
	if opts.remote != "" {
		fc.Remote = analysis.NewRemoteClient(opts.remote, nil)
	}
	a.facade = strategy.New(fc)
	return a, nil
}

func (a *app) close() {
	if a.facade != nil {
		a.facade.Close()
	}
	if a.storage != nil {
		_ = a.storage.Close()
	}
}
