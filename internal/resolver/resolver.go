// Package resolver turns deck lists into resolved catalog cards.
package resolver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ramonehamilton/deck-strategist/internal/deck"
	"github.com/ramonehamilton/deck-strategist/internal/scryfall"
)

// MinRequestInterval is the fixed pause between consecutive catalog lookups.
// Scryfall asks clients to stay at or below 10 requests per second.
const MinRequestInterval = 100 * time.Millisecond

// Catalog resolves a single card name.
type Catalog interface {
	Resolve(ctx context.Context, name string) (*scryfall.Card, error)
}

// Progress reports the lookup about to happen.
type Progress struct {
	Total    int    `json:"total"`
	Current  int    `json:"current"`
	CardName string `json:"cardName"`
}

// ProgressFunc receives progress synchronously before each lookup.
type ProgressFunc func(Progress)

// Failure records a card name whose lookup failed.
type Failure struct {
	CardName string `json:"cardName"`
	Error    string `json:"error"`
}

// Result is the outcome of one resolution pass.
type Result struct {
	Cards  []deck.ResolvedCard `json:"cards"`
	Errors []Failure           `json:"errors"`
}

// Config configures the resolver.
type Config struct {
	Catalog Catalog

	// Interval overrides MinRequestInterval (tests).
	Interval time.Duration

	Logger *zap.Logger
}

// Resolver drives the catalog across every unique card in a deck, one name
// at a time.
type Resolver struct {
	catalog  Catalog
	interval time.Duration
	logger   *zap.Logger

	// wait pauses between lookups; replaced in tests.
	wait func(ctx context.Context, d time.Duration) error
}

// New creates a Resolver.
func New(config Config) *Resolver {
	interval := config.Interval
	if interval <= 0 {
		interval = MinRequestInterval
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		catalog:  config.Catalog,
		interval: interval,
		logger:   logger,
		wait:     sleepContext,
	}
}

// ResolveAll resolves every distinct card across main deck and sideboard.
//
// Lookups run sequentially in first-occurrence order. A failed lookup is
// recorded in Result.Errors and the pass moves on; the returned error is
// non-nil only for invalid input or when ctx ends the pass early.
func (r *Resolver) ResolveAll(ctx context.Context, mainDeck, sideboard []deck.SlotEntry, onProgress ProgressFunc) (*Result, error) {
	if err := deck.ValidateEntries(deck.SectionMain, mainDeck); err != nil {
		return nil, err
	}
	if err := deck.ValidateEntries(deck.SectionSideboard, sideboard); err != nil {
		return nil, err
	}

	names := UniqueNames(mainDeck, sideboard)
	result := &Result{
		Cards:  []deck.ResolvedCard{},
		Errors: []Failure{},
	}
	start := time.Now()

	for i, name := range names {
		if onProgress != nil {
			onProgress(Progress{Total: len(names), Current: i + 1, CardName: name})
		}

		card, err := r.catalog.Resolve(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Warn("card lookup failed", zap.String("card", name), zap.Error(err))
			result.Errors = append(result.Errors, Failure{CardName: name, Error: err.Error()})
		} else {
			result.Cards = append(result.Cards, expand(card, name, mainDeck, sideboard)...)
		}

		if i < len(names)-1 {
			if err := r.wait(ctx, r.interval); err != nil {
				return nil, err
			}
		}
	}

	r.logger.Info("deck resolution finished",
		zap.Int("unique", len(names)),
		zap.Int("resolved", len(result.Cards)),
		zap.Int("failed", len(result.Errors)),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// UniqueNames returns distinct card names in first-occurrence order across
// main deck then sideboard.
func UniqueNames(mainDeck, sideboard []deck.SlotEntry) []string {
	seen := make(map[string]bool, len(mainDeck)+len(sideboard))
	var names []string
	for _, list := range [][]deck.SlotEntry{mainDeck, sideboard} {
		for _, entry := range list {
			if seen[entry.Name] {
				continue
			}
			seen[entry.Name] = true
			names = append(names, entry.Name)
		}
	}
	return names
}

// expand produces one ResolvedCard per slot entry naming card, main deck first.
func expand(card *scryfall.Card, name string, mainDeck, sideboard []deck.SlotEntry) []deck.ResolvedCard {
	var out []deck.ResolvedCard
	sections := []struct {
		section deck.Section
		entries []deck.SlotEntry
	}{
		{deck.SectionMain, mainDeck},
		{deck.SectionSideboard, sideboard},
	}
	for _, s := range sections {
		for _, entry := range s.entries {
			if entry.Name != name {
				continue
			}
			out = append(out, deck.ResolvedCard{
				Card:     *card,
				Quantity: entry.Quantity,
				DeckType: entry.Type,
				Section:  s.section,
			})
		}
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
