// Package strategy composes card resolution, prompt assembly and analysis
// streaming into the operations served by the API and the CLI.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ramonehamilton/deck-strategist/internal/analysis"
	"github.com/ramonehamilton/deck-strategist/internal/deck"
	"github.com/ramonehamilton/deck-strategist/internal/deckstats"
	"github.com/ramonehamilton/deck-strategist/internal/llm"
	"github.com/ramonehamilton/deck-strategist/internal/prompts"
	"github.com/ramonehamilton/deck-strategist/internal/resolver"
	"github.com/ramonehamilton/deck-strategist/internal/scryfall"
	"github.com/ramonehamilton/deck-strategist/internal/storage/models"
)

// Event types published to live subscribers.
const (
	EventResolveProgress = "resolve:progress"
	EventResolveDone     = "resolve:done"
	EventAnalysisState   = "analysis:state"
	EventDeckReloaded    = "deck:reloaded"
)

// ResolveSummary is the payload of EventResolveDone.
type ResolveSummary struct {
	Cards    int                `json:"cards"`
	Errors   int                `json:"errors"`
	Failures []resolver.Failure `json:"failures"`
}

// ResolvedDeck is the loaded deck resolved against the catalog. One value
// can feed any number of analyses.
type ResolvedDeck struct {
	Deck      *deck.Deck
	Main      []deck.ResolvedCard
	Sideboard []deck.ResolvedCard

	// Failures lists the cards that could not be resolved and are missing
	// from Main and Sideboard.
	Failures []resolver.Failure
}

// All returns the main deck cards followed by the sideboard cards.
func (r *ResolvedDeck) All() []deck.ResolvedCard {
	all := make([]deck.ResolvedCard, 0, len(r.Main)+len(r.Sideboard))
	all = append(all, r.Main...)
	return append(all, r.Sideboard...)
}

// ErrNoDeck is returned when an operation needs the loaded deck and none is loaded.
var ErrNoDeck = errors.New("no deck loaded")

// Catalog looks up single cards.
type Catalog interface {
	Resolve(ctx context.Context, name string) (*scryfall.Card, error)
}

// Provider is the text-generation backend.
type Provider interface {
	analysis.Provider
	Configured() bool
}

// Publisher delivers events to live subscribers.
type Publisher interface {
	Publish(eventType string, data any)
}

// Remote opens analysis transports on a running server instead of calling
// the provider directly.
type Remote interface {
	OpenDeck(ctx context.Context, req analysis.DeckRequest) (io.ReadCloser, error)
	OpenCard(ctx context.Context, req analysis.CardRequest) (io.ReadCloser, error)
	OpenStrategy(ctx context.Context, req analysis.StrategyRequest) (io.ReadCloser, error)
}

// History persists settled analyses.
type History interface {
	RecordAnalysis(ctx context.Context, result *models.AnalysisResult) error
	AnalysisHistory(ctx context.Context, limit int) ([]*models.AnalysisResult, error)
}

// Config wires the facade.
type Config struct {
	Catalog  Catalog
	Provider Provider
	Prompts  *prompts.Assembler

	// Deck is the watched deck file; optional.
	Deck *deck.Source

	// Events and History are optional.
	Events  Publisher
	History History

	// Remote, when set, serves deck analyses (RunAnalysis, Analyze) from a
	// server; Provider is then unused by them.
	Remote Remote

	// PassTimeout bounds one resolution pass. Zero means no bound.
	PassTimeout time.Duration

	// RequestInterval overrides resolver.MinRequestInterval (tests).
	RequestInterval time.Duration

	Logger *zap.Logger
}

// Facade is the single entry point to the strategist pipeline.
type Facade struct {
	catalog     Catalog
	provider    Provider
	prompts     *prompts.Assembler
	resolver    *resolver.Resolver
	streams     *analysis.Service
	consumer    *analysis.Consumer
	tracker     *analysis.Tracker
	source      *deck.Source
	events      Publisher
	history     History
	remote      Remote
	passTimeout time.Duration
	logger      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates the facade and registers its observers.
func New(config Config) *Facade {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	assembler := config.Prompts
	if assembler == nil {
		assembler = prompts.NewAssembler(prompts.Config{Logger: logger})
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := &Facade{
		catalog:  config.Catalog,
		provider: config.Provider,
		prompts:  assembler,
		resolver: resolver.New(resolver.Config{
			Catalog:  config.Catalog,
			Interval: config.RequestInterval,
			Logger:   logger.Named("resolver"),
		}),
		streams: analysis.NewService(analysis.ServiceConfig{
			Provider: config.Provider,
			Logger:   logger.Named("stream"),
		}),
		consumer:    analysis.NewConsumer(logger.Named("consumer")),
		tracker:     analysis.NewTracker(),
		source:      config.Deck,
		events:      config.Events,
		history:     config.History,
		remote:      config.Remote,
		passTimeout: config.PassTimeout,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}

	f.tracker.OnChange(f.onStateChange)
	if f.source != nil {
		f.source.OnReload(func(d *deck.Deck) {
			f.publish(EventDeckReloaded, d)
		})
	}
	return f
}

// Close stops background analyses and waits for them to settle.
func (f *Facade) Close() {
	f.cancel()
	f.wg.Wait()
}

// Tracker exposes the per-kind analysis states.
func (f *Facade) Tracker() *analysis.Tracker {
	return f.tracker
}

// Deck returns the loaded deck definition.
func (f *Facade) Deck() (*deck.Deck, error) {
	if f.source == nil || f.source.Current() == nil {
		return nil, ErrNoDeck
	}
	return f.source.Current(), nil
}

// LookupCard resolves one card through the catalog cache.
func (f *Facade) LookupCard(ctx context.Context, name string) (*scryfall.Card, error) {
	if name == "" {
		return nil, &deck.ValidationError{Field: "exact", Message: "card name is required"}
	}
	return f.catalog.Resolve(ctx, name)
}

// FetchDeckCards resolves every card of the given lists, or of the loaded
// deck when both are nil. Progress is published as it happens.
func (f *Facade) FetchDeckCards(ctx context.Context, mainDeck, sideboard []deck.SlotEntry) (*resolver.Result, error) {
	if mainDeck == nil && sideboard == nil {
		d, err := f.Deck()
		if err != nil {
			return nil, err
		}
		mainDeck, sideboard = d.MainDeck, d.Sideboard
	}

	if f.passTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.passTimeout)
		defer cancel()
	}

	result, err := f.resolver.ResolveAll(ctx, mainDeck, sideboard, func(p resolver.Progress) {
		f.publish(EventResolveProgress, p)
	})
	if err != nil {
		return nil, err
	}
	f.publish(EventResolveDone, ResolveSummary{
		Cards:    len(result.Cards),
		Errors:   len(result.Errors),
		Failures: result.Errors,
	})
	return result, nil
}

// Summarize derives the deck context of resolved cards.
func (f *Facade) Summarize(cards []deck.ResolvedCard, format string) deckstats.Summary {
	return deckstats.Summarize(cards, format)
}

// GenerateAnalysis opens one whole-deck analysis stream (NDJSON).
func (f *Facade) GenerateAnalysis(ctx context.Context, req analysis.DeckRequest) (io.ReadCloser, error) {
	if err := f.checkProvider(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	prompt, err := f.prompts.DeckPrompt(req.Step, req.DeckName, req.Format, req.MainDeck, req.Sideboard)
	if err != nil {
		return nil, err
	}
	return f.open(ctx, req.Step, prompt)
}

// GenerateCardAnalysis opens one single-card analysis stream (raw text).
func (f *Facade) GenerateCardAnalysis(ctx context.Context, req analysis.CardRequest) (io.ReadCloser, error) {
	if err := f.checkProvider(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	prompt, err := f.prompts.CardPrompt(*req.Card, *req.DeckContext, req.Format)
	if err != nil {
		return nil, err
	}
	return f.open(ctx, analysis.KindAnalyzeCard, prompt)
}

// GenerateStrategy opens the strategy guide stream (raw text).
func (f *Facade) GenerateStrategy(ctx context.Context, req analysis.StrategyRequest) (io.ReadCloser, error) {
	if err := f.checkProvider(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	prompt, err := f.prompts.StrategyPrompt(req.DeckName, req.Format, req.MainDeck, req.Sideboard)
	if err != nil {
		return nil, err
	}
	return f.open(ctx, analysis.KindStrategy, prompt)
}

func (f *Facade) open(ctx context.Context, kind analysis.Kind, prompt string) (io.ReadCloser, error) {
	req, err := analysis.RequestFor(kind, prompt)
	if err != nil {
		return nil, err
	}
	return f.streams.Stream(ctx, req)
}

func (f *Facade) checkProvider() error {
	if f.provider == nil || !f.provider.Configured() {
		return llm.ErrMissingAPIKey
	}
	return nil
}

// RunAnalysis starts a background analysis of the loaded deck and returns its
// run id. The outcome lands in the tracker. cardName is required for the
// single-card kind and ignored otherwise.
func (f *Facade) RunAnalysis(ctx context.Context, kind analysis.Kind, cardName string) (string, error) {
	open, err := f.prepare(ctx, kind, cardName)
	if err != nil {
		return "", err
	}

	runID := f.tracker.Begin(kind)
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		_, _ = f.consumer.Settle(f.ctx, f.tracker, kind, runID, open)
	}()
	return runID, nil
}

// Analyze runs one analysis of the loaded deck to completion and returns
// its content. The tracker reflects the run as it progresses.
func (f *Facade) Analyze(ctx context.Context, kind analysis.Kind, cardName string) (string, error) {
	open, err := f.prepare(ctx, kind, cardName)
	if err != nil {
		return "", err
	}
	return f.consumer.Run(ctx, f.tracker, kind, open)
}

// AnalyzeResolved runs one analysis over an already resolved deck, so that
// several kinds can share a single resolution pass.
func (f *Facade) AnalyzeResolved(ctx context.Context, rd *ResolvedDeck, kind analysis.Kind, cardName string) (string, error) {
	if rd == nil || rd.Deck == nil {
		return "", ErrNoDeck
	}
	profile, err := f.CheckAnalysis(kind, cardName)
	if err != nil {
		return "", err
	}
	open, err := f.opener(profile, rd, cardName)
	if err != nil {
		return "", err
	}
	return f.consumer.Run(ctx, f.tracker, kind, open)
}

// CheckAnalysis reports the configuration and input errors that would stop
// an analysis of kind before any external call.
func (f *Facade) CheckAnalysis(kind analysis.Kind, cardName string) (analysis.Profile, error) {
	profile, err := analysis.ProfileFor(kind)
	if err != nil {
		return analysis.Profile{}, err
	}
	if f.remote == nil {
		if err := f.checkProvider(); err != nil {
			return analysis.Profile{}, err
		}
	}
	if profile.Scope == analysis.ScopeCard && cardName == "" {
		return analysis.Profile{}, &deck.ValidationError{Field: "cardName", Message: "card name is required for single card analysis"}
	}
	return profile, nil
}

// ResolveDeck resolves the loaded deck once. Cards that fail to resolve are
// logged and listed in Failures; analyses proceed without them.
func (f *Facade) ResolveDeck(ctx context.Context) (*ResolvedDeck, error) {
	d, err := f.Deck()
	if err != nil {
		return nil, err
	}
	result, err := f.FetchDeckCards(ctx, d.MainDeck, d.Sideboard)
	if err != nil {
		return nil, err
	}
	for _, failure := range result.Errors {
		f.logger.Warn("card left out of analysis",
			zap.String("card", failure.CardName),
			zap.String("reason", failure.Error))
	}

	main, side := deck.SplitSections(result.Cards)
	if main == nil {
		main = []deck.ResolvedCard{}
	}
	if side == nil {
		side = []deck.ResolvedCard{}
	}
	return &ResolvedDeck{Deck: d, Main: main, Sideboard: side, Failures: result.Errors}, nil
}

// prepare resolves the loaded deck and returns the transport opener of one
// analysis. Configuration and input errors surface here, before any run begins.
func (f *Facade) prepare(ctx context.Context, kind analysis.Kind, cardName string) (analysis.OpenFunc, error) {
	profile, err := f.CheckAnalysis(kind, cardName)
	if err != nil {
		return nil, err
	}
	rd, err := f.ResolveDeck(ctx)
	if err != nil {
		return nil, err
	}
	return f.opener(profile, rd, cardName)
}

func (f *Facade) opener(profile analysis.Profile, rd *ResolvedDeck, cardName string) (analysis.OpenFunc, error) {
	openDeck, openCard, openStrategy := f.GenerateAnalysis, f.GenerateCardAnalysis, f.GenerateStrategy
	if f.remote != nil {
		openDeck, openCard, openStrategy = f.remote.OpenDeck, f.remote.OpenCard, f.remote.OpenStrategy
	}
	d := rd.Deck

	switch profile.Scope {
	case analysis.ScopeDeck:
		req := analysis.DeckRequest{DeckName: d.DeckName, Format: d.Format, MainDeck: rd.Main, Sideboard: rd.Sideboard, Step: profile.Kind}
		return func(ctx context.Context) (io.ReadCloser, error) { return openDeck(ctx, req) }, nil

	case analysis.ScopeStrategy:
		req := analysis.StrategyRequest{DeckName: d.DeckName, Format: d.Format, MainDeck: rd.Main, Sideboard: rd.Sideboard}
		return func(ctx context.Context) (io.ReadCloser, error) { return openStrategy(ctx, req) }, nil

	case analysis.ScopeCard:
		all := rd.All()
		card := findCard(all, cardName)
		if card == nil {
			return nil, &deck.ValidationError{Field: "cardName", Message: fmt.Sprintf("%q is not a resolved card of the deck", cardName)}
		}
		// Context spans main deck and sideboard.
		summary := deckstats.Summarize(all, d.Format)
		req := analysis.CardRequest{Card: card, DeckContext: &summary, Format: d.Format}
		return func(ctx context.Context) (io.ReadCloser, error) { return openCard(ctx, req) }, nil
	}
	return nil, &analysis.UnknownKindError{Kind: string(profile.Kind)}
}

func findCard(cards []deck.ResolvedCard, name string) *deck.ResolvedCard {
	for i := range cards {
		if cards[i].Name == name {
			return &cards[i]
		}
	}
	return nil
}

// AnalysisHistory returns the persisted analyses, newest first.
func (f *Facade) AnalysisHistory(ctx context.Context, limit int) ([]*models.AnalysisResult, error) {
	if f.history == nil {
		return []*models.AnalysisResult{}, nil
	}
	return f.history.AnalysisHistory(ctx, limit)
}

func (f *Facade) onStateChange(kind analysis.Kind, state analysis.State) {
	f.publish(EventAnalysisState, map[string]any{"kind": kind, "state": state})

	if f.history == nil || (state.Status != analysis.StatusCompleted && state.Status != analysis.StatusError) {
		return
	}

	deckName := ""
	if d, err := f.Deck(); err == nil {
		deckName = d.DeckName
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := f.history.RecordAnalysis(ctx, &models.AnalysisResult{
		RunID:     state.RunID,
		Kind:      string(kind),
		Status:    string(state.Status),
		Content:   state.Content,
		Error:     state.Error,
		DeckName:  deckName,
		CreatedAt: state.UpdatedAt,
	})
	if err != nil {
		f.logger.Warn("failed to record analysis", zap.String("kind", string(kind)), zap.Error(err))
	}
}

func (f *Facade) publish(eventType string, data any) {
	if f.events != nil {
		f.events.Publish(eventType, data)
	}
}
