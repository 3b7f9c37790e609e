package analysis

import (
	"strings"

	"github.com/ramonehamilton/deck-strategist/internal/deck"
	"github.com/ramonehamilton/deck-strategist/internal/deckstats"
)

const missingFields = "Missing required fields"

// DeckRequest asks for one whole-deck analysis step.
type DeckRequest struct {
	DeckName  string              `json:"deckName"`
	Format    string              `json:"format"`
	MainDeck  []deck.ResolvedCard `json:"mainDeck"`
	Sideboard []deck.ResolvedCard `json:"sideboard"`
	Step      Kind                `json:"step"`
}

// Validate checks required fields. Empty card lists are allowed; absent ones are not.
func (r *DeckRequest) Validate() error {
	if err := requireHeader(r.DeckName, r.Format, r.MainDeck, r.Sideboard); err != nil {
		return err
	}
	if r.Step == "" {
		return &deck.ValidationError{Field: "step", Message: missingFields}
	}
	return nil
}

// StrategyRequest asks for the free-form strategy guide.
type StrategyRequest struct {
	DeckName  string              `json:"deckName"`
	Format    string              `json:"format"`
	MainDeck  []deck.ResolvedCard `json:"mainDeck"`
	Sideboard []deck.ResolvedCard `json:"sideboard"`
}

// Validate checks required fields.
func (r *StrategyRequest) Validate() error {
	return requireHeader(r.DeckName, r.Format, r.MainDeck, r.Sideboard)
}

// CardRequest asks for the analysis of one card in its deck context.
type CardRequest struct {
	Card        *deck.ResolvedCard `json:"card"`
	DeckContext *deckstats.Summary `json:"deckContext"`
	Format      string             `json:"format"`
}

// Validate checks required fields.
func (r *CardRequest) Validate() error {
	switch {
	case r.Card == nil || strings.TrimSpace(r.Card.Name) == "":
		return &deck.ValidationError{Field: "card", Message: missingFields}
	case r.DeckContext == nil:
		return &deck.ValidationError{Field: "deckContext", Message: missingFields}
	case strings.TrimSpace(r.Format) == "":
		return &deck.ValidationError{Field: "format", Message: missingFields}
	}
	return nil
}

func requireHeader(deckName, format string, main, side []deck.ResolvedCard) error {
	switch {
	case strings.TrimSpace(deckName) == "":
		return &deck.ValidationError{Field: "deckName", Message: missingFields}
	case strings.TrimSpace(format) == "":
		return &deck.ValidationError{Field: "format", Message: missingFields}
	case main == nil:
		return &deck.ValidationError{Field: "mainDeck", Message: missingFields}
	case side == nil:
		return &deck.ValidationError{Field: "sideboard", Message: missingFields}
	}
	return nil
}
