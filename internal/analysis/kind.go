// Package analysis streams LLM analyses of a deck and tracks their outcome.
package analysis

import (
	"fmt"
)

// Kind identifies one analysis. The set is closed.
type Kind string

const (
	KindOverview     Kind = "overview"
	KindSynergies    Kind = "synergies"
	KindMulligan     Kind = "mulligan"
	KindMatchups     Kind = "matchups"
	KindTactics      Kind = "tactics"
	KindSideboarding Kind = "sideboarding"
	KindCardAnalysis Kind = "cardAnalysis"
	KindAnalyzeCard  Kind = "analyze-card"
	KindStrategy     Kind = "strategy"
)

// Framing is how a stream is encoded on the wire.
type Framing string

const (
	// FramingNDJSON emits one JSON envelope per line.
	FramingNDJSON Framing = "ndjson"
	// FramingRaw emits the generated text bytes only.
	FramingRaw Framing = "raw"
)

// ContentType returns the HTTP content type for the framing.
func (f Framing) ContentType() string {
	if f == FramingNDJSON {
		return "application/x-ndjson"
	}
	return "text/plain; charset=utf-8"
}

// Scope says what a kind analyzes.
type Scope string

const (
	ScopeDeck     Scope = "deck"
	ScopeCard     Scope = "card"
	ScopeStrategy Scope = "strategy"
)

// Profile is the static configuration of one kind.
type Profile struct {
	Kind      Kind
	Label     string
	MaxTokens int
	Template  string
	Framing   Framing
	Scope     Scope
}

var profiles = []Profile{
	{Kind: KindOverview, Label: "Quick deck assessment", MaxTokens: 1500, Template: "overview", Framing: FramingNDJSON, Scope: ScopeDeck},
	{Kind: KindSynergies, Label: "Mapping interactions", MaxTokens: 2500, Template: "synergies", Framing: FramingNDJSON, Scope: ScopeDeck},
	{Kind: KindMulligan, Label: "Mulligan framework", MaxTokens: 2000, Template: "mulligan", Framing: FramingNDJSON, Scope: ScopeDeck},
	{Kind: KindMatchups, Label: "Matchup strategies", MaxTokens: 2500, Template: "matchups", Framing: FramingNDJSON, Scope: ScopeDeck},
	{Kind: KindTactics, Label: "Turn-by-turn tactics", MaxTokens: 2500, Template: "tactics", Framing: FramingNDJSON, Scope: ScopeDeck},
	{Kind: KindSideboarding, Label: "Sideboarding strategy", MaxTokens: 2500, Template: "sideboarding", Framing: FramingNDJSON, Scope: ScopeDeck},
	{Kind: KindCardAnalysis, Label: "Card-by-card analysis", MaxTokens: 6000, Template: "cardAnalysis", Framing: FramingNDJSON, Scope: ScopeDeck},
	{Kind: KindAnalyzeCard, Label: "Single card analysis", MaxTokens: 3000, Template: "analyze-card", Framing: FramingRaw, Scope: ScopeCard},
	{Kind: KindStrategy, Label: "Strategy guide", MaxTokens: 3000, Template: "strategy", Framing: FramingRaw, Scope: ScopeStrategy},
}

// UnknownKindError is returned for a kind outside the closed set.
type UnknownKindError struct {
	Kind string
}

// Error implements the error interface for UnknownKindError.
func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("invalid step: %q", e.Kind)
}

// ProfileFor returns the profile of a kind.
func ProfileFor(kind Kind) (Profile, error) {
	for _, p := range profiles {
		if p.Kind == kind {
			return p, nil
		}
	}
	return Profile{}, &UnknownKindError{Kind: string(kind)}
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	p, err := ProfileFor(Kind(s))
	if err != nil {
		return "", err
	}
	return p.Kind, nil
}

// Kinds lists every kind in display order.
func Kinds() []Kind {
	kinds := make([]Kind, len(profiles))
	for i, p := range profiles {
		kinds[i] = p.Kind
	}
	return kinds
}

// DeckKinds lists the kinds served by the whole-deck NDJSON endpoint.
func DeckKinds() []Kind {
	var kinds []Kind
	for _, p := range profiles {
		if p.Scope == ScopeDeck {
			kinds = append(kinds, p.Kind)
		}
	}
	return kinds
}

// DeepDiveKinds lists the deck kinds beyond the quick overview.
func DeepDiveKinds() []Kind {
	var kinds []Kind
	for _, k := range DeckKinds() {
		if k != KindOverview {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
