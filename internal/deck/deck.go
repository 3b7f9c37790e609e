// Package deck models deck definitions and the cards resolved for them.
package deck

import (
	"fmt"
	"strings"

	"github.com/ramonehamilton/deck-strategist/internal/scryfall"
)

// Deck is a deck definition as stored in deck.json.
type Deck struct {
	DeckName    string      `json:"deckName" yaml:"deckName"`
	Format      string      `json:"format" yaml:"format"`
	LastUpdated string      `json:"lastUpdated,omitempty" yaml:"lastUpdated,omitempty"`
	MainDeck    []SlotEntry `json:"mainDeck" yaml:"mainDeck"`
	Sideboard   []SlotEntry `json:"sideboard" yaml:"sideboard"`
	Totals      *Totals     `json:"totals,omitempty" yaml:"totals,omitempty"`
}

// SlotEntry is one declared line of a deck list.
type SlotEntry struct {
	Quantity int    `json:"quantity" yaml:"quantity"`
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
}

// Totals are the optional declared card counts.
type Totals struct {
	MainDeckCards  int `json:"mainDeckCards" yaml:"mainDeckCards"`
	SideboardCards int `json:"sideboardCards" yaml:"sideboardCards"`
}

// Section identifies which part of the deck a card came from.
type Section string

const (
	SectionMain      Section = "main"
	SectionSideboard Section = "sideboard"
)

// ResolvedCard is a catalog record merged with one slot entry's quantity and
// declared type. A card in both main deck and sideboard resolves to two
// independent ResolvedCards.
type ResolvedCard struct {
	scryfall.Card
	Quantity int     `json:"quantity"`
	DeckType string  `json:"deckType"`
	Section  Section `json:"section"`
}

// ValidationError reports deck input that cannot be processed.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEntries checks that every slot entry names a card with a positive quantity.
func ValidateEntries(section Section, entries []SlotEntry) error {
	for i, entry := range entries {
		field := fmt.Sprintf("%s[%d]", section, i)
		if strings.TrimSpace(entry.Name) == "" {
			return &ValidationError{Field: field, Message: "card name is required"}
		}
		if entry.Quantity <= 0 {
			return &ValidationError{Field: field, Message: fmt.Sprintf("quantity for %q must be positive", entry.Name)}
		}
	}
	return nil
}

// Validate checks the deck header and both card lists.
func (d *Deck) Validate() error {
	if strings.TrimSpace(d.DeckName) == "" {
		return &ValidationError{Field: "deckName", Message: "deck name is required"}
	}
	if strings.TrimSpace(d.Format) == "" {
		return &ValidationError{Field: "format", Message: "format is required"}
	}
	if err := ValidateEntries(SectionMain, d.MainDeck); err != nil {
		return err
	}
	return ValidateEntries(SectionSideboard, d.Sideboard)
}

// CardCount sums quantities across entries.
func CardCount(entries []SlotEntry) int {
	total := 0
	for _, e := range entries {
		total += e.Quantity
	}
	return total
}

// SplitSections separates resolved cards into main deck and sideboard.
func SplitSections(cards []ResolvedCard) (main, side []ResolvedCard) {
	for _, c := range cards {
		if c.Section == SectionSideboard {
			side = append(side, c)
			continue
		}
		main = append(main, c)
	}
	return main, side
}

// displayTypeOrder is the fixed order card groups are listed in.
var displayTypeOrder = []string{
	"Creature", "Planeswalker", "Instant", "Sorcery",
	"Enchantment", "Artifact", "Land", "Basic Land",
}

// TypeGroup is a set of cards sharing a declared deck type.
type TypeGroup struct {
	Type  string         `json:"type"`
	Cards []ResolvedCard `json:"cards"`
}

// GroupByType groups cards by their declared deck type, known types first in
// display order, then any other types in encounter order.
func GroupByType(cards []ResolvedCard) []TypeGroup {
	index := make(map[string]int)
	var encountered []TypeGroup
	for _, c := range cards {
		t := c.DeckType
		if t == "" {
			t = "Other"
		}
		i, ok := index[t]
		if !ok {
			i = len(encountered)
			index[t] = i
			encountered = append(encountered, TypeGroup{Type: t})
		}
		encountered[i].Cards = append(encountered[i].Cards, c)
	}

	groups := make([]TypeGroup, 0, len(encountered))
	placed := make(map[string]bool)
	for _, t := range displayTypeOrder {
		if i, ok := index[t]; ok {
			groups = append(groups, encountered[i])
			placed[t] = true
		}
	}
	for _, g := range encountered {
		if !placed[g.Type] {
			groups = append(groups, g)
		}
	}
	return groups
}
