package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ramonehamilton/deck-strategist/internal/deck"
	"github.com/ramonehamilton/deck-strategist/internal/resolver"
	"github.com/ramonehamilton/deck-strategist/internal/scryfall"
	"github.com/ramonehamilton/deck-strategist/internal/strategy"
)

func TestPrintResolved(t *testing.T) {
	d := &deck.Deck{DeckName: "Mono Red Burn", Format: "modern"}
	result := &resolver.Result{
		Cards: []deck.ResolvedCard{
			{Card: scryfall.Card{Name: "Mountain"}, Quantity: 20, DeckType: "Basic Land", Section: deck.SectionMain},
			{Card: scryfall.Card{Name: "Lightning Bolt", ManaCost: "{R}", Legalities: map[string]string{"modern": "legal"}},
				Quantity: 4, DeckType: "Instant", Section: deck.SectionMain},
			{Card: scryfall.Card{Name: "Smash to Smithereens"}, Quantity: 2, DeckType: "Instant", Section: deck.SectionSideboard},
		},
		Errors: []resolver.Failure{{CardName: "Misspelled Card", Error: "not found"}},
	}

	var buf bytes.Buffer
	printResolved(&buf, d, result)
	out := buf.String()

	assert.Contains(t, out, "Mono Red Burn (modern)")
	assert.Contains(t, out, "Main Deck (24)")
	assert.Contains(t, out, "Sideboard (2)")
	assert.Less(t, strings.Index(out, "Instant (4)"), strings.Index(out, "Basic Land (20)"))
	assert.Contains(t, out, "Modern")
	assert.Contains(t, out, "Misspelled Card: not found")
}

func TestProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := &progressPrinter{out: &buf}

	p.Publish(strategy.EventResolveDone, nil)
	assert.Empty(t, buf.String())

	p.Publish(strategy.EventResolveProgress, resolver.Progress{Total: 3, Current: 1, CardName: "Lightning Bolt"})
	assert.Contains(t, buf.String(), "[1/3] Lightning Bolt")
}

func TestRenderRaw(t *testing.T) {
	analyzeRaw = true
	defer func() { analyzeRaw = false }()

	var buf bytes.Buffer
	assert.NoError(t, render(&buf, "## Plan\nAttack."))
	assert.Equal(t, "## Plan\nAttack.\n", buf.String())
}

func TestKindList(t *testing.T) {
	list := kindList()
	assert.True(t, strings.HasPrefix(list, "overview, "))
	assert.Contains(t, list, "analyze-card")
}

func TestPrintFailures(t *testing.T) {
	var buf bytes.Buffer
	printFailures(&buf, nil)
	assert.Empty(t, buf.String())

	printFailures(&buf, []resolver.Failure{
		{CardName: "Lightning Blot", Error: `card "Lightning Blot" not found`},
	})
	assert.Equal(t,
		"1 card(s) could not be resolved and are left out of the analysis:\n  Lightning Blot: card \"Lightning Blot\" not found\n",
		buf.String())
}
