package prompts

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/deck-strategist/internal/analysis"
	"github.com/ramonehamilton/deck-strategist/internal/deck"
	"github.com/ramonehamilton/deck-strategist/internal/deckstats"
	"github.com/ramonehamilton/deck-strategist/internal/scryfall"
)

func resolved(name, cost, typeLine, oracle string, qty int) deck.ResolvedCard {
	return deck.ResolvedCard{
		Card:     scryfall.Card{Name: name, ManaCost: cost, TypeLine: typeLine, OracleText: oracle},
		Quantity: qty,
	}
}

func TestEveryKindHasATemplate(t *testing.T) {
	a := NewAssembler(Config{})
	for _, kind := range analysis.Kinds() {
		tmpl, err := a.Template(kind)
		require.NoError(t, err, kind)
		assert.NotEmpty(t, strings.TrimSpace(tmpl), kind)
	}
}

func TestSubstitute(t *testing.T) {
	got := Substitute("{format} deck {deckName} in {format}; keep {unknown} and {Format}",
		DeckVariables("modern", "Burn"))
	assert.Equal(t, "modern deck Burn in modern; keep {unknown} and {Format}", got)
}

func TestSubstitute_ValuesAreNotReSubstituted(t *testing.T) {
	got := Substitute("{deckName}", Variables{"deckName": "{format}", "format": "legacy"})
	assert.Equal(t, "{format}", got)
}

func TestAssemble_UnknownKind(t *testing.T) {
	_, err := NewAssembler(Config{}).Assemble(analysis.Kind("nope"), nil)

	var notFound *TemplateNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "nope", notFound.Name)
}

func TestAssemble_MissingTemplateFile(t *testing.T) {
	a := NewAssembler(Config{Templates: fstest.MapFS{
		"overview.txt": {Data: []byte("overview for {format}")},
	}})

	got, err := a.Assemble(analysis.KindOverview, DeckVariables("pioneer", "x"))
	require.NoError(t, err)
	assert.Equal(t, "overview for pioneer", got)

	_, err = a.Assemble(analysis.KindTactics, nil)
	var notFound *TemplateNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestAssemble_OverrideDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mulligan.txt"), []byte("custom {deckName}"), 0o600))

	a := NewAssembler(Config{Dir: dir})

	got, err := a.Assemble(analysis.KindMulligan, DeckVariables("standard", "Azorius"))
	require.NoError(t, err)
	assert.Equal(t, "custom Azorius", got)

	// Not overridden: built-in template.
	got, err = a.Assemble(analysis.KindMatchups, DeckVariables("standard", "Azorius"))
	require.NoError(t, err)
	assert.Contains(t, got, `"Azorius"`)
}

func TestFormatCardList(t *testing.T) {
	cards := []deck.ResolvedCard{
		resolved("Lightning Bolt", "{R}", "Instant", "Lightning Bolt deals 3 damage to any target.", 4),
		resolved("Mountain", "", "Basic Land — Mountain", "", 20),
	}

	want := "4x Lightning Bolt ({R}) - Instant\n   Lightning Bolt deals 3 damage to any target.\n\n" +
		"20x Mountain (N/A) - Basic Land — Mountain\n   N/A"
	assert.Equal(t, want, FormatCardList(cards))
	assert.Equal(t, "", FormatCardList(nil))
}

func TestDeckPrompt(t *testing.T) {
	a := NewAssembler(Config{Templates: fstest.MapFS{
		"overview.txt": {Data: []byte("Assess {deckName} ({format}).")},
	}})
	main := []deck.ResolvedCard{
		resolved("Lightning Bolt", "{R}", "Instant", "3 damage.", 4),
		resolved("Mountain", "", "Basic Land — Mountain", "", 20),
	}
	side := []deck.ResolvedCard{resolved("Smash to Smithereens", "{1}{R}", "Instant", "Destroy an artifact.", 2)}

	got, err := a.DeckPrompt(analysis.KindOverview, "Burn", "modern", main, side)
	require.NoError(t, err)

	want := "Assess Burn (modern).\n" +
		"\nDECK STATS:\n- Total: 24 | Lands: 20 | Avg CMC: 1.00\n- Creatures: 0 | Instants/Sorceries: 4\n" +
		"\nMain Deck:\n4x Lightning Bolt ({R}) - Instant\n   3 damage.\n\n20x Mountain (N/A) - Basic Land — Mountain\n   N/A" +
		"\n\nSideboard:\n2x Smash to Smithereens ({1}{R}) - Instant\n   Destroy an artifact."
	assert.Equal(t, want, got)
}

func TestDeckPrompt_RejectsNonDeckKind(t *testing.T) {
	_, err := NewAssembler(Config{}).DeckPrompt(analysis.KindStrategy, "d", "f", nil, nil)
	assert.Error(t, err)
}

func TestStrategyPrompt(t *testing.T) {
	a := NewAssembler(Config{Templates: fstest.MapFS{
		"strategy.txt": {Data: []byte("Guide for {deckName}")},
	}})
	main := []deck.ResolvedCard{resolved("Opt", "{U}", "Instant", "Scry 1. Draw a card.", 4)}

	got, err := a.StrategyPrompt("Izzet", "pioneer", main, []deck.ResolvedCard{})
	require.NoError(t, err)
	assert.Equal(t, "Guide for Izzet\n\nMain deck:\n4x Opt ({U}) - Instant\n   Scry 1. Draw a card.\n\nSideboard:\n", got)
}

func TestCardPrompt(t *testing.T) {
	a := NewAssembler(Config{Templates: fstest.MapFS{
		"analyze-card.txt": {Data: []byte("Analyze {cardName} in {format}.")},
	}})
	card := resolved("Lightning Bolt", "{R}", "Instant", "Lightning Bolt deals 3 damage to any target.", 4)
	summary := deckstats.Summary{
		Format:         "modern",
		TotalCards:     60,
		AverageCMC:     1.5,
		ArchetypeHints: "Instant: 20, Basic Land: 20",
		OtherCards:     "Lightning Bolt, Mountain",
	}

	got, err := a.CardPrompt(card, summary, "modern")
	require.NoError(t, err)

	want := "Analyze Lightning Bolt in modern.\n\nCARD:\n" +
		"4x Lightning Bolt ({R}) - Instant\nLightning Bolt deals 3 damage to any target.\n\n" +
		"DECK CONTEXT:\n- Format: modern\n- Total Cards: 60\n- Avg CMC: 1.5\n- Archetype: Instant: 20, Basic Land: 20\n\n" +
		"OTHER CARDS:\nLightning Bolt, Mountain"
	assert.Equal(t, want, got)
}
