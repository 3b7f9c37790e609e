// Package prompts assembles the text sent to the model for each analysis kind.
package prompts

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ramonehamilton/deck-strategist/internal/analysis"
	"github.com/ramonehamilton/deck-strategist/internal/deck"
	"github.com/ramonehamilton/deck-strategist/internal/deckstats"
)

//go:embed templates/*.txt
var embedded embed.FS

// TemplateNotFoundError is returned when no template exists for a kind.
type TemplateNotFoundError struct {
	Name string
}

// Error implements the error interface for TemplateNotFoundError.
func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("prompt template %q not found", e.Name)
}

// Variables are substituted for {name} placeholders.
type Variables map[string]string

// DeckVariables are the placeholders of the whole-deck templates.
func DeckVariables(format, deckName string) Variables {
	return Variables{"format": format, "deckName": deckName}
}

// CardVariables are the placeholders of the single-card template.
func CardVariables(cardName, format string) Variables {
	return Variables{"cardName": cardName, "format": format}
}

// Config configures the assembler.
type Config struct {
	// Dir holds optional <template>.txt overrides. Missing files fall back
	// to the built-in templates.
	Dir string

	// Templates replaces the built-in template set (tests).
	Templates fs.FS

	Logger *zap.Logger
}

// Assembler loads templates and builds prompts.
type Assembler struct {
	dir       string
	templates fs.FS
	logger    *zap.Logger
}

// NewAssembler creates a new prompt assembler.
func NewAssembler(config Config) *Assembler {
	templates := config.Templates
	if templates == nil {
		sub, err := fs.Sub(embedded, "templates")
		if err != nil {
			panic(err)
		}
		templates = sub
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{dir: config.Dir, templates: templates, logger: logger}
}

// Template returns the raw template text of a kind.
func (a *Assembler) Template(kind analysis.Kind) (string, error) {
	profile, err := analysis.ProfileFor(kind)
	if err != nil {
		return "", &TemplateNotFoundError{Name: string(kind)}
	}
	file := profile.Template + ".txt"

	if a.dir != "" {
		data, err := os.ReadFile(filepath.Join(a.dir, file))
		switch {
		case err == nil:
			return string(data), nil
		case !errors.Is(err, fs.ErrNotExist):
			a.logger.Warn("failed to read prompt override", zap.String("file", file), zap.Error(err))
		}
	}

	data, err := fs.ReadFile(a.templates, file)
	if err != nil {
		return "", &TemplateNotFoundError{Name: profile.Template}
	}
	return string(data), nil
}

// Assemble loads the template of a kind and substitutes every occurrence of
// each supplied variable. Unknown placeholders are left as they are.
func (a *Assembler) Assemble(kind analysis.Kind, vars Variables) (string, error) {
	tmpl, err := a.Template(kind)
	if err != nil {
		return "", err
	}
	return Substitute(tmpl, vars), nil
}

// Substitute replaces {key} with its value for every variable. Replacement
// is a single pass, so values are never themselves substituted.
func Substitute(tmpl string, vars Variables) string {
	if len(vars) == 0 {
		return tmpl
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// DeckPrompt builds a whole-deck prompt: template, deck stats of the main
// deck, then both card lists.
func (a *Assembler) DeckPrompt(kind analysis.Kind, deckName, format string, main, side []deck.ResolvedCard) (string, error) {
	profile, err := analysis.ProfileFor(kind)
	if err != nil {
		return "", err
	}
	if profile.Scope != analysis.ScopeDeck {
		return "", &analysis.UnknownKindError{Kind: string(kind)}
	}

	tmpl, err := a.Assemble(kind, DeckVariables(format, deckName))
	if err != nil {
		return "", err
	}
	stats := deckstats.ComputeStats(main)
	return tmpl + "\n" + stats.Block() + "\nMain Deck:\n" + FormatCardList(main) +
		"\n\nSideboard:\n" + FormatCardList(side), nil
}

// StrategyPrompt builds the free-form strategy guide prompt.
func (a *Assembler) StrategyPrompt(deckName, format string, main, side []deck.ResolvedCard) (string, error) {
	tmpl, err := a.Assemble(analysis.KindStrategy, DeckVariables(format, deckName))
	if err != nil {
		return "", err
	}
	return tmpl + "\n\nMain deck:\n" + FormatCardList(main) +
		"\n\nSideboard:\n" + FormatCardList(side), nil
}

// CardPrompt builds the single-card prompt with its deck context.
func (a *Assembler) CardPrompt(card deck.ResolvedCard, summary deckstats.Summary, format string) (string, error) {
	tmpl, err := a.Assemble(analysis.KindAnalyzeCard, CardVariables(card.Name, format))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(tmpl)
	b.WriteString("\n\nCARD:\n")
	fmt.Fprintf(&b, "%dx %s (%s) - %s\n%s", card.Quantity, card.Name, orNA(card.ManaCost), card.TypeLine, orNA(card.OracleText))
	b.WriteString("\n\nDECK CONTEXT:\n")
	fmt.Fprintf(&b, "- Format: %s\n", format)
	fmt.Fprintf(&b, "- Total Cards: %d\n", summary.TotalCards)
	fmt.Fprintf(&b, "- Avg CMC: %s\n", strconv.FormatFloat(summary.AverageCMC, 'f', -1, 64))
	fmt.Fprintf(&b, "- Archetype: %s", summary.ArchetypeHints)
	b.WriteString("\n\nOTHER CARDS:\n")
	b.WriteString(summary.OtherCards)
	return b.String(), nil
}

// FormatCardList renders one block per card separated by blank lines:
//
//	4x Lightning Bolt ({R}) - Instant
//	   Lightning Bolt deals 3 damage to any target.
func FormatCardList(cards []deck.ResolvedCard) string {
	blocks := make([]string, len(cards))
	for i, c := range cards {
		blocks[i] = fmt.Sprintf("%dx %s (%s) - %s\n   %s", c.Quantity, c.Name, orNA(c.ManaCost), c.TypeLine, orNA(c.OracleText))
	}
	return strings.Join(blocks, "\n\n")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
