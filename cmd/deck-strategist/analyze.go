package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/deck-strategist/internal/analysis"
	"github.com/ramonehamilton/deck-strategist/internal/resolver"
)

var (
	analyzeCard   string
	analyzeServer string
	analyzeRaw    bool
	analyzeAll    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [kind]",
	Short: "Analyze the deck with the language model",
	Long: `Runs one analysis of the loaded deck and prints it once complete.

Kinds: ` + kindList() + `

Use --card with analyze-card, and --all for the overview followed by every
deep-dive analysis. With --server the analysis is requested from a running
"deck-strategist serve" instead of calling the model directly.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kinds := []analysis.Kind{analysis.KindOverview}
		if analyzeAll {
			kinds = analysis.DeckKinds()
		} else if len(args) == 1 {
			kind, err := analysis.ParseKind(args[0])
			if err != nil {
				return err
			}
			kinds = []analysis.Kind{kind}
		}
		return runAnalyses(cmd.Context(), os.Stdout, kinds)
	},
}

var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "Write a strategy guide for the deck",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyses(cmd.Context(), os.Stdout, []analysis.Kind{analysis.KindStrategy})
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCard, "card", "", "Card to analyze (analyze-card)")
	analyzeCmd.Flags().BoolVar(&analyzeAll, "all", false, "Run every whole-deck analysis")
	for _, c := range []*cobra.Command{analyzeCmd, strategyCmd} {
		c.Flags().StringVar(&analyzeServer, "server", "", "Base URL of a running server (e.g. http://127.0.0.1:8080)")
		c.Flags().BoolVar(&analyzeRaw, "raw", false, "Print the analysis without terminal formatting")
	}
}

func runAnalyses(ctx context.Context, w io.Writer, kinds []analysis.Kind) error {
	a, err := newApp(cfg, logger, appOptions{remote: analyzeServer})
	if err != nil {
		return err
	}
	defer a.close()

	for _, kind := range kinds {
		if _, err := a.facade.CheckAnalysis(kind, analyzeCard); err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
	}

	rd, err := a.facade.ResolveDeck(ctx)
	if err != nil {
		return err
	}
	printFailures(os.Stderr, rd.Failures)

	for _, kind := range kinds {
		profile, err := analysis.ProfileFor(kind)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%s...\n", profile.Label)

		content, err := a.facade.AnalyzeResolved(ctx, rd, kind, analyzeCard)
		if err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
		if err := render(w, content); err != nil {
			return err
		}
	}
	return nil
}

// printFailures lists the cards left out of the analysis.
func printFailures(w io.Writer, failures []resolver.Failure) {
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(w, "%d card(s) could not be resolved and are left out of the analysis:\n", len(failures))
	for _, f := range failures {
		fmt.Fprintf(w, "  %s: %s\n", f.CardName, f.Error)
	}
}

// render prints markdown content, styled for the terminal unless --raw.
func render(w io.Writer, content string) error {
	if analyzeRaw {
		_, err := fmt.Fprintln(w, content)
		return err
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	out, err := renderer.Render(content)
	if err != nil {
		return fmt.Errorf("render analysis: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

func kindList() string {
	names := make([]string, 0, len(analysis.Kinds()))
	for _, k := range analysis.Kinds() {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}
