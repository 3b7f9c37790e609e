package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/deck-strategist/internal/deck"
	"github.com/ramonehamilton/deck-strategist/internal/resolver"
	"github.com/ramonehamilton/deck-strategist/internal/strategy"
)

var resolveJSON bool

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve every card of the deck against the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		progress := &progressPrinter{out: os.Stderr}
		a, err := newApp(cfg, logger, appOptions{events: progress})
		if err != nil {
			return err
		}
		defer a.close()

		start := time.Now()
		result, err := a.facade.FetchDeckCards(cmd.Context(), nil, nil)
		if err != nil {
			return err
		}
		progress.done()

		if resolveJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		d, _ := a.facade.Deck()
		printResolved(os.Stdout, d, result)
		fmt.Fprintf(os.Stdout, "\nResolved %s unique cards in %s",
			humanize.Comma(int64(len(resolver.UniqueNames(d.MainDeck, d.Sideboard))-len(result.Errors))),
			humanize.RelTime(start, time.Now(), "", ""))
		if a.storage != nil {
			if n, err := a.storage.CardCount(cmd.Context()); err == nil {
				fmt.Fprintf(os.Stdout, " (%s cards stored)", humanize.Comma(int64(n)))
			}
		}
		fmt.Fprintln(os.Stdout)
		return nil
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "Print the result as JSON")
}

func printResolved(w io.Writer, d *deck.Deck, result *resolver.Result) {
	main, side := deck.SplitSections(result.Cards)
	fmt.Fprintf(w, "%s (%s)\n", d.DeckName, d.Format)

	printSection(w, "Main Deck", main)
	if len(side) > 0 {
		printSection(w, "Sideboard", side)
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(w, "\nFailed (%d):\n", len(result.Errors))
		for _, f := range result.Errors {
			fmt.Fprintf(w, "  %s: %s\n", f.CardName, f.Error)
		}
	}
}

func printSection(w io.Writer, title string, cards []deck.ResolvedCard) {
	fmt.Fprintf(w, "\n%s (%d)\n", title, cardTotal(cards))
	for _, group := range deck.GroupByType(cards) {
		fmt.Fprintf(w, "  %s (%d)\n", group.Type, cardTotal(group.Cards))
		for _, c := range group.Cards {
			legal := make([]string, 0, 3)
			for _, l := range c.RelevantLegalities() {
				legal = append(legal, l.Format)
			}
			fmt.Fprintf(w, "    %dx %-28s %-12s %s\n", c.Quantity, c.Name, c.ManaCost, strings.Join(legal, ", "))
		}
	}
}

func cardTotal(cards []deck.ResolvedCard) int {
	n := 0
	for _, c := range cards {
		n += c.Quantity
	}
	return n
}

// progressPrinter renders resolution progress on one terminal line.
type progressPrinter struct {
	out     io.Writer
	printed bool
}

func (p *progressPrinter) Publish(eventType string, data any) {
	if eventType != strategy.EventResolveProgress {
		return
	}
	if prog, ok := data.(resolver.Progress); ok {
		fmt.Fprintf(p.out, "\r\033[K[%d/%d] %s", prog.Current, prog.Total, prog.CardName)
		p.printed = true
	}
}

func (p *progressPrinter) done() {
	if p.printed {
		fmt.Fprint(p.out, "\r\033[K")
	}
}
