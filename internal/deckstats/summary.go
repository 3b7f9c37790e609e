// Package deckstats derives aggregate statistics from resolved deck cards.
package deckstats

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ramonehamilton/deck-strategist/internal/deck"
)

// MaxCardListLength caps the card name roll-up injected into prompts.
const MaxCardListLength = 1000

// typeSeparator splits the primary types from subtypes on a type line.
const typeSeparator = "—"

var (
	genericSymbol = regexp.MustCompile(`\{(\d+)\}`)
	colorSymbol   = regexp.MustCompile(`\{[WUBRGC]\}`)
)

// Summary is the deck context handed to single-card analysis.
type Summary struct {
	Format         string  `json:"format"`
	TotalCards     int     `json:"totalCards"`
	AverageCMC     float64 `json:"averageCMC"`
	ArchetypeHints string  `json:"archetypeHints"`
	OtherCards     string  `json:"otherCards"`
}

// ParseManaValue sums generic symbols ({2}) plus one per colored or
// colorless symbol ({U}, {C}). Hybrid, phyrexian and X symbols count zero.
func ParseManaValue(cost string) int {
	total := 0
	for _, m := range genericSymbol.FindAllStringSubmatch(cost, -1) {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			total += n
		}
	}
	return total + len(colorSymbol.FindAllString(cost, -1))
}

// IsLand reports whether a type line describes a land.
func IsLand(typeLine string) bool {
	return strings.Contains(strings.ToLower(typeLine), "land")
}

// PrimaryType returns the type line text before the subtype separator.
func PrimaryType(typeLine string) string {
	if i := strings.Index(typeLine, typeSeparator); i >= 0 {
		typeLine = typeLine[:i]
	}
	return strings.TrimSpace(typeLine)
}

// AverageManaValue is the quantity-weighted mean mana value of non-land cards,
// rounded to two decimals. Lands are excluded from both sides of the ratio.
func AverageManaValue(cards []deck.ResolvedCard) float64 {
	total, nonland := weightedManaValue(cards)
	if nonland == 0 {
		return 0
	}
	return math.Round(float64(total)/float64(nonland)*100) / 100
}

func weightedManaValue(cards []deck.ResolvedCard) (total, nonland int) {
	for _, c := range cards {
		if IsLand(c.TypeLine) {
			continue
		}
		total += ParseManaValue(c.ManaCost) * c.Quantity
		nonland += c.Quantity
	}
	return total, nonland
}

// TypeDistribution renders "Type: N" pairs sorted by descending quantity.
// Ties keep the order in which the types were first seen.
func TypeDistribution(cards []deck.ResolvedCard) string {
	type bucket struct {
		name  string
		count int
	}
	index := make(map[string]int)
	var buckets []bucket
	for _, c := range cards {
		t := PrimaryType(c.TypeLine)
		i, ok := index[t]
		if !ok {
			i = len(buckets)
			index[t] = i
			buckets = append(buckets, bucket{name: t})
		}
		buckets[i].count += c.Quantity
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].count > buckets[j].count
	})

	parts := make([]string, 0, len(buckets))
	for _, b := range buckets {
		parts = append(parts, fmt.Sprintf("%s: %d", b.name, b.count))
	}
	return strings.Join(parts, ", ")
}

// CardNames joins every card name and cuts the result at MaxCardListLength
// characters. The cut may land inside a name but never inside a character.
func CardNames(cards []deck.ResolvedCard) string {
	names := make([]string, 0, len(cards))
	for _, c := range cards {
		names = append(names, c.Name)
	}
	joined := strings.Join(names, ", ")
	if utf8.RuneCountInString(joined) <= MaxCardListLength {
		return joined
	}
	return string([]rune(joined)[:MaxCardListLength])
}

// Summarize derives the deck context for the given resolved cards.
func Summarize(cards []deck.ResolvedCard, format string) Summary {
	total := 0
	for _, c := range cards {
		total += c.Quantity
	}
	return Summary{
		Format:         format,
		TotalCards:     total,
		AverageCMC:     AverageManaValue(cards),
		ArchetypeHints: TypeDistribution(cards),
		OtherCards:     CardNames(cards),
	}
}
