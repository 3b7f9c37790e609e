package deckstats

import (
	"fmt"
	"strings"

	"github.com/ramonehamilton/deck-strategist/internal/deck"
)

// Stats are the headline numbers injected into whole-deck prompts.
type Stats struct {
	Total         int    `json:"total"`
	Lands         int    `json:"lands"`
	AverageCMC    string `json:"avgCMC"`
	Creatures     int    `json:"creatures"`
	InstantsSorcs int    `json:"instSorc"`
}

// ComputeStats counts lands, creatures and spells and formats the average
// mana value of the non-land cards.
func ComputeStats(cards []deck.ResolvedCard) Stats {
	var s Stats
	for _, c := range cards {
		s.Total += c.Quantity
		typeLine := strings.ToLower(c.TypeLine)

		if strings.Contains(typeLine, "land") {
			s.Lands += c.Quantity
		}
		if strings.Contains(typeLine, "creature") {
			s.Creatures += c.Quantity
		}
		if strings.Contains(typeLine, "instant") || strings.Contains(typeLine, "sorcery") {
			s.InstantsSorcs += c.Quantity
		}
	}

	total, nonland := weightedManaValue(cards)
	if nonland > 0 {
		s.AverageCMC = fmt.Sprintf("%.2f", float64(total)/float64(nonland))
	} else {
		s.AverageCMC = "0"
	}
	return s
}

// Block renders the stats as the DECK STATS prompt section.
func (s Stats) Block() string {
	return fmt.Sprintf("\nDECK STATS:\n- Total: %d | Lands: %d | Avg CMC: %s\n- Creatures: %d | Instants/Sorceries: %d\n",
		s.Total, s.Lands, s.AverageCMC, s.Creatures, s.InstantsSorcs)
}
