package handlers

import (
	"net/http"

	"github.com/ramonehamilton/deck-strategist/internal/api/response"
	"github.com/ramonehamilton/deck-strategist/internal/scryfall"
	"github.com/ramonehamilton/deck-strategist/internal/strategy"
)

// CardHandler handles catalog lookups.
type CardHandler struct {
	facade *strategy.Facade
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(facade *strategy.Facade) *CardHandler {
	return &CardHandler{facade: facade}
}

// CardDetails is a catalog record with its derived display fields.
type CardDetails struct {
	*scryfall.Card
	ImageURL           string              `json:"imageUrl"`
	RelevantLegalities []scryfall.Legality `json:"relevantLegalities"`
	AllLegalities      []scryfall.Legality `json:"allLegalities"`
}

// GetNamed looks up one card by exact name through the cache.
func (h *CardHandler) GetNamed(w http.ResponseWriter, r *http.Request) {
	card, err := h.facade.LookupCard(r.Context(), r.URL.Query().Get("exact"))
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, CardDetails{
		Card:               card,
		ImageURL:           card.ImageURL(),
		RelevantLegalities: card.RelevantLegalities(),
		AllLegalities:      card.AllLegalities(),
	})
}
