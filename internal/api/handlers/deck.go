package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ramonehamilton/deck-strategist/internal/api/response"
	"github.com/ramonehamilton/deck-strategist/internal/deck"
	"github.com/ramonehamilton/deck-strategist/internal/strategy"
)

// DeckHandler handles deck-related API requests.
type DeckHandler struct {
	facade *strategy.Facade
}

// NewDeckHandler creates a new DeckHandler.
func NewDeckHandler(facade *strategy.Facade) *DeckHandler {
	return &DeckHandler{facade: facade}
}

// GetDeck returns the loaded deck definition.
func (h *DeckHandler) GetDeck(w http.ResponseWriter, r *http.Request) {
	d, err := h.facade.Deck()
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, d)
}

// FetchCardsRequest optionally overrides the loaded deck's lists.
type FetchCardsRequest struct {
	MainDeck  []deck.SlotEntry `json:"mainDeck"`
	Sideboard []deck.SlotEntry `json:"sideboard"`
}

// FetchCards resolves every card of the deck. Progress goes out over the
// websocket; the response carries the resolved cards and per-card failures.
func (h *DeckHandler) FetchCards(w http.ResponseWriter, r *http.Request) {
	var req FetchCardsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, errInvalidBody)
		return
	}

	result, err := h.facade.FetchDeckCards(r.Context(), req.MainDeck, req.Sideboard)
	if err != nil {
		writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

// SummaryRequest carries resolved cards to summarize.
type SummaryRequest struct {
	Cards  []deck.ResolvedCard `json:"cards"`
	Format string              `json:"format"`
}

// GetSummary returns the deck context summary of the posted cards.
func (h *DeckHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	var req SummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, errInvalidBody)
		return
	}
	if req.Cards == nil {
		response.BadRequest(w, errors.New("cards are required"))
		return
	}
	response.Success(w, h.facade.Summarize(req.Cards, req.Format))
}
