package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/ramonehamilton/deck-strategist/internal/analysis"
	"github.com/ramonehamilton/deck-strategist/internal/api/response"
	"github.com/ramonehamilton/deck-strategist/internal/deck"
	"github.com/ramonehamilton/deck-strategist/internal/llm"
	"github.com/ramonehamilton/deck-strategist/internal/prompts"
	"github.com/ramonehamilton/deck-strategist/internal/scryfall"
	"github.com/ramonehamilton/deck-strategist/internal/strategy"
)

var errInvalidBody = errors.New("invalid request body")

// writeError maps a facade error onto its HTTP status.
func writeError(w http.ResponseWriter, err error) {
	var validation *deck.ValidationError
	var unknownKind *analysis.UnknownKindError
	var missingTemplate *prompts.TemplateNotFoundError

	switch {
	case errors.Is(err, llm.ErrMissingAPIKey):
		response.InternalError(w, err)
	case errors.As(err, &validation):
		response.BadRequest(w, errors.New(validation.Message))
	case errors.As(err, &unknownKind):
		response.BadRequest(w, err)
	case scryfall.IsNotFound(err):
		response.NotFound(w, err)
	case errors.Is(err, strategy.ErrNoDeck), errors.Is(err, deck.ErrDeckNotFound):
		response.NotFound(w, err)
	case scryfall.IsUnavailable(err), scryfall.IsTransport(err):
		response.Error(w, http.StatusBadGateway, err)
	case errors.As(err, &missingTemplate):
		response.InternalError(w, err)
	case errors.Is(err, context.DeadlineExceeded):
		response.Error(w, http.StatusGatewayTimeout, err)
	default:
		response.InternalError(w, err)
	}
}
