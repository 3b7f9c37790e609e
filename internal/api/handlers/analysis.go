package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ramonehamilton/deck-strategist/internal/analysis"
	"github.com/ramonehamilton/deck-strategist/internal/api/response"
	"github.com/ramonehamilton/deck-strategist/internal/strategy"
)

// AnalysisHandler serves the analysis streams and the tracked analysis states.
type AnalysisHandler struct {
	facade *strategy.Facade
	logger *zap.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(facade *strategy.Facade, logger *zap.Logger) *AnalysisHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisHandler{facade: facade, logger: logger}
}

// Analyze streams one whole-deck analysis step as NDJSON.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analysis.DeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, errInvalidBody)
		return
	}
	rc, err := h.facade.GenerateAnalysis(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	h.stream(w, r, rc, analysis.FramingNDJSON, string(req.Step))
}

// AnalyzeCard streams a single-card analysis as raw text.
func (h *AnalysisHandler) AnalyzeCard(w http.ResponseWriter, r *http.Request) {
	var req analysis.CardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, errInvalidBody)
		return
	}
	rc, err := h.facade.GenerateCardAnalysis(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	h.stream(w, r, rc, analysis.FramingRaw, string(analysis.KindAnalyzeCard))
}

// Strategy streams the strategy guide as raw text.
func (h *AnalysisHandler) Strategy(w http.ResponseWriter, r *http.Request) {
	var req analysis.StrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, errInvalidBody)
		return
	}
	rc, err := h.facade.GenerateStrategy(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	h.stream(w, r, rc, analysis.FramingRaw, string(analysis.KindStrategy))
}

// stream copies an opened analysis to the client. A failure after the
// headers went out aborts the connection so the client never mistakes a
// truncated stream for a complete one.
func (h *AnalysisHandler) stream(w http.ResponseWriter, r *http.Request, rc io.ReadCloser, framing analysis.Framing, kind string) {
	defer func() { _ = rc.Close() }()

	if err := response.Stream(w, framing.ContentType(), rc); err != nil {
		h.logger.Warn("analysis stream aborted",
			zap.String("kind", kind),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		panic(http.ErrAbortHandler)
	}
}

// RunRequest optionally names the card of a single-card run.
type RunRequest struct {
	CardName string `json:"cardName"`
}

// StartRun begins a background analysis of the loaded deck.
func (h *AnalysisHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	kind, err := analysis.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, errInvalidBody)
		return
	}

	runID, err := h.facade.RunAnalysis(r.Context(), kind, req.CardName)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Accepted(w, map[string]string{"kind": string(kind), "runId": runID})
}

// GetStates returns the state of every analysis kind.
func (h *AnalysisHandler) GetStates(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.facade.Tracker().Snapshot())
}

// GetState returns the state of one analysis kind.
func (h *AnalysisHandler) GetState(w http.ResponseWriter, r *http.Request) {
	kind, err := analysis.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, h.facade.Tracker().Get(kind))
}

// GetHistory returns persisted analyses, newest first.
func (h *AnalysisHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(w, errors.New("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	results, err := h.facade.AnalysisHistory(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	response.Success(w, results)
}
