package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ramonehamilton/deck-strategist/internal/api/handlers"
	"github.com/ramonehamilton/deck-strategist/internal/api/response"
	"github.com/ramonehamilton/deck-strategist/internal/version"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint (no versioning)
	s.router.Get("/health", s.healthCheck)

	// WebSocket endpoint (no JSON content-type requirement)
	s.router.Get("/ws", s.wsHub.ServeWs)

	deckHandler := handlers.NewDeckHandler(s.facade)
	cardHandler := handlers.NewCardHandler(s.facade)
	analysisHandler := handlers.NewAnalysisHandler(s.facade, s.logger.Named("handlers"))

	s.router.Route("/api/v1", func(r chi.Router) {
		// Plain JSON routes get the request timeout; streams are bounded by
		// the LLM stream timeout instead.
		r.Group(func(r chi.Router) {
			if s.config.RequestTimeout > 0 {
				r.Use(middleware.Timeout(s.config.RequestTimeout))
			}

			r.Get("/deck", deckHandler.GetDeck)
			r.Post("/deck/summary", deckHandler.GetSummary)
			r.Get("/cards/named", cardHandler.GetNamed)

			r.Get("/analyses", analysisHandler.GetStates)
			r.Get("/analyses/history", analysisHandler.GetHistory)
			r.Get("/analyses/{kind}", analysisHandler.GetState)
		})

		// A pass over a large deck outlives the request timeout.
		r.Post("/deck/cards", deckHandler.FetchCards)

		r.Group(func(r chi.Router) {
			if s.limiter != nil {
				r.Use(s.limiter.Middleware)
			}

			r.Post("/analyze", analysisHandler.Analyze)
			r.Post("/analyze-card", analysisHandler.AnalyzeCard)
			r.Post("/strategy", analysisHandler.Strategy)
			r.Post("/analyses/{kind}", analysisHandler.StartRun)
		})
	})
}

// healthCheck returns the server health status.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]any{
		"status":    "healthy",
		"version":   version.Version,
		"websocket": !s.wsHub.IsStopped(),
		"clients":   s.wsHub.ClientCount(),
	})
}
