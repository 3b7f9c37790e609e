// Package api exposes the strategist over REST and a websocket event feed.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ramonehamilton/deck-strategist/internal/api/websocket"
	"github.com/ramonehamilton/deck-strategist/internal/strategy"
)

const shutdownTimeout = 10 * time.Second

// Server represents the REST API server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	config     Config

	// WebSocket hub for real-time events
	wsHub *websocket.Hub

	facade  *strategy.Facade
	limiter *clientLimiter
	logger  *zap.Logger
}

// Config holds configuration for the API server.
type Config struct {
	Host string
	Port int

	// AllowedOrigins are CORS and websocket origin patterns; "*" in a
	// pattern matches within one URL segment (e.g. "http://localhost:*").
	AllowedOrigins []string

	// RequestTimeout bounds non-streaming requests.
	RequestTimeout time.Duration

	// LLMRequestsPerMinute throttles the analysis endpoints per client.
	// Zero disables the throttle.
	LLMRequestsPerMinute int
	LLMBurst             int

	Logger *zap.Logger
}

// DefaultConfig returns the default API server configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:                 "127.0.0.1",
		Port:                 8080,
		AllowedOrigins:       []string{"http://localhost:*", "http://127.0.0.1:*", "https://localhost:*"},
		RequestTimeout:       60 * time.Second,
		LLMRequestsPerMinute: 20,
		LLMBurst:             5,
	}
}

// NewServer creates a new API server over the facade. Facade events are not
// wired here; pass WebSocketHub to the facade as its publisher.
func NewServer(cfg *Config, hub *websocket.Hub, facade *strategy.Facade) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if hub == nil {
		hub = NewHub(cfg, logger)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: *cfg,
		wsHub:  hub,
		facade: facade,
		logger: logger,
	}
	if cfg.LLMRequestsPerMinute > 0 {
		s.limiter = newClientLimiter(cfg.LLMRequestsPerMinute, cfg.LLMBurst)
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// NewHub creates a websocket hub that accepts the configured origins.
func NewHub(cfg *Config, logger *zap.Logger) *websocket.Hub {
	origins := cfg.AllowedOrigins
	return websocket.NewHub(logger.Named("ws"), func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || originAllowed(origins, origin)
	})
}

func originAllowed(patterns []string, origin string) bool {
	for _, p := range patterns {
		if p == "*" {
			return true
		}
		if ok, _ := path.Match(p, origin); ok {
			return true
		}
	}
	return false
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Content-Type enforcement for POST/PUT/PATCH only (not GET/DELETE/OPTIONS)
	s.router.Use(jsonContentTypeMiddleware)
}

// jsonContentTypeMiddleware enforces application/json content-type for requests with bodies.
func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			if r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType != "application/json" && !strings.HasPrefix(contentType, "application/json;") {
				http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request once it completes.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go s.wsHub.Run()
	defer s.wsHub.Stop()

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port)),
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", zap.String("addr", s.httpServer.Addr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("API server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Port returns the port the server is configured to listen on.
func (s *Server) Port() int {
	return s.config.Port
}

// WebSocketHub returns the WebSocket hub.
func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
