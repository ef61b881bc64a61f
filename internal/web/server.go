// Package web serves the FlowForge session API and preview pages.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/flowforge/internal/config"
	"github.com/JonMunkholm/flowforge/internal/session"
	"github.com/JonMunkholm/flowforge/internal/store"
	mw "github.com/JonMunkholm/flowforge/internal/web/middleware"
)

// Source and sink names accepted by the extract and load endpoints.
const (
	SourcePostgres = "postgres"
	SourceMySQL    = "mysql"
	SourceAPI      = "api"
	SourceText     = "text"
)

// Deps are the collaborators the server routes requests to. Sources and
// Sinks are keyed by SourcePostgres or SourceMySQL; absent entries make
// the matching requests answer 503.
type Deps struct {
	Sessions *session.Manager
	Limiter  *session.Limiter
	Exporter *store.Exporter
	API      *store.API
	Sources  map[string]store.Source
	Sinks    map[string]store.Sink
}

// Server is the HTTP server for FlowForge.
type Server struct {
	cfg      *config.Config
	sessions *session.Manager
	limiter  *session.Limiter
	exporter *store.Exporter
	api      *store.API
	sources  map[string]store.Source
	sinks    map[string]store.Sink
	validate *validator.Validate
	visitors *visitorLimiter

	router *chi.Mux
	server *http.Server
}

// NewServer builds the router. Missing Limiter, Exporter and API are
// created from cfg.
func NewServer(cfg *config.Config, deps Deps) *Server {
	if deps.Limiter == nil {
		deps.Limiter = session.NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	}
	if deps.Exporter == nil {
		deps.Exporter = store.NewExporter()
	}
	if deps.API == nil {
		deps.API = store.NewAPI(cfg.Extract, nil)
	}
	s := &Server{
		cfg:      cfg,
		sessions: deps.Sessions,
		limiter:  deps.Limiter,
		exporter: deps.Exporter,
		api:      deps.API,
		sources:  deps.Sources,
		sinks:    deps.Sinks,
		validate: newValidator(),
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.visitors = newVisitorLimiter(s.cfg.Rate.RequestsPerSecond, s.cfg.Rate.Burst, s.cfg.Rate.CleanupInterval)
		s.router.Use(s.visitors.middleware(s))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	// Pages
	s.router.Route("/sessions/{id}", func(r chi.Router) {
		r.Use(s.sessionContext)
		r.Get("/", s.handleSessionPage)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(s.cfg.Security))

		r.Post("/sessions", s.handleCreateSession)
		r.Get("/exports", s.handleExportHistory)

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Use(s.sessionContext)

			r.Delete("/", s.handleDeleteSession)

			// Data in and out
			r.Post("/upload", s.handleUpload)
			r.Post("/extract", s.handleExtract)
			r.Post("/load", s.handleLoad)
			r.Get("/export", s.handleExport)

			// Working table
			r.Get("/table", s.handleTable)
			r.Get("/summary", s.handleSummary)
			r.Get("/suggestions", s.handleSuggestions)

			// Operations
			r.Post("/operations", s.handleApply)
			r.Post("/reset", s.handleReset)
			r.Get("/history", s.handleHistory)
			r.Delete("/history", s.handleClearHistory)
			r.Get("/recipe", s.handleRecipe)
			r.Post("/recipe", s.handleReplay)
			r.Get("/log", s.handleLog)
		})
	})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address until Shutdown. A clean
// shutdown returns nil, including one that happened before Start.
func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and then for
// running uploads to drain.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	if s.visitors != nil {
		s.visitors.stop()
	}
	if drainErr := s.limiter.WaitForDrain(ctx); drainErr != nil {
		slog.Warn("uploads still running at shutdown", "active", s.limiter.ActiveCount())
		err = errors.Join(err, drainErr)
	}
	return err
}

// healthResponse is the /healthz body.
type healthResponse struct {
	Status   string                `json:"status"`
	Sessions int                   `json:"sessions"`
	Uploads  session.LimiterStatus `json:"uploads"`
	Sources  map[string]bool       `json:"sources"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Sessions: s.sessions.Len(),
		Uploads:  s.limiter.Status(),
		Sources: map[string]bool{
			SourcePostgres: s.sources[SourcePostgres] != nil,
			SourceMySQL:    s.sources[SourceMySQL] != nil,
		},
	})
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				h.Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are only logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
