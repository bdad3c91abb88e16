package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/foxzi/groupsend/internal/config"
	"github.com/foxzi/groupsend/internal/ipfilter"
	"github.com/foxzi/groupsend/internal/metrics"
	"github.com/foxzi/groupsend/internal/session"
	"github.com/foxzi/groupsend/internal/template"
)

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	sessions   *session.Manager
	engine     *template.Engine
	filter     *ipfilter.Filter
	config     *config.APIConfig
	version    string
	logger     *slog.Logger
	startTime  time.Time
}

// ServerOptions contains options for creating a Server
type ServerOptions struct {
	Sessions *session.Manager
	Config   *config.APIConfig
	Version  string
	Logger   *slog.Logger
}

// NewServer creates a new API server
func NewServer(opts ServerOptions) (*Server, error) {
	filter, err := ipfilter.Parse(opts.Config.AllowedIPs, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to parse api.allowed_ips: %w", err)
	}
	if filter.Enabled() {
		opts.Logger.Info("API IP filtering enabled", "allowed_networks", filter.Count())
	}

	version := opts.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		router:    chi.NewRouter(),
		sessions:  opts.Sessions,
		engine:    template.NewEngine(),
		filter:    filter,
		config:    opts.Config,
		version:   version,
		logger:    opts.Logger,
		startTime: time.Now(),
	}

	s.setupRoutes()
	return s, nil
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(metrics.HTTPMiddleware)
	s.router.Use(middleware.Recoverer)

	// Health check (no auth required)
	s.router.Get("/health", s.handleHealth)

	// API v1 routes (auth required)
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.filter.Middleware)
		r.Use(s.authMiddleware)

		r.Post("/recipients/parse", s.handleParseRecipients)
		r.Post("/preview", s.handlePreview)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/", s.handleListSessions)
			r.Get("/{id}", s.handleGetSession)
			r.Delete("/{id}", s.handleDeleteSession)

			r.Put("/{id}/flow", s.handleFlowData)
			r.Put("/{id}/steps", s.handleReplaceSteps)
			r.Put("/{id}/recipients", s.handleReplaceRecipients)
			r.Patch("/{id}/recipients/{rid}", s.handleEditRecipient)
			r.Post("/{id}/recipients/confirm", s.handleConfirmRecipients)
			r.Put("/{id}/draft", s.handleSetDraft)
			r.Post("/{id}/draft/use", s.handleUseDraft)
			r.Post("/{id}/draft/edit", s.handleEditDraft)
			r.Post("/{id}/messages/{rid}/accept", s.handleAccept)
			r.Post("/{id}/messages/accept-all", s.handleAcceptAll)
			r.Post("/{id}/personalize/done", s.handleFinishPersonalize)
			r.Post("/{id}/authorize", s.handleAuthorize)
			r.Post("/{id}/send", s.handleSend)
		})
	})
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddr,
		Handler:        s.router,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	s.logger.Info("starting HTTP API server", "addr", s.config.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
