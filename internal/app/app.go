package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foxzi/groupsend/internal/api"
	"github.com/foxzi/groupsend/internal/config"
	"github.com/foxzi/groupsend/internal/ipfilter"
	"github.com/foxzi/groupsend/internal/metrics"
	"github.com/foxzi/groupsend/internal/session"
)

// App is the main application
type App struct {
	config        *config.Config
	sessions      *session.Manager
	apiServer     *api.Server
	metrics       *metrics.Metrics
	metricsServer *metrics.Server
	collector     *metrics.Collector
	logger        *slog.Logger
}

// New creates a new application
func New(cfg *config.Config, version string) (*App, error) {
	logger := SetupLogger(cfg.Logging)

	// Metrics are registered before any session exists
	var (
		m             *metrics.Metrics
		metricsServer *metrics.Server
	)
	if cfg.Metrics.Enabled {
		filter, err := ipfilter.Parse(cfg.Metrics.AllowedIPs, logger.With("component", "metrics"))
		if err != nil {
			return nil, fmt.Errorf("failed to parse metrics.allowed_ips: %w", err)
		}
		m = metrics.New()
		metrics.SetGlobal(m)
		metricsServer = metrics.NewServer(m, cfg.Metrics.ListenAddr, cfg.Metrics.Path, filter, logger.With("component", "metrics"))
	}

	sessions := session.NewManager(session.Options{
		TickInterval:    cfg.Sender.TickInterval,
		AutoApprove:     cfg.Sender.AutoApprove,
		TTL:             cfg.Sessions.TTL,
		CleanupInterval: cfg.Sessions.CleanupInterval,
		MaxSessions:     cfg.Sessions.MaxSessions,
		Logger:          logger.With("component", "sessions"),
	})

	apiServer, err := api.NewServer(api.ServerOptions{
		Sessions: sessions,
		Config:   &cfg.API,
		Version:  version,
		Logger:   logger.With("component", "api"),
	})
	if err != nil {
		sessions.Close()
		return nil, fmt.Errorf("failed to create api server: %w", err)
	}

	var collector *metrics.Collector
	if m != nil {
		collector = metrics.NewCollector(m, sessions, cfg.Metrics.FlushInterval)
	}

	return &App{
		config:        cfg,
		sessions:      sessions,
		apiServer:     apiServer,
		metrics:       m,
		metricsServer: metricsServer,
		collector:     collector,
		logger:        logger,
	}, nil
}

// Run starts all components and waits for shutdown
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting groupsend",
		"api_addr", a.config.API.ListenAddr,
		"tick_interval", a.config.Sender.TickInterval,
		"auto_approve", a.config.Sender.AutoApprove,
		"metrics_enabled", a.config.Metrics.Enabled,
	)

	// Create context that listens for signals
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a.sessions.Start(ctx)
	if a.collector != nil {
		a.collector.Start(ctx)
	}

	// Channel to collect errors
	errCh := make(chan error, 2)

	go func() {
		if err := a.apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	if a.metricsServer != nil {
		go func() {
			if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	// Wait for shutdown signal or error
	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		a.logger.Error("server error", "error", runErr)
		cancel()
	}

	// Graceful shutdown
	if err := a.Shutdown(context.Background()); err != nil {
		return err
	}
	return runErr
}

// Shutdown gracefully shuts down all components
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	// Create timeout context
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Stop accepting requests before tearing down sessions
	if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("api server shutdown error", "error", err)
	}

	a.sessions.Close()

	if a.collector != nil {
		a.collector.Stop()
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("metrics server shutdown error", "error", err)
		}
	}
	if a.metrics != nil {
		metrics.SetGlobal(nil)
	}

	a.logger.Info("shutdown complete")
	return nil
}

// SetupLogger creates a logger based on configuration
func SetupLogger(cfg config.LoggingConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
