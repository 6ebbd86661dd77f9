package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/skillshare/internal/api"
	"github.com/anonto42/skillshare/internal/metrics"
	"github.com/anonto42/skillshare/internal/pages"
	"github.com/anonto42/skillshare/internal/router"
	"github.com/anonto42/skillshare/pkg/config"
	"github.com/anonto42/skillshare/validators"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := config.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize client storage
	db, err := config.InitDB(cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize session storage: %v", err)
	}
	defer db.CloseDB()

	// Metrics
	var m *metrics.Metrics
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		m = metrics.New(prometheus.DefaultRegisterer)
		metricsHandler = promhttp.Handler()
	}

	// Backend API client and the per-browser page registry
	client := api.New(cfg.APIBaseURL,
		api.WithTimeout(cfg.APITimeout),
		api.WithLogger(log),
		api.WithMetrics(m),
	)
	registry := pages.NewRegistry(pages.Deps{
		API:          client,
		Validator:    validators.NewValidator(),
		Logger:       log,
		Metrics:      m,
		PollInterval: cfg.PollInterval,
	}, db.Storage, pages.WithIdleTTL(cfg.SessionIdleTTL))
	defer registry.Close()
	go registry.Run(ctx)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()

	// Setup global middleware
	config.SetupMiddleware(e, log)

	// Setup routes and dependencies
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	router.SetupRoutes(e, router.Deps{
		API:      client,
		Registry: registry,
		Store:    store,
		Logger:   log,
		Metrics:  metricsHandler,
	})

	// Start server
	go func() {
		log.WithField("port", cfg.Port).WithField("api", client.BaseURL()).Info("Starting page view server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
