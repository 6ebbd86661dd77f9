package router

import (
	"net/http"

	"github.com/anonto42/skillshare/internal/api"
	"github.com/anonto42/skillshare/internal/handlers"
	"github.com/anonto42/skillshare/internal/middleware"
	"github.com/anonto42/skillshare/internal/pages"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators of the page view server routes.
type Deps struct {
	API      *api.Client
	Registry *pages.Registry
	Store    sessions.Store
	Logger   logrus.FieldLogger
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Deps) {
	// Health check and metrics skip the session cookie
	e.GET("/health", handlers.HealthCheck)
	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics))
		deps.Logger.Info("Metrics endpoint configured.")
	}

	site := e.Group("", middleware.ClientSession(deps.Store, deps.Registry, deps.Logger))

	// --- Unguarded pages ---
	sessionHandler := handlers.NewSessionHandler(deps.API, deps.Registry, deps.Logger)
	sessionHandler.RegisterSessionRoutes(site)
	deps.Logger.Info("Session routes configured.")

	// --- Guarded pages (redirect to /login without a session) ---
	guarded := site.Group("", middleware.RequireSession(deps.Registry))

	dashboardHandler := handlers.NewDashboardHandler()
	dashboardHandler.RegisterDashboardRoutes(guarded)
	deps.Logger.Info("Dashboard routes configured.")

	profileHandler := handlers.NewProfileHandler()
	profileHandler.RegisterProfileRoutes(guarded)
	deps.Logger.Info("Profile routes configured.")

	learningPlanHandler := handlers.NewLearningPlanHandler()
	learningPlanHandler.RegisterLearningPlanRoutes(guarded)
	deps.Logger.Info("Learning plan routes configured.")

	deps.Logger.Info("All routes configured.")
}
