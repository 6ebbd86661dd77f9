package handlers

import (
	"net/http"

	"github.com/anonto42/skillshare/internal/api"
	"github.com/anonto42/skillshare/internal/middleware"
	"github.com/anonto42/skillshare/internal/models"
	"github.com/anonto42/skillshare/internal/pages"
	"github.com/anonto42/skillshare/internal/session"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// SessionHandler serves the landing page, login and logout
type SessionHandler struct {
	api      *api.Client
	registry *pages.Registry
	logger   logrus.FieldLogger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(client *api.Client, registry *pages.Registry, logger logrus.FieldLogger) *SessionHandler {
	return &SessionHandler{api: client, registry: registry, logger: logger}
}

// RegisterSessionRoutes registers the unguarded routes
func (h *SessionHandler) RegisterSessionRoutes(g *echo.Group) {
	g.GET("/", h.Landing)
	g.GET(session.LoginRoute, h.LoginForm)
	g.POST(session.LoginRoute, h.Login)
	g.POST("/logout", h.Logout)
}

// Landing describes the client and, when logged in, the session identity.
func (h *SessionHandler) Landing(c echo.Context) error {
	data := echo.Map{
		"name":     "Skill Sharing Platform",
		"loggedIn": false,
		"pages":    []string{"/dashboard", "/profile", "/learning-plan"},
	}
	if s, err := h.registry.Session(c.Request().Context(), middleware.SIDFrom(c)); err == nil {
		data["loggedIn"] = true
		data["user"] = s.User
		if info, err := session.InspectToken(s.Token); err == nil {
			data["token"] = info
		}
	}
	return success(c, http.StatusOK, data)
}

// LoginForm describes the login form.
func (h *SessionHandler) LoginForm(c echo.Context) error {
	_, err := h.registry.Session(c.Request().Context(), middleware.SIDFrom(c))
	return success(c, http.StatusOK, echo.Map{
		"fields":   []string{"userId", "token"},
		"loggedIn": err == nil,
	})
}

// Login adopts a user id and bearer token for the browser session.
func (h *SessionHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	sid := middleware.SIDFrom(c)
	fresh := sid == ""
	if fresh {
		sid = middleware.NewSID()
	}
	h.registry.Drop(sid)
	set := h.registry.Get(sid)

	s, err := set.Sessions.Login(c.Request().Context(), h.api, req.UserID, req.Token)
	if err != nil {
		h.registry.Drop(sid)
		h.logger.WithError(err).WithField("user_id", req.UserID).Warn("Login failed")
		return echo.NewHTTPError(http.StatusUnauthorized, echo.Map{
			"success": false,
			"alert":   "Login failed: " + err.Error(),
		})
	}
	if fresh {
		if err := middleware.IssueSID(c, sid); err != nil {
			h.registry.Drop(sid)
			h.logger.WithError(err).Error("Failed to issue session cookie")
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save session cookie")
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"data":     s.User,
		"redirect": "/dashboard",
	})
}

// Logout clears the session and unmounts the caller's pages.
func (h *SessionHandler) Logout(c echo.Context) error {
	sid := middleware.SIDFrom(c)
	if sid == "" {
		return fail(c, session.ErrLoggedOut)
	}
	set := h.registry.Get(sid)
	if err := set.Dashboard.Logout(c.Request().Context()); err != nil {
		return err
	}
	h.registry.Drop(sid)
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"redirect": session.LoginRoute,
	})
}
