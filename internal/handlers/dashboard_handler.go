package handlers

import (
	"net/http"

	"github.com/anonto42/skillshare/internal/pages"
	"github.com/labstack/echo/v4"
)

// DashboardHandler serves the dashboard page
type DashboardHandler struct{}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

// RegisterDashboardRoutes registers dashboard routes
func (h *DashboardHandler) RegisterDashboardRoutes(g *echo.Group) {
	g.GET("/dashboard", h.Show)
	g.DELETE("/dashboard", h.Leave)
	g.GET("/dashboard/users", h.SearchUsers)
	g.POST("/dashboard/follow/:id", h.Follow)
	g.POST("/dashboard/unfollow/:id", h.Unfollow)
	g.PUT("/dashboard/notifications/read-all", h.MarkAllRead)
	g.PUT("/dashboard/notifications/:id/read", h.MarkRead)
}

// Show mounts the dashboard (starting notification polling) and returns its view.
func (h *DashboardHandler) Show(c echo.Context) error {
	set, err := currentPages(c)
	if err != nil {
		return fail(c, err)
	}
	set.Navigate(pages.PageDashboard)
	if err := set.Dashboard.Mount(c.Request().Context()); err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, set.Dashboard.View())
}

// Leave unmounts the dashboard, stopping notification polling.
func (h *DashboardHandler) Leave(c echo.Context) error {
	set, err := currentPages(c)
	if err != nil {
		return fail(c, err)
	}
	set.Dashboard.Unmount()
	return c.NoContent(http.StatusNoContent)
}

// SearchUsers filters the user list by the "q" email query.
func (h *DashboardHandler) SearchUsers(c echo.Context) error {
	set, err := currentPages(c)
	if err != nil {
		return fail(c, err)
	}
	d := set.Dashboard
	if err := ensureMounted(c, d); err != nil {
		return fail(c, err)
	}
	if err := d.Search(c.Request().Context(), c.QueryParam("q")); err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, d.View())
}

// Follow follows the user with the given id.
func (h *DashboardHandler) Follow(c echo.Context) error {
	return h.toggle(c, true)
}

// Unfollow stops following the user with the given id.
func (h *DashboardHandler) Unfollow(c echo.Context) error {
	return h.toggle(c, false)
}

func (h *DashboardHandler) toggle(c echo.Context, follow bool) error {
	set, err := currentPages(c)
	if err != nil {
		return fail(c, err)
	}
	d := set.Dashboard
	if err := ensureMounted(c, d); err != nil {
		return fail(c, err)
	}
	if follow {
		err = d.Follow(c.Request().Context(), c.Param("id"))
	} else {
		err = d.Unfollow(c.Request().Context(), c.Param("id"))
	}
	if err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, d.View())
}

// MarkRead marks one notification as read.
func (h *DashboardHandler) MarkRead(c echo.Context) error {
	set, err := currentPages(c)
	if err != nil {
		return fail(c, err)
	}
	d := set.Dashboard
	if err := ensureMounted(c, d); err != nil {
		return fail(c, err)
	}
	if err := d.MarkRead(c.Request().Context(), c.Param("id")); err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, d.View())
}

// MarkAllRead marks every unread notification as read and reports the
// items that could not be marked.
func (h *DashboardHandler) MarkAllRead(c echo.Context) error {
	set, err := currentPages(c)
	if err != nil {
		return fail(c, err)
	}
	d := set.Dashboard
	if err := ensureMounted(c, d); err != nil {
		return fail(c, err)
	}
	res, err := d.MarkAllRead(c.Request().Context())
	if err != nil {
		if alert, ok := pages.AsAlert(err); ok {
			return c.JSON(http.StatusMultiStatus, echo.Map{
				"success": false,
				"alert":   alert.Message,
				"result":  res,
				"data":    d.View(),
			})
		}
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"result":  res,
		"data":    d.View(),
	})
}
