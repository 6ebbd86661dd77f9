package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/anonto42/skillshare/internal/api"
	"github.com/anonto42/skillshare/internal/middleware"
	"github.com/anonto42/skillshare/internal/pages"
	"github.com/anonto42/skillshare/internal/session"
	"github.com/labstack/echo/v4"
)

type mountable interface {
	Mounted() bool
	Mount(ctx context.Context) error
}

// ensureMounted mounts page unless an earlier request already did.
func ensureMounted(c echo.Context, page mountable) error {
	if page.Mounted() {
		return nil
	}
	return page.Mount(c.Request().Context())
}

func currentPages(c echo.Context) (*pages.Set, error) {
	set := middleware.PagesFrom(c)
	if set == nil {
		return nil, session.ErrLoggedOut
	}
	return set, nil
}

func success(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, echo.Map{
		"success": true,
		"data":    data,
	})
}

// fail maps page errors onto responses: a lost session redirects to the
// login page, alerts become JSON errors.
func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, session.ErrLoggedOut):
		return c.Redirect(http.StatusSeeOther, session.LoginRoute)
	case errors.Is(err, pages.ErrPending), errors.Is(err, pages.ErrNotEditing):
		return echo.NewHTTPError(http.StatusConflict, echo.Map{
			"success": false,
			"alert":   err.Error(),
		})
	}

	alert, ok := pages.AsAlert(err)
	if !ok {
		return err
	}
	status := http.StatusBadRequest
	if errors.Is(alert, api.ErrRequestFailed) {
		status = http.StatusBadGateway
	}
	body := echo.Map{
		"success": false,
		"alert":   alert.Message,
	}
	if len(alert.Fields) > 0 {
		body["fields"] = alert.Fields
	}
	return echo.NewHTTPError(status, body)
}
