package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/anonto42/skillshare/internal/pages"
	"github.com/anonto42/skillshare/internal/session"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// CookieName is the browser cookie carrying the client session id.
const CookieName = "skillshare_session"

const (
	sidValue      = "sid"
	contextSID    = "sid"
	contextCookie = "cookie"
	contextPages  = "pages"
	contextClient = "session"
)

// ClientSession attaches the browser session id and, when one is live, its
// page set. The cookie only carries an opaque id; the session record itself
// lives in client storage under that id. Visitors without a cookie get
// neither: the id is issued by IssueSID on login.
func ClientSession(store sessions.Store, registry *pages.Registry, log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := store.Get(c.Request(), CookieName)
			if err != nil {
				// a cookie signed with another secret; start over
				log.WithError(err).Debug("Discarding unreadable session cookie")
			}
			c.Set(contextCookie, sess)

			sid, _ := sess.Values[sidValue].(string)
			if sid != "" {
				c.Set(contextSID, sid)
				if set, ok := registry.Lookup(sid); ok {
					c.Set(contextPages, set)
				}
			}
			return next(c)
		}
	}
}

// NewSID returns a fresh browser session id.
func NewSID() string { return uuid.NewString() }

// IssueSID stores sid in the caller's session cookie.
func IssueSID(c echo.Context, sid string) error {
	sess, _ := c.Get(contextCookie).(*sessions.Session)
	if sess == nil {
		return errors.New("no session cookie in context")
	}
	sess.Values[sidValue] = sid
	sess.Options = &sessions.Options{Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode}
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return fmt.Errorf("save session cookie: %w", err)
	}
	c.Set(contextSID, sid)
	return nil
}

// RequireSession redirects visitors without a logged-in session to the
// login page. A page set evicted for idleness is restored from storage.
func RequireSession(registry *pages.Registry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid := SIDFrom(c)
			if sid == "" {
				return c.Redirect(http.StatusSeeOther, session.LoginRoute)
			}
			set := PagesFrom(c)
			restored := set == nil
			if restored {
				set = registry.Get(sid)
			}
			s, err := session.Guard(c.Request().Context(), set.Sessions)
			if err != nil {
				if restored {
					registry.Drop(sid)
				}
				return c.Redirect(http.StatusSeeOther, session.LoginRoute)
			}
			c.Set(contextPages, set)
			c.Set(contextClient, s)
			return next(c)
		}
	}
}

// SIDFrom returns the browser session id set by ClientSession.
func SIDFrom(c echo.Context) string {
	sid, _ := c.Get(contextSID).(string)
	return sid
}

// PagesFrom returns the page set attached by ClientSession or RequireSession.
func PagesFrom(c echo.Context) *pages.Set {
	set, _ := c.Get(contextPages).(*pages.Set)
	return set
}

// SessionFrom returns the session loaded by RequireSession.
func SessionFrom(c echo.Context) *session.Session {
	s, _ := c.Get(contextClient).(*session.Session)
	return s
}
