package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/anonto42/skillshare/internal/media"
	"github.com/anonto42/skillshare/internal/pages"
	"github.com/labstack/echo/v4"
)

// ProfileHandler serves the profile page
type ProfileHandler struct{}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler() *ProfileHandler {
	return &ProfileHandler{}
}

// RegisterProfileRoutes registers profile routes
func (h *ProfileHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.Show)
	g.PUT("/profile/posts/:id", h.UpdatePost)
	g.DELETE("/profile/posts/:id", h.DeletePost)
	g.POST("/profile/posts/:id/like", h.Like)
	g.DELETE("/profile/posts/:id/like", h.Unlike)
}

// Show mounts the profile page and returns its view. Showing it leaves the
// dashboard.
func (h *ProfileHandler) Show(c echo.Context) error {
	set, err := currentPages(c)
	if err != nil {
		return fail(c, err)
	}
	set.Navigate(pages.PageProfile)
	if err := set.Profile.Mount(c.Request().Context()); err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, set.Profile.View())
}

// UpdatePost edits a post from a form with a "description" field and up to
// three "media" files. Without files the post keeps its media.
func (h *ProfileHandler) UpdatePost(c echo.Context) error {
	set, err := currentPages(c)
	if err != nil {
		return fail(c, err)
	}
	p := set.Profile
	if err := ensureMounted(c, p); err != nil {
		return fail(c, err)
	}

	files, err := mediaFiles(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := p.StartEdit(c.Param("id")); err != nil {
		return fail(c, err)
	}
	if err := p.SetEditContent(c.FormValue("description")); err != nil {
		return fail(c, err)
	}
	if len(files) > 0 {
		if err := p.AttachMedia(files); err != nil {
			return fail(c, err)
		}
	}
	if err := p.SaveEdit(c.Request().Context()); err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, p.View())
}

// mediaFiles reads the uploaded "media" parts, if the request is multipart.
func mediaFiles(c echo.Context) ([]media.File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil
	}
	var files []media.File
	for _, fh := range form.File["media"] {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
		}
		files = append(files, media.File{
			Name: fh.Filename,
			Type: fh.Header.Get("Content-Type"),
			Data: data,
		})
	}
	return files, nil
}

// DeletePost deletes a post.
func (h *ProfileHandler) DeletePost(c echo.Context) error {
	set, err := currentPages(c)
	if err != nil {
		return fail(c, err)
	}
	p := set.Profile
	if err := ensureMounted(c, p); err != nil {
		return fail(c, err)
	}
	if err := p.DeletePost(c.Request().Context(), c.Param("id")); err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, p.View())
}

// Like likes a post.
func (h *ProfileHandler) Like(c echo.Context) error {
	return h.toggleLike(c, true)
}

// Unlike removes the like from a post.
func (h *ProfileHandler) Unlike(c echo.Context) error {
	return h.toggleLike(c, false)
}

func (h *ProfileHandler) toggleLike(c echo.Context, like bool) error {
	set, err := currentPages(c)
	if err != nil {
		return fail(c, err)
	}
	p := set.Profile
	if err := ensureMounted(c, p); err != nil {
		return fail(c, err)
	}
	if like {
		err = p.Like(c.Request().Context(), c.Param("id"))
	} else {
		err = p.Unlike(c.Request().Context(), c.Param("id"))
	}
	if err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, p.View())
}
