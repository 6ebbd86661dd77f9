package handlers

import (
	"net/http"

	"github.com/anonto42/skillshare/internal/pages"
	"github.com/labstack/echo/v4"
)

// LearningPlanHandler serves the learning plan page
type LearningPlanHandler struct{}

// NewLearningPlanHandler creates a new LearningPlanHandler
func NewLearningPlanHandler() *LearningPlanHandler {
	return &LearningPlanHandler{}
}

// EnrollRequest is the course enrollment form.
type EnrollRequest struct {
	CourseName string `json:"courseName" form:"courseName"`
}

// RegisterLearningPlanRoutes registers learning plan routes
func (h *LearningPlanHandler) RegisterLearningPlanRoutes(g *echo.Group) {
	g.GET("/learning-plan", h.Show)
	g.POST("/learning-plan", h.CreatePlan)
	g.POST("/learning-plan/:planId/courses", h.Enroll)
	g.DELETE("/learning-plan/:planId/courses/:courseId", h.RemoveCourse)
	g.PUT("/learning-plan/:planId/courses/:courseId/complete", h.CompleteCourse)
}

func (h *LearningPlanHandler) page(c echo.Context) (*pages.LearningPlans, error) {
	set, err := currentPages(c)
	if err != nil {
		return nil, err
	}
	if err := ensureMounted(c, set.LearningPlans); err != nil {
		return nil, err
	}
	return set.LearningPlans, nil
}

// Show mounts the page and returns its view, leaving the dashboard.
func (h *LearningPlanHandler) Show(c echo.Context) error {
	set, err := currentPages(c)
	if err != nil {
		return fail(c, err)
	}
	set.Navigate(pages.PageLearningPlans)
	if err := set.LearningPlans.Mount(c.Request().Context()); err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, set.LearningPlans.View())
}

// CreatePlan creates a learning plan for the session user.
func (h *LearningPlanHandler) CreatePlan(c echo.Context) error {
	lp, err := h.page(c)
	if err != nil {
		return fail(c, err)
	}
	var form pages.PlanForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	plan, err := lp.CreatePlan(c.Request().Context(), form)
	if err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusCreated, plan)
}

// Enroll adds a course to a plan.
func (h *LearningPlanHandler) Enroll(c echo.Context) error {
	lp, err := h.page(c)
	if err != nil {
		return fail(c, err)
	}
	var req EnrollRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	plan, err := lp.Enroll(c.Request().Context(), c.Param("planId"), req.CourseName)
	if err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, plan)
}

// RemoveCourse removes a course from a plan.
func (h *LearningPlanHandler) RemoveCourse(c echo.Context) error {
	lp, err := h.page(c)
	if err != nil {
		return fail(c, err)
	}
	plan, err := lp.RemoveCourse(c.Request().Context(), c.Param("planId"), c.Param("courseId"))
	if err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, plan)
}

// CompleteCourse marks a course as completed.
func (h *LearningPlanHandler) CompleteCourse(c echo.Context) error {
	lp, err := h.page(c)
	if err != nil {
		return fail(c, err)
	}
	plan, err := lp.CompleteCourse(c.Request().Context(), c.Param("planId"), c.Param("courseId"))
	if err != nil {
		return fail(c, err)
	}
	return success(c, http.StatusOK, plan)
}
