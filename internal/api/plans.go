package api

import (
	"context"
	"net/http"

	"github.com/anonto42/skillshare/internal/models"
)

// ListPlans returns every learning plan.
func (c *Client) ListPlans(ctx context.Context) ([]models.LearningPlan, error) {
	var plans []models.LearningPlan
	err := c.do(ctx, call{
		op:     "fetch learning plans",
		method: http.MethodGet,
		path:   "/learning-plan",
	}, &plans)
	return plans, err
}

// CreatePlan creates a learning plan owned by userID.
func (c *Client) CreatePlan(ctx context.Context, userID string, req models.CreatePlanRequest) (*models.LearningPlan, error) {
	var plan models.LearningPlan
	err := c.do(ctx, call{
		op:     "create learning plan",
		method: http.MethodPost,
		path:   "/learning-plan/user/" + seg(userID),
		body:   req,
	}, &plan)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// AddCourse enrolls a course in a plan and returns the updated plan.
func (c *Client) AddCourse(ctx context.Context, planID string, req models.EnrollCourseRequest) (*models.LearningPlan, error) {
	var plan models.LearningPlan
	err := c.do(ctx, call{
		op:     "enroll in course",
		method: http.MethodPost,
		path:   "/learning-plan/" + seg(planID) + "/courses",
		body:   req,
	}, &plan)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// RemoveCourse removes a course from a plan and returns the updated plan.
func (c *Client) RemoveCourse(ctx context.Context, planID, courseID string) (*models.LearningPlan, error) {
	var plan models.LearningPlan
	err := c.do(ctx, call{
		op:     "remove course",
		method: http.MethodDelete,
		path:   "/learning-plan/" + seg(planID) + "/courses/" + seg(courseID),
	}, &plan)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// CompleteCourse marks a course completed and returns the updated plan.
func (c *Client) CompleteCourse(ctx context.Context, planID, courseID string) (*models.LearningPlan, error) {
	var plan models.LearningPlan
	err := c.do(ctx, call{
		op:     "mark course as completed",
		method: http.MethodPut,
		path:   "/learning-plan/" + seg(planID) + "/courses/" + seg(courseID) + "/complete",
	}, &plan)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}
