package models

import "time"

// LearningPlan is a user's plan of topics, resources and enrolled courses.
// Progress and Badges are computed by the backend.
type LearningPlan struct {
	ID          string   `json:"id"`
	UserID      string   `json:"userId"`
	UserName    string   `json:"userName"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Topics      string   `json:"topics"`    // free text
	Resources   string   `json:"resources"` // free text
	Progress    float64  `json:"progress"`  // 0-100
	Badges      []string `json:"badges,omitempty"`
	Courses     []Course `json:"courses,omitempty"`
}

// Course is a course enrolled in a learning plan
type Course struct {
	CourseID   string    `json:"courseId"`
	CourseName string    `json:"courseName"`
	Completed  bool      `json:"completed"`
	EnrolledAt time.Time `json:"enrolledAt"`
}

// CreatePlanRequest defines the request body for creating a learning plan
type CreatePlanRequest struct {
	UserID      string `json:"userId" validate:"required"`
	UserName    string `json:"userName"`
	Title       string `json:"title" validate:"notblank"`
	Description string `json:"description" validate:"notblank"`
	Topics      string `json:"topics"`
	Resources   string `json:"resources"`
}

// EnrollCourseRequest defines the request body for adding a course to a plan
type EnrollCourseRequest struct {
	CourseID   string    `json:"courseId" validate:"required"`
	CourseName string    `json:"courseName" validate:"notblank"`
	Completed  bool      `json:"completed"`
	EnrolledAt time.Time `json:"enrolledAt"`
}
