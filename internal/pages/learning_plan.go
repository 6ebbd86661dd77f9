package pages

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/anonto42/skillshare/internal/models"
	"github.com/anonto42/skillshare/internal/session"
	"github.com/anonto42/skillshare/validators"
	"github.com/google/uuid"
)

// EmptyPlansMessage is shown when there are no learning plans.
const EmptyPlansMessage = "No learning plans yet. Create your first plan!"

// PlanForm is the new-plan form.
type PlanForm struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Topics      string `json:"topics" form:"topics"`
	Resources   string `json:"resources" form:"resources"`
}

// CourseView is a course with its display state.
type CourseView struct {
	models.Course
	Status      string `json:"status"`
	CanComplete bool   `json:"canComplete"`
}

// PlanView is a plan with its display state.
type PlanView struct {
	models.LearningPlan
	ProgressLabel string       `json:"progressLabel"`
	Courses       []CourseView `json:"courses"`
	CourseInput   string       `json:"courseInput"`
}

// LearningPlanView is a snapshot of the learning plan page.
type LearningPlanView struct {
	Plans  []PlanView `json:"plans"`
	Empty  string     `json:"empty,omitempty"`
	Banner string     `json:"banner,omitempty"`
	Form   PlanForm   `json:"form"`
}

// LearningPlans lists every learning plan and manages plan creation and
// course enrollment.
type LearningPlans struct {
	deps Deps
	now  func() time.Time

	mu           sync.Mutex
	sess         *session.Session
	plans        *List[models.LearningPlan]
	banner       string
	form         PlanForm
	courseInputs map[string]string
}

// NewLearningPlans creates an unmounted learning plan page.
func NewLearningPlans(deps Deps) *LearningPlans {
	return &LearningPlans{
		deps:         deps.withDefaults(),
		now:          time.Now,
		plans:        NewList(func(p models.LearningPlan) string { return p.ID }),
		courseInputs: map[string]string{},
	}
}

// Mount guards the page and loads the plans.
func (lp *LearningPlans) Mount(ctx context.Context) error {
	sess, err := session.Guard(ctx, lp.deps.Sessions)
	if err != nil {
		return err
	}
	plans, err := lp.deps.API.ListPlans(ctx)

	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.sess = sess
	if err != nil {
		lp.banner = "Failed to fetch learning plans"
		return nil
	}
	lp.plans.Replace(plans)
	lp.banner = ""
	return nil
}

// Mounted reports whether Mount succeeded since the last logout.
func (lp *LearningPlans) Mounted() bool {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	return lp.sess != nil
}

func (lp *LearningPlans) current() (*session.Session, error) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.sess == nil {
		return nil, session.ErrLoggedOut
	}
	return lp.sess, nil
}

// fail records msg in the banner and returns it as an Alert.
func (lp *LearningPlans) fail(msg string, err error) error {
	lp.mu.Lock()
	lp.banner = msg
	lp.mu.Unlock()
	return newAlert(msg, err)
}

// SetForm stores the new-plan form without submitting it.
func (lp *LearningPlans) SetForm(form PlanForm) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.form = form
}

// CreatePlan submits form for the session user. The created plan is put
// first and the form is reset; on failure the form is kept.
func (lp *LearningPlans) CreatePlan(ctx context.Context, form PlanForm) (*models.LearningPlan, error) {
	sess, err := lp.current()
	if err != nil {
		return nil, err
	}
	lp.SetForm(form)

	req := models.CreatePlanRequest{
		UserID:      sess.UserID(),
		UserName:    sess.User.Name,
		Title:       form.Title,
		Description: form.Description,
		Topics:      form.Topics,
		Resources:   form.Resources,
	}
	if err := lp.deps.Validator.Struct(req); err != nil {
		return nil, &Alert{
			Message: "Please add a title and description",
			Fields:  fieldErrors(err),
			Err:     err,
		}
	}

	plan, err := lp.deps.API.CreatePlan(ctx, sess.UserID(), req)
	if err != nil {
		return nil, lp.fail("Failed to create learning plan", err)
	}

	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.plans.Prepend(*plan)
	lp.form = PlanForm{}
	return plan, nil
}

// SetCourseInput stores the course name typed for a plan.
func (lp *LearningPlans) SetCourseInput(planID, name string) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.courseInputs[planID] = name
}

// Enroll adds a new, not yet completed course to a plan.
func (lp *LearningPlans) Enroll(ctx context.Context, planID, courseName string) (*models.LearningPlan, error) {
	if _, err := lp.current(); err != nil {
		return nil, err
	}
	lp.SetCourseInput(planID, courseName)

	req := models.EnrollCourseRequest{
		CourseID:   "course-" + uuid.NewString(),
		CourseName: courseName,
		Completed:  false,
		EnrolledAt: lp.now().UTC(),
	}
	if err := lp.deps.Validator.Struct(req); err != nil {
		return nil, &Alert{
			Message: "Please enter a course name",
			Fields:  fieldErrors(err),
			Err:     err,
		}
	}

	plan, err := lp.deps.API.AddCourse(ctx, planID, req)
	if err != nil {
		return nil, lp.fail("Failed to enroll in course", err)
	}

	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.plans.Upsert(*plan)
	delete(lp.courseInputs, planID)
	return plan, nil
}

// RemoveCourse drops a course from a plan.
func (lp *LearningPlans) RemoveCourse(ctx context.Context, planID, courseID string) (*models.LearningPlan, error) {
	if _, err := lp.current(); err != nil {
		return nil, err
	}
	plan, err := lp.deps.API.RemoveCourse(ctx, planID, courseID)
	if err != nil {
		return nil, lp.fail("Failed to remove course", err)
	}
	lp.replace(*plan)
	return plan, nil
}

// CompleteCourse marks a course as completed. Completing a course twice
// sends nothing.
func (lp *LearningPlans) CompleteCourse(ctx context.Context, planID, courseID string) (*models.LearningPlan, error) {
	if _, err := lp.current(); err != nil {
		return nil, err
	}
	lp.mu.Lock()
	plan, found := lp.plans.Find(planID)
	lp.mu.Unlock()
	if found {
		for _, c := range plan.Courses {
			if c.CourseID == courseID && !CanComplete(c) {
				return &plan, nil
			}
		}
	}

	updated, err := lp.deps.API.CompleteCourse(ctx, planID, courseID)
	if err != nil {
		return nil, lp.fail("Failed to mark course as completed", err)
	}
	lp.replace(*updated)
	return updated, nil
}

func (lp *LearningPlans) replace(plan models.LearningPlan) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.plans.Upsert(plan)
}

// CourseStatus is the label shown next to a course.
func CourseStatus(c models.Course) string {
	if c.Completed {
		return "Completed"
	}
	return "In Progress"
}

// CanComplete reports whether the complete action is offered for c.
func CanComplete(c models.Course) bool { return !c.Completed }

// ProgressLabel formats a progress percentage, e.g. "67%".
func ProgressLabel(progress float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(progress)))
}

// View returns a snapshot of the page.
func (lp *LearningPlans) View() LearningPlanView {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	v := LearningPlanView{
		Plans:  []PlanView{},
		Banner: lp.banner,
		Form:   lp.form,
	}
	for _, p := range lp.plans.Items() {
		pv := PlanView{
			LearningPlan:  p,
			ProgressLabel: ProgressLabel(p.Progress),
			Courses:       []CourseView{},
			CourseInput:   lp.courseInputs[p.ID],
		}
		for _, c := range p.Courses {
			pv.Courses = append(pv.Courses, CourseView{Course: c, Status: CourseStatus(c), CanComplete: CanComplete(c)})
		}
		v.Plans = append(v.Plans, pv)
	}
	if len(v.Plans) == 0 {
		v.Empty = EmptyPlansMessage
	}
	return v
}

// fieldErrors maps validator failures to form messages.
func fieldErrors(err error) map[string]string {
	out := map[string]string{}
	for field, tag := range validators.FieldErrors(err) {
		switch tag {
		case "notblank", "required":
			out[field] = "is required"
		default:
			out[field] = "is invalid"
		}
	}
	return out
}
