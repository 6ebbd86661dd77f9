// Package apitest runs an in-memory skill-sharing backend for tests. It
// implements the subset of the REST contract the client consumes and lets a
// test fail or hold individual routes.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/skillshare/internal/models"
	"github.com/labstack/echo/v4"
)

// Route keys, in the form "METHOD pattern".
const (
	RouteListPlans      = "GET /api/learning-plan"
	RouteCreatePlan     = "POST /api/learning-plan/user/:userId"
	RouteAddCourse      = "POST /api/learning-plan/:planId/courses"
	RouteRemoveCourse   = "DELETE /api/learning-plan/:planId/courses/:courseId"
	RouteCompleteCourse = "PUT /api/learning-plan/:planId/courses/:courseId/complete"
	RoutePostsByUser    = "GET /api/posts/user/:userId"
	RouteUpdatePost     = "PUT /api/posts/:postId"
	RouteDeletePost     = "DELETE /api/posts/:postId"
	RouteAddLike        = "POST /api/posts/:postId/likes"
	RouteRemoveLike     = "DELETE /api/posts/:postId/likes/:userId"
	RouteGetUser        = "GET /api/user/:userId"
	RouteListUsers      = "GET /api/profile/all"
	RouteSearchUsers    = "GET /api/profile/search"
	RouteFollow         = "POST /api/profile/follow/:userId/:followeeId"
	RouteUnfollow       = "POST /api/profile/unfollow/:userId/:followeeId"
	RouteNotifications  = "GET /api/notifications"
	RouteUnread         = "GET /api/notifications/unread"
	RouteMarkRead       = "PUT /api/notifications/:id/read"
)

// authed lists the routes that require the bearer token.
var authed = map[string]bool{
	RouteListUsers:     true,
	RouteSearchUsers:   true,
	RouteFollow:        true,
	RouteUnfollow:      true,
	RouteNotifications: true,
	RouteUnread:        true,
	RouteMarkRead:      true,
}

// Request is one request seen by the backend.
type Request struct {
	Route         string
	Path          string
	Authorization string
}

// Backend is the fake server.
type Backend struct {
	// Token, when set, is required as bearer credential on authed routes.
	Token string

	mu            sync.Mutex
	users         []models.User
	posts         []models.Post
	plans         []models.LearningPlan
	notifications []models.Notification
	failing       map[string]failure
	gates         map[string]*gate
	requests      []Request
	seq           int

	srv *httptest.Server
}

// New starts a backend that is shut down when the test ends.
func New(t testing.TB) *Backend {
	b := &Backend{
		failing: map[string]failure{},
		gates:   map[string]*gate{},
	}
	e := echo.New()
	e.HideBanner = true
	e.Use(b.intercept)
	b.routes(e.Group("/api"))
	b.srv = httptest.NewServer(e)
	t.Cleanup(func() {
		b.releaseAll()
		b.srv.Close()
	})
	return b
}

// URL is the API base URL to hand to api.New.
func (b *Backend) URL() string { return b.srv.URL + "/api" }

// SeedUsers appends users.
func (b *Backend) SeedUsers(users ...models.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users = append(b.users, users...)
}

// SeedPosts appends posts.
func (b *Backend) SeedPosts(posts ...models.Post) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.posts = append(b.posts, posts...)
}

// SeedPlans appends plans.
func (b *Backend) SeedPlans(plans ...models.LearningPlan) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.plans = append(b.plans, plans...)
}

// SeedNotifications appends notifications.
func (b *Backend) SeedNotifications(notifs ...models.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notifications = append(b.notifications, notifs...)
}

type failure struct {
	status      int
	contentType string
	body        string
}

// Fail makes route answer with status until Heal is called.
func (b *Backend) Fail(route string, status int) {
	b.FailWith(route, status, echo.MIMETextPlainCharsetUTF8, "backend failure on "+route)
}

// FailWith makes route answer with status and the given body until Heal is
// called.
func (b *Backend) FailWith(route string, status int, contentType, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing[route] = failure{status: status, contentType: contentType, body: body}
}

// Heal undoes Fail.
func (b *Backend) Heal(route string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failing, route)
}

type gate struct {
	ch   chan struct{}
	once sync.Once
}

func (g *gate) open() { g.once.Do(func() { close(g.ch) }) }

// Block holds every request on route until the returned release func is
// called. Calling release more than once is safe.
func (b *Backend) Block(route string) (release func()) {
	g := &gate{ch: make(chan struct{})}
	b.mu.Lock()
	b.gates[route] = g
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		if b.gates[route] == g {
			delete(b.gates, route)
		}
		b.mu.Unlock()
		g.open()
	}
}

func (b *Backend) releaseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for route, g := range b.gates {
		g.open()
		delete(b.gates, route)
	}
}

// Requests returns every request seen so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// Count returns how many requests hit route.
func (b *Backend) Count(route string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Route == route {
			n++
		}
	}
	return n
}

// User returns the stored user with id.
func (b *Backend) User(id string) (models.User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}

// Plans returns the stored plans.
func (b *Backend) Plans() []models.LearningPlan {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.LearningPlan(nil), b.plans...)
}

// Posts returns the stored posts.
func (b *Backend) Posts() []models.Post {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Post(nil), b.posts...)
}

// Notifications returns the stored notifications.
func (b *Backend) Notifications() []models.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Notification(nil), b.notifications...)
}

// DropNotification deletes a stored notification, so later writes to it
// fail with 404.
func (b *Backend) DropNotification(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.notifications {
		if b.notifications[i].ID == id {
			b.notifications = append(b.notifications[:i:i], b.notifications[i+1:]...)
			return
		}
	}
}

func (b *Backend) intercept(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		route := c.Request().Method + " " + c.Path()
		auth := c.Request().Header.Get("Authorization")

		b.mu.Lock()
		b.requests = append(b.requests, Request{Route: route, Path: c.Request().URL.Path, Authorization: auth})
		g := b.gates[route]
		b.mu.Unlock()

		if g != nil {
			select {
			case <-g.ch:
			case <-c.Request().Context().Done():
				return c.Request().Context().Err()
			}
		}

		b.mu.Lock()
		f, failing := b.failing[route]
		b.mu.Unlock()
		if failing {
			return c.Blob(f.status, f.contentType, []byte(f.body))
		}

		if authed[route] && b.Token != "" && auth != "Bearer "+b.Token {
			return c.String(http.StatusUnauthorized, "invalid token")
		}
		return next(c)
	}
}

func (b *Backend) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s-%d", prefix, b.seq)
}

func (b *Backend) routes(g *echo.Group) {
	g.GET("/learning-plan", b.listPlans)
	g.POST("/learning-plan/user/:userId", b.createPlan)
	g.POST("/learning-plan/:planId/courses", b.addCourse)
	g.DELETE("/learning-plan/:planId/courses/:courseId", b.removeCourse)
	g.PUT("/learning-plan/:planId/courses/:courseId/complete", b.completeCourse)

	g.GET("/posts/user/:userId", b.postsByUser)
	g.PUT("/posts/:postId", b.updatePost)
	g.DELETE("/posts/:postId", b.deletePost)
	g.POST("/posts/:postId/likes", b.addLike)
	g.DELETE("/posts/:postId/likes/:userId", b.removeLike)

	g.GET("/user/:userId", b.getUser)
	g.GET("/profile/all", b.listUsers)
	g.GET("/profile/search", b.searchUsers)
	g.POST("/profile/follow/:userId/:followeeId", b.follow)
	g.POST("/profile/unfollow/:userId/:followeeId", b.unfollow)

	g.GET("/notifications", b.listNotifications)
	g.GET("/notifications/unread", b.listUnread)
	g.PUT("/notifications/:id/read", b.markRead)
}

// --- learning plans ---

func (b *Backend) listPlans(c echo.Context) error {
	return c.JSON(http.StatusOK, b.Plans())
}

func (b *Backend) createPlan(c echo.Context) error {
	var req models.CreatePlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	plan := models.LearningPlan{
		ID:          b.nextID("plan"),
		UserID:      c.Param("userId"),
		UserName:    req.UserName,
		Title:       req.Title,
		Description: req.Description,
		Topics:      req.Topics,
		Resources:   req.Resources,
		Progress:    0,
	}
	b.plans = append([]models.LearningPlan{plan}, b.plans...)
	return c.JSON(http.StatusCreated, plan)
}

// withPlan runs fn on the stored plan and answers with the updated plan.
func (b *Backend) withPlan(c echo.Context, fn func(p *models.LearningPlan) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.plans {
		if b.plans[i].ID != c.Param("planId") {
			continue
		}
		if err := fn(&b.plans[i]); err != nil {
			return err
		}
		recompute(&b.plans[i])
		return c.JSON(http.StatusOK, b.plans[i])
	}
	return echo.NewHTTPError(http.StatusNotFound, "Learning plan not found")
}

func recompute(p *models.LearningPlan) {
	if len(p.Courses) == 0 {
		p.Progress = 0
		p.Badges = nil
		return
	}
	done := 0
	for _, c := range p.Courses {
		if c.Completed {
			done++
		}
	}
	p.Progress = float64(done) * 100 / float64(len(p.Courses))
	p.Badges = nil
	if done > 0 {
		p.Badges = append(p.Badges, "Starter")
	}
	if done == len(p.Courses) {
		p.Badges = append(p.Badges, "Finisher")
	}
}

func (b *Backend) addCourse(c echo.Context) error {
	var req models.EnrollCourseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	return b.withPlan(c, func(p *models.LearningPlan) error {
		p.Courses = append(p.Courses, models.Course{
			CourseID:   req.CourseID,
			CourseName: req.CourseName,
			Completed:  req.Completed,
			EnrolledAt: req.EnrolledAt,
		})
		return nil
	})
}

func (b *Backend) removeCourse(c echo.Context) error {
	return b.withPlan(c, func(p *models.LearningPlan) error {
		for i, course := range p.Courses {
			if course.CourseID == c.Param("courseId") {
				p.Courses = append(p.Courses[:i:i], p.Courses[i+1:]...)
				return nil
			}
		}
		return echo.NewHTTPError(http.StatusNotFound, "Course not found")
	})
}

func (b *Backend) completeCourse(c echo.Context) error {
	return b.withPlan(c, func(p *models.LearningPlan) error {
		for i := range p.Courses {
			if p.Courses[i].CourseID == c.Param("courseId") {
				p.Courses[i].Completed = true
				return nil
			}
		}
		return echo.NewHTTPError(http.StatusNotFound, "Course not found")
	})
}

// --- posts ---

func (b *Backend) postsByUser(c echo.Context) error {
	out := []models.Post{}
	for _, p := range b.Posts() {
		if p.UserID == c.Param("userId") {
			out = append(out, p)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (b *Backend) updatePost(c echo.Context) error {
	var req models.UpdatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.posts {
		if b.posts[i].ID == c.Param("postId") {
			b.posts[i].Description = req.Description
			b.posts[i].MediaURLs = req.MediaURLs
			return c.JSON(http.StatusOK, b.posts[i])
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "Post not found")
}

func (b *Backend) deletePost(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.posts {
		if b.posts[i].ID == c.Param("postId") {
			b.posts = append(b.posts[:i:i], b.posts[i+1:]...)
			return c.NoContent(http.StatusNoContent)
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "Post not found")
}

func (b *Backend) addLike(c echo.Context) error {
	var req models.LikeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.posts {
		if b.posts[i].ID == c.Param("postId") {
			if b.posts[i].LikedBy(req.UserID) {
				return echo.NewHTTPError(http.StatusConflict, "Post already liked by this user")
			}
			like := models.Like{ID: b.nextID("like"), UserID: req.UserID, CreatedAt: time.Now().UTC()}
			b.posts[i].Likes = append(b.posts[i].Likes, like)
			return c.JSON(http.StatusCreated, like)
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "Post not found")
}

func (b *Backend) removeLike(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.posts {
		if b.posts[i].ID != c.Param("postId") {
			continue
		}
		for j, l := range b.posts[i].Likes {
			if l.UserID == c.Param("userId") {
				b.posts[i].Likes = append(b.posts[i].Likes[:j:j], b.posts[i].Likes[j+1:]...)
				return c.NoContent(http.StatusNoContent)
			}
		}
		return echo.NewHTTPError(http.StatusNotFound, "Like not found")
	}
	return echo.NewHTTPError(http.StatusNotFound, "Post not found")
}

// --- users ---

func (b *Backend) getUser(c echo.Context) error {
	u, ok := b.User(c.Param("userId"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
	}
	return c.JSON(http.StatusOK, u)
}

func (b *Backend) listUsers(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return c.JSON(http.StatusOK, append([]models.User{}, b.users...))
}

func (b *Backend) searchUsers(c echo.Context) error {
	q := strings.ToLower(c.QueryParam("email"))
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []models.User{}
	for _, u := range b.users {
		if strings.Contains(strings.ToLower(u.Email), q) {
			out = append(out, u)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (b *Backend) follow(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.users {
		if b.users[i].ID != c.Param("userId") {
			continue
		}
		if b.users[i].IsFollowing(c.Param("followeeId")) {
			return c.String(http.StatusConflict, "Already following this user")
		}
		b.users[i].Following = append(b.users[i].Following, c.Param("followeeId"))
		return c.String(http.StatusOK, "User followed successfully")
	}
	return c.String(http.StatusNotFound, "User not found")
}

func (b *Backend) unfollow(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.users {
		if b.users[i].ID != c.Param("userId") {
			continue
		}
		kept := b.users[i].Following[:0:0]
		for _, id := range b.users[i].Following {
			if id != c.Param("followeeId") {
				kept = append(kept, id)
			}
		}
		b.users[i].Following = kept
		return c.String(http.StatusOK, "User unfollowed successfully")
	}
	return c.String(http.StatusNotFound, "User not found")
}

// --- notifications ---

func (b *Backend) listNotifications(c echo.Context) error {
	out := []models.Notification{}
	for _, n := range b.Notifications() {
		if n.UserID == c.QueryParam("userId") {
			out = append(out, n)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (b *Backend) listUnread(c echo.Context) error {
	out := []models.Notification{}
	for _, n := range b.Notifications() {
		if n.UserID == c.QueryParam("userId") && !n.Read {
			out = append(out, n)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (b *Backend) markRead(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.notifications {
		if b.notifications[i].ID == c.Param("id") {
			b.notifications[i].Read = true
			return c.NoContent(http.StatusOK)
		}
	}
	return echo.NewHTTPError(http.StatusNotFound, "Notification not found")
}
