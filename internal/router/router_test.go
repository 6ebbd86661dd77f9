package router

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/skillshare/internal/api"
	"github.com/anonto42/skillshare/internal/apitest"
	"github.com/anonto42/skillshare/internal/metrics"
	"github.com/anonto42/skillshare/internal/models"
	"github.com/anonto42/skillshare/internal/pages"
	"github.com/anonto42/skillshare/internal/repositories"
	"github.com/anonto42/skillshare/validators"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var gifData = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\x00\x00\x00\xff\xff\xff!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")

type testServer struct {
	t        *testing.T
	backend  *apitest.Backend
	registry *pages.Registry
	srv      *httptest.Server
	client   *http.Client
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, time.Hour)
}

func newTestServerWith(t *testing.T, pollInterval time.Duration, opts ...pages.RegistryOption) *testServer {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	b := apitest.New(t)
	b.Token = "tok-1"
	b.SeedUsers(
		models.User{ID: "u1", Name: "Ada", Email: "ada@x.io"},
		models.User{ID: "u2", Name: "Bob", Email: "bob@x.io"},
	)
	b.SeedPosts(models.Post{ID: "p1", UserID: "u1", Description: "first"})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	repo := repositories.NewSQLStorageRepository(db)
	require.NoError(t, repo.Migrate())

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	client := api.New(b.URL(), api.WithLogger(log), api.WithMetrics(m))
	registry := pages.NewRegistry(pages.Deps{
		API:          client,
		Logger:       log,
		Metrics:      m,
		PollInterval: pollInterval,
	}, repo, opts...)
	t.Cleanup(registry.Close)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	SetupRoutes(e, Deps{
		API:      client,
		Registry: registry,
		Store:    sessions.NewCookieStore([]byte("test-secret")),
		Logger:   log,
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testServer{
		t:        t,
		backend:  b,
		registry: registry,
		srv:      srv,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (s *testServer) do(method, path, contentType string, body io.Reader) (*http.Response, map[string]interface{}) {
	s.t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, body)
	require.NoError(s.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := s.client.Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func (s *testServer) json(method, path, body string) (*http.Response, map[string]interface{}) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return s.do(method, path, "application/json", r)
}

func (s *testServer) login() {
	s.t.Helper()
	resp, body := s.json(http.MethodPost, "/login", `{"userId":"u1","token":"tok-1"}`)
	require.Equal(s.t, http.StatusOK, resp.StatusCode, body)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.json(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestGuardedPagesRedirectToLogin(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/dashboard", "/profile", "/learning-plan"} {
		resp, _ := s.json(http.MethodGet, path, "")
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, "/login", resp.Header.Get("Location"), path)
	}
	assert.Empty(t, s.backend.Requests())
}

func TestLoginValidation(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.json(http.MethodPost, "/login", `{"userId":" "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["errors"], "token")
}

func TestLoginUnknownUser(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.json(http.MethodPost, "/login", `{"userId":"nobody","token":"tok-1"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, body["success"])

	resp, _ = s.json(http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Zero(t, s.registry.Len())
}

func TestDashboardFollow(t *testing.T) {
	s := newTestServer(t)
	s.login()

	resp, body := s.json(http.MethodGet, "/dashboard", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users := body["data"].(map[string]interface{})["users"].([]interface{})
	require.Len(t, users, 1)
	assert.Equal(t, "u2", users[0].(map[string]interface{})["id"])

	resp, body = s.json(http.MethodPost, "/dashboard/follow/u2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "User followed successfully", data["notice"])
	assert.Equal(t, true, data["users"].([]interface{})[0].(map[string]interface{})["isFollowing"])

	u, _ := s.backend.User("u1")
	assert.Equal(t, []string{"u2"}, u.Following)
}

func TestLogout(t *testing.T) {
	s := newTestServer(t)
	s.login()

	resp, _ := s.json(http.MethodGet, "/dashboard", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := s.json(http.MethodPost, "/logout", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/login", body["redirect"])

	resp, _ = s.json(http.MethodGet, "/dashboard", "")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestLearningPlanFlow(t *testing.T) {
	s := newTestServer(t)
	s.login()

	resp, body := s.json(http.MethodGet, "/learning-plan", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, pages.EmptyPlansMessage, body["data"].(map[string]interface{})["empty"])

	resp, body = s.json(http.MethodPost, "/learning-plan", `{"title":"Go","description":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Please add a title and description", body["alert"])

	resp, body = s.json(http.MethodPost, "/learning-plan", `{"title":"Go","description":"Learn Go"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	planID := body["data"].(map[string]interface{})["id"].(string)

	resp, body = s.json(http.MethodPost, "/learning-plan/"+planID+"/courses", `{"courseName":"Basics"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	courses := body["data"].(map[string]interface{})["courses"].([]interface{})
	require.Len(t, courses, 1)
	courseID := courses[0].(map[string]interface{})["courseId"].(string)

	resp, body = s.json(http.MethodPut, "/learning-plan/"+planID+"/courses/"+courseID+"/complete", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, 100.0, body["data"].(map[string]interface{})["progress"])

	resp, _ = s.json(http.MethodDelete, "/learning-plan/"+planID+"/courses/"+courseID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, s.backend.Plans()[0].Courses)
}

func TestProfileMultipartEdit(t *testing.T) {
	s := newTestServer(t)
	s.login()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("description", "first, with a picture"))
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="media"; filename="dot.gif"`)
	h.Set("Content-Type", "image/gif")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(gifData)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp, body := s.do(http.MethodPut, "/profile/posts/p1", w.FormDataContentType(), &buf)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	post := s.backend.Posts()[0]
	assert.Equal(t, "first, with a picture", post.Description)
	require.Len(t, post.MediaURLs, 1)
	assert.True(t, strings.HasPrefix(post.MediaURLs[0], "data:image/gif;base64,"))
}

func TestBackendFailureIsBadGateway(t *testing.T) {
	s := newTestServer(t)
	s.login()
	s.backend.Fail(apitest.RouteDeletePost, http.StatusInternalServerError)

	resp, body := s.json(http.MethodDelete, "/profile/posts/p1", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "Failed to delete post.", body["alert"])
	assert.Len(t, s.backend.Posts(), 1)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.login()

	resp, err := s.client.Get(s.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `skillshare_api_calls_total{op="fetch user data",outcome="ok"} 1`)
}

func TestCookielessVisitorsCreateNoState(t *testing.T) {
	s := newTestServer(t)
	anonymous := &http.Client{}

	for i := 0; i < 50; i++ {
		for _, path := range []string{"/", "/login", "/dashboard"} {
			resp, err := anonymous.Get(s.srv.URL + path)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Empty(t, resp.Header.Get("Set-Cookie"), path)
		}
	}
	assert.Zero(t, s.registry.Len())

	s.login()
	assert.Equal(t, 1, s.registry.Len())
	resp, body := s.json(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["data"].(map[string]interface{})["loggedIn"])
}

func TestLeavingDashboardStopsPolling(t *testing.T) {
	s := newTestServerWith(t, 20*time.Millisecond)
	s.login()

	for _, path := range []string{"/profile", "/learning-plan"} {
		resp, _ := s.json(http.MethodGet, "/dashboard", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		start := s.backend.Count(apitest.RouteNotifications)
		require.Eventually(t, func() bool {
			return s.backend.Count(apitest.RouteNotifications) >= start+2
		}, time.Second, 5*time.Millisecond)

		resp, _ = s.json(http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		stopped := s.backend.Count(apitest.RouteNotifications)
		time.Sleep(200 * time.Millisecond)
		assert.Equal(t, stopped, s.backend.Count(apitest.RouteNotifications), path)
	}
}

func TestIdleSessionIsEvictedAndRestored(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	s := newTestServerWith(t, 20*time.Millisecond, pages.WithIdleTTL(time.Minute), pages.WithClock(clock))
	s.login()

	resp, _ := s.json(http.MethodGet, "/dashboard", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()
	assert.Equal(t, 1, s.registry.Sweep())
	assert.Zero(t, s.registry.Len())

	stopped := s.backend.Count(apitest.RouteNotifications)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, stopped, s.backend.Count(apitest.RouteNotifications))

	// the stored session brings the pages back on the next visit
	resp, body := s.json(http.MethodGet, "/dashboard", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ada", body["data"].(map[string]interface{})["user"].(map[string]interface{})["name"])
	assert.Equal(t, 1, s.registry.Len())
}
