package config

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "API_BASE_URL", "API_TIMEOUT", "POLL_INTERVAL", "METRICS_ENABLED", "MONGO_URI", "POSTGRES_URL", "SESSION_IDLE_TTL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "http://localhost:8080/api", cfg.APIBaseURL)
	assert.Zero(t, cfg.APITimeout)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTTL)
	assert.True(t, cfg.MetricsEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "4000")
	t.Setenv("API_TIMEOUT", "3s")
	t.Setenv("POLL_INTERVAL", "not-a-duration")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("SESSION_IDLE_TTL", "5m")

	cfg := Load()
	assert.Equal(t, "4000", cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.APITimeout)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, 5*time.Minute, cfg.SessionIdleTTL)
}

func TestInitDBFallsBackToSQLite(t *testing.T) {
	cfg := &Config{SessionDBPath: filepath.Join(t.TempDir(), "nested", "session.db")}
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})

	db, err := InitDB(cfg, log)
	require.NoError(t, err)
	defer db.CloseDB()

	require.NotNil(t, db.SQL)
	assert.Nil(t, db.Mongo)
	require.NoError(t, db.Storage.Set(context.Background(), "local", "token", "abc"))
	got, err := db.Storage.Get(context.Background(), "local", "token")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
}

func TestRequestLoggerWritesThroughLogrus(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	e := echo.New()
	SetupMiddleware(e, log)
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), `"uri":"/ping"`)
	assert.Contains(t, buf.String(), `"status":200`)
}

func TestNewLoggerLevel(t *testing.T) {
	log := NewLogger(&Config{Env: "production", LogLevel: "debug"})
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	log = NewLogger(&Config{Env: "development", LogLevel: "loud"})
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}
