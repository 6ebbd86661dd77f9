package pages

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/anonto42/skillshare/internal/api"
	"github.com/anonto42/skillshare/internal/apitest"
	"github.com/anonto42/skillshare/internal/metrics"
	"github.com/anonto42/skillshare/internal/models"
	"github.com/anonto42/skillshare/internal/repositories"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testToken = "tok-1"

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func setupStorage(t *testing.T) repositories.StorageRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	repo := repositories.NewSQLStorageRepository(db)
	require.NoError(t, repo.Migrate())
	return repo
}

func testDeps(b *apitest.Backend) Deps {
	log := quietLogger()
	return Deps{
		API:          api.New(b.URL(), api.WithLogger(log)),
		Logger:       log,
		Metrics:      metrics.New(prometheus.NewRegistry()),
		PollInterval: time.Hour,
	}
}

// setup starts a backend seeded with the session user u1 and returns a page
// set that is not logged in yet.
func setup(t *testing.T, users ...models.User) (*Set, *apitest.Backend) {
	t.Helper()
	b := apitest.New(t)
	b.Token = testToken
	b.SeedUsers(append([]models.User{{ID: "u1", Name: "Ada", Email: "ada@x.io"}}, users...)...)

	set := NewSet(testDeps(b), setupStorage(t), "test")
	t.Cleanup(set.Dashboard.Unmount)
	return set, b
}

func login(t *testing.T, set *Set, b *apitest.Backend) {
	t.Helper()
	_, err := set.Sessions.Login(context.Background(), api.New(b.URL()), "u1", testToken)
	require.NoError(t, err)
}
