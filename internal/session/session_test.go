package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/skillshare/internal/models"
	"github.com/anonto42/skillshare/internal/repositories"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStorage struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newMemStorage() *memStorage { return &memStorage{data: map[string]string{}} }

func (s *memStorage) Get(_ context.Context, ns, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	v, ok := s.data[ns+"/"+key]
	if !ok {
		return "", repositories.ErrNotFound
	}
	return v, nil
}

func (s *memStorage) Set(_ context.Context, ns, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[ns+"/"+key] = value
	return nil
}

func (s *memStorage) Delete(_ context.Context, ns string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, ns+"/"+k)
	}
	return nil
}

type fakeUsers map[string]models.User

func (f fakeUsers) GetUser(_ context.Context, id string) (*models.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, errors.New("failed to fetch user data")
	}
	return &u, nil
}

func TestGuardWithoutSession(t *testing.T) {
	m := NewManager(newMemStorage(), DefaultNamespace, nil)

	_, err := Guard(context.Background(), m)
	assert.ErrorIs(t, err, ErrLoggedOut)
}

func TestMalformedRecordIsLoggedOut(t *testing.T) {
	store := newMemStorage()
	store.data["local/"+KeyUser] = "{not json"
	m := NewManager(store, DefaultNamespace, nil)

	_, err := m.Load(context.Background())
	assert.ErrorIs(t, err, ErrLoggedOut)

	store.data["local/"+KeyUser] = `{"name":"no id"}`
	_, err = m.Load(context.Background())
	assert.ErrorIs(t, err, ErrLoggedOut)
}

func TestStorageFailureGuardsAsLoggedOut(t *testing.T) {
	store := newMemStorage()
	store.err = errors.New("disk on fire")
	m := NewManager(store, DefaultNamespace, nil)

	_, err := m.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLoggedOut)

	_, err = Guard(context.Background(), m)
	assert.ErrorIs(t, err, ErrLoggedOut)
}

func TestLoginSaveAndClear(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newMemStorage(), DefaultNamespace, nil)
	users := fakeUsers{"u1": {ID: "u1", Name: "Ann", Following: []string{"u2"}}}

	s, err := m.Login(ctx, users, "u1", "tok")
	require.NoError(t, err)
	assert.Equal(t, "Ann", s.User.Name)

	loaded, err := Guard(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, "tok", loaded.Token)
	assert.Equal(t, []string{"u2"}, loaded.User.Following)

	require.NoError(t, m.Clear(ctx))
	_, err = Guard(ctx, m)
	assert.ErrorIs(t, err, ErrLoggedOut)
}

func TestLoginUnknownUser(t *testing.T) {
	m := NewManager(newMemStorage(), DefaultNamespace, nil)

	_, err := m.Login(context.Background(), fakeUsers{}, "nobody", "tok")
	require.Error(t, err)
	_, err = Guard(context.Background(), m)
	assert.ErrorIs(t, err, ErrLoggedOut)
}

func TestFollowingRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newMemStorage(), DefaultNamespace, nil)
	require.NoError(t, m.Save(ctx, &Session{User: models.User{ID: "u1", Following: []string{"u3"}}, Token: "tok"}))

	s, err := m.AddFollowing(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"u3", "u2"}, s.User.Following)

	// adding twice keeps a set
	s, err = m.AddFollowing(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"u3", "u2"}, s.User.Following)

	s, err = m.RemoveFollowing(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"u3"}, s.User.Following)

	loaded, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u3"}, loaded.User.Following)
	assert.Equal(t, "tok", loaded.Token)
}

func TestNamespacesDoNotLeak(t *testing.T) {
	ctx := context.Background()
	store := newMemStorage()
	a := NewManager(store, "browser-a", nil)
	b := NewManager(store, "browser-b", nil)
	require.NoError(t, a.Save(ctx, &Session{User: models.User{ID: "u1"}}))

	_, err := Guard(ctx, b)
	assert.ErrorIs(t, err, ErrLoggedOut)
}

func TestInspectToken(t *testing.T) {
	exp := time.Now().Add(-time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		UserID: "u1",
		Email:  "ann@x.io",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)

	info, err := InspectToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", info.UserID)
	assert.Equal(t, "ann@x.io", info.Email)
	assert.True(t, info.ExpiresAt.Equal(exp))
	assert.True(t, info.Expired(time.Now()))

	_, err = InspectToken("opaque-token")
	assert.Error(t, err)
}
