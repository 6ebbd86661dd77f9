// Package session owns the persisted client session: the logged-in user
// record and the bearer token. Pages receive a *Manager instead of reading
// storage themselves.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/anonto42/skillshare/internal/models"
	"github.com/anonto42/skillshare/internal/repositories"
	"github.com/sirupsen/logrus"
)

// Storage keys, shared with the web client.
const (
	KeyUser  = "loggedUser"
	KeyToken = "token"
)

// DefaultNamespace is the namespace of the CLI's local profile.
const DefaultNamespace = "local"

// LoginRoute is where guarded pages send a visitor without a session.
const LoginRoute = "/login"

// ErrLoggedOut is returned when no usable session exists.
var ErrLoggedOut = errors.New("not logged in")

// Session is the authenticated identity used to scope requests.
type Session struct {
	User  models.User `json:"user"`
	Token string      `json:"-"`
}

// UserID returns the session user's id.
func (s *Session) UserID() string { return s.User.ID }

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	cp := *s
	cp.User.Following = append([]string(nil), s.User.Following...)
	return &cp
}

// UserFetcher is the part of the API client needed to log in.
type UserFetcher interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// Manager loads, saves and clears one namespace of client storage. The
// read-modify-write methods are serialized per Manager; writers in other
// processes are not coordinated.
type Manager struct {
	repo      repositories.StorageRepository
	namespace string
	logger    logrus.FieldLogger
	mu        sync.Mutex
}

// NewManager creates a Manager over namespace of repo.
func NewManager(repo repositories.StorageRepository, namespace string, logger logrus.FieldLogger) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{
		repo:      repo,
		namespace: namespace,
		logger:    logger.WithField("session", namespace),
	}
}

// Namespace returns the storage namespace of the manager.
func (m *Manager) Namespace() string { return m.namespace }

// Load reads the session. A missing or malformed user record yields
// ErrLoggedOut; storage failures are returned wrapped.
func (m *Manager) Load(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx)
}

func (m *Manager) load(ctx context.Context) (*Session, error) {
	raw, err := m.repo.Get(ctx, m.namespace, KeyUser)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrLoggedOut
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user.ID == "" {
		m.logger.WithError(err).Warn("Ignoring malformed session record")
		return nil, ErrLoggedOut
	}

	token, err := m.repo.Get(ctx, m.namespace, KeyToken)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("load token: %w", err)
	}
	return &Session{User: user, Token: token}, nil
}

// Save persists the user record and the token.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save(ctx, s)
}

func (m *Manager) save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.repo.Set(ctx, m.namespace, KeyUser, string(data)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := m.repo.Set(ctx, m.namespace, KeyToken, s.Token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Clear removes the user record and the token.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.repo.Delete(ctx, m.namespace, KeyUser, KeyToken); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	m.logger.Info("Session cleared")
	return nil
}

// AddFollowing adds userID to the session's following set and persists it.
func (m *Manager) AddFollowing(ctx context.Context, userID string) (*Session, error) {
	return m.update(ctx, func(u *models.User) {
		if !u.IsFollowing(userID) {
			u.Following = append(u.Following, userID)
		}
	})
}

// RemoveFollowing removes userID from the session's following set and
// persists it.
func (m *Manager) RemoveFollowing(ctx context.Context, userID string) (*Session, error) {
	return m.update(ctx, func(u *models.User) {
		kept := make([]string, 0, len(u.Following))
		for _, id := range u.Following {
			if id != userID {
				kept = append(kept, id)
			}
		}
		u.Following = kept
	})
}

func (m *Manager) update(ctx context.Context, fn func(u *models.User)) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	fn(&s.User)
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Login adopts userID with token: the user record is fetched from the
// backend and stored together with the token.
func (m *Manager) Login(ctx context.Context, users UserFetcher, userID, token string) (*Session, error) {
	user, err := users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s := &Session{User: *user, Token: token}
	if err := m.Save(ctx, s); err != nil {
		return nil, err
	}
	m.logger.WithField("user_id", user.ID).Info("Logged in")
	return s, nil
}

// Guard returns the current session or ErrLoggedOut. Storage failures are
// logged and treated as logged out, so callers only ever redirect.
func Guard(ctx context.Context, m *Manager) (*Session, error) {
	s, err := m.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrLoggedOut) {
			m.logger.WithError(err).Error("Session storage unavailable")
		}
		return nil, ErrLoggedOut
	}
	return s, nil
}
