package pages

import (
	"context"
	"sync"
	"time"

	"github.com/anonto42/skillshare/internal/repositories"
	"github.com/anonto42/skillshare/internal/session"
)

// DefaultIdleTTL is how long a registry keeps the pages of a browser session
// that sends no requests.
const DefaultIdleTTL = 30 * time.Minute

// Page names a page of a Set.
type Page string

const (
	PageDashboard     Page = "dashboard"
	PageProfile       Page = "profile"
	PageLearningPlans Page = "learning-plan"
)

// Set is the pages of one client session.
type Set struct {
	Sessions      *session.Manager
	Dashboard     *Dashboard
	Profile       *Profile
	LearningPlans *LearningPlans

	mu      sync.Mutex
	current Page
}

// NewSet creates the pages of one client session stored under namespace.
func NewSet(deps Deps, repo repositories.StorageRepository, namespace string) *Set {
	deps = deps.withDefaults()
	deps.Sessions = session.NewManager(repo, namespace, deps.Logger)
	return &Set{
		Sessions:      deps.Sessions,
		Dashboard:     NewDashboard(deps),
		Profile:       NewProfile(deps),
		LearningPlans: NewLearningPlans(deps),
	}
}

// Navigate records page as the one being shown. Leaving the dashboard
// unmounts it, which stops notification polling.
func (s *Set) Navigate(page Page) {
	s.mu.Lock()
	s.current = page
	s.mu.Unlock()
	if page != PageDashboard {
		s.Dashboard.Unmount()
	}
}

// Current returns the page last passed to Navigate.
func (s *Set) Current() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithIdleTTL overrides DefaultIdleTTL.
func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.ttl = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

type entry struct {
	set  *Set
	seen time.Time
}

// Registry keeps the page sets of the page view server, one per browser
// session id. Sets idle for longer than the TTL are unmounted and forgotten
// by Sweep; their stored session survives, so a later Get restores them.
type Registry struct {
	deps Deps
	repo repositories.StorageRepository
	ttl  time.Duration
	now  func() time.Time

	mu   sync.Mutex
	sets map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry(deps Deps, repo repositories.StorageRepository, opts ...RegistryOption) *Registry {
	r := &Registry{
		deps: deps.withDefaults(),
		repo: repo,
		ttl:  DefaultIdleTTL,
		now:  time.Now,
		sets: map[string]*entry{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IdleTTL returns the idle time after which Sweep drops a set.
func (r *Registry) IdleTTL() time.Duration { return r.ttl }

// Get returns the page set of sid, creating it on first use.
func (r *Registry) Get(sid string) *Set {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sets[sid]
	if !ok {
		e = &entry{set: NewSet(r.deps, r.repo, sid)}
		r.sets[sid] = e
	}
	e.seen = r.now()
	return e.set
}

// Lookup returns the page set of sid if one is live. It never creates one.
func (r *Registry) Lookup(sid string) (*Set, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sets[sid]
	if !ok {
		return nil, false
	}
	e.seen = r.now()
	return e.set, true
}

// Session returns the logged-in session of sid without creating a page set.
func (r *Registry) Session(ctx context.Context, sid string) (*session.Session, error) {
	if sid == "" {
		return nil, session.ErrLoggedOut
	}
	if set, ok := r.Lookup(sid); ok {
		return session.Guard(ctx, set.Sessions)
	}
	return session.Guard(ctx, session.NewManager(r.repo, sid, r.deps.Logger))
}

// Len returns the number of live page sets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sets)
}

// Drop unmounts and forgets the page set of sid.
func (r *Registry) Drop(sid string) {
	r.mu.Lock()
	e, ok := r.sets[sid]
	delete(r.sets, sid)
	r.mu.Unlock()
	if ok {
		e.set.Dashboard.Unmount()
	}
}

// Sweep drops every set not used for longer than the idle TTL and returns
// how many it dropped.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	var idle []*Set
	for sid, e := range r.sets {
		if e.seen.Before(cutoff) {
			idle = append(idle, e.set)
			delete(r.sets, sid)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.Dashboard.Unmount()
	}
	if len(idle) > 0 {
		r.deps.Logger.WithField("count", len(idle)).Debug("Dropped idle page sets")
	}
	return len(idle)
}

// Run sweeps idle sets every half TTL until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close unmounts every page set.
func (r *Registry) Close() {
	r.mu.Lock()
	sets := r.sets
	r.sets = map[string]*entry{}
	r.mu.Unlock()
	for _, e := range sets {
		e.set.Dashboard.Unmount()
	}
}
