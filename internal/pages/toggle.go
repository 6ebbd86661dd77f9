package pages

import (
	"context"
	"errors"
	"sync"

	"github.com/anonto42/skillshare/internal/metrics"
)

// ErrPending rejects a toggle of an entity whose previous toggle has not
// settled yet.
var ErrPending = errors.New("A previous change to this item is still in progress")

// Toggle runs optimistic membership changes (follow, like): the change is
// applied locally, sent, and reverted if the request fails. At most one
// change per key is in flight.
type Toggle struct {
	kind    string
	metrics *metrics.Metrics

	mu      sync.Mutex
	pending map[string]bool
}

// NewToggle creates a Toggle; kind labels its metrics.
func NewToggle(kind string, m *metrics.Metrics) *Toggle {
	return &Toggle{kind: kind, metrics: m, pending: map[string]bool{}}
}

// Pending reports whether a change of key is in flight.
func (t *Toggle) Pending(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending[key]
}

// Run applies, sends and, on failure, reverts one change of key. apply and
// revert must lock whatever state they touch.
func (t *Toggle) Run(ctx context.Context, key string, apply, revert func(), send func(context.Context) error) error {
	t.mu.Lock()
	if t.pending[key] {
		t.mu.Unlock()
		t.metrics.Toggle(t.kind, "rejected")
		return ErrPending
	}
	t.pending[key] = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.pending, key)
		t.mu.Unlock()
	}()

	apply()
	if err := send(ctx); err != nil {
		revert()
		t.metrics.Toggle(t.kind, "reverted")
		return err
	}
	t.metrics.Toggle(t.kind, "applied")
	return nil
}
