package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/skillshare/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted answers the n-th call of each stream (1-based) with the given
// funcs.
type scripted struct {
	mu      sync.Mutex
	listN   int
	unreadN int
	list    func(ctx context.Context, n int) ([]models.Notification, error)
	unread  func(ctx context.Context, n int) ([]models.Notification, error)
}

func (s *scripted) Notifications(ctx context.Context, _ string) ([]models.Notification, error) {
	s.mu.Lock()
	s.listN++
	n := s.listN
	s.mu.Unlock()
	return s.list(ctx, n)
}

func (s *scripted) UnreadNotifications(ctx context.Context, _ string) ([]models.Notification, error) {
	s.mu.Lock()
	s.unreadN++
	n := s.unreadN
	s.mu.Unlock()
	return s.unread(ctx, n)
}

func (s *scripted) calls() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listN, s.unreadN
}

func numbered(n int) []models.Notification {
	out := make([]models.Notification, n)
	for i := range out {
		out[i] = models.Notification{ID: fmt.Sprintf("n%d", i+1)}
	}
	return out
}

type recorder struct {
	mu     sync.Mutex
	list   []models.Notification
	unread int
	sets   int
}

func (r *recorder) sink() Sink {
	return Sink{
		Notifications: func(l []models.Notification) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.list = l
			r.sets++
		},
		UnreadCount: func(n int) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.unread = n
			r.sets++
		},
	}
}

func (r *recorder) get() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.list), r.unread, r.sets
}

func TestTickAppliesBothStreams(t *testing.T) {
	f := &scripted{
		list:   func(context.Context, int) ([]models.Notification, error) { return numbered(3), nil },
		unread: func(context.Context, int) ([]models.Notification, error) { return numbered(2), nil },
	}
	rec := &recorder{}
	p := New(f, "u1", rec.sink())

	p.Tick(context.Background())

	n, unread, _ := rec.get()
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, unread)
	assert.Equal(t, Idle, p.State())
}

func TestFailedFetchLeavesStateUntouched(t *testing.T) {
	f := &scripted{
		list:   func(context.Context, int) ([]models.Notification, error) { return nil, errors.New("boom") },
		unread: func(context.Context, int) ([]models.Notification, error) { return nil, errors.New("boom") },
	}
	rec := &recorder{}
	p := New(f, "u1", rec.sink())

	p.Tick(context.Background())

	_, _, sets := rec.get()
	assert.Zero(t, sets)
}

func TestStaleResponseIsDropped(t *testing.T) {
	hold := make(chan struct{})
	f := &scripted{
		list: func(_ context.Context, n int) ([]models.Notification, error) {
			if n == 1 {
				<-hold
				return numbered(5), nil
			}
			return numbered(1), nil
		},
		unread: func(_ context.Context, n int) ([]models.Notification, error) {
			if n == 1 {
				<-hold
				return numbered(5), nil
			}
			return numbered(1), nil
		},
	}
	rec := &recorder{}
	p := New(f, "u1", rec.sink())

	done := make(chan struct{})
	go func() {
		p.Tick(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool {
		l, u := f.calls()
		return l == 1 && u == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, Fetching, p.State())

	// a later request answers first
	p.Tick(context.Background())
	close(hold)
	<-done

	n, unread, _ := rec.get()
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, unread)
	assert.Equal(t, Idle, p.State())
}

func TestOverrideDropsInFlightResponses(t *testing.T) {
	hold := make(chan struct{})
	f := &scripted{
		list: func(context.Context, int) ([]models.Notification, error) {
			<-hold
			return numbered(4), nil
		},
		unread: func(context.Context, int) ([]models.Notification, error) {
			<-hold
			return numbered(4), nil
		},
	}
	rec := &recorder{}
	p := New(f, "u1", rec.sink())

	done := make(chan struct{})
	go func() {
		p.Tick(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool {
		l, u := f.calls()
		return l == 1 && u == 1
	}, time.Second, time.Millisecond)

	p.Override(func() { rec.sink().UnreadCount(0) })
	close(hold)
	<-done

	n, unread, sets := rec.get()
	assert.Zero(t, n)
	assert.Zero(t, unread)
	assert.Equal(t, 1, sets)
}

func TestStartPollsUntilStop(t *testing.T) {
	f := &scripted{
		list:   func(context.Context, int) ([]models.Notification, error) { return numbered(1), nil },
		unread: func(context.Context, int) ([]models.Notification, error) { return nil, nil },
	}
	rec := &recorder{}
	p := New(f, "u1", rec.sink(), WithInterval(5*time.Millisecond))

	p.Start(context.Background())
	p.Start(context.Background())
	assert.True(t, p.Running())
	require.Eventually(t, func() bool {
		l, _ := f.calls()
		return l >= 3
	}, time.Second, time.Millisecond)

	p.Stop()
	assert.False(t, p.Running())
	before, _ := f.calls()
	time.Sleep(30 * time.Millisecond)
	after, _ := f.calls()
	assert.Equal(t, before, after)

	p.Stop()
}

func TestResponsesAfterStopAreDropped(t *testing.T) {
	f := &scripted{
		list: func(ctx context.Context, _ int) ([]models.Notification, error) {
			<-ctx.Done()
			return numbered(2), nil
		},
		unread: func(ctx context.Context, _ int) ([]models.Notification, error) {
			<-ctx.Done()
			return numbered(2), nil
		},
	}
	rec := &recorder{}
	p := New(f, "u1", rec.sink(), WithInterval(time.Hour))

	p.Start(context.Background())
	require.Eventually(t, func() bool {
		l, u := f.calls()
		return l == 1 && u == 1
	}, time.Second, time.Millisecond)
	p.Stop()

	_, _, sets := rec.get()
	assert.Zero(t, sets)
}

func TestSequencerCommitOrder(t *testing.T) {
	var s Sequencer
	first, second := s.Begin(), s.Begin()

	applied := []uint64{}
	assert.True(t, s.Commit(second, func() { applied = append(applied, second) }))
	assert.False(t, s.Commit(first, func() { applied = append(applied, first) }))

	third := s.Begin()
	s.Override(func() {})
	assert.False(t, s.Commit(third, func() { applied = append(applied, third) }))
	assert.Equal(t, []uint64{second}, applied)
}

func TestTickAfterStopDoesNotReachSink(t *testing.T) {
	hold := make(chan struct{})
	f := &scripted{
		list: func(_ context.Context, n int) ([]models.Notification, error) {
			if n == 2 {
				<-hold
			}
			return numbered(2), nil
		},
		unread: func(_ context.Context, n int) ([]models.Notification, error) {
			if n == 2 {
				<-hold
			}
			return numbered(2), nil
		},
	}
	rec := &recorder{}
	p := New(f, "u1", rec.sink(), WithInterval(time.Hour))

	p.Start(context.Background())
	require.Eventually(t, func() bool {
		_, _, sets := rec.get()
		return sets == 2
	}, time.Second, time.Millisecond)

	// a direct tick on a context the poller does not own, racing Stop
	done := make(chan struct{})
	go func() {
		p.Tick(context.Background())
		close(done)
	}()
	require.Eventually(t, func() bool {
		l, u := f.calls()
		return l == 2 && u == 2
	}, time.Second, time.Millisecond)

	p.Stop()
	close(hold)
	<-done

	p.Tick(context.Background())

	_, _, sets := rec.get()
	assert.Equal(t, 2, sets)
}
