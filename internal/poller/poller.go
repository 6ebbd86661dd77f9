// Package poller refreshes a user's notifications and unread count on a
// fixed interval while a page is mounted.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anonto42/skillshare/internal/metrics"
	"github.com/anonto42/skillshare/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultInterval is the dashboard refresh period.
const DefaultInterval = 10 * time.Second

// State of the poller.
type State int32

const (
	Idle State = iota
	Fetching
)

func (s State) String() string {
	if s == Fetching {
		return "fetching"
	}
	return "idle"
}

// Fetcher is the part of the API client the poller uses.
type Fetcher interface {
	Notifications(ctx context.Context, userID string) ([]models.Notification, error)
	UnreadNotifications(ctx context.Context, userID string) ([]models.Notification, error)
}

// Sink receives fresh data. Calls for one stream never overlap.
type Sink struct {
	Notifications func([]models.Notification)
	UnreadCount   func(int)
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Poller) { p.logger = l }
}

// WithMetrics records ticks and dropped responses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

// Poller issues the list and unread requests on every tick. The two requests
// are independent; each stream is guarded by its own Sequencer.
type Poller struct {
	fetch    Fetcher
	userID   string
	sink     Sink
	interval time.Duration
	logger   logrus.FieldLogger
	metrics  *metrics.Metrics

	list   Sequencer
	unread Sequencer

	inflight atomic.Int32
	stopped  atomic.Bool // set by Stop with both sequencers locked

	mu     sync.Mutex
	cancel context.CancelFunc
	ticks  sync.WaitGroup
	done   chan struct{}
}

// New creates a stopped poller for userID.
func New(fetch Fetcher, userID string, sink Sink, opts ...Option) *Poller {
	p := &Poller{
		fetch:    fetch,
		userID:   userID,
		sink:     sink,
		interval: DefaultInterval,
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithField("user_id", userID)
	return p
}

// Interval returns the tick period.
func (p *Poller) Interval() time.Duration { return p.interval }

// State reports Fetching while any tick has requests in flight.
func (p *Poller) State() State {
	if p.inflight.Load() > 0 {
		return Fetching
	}
	return Idle
}

// Running reports whether Start was called without a matching Stop.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Start fetches immediately and then on every interval until Stop or until
// ctx is done. Starting a running poller does nothing.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	p.stopped.Store(false)
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
	p.logger.WithField("interval", p.interval).Debug("Notification polling started")
}

// Stop cancels the timer and every in-flight tick and waits for them to
// return. Responses that arrive afterwards are dropped, including those of
// ticks run directly through Tick.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	p.Override(func() { p.stopped.Store(true) })
	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.logger.Debug("Notification polling stopped")
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer p.ticks.Wait()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.spawn(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.spawn(ctx)
		}
	}
}

// spawn runs a tick without waiting for the previous one; a slow backend
// does not delay the schedule.
func (p *Poller) spawn(ctx context.Context) {
	p.ticks.Add(1)
	go func() {
		defer p.ticks.Done()
		p.Tick(ctx)
	}()
}

// Tick fetches both streams once, concurrently, and returns when both have
// settled. Failures are logged and leave the sink untouched.
func (p *Poller) Tick(ctx context.Context) {
	p.metrics.Tick()
	p.inflight.Add(1)
	defer p.inflight.Add(-1)

	var g errgroup.Group
	g.Go(func() error {
		token := p.list.Begin()
		notifs, err := p.fetch.Notifications(ctx, p.userID)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.WithError(err).Warn("Error fetching notifications")
			}
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		p.commit(&p.list, token, "notifications", func() { p.sink.Notifications(notifs) })
		return nil
	})
	g.Go(func() error {
		token := p.unread.Begin()
		unread, err := p.fetch.UnreadNotifications(ctx, p.userID)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.WithError(err).Warn("Error fetching unread count")
			}
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		p.commit(&p.unread, token, "unread", func() { p.sink.UnreadCount(len(unread)) })
		return nil
	})
	_ = g.Wait()
}

// commit hands a response to the sink unless a newer one was applied or
// the poller was stopped.
func (p *Poller) commit(seq *Sequencer, token uint64, stream string, apply func()) {
	ok := seq.Commit(token, func() {
		if !p.stopped.Load() {
			apply()
		}
	})
	if !ok {
		p.metrics.Stale(stream)
	}
}

// Override applies a local change to the polled state and drops every poll
// response whose request started before it.
func (p *Poller) Override(apply func()) {
	p.list.Override(func() {
		p.unread.Override(apply)
	})
}
