package pages

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/anonto42/skillshare/internal/api"
	"github.com/anonto42/skillshare/internal/models"
	"github.com/anonto42/skillshare/internal/poller"
	"github.com/anonto42/skillshare/internal/session"
	"golang.org/x/sync/errgroup"
)

// Dashboard lists other users with their follow state and the session
// user's notifications, refreshed by a poller while mounted.
type Dashboard struct {
	deps   Deps
	follow *Toggle

	mu            sync.Mutex
	sess          *session.Session
	api           *api.Client
	users         *List[models.UserRow]
	query         string
	notifications *List[models.Notification]
	unread        int
	banner        string
	notice        string
	poller        *poller.Poller
}

// DashboardView is a snapshot of the dashboard.
type DashboardView struct {
	User          models.User           `json:"user"`
	Query         string                `json:"query"`
	Users         []models.UserRow      `json:"users"`
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unreadCount"`
	Polling       string                `json:"polling"`
	Banner        string                `json:"banner,omitempty"`
	Notice        string                `json:"notice,omitempty"`
}

// MarkAllResult lists the notifications MarkAllRead flipped and the ones
// whose write failed.
type MarkAllResult struct {
	Marked []string `json:"marked"`
	Failed []string `json:"failed"`
}

// NewDashboard creates an unmounted dashboard.
func NewDashboard(deps Deps) *Dashboard {
	deps = deps.withDefaults()
	return &Dashboard{
		deps:          deps,
		follow:        NewToggle("follow", deps.Metrics),
		users:         NewList(func(u models.UserRow) string { return u.ID }),
		notifications: NewList(func(n models.Notification) string { return n.ID }),
	}
}

// Mount guards the page, loads the user list and starts notification
// polling. The poller outlives ctx; it runs until Unmount or Logout.
func (d *Dashboard) Mount(ctx context.Context) error {
	sess, err := session.Guard(ctx, d.deps.Sessions)
	if err != nil {
		return err
	}
	client := d.deps.API.WithToken(sess.Token)

	d.mu.Lock()
	d.sess = sess
	d.api = client
	if d.poller == nil {
		d.poller = poller.New(client, sess.UserID(), poller.Sink{
			Notifications: d.setNotifications,
			UnreadCount:   d.setUnread,
		},
			poller.WithInterval(d.deps.PollInterval),
			poller.WithLogger(d.deps.Logger),
			poller.WithMetrics(d.deps.Metrics),
		)
	}
	p := d.poller
	d.mu.Unlock()

	if err := d.loadUsers(ctx, client, sess, ""); err != nil {
		d.mu.Lock()
		d.banner = err.Error()
		d.mu.Unlock()
	}
	p.Start(context.WithoutCancel(ctx))
	return nil
}

// Unmount stops notification polling.
func (d *Dashboard) Unmount() {
	d.mu.Lock()
	p := d.poller
	d.poller = nil
	d.mu.Unlock()
	if p != nil {
		p.Stop()
	}
}

// Refresh polls notifications once, outside the regular schedule.
func (d *Dashboard) Refresh(ctx context.Context) error {
	d.mu.Lock()
	p := d.poller
	d.mu.Unlock()
	if p == nil {
		return session.ErrLoggedOut
	}
	p.Tick(ctx)
	return nil
}

// Logout stops polling, clears the session and forgets all page state.
func (d *Dashboard) Logout(ctx context.Context) error {
	d.Unmount()
	if err := d.deps.Sessions.Clear(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sess = nil
	d.api = nil
	d.users.Replace(nil)
	d.notifications.Replace(nil)
	d.unread = 0
	d.query, d.banner, d.notice = "", "", ""
	return nil
}

// Mounted reports whether Mount succeeded since the last logout.
func (d *Dashboard) Mounted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sess != nil
}

func (d *Dashboard) current() (*session.Session, *api.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sess == nil {
		return nil, nil, session.ErrLoggedOut
	}
	return d.sess.Clone(), d.api, nil
}

// Search lists users whose email matches query; a blank query lists all
// users.
func (d *Dashboard) Search(ctx context.Context, query string) error {
	sess, client, err := d.current()
	if err != nil {
		return err
	}
	return d.loadUsers(ctx, client, sess, query)
}

func (d *Dashboard) loadUsers(ctx context.Context, client *api.Client, sess *session.Session, query string) error {
	query = strings.TrimSpace(query)
	var (
		users []models.User
		err   error
	)
	if query == "" {
		users, err = client.ListUsers(ctx)
		if err != nil {
			return newAlert("Failed to fetch users", err)
		}
	} else {
		users, err = client.SearchUsers(ctx, query)
		if err != nil {
			return newAlert("Failed to search users", err)
		}
	}

	rows := make([]models.UserRow, 0, len(users))
	for _, u := range users {
		if u.ID == sess.UserID() {
			continue
		}
		rows = append(rows, models.UserRow{User: u, IsFollowing: sess.User.IsFollowing(u.ID)})
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.users.Replace(rows)
	d.query = query
	d.banner = ""
	return nil
}

// Follow makes the session user follow userID.
func (d *Dashboard) Follow(ctx context.Context, userID string) error {
	return d.toggleFollow(ctx, userID, true)
}

// Unfollow makes the session user stop following userID.
func (d *Dashboard) Unfollow(ctx context.Context, userID string) error {
	return d.toggleFollow(ctx, userID, false)
}

func (d *Dashboard) toggleFollow(ctx context.Context, userID string, follow bool) error {
	sess, client, err := d.current()
	if err != nil {
		return err
	}

	var prev models.UserRow
	apply := func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.users.Update(userID, func(r *models.UserRow) {
			prev = *r
			r.IsFollowing = follow
			r.Pending = true
		})
	}
	revert := func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.users.Update(userID, func(r *models.UserRow) {
			r.IsFollowing = prev.IsFollowing
			r.Pending = prev.Pending
		})
	}
	send := func(ctx context.Context) error {
		var (
			msg     string
			err     error
			updated *session.Session
		)
		if follow {
			msg, err = client.Follow(ctx, sess.UserID(), userID)
		} else {
			msg, err = client.Unfollow(ctx, sess.UserID(), userID)
		}
		if err != nil {
			return err
		}

		if follow {
			updated, err = d.deps.Sessions.AddFollowing(ctx, userID)
		} else {
			updated, err = d.deps.Sessions.RemoveFollowing(ctx, userID)
		}
		if err != nil {
			d.deps.Logger.WithError(err).WithField("user_id", userID).Error("Failed to persist following set")
		}

		d.mu.Lock()
		defer d.mu.Unlock()
		if updated != nil && d.sess != nil {
			d.sess = updated
		}
		d.users.Update(userID, func(r *models.UserRow) { r.Pending = false })
		d.notice = msg
		return nil
	}

	err = d.follow.Run(ctx, userID, apply, revert, send)
	switch {
	case err == nil, errors.Is(err, ErrPending):
		return err
	case follow:
		return serverAlert("Failed to follow user", err)
	default:
		return serverAlert("Failed to unfollow user", err)
	}
}

func (d *Dashboard) setNotifications(list []models.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifications.Replace(list)
}

func (d *Dashboard) setUnread(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unread = n
}

// override applies a local notification change, discarding poll responses
// already in flight.
func (d *Dashboard) override(fn func()) {
	d.mu.Lock()
	p := d.poller
	d.mu.Unlock()
	locked := func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		fn()
	}
	if p == nil {
		locked()
		return
	}
	p.Override(locked)
}

// markLocal flips ids to read and lowers the unread counter by the number
// of items that were unread, never below zero.
func (d *Dashboard) markLocal(ids ...string) {
	for _, id := range ids {
		d.notifications.Update(id, func(n *models.Notification) {
			if !n.Read {
				n.Read = true
				if d.unread > 0 {
					d.unread--
				}
			}
		})
	}
}

// MarkRead marks one notification as read.
func (d *Dashboard) MarkRead(ctx context.Context, id string) error {
	_, client, err := d.current()
	if err != nil {
		return err
	}
	if err := client.MarkRead(ctx, id); err != nil {
		return newAlert("Failed to mark notification as read", err)
	}
	d.override(func() { d.markLocal(id) })
	return nil
}

// MarkAllRead marks every unread notification as read with one request per
// item. Items whose request failed stay unread and are reported.
func (d *Dashboard) MarkAllRead(ctx context.Context) (MarkAllResult, error) {
	_, client, err := d.current()
	if err != nil {
		return MarkAllResult{}, err
	}

	d.mu.Lock()
	var ids []string
	for _, n := range d.notifications.Items() {
		if !n.Read {
			ids = append(ids, n.ID)
		}
	}
	d.mu.Unlock()

	ok := make([]bool, len(ids))
	var firstErr error
	var errOnce sync.Once
	var g errgroup.Group
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := client.MarkRead(ctx, id); err != nil {
				errOnce.Do(func() { firstErr = err })
				return nil
			}
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	res := MarkAllResult{Marked: []string{}, Failed: []string{}}
	for i, id := range ids {
		if ok[i] {
			res.Marked = append(res.Marked, id)
		} else {
			res.Failed = append(res.Failed, id)
		}
	}
	d.override(func() { d.markLocal(res.Marked...) })

	if len(res.Failed) > 0 {
		return res, newAlert("Failed to mark all notifications as read", firstErr)
	}
	return res, nil
}

// View returns a snapshot of the dashboard.
func (d *Dashboard) View() DashboardView {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := DashboardView{
		Query:         d.query,
		Users:         d.users.Items(),
		Notifications: d.notifications.Items(),
		UnreadCount:   d.unread,
		Polling:       "stopped",
		Banner:        d.banner,
		Notice:        d.notice,
	}
	if d.sess != nil {
		v.User = d.sess.Clone().User
	}
	if d.poller != nil && d.poller.Running() {
		v.Polling = d.poller.State().String()
	}
	return v
}
