package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/anonto42/skillshare/internal/models"
)

// Notifications lists every notification of userID.
func (c *Client) Notifications(ctx context.Context, userID string) ([]models.Notification, error) {
	var notifs []models.Notification
	err := c.do(ctx, call{
		op:     "fetch notifications",
		method: http.MethodGet,
		path:   "/notifications",
		query:  url.Values{"userId": {userID}},
		auth:   true,
	}, &notifs)
	return notifs, err
}

// UnreadNotifications lists the unread notifications of userID. The unread
// counter is the length of this list.
func (c *Client) UnreadNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	var notifs []models.Notification
	err := c.do(ctx, call{
		op:     "fetch unread count",
		method: http.MethodGet,
		path:   "/notifications/unread",
		query:  url.Values{"userId": {userID}},
		auth:   true,
	}, &notifs)
	return notifs, err
}

// MarkRead marks one notification read.
func (c *Client) MarkRead(ctx context.Context, notificationID string) error {
	return c.do(ctx, call{
		op:     "mark notification as read",
		method: http.MethodPut,
		path:   "/notifications/" + seg(notificationID) + "/read",
		body:   struct{}{},
		auth:   true,
	}, nil)
}
