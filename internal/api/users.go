package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/anonto42/skillshare/internal/models"
)

// GetUser fetches a user by id. The backend serves this one without a
// bearer token.
func (c *Client) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := c.do(ctx, call{
		op:     "fetch user data",
		method: http.MethodGet,
		path:   "/user/" + seg(userID),
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers lists every user profile.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := c.do(ctx, call{
		op:     "fetch users",
		method: http.MethodGet,
		path:   "/profile/all",
		auth:   true,
	}, &users)
	return users, err
}

// SearchUsers finds users by email.
func (c *Client) SearchUsers(ctx context.Context, email string) ([]models.User, error) {
	var users []models.User
	err := c.do(ctx, call{
		op:     "search users",
		method: http.MethodGet,
		path:   "/profile/search",
		query:  url.Values{"email": {email}},
		auth:   true,
	}, &users)
	return users, err
}

// Follow makes userID follow followeeID and returns the backend's message.
func (c *Client) Follow(ctx context.Context, userID, followeeID string) (string, error) {
	var msg string
	err := c.do(ctx, call{
		op:     "follow user",
		method: http.MethodPost,
		path:   "/profile/follow/" + seg(userID) + "/" + seg(followeeID),
		body:   struct{}{},
		auth:   true,
	}, &msg)
	return msg, err
}

// Unfollow makes userID stop following followeeID and returns the backend's message.
func (c *Client) Unfollow(ctx context.Context, userID, followeeID string) (string, error) {
	var msg string
	err := c.do(ctx, call{
		op:     "unfollow user",
		method: http.MethodPost,
		path:   "/profile/unfollow/" + seg(userID) + "/" + seg(followeeID),
		body:   struct{}{},
		auth:   true,
	}, &msg)
	return msg, err
}
