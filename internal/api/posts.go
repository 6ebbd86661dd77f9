package api

import (
	"context"
	"net/http"

	"github.com/anonto42/skillshare/internal/models"
)

// PostsByUser lists the posts of one user.
func (c *Client) PostsByUser(ctx context.Context, userID string) ([]models.Post, error) {
	var posts []models.Post
	err := c.do(ctx, call{
		op:     "load posts",
		method: http.MethodGet,
		path:   "/posts/user/" + seg(userID),
	}, &posts)
	return posts, err
}

// UpdatePost replaces a post's description and media and returns the stored post.
func (c *Client) UpdatePost(ctx context.Context, postID string, req models.UpdatePostRequest) (*models.Post, error) {
	var post models.Post
	err := c.do(ctx, call{
		op:     "update post",
		method: http.MethodPut,
		path:   "/posts/" + seg(postID),
		body:   req,
	}, &post)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost deletes a post.
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	return c.do(ctx, call{
		op:     "delete post",
		method: http.MethodDelete,
		path:   "/posts/" + seg(postID),
	}, nil)
}

// AddLike likes a post on behalf of userID.
func (c *Client) AddLike(ctx context.Context, postID, userID string) error {
	return c.do(ctx, call{
		op:     "like post",
		method: http.MethodPost,
		path:   "/posts/" + seg(postID) + "/likes",
		body:   models.LikeRequest{UserID: userID},
	}, nil)
}

// RemoveLike removes userID's like from a post.
func (c *Client) RemoveLike(ctx context.Context, postID, userID string) error {
	return c.do(ctx, call{
		op:     "remove like",
		method: http.MethodDelete,
		path:   "/posts/" + seg(postID) + "/likes/" + seg(userID),
	}, nil)
}
