package models

import "time"

// Like represents a like on a post
type Like struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// LikeRequest defines the request body for liking a post
type LikeRequest struct {
	UserID string `json:"userId" validate:"required"`
}
