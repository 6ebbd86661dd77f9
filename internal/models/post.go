package models

import "time"

// Post represents a skill-sharing post
type Post struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Description string    `json:"description"`
	MediaURLs   []string  `json:"mediaUrls,omitempty"` // image/video urls or inlined data URIs
	CreatedAt   time.Time `json:"createdAt"`
	Likes       []Like    `json:"likes,omitempty"`
	Comments    []Comment `json:"comments,omitempty"`
}

// LikedBy reports whether the post carries a like from userID.
func (p *Post) LikedBy(userID string) bool {
	for _, l := range p.Likes {
		if l.UserID == userID {
			return true
		}
	}
	return false
}

// UpdatePostRequest defines the request body for editing a post
type UpdatePostRequest struct {
	Description string   `json:"description" validate:"notblank"`
	MediaURLs   []string `json:"mediaUrls"`
}
