package models

// User is the profile record returned by the backend and cached in the session.
type User struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	ProfileImage string   `json:"profileImage,omitempty"`
	Following    []string `json:"following,omitempty"` // ids of followed users
}

// IsFollowing reports whether userID is in the user's following set.
func (u *User) IsFollowing(userID string) bool {
	for _, id := range u.Following {
		if id == userID {
			return true
		}
	}
	return false
}

// UserRow is a user as listed on the dashboard, annotated with the session's
// follow state.
type UserRow struct {
	User
	IsFollowing bool `json:"isFollowing"`
	Pending     bool `json:"pending"` // a follow/unfollow request is in flight
}

// LoginRequest adopts an existing identity and bearer token.
type LoginRequest struct {
	UserID string `json:"userId" form:"userId" validate:"notblank"`
	Token  string `json:"token" form:"token" validate:"notblank"`
}
