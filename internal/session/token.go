package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TokenClaims are the claims the backend puts in its bearer tokens.
type TokenClaims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenInfo describes a bearer token for display.
type TokenInfo struct {
	Subject   string    `json:"subject,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"` // zero when the token carries no expiry
}

// Expired reports whether the token's expiry is before now.
func (t *TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// InspectToken decodes the claims of a JWT bearer token without verifying
// its signature. The client holds no key; the result is informational only.
func InspectToken(token string) (*TokenInfo, error) {
	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	info := &TokenInfo{Subject: claims.Subject, UserID: claims.UserID, Email: claims.Email}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}
