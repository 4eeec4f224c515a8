package session

import "time"

// User is the authenticated backend identity.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Session is an authenticated backend session.
type Session struct {
	User         User      `json:"user"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
}

// UserID returns the session owner's id.
func (s *Session) UserID() string {
	return s.User.ID
}

// Expired reports whether the access token has expired at now. A zero
// expiry never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
