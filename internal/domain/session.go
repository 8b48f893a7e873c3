package domain

import "time"

// Session represents an authenticated portal session. Admin is the grant
// attached by the admin gate; it lives and dies with the session record
// and is never persisted across sign-ins.
type Session struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Admin     bool      `json:"admin"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its lifetime.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
