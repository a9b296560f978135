package models

import "time"

// Session is one signed-in device of a user. The refresh token rotates
// on every refresh and the expiry moves with it.
type Session struct {
	ID           string
	UserID       string
	Fingerprint  string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Rotate replaces the refresh token and extends the session by ttl.
func (s *Session) Rotate(refreshToken string, now time.Time, ttl time.Duration) {
	s.RefreshToken = refreshToken
	s.ExpiresAt = now.Add(ttl)
	s.UpdatedAt = now
}
