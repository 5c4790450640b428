// Package model defines the data structures used throughout the application.
package model

import "time"

// Session is an authenticated session as issued by the backend.
//
// AccessToken authorizes API calls until ExpiresAt; RefreshToken is
// exchanged for a fresh pair when the access token runs out. The session
// store owns the current session and hands the User out to anything that
// needs a resolved identity.
type Session struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is past its expiry at time now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
