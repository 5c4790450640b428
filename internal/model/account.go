// Package model defines the data structures used throughout the application.
package model

import "time"

// Account is a registered user account on the backend.
//
// Accounts sign in with email/password (bcrypt hash stored in PasswordHash)
// or through GitHub OAuth, in which case GitHubID carries GitHub's numeric
// user ID and PasswordHash is empty. The UNIQUE constraints on email and
// github_id each map one external identity to exactly one account.
//
// This is the server-side view of a user; clients only ever see the trimmed
// User projection (id + name).
type Account struct {
	ID           string    `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"`
	Name         string    `json:"name"      db:"name"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	GitHubID     int64     `json:"-"         db:"github_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// User returns the public projection of the account.
func (a *Account) User() User {
	return User{ID: a.ID, Name: a.Name}
}
