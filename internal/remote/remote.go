// Package remote defines the contract with the remote data service: the
// table-oriented CRUD and auth capabilities the client stores are built on.
//
// The backend itself is an external collaborator. This package only names
// what the stores need from it — equality-filtered, timestamp-ordered,
// range-paginated queries over the items and shared_items tables, scoped
// mutations, and the session lifecycle. The httpapi subpackage implements
// the contract over stashd's HTTP API; tests implement it in memory.
package remote

import (
	"context"
	"time"
)

// Page is a range-pagination window.
type Page struct {
	Offset int
	Limit  int
}

// ItemRow is the wire/storage representation of a row in the items table.
// Field names follow the backend's snake_case schema.
type ItemRow struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	URL       *string   `json:"url"`
	Content   *string   `json:"content"`
	ImageURL  *string   `json:"image_url"`
	IsSaved   bool      `json:"is_saved"`
	IsShared  bool      `json:"is_shared"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShareRow is a shared_items row joined with its target item and the
// sharer's display name.
type ShareRow struct {
	ID           string    `json:"id"`
	ItemID       string    `json:"item_id"`
	SharedBy     string    `json:"shared_by"`
	SharedByName string    `json:"shared_by_name"`
	SharedWith   string    `json:"shared_with"`
	SharedAt     time.Time `json:"shared_at"`
	Item         ItemRow   `json:"item"`
}

// ItemUpdate is a partial update of an items row. Nil fields are not
// touched. UpdatedAt is always stamped by the caller.
type ItemUpdate struct {
	Title     *string   `json:"title,omitempty"`
	URL       *string   `json:"url,omitempty"`
	Content   *string   `json:"content,omitempty"`
	ImageURL  *string   `json:"image_url,omitempty"`
	IsSaved   *bool     `json:"is_saved,omitempty"`
	IsShared  *bool     `json:"is_shared,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DataService is the table-style CRUD surface of the backend.
//
// All mutations are scoped: UpdateItem and DeleteItem only affect rows owned
// by userID, DeleteShares only relations created by sharerID. A scoped call
// that matches nothing is a not-found error, never someone else's row.
type DataService interface {
	// ListItems returns items owned by userID, newest first.
	ListItems(ctx context.Context, userID string, page Page) ([]ItemRow, error)

	// ListSharedWith returns share relations pointing at userID joined with
	// their target items, most recently shared first.
	ListSharedWith(ctx context.Context, userID string, page Page) ([]ShareRow, error)

	// InsertItem inserts a row and returns it as stored, with the
	// backend-assigned id and created_at.
	InsertItem(ctx context.Context, row ItemRow) (ItemRow, error)

	// UpdateItem applies a partial update to the row (id, userID).
	UpdateItem(ctx context.Context, id, userID string, upd ItemUpdate) error

	// DeleteItem removes the row (id, userID).
	DeleteItem(ctx context.Context, id, userID string) error

	// InsertShare records that sharerID shared itemID with recipientID.
	InsertShare(ctx context.Context, itemID, sharerID, recipientID string) error

	// DeleteShares removes all share relations for itemID created by
	// sharerID. Removing zero relations is not an error.
	DeleteShares(ctx context.Context, itemID, sharerID string) error
}

// Session is the backend-issued session, consumed by the session store.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	UserName     string    `json:"user_name"`
}

// AuthService is the auth capability of the backend. It is consumed, not
// reimplemented, by the client stores.
type AuthService interface {
	SignUp(ctx context.Context, email, password, name string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	Session(ctx context.Context) (*Session, error)
}
