// Package repository declares the storage interfaces for stashd. The sqlite
// subpackage implements them; main wires a concrete implementation into the
// handlers, which only ever see these interfaces.
package repository

import (
	"context"

	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/remote"
)

// ListOptions is limit/offset pagination for list queries. A zero Limit
// means "no limit".
type ListOptions struct {
	Limit  int
	Offset int
}

// ItemRepository stores items. Rows use the wire representation from the
// remote package — the storage schema and the API schema are the same
// table-oriented shape, so there is nothing to translate between them.
type ItemRepository interface {
	// Insert stores a new row, assigning ID, CreatedAt and UpdatedAt, and
	// returns the row as stored.
	Insert(ctx context.Context, row remote.ItemRow) (remote.ItemRow, error)

	// ListByOwner returns items owned by userID, newest first.
	ListByOwner(ctx context.Context, userID string, opts ListOptions) ([]remote.ItemRow, error)

	// GetByID returns the row with the given id regardless of owner.
	GetByID(ctx context.Context, id string) (remote.ItemRow, error)

	// UpdatePartial applies the non-nil fields of upd to the row
	// (id, userID). A row owned by someone else is not found.
	UpdatePartial(ctx context.Context, id, userID string, upd remote.ItemUpdate) error

	// Delete removes the row (id, userID).
	Delete(ctx context.Context, id, userID string) error
}

// ShareRepository stores share relations.
type ShareRepository interface {
	// Insert records a share of itemID by sharerID with recipientID,
	// assigning ID and SharedAt.
	Insert(ctx context.Context, itemID, sharerID, recipientID string) (remote.ShareRow, error)

	// ListForRecipient returns the relations shared with userID, most
	// recent first, each joined with its target item and the sharer's
	// display name.
	ListForRecipient(ctx context.Context, userID string, opts ListOptions) ([]remote.ShareRow, error)

	// DeleteByItemAndSharer removes every relation for itemID created by
	// sharerID. Matching nothing is not an error.
	DeleteByItemAndSharer(ctx context.Context, itemID, sharerID string) error
}

// AccountRepository stores user accounts.
type AccountRepository interface {
	// Create stores a new account, assigning ID and timestamps. An email
	// already in use is a conflict.
	Create(ctx context.Context, account *model.Account) error

	GetByID(ctx context.Context, id string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)

	// UpsertByGitHubID inserts the account on first GitHub sign-in and
	// refreshes name/email on subsequent ones, keeping the internal ID.
	UpsertByGitHubID(ctx context.Context, account *model.Account) error
}
