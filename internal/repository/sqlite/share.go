package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/stash/internal/apperror"
	"github.com/sakif/stash/internal/remote"
	"github.com/sakif/stash/internal/repository"
)

// compile-time check that *ShareRepo implements repository.ShareRepository
var _ repository.ShareRepository = (*ShareRepo)(nil)

// ShareRepo implements repository.ShareRepository on the shared_items table.
type ShareRepo struct {
	db *DB
}

// Shares returns the share repository backed by this database.
func (db *DB) Shares() *ShareRepo {
	return &ShareRepo{db: db}
}

// Insert records a share relation. The (item_id, shared_with) UNIQUE
// constraint turns a repeated share into a conflict.
func (repo *ShareRepo) Insert(ctx context.Context, itemID, sharerID, recipientID string) (remote.ShareRow, error) {
	row := remote.ShareRow{
		ID:         xid.New().String(),
		ItemID:     itemID,
		SharedBy:   sharerID,
		SharedWith: recipientID,
		SharedAt:   time.Now().UTC(),
	}

	_, err := repo.db.conn.ExecContext(ctx,
		`INSERT INTO shared_items (id, item_id, shared_by, shared_with, shared_at)
		 VALUES (?, ?, ?, ?, ?)`,
		row.ID, row.ItemID, row.SharedBy, row.SharedWith, row.SharedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return remote.ShareRow{}, apperror.Conflict("share", itemID)
		}
		return remote.ShareRow{}, fmt.Errorf("sqlite: inserting share for item %s: %w", itemID, err)
	}

	return row, nil
}

// ListForRecipient returns relations shared with userID, most recent first,
// each joined with its item and the sharer's display name.
func (repo *ShareRepo) ListForRecipient(ctx context.Context, userID string, opts repository.ListOptions) ([]remote.ShareRow, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := repo.db.conn.QueryContext(ctx,
		`SELECT s.id, s.item_id, s.shared_by, a.name, s.shared_with, s.shared_at,
			i.id, i.user_id, i.type, i.title, i.url, i.content, i.image_url,
			i.is_saved, i.is_shared, i.created_at, i.updated_at
		 FROM shared_items s
		 JOIN items i ON i.id = s.item_id
		 JOIN accounts a ON a.id = s.shared_by
		 WHERE s.shared_with = ?
		 ORDER BY s.shared_at DESC
		 LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing shares for %s: %w", userID, err)
	}
	defer rows.Close()

	var shares []remote.ShareRow
	for rows.Next() {
		var s remote.ShareRow
		if err := rows.Scan(
			&s.ID, &s.ItemID, &s.SharedBy, &s.SharedByName, &s.SharedWith, &s.SharedAt,
			&s.Item.ID, &s.Item.UserID, &s.Item.Type, &s.Item.Title,
			&s.Item.URL, &s.Item.Content, &s.Item.ImageURL,
			&s.Item.IsSaved, &s.Item.IsShared, &s.Item.CreatedAt, &s.Item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning share row: %w", err)
		}
		shares = append(shares, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating shares: %w", err)
	}

	return shares, nil
}

// DeleteByItemAndSharer removes every relation for itemID created by
// sharerID. Zero matches is fine — the item may simply never have been
// shared.
func (repo *ShareRepo) DeleteByItemAndSharer(ctx context.Context, itemID, sharerID string) error {
	_, err := repo.db.conn.ExecContext(ctx,
		`DELETE FROM shared_items WHERE item_id = ? AND shared_by = ?`,
		itemID, sharerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting shares for item %s: %w", itemID, err)
	}
	return nil
}
