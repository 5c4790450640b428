package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/stash/internal/apperror"
	"github.com/sakif/stash/internal/remote"
	"github.com/sakif/stash/internal/repository"
)

// compile-time check that *ItemRepo implements repository.ItemRepository
var _ repository.ItemRepository = (*ItemRepo)(nil)

// ItemRepo implements repository.ItemRepository on the items table.
type ItemRepo struct {
	db *DB
}

// Items returns the item repository backed by this database.
func (db *DB) Items() *ItemRepo {
	return &ItemRepo{db: db}
}

const itemColumns = `id, user_id, type, title, url, content, image_url,
	is_saved, is_shared, created_at, updated_at`

// Insert stores a new item row. The id (xid: sortable, URL-safe) and both
// timestamps are assigned here; the row is returned as stored.
func (repo *ItemRepo) Insert(ctx context.Context, row remote.ItemRow) (remote.ItemRow, error) {
	row.ID = xid.New().String()
	now := time.Now().UTC()
	row.CreatedAt = now
	row.UpdatedAt = now

	_, err := repo.db.conn.ExecContext(ctx,
		`INSERT INTO items (id, user_id, type, title, url, content, image_url,
			is_saved, is_shared, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID,
		row.UserID,
		row.Type,
		row.Title,
		row.URL,
		row.Content,
		row.ImageURL,
		row.IsSaved,
		row.IsShared,
		row.CreatedAt,
		row.UpdatedAt,
	)
	if err != nil {
		return remote.ItemRow{}, fmt.Errorf("sqlite: inserting item: %w", err)
	}

	return row, nil
}

// ListByOwner returns items owned by userID, newest first.
func (repo *ItemRepo) ListByOwner(ctx context.Context, userID string, opts repository.ListOptions) ([]remote.ItemRow, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = -1 // SQLite: LIMIT -1 means no limit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := repo.db.conn.QueryContext(ctx,
		`SELECT `+itemColumns+`
		 FROM items
		 WHERE user_id = ?
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing items for %s: %w", userID, err)
	}
	defer rows.Close()

	var items []remote.ItemRow
	for rows.Next() {
		var r remote.ItemRow
		if err := scanItem(rows, &r); err != nil {
			return nil, fmt.Errorf("sqlite: scanning item row: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating items: %w", err)
	}

	return items, nil
}

// GetByID returns the item with the given id regardless of owner.
func (repo *ItemRepo) GetByID(ctx context.Context, id string) (remote.ItemRow, error) {
	var r remote.ItemRow
	err := repo.db.conn.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	).Scan(
		&r.ID, &r.UserID, &r.Type, &r.Title, &r.URL, &r.Content, &r.ImageURL,
		&r.IsSaved, &r.IsShared, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return remote.ItemRow{}, apperror.NotFound("item", id)
		}
		return remote.ItemRow{}, fmt.Errorf("sqlite: getting item %s: %w", id, err)
	}
	return r, nil
}

// UpdatePartial applies the non-nil fields of upd to the row (id, userID).
// The owner scope is part of the WHERE clause, so a row owned by another
// user comes back as not found, never modified.
func (repo *ItemRepo) UpdatePartial(ctx context.Context, id, userID string, upd remote.ItemUpdate) error {
	set := "updated_at = ?"
	args := []any{upd.UpdatedAt}

	if upd.Title != nil {
		set += ", title = ?"
		args = append(args, *upd.Title)
	}
	if upd.URL != nil {
		set += ", url = ?"
		args = append(args, *upd.URL)
	}
	if upd.Content != nil {
		set += ", content = ?"
		args = append(args, *upd.Content)
	}
	if upd.ImageURL != nil {
		set += ", image_url = ?"
		args = append(args, *upd.ImageURL)
	}
	if upd.IsSaved != nil {
		set += ", is_saved = ?"
		args = append(args, *upd.IsSaved)
	}
	if upd.IsShared != nil {
		set += ", is_shared = ?"
		args = append(args, *upd.IsShared)
	}

	args = append(args, id, userID)
	result, err := repo.db.conn.ExecContext(ctx,
		`UPDATE items SET `+set+` WHERE id = ? AND user_id = ?`, args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating item %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("item", id)
	}

	return nil
}

// Delete removes the row (id, userID). Same owner scoping as UpdatePartial.
func (repo *ItemRepo) Delete(ctx context.Context, id, userID string) error {
	result, err := repo.db.conn.ExecContext(ctx,
		`DELETE FROM items WHERE id = ? AND user_id = ?`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting item %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("item", id)
	}

	return nil
}

// scanItem reads the itemColumns projection into r. Nullable columns land
// in the row's pointer fields (nil for NULL).
func scanItem(rows *sql.Rows, r *remote.ItemRow) error {
	return rows.Scan(
		&r.ID, &r.UserID, &r.Type, &r.Title, &r.URL, &r.Content, &r.ImageURL,
		&r.IsSaved, &r.IsShared, &r.CreatedAt, &r.UpdatedAt,
	)
}
