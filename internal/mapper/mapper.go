// Package mapper translates between the backend's row representation of an
// item and the in-memory view model.
//
// Both directions are pure functions. The row side speaks the backend's
// snake_case schema with nullable variant columns; the view side is the
// tagged union in internal/model. The kind tag is matched exhaustively here
// — a row with an unknown type value is rejected, never guessed at.
package mapper

import (
	"fmt"
	"time"

	"github.com/sakif/stash/internal/apperror"
	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/remote"
)

// ShareInfo is the share metadata attached to items that reach the local
// collection through a share relation.
type ShareInfo struct {
	SharedBy     string
	SharedByName string
	SharedAt     time.Time
}

// ItemFromRow converts a backend row to the view model. When share is
// non-nil the item is annotated as shared-with-me, with the sharer's name
// falling back to "User" if the backend didn't resolve one.
func ItemFromRow(row remote.ItemRow, share *ShareInfo) (model.Item, error) {
	kind := model.Kind(row.Type)
	if !kind.Valid() {
		return model.Item{}, apperror.ValidationFailed("type",
			fmt.Sprintf("unknown item type %q", row.Type))
	}

	item := model.Item{
		ID:        row.ID,
		Kind:      kind,
		Title:     row.Title,
		CreatedAt: row.CreatedAt,
		IsSaved:   row.IsSaved,
		IsShared:  row.IsShared,
	}

	switch kind {
	case model.KindLink:
		if row.URL != nil {
			item.URL = *row.URL
		}
		if row.ImageURL != nil {
			item.ImageURL = *row.ImageURL
		}
	case model.KindNote:
		if row.Content != nil {
			item.Content = *row.Content
		}
	}

	if share != nil {
		name := share.SharedByName
		if name == "" {
			name = "User" // backend didn't resolve the sharer's name
		}
		sharedAt := share.SharedAt
		item.SharedWithMe = true
		item.SharedBy = &model.User{ID: share.SharedBy, Name: name}
		item.SharedAt = &sharedAt
	}

	return item, nil
}

// ItemFromShareRow converts a joined share row to a shared-with-me item.
func ItemFromShareRow(row remote.ShareRow) (model.Item, error) {
	return ItemFromRow(row.Item, &ShareInfo{
		SharedBy:     row.SharedBy,
		SharedByName: row.SharedByName,
		SharedAt:     row.SharedAt,
	})
}

// RowFromDraft builds the storage row for a new item owned by ownerID.
//
// Variant-inapplicable columns are explicitly null, and the derived share
// annotations are never persisted — they exist only on shared_items rows.
// ID, created_at and updated_at are left for the backend to assign.
func RowFromDraft(draft model.ItemDraft, ownerID string) remote.ItemRow {
	row := remote.ItemRow{
		UserID:   ownerID,
		Type:     string(draft.Kind),
		Title:    draft.Title,
		IsSaved:  draft.IsSaved,
		IsShared: draft.IsShared,
	}

	switch draft.Kind {
	case model.KindLink:
		url := draft.URL
		row.URL = &url
		if draft.ImageURL != "" {
			imageURL := draft.ImageURL
			row.ImageURL = &imageURL
		}
	case model.KindNote:
		content := draft.Content
		row.Content = &content
	}

	return row
}

// UpdateFromPatch translates a view-model patch into a storage-row partial
// update, stamped with the given update time. Only title, the saved/shared
// flags and the variant fields are forwarded; everything else on an item is
// immutable from the client's side.
func UpdateFromPatch(patch model.ItemPatch, now time.Time) remote.ItemUpdate {
	return remote.ItemUpdate{
		Title:     patch.Title,
		URL:       patch.URL,
		Content:   patch.Content,
		ImageURL:  patch.ImageURL,
		IsSaved:   patch.IsSaved,
		IsShared:  patch.IsShared,
		UpdatedAt: now,
	}
}
