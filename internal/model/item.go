// Package model defines the data structures used throughout the application.
package model

import (
	"time"
)

// Kind discriminates the two item variants. An item is either a saved link
// or a free-form note — never both, never neither.
type Kind string

const (
	KindLink Kind = "link"
	KindNote Kind = "note"
)

// Valid reports whether k is one of the known item kinds.
func (k Kind) Valid() bool {
	return k == KindLink || k == KindNote
}

// Item is a link or note record, either owned by the current user or shared
// with them by someone else.
//
// It is a tagged union over Kind: the URL/ImageURL fields are populated only
// for KindLink, Content only for KindNote. The mapper package enforces this
// at the wire boundary and the store validates drafts before they get there.
//
// An item with SharedWithMe set reached the local collection through a share
// relation. Such items are read-only from the current user's perspective —
// the store's create/update/delete operations never touch them.
type Item struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"type"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	IsSaved   bool      `json:"isSaved"`
	IsShared  bool      `json:"isShared"`

	// Link variant fields.
	URL      string `json:"url,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`

	// Note variant field.
	Content string `json:"content,omitempty"`

	// Share annotations, set only for items that arrived via a share
	// relation. SharedBy and SharedAt are nil unless SharedWithMe is true.
	SharedWithMe bool       `json:"sharedWithMe"`
	SharedBy     *User      `json:"sharedBy,omitempty"`
	SharedAt     *time.Time `json:"sharedAt,omitempty"`

	// Local marks an item that exists only in local state: a create whose
	// remote insert failed. Its ID is synthesized and it is never
	// reconciled against the backend.
	Local bool `json:"-"`
}

// User identifies a user as seen by other users, e.g. the sharer of an item.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ItemDraft is the input for creating an item. ID and CreatedAt are assigned
// by the backend.
type ItemDraft struct {
	Kind     Kind   `json:"type"`
	Title    string `json:"title"`
	URL      string `json:"url,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	Content  string `json:"content,omitempty"`
	IsSaved  bool   `json:"isSaved"`
	IsShared bool   `json:"isShared"`
}

// ItemPatch is a partial update. Nil fields are left unchanged. Only the
// fields listed here can be updated — identity, timestamps and share
// annotations are immutable from the client's side.
type ItemPatch struct {
	Title    *string `json:"title,omitempty"`
	IsSaved  *bool   `json:"isSaved,omitempty"`
	IsShared *bool   `json:"isShared,omitempty"`
	URL      *string `json:"url,omitempty"`
	ImageURL *string `json:"imageUrl,omitempty"`
	Content  *string `json:"content,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (p ItemPatch) IsZero() bool {
	return p.Title == nil && p.IsSaved == nil && p.IsShared == nil &&
		p.URL == nil && p.ImageURL == nil && p.Content == nil
}

// Apply merges the patch into a copy of item and returns it.
// The variant invariant is preserved: link fields are ignored on notes and
// vice versa.
func (p ItemPatch) Apply(item Item) Item {
	if p.Title != nil {
		item.Title = *p.Title
	}
	if p.IsSaved != nil {
		item.IsSaved = *p.IsSaved
	}
	if p.IsShared != nil {
		item.IsShared = *p.IsShared
	}
	switch item.Kind {
	case KindLink:
		if p.URL != nil {
			item.URL = *p.URL
		}
		if p.ImageURL != nil {
			item.ImageURL = *p.ImageURL
		}
	case KindNote:
		if p.Content != nil {
			item.Content = *p.Content
		}
	}
	return item
}
