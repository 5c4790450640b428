package store

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sakif/stash/internal/apperror"
	"github.com/sakif/stash/internal/mapper"
	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/remote"
)

// errNotAuthenticated is the fixed message recorded when an operation that
// needs a resolved user is invoked while signed out.
const errNotAuthenticated = "User not authenticated"

// UserSource supplies the current resolved user identity. Implemented by
// SessionStore. The item store re-reads it at the start of every operation.
type UserSource interface {
	CurrentUser() (model.User, bool)
}

// SessionRefresher can exchange the current session for a fresh one.
// Implemented by SessionStore; used by the refetch-after-refresh step.
type SessionRefresher interface {
	Refresh(ctx context.Context) error
}

// ItemStore owns the in-memory collection of items and orchestrates
// fetch/create/update/delete/share against the remote data service.
//
// The collection is the union of items owned by the current user and items
// shared with them, owned-first — the two lists are concatenated, each in
// its own timestamp order, not interleaved.
//
// A mutex serializes every read and write of the collection, so concurrent
// operations never tear the slice. Operation-level interleaving is still
// possible — remote calls happen outside the lock, and a slow FetchItems
// resolving after a faster DeleteItem will reinstate the deleted entry.
// Issue operations one at a time where that matters.
//
// Failed mutations follow the per-operation FailurePolicy: by default
// create/update/delete apply their local change anyway (recording the error,
// never rolling back) while share aborts. Items applied locally after a
// failed create carry the Local flag and are never reconciled against the
// backend.
type ItemStore struct {
	svc       remote.DataService
	users     UserSource
	refresher SessionRefresher // may be nil; disables RetryEmptyFetch
	logger    *slog.Logger
	opts      Options

	mu      sync.Mutex
	items   []model.Item
	loading bool
	errMsg  string
	page    int
	hasMore bool
}

// NewItemStore creates an ItemStore. refresher may be nil when the
// RetryEmptyFetch option is unused.
func NewItemStore(svc remote.DataService, users UserSource, refresher SessionRefresher, logger *slog.Logger, opts Options) *ItemStore {
	return &ItemStore{
		svc:       svc,
		users:     users,
		refresher: refresher,
		logger:    logger,
		opts:      opts,
		page:      1,
		hasMore:   true,
	}
}

// Items returns a copy of the current collection.
func (s *ItemStore) Items() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]model.Item, len(s.items))
	copy(items, s.items)
	return items
}

// Loading reports whether any operation is in flight. It is a single coarse
// flag shared by all operations; it does not say which one is running.
func (s *ItemStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the message recorded by the most recent failure, or "".
func (s *ItemStore) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// HasMore reports whether FetchNextPage may yield more items.
func (s *ItemStore) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// Page returns the most recently loaded page number, starting at 1.
func (s *ItemStore) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// FetchItems loads the first page: the user's own items newest-first, then
// the items shared with them, most recently shared first.
//
// With no resolved user it records an error and leaves the collection
// untouched. On a remote failure the collection keeps its previous value
// (stale but present) unless Options.FallbackItems substitutes a canned
// dataset. Calling it again while a fetch is in flight is allowed; the last
// resolution wins.
func (s *ItemStore) FetchItems(ctx context.Context) {
	user, ok := s.users.CurrentUser()
	if !ok {
		s.logger.Debug("fetch items: no authenticated user")
		s.setError(errNotAuthenticated)
		return
	}

	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.page = 1
	s.hasMore = true
	s.mu.Unlock()

	// The first page is unbounded; hasMore is judged against the page size.
	own, err := s.svc.ListItems(ctx, user.ID, remote.Page{})
	if err != nil {
		s.fetchFailed("own items", err)
		return
	}

	shared, err := s.svc.ListSharedWith(ctx, user.ID, remote.Page{})
	if err != nil {
		s.fetchFailed("shared items", err)
		return
	}

	items, err := mapPage(own, shared)
	if err != nil {
		s.fetchFailed("mapping items", err)
		return
	}

	if len(items) == 0 && s.opts.RetryEmptyFetch && s.refresher != nil {
		if retried, ok := s.refetchAfterRefresh(ctx, user.ID); ok {
			s.mu.Lock()
			s.items = retried
			s.hasMore = len(retried) == s.opts.pageSize()
			s.loading = false
			s.mu.Unlock()
			return
		}
	}

	ps := s.opts.pageSize()
	s.mu.Lock()
	s.items = items
	s.hasMore = len(own) == ps || len(shared) == ps
	s.loading = false
	s.mu.Unlock()

	s.logger.Debug("fetched items",
		slog.Int("own", len(own)),
		slog.Int("shared", len(shared)),
	)
}

// FetchNextPage appends the next page of both queries to the collection.
// It is a no-op while a fetch is loading, once hasMore is false, or with no
// resolved user.
func (s *ItemStore) FetchNextPage(ctx context.Context) {
	s.mu.Lock()
	if s.loading || !s.hasMore {
		s.mu.Unlock()
		return
	}
	nextPage := s.page + 1
	s.loading = true
	s.mu.Unlock()

	user, ok := s.users.CurrentUser()
	if !ok {
		s.setLoading(false)
		return
	}

	ps := s.opts.pageSize()
	page := remote.Page{Offset: (nextPage - 1) * ps, Limit: ps}

	own, err := s.svc.ListItems(ctx, user.ID, page)
	if err != nil {
		s.opFailed("fetch next page", err)
		return
	}

	shared, err := s.svc.ListSharedWith(ctx, user.ID, page)
	if err != nil {
		s.opFailed("fetch next page", err)
		return
	}

	newItems, err := mapPage(own, shared)
	if err != nil {
		s.opFailed("fetch next page", err)
		return
	}

	s.mu.Lock()
	s.items = append(s.items, newItems...)
	s.page = nextPage
	s.hasMore = len(newItems) == ps
	s.loading = false
	s.mu.Unlock()
}

// CreateItem inserts a new item and prepends the stored result to the
// collection (most-recent-first).
//
// It returns nil only when no user is resolved or the draft is invalid.
// When the remote insert fails and the create policy is ApplyLocally, a
// local stand-in is synthesized — time-derived id, CreatedAt now, Local set
// — prepended and returned; the error is recorded but the caller still gets
// an item.
func (s *ItemStore) CreateItem(ctx context.Context, draft model.ItemDraft) *model.Item {
	user, ok := s.users.CurrentUser()
	if !ok {
		s.setError(errNotAuthenticated)
		return nil
	}

	if err := validateDraft(draft); err != nil {
		s.setError(apperror.Normalize(err))
		return nil
	}
	draft.Title = strings.TrimSpace(draft.Title)

	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	stored, err := s.svc.InsertItem(ctx, mapper.RowFromDraft(draft, user.ID))
	if err == nil {
		var item model.Item
		if item, err = mapper.ItemFromRow(stored, nil); err == nil {
			s.prepend(item)
			s.setLoading(false)
			s.logger.Info("item created",
				slog.String("id", item.ID),
				slog.String("kind", string(item.Kind)),
			)
			return &item
		}
	}

	s.opFailed("create item", err)
	if s.opts.policies().policy(OpCreate) != ApplyLocally {
		return nil
	}

	// Availability over consistency: keep the item locally even though the
	// backend rejected it. The stand-in is never reconciled later.
	temp := localItem(draft)
	s.prepend(temp)
	return &temp
}

// UpdateItem applies a partial update to the item with the given id, scoped
// remotely to rows the current user owns.
//
// The local entry is merged with the patch whether or not the remote update
// succeeded (ApplyLocally policy); a failure is only recorded, never rolled
// back. An id with no local entry leaves the collection unchanged while
// still recording any remote error. Items shared with the current user are
// read-only and are refused outright.
func (s *ItemStore) UpdateItem(ctx context.Context, id string, patch model.ItemPatch) {
	user, ok := s.users.CurrentUser()
	if !ok {
		s.setError(errNotAuthenticated)
		return
	}

	if s.refuseSharedWithMe(id) {
		return
	}

	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	err := s.svc.UpdateItem(ctx, id, user.ID, mapper.UpdateFromPatch(patch, time.Now()))
	apply := err == nil || s.opts.policies().policy(OpUpdate) == ApplyLocally

	s.mu.Lock()
	if err != nil {
		s.errMsg = apperror.Normalize(err)
		s.logger.Error("failed to update item",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
	}
	if apply {
		for i := range s.items {
			if s.items[i].ID == id {
				s.items[i] = patch.Apply(s.items[i])
			}
		}
	}
	s.loading = false
	s.mu.Unlock()
}

// DeleteItem removes the item with the given id: first any share relations
// the current user created for it, then the row itself.
//
// The local entry is removed whatever the remote outcome (ApplyLocally
// policy). A failed share-relation cleanup is logged but does not stop the
// item delete. Items shared with the current user are refused.
func (s *ItemStore) DeleteItem(ctx context.Context, id string) {
	user, ok := s.users.CurrentUser()
	if !ok {
		s.setError(errNotAuthenticated)
		return
	}

	if s.refuseSharedWithMe(id) {
		return
	}

	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	if err := s.svc.DeleteShares(ctx, id, user.ID); err != nil {
		s.logger.Warn("failed to delete share relations",
			slog.String("itemID", id),
			slog.String("error", err.Error()),
		)
	}

	err := s.svc.DeleteItem(ctx, id, user.ID)
	apply := err == nil || s.opts.policies().policy(OpDelete) == ApplyLocally

	s.mu.Lock()
	if err != nil {
		s.errMsg = apperror.Normalize(err)
		s.logger.Error("failed to delete item",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
	}
	if apply {
		kept := s.items[:0]
		for _, it := range s.items {
			if it.ID != id {
				kept = append(kept, it)
			}
		}
		s.items = kept
	}
	s.loading = false
	s.mu.Unlock()
}

// ShareItem records a share relation for itemID with the given recipient and
// flips the owned item's shared flag.
//
// Unlike the other mutations, share aborts on failure by default: the local
// entry keeps its previous IsShared value and only the error is recorded.
func (s *ItemStore) ShareItem(ctx context.Context, itemID, recipientID string) {
	user, ok := s.users.CurrentUser()
	if !ok {
		s.setError(errNotAuthenticated)
		return
	}

	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	err := s.svc.InsertShare(ctx, itemID, user.ID, recipientID)
	if err != nil {
		s.opFailed("share item", err)
		if s.opts.policies().policy(OpShare) != ApplyLocally {
			return
		}
	} else {
		// Flag flip on the owned row; a failure here leaves the relation in
		// place, so only log it.
		shared := true
		upd := remote.ItemUpdate{IsShared: &shared, UpdatedAt: time.Now()}
		if err := s.svc.UpdateItem(ctx, itemID, user.ID, upd); err != nil {
			s.logger.Warn("failed to flag item as shared",
				slog.String("itemID", itemID),
				slog.String("error", err.Error()),
			)
		}
		s.logger.Info("item shared",
			slog.String("itemID", itemID),
			slog.String("recipientID", recipientID),
		)
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == itemID {
			s.items[i].IsShared = true
		}
	}
	s.loading = false
	s.mu.Unlock()
}

// refetchAfterRefresh is the explicit retry step for backends that answer a
// stale session with an empty result set instead of an error: refresh the
// session once, then retry the owned-items query. Reports ok=false when the
// refresh or the retry yields nothing, in which case the caller keeps the
// empty first-page result.
func (s *ItemStore) refetchAfterRefresh(ctx context.Context, userID string) ([]model.Item, bool) {
	if err := s.refresher.Refresh(ctx); err != nil {
		s.logger.Debug("session refresh failed", slog.String("error", err.Error()))
		return nil, false
	}

	rows, err := s.svc.ListItems(ctx, userID, remote.Page{})
	if err != nil || len(rows) == 0 {
		return nil, false
	}

	items := make([]model.Item, 0, len(rows))
	for _, row := range rows {
		item, err := mapper.ItemFromRow(row, nil)
		if err != nil {
			return nil, false
		}
		items = append(items, item)
	}

	s.logger.Debug("refetch after refresh recovered items", slog.Int("count", len(items)))
	return items, true
}

// refuseSharedWithMe records a read-only error and reports true when the
// local entry with the given id arrived via a share relation. Shared-with-me
// items are never mutated by this store.
func (s *ItemStore) refuseSharedWithMe(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.ID == id && it.SharedWithMe {
			s.errMsg = apperror.Normalize(apperror.Forbidden("shared items are read-only"))
			return true
		}
	}
	return false
}

func (s *ItemStore) prepend(item model.Item) {
	s.mu.Lock()
	s.items = append([]model.Item{item}, s.items...)
	s.mu.Unlock()
}

func (s *ItemStore) setError(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
}

func (s *ItemStore) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// opFailed records a normalized error and clears the loading flag.
func (s *ItemStore) opFailed(op string, err error) {
	s.logger.Error("remote operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	s.mu.Lock()
	s.errMsg = apperror.Normalize(err)
	s.loading = false
	s.mu.Unlock()
}

// fetchFailed is opFailed plus the configurable fallback dataset for the
// initial fetch.
func (s *ItemStore) fetchFailed(step string, err error) {
	s.opFailed("fetch items: "+step, err)
	if s.opts.FallbackItems != nil {
		s.mu.Lock()
		s.items = make([]model.Item, len(s.opts.FallbackItems))
		copy(s.items, s.opts.FallbackItems)
		s.mu.Unlock()
	}
}

// localItem synthesizes the stand-in for a create whose remote insert
// failed. The id is derived from the current time, like the backend's ids
// it will sit alongside, but flagged Local so callers can tell them apart.
func localItem(draft model.ItemDraft) model.Item {
	item := model.Item{
		ID:        strconv.FormatInt(time.Now().UnixMilli(), 10),
		Kind:      draft.Kind,
		Title:     draft.Title,
		CreatedAt: time.Now(),
		IsSaved:   draft.IsSaved,
		IsShared:  draft.IsShared,
		Local:     true,
	}
	switch draft.Kind {
	case model.KindLink:
		item.URL = draft.URL
		item.ImageURL = draft.ImageURL
	case model.KindNote:
		item.Content = draft.Content
	}
	return item
}

// validateDraft enforces the creation contract: a known kind, a non-empty
// title, and exactly the variant field the kind calls for.
func validateDraft(draft model.ItemDraft) error {
	if !draft.Kind.Valid() {
		return apperror.ValidationFailed("type", "item type must be link or note")
	}
	if strings.TrimSpace(draft.Title) == "" {
		return apperror.ValidationFailed("title", "item title is required")
	}
	switch draft.Kind {
	case model.KindLink:
		if strings.TrimSpace(draft.URL) == "" {
			return apperror.ValidationFailed("url", "link URL is required")
		}
		if draft.Content != "" {
			return apperror.ValidationFailed("content", "a link cannot carry note content")
		}
	case model.KindNote:
		if strings.TrimSpace(draft.Content) == "" {
			return apperror.ValidationFailed("content", "note content is required")
		}
		if draft.URL != "" || draft.ImageURL != "" {
			return apperror.ValidationFailed("url", "a note cannot carry link fields")
		}
	}
	return nil
}

// mapPage maps an owned-items page and a shared-items page into the
// combined view: owned first, shared second. Each list keeps its own
// timestamp order; they are concatenated, not interleaved.
func mapPage(own []remote.ItemRow, shared []remote.ShareRow) ([]model.Item, error) {
	items := make([]model.Item, 0, len(own)+len(shared))
	for _, row := range own {
		item, err := mapper.ItemFromRow(row, nil)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	for _, row := range shared {
		item, err := mapper.ItemFromShareRow(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
