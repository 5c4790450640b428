package store

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/sakif/stash/internal/apperror"
	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/remote"
)

// =========================================================================
// FAKES
// =========================================================================

// fakeUsers is a UserSource with a fixed answer.
type fakeUsers struct {
	user *model.User
}

func (f *fakeUsers) CurrentUser() (model.User, bool) {
	if f.user == nil {
		return model.User{}, false
	}
	return *f.user, true
}

// fakeRefresher counts Refresh calls and returns a configured error.
type fakeRefresher struct {
	err   error
	calls int
}

func (f *fakeRefresher) Refresh(_ context.Context) error {
	f.calls++
	return f.err
}

// fakeData is an in-memory remote.DataService. Error fields inject failures
// per operation; the slices record what was called.
type fakeData struct {
	items  []remote.ItemRow
	shares []remote.ShareRow

	itemsErr        error
	sharesErr       error
	insertErr       error
	updateErr       error
	deleteErr       error
	shareErr        error
	deleteSharesErr error

	// itemsOnRetry, when set, is returned by every ListItems call after the
	// first. Lets tests exercise the refetch-after-refresh path.
	itemsOnRetry []remote.ItemRow

	listCalls     int
	inserted      []remote.ItemRow
	updatedIDs    []string
	updates       []remote.ItemUpdate
	deletedIDs    []string
	sharedItems   []string
	sharedWith    []string
	deletedShares []string
}

func (f *fakeData) ListItems(_ context.Context, _ string, page remote.Page) ([]remote.ItemRow, error) {
	f.listCalls++
	if f.itemsErr != nil {
		return nil, f.itemsErr
	}
	if f.listCalls > 1 && f.itemsOnRetry != nil {
		return f.itemsOnRetry, nil
	}
	return slicePage(f.items, page), nil
}

func (f *fakeData) ListSharedWith(_ context.Context, _ string, page remote.Page) ([]remote.ShareRow, error) {
	if f.sharesErr != nil {
		return nil, f.sharesErr
	}
	return slicePage(f.shares, page), nil
}

func (f *fakeData) InsertItem(_ context.Context, row remote.ItemRow) (remote.ItemRow, error) {
	if f.insertErr != nil {
		return remote.ItemRow{}, f.insertErr
	}
	row.ID = "42"
	row.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	row.UpdatedAt = row.CreatedAt
	f.inserted = append(f.inserted, row)
	return row, nil
}

func (f *fakeData) UpdateItem(_ context.Context, id, _ string, upd remote.ItemUpdate) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updatedIDs = append(f.updatedIDs, id)
	f.updates = append(f.updates, upd)
	return nil
}

func (f *fakeData) DeleteItem(_ context.Context, id, _ string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

func (f *fakeData) InsertShare(_ context.Context, itemID, _, recipientID string) error {
	if f.shareErr != nil {
		return f.shareErr
	}
	f.sharedItems = append(f.sharedItems, itemID)
	f.sharedWith = append(f.sharedWith, recipientID)
	return nil
}

func (f *fakeData) DeleteShares(_ context.Context, itemID, _ string) error {
	if f.deleteSharesErr != nil {
		return f.deleteSharesErr
	}
	f.deletedShares = append(f.deletedShares, itemID)
	return nil
}

func slicePage[T any](rows []T, page remote.Page) []T {
	if page.Offset >= len(rows) {
		return nil
	}
	rows = rows[page.Offset:]
	if page.Limit > 0 && page.Limit < len(rows) {
		rows = rows[:page.Limit]
	}
	return rows
}

// =========================================================================
// HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(data *fakeData, opts Options) *ItemStore {
	users := &fakeUsers{user: &model.User{ID: "user-1", Name: "Test User"}}
	return NewItemStore(data, users, nil, testLogger(), opts)
}

func linkRow(id, title string, createdAt time.Time) remote.ItemRow {
	url := "https://example.com/" + id
	return remote.ItemRow{
		ID:        id,
		UserID:    "user-1",
		Type:      "link",
		Title:     title,
		URL:       &url,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func noteRow(id, title, content string, createdAt time.Time) remote.ItemRow {
	return remote.ItemRow{
		ID:        id,
		UserID:    "user-1",
		Type:      "note",
		Title:     title,
		Content:   &content,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func shareRow(id string, item remote.ItemRow, sharedAt time.Time) remote.ShareRow {
	return remote.ShareRow{
		ID:           id,
		ItemID:       item.ID,
		SharedBy:     "user-2",
		SharedByName: "Alex Johnson",
		SharedWith:   "user-1",
		SharedAt:     sharedAt,
		Item:         item,
	}
}

func itemIDs(items []model.Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// =========================================================================
// FETCH TESTS
// =========================================================================

func TestFetchItems_OwnedThenShared(t *testing.T) {
	shared := linkRow("s1", "Shared Link", baseTime.Add(-time.Hour))
	shared.UserID = "user-2"
	data := &fakeData{
		items: []remote.ItemRow{
			linkRow("a", "Newest", baseTime),
			noteRow("b", "Older Note", "body", baseTime.Add(-2*time.Hour)),
		},
		shares: []remote.ShareRow{shareRow("rel-1", shared, baseTime)},
	}
	s := newTestStore(data, Options{})

	s.FetchItems(context.Background())

	if got := s.Err(); got != "" {
		t.Fatalf("Err() = %q, want empty", got)
	}
	items := s.Items()
	want := []string{"a", "b", "s1"}
	if got := itemIDs(items); len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("item order = %v, want %v (owned first, then shared)", got, want)
	}

	sharedItem := items[2]
	if !sharedItem.SharedWithMe {
		t.Error("shared item should be marked SharedWithMe")
	}
	if sharedItem.SharedBy == nil || sharedItem.SharedBy.Name != "Alex Johnson" {
		t.Errorf("SharedBy = %+v, want Alex Johnson", sharedItem.SharedBy)
	}
	if s.Page() != 1 {
		t.Errorf("Page() = %d, want 1", s.Page())
	}
}

func TestFetchItems_Unauthenticated(t *testing.T) {
	data := &fakeData{items: []remote.ItemRow{linkRow("a", "A", baseTime)}}
	s := NewItemStore(data, &fakeUsers{}, nil, testLogger(), Options{})

	s.FetchItems(context.Background())

	if got := s.Err(); got != "User not authenticated" {
		t.Errorf("Err() = %q, want %q", got, "User not authenticated")
	}
	if len(s.Items()) != 0 {
		t.Error("collection should stay empty without a user")
	}
	if data.listCalls != 0 {
		t.Error("remote should not be called without a user")
	}
}

func TestFetchItems_Idempotent(t *testing.T) {
	data := &fakeData{items: []remote.ItemRow{linkRow("a", "A", baseTime)}}
	s := newTestStore(data, Options{})

	s.FetchItems(context.Background())
	first := s.Items()
	s.FetchItems(context.Background())
	second := s.Items()

	if len(first) != len(second) || first[0].ID != second[0].ID {
		t.Errorf("repeated fetch changed the collection: %v vs %v", itemIDs(first), itemIDs(second))
	}
}

func TestFetchItems_RemoteFailureKeepsStaleCollection(t *testing.T) {
	data := &fakeData{items: []remote.ItemRow{linkRow("a", "A", baseTime)}}
	s := newTestStore(data, Options{})
	s.FetchItems(context.Background())

	data.itemsErr = &remote.Error{Code: remote.CodeNotFound}
	s.FetchItems(context.Background())

	if got := s.Err(); got != "Resource not found" {
		t.Errorf("Err() = %q, want code-mapped message", got)
	}
	if got := itemIDs(s.Items()); len(got) != 1 || got[0] != "a" {
		t.Errorf("collection = %v, want stale [a]", got)
	}
	if s.Loading() {
		t.Error("loading should be cleared after a failed fetch")
	}
}

func TestFetchItems_FallbackItemsOnFailure(t *testing.T) {
	data := &fakeData{itemsErr: &remote.Error{Code: "boom"}}
	fallback := SampleItems()
	s := newTestStore(data, Options{FallbackItems: fallback})

	s.FetchItems(context.Background())

	if len(s.Items()) != len(fallback) {
		t.Errorf("collection size = %d, want fallback size %d", len(s.Items()), len(fallback))
	}
	if s.Err() == "" {
		t.Error("error should still be recorded when the fallback is applied")
	}
}

func TestFetchItems_ErrorMessagePreferredVerbatim(t *testing.T) {
	data := &fakeData{itemsErr: &remote.Error{Code: remote.CodeNotFound, Message: "items table is gone"}}
	s := newTestStore(data, Options{})

	s.FetchItems(context.Background())

	if got := s.Err(); got != "items table is gone" {
		t.Errorf("Err() = %q, want the error's own message verbatim", got)
	}
}

func TestFetchItems_RetryEmptyFetch(t *testing.T) {
	data := &fakeData{
		itemsOnRetry: []remote.ItemRow{linkRow("a", "Recovered", baseTime)},
	}
	refresher := &fakeRefresher{}
	users := &fakeUsers{user: &model.User{ID: "user-1"}}
	s := NewItemStore(data, users, refresher, testLogger(), Options{RetryEmptyFetch: true})

	s.FetchItems(context.Background())

	if refresher.calls != 1 {
		t.Fatalf("Refresh calls = %d, want 1", refresher.calls)
	}
	if got := itemIDs(s.Items()); len(got) != 1 || got[0] != "a" {
		t.Errorf("collection = %v, want the recovered [a]", got)
	}
}

func TestFetchItems_RetryDisabledByDefault(t *testing.T) {
	refresher := &fakeRefresher{}
	users := &fakeUsers{user: &model.User{ID: "user-1"}}
	s := NewItemStore(&fakeData{}, users, refresher, testLogger(), Options{})

	s.FetchItems(context.Background())

	if refresher.calls != 0 {
		t.Errorf("Refresh calls = %d, want 0 without RetryEmptyFetch", refresher.calls)
	}
}

// =========================================================================
// PAGINATION TESTS
// =========================================================================

func makeRows(n int, start time.Time) []remote.ItemRow {
	rows := make([]remote.ItemRow, n)
	for i := 0; i < n; i++ {
		rows[i] = linkRow("item-"+strconv.Itoa(i), "Item", start.Add(-time.Duration(i)*time.Minute))
	}
	return rows
}

func TestFetchItems_HasMoreAtPageBoundary(t *testing.T) {
	tests := []struct {
		name    string
		own     int
		shared  int
		hasMore bool
	}{
		{"both short", 3, 2, false},
		{"owned at page size", 10, 0, true},
		{"shared at page size", 0, 10, true},
		{"both at page size", 10, 10, true},
		{"just under", 9, 9, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := &fakeData{items: makeRows(tt.own, baseTime)}
			for i := 0; i < tt.shared; i++ {
				row := linkRow("sh-"+strconv.Itoa(i), "Shared", baseTime)
				row.UserID = "user-2"
				data.shares = append(data.shares, shareRow("rel-"+strconv.Itoa(i), row, baseTime))
			}
			s := newTestStore(data, Options{})

			s.FetchItems(context.Background())

			if got := s.HasMore(); got != tt.hasMore {
				t.Errorf("HasMore() = %v, want %v", got, tt.hasMore)
			}
		})
	}
}

func TestFetchNextPage_AppendsAndAdvances(t *testing.T) {
	data := &fakeData{items: makeRows(10, baseTime)}
	s := newTestStore(data, Options{})
	s.FetchItems(context.Background())

	if !s.HasMore() {
		t.Fatal("HasMore() should be true when the owned list fills a page")
	}

	// Three older rows surface behind offset 10 for the second page.
	for i := 0; i < 3; i++ {
		data.items = append(data.items,
			linkRow("older-"+strconv.Itoa(i), "Older", baseTime.Add(-24*time.Hour)))
	}
	s.FetchNextPage(context.Background())

	if got := len(s.Items()); got != 13 {
		t.Errorf("collection size = %d, want 13", got)
	}
	if s.Page() != 2 {
		t.Errorf("Page() = %d, want 2", s.Page())
	}
	if s.HasMore() {
		t.Error("HasMore() should be false after a short page")
	}
}

func TestFetchNextPage_NoOpWhenExhausted(t *testing.T) {
	data := &fakeData{items: makeRows(3, baseTime)}
	s := newTestStore(data, Options{})
	s.FetchItems(context.Background())

	callsAfterFetch := data.listCalls
	s.FetchNextPage(context.Background())

	if data.listCalls != callsAfterFetch {
		t.Error("FetchNextPage should not hit the remote once hasMore is false")
	}
	if s.Page() != 1 {
		t.Errorf("Page() = %d, want unchanged 1", s.Page())
	}
}

func TestFetchNextPage_CustomPageSize(t *testing.T) {
	data := &fakeData{items: makeRows(3, baseTime)}
	s := newTestStore(data, Options{PageSize: 3})
	s.FetchItems(context.Background())

	if !s.HasMore() {
		t.Fatal("HasMore() should be true when the first fetch fills the configured page")
	}

	for i := 0; i < 2; i++ {
		data.items = append(data.items,
			linkRow("older-"+strconv.Itoa(i), "Older", baseTime.Add(-24*time.Hour)))
	}
	s.FetchNextPage(context.Background())

	if got := len(s.Items()); got != 5 {
		t.Errorf("collection size = %d, want 5", got)
	}
	if s.Page() != 2 {
		t.Errorf("Page() = %d, want 2", s.Page())
	}
	if s.HasMore() {
		t.Error("HasMore() should be false after a two-row page of size three")
	}
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func docsDraft() model.ItemDraft {
	return model.ItemDraft{
		Kind:    model.KindLink,
		Title:   "Docs",
		URL:     "https://docs.example",
		IsSaved: true,
	}
}

func TestCreateItem_Success(t *testing.T) {
	data := &fakeData{}
	s := newTestStore(data, Options{})

	item := s.CreateItem(context.Background(), docsDraft())

	if item == nil {
		t.Fatal("CreateItem() = nil, want the stored item")
	}
	if item.ID != "42" {
		t.Errorf("ID = %q, want backend-assigned %q", item.ID, "42")
	}
	if !item.CreatedAt.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("CreatedAt = %v, want the backend's timestamp", item.CreatedAt)
	}
	if item.Local {
		t.Error("a remotely stored item must not be flagged Local")
	}
	if got := itemIDs(s.Items()); len(got) != 1 || got[0] != "42" {
		t.Errorf("collection = %v, want [42] prepended", got)
	}
	if len(data.inserted) != 1 || data.inserted[0].UserID != "user-1" {
		t.Errorf("inserted rows = %+v, want one owned by user-1", data.inserted)
	}
}

func TestCreateItem_PrependsNewest(t *testing.T) {
	data := &fakeData{items: []remote.ItemRow{linkRow("old", "Old", baseTime)}}
	s := newTestStore(data, Options{})
	s.FetchItems(context.Background())

	s.CreateItem(context.Background(), docsDraft())

	if got := itemIDs(s.Items()); got[0] != "42" {
		t.Errorf("collection = %v, want the new item first", got)
	}
}

func TestCreateItem_RemoteFailureSynthesizesLocal(t *testing.T) {
	data := &fakeData{insertErr: &remote.Error{Code: remote.CodeDuplicateKey}}
	s := newTestStore(data, Options{})

	before := time.Now().UnixMilli()
	item := s.CreateItem(context.Background(), docsDraft())
	after := time.Now().UnixMilli()

	if item == nil {
		t.Fatal("CreateItem() = nil; with the default policy the caller still gets an item")
	}
	if !item.Local {
		t.Error("the synthesized item must carry the Local flag")
	}
	id, err := strconv.ParseInt(item.ID, 10, 64)
	if err != nil || id < before || id > after {
		t.Errorf("ID = %q, want a millisecond timestamp between %d and %d", item.ID, before, after)
	}
	if item.Title != "Docs" || item.URL != "https://docs.example" {
		t.Errorf("item = %+v, want the draft's fields", item)
	}
	if got := s.Err(); got != "This item already exists" {
		t.Errorf("Err() = %q, want the duplicate-key message", got)
	}
	if got := itemIDs(s.Items()); len(got) != 1 || got[0] != item.ID {
		t.Errorf("collection = %v, want the local stand-in prepended", got)
	}
}

func TestCreateItem_AbortPolicyReturnsNil(t *testing.T) {
	data := &fakeData{insertErr: &remote.Error{Code: "boom"}}
	policies := DefaultPolicies()
	policies[OpCreate] = Abort
	s := newTestStore(data, Options{Policies: policies})

	item := s.CreateItem(context.Background(), docsDraft())

	if item != nil {
		t.Errorf("CreateItem() = %+v, want nil under the abort policy", item)
	}
	if len(s.Items()) != 0 {
		t.Error("collection should stay empty under the abort policy")
	}
	if s.Err() == "" {
		t.Error("the failure must still be recorded")
	}
}

func TestCreateItem_Unauthenticated(t *testing.T) {
	s := NewItemStore(&fakeData{}, &fakeUsers{}, nil, testLogger(), Options{})

	if item := s.CreateItem(context.Background(), docsDraft()); item != nil {
		t.Errorf("CreateItem() = %+v, want nil without a user", item)
	}
	if got := s.Err(); got != "User not authenticated" {
		t.Errorf("Err() = %q, want %q", got, "User not authenticated")
	}
}

func TestCreateItem_InvalidDraft(t *testing.T) {
	tests := []struct {
		name  string
		draft model.ItemDraft
	}{
		{"unknown kind", model.ItemDraft{Kind: "video", Title: "T"}},
		{"empty title", model.ItemDraft{Kind: model.KindLink, URL: "https://x"}},
		{"link without url", model.ItemDraft{Kind: model.KindLink, Title: "T"}},
		{"link with content", model.ItemDraft{Kind: model.KindLink, Title: "T", URL: "https://x", Content: "c"}},
		{"note without content", model.ItemDraft{Kind: model.KindNote, Title: "T"}},
		{"note with url", model.ItemDraft{Kind: model.KindNote, Title: "T", Content: "c", URL: "https://x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := &fakeData{}
			s := newTestStore(data, Options{})

			if item := s.CreateItem(context.Background(), tt.draft); item != nil {
				t.Errorf("CreateItem() = %+v, want nil for an invalid draft", item)
			}
			if s.Err() == "" {
				t.Error("validation failure must be recorded")
			}
			if len(data.inserted) != 0 {
				t.Error("invalid drafts must never reach the remote")
			}
		})
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func TestUpdateItem_AppliesPatch(t *testing.T) {
	data := &fakeData{items: []remote.ItemRow{linkRow("a", "A", baseTime)}}
	s := newTestStore(data, Options{})
	s.FetchItems(context.Background())

	s.UpdateItem(context.Background(), "a", model.ItemPatch{IsSaved: boolPtr(true)})

	if got := s.Items()[0]; !got.IsSaved {
		t.Error("IsSaved should be true after the patch")
	}
	if len(data.updatedIDs) != 1 || data.updatedIDs[0] != "a" {
		t.Errorf("remote updates = %v, want [a]", data.updatedIDs)
	}
	if s.Err() != "" {
		t.Errorf("Err() = %q, want empty", s.Err())
	}
}

func TestUpdateItem_RemoteFailureStillAppliesLocally(t *testing.T) {
	data := &fakeData{items: []remote.ItemRow{linkRow("a", "A", baseTime)}}
	s := newTestStore(data, Options{})
	s.FetchItems(context.Background())

	data.updateErr = &remote.Error{Code: remote.CodeNotFound}
	s.UpdateItem(context.Background(), "a", model.ItemPatch{Title: strPtr("Renamed")})

	if got := s.Items()[0].Title; got != "Renamed" {
		t.Errorf("Title = %q, want locally applied %q", got, "Renamed")
	}
	if got := s.Err(); got != "Resource not found" {
		t.Errorf("Err() = %q, want the failure recorded", got)
	}
}

func TestUpdateItem_UnknownIDLeavesCollectionUnchanged(t *testing.T) {
	data := &fakeData{
		items: []remote.ItemRow{linkRow("a", "A", baseTime)},
	}
	s := newTestStore(data, Options{})
	s.FetchItems(context.Background())

	data.updateErr = &remote.Error{Code: remote.CodeNotFound}
	s.UpdateItem(context.Background(), "ghost", model.ItemPatch{Title: strPtr("X")})

	if got := s.Items()[0].Title; got != "A" {
		t.Errorf("Title = %q, want untouched %q", got, "A")
	}
	if s.Err() == "" {
		t.Error("the remote failure must still be recorded")
	}
}

func TestUpdateItem_AbortPolicySkipsLocalApply(t *testing.T) {
	data := &fakeData{items: []remote.ItemRow{linkRow("a", "A", baseTime)}}
	policies := DefaultPolicies()
	policies[OpUpdate] = Abort
	s := newTestStore(data, Options{Policies: policies})
	s.FetchItems(context.Background())

	data.updateErr = &remote.Error{Code: "boom"}
	s.UpdateItem(context.Background(), "a", model.ItemPatch{Title: strPtr("Renamed")})

	if got := s.Items()[0].Title; got != "A" {
		t.Errorf("Title = %q, want unchanged under the abort policy", got)
	}
}

func TestUpdateItem_SharedWithMeRefused(t *testing.T) {
	row := linkRow("s1", "Theirs", baseTime)
	row.UserID = "user-2"
	data := &fakeData{shares: []remote.ShareRow{shareRow("rel-1", row, baseTime)}}
	s := newTestStore(data, Options{})
	s.FetchItems(context.Background())

	s.UpdateItem(context.Background(), "s1", model.ItemPatch{Title: strPtr("Mine now")})

	if got := s.Items()[0].Title; got != "Theirs" {
		t.Errorf("Title = %q, shared items must stay read-only", got)
	}
	if len(data.updatedIDs) != 0 {
		t.Error("the remote must not be called for a shared-with-me item")
	}
	if s.Err() == "" {
		t.Error("the refusal must be recorded as an error")
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestDeleteItem_RemovesSharesThenItem(t *testing.T) {
	data := &fakeData{items: []remote.ItemRow{linkRow("a", "A", baseTime)}}
	s := newTestStore(data, Options{})
	s.FetchItems(context.Background())

	s.DeleteItem(context.Background(), "a")

	if len(s.Items()) != 0 {
		t.Errorf("collection = %v, want empty", itemIDs(s.Items()))
	}
	if len(data.deletedShares) != 1 || data.deletedShares[0] != "a" {
		t.Errorf("share cleanup calls = %v, want [a]", data.deletedShares)
	}
	if len(data.deletedIDs) != 1 || data.deletedIDs[0] != "a" {
		t.Errorf("item deletes = %v, want [a]", data.deletedIDs)
	}
}

func TestDeleteItem_RemoteFailureStillRemovesLocally(t *testing.T) {
	data := &fakeData{items: []remote.ItemRow{linkRow("a", "A", baseTime)}}
	s := newTestStore(data, Options{})
	s.FetchItems(context.Background())

	data.deleteErr = &remote.Error{Code: remote.CodeNotFound}
	s.DeleteItem(context.Background(), "a")

	if len(s.Items()) != 0 {
		t.Error("the local entry is removed regardless of the remote outcome")
	}
	if s.Err() == "" {
		t.Error("the remote failure must be recorded")
	}
}

func TestDeleteItem_ShareCleanupFailureIsNotFatal(t *testing.T) {
	data := &fakeData{
		items: []remote.ItemRow{linkRow("a", "A", baseTime)},
	}
	s := newTestStore(data, Options{})
	s.FetchItems(context.Background())

	data.deleteSharesErr = &remote.Error{Code: "boom"}
	s.DeleteItem(context.Background(), "a")

	if len(data.deletedIDs) != 1 {
		t.Error("the item delete must proceed after a failed share cleanup")
	}
	if len(s.Items()) != 0 {
		t.Error("the local entry must still be removed")
	}
	if s.Err() != "" {
		t.Errorf("Err() = %q, a failed share cleanup alone is only logged", s.Err())
	}
}

// =========================================================================
// SHARE TESTS
// =========================================================================

func TestShareItem_Success(t *testing.T) {
	data := &fakeData{items: []remote.ItemRow{linkRow("a", "A", baseTime)}}
	s := newTestStore(data, Options{})
	s.FetchItems(context.Background())

	s.ShareItem(context.Background(), "a", "user-2")

	if len(data.sharedItems) != 1 || data.sharedWith[0] != "user-2" {
		t.Errorf("share calls = %v → %v, want a → user-2", data.sharedItems, data.sharedWith)
	}
	if !s.Items()[0].IsShared {
		t.Error("the local entry should be flagged shared")
	}
	// The flag flip also goes to the backend.
	if len(data.updatedIDs) != 1 || data.updatedIDs[0] != "a" {
		t.Errorf("flag-flip updates = %v, want [a]", data.updatedIDs)
	}
	if data.updates[0].IsShared == nil || !*data.updates[0].IsShared {
		t.Errorf("flag-flip update = %+v, want is_shared=true", data.updates[0])
	}
}

func TestShareItem_FailureAborts(t *testing.T) {
	data := &fakeData{
		items: []remote.ItemRow{linkRow("a", "A", baseTime)},
	}
	s := newTestStore(data, Options{})
	s.FetchItems(context.Background())

	data.shareErr = &remote.Error{Code: remote.CodeDuplicateKey}
	s.ShareItem(context.Background(), "a", "user-2")

	if s.Items()[0].IsShared {
		t.Error("IsShared must stay false when the share aborts")
	}
	if got := s.Err(); got != "This item already exists" {
		t.Errorf("Err() = %q, want the duplicate-key message", got)
	}
	if len(data.updatedIDs) != 0 {
		t.Error("no flag flip should be attempted after a failed share")
	}
}

func TestShareItem_FlagFlipFailureIsNotFatal(t *testing.T) {
	data := &fakeData{
		items: []remote.ItemRow{linkRow("a", "A", baseTime)},
	}
	s := newTestStore(data, Options{})
	s.FetchItems(context.Background())

	data.updateErr = &remote.Error{Code: "boom"}
	s.ShareItem(context.Background(), "a", "user-2")

	if !s.Items()[0].IsShared {
		t.Error("the local flag is still set; the relation was recorded")
	}
	if s.Err() != "" {
		t.Errorf("Err() = %q, a failed flag flip alone is only logged", s.Err())
	}
}

func TestShareItem_ApplyLocallyPolicy(t *testing.T) {
	data := &fakeData{items: []remote.ItemRow{linkRow("a", "A", baseTime)}}
	policies := DefaultPolicies()
	policies[OpShare] = ApplyLocally
	s := newTestStore(data, Options{Policies: policies})
	s.FetchItems(context.Background())

	data.shareErr = &remote.Error{Code: "boom"}
	s.ShareItem(context.Background(), "a", "user-2")

	if !s.Items()[0].IsShared {
		t.Error("with ApplyLocally configured the local flag flips despite the failure")
	}
	if s.Err() == "" {
		t.Error("the failure must still be recorded")
	}
}

// =========================================================================
// ERROR PRECEDENCE
// =========================================================================

func TestOperationErrors_UseNormalizedMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"verbatim message", &remote.Error{Code: "x", Message: "custom"}, "custom"},
		{"known code", &remote.Error{Code: remote.CodeInvalidInput}, "Invalid input data"},
		{"unknown code", &remote.Error{Code: "weird"}, "Error code: weird"},
		{"plain error", context.DeadlineExceeded, apperror.FallbackMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := &fakeData{items: []remote.ItemRow{linkRow("a", "A", baseTime)}}
			s := newTestStore(data, Options{})
			s.FetchItems(context.Background())

			data.deleteErr = tt.err
			s.DeleteItem(context.Background(), "a")

			if got := s.Err(); got != tt.want {
				t.Errorf("Err() = %q, want %q", got, tt.want)
			}
		})
	}
}
