// Package handler contains the HTTP layer of stashd: request parsing,
// response shaping, and nothing else. Ownership rules and storage live
// below it.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/stash/internal/apperror"
	"github.com/sakif/stash/internal/auth"
	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/remote"
	"github.com/sakif/stash/internal/repository"
)

// maxPageLimit caps a single list page so a client can't pull the whole
// table in one request.
const maxPageLimit = 100

// ItemHandler serves the items and shares API. Every route sits behind
// auth.RequireAuth; the owner scope for each storage call comes from the
// access token, never from the request body.
type ItemHandler struct {
	items  repository.ItemRepository
	shares repository.ShareRepository
	logger *slog.Logger
}

// NewItemHandler creates an ItemHandler.
func NewItemHandler(items repository.ItemRepository, shares repository.ShareRepository, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{items: items, shares: shares, logger: logger}
}

// HandleListOwned returns the caller's own items, newest first.
//
// HTTP: GET /api/items?limit=10&offset=0
func (h *ItemHandler) HandleListOwned(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())

	rows, err := h.items.ListByOwner(r.Context(), accountID, listOptions(r))
	if err != nil {
		h.logger.Error("failed to list items", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []remote.ItemRow{}
	}

	writeJSON(w, http.StatusOK, rows)
}

// HandleListShared returns the share relations pointing at the caller,
// most recently shared first, each joined with its item.
//
// HTTP: GET /api/shared?limit=10&offset=0
func (h *ItemHandler) HandleListShared(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())

	rows, err := h.shares.ListForRecipient(r.Context(), accountID, listOptions(r))
	if err != nil {
		h.logger.Error("failed to list shares", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []remote.ShareRow{}
	}

	writeJSON(w, http.StatusOK, rows)
}

// HandleCreate inserts a new item owned by the caller and returns the row
// as stored, with the assigned id and timestamps.
//
// HTTP: POST /api/items
func (h *ItemHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())

	var row remote.ItemRow
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if err := validateRow(&row); err != nil {
		writeError(w, err)
		return
	}
	row.UserID = accountID // owner comes from the token, not the body

	stored, err := h.items.Insert(r.Context(), row)
	if err != nil {
		h.logger.Error("failed to insert item", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	h.logger.Info("item created",
		slog.String("id", stored.ID),
		slog.String("type", stored.Type),
	)
	writeJSON(w, http.StatusCreated, stored)
}

// HandleUpdate applies a partial update to the caller's item.
//
// HTTP: PATCH /api/items/{id}
func (h *ItemHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())
	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "item ID is required"))
		return
	}

	var upd remote.ItemUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}
	if upd.UpdatedAt.IsZero() {
		upd.UpdatedAt = time.Now().UTC()
	}

	if err := h.items.UpdatePartial(r.Context(), id, accountID, upd); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete removes the caller's item.
//
// HTTP: DELETE /api/items/{id}
func (h *ItemHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())
	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "item ID is required"))
		return
	}

	if err := h.items.Delete(r.Context(), id, accountID); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("item deleted", slog.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}

// shareRequest is the body of POST /api/items/{id}/share.
type shareRequest struct {
	SharedWith string `json:"shared_with"`
}

// HandleShare records a share of the caller's item with another account.
// The item must exist and belong to the caller.
//
// HTTP: POST /api/items/{id}/share
func (h *ItemHandler) HandleShare(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())
	id := r.PathValue("id")

	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.SharedWith) == "" {
		writeError(w, apperror.ValidationFailed("shared_with", "recipient is required"))
		return
	}

	// Sharing someone else's item (or a ghost id) is a not-found, same as
	// the storage layer would report for a scoped mutation.
	item, err := h.items.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if item.UserID != accountID {
		writeError(w, apperror.NotFound("item", id))
		return
	}

	row, err := h.shares.Insert(r.Context(), id, accountID, req.SharedWith)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("item shared",
		slog.String("itemID", id),
		slog.String("recipientID", req.SharedWith),
	)
	writeJSON(w, http.StatusCreated, row)
}

// HandleDeleteShares removes every share relation the caller created for
// the item. Matching nothing still succeeds.
//
// HTTP: DELETE /api/items/{id}/shares
func (h *ItemHandler) HandleDeleteShares(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())
	id := r.PathValue("id")

	if err := h.shares.DeleteByItemAndSharer(r.Context(), id, accountID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// listOptions parses limit/offset query parameters, clamped to sane values.
func listOptions(r *http.Request) repository.ListOptions {
	var opts repository.ListOptions
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			if n > maxPageLimit {
				n = maxPageLimit
			}
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Offset = n
		}
	}
	return opts
}

// validateRow enforces the creation contract on the wire row: a known type,
// a title, and the variant column the type calls for.
func validateRow(row *remote.ItemRow) error {
	if !model.Kind(row.Type).Valid() {
		return apperror.ValidationFailed("type", "item type must be link or note")
	}
	if strings.TrimSpace(row.Title) == "" {
		return apperror.ValidationFailed("title", "item title is required")
	}
	switch model.Kind(row.Type) {
	case model.KindLink:
		if row.URL == nil || strings.TrimSpace(*row.URL) == "" {
			return apperror.ValidationFailed("url", "link URL is required")
		}
		row.Content = nil
	case model.KindNote:
		if row.Content == nil || strings.TrimSpace(*row.Content) == "" {
			return apperror.ValidationFailed("content", "note content is required")
		}
		row.URL = nil
		row.ImageURL = nil
	}
	return nil
}
