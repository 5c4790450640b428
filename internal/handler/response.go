package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/stash/internal/apperror"
	"github.com/sakif/stash/internal/remote"
)

// ErrorResponse is the error shape every endpoint returns. The error field
// carries one of the remote.Code* values; clients feed the whole object to
// their error normalizer, so both fields matter.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON sends data with the given status. Headers and status must go
// out before the body — Encode writes immediately.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError translates a domain error into the HTTP response. The service
// and repository layers speak apperror sentinels; only here do they become
// status codes and wire codes.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		code := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			code = remote.CodeInvalidInput
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			code = remote.CodeNotFound
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			code = remote.CodeDuplicateKey
		case errors.Is(err, apperror.ErrUnauthenticated):
			status = http.StatusUnauthorized
			code = remote.CodeUnauthorized
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			code = "forbidden"
		}

		writeJSON(w, status, ErrorResponse{Error: code, Message: appErr.Message})
		return
	}

	// Unknown error: generic 500, no internal details on the wire.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
