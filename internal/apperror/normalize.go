package apperror

import (
	"errors"
	"fmt"
)

// FallbackMessage is returned by Normalize when an error carries neither a
// human-readable message nor a recognized code.
const FallbackMessage = "An unexpected error occurred"

// Messager is implemented by errors that carry a message meant for users,
// such as the remote package's wire error.
type Messager interface {
	UserMessage() string
}

// Coder is implemented by errors that expose a backend error code.
type Coder interface {
	ErrorCode() string
}

// codeMessages maps known backend error codes to display strings.
var codeMessages = map[string]string{
	"not-found":     "Resource not found",
	"invalid-input": "Invalid input data",
	"duplicate-key": "This item already exists",
}

// Normalize maps an arbitrary error from the remote data service to a single
// user-facing message string.
//
// Precedence: a human-readable message on the error is returned verbatim;
// otherwise a known code is mapped through the fixed code table (unknown
// codes render as "Error code: {code}"); otherwise the generic fallback.
// Pure with respect to its input — no logging, no side effects.
func Normalize(err error) string {
	if err == nil {
		return ""
	}

	var m Messager
	if errors.As(err, &m) {
		if msg := m.UserMessage(); msg != "" {
			return msg
		}
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}

	var c Coder
	if errors.As(err, &c) {
		if code := c.ErrorCode(); code != "" {
			if msg, ok := codeMessages[code]; ok {
				return msg
			}
			return fmt.Sprintf("Error code: %s", code)
		}
	}

	return FallbackMessage
}
