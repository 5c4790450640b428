package remote

import "fmt"

// Known backend error codes, as they appear on the wire. The apperror
// normalizer owns the code→message table; these constants only name the
// values so implementations and tests don't scatter string literals.
const (
	CodeNotFound     = "not-found"
	CodeInvalidInput = "invalid-input"
	CodeDuplicateKey = "duplicate-key"
	CodeUnauthorized = "unauthorized"
)

// Error is the heterogeneous error shape surfaced by the backend: sometimes
// a human-readable message, sometimes only a machine code, sometimes both.
type Error struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote: %s", e.Message)
	}
	return fmt.Sprintf("remote: code %s", e.Code)
}

// UserMessage returns the backend's human-readable message, or "" when the
// error only carries a code. Feeds the first step of apperror.Normalize.
func (e *Error) UserMessage() string {
	return e.Message
}

// ErrorCode returns the backend error code, or "".
func (e *Error) ErrorCode() string {
	return e.Code
}
