// Package domainerrors provides coded errors shared across the service.
// Handlers translate codes to HTTP statuses in one place so domain logic
// never imports net/http.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies the failure class of a domain error. Callers branch on
// codes, not on message text.
type Code string

const (
	// CodeValidation: malformed or missing request fields.
	CodeValidation Code = "validation_error"
	// CodeOwnership: attestation subject does not match the requesting identity.
	CodeOwnership Code = "ownership_error"
	// CodeVerification: cryptographic proof failure, disallowed provider, or
	// context binding mismatch.
	CodeVerification Code = "verification_error"
	// CodeReplay: a proof or issued quote was reused inside its validity window.
	CodeReplay Code = "replay_error"
	// CodeRateLimited: request rejected by windowed rate limiting.
	CodeRateLimited Code = "rate_limited"
	// CodeBackendUnavailable: a required shared backend is unreachable and the
	// fail-closed policy is in effect.
	CodeBackendUnavailable Code = "backend_unavailable"
	// CodeInternal: unexpected arithmetic, encoding, or signing failure.
	CodeInternal Code = "internal_error"
)

// Error carries a code, a stable reason string, and an optional retry hint.
type Error struct {
	Code       Code
	Reason     string
	Message    string
	RetryAfter int // seconds; only meaningful for 429/503 responses
	wrapped    error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// New creates a domain error with the given code and message. The reason
// defaults to the message; use WithReason for a distinct machine code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Reason: message, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Reason: message, Message: message, wrapped: err}
}

// WithReason sets a stable machine-readable reason distinct from the message.
func (e *Error) WithReason(reason string) *Error {
	e.Reason = reason
	return e
}

// WithRetryAfter sets the retry hint in seconds.
func (e *Error) WithRetryAfter(seconds int) *Error {
	e.RetryAfter = seconds
	return e
}

// HasCode reports whether err is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ReasonOf extracts the stable reason from err, defaulting to "internal_error".
func ReasonOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Reason
	}
	return string(CodeInternal)
}

// RetryAfterOf extracts the retry hint from err, or 0 when absent.
func RetryAfterOf(err error) int {
	var de *Error
	if errors.As(err, &de) {
		return de.RetryAfter
	}
	return 0
}

// ToHTTPStatus maps a code to its HTTP status class.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeOwnership, CodeVerification:
		return http.StatusBadRequest
	case CodeReplay:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeBackendUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
