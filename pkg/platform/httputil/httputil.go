// Package httputil centralizes JSON response writing so every handler emits
// the same envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	dErrors "fairgate/pkg/domain-errors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the JSON envelope for failed requests. Reason is a stable
// machine-readable code callers can branch on.
type ErrorResponse struct {
	Error      string `json:"error"`
	Reason     string `json:"reason"`
	Message    string `json:"message,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// WriteError translates a domain error into an HTTP response. Internal errors
// omit the message so infrastructure details never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)
	retryAfter := dErrors.RetryAfterOf(err)

	resp := ErrorResponse{
		Error:      string(code),
		Reason:     dErrors.ReasonOf(err),
		RetryAfter: retryAfter,
	}
	if code == dErrors.CodeInternal {
		resp.Reason = string(dErrors.CodeInternal)
	} else {
		var de *dErrors.Error
		if errors.As(err, &de) {
			resp.Message = de.Message
		}
	}

	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	WriteJSON(w, status, resp)
}
