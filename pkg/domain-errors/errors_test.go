package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	err := New(CodeReplay, "proof already used")
	assert.True(t, HasCode(err, CodeReplay))
	assert.False(t, HasCode(err, CodeValidation))
	assert.False(t, HasCode(errors.New("plain"), CodeReplay))
}

func TestHasCodeThroughWrapping(t *testing.T) {
	inner := New(CodeBackendUnavailable, "redis down")
	outer := fmt.Errorf("checking limits: %w", inner)
	assert.True(t, HasCode(outer, CodeBackendUnavailable))
	assert.Equal(t, CodeBackendUnavailable, CodeOf(outer))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(cause, CodeBackendUnavailable, "replay store unreachable")
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestReasonDistinctFromMessage(t *testing.T) {
	err := New(CodeVerification, "attestation context does not encode subject").
		WithReason("context_identity_mismatch")
	assert.Equal(t, "context_identity_mismatch", ReasonOf(err))
}

func TestRetryAfter(t *testing.T) {
	err := New(CodeRateLimited, "too many requests").WithRetryAfter(42)
	assert.Equal(t, 42, RetryAfterOf(err))
	assert.Equal(t, 0, RetryAfterOf(errors.New("plain")))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:         http.StatusBadRequest,
		CodeOwnership:          http.StatusBadRequest,
		CodeVerification:       http.StatusBadRequest,
		CodeReplay:             http.StatusConflict,
		CodeRateLimited:        http.StatusTooManyRequests,
		CodeBackendUnavailable: http.StatusServiceUnavailable,
		CodeInternal:           http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), string(code))
	}
}
