// Package ratelimit applies fixed-window request limits per network origin
// and per identity. The origin window is checked first so unauthenticated
// floods are cut before any identity parsing happens.
package ratelimit

import (
	"context"
	"time"
)

// Scopes used in limit keys and audit events.
const (
	ScopeOrigin   = "origin"
	ScopeIdentity = "identity"
)

// DefaultWindow is the counting window when none is configured.
const DefaultWindow = time.Minute

// Counter increments the window counter for a key and reports the new count
// plus the time left in the window. The increment and the window expiry must
// be atomic in shared backends.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, remaining time.Duration, err error)
}
