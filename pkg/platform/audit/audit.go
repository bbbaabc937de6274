// Package audit defines the transport-agnostic audit event model. Events are
// emitted from domain logic and fanned out by a Publisher; sinks decide
// storage and retention.
package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategorySecurity covers events relevant to abuse monitoring and
	// forensics: replay rejections, rate-limit violations, verification
	// failures.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine operational visibility: issued
	// quotes, key provisioning mode at startup.
	CategoryOperations EventCategory = "operations"
)

// Event captures a single auditable action. Subject is the requesting
// identity string; raw attestation content is never placed in events.
type Event struct {
	ID        string        `json:"id"`
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Action    string        `json:"action"`
	Subject   string        `json:"subject"`
	Mode      string        `json:"mode,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// Action names emitted by the quote pipeline.
const (
	ActionQuoteIssued       = "quote_issued"
	ActionQuoteBlocked      = "quote_blocked"
	ActionReplayRejected    = "replay_rejected"
	ActionRateLimitExceeded = "rate_limit_exceeded"
	ActionVerifyRejected    = "verification_rejected"
)

// Publisher emits audit events for security-relevant operations. Emit must
// not block the request path for longer than the sink's own deadline.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
