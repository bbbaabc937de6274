// Package verifier gates attestation bundles before any score is computed.
// The gates run in a fixed order so a rejected bundle never reaches the
// later, more expensive stages, and so the stable rejection reasons are
// meaningful to callers.
package verifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"fairgate/internal/replay"
	"fairgate/internal/scoring"
	dErrors "fairgate/pkg/domain-errors"
)

// Stable rejection reasons surfaced in error envelopes and audit events.
const (
	ReasonNoAttestations      = "no_attestations"
	ReasonSignatureFailed     = "proof_signature_verification_failed"
	ReasonAllowlistRequired   = "provider_allowlist_required"
	ReasonNotAllowlisted      = "provider_not_allowlisted"
	ReasonOwnerMismatch       = "owner_subject_mismatch"
	ReasonContextMismatch     = "context_subject_mismatch"
	ReasonIdentifierMissing   = "proof_identifier_missing"
	ReasonProofReplayDetected = "proof_replay_detected"
	ReasonReplayUnavailable   = "replay_backend_unavailable"
)

// ProofChecker validates the cryptographic integrity of a bundle. An error
// means at least one attestation failed its signature check.
type ProofChecker interface {
	Check(ctx context.Context, attestations []scoring.RawAttestation) error
}

// CheckerFunc adapts a function to the ProofChecker interface.
type CheckerFunc func(ctx context.Context, attestations []scoring.RawAttestation) error

func (f CheckerFunc) Check(ctx context.Context, attestations []scoring.RawAttestation) error {
	return f(ctx, attestations)
}

// Verifier runs the verified-mode gate sequence.
type Verifier struct {
	checker             ProofChecker
	allowlist           map[string]struct{}
	hardened            bool
	requireContextMatch bool
	replayGuard         *replay.Guard
	logger              *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithAllowlist restricts providers to the given lowercase names. An empty
// list disables the restriction outside hardened mode.
func WithAllowlist(providers []string) Option {
	return func(v *Verifier) {
		for _, p := range providers {
			p = strings.ToLower(strings.TrimSpace(p))
			if p != "" {
				v.allowlist[p] = struct{}{}
			}
		}
	}
}

// WithHardened marks the deployment as hardened: an empty allowlist then
// refuses requests as a misconfiguration rather than allowing everything.
func WithHardened(hardened bool) Option {
	return func(v *Verifier) { v.hardened = hardened }
}

// WithContextMatch toggles the structural context binding gate.
func WithContextMatch(require bool) Option {
	return func(v *Verifier) { v.requireContextMatch = require }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// New builds a Verifier. The replay guard claims per-proof identifiers and
// must be distinct from the per-quote uniqueness guard.
func New(checker ProofChecker, replayGuard *replay.Guard, opts ...Option) *Verifier {
	v := &Verifier{
		checker:             checker,
		allowlist:           make(map[string]struct{}),
		requireContextMatch: true,
		replayGuard:         replayGuard,
		logger:              slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// VerifyBundle runs the gates and, on success, returns the claimed proof
// identifiers. The identifier claims are the only side effect; all other
// gates are pure checks.
func (v *Verifier) VerifyBundle(ctx context.Context, subject string, attestations []scoring.RawAttestation) ([]string, error) {
	if len(attestations) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "attestation bundle is empty").
			WithReason(ReasonNoAttestations)
	}

	if err := v.checker.Check(ctx, attestations); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeVerification, "proof signature verification failed").
			WithReason(ReasonSignatureFailed)
	}

	if v.hardened && len(v.allowlist) == 0 {
		return nil, dErrors.New(dErrors.CodeBackendUnavailable, "provider allowlist is required in hardened mode").
			WithReason(ReasonAllowlistRequired)
	}

	identifiers := make([]string, 0, len(attestations))
	for _, a := range attestations {
		claim, _ := a["claimData"].(map[string]any)

		if len(v.allowlist) > 0 {
			provider, _ := claim["provider"].(string)
			if _, ok := v.allowlist[strings.ToLower(provider)]; !ok {
				return nil, dErrors.New(dErrors.CodeVerification, "attestation provider is not allowlisted").
					WithReason(ReasonNotAllowlisted)
			}
		}

		owner, _ := claim["owner"].(string)
		if owner != subject {
			return nil, dErrors.New(dErrors.CodeOwnership, "attestation owner does not match the requesting identity").
				WithReason(ReasonOwnerMismatch)
		}

		if v.requireContextMatch {
			contextRaw, _ := claim["context"].(string)
			if contextSubject(contextRaw) != subject {
				return nil, dErrors.New(dErrors.CodeOwnership, "attestation context does not bind the requesting identity").
					WithReason(ReasonContextMismatch)
			}
		}

		identifier := proofIdentifier(a, claim)
		if identifier == "" {
			return nil, dErrors.New(dErrors.CodeVerification, "attestation carries no proof identifier").
				WithReason(ReasonIdentifierMissing)
		}
		identifiers = append(identifiers, identifier)
	}

	for _, identifier := range identifiers {
		if err := v.replayGuard.Claim(ctx, identifier); err != nil {
			if dErrors.HasCode(err, dErrors.CodeBackendUnavailable) {
				return nil, dErrors.Wrap(err, dErrors.CodeBackendUnavailable, "proof replay store unavailable").
					WithReason(ReasonReplayUnavailable)
			}
			return nil, dErrors.New(dErrors.CodeReplay, "proof identifier was already used").
				WithReason(ReasonProofReplayDetected)
		}
	}

	return identifiers, nil
}

// contextSubject parses the JSON context string and returns the bound
// subject, or "". The binding must be structural: the subject has to appear
// under one of the known keys, a substring match is not enough.
func contextSubject(raw string) string {
	if raw == "" {
		return ""
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return ""
	}
	for _, key := range []string{"contextAddress", "walletAddress", "owner", "wallet", "address"} {
		if s, ok := parsed[key].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func proofIdentifier(a scoring.RawAttestation, claim map[string]any) string {
	if s, ok := a["identifier"].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	if s, ok := claim["identifier"].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return ""
}
