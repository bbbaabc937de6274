// Package replay prevents a verified proof from being exchanged for more
// than one signed quote. A claim is a first-writer-wins reservation with a
// TTL matching the quote expiry window.
package replay

import (
	"context"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"
)

// Key prefixes namespace claims in shared backends. The verifier's
// per-proof identifiers and the quote service's uniq keys are separate
// replay domains; both are hex digests, so without distinct namespaces a
// claim in one domain could block the other.
const (
	KeyPrefixProof = "shield:proof-id"
	KeyPrefixQuote = "shield:quote-uniq"
)

// DefaultTTL bounds how long a claim is held when the caller does not
// specify one.
const DefaultTTL = 5 * time.Minute

// ClaimStore reserves a key for a single use. Claim returns true when the
// caller won the reservation, false when the key was already claimed. An
// error means the backend could not answer either way.
type ClaimStore interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// UniqKey derives the per-quote uniqueness key from the proof hash and the
// buyer identity, as Keccak-256 over their concatenation. Both sides pin the
// same derivation, so the construction is part of the protocol.
func UniqKey(proofHash [32]byte, identity [32]byte) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(proofHash[:])
	h.Write(identity[:])
	return hex.EncodeToString(h.Sum(nil))
}
