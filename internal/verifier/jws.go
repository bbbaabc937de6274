package verifier

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"fairgate/internal/scoring"
)

// ProofClaims is the claim set each attestation's compact JWS must carry.
// The identifier binds the signature to one attestation, so a valid JWS
// cannot be grafted onto a different proof.
type ProofClaims struct {
	Identifier string `json:"identifier"`
	jwt.RegisteredClaims
}

// JWSChecker verifies the per-attestation compact JWS under the "jws" field
// against registered provider keys. Providers sign with EdDSA; any other
// algorithm is rejected to keep the verification surface closed.
type JWSChecker struct {
	keys map[string]ed25519.PublicKey
}

// NewJWSChecker registers provider verification keys by lowercase name.
func NewJWSChecker(keys map[string]ed25519.PublicKey) *JWSChecker {
	normalized := make(map[string]ed25519.PublicKey, len(keys))
	for name, key := range keys {
		normalized[strings.ToLower(name)] = key
	}
	return &JWSChecker{keys: normalized}
}

// Check verifies every attestation in the bundle. One bad attestation fails
// the whole bundle.
func (c *JWSChecker) Check(_ context.Context, attestations []scoring.RawAttestation) error {
	for i, a := range attestations {
		if err := c.checkOne(a); err != nil {
			return fmt.Errorf("attestation %d: %w", i, err)
		}
	}
	return nil
}

func (c *JWSChecker) checkOne(a scoring.RawAttestation) error {
	raw, _ := a["jws"].(string)
	if raw == "" {
		return fmt.Errorf("missing jws")
	}

	claim, _ := a["claimData"].(map[string]any)
	provider, _ := claim["provider"].(string)
	key, ok := c.keys[strings.ToLower(provider)]
	if !ok {
		return fmt.Errorf("no verification key for provider %q", provider)
	}

	parsed, err := jwt.ParseWithClaims(raw, &ProofClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return key, nil
	})
	if err != nil {
		return fmt.Errorf("verify jws: %w", err)
	}
	if !parsed.Valid {
		return fmt.Errorf("invalid jws")
	}

	claims, ok := parsed.Claims.(*ProofClaims)
	if !ok {
		return fmt.Errorf("invalid jws claims")
	}

	identifier := proofIdentifier(a, claim)
	if claims.Identifier == "" || claims.Identifier != identifier {
		return fmt.Errorf("jws identifier does not match attestation")
	}
	return nil
}
