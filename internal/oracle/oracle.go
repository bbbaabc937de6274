// Package oracle holds the ed25519 signing identity for issued quotes.
// Verifiers pin the oracle public key, so hardened deployments must run with
// a static key; an ephemeral key is a development convenience only.
package oracle

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrStaticKeyRequired is returned when no static key material is configured
// and the deployment forbids ephemeral fallback.
var ErrStaticKeyRequired = errors.New(
	"static oracle key required: set ORACLE_PRIVATE_KEY or ORACLE_KEYPAIR_PATH, or allow ephemeral keys outside hardened deployments")

// Options controls where the signing key comes from.
type Options struct {
	// PrivateKey is inline key material: a JSON byte array (64-byte secret
	// key or 32-byte seed) or a hex string of the same.
	PrivateKey string
	// KeypairPath points at a JSON byte-array keypair file.
	KeypairPath string
	// RequireStatic rejects startup when neither source yields a key.
	RequireStatic bool
}

// Signer signs encoded payloads with the oracle identity.
type Signer struct {
	priv      ed25519.PrivateKey
	pub       ed25519.PublicKey
	ephemeral bool
}

// NewSigner resolves the key in order: inline material, keypair file,
// generated ephemeral key. The last step is refused under RequireStatic.
func NewSigner(opts Options) (*Signer, error) {
	if opts.PrivateKey != "" {
		priv, err := parseKeyMaterial([]byte(opts.PrivateKey))
		if err != nil {
			return nil, fmt.Errorf("parse inline oracle key: %w", err)
		}
		return fromPrivate(priv, false), nil
	}

	if opts.KeypairPath != "" {
		raw, err := os.ReadFile(opts.KeypairPath)
		if err != nil {
			return nil, fmt.Errorf("read oracle keypair file: %w", err)
		}
		priv, err := parseKeyMaterial(raw)
		if err != nil {
			return nil, fmt.Errorf("parse oracle keypair file: %w", err)
		}
		return fromPrivate(priv, false), nil
	}

	if opts.RequireStatic {
		return nil, ErrStaticKeyRequired
	}

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ephemeral oracle key: %w", err)
	}
	return fromPrivate(priv, true), nil
}

func fromPrivate(priv ed25519.PrivateKey, ephemeral bool) *Signer {
	return &Signer{
		priv:      priv,
		pub:       priv.Public().(ed25519.PublicKey),
		ephemeral: ephemeral,
	}
}

// parseKeyMaterial accepts a JSON byte array or a hex string, holding either
// a 64-byte ed25519 secret key or a 32-byte seed.
func parseKeyMaterial(raw []byte) (ed25519.PrivateKey, error) {
	trimmed := strings.TrimSpace(string(raw))

	var key []byte
	if strings.HasPrefix(trimmed, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(trimmed), &ints); err != nil {
			return nil, fmt.Errorf("invalid JSON byte array: %w", err)
		}
		key = make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("byte %d out of range at index %d", v, i)
			}
			key[i] = byte(v)
		}
	} else {
		decoded, err := hex.DecodeString(trimmed)
		if err != nil {
			return nil, fmt.Errorf("invalid hex key: %w", err)
		}
		key = decoded
	}

	switch len(key) {
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(key), nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(key), nil
	default:
		return nil, fmt.Errorf("key must be %d or %d bytes, got %d",
			ed25519.PrivateKeySize, ed25519.SeedSize, len(key))
	}
}

// Sign returns the 64-byte detached signature over message.
func (s *Signer) Sign(message []byte) []byte {
	return ed25519.Sign(s.priv, message)
}

// PublicKey returns the oracle verification key.
func (s *Signer) PublicKey() ed25519.PublicKey { return s.pub }

// PublicKeyHex returns the verification key as lowercase hex.
func (s *Signer) PublicKeyHex() string { return hex.EncodeToString(s.pub) }

// Ephemeral reports whether the key was generated at startup rather than
// loaded from configuration.
func (s *Signer) Ephemeral() bool { return s.ephemeral }
