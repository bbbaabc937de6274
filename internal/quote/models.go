package quote

import (
	"fairgate/internal/scoring"
)

// Request is a quote issuance request. Identity is the buyer's 32-byte
// public key as 64 hex characters. Economic overrides are optional; absent
// fields fall back to the configured defaults.
type Request struct {
	Identity     string                   `json:"identity"`
	Attestations []scoring.RawAttestation `json:"attestations"`
	Mode         string                   `json:"mode,omitempty"`

	InitialPrice     *uint64 `json:"initial_price,omitempty"`
	SalesVelocityBPS *int64  `json:"sales_velocity_bps,omitempty"`
	TimeElapsed      *uint64 `json:"time_elapsed,omitempty"`

	ZKProvider    *uint8 `json:"zk_provider,omitempty"`
	PolicyVersion *uint8 `json:"policy_version,omitempty"`

	// ProofHashHex optionally pins the 32-byte proof hash; otherwise the
	// hash is derived from the attestation bundle.
	ProofHashHex string `json:"proof_hash_hex,omitempty"`
}

// PayloadView mirrors the signed payload in readable form. 64-bit values
// are strings so JavaScript consumers do not lose precision.
type PayloadView struct {
	PolicyVersion       uint8  `json:"policy_version"`
	Identity            string `json:"identity"`
	InitialPrice        string `json:"initial_price"`
	SalesVelocityBPS    string `json:"sales_velocity_bps"`
	TimeElapsed         string `json:"time_elapsed"`
	DignityScore        uint8  `json:"dignity_score"`
	AdapterMask         uint8  `json:"adapter_mask"`
	UserMode            uint8  `json:"user_mode"`
	ZKProvider          uint8  `json:"zk_provider"`
	ProofHashHex        string `json:"zk_proof_hash_hex"`
	ScoringModelHashHex string `json:"scoring_model_hash_hex"`
	AttestationExpiry   string `json:"attestation_expiry"`
	Nonce               string `json:"nonce"`
}

// PriceView is the pricing outcome included in the response.
type PriceView struct {
	FinalPrice           string `json:"final_price"`
	Blocked              bool   `json:"blocked"`
	IsInfinite           bool   `json:"is_infinite"`
	EffectiveVelocityBPS int64  `json:"effective_velocity_bps"`
}

// Privacy states what the service retains. The flags are constant; they are
// part of the response so integrators can display them without a doc lookup.
type Privacy struct {
	StoresRawCredentials  bool `json:"stores_raw_credentials"`
	StoresPrivateContent  bool `json:"stores_private_content"`
	StoresMinimalMetadata bool `json:"stores_minimal_metadata"`
}

// Response is a successfully issued quote.
type Response struct {
	DignityScore        int               `json:"dignity_score"`
	AdapterBreakdown    scoring.Breakdown `json:"adapter_breakdown"`
	Price               PriceView         `json:"price"`
	Payload             PayloadView       `json:"payload"`
	PayloadHex          string            `json:"payload_hex"`
	SignatureHex        string            `json:"oracle_signature_hex"`
	SignatureBase64     string            `json:"oracle_signature_base64"`
	OraclePubkey        string            `json:"oracle_pubkey"`
	UniqKey             string            `json:"uniq_key"`
	ScoringModelHashHex string            `json:"scoring_model_hash_hex"`
	Privacy             Privacy           `json:"privacy"`
}
