// Package payload encodes the signed shield payload exchanged with the
// settlement program. The wire format is versioned, fixed-length, and
// little-endian; any drift here breaks on-chain verification, so encoding
// fails fast instead of truncating.
package payload

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// V0Len is the exact serialized size of a version 0 shield payload.
const V0Len = 141

// UserMode codes as they appear on the wire.
const (
	ModeBotSuspected uint8 = 0
	ModeGuest        uint8 = 1
	ModeVerified     uint8 = 2
)

var errNot32Bytes = errors.New("value must be 32 bytes")

// Bytes32 converts a slice to the fixed-size form used by the wire fields.
func Bytes32(b []byte) ([32]byte, error) {
	var out [32]byte
	if len(b) != 32 {
		return out, errNot32Bytes
	}
	copy(out[:], b)
	return out, nil
}

// ShieldPayload is the version 0 quote attestation. Field order mirrors the
// wire layout.
type ShieldPayload struct {
	PolicyVersion     uint8
	Identity          [32]byte
	InitialPrice      uint64
	SalesVelocityBPS  int64
	TimeElapsed       uint64
	DignityScore      uint8
	AdapterMask       uint8
	UserMode          uint8
	ZKProvider        uint8
	ProofHash         [32]byte
	ScoringModelHash  [32]byte
	AttestationExpiry int64
	Nonce             uint64
}

// Encode serializes the payload to its fixed 141-byte layout.
//
//	offset  size  field
//	0       1     policy_version
//	1       32    identity
//	33      8     initial_price (u64 LE)
//	41      8     sales_velocity_bps (i64 LE)
//	49      8     time_elapsed (u64 LE)
//	57      1     dignity_score
//	58      1     adapter_mask
//	59      1     user_mode
//	60      1     zk_provider
//	61      32    zk_proof_hash
//	93      32    scoring_model_hash
//	125     8     attestation_expiry (i64 LE)
//	133     8     nonce (u64 LE)
func (p ShieldPayload) Encode() []byte {
	out := make([]byte, V0Len)

	out[0] = p.PolicyVersion
	copy(out[1:33], p.Identity[:])
	binary.LittleEndian.PutUint64(out[33:41], p.InitialPrice)
	binary.LittleEndian.PutUint64(out[41:49], uint64(p.SalesVelocityBPS))
	binary.LittleEndian.PutUint64(out[49:57], p.TimeElapsed)
	out[57] = p.DignityScore
	out[58] = p.AdapterMask
	out[59] = p.UserMode
	out[60] = p.ZKProvider
	copy(out[61:93], p.ProofHash[:])
	copy(out[93:125], p.ScoringModelHash[:])
	binary.LittleEndian.PutUint64(out[125:133], uint64(p.AttestationExpiry))
	binary.LittleEndian.PutUint64(out[133:141], p.Nonce)

	return out
}

// Decode parses a version 0 payload. The input must be exactly V0Len bytes.
func Decode(data []byte) (ShieldPayload, error) {
	if len(data) != V0Len {
		return ShieldPayload{}, fmt.Errorf("payload must be %d bytes, got %d", V0Len, len(data))
	}

	var p ShieldPayload
	p.PolicyVersion = data[0]
	copy(p.Identity[:], data[1:33])
	p.InitialPrice = binary.LittleEndian.Uint64(data[33:41])
	p.SalesVelocityBPS = int64(binary.LittleEndian.Uint64(data[41:49]))
	p.TimeElapsed = binary.LittleEndian.Uint64(data[49:57])
	p.DignityScore = data[57]
	p.AdapterMask = data[58]
	p.UserMode = data[59]
	p.ZKProvider = data[60]
	copy(p.ProofHash[:], data[61:93])
	copy(p.ScoringModelHash[:], data[93:125])
	p.AttestationExpiry = int64(binary.LittleEndian.Uint64(data[125:133]))
	p.Nonce = binary.LittleEndian.Uint64(data[133:141])

	return p, nil
}
