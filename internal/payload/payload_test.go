package payload

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePayload() ShieldPayload {
	p := ShieldPayload{
		PolicyVersion:     0,
		InitialPrice:      1_000_000_000,
		SalesVelocityBPS:  -5_000,
		TimeElapsed:       12,
		DignityScore:      90,
		AdapterMask:       0b101,
		UserMode:          ModeVerified,
		ZKProvider:        1,
		AttestationExpiry: 1_700_000_300,
		Nonce:             0xDEADBEEF,
	}
	for i := range p.Identity {
		p.Identity[i] = byte(i)
	}
	for i := range p.ProofHash {
		p.ProofHash[i] = byte(0xA0 + i%16)
	}
	for i := range p.ScoringModelHash {
		p.ScoringModelHash[i] = byte(0x10 + i%16)
	}
	return p
}

func TestEncodeLayout(t *testing.T) {
	p := samplePayload()
	out := p.Encode()

	require.Len(t, out, V0Len)
	assert.Equal(t, p.PolicyVersion, out[0])
	assert.Equal(t, p.Identity[:], out[1:33])
	assert.Equal(t, p.InitialPrice, binary.LittleEndian.Uint64(out[33:41]))
	assert.Equal(t, p.SalesVelocityBPS, int64(binary.LittleEndian.Uint64(out[41:49])))
	assert.Equal(t, p.TimeElapsed, binary.LittleEndian.Uint64(out[49:57]))
	assert.Equal(t, p.DignityScore, out[57])
	assert.Equal(t, p.AdapterMask, out[58])
	assert.Equal(t, p.UserMode, out[59])
	assert.Equal(t, p.ZKProvider, out[60])
	assert.Equal(t, p.ProofHash[:], out[61:93])
	assert.Equal(t, p.ScoringModelHash[:], out[93:125])
	assert.Equal(t, p.AttestationExpiry, int64(binary.LittleEndian.Uint64(out[125:133])))
	assert.Equal(t, p.Nonce, binary.LittleEndian.Uint64(out[133:141]))
}

func TestEncodeNegativeVelocityTwosComplement(t *testing.T) {
	p := samplePayload()
	p.SalesVelocityBPS = -1
	out := p.Encode()
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, out[41:49])
}

func TestDecodeRoundTrip(t *testing.T) {
	p := samplePayload()
	got, err := Decode(p.Encode())
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	_, err := Decode(make([]byte, V0Len-1))
	assert.Error(t, err)

	_, err = Decode(make([]byte, V0Len+1))
	assert.Error(t, err)

	_, err = Decode(nil)
	assert.Error(t, err)
}

func TestBytes32(t *testing.T) {
	b := make([]byte, 32)
	b[0] = 0x7F
	got, err := Bytes32(b)
	require.NoError(t, err)
	assert.Equal(t, byte(0x7F), got[0])

	_, err = Bytes32(make([]byte, 31))
	assert.Error(t, err)
}
