package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeQuoteReferenceVectors(t *testing.T) {
	// Known-good vectors shared with the settlement program. These must
	// reproduce exactly, not approximately.
	tests := []struct {
		name         string
		dignityScore uint8
		wantPrice    uint64
		wantBlocked  bool
	}{
		{name: "zero trust is capped and blocked", dignityScore: 0, wantPrice: 120_000_000_000, wantBlocked: true},
		{name: "mid trust pays dampened growth", dignityScore: 50, wantPrice: 4_109_890_666, wantBlocked: false},
		{name: "high trust pays near base with loyalty discount", dignityScore: 90, wantPrice: 997_977_140, wantBlocked: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			quote, err := ComputeQuote(Input{
				InitialPrice:     1_000_000_000,
				SalesVelocityBPS: 5_000,
				TimeElapsed:      12,
				DignityScore:     tc.dignityScore,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.wantPrice, quote.FinalPrice)
			assert.Equal(t, tc.wantBlocked, quote.Blocked)
			assert.False(t, quote.IsInfinite)
		})
	}
}

func TestComputeQuoteValidation(t *testing.T) {
	base := Input{
		InitialPrice:     1_000_000_000,
		SalesVelocityBPS: 5_000,
		TimeElapsed:      12,
		DignityScore:     50,
	}

	t.Run("dignity score above 100", func(t *testing.T) {
		in := base
		in.DignityScore = 101
		_, err := ComputeQuote(in)
		assert.ErrorIs(t, err, ErrInvalidDignityScore)
	})

	t.Run("velocity at negative scale boundary", func(t *testing.T) {
		in := base
		in.SalesVelocityBPS = -10_000
		_, err := ComputeQuote(in)
		assert.ErrorIs(t, err, ErrInvalidSalesVelocity)
	})

	t.Run("time elapsed beyond horizon", func(t *testing.T) {
		in := base
		in.TimeElapsed = MaxTimeElapsed + 1
		_, err := ComputeQuote(in)
		assert.ErrorIs(t, err, ErrInvalidTimeElapsed)
	})

	t.Run("time elapsed at horizon is accepted", func(t *testing.T) {
		in := base
		in.SalesVelocityBPS = 0
		in.TimeElapsed = MaxTimeElapsed
		quote, err := ComputeQuote(in)
		require.NoError(t, err)
		assert.Equal(t, in.InitialPrice, quote.FinalPrice)
	})
}

func TestComputeQuoteMonotonicInScore(t *testing.T) {
	// Higher trust must never pay more, everything else held equal.
	prev := uint64(math.MaxUint64)
	for score := uint8(0); score <= 100; score++ {
		quote, err := ComputeQuote(Input{
			InitialPrice:     1_000_000_000,
			SalesVelocityBPS: 5_000,
			TimeElapsed:      12,
			DignityScore:     score,
		})
		require.NoError(t, err)
		assert.LessOrEqual(t, quote.FinalPrice, prev, "score %d", score)
		prev = quote.FinalPrice
	}
}

func TestComputeQuoteBoundaries(t *testing.T) {
	t.Run("perfect trust pays only the discounted base", func(t *testing.T) {
		quote, err := ComputeQuote(Input{
			InitialPrice:     1_000_000_000,
			SalesVelocityBPS: 0,
			TimeElapsed:      12,
			DignityScore:     100,
		})
		require.NoError(t, err)
		// 30 loyalty points at 30 bps each off the base price.
		assert.Equal(t, uint64(910_000_000), quote.FinalPrice)
		assert.False(t, quote.Blocked)
		assert.Zero(t, quote.EffectiveVelocityBPS)
	})

	t.Run("perfect trust neutralizes velocity entirely", func(t *testing.T) {
		quote, err := ComputeQuote(Input{
			InitialPrice:     1_000_000_000,
			SalesVelocityBPS: 9_999,
			TimeElapsed:      12,
			DignityScore:     100,
		})
		require.NoError(t, err)
		// Heat weight is zero, so growth never applies; only the loyalty
		// discount remains.
		assert.Equal(t, uint64(910_000_000), quote.FinalPrice)
		assert.Zero(t, quote.EffectiveVelocityBPS)
	})

	t.Run("zero time elapsed is the base price", func(t *testing.T) {
		quote, err := ComputeQuote(Input{
			InitialPrice:     5_000_000,
			SalesVelocityBPS: 5_000,
			TimeElapsed:      0,
			DignityScore:     50,
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(5_000_000), quote.FinalPrice)
	})

	t.Run("zero initial price floors at one", func(t *testing.T) {
		quote, err := ComputeQuote(Input{
			InitialPrice:     0,
			SalesVelocityBPS: 0,
			TimeElapsed:      0,
			DignityScore:     100,
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), quote.FinalPrice)
	})

	t.Run("negative velocity collapses toward the floor", func(t *testing.T) {
		quote, err := ComputeQuote(Input{
			InitialPrice:     1_000_000_000,
			SalesVelocityBPS: -9_999,
			TimeElapsed:      MaxTimeElapsed,
			DignityScore:     0,
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), quote.FinalPrice)
		assert.False(t, quote.IsInfinite)
	})
}

func TestComputeQuoteOverflowSentinel(t *testing.T) {
	// Worst-case adversarial inputs must yield the infinite sentinel, never
	// a wrapped finite price.
	quote, err := ComputeQuote(Input{
		InitialPrice:     math.MaxUint64,
		SalesVelocityBPS: math.MaxInt64,
		TimeElapsed:      MaxTimeElapsed,
		DignityScore:     0,
	})
	require.NoError(t, err)
	assert.True(t, quote.IsInfinite)
	assert.True(t, quote.Blocked)
	assert.Equal(t, uint64(math.MaxUint64), quote.FinalPrice)
}

func TestScaleVelocity(t *testing.T) {
	tests := []struct {
		name   string
		v      int64
		heat   int64
		want   int64
		wantOK bool
	}{
		{name: "full heat is identity", v: 5_000, heat: 10_000, want: 5_000, wantOK: true},
		{name: "quarter heat", v: 5_000, heat: 2_500, want: 1_250, wantOK: true},
		{name: "zero heat", v: 5_000, heat: 0, want: 0, wantOK: true},
		{name: "truncates toward zero", v: 3, heat: 3_333, want: 0, wantOK: true},
		{name: "negative truncates toward zero", v: -3, heat: 3_333, want: 0, wantOK: true},
		{name: "negative velocity", v: -4_000, heat: 5_000, want: -2_000, wantOK: true},
		{name: "max velocity at full heat", v: math.MaxInt64, heat: 10_000, want: math.MaxInt64, wantOK: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := scaleVelocity(tc.v, tc.heat)
			require.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
