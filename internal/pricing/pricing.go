// Package pricing computes the final quote price from a trust score and the
// sale's economic inputs. The model is exponential growth per elapsed step,
// weighted quadratically by distance from maximum trust, with a loyalty
// discount above the trust threshold and a hard bot ceiling.
//
// All arithmetic is unsigned 128-bit fixed point (scale 1e9, basis points
// 10_000) with checked multiply/divide. Any overflow anywhere in the chain
// yields the infinite sentinel with blocked=true; adversarial inputs must
// never produce a wrapped price.
package pricing

import "errors"

const (
	bpsScale                = 10_000
	fixedPointScale         = 1_000_000_000
	loyaltyBaseBPS          = 10_000
	loyaltyThreshold        = 70
	loyaltyPointDiscountBPS = 30
	blockMultiplier         = 100
	botPriceCapMultiplier   = 120
)

// MaxTimeElapsed caps the growth horizon at 30 days worth of steps.
const MaxTimeElapsed uint64 = 30 * 24 * 60 * 60

// Input bounds are validated before any arithmetic runs.
var (
	ErrInvalidDignityScore  = errors.New("dignity score must be between 0 and 100")
	ErrInvalidSalesVelocity = errors.New("sales velocity must be greater than -10000 bps")
	ErrInvalidTimeElapsed   = errors.New("time elapsed exceeds the maximum horizon")
)

// Input is the validated economic slice of a shield payload.
type Input struct {
	InitialPrice     uint64
	SalesVelocityBPS int64
	TimeElapsed      uint64
	DignityScore     uint8
}

// Quote is the pricing outcome. IsInfinite marks the overflow sentinel:
// FinalPrice is then the maximum u64 and Blocked is always true.
type Quote struct {
	FinalPrice           uint64
	IsInfinite           bool
	Blocked              bool
	EffectiveVelocityBPS int64
}

// ComputeQuote prices one request. It is pure and never suspends.
func ComputeQuote(in Input) (Quote, error) {
	if in.DignityScore > 100 {
		return Quote{}, ErrInvalidDignityScore
	}
	if in.SalesVelocityBPS <= -bpsScale {
		return Quote{}, ErrInvalidSalesVelocity
	}
	if in.TimeElapsed > MaxTimeElapsed {
		return Quote{}, ErrInvalidTimeElapsed
	}

	basePrice := in.InitialPrice
	if basePrice == 0 {
		basePrice = 1
	}

	// Lower trust reacts quadratically harder to sales velocity.
	scoreDistance := int64(100 - in.DignityScore)
	heatWeightBPS := scoreDistance * scoreDistance

	effectiveVelocityBPS, ok := scaleVelocity(in.SalesVelocityBPS, heatWeightBPS)
	if !ok {
		return infinityQuote(in.SalesVelocityBPS), nil
	}

	expPrice, ok := exponentialPrice(basePrice, effectiveVelocityBPS, in.TimeElapsed)
	if !ok {
		return infinityQuote(effectiveVelocityBPS), nil
	}

	var penaltyBPS uint64
	if in.DignityScore > loyaltyThreshold {
		penaltyBPS = uint64(in.DignityScore-loyaltyThreshold) * loyaltyPointDiscountBPS
	}
	var discountBPS uint64
	if penaltyBPS < loyaltyBaseBPS {
		discountBPS = loyaltyBaseBPS - penaltyBPS
	}

	discounted, ok := expPrice.mul64(discountBPS)
	if !ok {
		return infinityQuote(effectiveVelocityBPS), nil
	}
	finalU128 := discounted.div64(loyaltyBaseBPS).floorOne()

	// basePrice * 120 always fits 128 bits.
	cap, _ := u128From(basePrice).mul64(botPriceCapMultiplier)
	if finalU128.cmp(cap) > 0 {
		finalU128 = cap
	}

	finalPrice, ok := finalU128.toUint64()
	if !ok {
		return infinityQuote(effectiveVelocityBPS), nil
	}
	if finalPrice == 0 {
		finalPrice = 1
	}

	blockedThreshold, _ := u128From(basePrice).mul64(blockMultiplier)
	blocked := u128From(finalPrice).cmp(blockedThreshold) >= 0

	return Quote{
		FinalPrice:           finalPrice,
		Blocked:              blocked,
		EffectiveVelocityBPS: effectiveVelocityBPS,
	}, nil
}

func infinityQuote(effectiveVelocityBPS int64) Quote {
	return Quote{
		FinalPrice:           ^uint64(0),
		IsInfinite:           true,
		Blocked:              true,
		EffectiveVelocityBPS: effectiveVelocityBPS,
	}
}

// scaleVelocity computes v * heat / 10_000 with 128-bit intermediate
// semantics, reporting failure when the result does not fit int64.
// heat is in [0, 10_000].
func scaleVelocity(v, heat int64) (int64, bool) {
	if v == 0 || heat == 0 {
		return 0, true
	}
	// Split v = q*10_000 + r so neither partial product can overflow; q and
	// r carry v's sign, so both terms share a sign and a sign flip on the
	// sum is exactly an int64 overflow.
	q := v / bpsScale
	r := v % bpsScale
	hi := q * heat
	lo := r * heat / bpsScale
	sum := hi + lo
	if (hi > 0 && sum < hi) || (hi < 0 && sum > hi) {
		return 0, false
	}
	return sum, true
}

// exponentialPrice raises the per-step growth factor to timeElapsed and
// applies it to basePrice. A non-positive growth numerator collapses the
// price to its floor of 1 rather than erroring; that clamp is deliberate
// policy carried over from the settlement program.
func exponentialPrice(basePrice uint64, velocityBPS int64, timeElapsed uint64) (u128, bool) {
	if timeElapsed == 0 || velocityBPS == 0 {
		return u128From(basePrice).floorOne(), true
	}

	if velocityBPS <= -bpsScale {
		return u128From(1), true
	}
	var growthNumerator uint64
	if velocityBPS < 0 {
		growthNumerator = uint64(velocityBPS + bpsScale)
	} else {
		growthNumerator = uint64(velocityBPS) + bpsScale
	}

	perStep, ok := u128From(growthNumerator).mul64(fixedPointScale)
	if !ok {
		return u128{}, false
	}
	perStep = perStep.div64(bpsScale)

	growthFactor, ok := powFixed(perStep, timeElapsed)
	if !ok {
		return u128{}, false
	}

	price, ok := u128From(basePrice).floorOne().mul(growthFactor)
	if !ok {
		return u128{}, false
	}
	return price.div64(fixedPointScale).floorOne(), true
}

// powFixed is fixed-point binary exponentiation by repeated squaring.
func powFixed(base u128, exponent uint64) (u128, bool) {
	result := u128From(fixedPointScale)

	for exponent > 0 {
		if exponent&1 == 1 {
			product, ok := result.mul(base)
			if !ok {
				return u128{}, false
			}
			result = product.div64(fixedPointScale)
		}

		exponent >>= 1
		if exponent > 0 {
			squared, ok := base.mul(base)
			if !ok {
				return u128{}, false
			}
			base = squared.div64(fixedPointScale)
		}
	}

	return result, true
}
