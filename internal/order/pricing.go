package order

import "github.com/shopspring/decimal"

// Pricing is the limit-offset policy: buys cross the spread slightly above
// the reference, sells slightly below, quantized to the venue's price
// increment by tier.
type Pricing struct {
	// Offset is the fractional distance from the reference, e.g. 0.005.
	Offset float64
	// TierBoundary switches decimal places: at or above it prices round to
	// CoarsePlaces, below it to FinePlaces.
	TierBoundary float64
	CoarsePlaces int32
	FinePlaces   int32
}

// DefaultPricing mirrors the production policy: ±0.5%, 2 decimal places at
// $1.00 and above, 4 below.
func DefaultPricing() Pricing {
	return Pricing{
		Offset:       0.005,
		TierBoundary: 1.00,
		CoarsePlaces: 2,
		FinePlaces:   4,
	}
}

// LimitBuy returns the buy limit price for a reference tick, rounded up so
// the order stays marketable.
func (p Pricing) LimitBuy(ref float64) float64 {
	raw := decimal.NewFromFloat(ref).Mul(decimal.NewFromFloat(1 + p.Offset))
	return raw.RoundUp(p.places(ref)).InexactFloat64()
}

// LimitSell returns the sell limit price, rounded down.
func (p Pricing) LimitSell(ref float64) float64 {
	raw := decimal.NewFromFloat(ref).Mul(decimal.NewFromFloat(1 - p.Offset))
	return raw.RoundDown(p.places(ref)).InexactFloat64()
}

func (p Pricing) places(ref float64) int32 {
	if ref >= p.TierBoundary {
		return p.CoarsePlaces
	}
	return p.FinePlaces
}
