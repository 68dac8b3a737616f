package valueobject

import "github.com/shopspring/decimal"

// RatePrecision is the number of decimal places kept for reciprocal rates
const RatePrecision int32 = 9

// MirrorTolerance is the smallest difference worth writing back to a mirror field
var MirrorTolerance = decimal.New(1, -9)

// One is the identity rate
var One = decimal.NewFromInt(1)

// Reciprocal returns 1/r rounded to RatePrecision places; zero for non-positive r
func Reciprocal(r decimal.Decimal) decimal.Decimal {
	if !r.IsPositive() {
		return decimal.Zero
	}
	return One.DivRound(r, RatePrecision)
}

// NearlyEqual reports whether a and b differ by less than MirrorTolerance
func NearlyEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(MirrorTolerance)
}
