package service

import "math"

// RoundingPrecision is the multiplier used to round reported monetary values
// to two decimal places.
const RoundingPrecision = 100.0

// QuantityEpsilon is the single tolerance used for "quantity effectively
// zero" checks in lot consumption and for the daily P&L attribution residual.
// Centralized so every comparison in the engine agrees on what zero means.
const QuantityEpsilon = 1e-6

// ValueTolerance is the absolute tolerance (in base currency units) for
// cross-entity snapshot checks. Looser than QuantityEpsilon to absorb
// multi-currency rounding across many holdings.
const ValueTolerance = 2.0

// round rounds a float64 value to two decimal places for API responses.
func round(value float64) float64 {
	return math.Round(value*RoundingPrecision) / RoundingPrecision
}

// isZeroQuantity reports whether a share count is effectively zero.
func isZeroQuantity(quantity float64) bool {
	return math.Abs(quantity) < QuantityEpsilon
}
