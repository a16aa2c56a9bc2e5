package util

import "math"

// NegativeTolerance is how far below zero a probability or count may drift
// through roundoff before it is reported.
const NegativeTolerance = -0.001

// IsInvalid reports whether x is NaN or materially negative.
func IsInvalid(x float64) bool {
	return math.IsNaN(x) || x < NegativeTolerance
}
