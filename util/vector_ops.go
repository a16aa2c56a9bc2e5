package util

import "gonum.org/v1/gonum/floats"

// sum the vector
func VectorSum(data []float64) float64 {
	return floats.Sum(data)
}

// L1Distance returns the sum of absolute elementwise differences of a and b.
// It is only used as a convergence metric. Both slices must have the same
// length, otherwise it panics.
func L1Distance(a, b []float64) float64 {
	return floats.Distance(a, b, 1)
}
