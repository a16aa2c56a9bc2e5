package util

import "gonum.org/v1/gonum/mathext"

// DigammaFloor is the smallest argument passed on to digamma and trigamma,
// both of which are singular at zero.
const DigammaFloor = 1e-300

// SafeDigamma evaluates the digamma function at max(x, DigammaFloor).
func SafeDigamma(x float64) float64 {
	if x < DigammaFloor {
		x = DigammaFloor
	}
	return mathext.Digamma(x)
}

// SafeTrigamma evaluates the trigamma function at max(x, DigammaFloor),
// using trigamma(x) = zeta(2, x).
func SafeTrigamma(x float64) float64 {
	if x < DigammaFloor {
		x = DigammaFloor
	}
	return mathext.Zeta(2, x)
}
