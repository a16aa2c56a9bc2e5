package vb

import "math"

// LearningRate is the step size schedule of the stochastic driver:
// step(epoch) = (Init - (Offset + epoch + 1)) ^ -Kappa.
type LearningRate struct {
	Init   float64
	Offset float64
	Kappa  float64
}

// Step returns the blend factor used for every minibatch of epoch.
func (l LearningRate) Step(epoch int) float64 {
	return math.Pow(l.Init-(l.Offset+float64(epoch)+1), -l.Kappa)
}

// validate checks that every epoch up to iterations gets a step in (0, 1].
func (l LearningRate) validate(iterations int) error {
	for epoch := 0; epoch < iterations; epoch++ {
		base := l.Init - (l.Offset + float64(epoch) + 1)
		if !(base > 0) {
			return configError("learning rate base %g is not positive at epoch %d", base, epoch)
		}
		step := l.Step(epoch)
		if math.IsNaN(step) || step <= 0 || step > 1 {
			return configError("learning rate step %g outside (0, 1] at epoch %d", step, epoch)
		}
	}
	return nil
}
