package vb

// EpochStats summarizes one training epoch or one query pass.
type EpochStats struct {
	Epoch      int
	Documents  int
	Iterations int // inner iterations summed over documents
	// InvalidDocs lists documents whose responsibilities held NaNs. They
	// were left out of the vocabulary update and their rows reseeded.
	InvalidDocs   []int
	NegativeCells int
	StepSize      float64 // blend factor, 1 in batch mode
}

// MeanIterations is the average number of inner iterations per document.
func (s EpochStats) MeanIterations() float64 {
	if s.Documents == 0 {
		return 0
	}
	return float64(s.Iterations) / float64(s.Documents)
}

func (s *EpochStats) merge(o sweepStats) {
	s.Documents += o.documents
	s.Iterations += o.iterations
	s.NegativeCells += o.negatives
	s.InvalidDocs = append(s.InvalidDocs, o.invalid...)
}

// Report collects the per-epoch statistics of a run.
type Report struct {
	Epochs []EpochStats
	// Iterations is the inner iteration count across the whole run.
	Iterations int
}

func (r *Report) add(s EpochStats) {
	r.Epochs = append(r.Epochs, s)
	r.Iterations += s.Iterations
}
