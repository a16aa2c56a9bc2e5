package vb

import (
	"math"
	"runtime"

	"gonum.org/v1/gonum/mat"

	"github.com/bobonovski/ldavb/corpus"
)

// Config controls both the per-document solver and the drivers.
type Config struct {
	Topics     int
	TopicPrior []float64 // length Topics, all positive
	VocabPrior float64   // symmetric Dirichlet concentration on topic-word rows

	Iterations         int     // training epochs
	MinInnerIterations int     // lower bound on fixed-point iterations per document
	MaxInnerIterations int     // hard cap on fixed-point iterations per document
	Tolerance          float64 // L1 tolerance, divided by Topics before use

	Workers int

	// BatchSize > 0 selects the stochastic driver with minibatches of
	// that many documents.
	BatchSize    int
	LearningRate LearningRate

	// WarmStart keeps incoming document-topic rows instead of seeding
	// them in the first epoch (or in a query).
	WarmStart bool

	// MaxInvalidFraction is the share of documents per sweep allowed to
	// produce NaNs before training fails.
	MaxInvalidFraction float64

	// MaxInvalidStreak is the number of consecutive training epochs a
	// single document may stay invalid before training fails.
	MaxInvalidStreak int

	LogFrequency int
}

// DefaultConfig returns the settings used by the command line for k topics.
func DefaultConfig(k int) Config {
	prior := make([]float64, k)
	for i := range prior {
		prior[i] = 50.0 / float64(k)
	}
	return Config{
		Topics:             k,
		TopicPrior:         prior,
		VocabPrior:         0.01,
		Iterations:         10,
		MinInnerIterations: 3,
		MaxInnerIterations: 100,
		Tolerance:          0.01,
		Workers:            runtime.NumCPU(),
		LearningRate:       LearningRate{Init: 1024, Offset: 0, Kappa: 0.6},
		MaxInvalidFraction: 0.01,
		MaxInvalidStreak:   3,
		LogFrequency:       1,
	}
}

func (c Config) stochastic() bool { return c.BatchSize > 0 }

func (c Config) workers(docs int) int {
	w := c.Workers
	if w <= 0 {
		w = runtime.NumCPU()
	}
	if w > docs {
		w = docs
	}
	if w < 1 {
		w = 1
	}
	return w
}

// Validate checks c in isolation.
func (c Config) Validate() error {
	if c.Topics <= 0 {
		return configError("topic count %d must be positive", c.Topics)
	}
	if len(c.TopicPrior) != c.Topics {
		return configError("topic prior has %d entries, want %d", len(c.TopicPrior), c.Topics)
	}
	for k, a := range c.TopicPrior {
		if !(a > 0) || math.IsInf(a, 0) {
			return configError("topic prior[%d] = %g must be positive and finite", k, a)
		}
	}
	if !(c.VocabPrior > 0) || math.IsInf(c.VocabPrior, 0) {
		return configError("vocabulary prior %g must be positive and finite", c.VocabPrior)
	}
	if c.Iterations < 0 {
		return configError("iteration count %d is negative", c.Iterations)
	}
	if c.MinInnerIterations < 1 || c.MaxInnerIterations < c.MinInnerIterations {
		return configError("inner iteration bounds [%d, %d] are invalid",
			c.MinInnerIterations, c.MaxInnerIterations)
	}
	if !(c.Tolerance > 0) {
		return configError("tolerance %g must be positive", c.Tolerance)
	}
	if c.BatchSize < 0 {
		return configError("batch size %d is negative", c.BatchSize)
	}
	if c.MaxInvalidFraction < 0 || c.MaxInvalidFraction > 1 {
		return configError("invalid document fraction %g outside [0, 1]", c.MaxInvalidFraction)
	}
	if c.MaxInvalidStreak < 1 {
		return configError("invalid document streak %d must be positive", c.MaxInvalidStreak)
	}
	if c.stochastic() {
		return c.LearningRate.validate(c.Iterations)
	}
	return nil
}

// validateBuffers checks c against the corpus and the caller-owned buffers.
func (c Config) validateBuffers(p Parameterization, data *corpus.Corpus, docTopics, vocab *mat.Dense) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if p == nil {
		return configError("no parameterization")
	}
	if data == nil || data.DocNum == 0 {
		return configError("empty corpus")
	}
	if docTopics == nil || vocab == nil {
		return configError("document-topic and vocabulary buffers are required")
	}
	if r, k := docTopics.Dims(); r != data.DocNum || k != c.Topics {
		return configError("document-topic buffer is %dx%d, want %dx%d", r, k, data.DocNum, c.Topics)
	}
	k, t := vocab.Dims()
	if k != c.Topics {
		return configError("vocabulary has %d topics, want %d", k, c.Topics)
	}
	if t < data.VocabSize {
		return configError("vocabulary has %d words, corpus needs %d", t, data.VocabSize)
	}
	for d := 0; d < data.DocNum; d++ {
		for _, w := range data.Doc(d) {
			if int(w) >= t {
				return configError("document %d has word id %d outside vocabulary of size %d", d, w, t)
			}
		}
	}
	if c.WarmStart {
		for d := 0; d < data.DocNum; d++ {
			for k, v := range docTopics.RawRowView(d) {
				if !(v > 0) || math.IsInf(v, 0) {
					return configError("warm start row %d topic %d = %g must be positive", d, k, v)
				}
			}
		}
	}
	return p.ValidateVocab(vocab)
}
