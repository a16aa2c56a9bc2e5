package vb

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/bobonovski/ldavb/util"
)

// Parameterization fixes how the vocabulary representation and the
// document-topic rows are read and written. The fixed-point solver and
// both drivers are written once against it.
type Parameterization interface {
	Name() string
	// Transform writes into scores (T×K, word-major) the log-domain score
	// of every word under every topic derived from vocab (K×T).
	Transform(vocab, scores *mat.Dense)
	// DocTopicScore is the log-domain contribution of a document's
	// current topic mass.
	DocTopicScore(mem float64) float64
	// SeedDocument initializes a document-topic row before its first
	// fixed-point iteration. docCount is the corpus size.
	SeedDocument(mem, prior []float64, docCount int)
	// NormalizeDocument finishes a recomputed document-topic row.
	NormalizeDocument(mem []float64)
	// NormalizeVocab finishes a freshly published vocabulary.
	NormalizeVocab(vocab *mat.Dense)
	// ValidateVocab rejects a vocabulary that is not in this mode.
	ValidateVocab(vocab *mat.Dense) error
}

var (
	// PseudoCounts treats vocabulary cells as Dirichlet parameters,
	// read through digamma.
	PseudoCounts Parameterization = pseudoCounts{}
	// PointEstimates treats vocabulary rows as probability vectors,
	// read through log.
	PointEstimates Parameterization = pointEstimates{}
)

// simplexTolerance bounds |1 - row sum| for a point estimate row.
const simplexTolerance = 1e-6

type pseudoCounts struct{}

func (pseudoCounts) Name() string { return "pseudo-count" }

func (pseudoCounts) Transform(vocab, scores *mat.Dense) {
	k, t := vocab.Dims()
	for topic := 0; topic < k; topic++ {
		row := vocab.RawRowView(topic)
		norm := util.SafeDigamma(floats.Sum(row))
		for w := 0; w < t; w++ {
			scores.Set(w, topic, util.SafeDigamma(row[w])-norm)
		}
	}
}

func (pseudoCounts) DocTopicScore(mem float64) float64 { return util.SafeDigamma(mem) }

// SeedDocument uses prior[k] + D/K. D is the corpus size, not the
// document length.
func (pseudoCounts) SeedDocument(mem, prior []float64, docCount int) {
	offset := float64(docCount) / float64(len(mem))
	for k := range mem {
		mem[k] = prior[k] + offset
	}
}

func (pseudoCounts) NormalizeDocument(mem []float64) {}

func (pseudoCounts) NormalizeVocab(vocab *mat.Dense) {}

func (pseudoCounts) ValidateVocab(vocab *mat.Dense) error {
	k, _ := vocab.Dims()
	for topic := 0; topic < k; topic++ {
		for w, v := range vocab.RawRowView(topic) {
			if !(v > 0) || math.IsInf(v, 0) {
				return configError("pseudo-count vocabulary cell %d,%d = %g must be positive and finite",
					topic, w, v)
			}
		}
	}
	return nil
}

type pointEstimates struct{}

func (pointEstimates) Name() string { return "point-estimate" }

func (pointEstimates) Transform(vocab, scores *mat.Dense) {
	k, t := vocab.Dims()
	for topic := 0; topic < k; topic++ {
		row := vocab.RawRowView(topic)
		for w := 0; w < t; w++ {
			scores.Set(w, topic, safeLog(row[w]))
		}
	}
}

func (pointEstimates) DocTopicScore(mem float64) float64 { return safeLog(mem) }

func (pointEstimates) SeedDocument(mem, prior []float64, docCount int) {
	for k := range mem {
		mem[k] = 1 / float64(len(mem))
	}
}

func (pointEstimates) NormalizeDocument(mem []float64) {
	floats.Scale(1/floats.Sum(mem), mem)
}

// NormalizeVocab divides every topic row by its mass. Rows are
// independent.
func (pointEstimates) NormalizeVocab(vocab *mat.Dense) {
	k, _ := vocab.Dims()
	for topic := 0; topic < k; topic++ {
		row := vocab.RawRowView(topic)
		floats.Scale(1/floats.Sum(row), row)
	}
}

func (pointEstimates) ValidateVocab(vocab *mat.Dense) error {
	k, _ := vocab.Dims()
	for topic := 0; topic < k; topic++ {
		row := vocab.RawRowView(topic)
		for w, v := range row {
			if !(v >= 0) || math.IsInf(v, 0) {
				return configError("point-estimate vocabulary cell %d,%d = %g must be a probability",
					topic, w, v)
			}
		}
		if sum := floats.Sum(row); math.Abs(sum-1) > simplexTolerance {
			return configError("point-estimate vocabulary row %d sums to %g, want 1", topic, sum)
		}
	}
	return nil
}

func safeLog(x float64) float64 {
	if x < util.DigammaFloor {
		x = util.DigammaFloor
	}
	return math.Log(x)
}
