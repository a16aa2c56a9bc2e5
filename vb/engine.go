package vb

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/bobonovski/ldavb/corpus"
	"github.com/bobonovski/ldavb/util"
)

// Scratch is the private working memory of one worker. It must never be
// shared between documents processed concurrently.
type Scratch struct {
	// Z holds the token responsibilities of the current document, one
	// row per token.
	Z *mat.Dense

	oldMems   []float64
	docScores []float64
}

// NewScratch allocates scratch for documents of up to maxDocLen tokens.
func NewScratch(maxDocLen, topics int) *Scratch {
	if maxDocLen < 1 {
		maxDocLen = 1
	}
	return &Scratch{
		Z:         mat.NewDense(maxDocLen, topics, nil),
		oldMems:   make([]float64, topics),
		docScores: make([]float64, topics),
	}
}

// DocResult describes one run of the fixed-point solver.
type DocResult struct {
	Iterations int
	// NaNs and Negatives count responsibility cells flagged by
	// util.IsInvalid in the final iteration.
	NaNs      int
	Negatives int
}

// Invalid reports whether the document's responsibilities cannot be
// trusted and must not reach the accumulator.
func (r DocResult) Invalid() bool { return r.NaNs > 0 }

// Engine solves one document at a time against a fixed word-score
// transform. It is safe for concurrent use as long as every goroutine
// has its own Scratch and works on distinct documents.
type Engine struct {
	param    Parameterization
	data     *corpus.Corpus
	prior    []float64
	minIters int
	maxIters int
	tol      float64
}

// NewEngine validates cfg and returns an engine over data.
func NewEngine(p Parameterization, cfg Config, data *corpus.Corpus) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, configError("no parameterization")
	}
	if data == nil || data.DocNum == 0 {
		return nil, configError("empty corpus")
	}
	return &Engine{
		param:    p,
		data:     data,
		prior:    cfg.TopicPrior,
		minIters: cfg.MinInnerIterations,
		maxIters: cfg.MaxInnerIterations,
		tol:      cfg.Tolerance / float64(cfg.Topics),
	}, nil
}

// Reseed puts mem back to the seed row, e.g. after the solver left NaNs
// in it.
func (e *Engine) Reseed(mem []float64) {
	e.param.SeedDocument(mem, e.prior, e.data.DocNum)
}

// InferDocument runs the fixed-point iteration for document d. scores is
// the T×K output of Parameterization.Transform, mem the document's row of
// the document-topic matrix. When seed is set mem is initialized first,
// otherwise it is warm-started as is. On return s.Z holds the final
// responsibilities of the document's tokens.
func (e *Engine) InferDocument(d int, scores *mat.Dense, mem []float64, s *Scratch, seed bool) DocResult {
	if seed {
		e.Reseed(mem)
	}
	words := e.data.Doc(d)

	var res DocResult
	for {
		copy(s.oldMems, mem)
		for k, m := range mem {
			s.docScores[k] = e.param.DocTopicScore(m)
		}

		res.NaNs, res.Negatives = 0, 0
		for n, w := range words {
			zn := s.Z.RawRowView(n)
			ws := scores.RawRowView(int(w))

			maxScore := math.Inf(-1)
			for k := range zn {
				zn[k] = ws[k] + s.docScores[k]
				if zn[k] > maxScore {
					maxScore = zn[k]
				}
			}

			sum := 0.0
			for k := range zn {
				zn[k] = math.Exp(zn[k] - maxScore)
				sum += zn[k]
			}
			floats.Scale(1/sum, zn)

			for _, v := range zn {
				if util.IsInvalid(v) {
					if math.IsNaN(v) {
						res.NaNs++
					} else {
						res.Negatives++
					}
				}
			}
		}

		copy(mem, e.prior)
		for n := range words {
			floats.Add(mem, s.Z.RawRowView(n))
		}
		e.param.NormalizeDocument(mem)

		res.Iterations++
		dist := util.L1Distance(mem, s.oldMems)
		if res.Iterations >= e.minIters && (dist < e.tol || res.Iterations >= e.maxIters) {
			break
		}
	}
	return res
}
