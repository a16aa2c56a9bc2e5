package vb

import (
	"context"
	"math"
	"sort"

	log "github.com/golang/glog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/bobonovski/ldavb/corpus"
)

type sweepStats struct {
	documents  int
	iterations int
	negatives  int
	invalid    []int
}

func (s *sweepStats) add(o sweepStats) {
	s.documents += o.documents
	s.iterations += o.iterations
	s.negatives += o.negatives
	s.invalid = append(s.invalid, o.invalid...)
}

// driver owns the per-worker state shared by Train and Query.
type driver struct {
	cfg       Config
	param     Parameterization
	data      *corpus.Corpus
	engine    *Engine
	docTopics *mat.Dense
	scores    *mat.Dense // T×K transform of the live vocabulary
	scratch   []*Scratch
	partials  []*mat.Dense // per-worker expected counts, K×T
}

func newDriver(p Parameterization, cfg Config, data *corpus.Corpus,
	docTopics, vocab *mat.Dense, accumulate bool) (*driver, error) {
	if err := cfg.validateBuffers(p, data, docTopics, vocab); err != nil {
		return nil, err
	}
	engine, err := NewEngine(p, cfg, data)
	if err != nil {
		return nil, err
	}
	k, t := vocab.Dims()
	workers := cfg.workers(data.DocNum)
	d := &driver{
		cfg:       cfg,
		param:     p,
		data:      data,
		engine:    engine,
		docTopics: docTopics,
		scores:    mat.NewDense(t, k, nil),
		scratch:   make([]*Scratch, workers),
	}
	for w := range d.scratch {
		d.scratch[w] = NewScratch(data.MaxDocLen, k)
	}
	if accumulate {
		d.partials = make([]*mat.Dense, workers)
		for w := range d.partials {
			d.partials[w] = mat.NewDense(k, t, nil)
		}
	}
	return d, nil
}

// sweep infers documents [lo, hi) against d.scores. Worker w takes
// documents lo+w, lo+w+n, ... When counts is not nil it is overwritten
// with the expected token-topic counts of all valid documents, merged in
// worker order so the result does not depend on scheduling. The rows of
// invalid documents are reseeded so docTopics never holds NaNs.
func (d *driver) sweep(ctx context.Context, lo, hi int, seed bool, counts *mat.Dense) (sweepStats, error) {
	n := len(d.scratch)
	if n > hi-lo {
		n = hi - lo
	}
	results := make([]sweepStats, n)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < n; w++ {
		w := w
		g.Go(func() error {
			s := d.scratch[w]
			var part *mat.Dense
			if counts != nil {
				part = d.partials[w]
				part.Zero()
			}
			res := &results[w]
			for doc := lo + w; doc < hi; doc += n {
				if err := gctx.Err(); err != nil {
					return err
				}
				mem := d.docTopics.RawRowView(doc)
				dr := d.engine.InferDocument(doc, d.scores, mem, s, seed)
				res.documents++
				res.iterations += dr.Iterations
				res.negatives += dr.Negatives
				if dr.Negatives > 0 {
					log.Warningf("document %d: %d negative responsibilities", doc, dr.Negatives)
				}
				if dr.Invalid() {
					log.Warningf("document %d: %d NaN responsibilities, skipped and reseeded", doc, dr.NaNs)
					d.engine.Reseed(mem)
					res.invalid = append(res.invalid, doc)
					continue
				}
				if part != nil {
					accumulate(part, d.data.Doc(doc), s.Z)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sweepStats{}, err
	}

	var total sweepStats
	for _, r := range results {
		total.add(r)
	}
	sort.Ints(total.invalid)

	if counts != nil {
		counts.Zero()
		for w := 0; w < n; w++ {
			counts.Add(counts, d.partials[w])
		}
	}
	return total, nil
}

// accumulate adds the responsibilities in z of the tokens words into the
// (topic, word) cells of part.
func accumulate(part *mat.Dense, words []uint32, z *mat.Dense) {
	raw := part.RawMatrix()
	for n, w := range words {
		for k, v := range z.RawRowView(n) {
			raw.Data[k*raw.Stride+int(w)] += v
		}
	}
}

// tooManyInvalid reports whether a sweep must escalate.
func (d *driver) tooManyInvalid(s sweepStats) bool {
	if len(s.invalid) == 0 {
		return false
	}
	return float64(len(s.invalid)) > d.cfg.MaxInvalidFraction*float64(s.documents)
}

func countNaN(m *mat.Dense) int {
	r, _ := m.Dims()
	nan := 0
	for i := 0; i < r; i++ {
		for _, v := range m.RawRowView(i) {
			if math.IsNaN(v) {
				nan++
			}
		}
	}
	return nan
}
