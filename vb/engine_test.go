package vb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/bobonovski/ldavb/corpus"
)

var parameterizations = []Parameterization{PseudoCounts, PointEstimates}

func TestInferDocumentResponsibilities(t *testing.T) {
	data, err := corpus.FromDocs([][]uint32{{0, 1, 2, 1}, {3, 4}}, 5)
	require.NoError(t, err)

	for _, p := range parameterizations {
		t.Run(p.Name(), func(t *testing.T) {
			cfg := testConfig(3)
			e, err := NewEngine(p, cfg, data)
			require.NoError(t, err)

			scores := mat.NewDense(5, 3, nil)
			p.Transform(toyVocab(p, 3, 5), scores)
			mem := make([]float64, 3)
			s := NewScratch(data.MaxDocLen, 3)

			res := e.InferDocument(0, scores, mem, s, true)

			assert.False(t, res.Invalid())
			assert.GreaterOrEqual(t, res.Iterations, cfg.MinInnerIterations)
			assert.LessOrEqual(t, res.Iterations, cfg.MaxInnerIterations)
			for n := 0; n < data.DocLens[0]; n++ {
				assert.InDelta(t, 1, floats.Sum(s.Z.RawRowView(n)), 1e-9, "token %d", n)
			}
			for k, v := range mem {
				assert.Greater(t, v, 0.0, "topic %d", k)
			}
		})
	}
}

func TestInferDocumentSingleDocument(t *testing.T) {
	data, err := corpus.FromDocs([][]uint32{{0, 3, 4}}, 5)
	require.NoError(t, err)

	tests := []struct {
		param Parameterization
		cell  float64
		want  float64
	}{
		{PseudoCounts, 1, 2 + 3}, // prior sum + document length
		{PointEstimates, 0.2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.param.Name(), func(t *testing.T) {
			cfg := testConfig(2)
			cfg.TopicPrior = []float64{1, 1}
			e, err := NewEngine(tt.param, cfg, data)
			require.NoError(t, err)

			vocab := mat.NewDense(2, 5, nil)
			for k := 0; k < 2; k++ {
				for w := 0; w < 5; w++ {
					vocab.Set(k, w, tt.cell)
				}
			}
			scores := mat.NewDense(5, 2, nil)
			tt.param.Transform(vocab, scores)
			mem := make([]float64, 2)

			e.InferDocument(0, scores, mem, NewScratch(3, 2), true)

			assert.InDelta(t, tt.want, floats.Sum(mem), 1e-9)
			assert.InDelta(t, mem[0], mem[1], 1e-12)
		})
	}
}

func TestInferDocumentIterationBounds(t *testing.T) {
	data, err := corpus.FromDocs([][]uint32{{0, 1}}, 2)
	require.NoError(t, err)
	scores := mat.NewDense(2, 2, nil)
	PseudoCounts.Transform(toyVocab(PseudoCounts, 2, 2), scores)

	cfg := testConfig(2)
	cfg.Tolerance = 1e6
	e, err := NewEngine(PseudoCounts, cfg, data)
	require.NoError(t, err)
	res := e.InferDocument(0, scores, make([]float64, 2), NewScratch(2, 2), true)
	assert.Equal(t, cfg.MinInnerIterations, res.Iterations)

	cfg = testConfig(2)
	cfg.Tolerance = 1e-300
	cfg.MinInnerIterations, cfg.MaxInnerIterations = 2, 7
	e, err = NewEngine(PseudoCounts, cfg, data)
	require.NoError(t, err)
	res = e.InferDocument(0, scores, make([]float64, 2), NewScratch(2, 2), true)
	assert.Equal(t, 7, res.Iterations)
}

func TestInferDocumentExtremeScores(t *testing.T) {
	data, err := corpus.FromDocs([][]uint32{{0, 1, 0}}, 2)
	require.NoError(t, err)
	e, err := NewEngine(PointEstimates, testConfig(2), data)
	require.NoError(t, err)

	// exp of these underflows to zero without subtracting the maximum
	scores := mat.NewDense(2, 2, []float64{
		-2000, -2001,
		-5000, -4990,
	})
	mem := make([]float64, 2)
	s := NewScratch(3, 2)
	res := e.InferDocument(0, scores, mem, s, true)

	assert.False(t, res.Invalid())
	for n := 0; n < 3; n++ {
		row := s.Z.RawRowView(n)
		assert.InDelta(t, 1, floats.Sum(row), 1e-12)
		for _, v := range row {
			assert.False(t, math.IsNaN(v))
		}
	}
	assert.Greater(t, s.Z.At(1, 1), s.Z.At(1, 0))
}

func TestInferDocumentWarmStart(t *testing.T) {
	data, err := corpus.FromDocs([][]uint32{{0, 1, 1}}, 2)
	require.NoError(t, err)
	e, err := NewEngine(PseudoCounts, testConfig(2), data)
	require.NoError(t, err)
	scores := mat.NewDense(2, 2, nil)
	PseudoCounts.Transform(toyVocab(PseudoCounts, 2, 2), scores)

	mem := make([]float64, 2)
	first := e.InferDocument(0, scores, mem, NewScratch(3, 2), true)
	converged := append([]float64(nil), mem...)
	second := e.InferDocument(0, scores, mem, NewScratch(3, 2), false)

	assert.LessOrEqual(t, second.Iterations, first.Iterations)
	assert.InDeltaSlice(t, converged, mem, 0.01)
}

func TestInferDocumentFlagsNaN(t *testing.T) {
	data, err := corpus.FromDocs([][]uint32{{0, 1}}, 2)
	require.NoError(t, err)
	p := nanScores{PseudoCounts}
	e, err := NewEngine(p, testConfig(2), data)
	require.NoError(t, err)
	scores := mat.NewDense(2, 2, nil)
	p.Transform(toyVocab(PseudoCounts, 2, 2), scores)

	res := e.InferDocument(0, scores, make([]float64, 2), NewScratch(2, 2), true)

	assert.True(t, res.Invalid())
	assert.Equal(t, 4, res.NaNs)
	assert.Equal(t, testConfig(2).MaxInnerIterations, res.Iterations)
}

func TestEmptyDocument(t *testing.T) {
	data, err := corpus.FromDocs([][]uint32{{}, {1}}, 2)
	require.NoError(t, err)
	e, err := NewEngine(PseudoCounts, testConfig(2), data)
	require.NoError(t, err)
	scores := mat.NewDense(2, 2, nil)
	PseudoCounts.Transform(toyVocab(PseudoCounts, 2, 2), scores)

	mem := make([]float64, 2)
	res := e.InferDocument(0, scores, mem, NewScratch(1, 2), true)

	assert.False(t, res.Invalid())
	assert.Equal(t, []float64{0.1, 0.1}, mem)
}

func TestSeedDocument(t *testing.T) {
	mem := make([]float64, 2)
	PseudoCounts.SeedDocument(mem, []float64{0.5, 0.25}, 4)
	assert.Equal(t, []float64{2.5, 2.25}, mem)

	PointEstimates.SeedDocument(mem, []float64{0.5, 0.25}, 4)
	assert.Equal(t, []float64{0.5, 0.5}, mem)
}

func TestTransform(t *testing.T) {
	vocab := mat.NewDense(1, 2, []float64{1, 3})
	scores := mat.NewDense(2, 1, nil)

	PseudoCounts.Transform(vocab, scores)
	// digamma(1) - digamma(4) = -(1 + 1/2 + 1/3)
	assert.InDelta(t, -11.0/6, scores.At(0, 0), 1e-10)

	PointEstimates.Transform(mat.NewDense(1, 2, []float64{0.25, 0.75}), scores)
	assert.InDelta(t, math.Log(0.25), scores.At(0, 0), 1e-12)
	assert.InDelta(t, math.Log(0.75), scores.At(1, 0), 1e-12)
}
