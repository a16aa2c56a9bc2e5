package vb

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/bobonovski/ldavb/corpus"
)

func testConfig(k int) Config {
	cfg := DefaultConfig(k)
	for i := range cfg.TopicPrior {
		cfg.TopicPrior[i] = 0.1
	}
	cfg.Workers = 2
	cfg.LogFrequency = 0
	return cfg
}

// toyVocab returns a deterministic, asymmetric vocabulary in the mode of p.
func toyVocab(p Parameterization, k, t int) *mat.Dense {
	v := mat.NewDense(k, t, nil)
	for topic := 0; topic < k; topic++ {
		for w := 0; w < t; w++ {
			v.Set(topic, w, 1+float64((topic*7+w*3)%5))
		}
	}
	if p == PointEstimates {
		p.NormalizeVocab(v)
	}
	return v
}

// clusteredDocs builds docs where document d draws words only from the
// block of cluster d%clusters.
func clusteredDocs(t *testing.T, docs, clusters, wordsPerCluster, docLen int) *corpus.Corpus {
	raw := make([][]uint32, docs)
	for d := range raw {
		base := (d % clusters) * wordsPerCluster
		for n := 0; n < docLen+d%3; n++ {
			raw[d] = append(raw[d], uint32(base+(n*(d+1))%wordsPerCluster))
		}
	}
	c, err := corpus.FromDocs(raw, clusters*wordsPerCluster)
	require.NoError(t, err)
	return c
}

func rowsSumTo(t *testing.T, m *mat.Dense, want, delta float64) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		require.InDelta(t, want, floats.Sum(m.RawRowView(i)), delta, "row %d", i)
	}
}

func normalizedRows(m *mat.Dense) *mat.Dense {
	out := mat.DenseCopyOf(m)
	r, _ := out.Dims()
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		floats.Scale(1/floats.Sum(row), row)
	}
	return out
}

// nanScores poisons every document-topic score.
type nanScores struct{ Parameterization }

func (nanScores) DocTopicScore(float64) float64 { return math.NaN() }

// nanWord poisons the scores of a single word, so only the documents
// holding it turn invalid.
type nanWord struct {
	Parameterization
	word int
}

func (p nanWord) Transform(vocab, scores *mat.Dense) {
	p.Parameterization.Transform(vocab, scores)
	row := scores.RawRowView(p.word)
	for k := range row {
		row[k] = math.NaN()
	}
}

// wordFiveDocs holds word 5 only in document 1.
func wordFiveDocs(t *testing.T) *corpus.Corpus {
	c, err := corpus.FromDocs([][]uint32{
		{0, 1, 2, 0},
		{3, 4, 5, 5},
		{0, 1, 2, 1},
		{3, 4, 3},
	}, 6)
	require.NoError(t, err)
	return c
}
