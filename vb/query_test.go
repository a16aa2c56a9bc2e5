package vb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestQueryIdempotent(t *testing.T) {
	data := clusteredDocs(t, 9, 3, 4, 6)

	for _, p := range parameterizations {
		t.Run(p.Name(), func(t *testing.T) {
			cfg := testConfig(3)
			vocab := toyVocab(p, 3, data.VocabSize)
			frozen := mat.DenseCopyOf(vocab)

			first := mat.NewDense(data.DocNum, 3, nil)
			report, err := Query(context.Background(), p, cfg, data, first, vocab)
			require.NoError(t, err)
			require.Len(t, report.Epochs, 1)
			assert.Equal(t, data.DocNum, report.Epochs[0].Documents)
			assert.Equal(t, report.Epochs[0].Iterations, report.Iterations)

			second := mat.NewDense(data.DocNum, 3, nil)
			_, err = Query(context.Background(), p, cfg, data, second, vocab)
			require.NoError(t, err)

			assert.Equal(t, first.RawMatrix().Data, second.RawMatrix().Data)
			assert.True(t, mat.Equal(frozen, vocab))
		})
	}
}

func TestQueryWorkerCountIndependent(t *testing.T) {
	data := clusteredDocs(t, 7, 2, 4, 5)
	vocab := toyVocab(PointEstimates, 2, data.VocabSize)

	cfg := testConfig(2)
	cfg.Workers = 1
	serial := mat.NewDense(data.DocNum, 2, nil)
	_, err := Query(context.Background(), PointEstimates, cfg, data, serial, vocab)
	require.NoError(t, err)

	cfg.Workers = 4
	parallel := mat.NewDense(data.DocNum, 2, nil)
	_, err = Query(context.Background(), PointEstimates, cfg, data, parallel, vocab)
	require.NoError(t, err)

	assert.Equal(t, serial.RawMatrix().Data, parallel.RawMatrix().Data)
	rowsSumTo(t, parallel, 1, 1e-9)
}

func TestQueryWarmStart(t *testing.T) {
	data := clusteredDocs(t, 4, 2, 3, 4)
	vocab := toyVocab(PseudoCounts, 2, data.VocabSize)
	cfg := testConfig(2)

	docTopics := mat.NewDense(data.DocNum, 2, nil)
	cold, err := Query(context.Background(), PseudoCounts, cfg, data, docTopics, vocab)
	require.NoError(t, err)

	cfg.WarmStart = true
	warm, err := Query(context.Background(), PseudoCounts, cfg, data, docTopics, vocab)
	require.NoError(t, err)

	assert.LessOrEqual(t, warm.Iterations, cold.Iterations)
}

func TestQueryRejectsWordOutsideVocabulary(t *testing.T) {
	data := clusteredDocs(t, 4, 2, 3, 4)
	_, err := Query(context.Background(), PseudoCounts, testConfig(2), data,
		mat.NewDense(data.DocNum, 2, nil), toyVocab(PseudoCounts, 2, data.VocabSize-2))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestQueryInvalidDocuments(t *testing.T) {
	data := wordFiveDocs(t)
	vocab := toyVocab(PseudoCounts, 2, data.VocabSize)
	p := nanWord{PseudoCounts, 5}

	cfg := testConfig(2)
	cfg.MaxInvalidFraction = 0.5
	docTopics := mat.NewDense(data.DocNum, 2, nil)
	report, err := Query(context.Background(), p, cfg, data, docTopics, vocab)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, report.Epochs[0].InvalidDocs)
	assert.Zero(t, countNaN(docTopics))

	cfg.MaxInvalidFraction = 0.1
	report, err = Query(context.Background(), p, cfg, data, docTopics, vocab)
	var ie *InstabilityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 1, ie.InvalidDocs)
	assert.Equal(t, data.DocNum, ie.Documents)
	require.NotNil(t, report)
	assert.Equal(t, []int{1}, report.Epochs[0].InvalidDocs)
}
