package vb

import (
	"context"

	log "github.com/golang/glog"
	"gonum.org/v1/gonum/mat"

	"github.com/bobonovski/ldavb/corpus"
)

// Query infers the topic mixtures of data into docTopics (D×K) against a
// frozen vocab (K×T). vocab is only read. Rows of documents whose
// responsibilities turn NaN are reseeded and listed in the report; more
// than cfg.MaxInvalidFraction of them fail the query with an
// *InstabilityError.
func Query(ctx context.Context, p Parameterization, cfg Config, data *corpus.Corpus,
	docTopics, vocab *mat.Dense) (*Report, error) {
	d, err := newDriver(p, cfg, data, docTopics, vocab, false)
	if err != nil {
		return nil, err
	}

	d.param.Transform(vocab, d.scores)
	s, err := d.sweep(ctx, 0, data.DocNum, !cfg.WarmStart, nil)
	if err != nil {
		return nil, err
	}

	var stats EpochStats
	stats.merge(s)
	report := &Report{}
	report.add(stats)

	log.Infof("%s query over %d documents, mean inner iterations %.2f, invalid documents %d",
		p.Name(), stats.Documents, stats.MeanIterations(), len(stats.InvalidDocs))
	if d.tooManyInvalid(s) {
		return report, &InstabilityError{InvalidDocs: len(s.invalid), Documents: s.documents}
	}
	return report, nil
}
