package vb

import (
	"context"

	log "github.com/golang/glog"
	"gonum.org/v1/gonum/mat"

	"github.com/bobonovski/ldavb/corpus"
)

// Train runs cfg.Iterations epochs over data, updating docTopics (D×K)
// and vocab (K×T) in place. In batch mode the vocabulary is replaced at
// the end of each epoch; with cfg.BatchSize > 0 it is blended after each
// minibatch with the step size of cfg.LearningRate.
//
// Documents whose responsibilities turn NaN are left out of the update,
// reseeded and listed in EpochStats.InvalidDocs. Training fails with an
// *InstabilityError when a sweep holds more than cfg.MaxInvalidFraction
// invalid documents, or when one document stays invalid for
// cfg.MaxInvalidStreak consecutive epochs.
//
// The returned report covers every completed epoch, also when an error
// stops training early. On error vocab holds the vocabulary as of the
// last completed epoch, while docTopics keeps the rows already inferred
// in the interrupted one.
func Train(ctx context.Context, p Parameterization, cfg Config, data *corpus.Corpus,
	docTopics, vocab *mat.Dense) (*Report, error) {
	d, err := newDriver(p, cfg, data, docTopics, vocab, true)
	if err != nil {
		return nil, err
	}
	t := &trainer{driver: d, live: vocab, streaks: make([]int, data.DocNum)}
	k, v := vocab.Dims()
	t.next = mat.NewDense(k, v, nil)
	t.counts = mat.NewDense(k, v, nil)
	if cfg.stochastic() {
		t.snapshot = mat.NewDense(k, v, nil)
	}

	report := &Report{}
	defer t.restore(vocab)

	for epoch := 0; epoch < cfg.Iterations; epoch++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		seed := epoch == 0 && !cfg.WarmStart

		var stats EpochStats
		if cfg.stochastic() {
			stats, err = t.stochasticEpoch(ctx, epoch, seed)
		} else {
			stats, err = t.batchEpoch(ctx, epoch, seed)
		}
		if err != nil {
			return report, err
		}
		report.add(stats)
		if persistent := t.track(stats.InvalidDocs); len(persistent) > 0 {
			return report, &InstabilityError{Epoch: epoch, InvalidDocs: len(stats.InvalidDocs),
				Documents: stats.Documents, Persistent: persistent}
		}

		if cfg.LogFrequency > 0 && epoch%cfg.LogFrequency == 0 {
			log.Infof("%s epoch %4d, mean inner iterations %.2f, invalid documents %d, step %.4f",
				p.Name(), epoch, stats.MeanIterations(), len(stats.InvalidDocs), stats.StepSize)
		}
	}
	return report, nil
}

// trainer double-buffers the vocabulary: live is read by the workers
// through its transform while next receives the published update.
type trainer struct {
	*driver
	live   *mat.Dense
	next   *mat.Dense
	counts *mat.Dense

	// snapshot is live at the start of a stochastic epoch.
	snapshot *mat.Dense
	// streaks counts the consecutive epochs each document was invalid.
	streaks []int
}

// track updates the invalid streaks with the sorted invalid documents of
// an epoch and returns the documents whose streak reached the limit.
func (t *trainer) track(invalid []int) []int {
	var persistent []int
	i := 0
	for doc := range t.streaks {
		if i < len(invalid) && invalid[i] == doc {
			i++
			t.streaks[doc]++
			if t.streaks[doc] >= t.cfg.MaxInvalidStreak {
				persistent = append(persistent, doc)
			}
			continue
		}
		t.streaks[doc] = 0
	}
	return persistent
}

func (t *trainer) batchEpoch(ctx context.Context, epoch int, seed bool) (EpochStats, error) {
	stats := EpochStats{Epoch: epoch, StepSize: 1}

	t.param.Transform(t.live, t.scores)
	s, err := t.sweep(ctx, 0, t.data.DocNum, seed, t.counts)
	if err != nil {
		return stats, err
	}
	stats.merge(s)
	if t.tooManyInvalid(s) {
		return stats, &InstabilityError{Epoch: epoch, InvalidDocs: len(s.invalid), Documents: s.documents}
	}

	t.publish(t.next, 1)
	if nan := countNaN(t.next); nan > 0 {
		return stats, &InstabilityError{Epoch: epoch, NaNCells: nan}
	}
	t.live, t.next = t.next, t.live
	return stats, nil
}

func (t *trainer) stochasticEpoch(ctx context.Context, epoch int, seed bool) (EpochStats, error) {
	t.snapshot.Copy(t.live)
	stats, err := t.blendMinibatches(ctx, epoch, seed)
	if err != nil {
		// drop the blends of the interrupted epoch
		t.live.Copy(t.snapshot)
	}
	return stats, err
}

func (t *trainer) blendMinibatches(ctx context.Context, epoch int, seed bool) (EpochStats, error) {
	rho := t.cfg.LearningRate.Step(epoch)
	stats := EpochStats{Epoch: epoch, StepSize: rho}

	docs := t.data.DocNum
	for lo := 0; lo < docs; lo += t.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		hi := lo + t.cfg.BatchSize
		if hi > docs {
			hi = docs
		}

		t.param.Transform(t.live, t.scores)
		s, err := t.sweep(ctx, lo, hi, seed, t.counts)
		if err != nil {
			return stats, err
		}
		stats.merge(s)
		if t.tooManyInvalid(s) {
			return stats, &InstabilityError{Epoch: epoch, InvalidDocs: len(s.invalid), Documents: s.documents}
		}

		// the minibatch stands in for the whole corpus
		t.publish(t.next, float64(docs)/float64(hi-lo))

		// live = (1 - rho) * live + rho * next
		t.next.Scale(rho, t.next)
		t.live.Scale(1-rho, t.live)
		t.live.Add(t.live, t.next)
		if nan := countNaN(t.live); nan > 0 {
			return stats, &InstabilityError{Epoch: epoch, NaNCells: nan}
		}
	}
	return stats, nil
}

// publish writes vocabPrior + scale * counts into dst and lets the
// parameterization normalize it.
func (t *trainer) publish(dst *mat.Dense, scale float64) {
	k, _ := dst.Dims()
	for topic := 0; topic < k; topic++ {
		row := dst.RawRowView(topic)
		for w, c := range t.counts.RawRowView(topic) {
			row[w] = t.cfg.VocabPrior + scale*c
		}
	}
	t.param.NormalizeVocab(dst)
}

// restore leaves the result in the caller's buffer.
func (t *trainer) restore(vocab *mat.Dense) {
	if t.live != vocab {
		vocab.Copy(t.live)
	}
}
