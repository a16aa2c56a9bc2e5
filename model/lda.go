package model

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	log "github.com/golang/glog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/bobonovski/ldavb/corpus"
	"github.com/bobonovski/ldavb/matrix"
	"github.com/bobonovski/ldavb/util"
	"github.com/bobonovski/ldavb/vb"
)

var ErrNotTrained = errors.New("model: vocabulary not trained or loaded")

func init() {
	Register("lda", NewLDA)
	Register("lda-point", NewPointLDA)
}

// LDA is a variational Bayes LDA model owning its document-topic and
// vocabulary buffers.
type LDA struct {
	data  *corpus.Corpus
	cfg   vb.Config
	param vb.Parameterization
	seed  uint64

	dt      *mat.Dense // doc-topic matrix, D×K
	vocab   *mat.Dense // topic-word matrix, K×T
	trained bool
	epochs  int // completed training epochs, advances the learning rate
}

// NewLDA creates a LDA instance whose vocabulary holds Dirichlet
// pseudo-counts.
func NewLDA(dat *corpus.Corpus, cfg vb.Config, seed uint64) (Model, error) {
	return newLDA(vb.PseudoCounts, dat, cfg, seed)
}

// NewPointLDA creates a LDA instance whose vocabulary holds normalized
// topic-word probabilities.
func NewPointLDA(dat *corpus.Corpus, cfg vb.Config, seed uint64) (Model, error) {
	return newLDA(vb.PointEstimates, dat, cfg, seed)
}

func newLDA(p vb.Parameterization, dat *corpus.Corpus, cfg vb.Config, seed uint64) (*LDA, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dat == nil || dat.DocNum == 0 {
		return nil, corpus.ErrEmptyCorpus
	}
	return &LDA{
		data:  dat,
		cfg:   cfg,
		param: p,
		seed:  seed,
		dt:    mat.NewDense(dat.DocNum, cfg.Topics, nil),
	}, nil
}

// randomVocab draws every cell from Gamma(100, 100), the pseudo-count
// mode adds the vocabulary prior, the point estimate mode normalizes rows.
func (this *LDA) randomVocab() *mat.Dense {
	gamma := distuv.Gamma{
		Alpha: 100,
		Beta:  100,
		Src:   rand.NewPCG(this.seed, this.seed^0x9e3779b97f4a7c15),
	}
	vocab := mat.NewDense(this.cfg.Topics, this.data.VocabSize, nil)
	for k := 0; k < this.cfg.Topics; k += 1 {
		row := vocab.RawRowView(k)
		for t := range row {
			row[t] = gamma.Rand()
		}
		if this.param == vb.PseudoCounts {
			floats.AddConst(this.cfg.VocabPrior, row)
		}
	}
	this.param.NormalizeVocab(vocab)
	return vocab
}

// Train runs iter more epochs. Later calls warm-start from the current
// document rows and vocabulary.
func (this *LDA) Train(ctx context.Context, iter int) (*vb.Report, error) {
	if this.vocab == nil {
		this.vocab = this.randomVocab()
	}
	cfg := this.cfg
	cfg.Iterations = iter
	cfg.WarmStart = this.trained
	// a resumed run continues the schedule where the last one stopped
	cfg.LearningRate.Offset += float64(this.epochs)

	report, err := vb.Train(ctx, this.param, cfg, this.data, this.dt, this.vocab)
	if report != nil && len(report.Epochs) > 0 {
		this.trained = true
		this.epochs += len(report.Epochs)
		log.Infof("%s trained %d epochs, %d inner iterations",
			this.param.Name(), len(report.Epochs), report.Iterations)
	}
	return report, err
}

// Infer returns the normalized topic mixtures of dat. The vocabulary is
// left unchanged.
func (this *LDA) Infer(ctx context.Context, dat *corpus.Corpus) (*mat.Dense, error) {
	if this.vocab == nil {
		return nil, ErrNotTrained
	}
	if dat == nil || dat.DocNum == 0 {
		return nil, corpus.ErrEmptyCorpus
	}
	cfg := this.cfg
	cfg.WarmStart = false

	dt := mat.NewDense(dat.DocNum, cfg.Topics, nil)
	if _, err := vb.Query(ctx, this.param, cfg, dat, dt, this.vocab); err != nil {
		return nil, err
	}
	return normalizeRows(dt), nil
}

// compute the posterior point estimation of topic-word mixture
func (this *LDA) Phi() *mat.Dense {
	if this.vocab == nil {
		return nil
	}
	return normalizeRows(this.vocab)
}

// compute the posterior point estimation of document-topic mixture
func (this *LDA) Theta() *mat.Dense {
	return normalizeRows(this.dt)
}

// serialize topic-word distribution
func (this *LDA) SavePhi(fn string) error {
	phi := this.Phi()
	if phi == nil {
		return ErrNotTrained
	}
	return matrix.Serialize(phi, fn+".phi")
}

// serialize document-topic distribution
func (this *LDA) SaveTheta(fn string) error {
	return matrix.Serialize(this.Theta(), fn+".theta")
}

// serialize the vocabulary representation
func (this *LDA) SaveVocab(fn string) error {
	if this.vocab == nil {
		return ErrNotTrained
	}
	return matrix.Serialize(this.vocab, fn+".vocab")
}

// deserialize the vocabulary representation
func (this *LDA) LoadVocab(fn string) error {
	vocab, err := matrix.Deserialize(fn + ".vocab")
	if err != nil {
		return err
	}
	k, t := vocab.Dims()
	if k != this.cfg.Topics {
		return fmt.Errorf("model: vocabulary has %d topics, want %d", k, this.cfg.Topics)
	}
	if t < this.data.VocabSize {
		return fmt.Errorf("model: vocabulary has %d words, corpus needs %d", t, this.data.VocabSize)
	}
	if err := this.param.ValidateVocab(vocab); err != nil {
		return err
	}
	this.vocab = vocab
	return nil
}

func normalizeRows(m *mat.Dense) *mat.Dense {
	out := mat.DenseCopyOf(m)
	r, _ := out.Dims()
	for i := 0; i < r; i += 1 {
		row := out.RawRowView(i)
		if sum := util.VectorSum(row); sum > 0 {
			floats.Scale(1/sum, row)
		}
	}
	return out
}
