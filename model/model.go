package model

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/bobonovski/ldavb/corpus"
	"github.com/bobonovski/ldavb/vb"
)

var constructors = make(map[string]ModelCtor)

// the common interface topic models should follow
type Model interface {
	// train model for iter epochs, resuming from the previous call
	Train(ctx context.Context, iter int) (*vb.Report, error)
	// infer topic mixtures of new documents against the trained vocabulary
	Infer(ctx context.Context, dat *corpus.Corpus) (*mat.Dense, error)
	// get doc-topic distribution
	Theta() *mat.Dense
	// get topic-word distribution
	Phi() *mat.Dense
	// serialize posterior document topic distribution
	SaveTheta(fn string) error
	// serialize posterior topic word distribution
	SavePhi(fn string) error
	// serialize the vocabulary representation
	SaveVocab(fn string) error
	// deserialize the vocabulary representation
	LoadVocab(fn string) error
}

// new models should register themselves using this function
func Register(modelType string, m ModelCtor) {
	constructors[modelType] = m
}

type ModelCtor func(dat *corpus.Corpus, cfg vb.Config, seed uint64) (Model, error)

func GetModel(modelType string) (ModelCtor, error) {
	if _, ok := constructors[modelType]; !ok {
		return nil, fmt.Errorf("model %s not registered", modelType)
	}
	return constructors[modelType], nil
}
