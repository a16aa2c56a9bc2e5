package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"runtime"

	log "github.com/golang/glog"

	"github.com/bobonovski/ldavb/corpus"
	"github.com/bobonovski/ldavb/matrix"
	"github.com/bobonovski/ldavb/model"
	"github.com/bobonovski/ldavb/vb"
)

var (
	input      = flag.String("input_file", "", "input training file")
	queryInput = flag.String("query_file", "", "documents to infer topics for")
	vocabIn    = flag.String("vocab_in", "", "prefix of a saved vocabulary, skips training")
	output     = flag.String("output", "model", "prefix of the output files")
	topicModel = flag.String("model", "lda", "model type: lda or lda-point")
	alpha      = flag.Float64("alpha", 0, "document-topic prior, 0 means 50/k")
	beta       = flag.Float64("beta", 0.01, "topic-word prior")
	topicNum   = flag.Int("k", 20, "number of topics")
	iteration  = flag.Int("iter", 10, "number of epochs")
	minInner   = flag.Int("min_inner", 3, "minimum fixed-point iterations per document")
	maxInner   = flag.Int("max_inner", 100, "maximum fixed-point iterations per document")
	tolerance  = flag.Float64("tol", 0.01, "convergence tolerance, divided by k")
	workers    = flag.Int("workers", runtime.NumCPU(), "number of worker goroutines")
	batchSize  = flag.Int("batch", 0, "minibatch size, 0 for batch updates")
	tInit      = flag.Float64("t_init", 1024, "learning rate schedule start")
	tOffset    = flag.Float64("t_offset", 0, "learning rate schedule offset")
	kappa      = flag.Float64("kappa", 0.6, "learning rate schedule exponent")
	maxInvalid = flag.Float64("max_invalid", 0.01, "tolerated fraction of documents with NaNs")
	maxStreak  = flag.Int("max_streak", 3, "consecutive epochs a document may produce NaNs")
	seed       = flag.Uint64("seed", 1, "random seed of the vocabulary initialization")
)

// checkInputs rejects flag combinations that leave nothing to read.
func checkInputs(input, queryInput, vocabIn string) error {
	if vocabIn != "" && queryInput == "" {
		return errors.New("-vocab_in skips training and needs documents from -query_file")
	}
	if vocabIn == "" && input == "" {
		return errors.New("either -input_file or -vocab_in with -query_file is required")
	}
	return nil
}

func main() {
	flag.Parse()
	defer log.Flush()

	cfg := vb.DefaultConfig(*topicNum)
	if *alpha > 0 {
		for k := range cfg.TopicPrior {
			cfg.TopicPrior[k] = *alpha
		}
	}
	cfg.VocabPrior = *beta
	cfg.Iterations = *iteration
	cfg.MinInnerIterations = *minInner
	cfg.MaxInnerIterations = *maxInner
	cfg.Tolerance = *tolerance
	cfg.Workers = *workers
	cfg.BatchSize = *batchSize
	cfg.LearningRate = vb.LearningRate{Init: *tInit, Offset: *tOffset, Kappa: *kappa}
	cfg.MaxInvalidFraction = *maxInvalid
	cfg.MaxInvalidStreak = *maxStreak

	if err := checkInputs(*input, *queryInput, *vocabIn); err != nil {
		log.Exit(err)
	}

	ctor, err := model.GetModel(*topicModel)
	if err != nil {
		log.Exit(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// read training data, or the query data when only inferring
	dataFile := *input
	if *vocabIn != "" {
		dataFile = *queryInput
	}
	data, err := corpus.Load(dataFile, 0)
	if err != nil {
		log.Exit(err)
	}

	m, err := ctor(data, cfg, *seed)
	if err != nil {
		log.Exit(err)
	}

	if *vocabIn != "" {
		if err := m.LoadVocab(*vocabIn); err != nil {
			log.Exit(err)
		}
	} else {
		report, err := m.Train(ctx, cfg.Iterations)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			// checkpoint what the completed epochs learned
			log.Warningf("training interrupted: %v", err)
		default:
			log.Exit(err)
		}
		if report != nil && len(report.Epochs) > 0 {
			last := report.Epochs[len(report.Epochs)-1]
			log.Infof("last epoch mean inner iterations %.2f", last.MeanIterations())
		}
		if err := m.SaveVocab(*output); err != nil {
			log.Exit(err)
		}
		if err := m.SavePhi(*output); err != nil {
			log.Exit(err)
		}
		if err := m.SaveTheta(*output); err != nil {
			log.Exit(err)
		}
		if err := data.SaveDocIds(*output + ".ids"); err != nil {
			log.Exit(err)
		}
		if *queryInput == "" {
			return
		}
		if data, err = corpus.Load(*queryInput, 0); err != nil {
			log.Exit(err)
		}
	}

	theta, err := m.Infer(ctx, data)
	if err != nil {
		log.Exit(err)
	}
	if err := matrix.Serialize(theta, *output+".query.theta"); err != nil {
		log.Exit(err)
	}
	if err := data.SaveDocIds(*output + ".query.ids"); err != nil {
		log.Exit(err)
	}
}
