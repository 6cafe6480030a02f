package model_selection

import (
	"context"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/logitcv/core/model"
	"github.com/YuminosukeSato/logitcv/core/parallel"
	"github.com/YuminosukeSato/logitcv/dataset"
	"github.com/YuminosukeSato/logitcv/linear_model"
	"github.com/YuminosukeSato/logitcv/metrics"
	lerrors "github.com/YuminosukeSato/logitcv/pkg/errors"
	"github.com/YuminosukeSato/logitcv/pkg/log"
)

// EstimatorFactory builds a fresh, unfitted classifier for params. It is
// called once per task, so implementations must not share mutable state
// between the classifiers they return.
type EstimatorFactory func(params linear_model.Params) model.Classifier

// LogisticFactory returns a factory producing LogisticRegression models with
// the given params plus opts (feature names, logger).
func LogisticFactory(opts ...linear_model.Option) EstimatorFactory {
	return func(params linear_model.Params) model.Classifier {
		return linear_model.NewLogisticRegression(append([]linear_model.Option{linear_model.WithParams(params)}, opts...)...)
	}
}

// Option configures CrossValidate and GridSearchCV.Fit.
type Option func(*runConfig)

type runConfig struct {
	workers  int
	progress func(done, total int)
	logger   log.Logger
}

// WithWorkers bounds the number of concurrent fold fits. Zero or less means
// runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(c *runConfig) { c.workers = n }
}

// WithProgress registers a callback invoked after every finished task with
// the number of finished tasks and the total. Calls are serialised.
func WithProgress(fn func(done, total int)) Option {
	return func(c *runConfig) { c.progress = fn }
}

// WithLogger overrides the component logger.
func WithLogger(l log.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

func newRunConfig(opts []Option) runConfig {
	var c runConfig
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = log.GetLoggerWithName("model_selection")
	}
	return c
}

// progressTracker counts finished tasks for the progress callback.
type progressTracker struct {
	mu    sync.Mutex
	done  int
	total int
	fn    func(done, total int)
}

func (p *progressTracker) step() {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	p.fn(p.done, p.total)
}

// foldScore is the outcome of fitting on one fold.
type foldScore struct {
	train   float64
	test    float64
	fitTime time.Duration
}

// evaluateFold fits est on the training rows of fold and scores both sides.
func evaluateFold(est model.Classifier, X mat.Matrix, y *mat.VecDense, fold Fold, scoring metrics.ScoreFunc) (foldScore, error) {
	var s foldScore
	XTrain, yTrain := dataset.SelectRows(X, y, fold.TrainIndices)
	XTest, yTest := dataset.SelectRows(X, y, fold.TestIndices)

	start := time.Now()
	if err := est.Fit(XTrain, yTrain); err != nil {
		return s, err
	}
	s.fitTime = time.Since(start)

	pred, err := est.Predict(XTrain)
	if err != nil {
		return s, err
	}
	if s.train, err = scoring(yTrain, pred); err != nil {
		return s, err
	}
	if pred, err = est.Predict(XTest); err != nil {
		return s, err
	}
	if s.test, err = scoring(yTest, pred); err != nil {
		return s, err
	}
	return s, nil
}

// CVResult holds per-fold scores of one cross-validation run.
type CVResult struct {
	TrainScores []float64
	TestScores  []float64
	FitTimes    []time.Duration
}

// MeanTestScore returns the mean validation score.
func (r *CVResult) MeanTestScore() float64 { return meanOf(r.TestScores) }

// MeanTrainScore returns the mean training score.
func (r *CVResult) MeanTrainScore() float64 { return meanOf(r.TrainScores) }

// StdTestScore returns the population standard deviation of the validation
// scores.
func (r *CVResult) StdTestScore() float64 { return stdOf(r.TestScores) }

func meanOf(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

func stdOf(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	return math.Sqrt(stat.Moment(2, x, nil))
}

// CrossValidate fits a fresh classifier from factory on every fold produced by
// cv and scores the training and validation rows with scoring (accuracy when
// nil). Folds run concurrently; scores are stored by fold index. The first
// error stops scheduling and is returned.
func CrossValidate(ctx context.Context, factory func() model.Classifier, X mat.Matrix, y *mat.VecDense,
	cv Splitter, scoring metrics.ScoreFunc, opts ...Option) (*CVResult, error) {
	cfg := newRunConfig(opts)
	if scoring == nil {
		scoring = metrics.Accuracy
	}
	if err := checkXY("CrossValidate", X, y); err != nil {
		return nil, err
	}
	folds, err := cv.Split(X, y)
	if err != nil {
		return nil, err
	}

	scores := make([]foldScore, len(folds))
	tracker := &progressTracker{total: len(folds), fn: cfg.progress}
	err = parallel.ForEach(ctx, len(folds), cfg.workers, func(_ context.Context, i int) error {
		s, err := evaluateFold(factory(), X, y, folds[i], scoring)
		if err != nil {
			return lerrors.Wrapf(err, "fold %d", i)
		}
		scores[i] = s
		tracker.step()
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &CVResult{
		TrainScores: make([]float64, len(folds)),
		TestScores:  make([]float64, len(folds)),
		FitTimes:    make([]time.Duration, len(folds)),
	}
	for i, s := range scores {
		res.TrainScores[i] = s.train
		res.TestScores[i] = s.test
		res.FitTimes[i] = s.fitTime
	}
	cfg.logger.Info("cross validation finished",
		log.OperationKey, log.OperationCrossValidate,
		log.FoldsKey, len(folds),
		log.ScoreKey, res.MeanTestScore(),
	)
	return res, nil
}

func checkXY(op string, X mat.Matrix, y *mat.VecDense) error {
	if X == nil || y == nil {
		return lerrors.NewModelError(op, "empty data", lerrors.ErrEmptyData)
	}
	n, d := X.Dims()
	if n == 0 || d == 0 {
		return lerrors.NewModelError(op, "empty data", lerrors.ErrEmptyData)
	}
	if y.Len() != n {
		return lerrors.NewDimensionError(op, n, y.Len(), 0)
	}
	return nil
}
