package model_selection

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/logitcv/core/model"
	"github.com/YuminosukeSato/logitcv/core/parallel"
	"github.com/YuminosukeSato/logitcv/linear_model"
	"github.com/YuminosukeSato/logitcv/metrics"
	lerrors "github.com/YuminosukeSato/logitcv/pkg/errors"
	"github.com/YuminosukeSato/logitcv/pkg/log"
)

// CandidateResult reports the cross-validation of one combination.
type CandidateResult struct {
	Index       int
	Combination map[string]interface{}
	Params      linear_model.Params

	TrainScores    []float64
	TestScores     []float64
	MeanTrainScore float64
	MeanTestScore  float64
	StdTestScore   float64

	// Rank is 1 for the best mean validation score. Equal means share a rank.
	// Failed candidates have rank 0.
	Rank int

	Failed bool
	Err    error
}

// SearchResult contains the return of a grid search.
type SearchResult struct {
	Candidates    []CandidateResult
	BestIndex     int
	BestParams    linear_model.Params
	BestScore     float64
	BestEstimator model.Classifier
	Elapsed       time.Duration
}

// Best returns the winning candidate.
func (r *SearchResult) Best() CandidateResult {
	return r.Candidates[r.BestIndex]
}

// GridSearchCV evaluates every combination of Grid with k-fold
// cross-validation and refits the best one on all rows.
type GridSearchCV struct {
	Grid *ParamGrid
	CV   Splitter

	// BaseParams supplies the hyperparameters that are not searched.
	BaseParams linear_model.Params
	// Factory builds the classifier for each task. Defaults to LogisticFactory().
	Factory EstimatorFactory
	// Scoring defaults to metrics.Accuracy. Higher is better.
	Scoring metrics.ScoreFunc
}

// NewGridSearchCV creates a search with default params, a plain
// LogisticRegression factory and accuracy scoring.
func NewGridSearchCV(grid *ParamGrid, cv Splitter) *GridSearchCV {
	return &GridSearchCV{
		Grid:       grid,
		CV:         cv,
		BaseParams: linear_model.DefaultParams(),
		Factory:    LogisticFactory(),
		Scoring:    metrics.Accuracy,
	}
}

// Fit runs the search on X and y.
//
// Every (combination, fold) pair is an independent task on a bounded worker
// pool; each task writes into its own slot and means are computed after the
// join. A combination whose fold hits a NumericInstabilityError is marked
// failed and skipped for selection; any other error aborts the search. Ties
// on the mean validation score go to the combination enumerated first.
func (gs *GridSearchCV) Fit(ctx context.Context, X mat.Matrix, y *mat.VecDense, opts ...Option) (*SearchResult, error) {
	const op = "GridSearchCV.Fit"
	cfg := newRunConfig(opts)
	start := time.Now()

	if gs.Grid == nil {
		return nil, lerrors.NewEmptySpaceError("")
	}
	if gs.CV == nil {
		return nil, lerrors.NewConfigurationError("cv", "splitter is required", nil)
	}
	if err := checkXY(op, X, y); err != nil {
		return nil, err
	}
	factory := gs.Factory
	if factory == nil {
		factory = LogisticFactory()
	}
	scoring := gs.Scoring
	if scoring == nil {
		scoring = metrics.Accuracy
	}

	// validated up front so that a bad value never costs a fit
	candidates, err := gs.Grid.Params(gs.BaseParams)
	if err != nil {
		return nil, err
	}
	folds, err := gs.CV.Split(X, y)
	if err != nil {
		return nil, err
	}

	nFolds := len(folds)
	nTasks := len(candidates) * nFolds
	cfg.logger.Info("grid search started",
		log.OperationKey, log.OperationSearch,
		log.CandidatesKey, len(candidates),
		log.FoldsKey, nFolds,
		log.WorkersKey, cfg.workers,
	)

	type slot struct {
		score foldScore
		err   error
	}
	slots := make([]slot, nTasks)
	tracker := &progressTracker{total: nTasks, fn: cfg.progress}

	err = parallel.ForEach(ctx, nTasks, cfg.workers, func(_ context.Context, t int) error {
		c, f := t/nFolds, t%nFolds
		s, err := evaluateFold(factory(candidates[c]), X, y, folds[f], scoring)
		if err != nil {
			var nie *lerrors.NumericInstabilityError
			if !lerrors.As(err, &nie) {
				return lerrors.Wrapf(err, "candidate %d fold %d", c, f)
			}
			slots[t].err = err
			cfg.logger.Debug("candidate diverged",
				log.CandidateKey, c,
				log.FoldKey, f,
				log.ErrorCodeKey, log.ErrorNumericInstability,
			)
		} else {
			slots[t].score = s
		}
		tracker.step()
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &SearchResult{Candidates: make([]CandidateResult, len(candidates)), BestIndex: -1}
	var firstErr error
	for c := range candidates {
		cr := CandidateResult{
			Index:       c,
			Combination: gs.Grid.At(c),
			Params:      candidates[c],
			TrainScores: make([]float64, nFolds),
			TestScores:  make([]float64, nFolds),
		}
		for f := 0; f < nFolds; f++ {
			s := slots[c*nFolds+f]
			if s.err != nil && cr.Err == nil {
				cr.Failed = true
				cr.Err = s.err
			}
			cr.TrainScores[f] = s.score.train
			cr.TestScores[f] = s.score.test
		}
		if cr.Failed {
			if firstErr == nil {
				firstErr = cr.Err
			}
		} else {
			cr.MeanTrainScore = meanOf(cr.TrainScores)
			cr.MeanTestScore = meanOf(cr.TestScores)
			cr.StdTestScore = stdOf(cr.TestScores)
			if res.BestIndex < 0 || cr.MeanTestScore > res.BestScore {
				res.BestIndex = c
				res.BestScore = cr.MeanTestScore
			}
		}
		res.Candidates[c] = cr
	}
	if res.BestIndex < 0 {
		return nil, lerrors.NewModelError(op, "every candidate failed", firstErr)
	}
	assignRanks(res.Candidates)

	res.BestParams = candidates[res.BestIndex]
	best := factory(res.BestParams)
	if err := best.Fit(X, y); err != nil {
		return nil, lerrors.Wrap(err, "refit best candidate")
	}
	res.BestEstimator = best
	res.Elapsed = time.Since(start)

	cfg.logger.Info("grid search finished",
		log.OperationKey, log.OperationSearch,
		log.BestIndexKey, res.BestIndex,
		log.ScoreKey, res.BestScore,
		log.HyperParamsKey, gs.Grid.FormatCombination(res.Candidates[res.BestIndex].Combination),
		log.DurationMsKey, res.Elapsed.Milliseconds(),
	)
	return res, nil
}

// assignRanks ranks successful candidates by mean validation score, highest
// first. Candidates with equal means share the lower rank number.
func assignRanks(cands []CandidateResult) {
	order := make([]int, 0, len(cands))
	for i, c := range cands {
		if !c.Failed {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return cands[order[a]].MeanTestScore > cands[order[b]].MeanTestScore
	})
	for pos, i := range order {
		if pos > 0 && cands[i].MeanTestScore == cands[order[pos-1]].MeanTestScore {
			cands[i].Rank = cands[order[pos-1]].Rank
			continue
		}
		cands[i].Rank = pos + 1
	}
}

// String summarises the result for logs.
func (r *SearchResult) String() string {
	failed := 0
	for _, c := range r.Candidates {
		if c.Failed {
			failed++
		}
	}
	return fmt.Sprintf("SearchResult(candidates=%d, failed=%d, best=%d, score=%.4f)",
		len(r.Candidates), failed, r.BestIndex, r.BestScore)
}
