// Package experiment wires the library packages into the end-to-end runs the
// CLI exposes: load and encode the CSV, split it, train or grid-search a
// model, score it, save the weights and draw plots.
package experiment

import (
	"context"
	"path/filepath"
	"slices"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/logitcv/config"
	"github.com/YuminosukeSato/logitcv/core/model"
	"github.com/YuminosukeSato/logitcv/dataset"
	"github.com/YuminosukeSato/logitcv/linear_model"
	"github.com/YuminosukeSato/logitcv/metrics"
	"github.com/YuminosukeSato/logitcv/model_selection"
	lerrors "github.com/YuminosukeSato/logitcv/pkg/errors"
	"github.com/YuminosukeSato/logitcv/pkg/log"
	"github.com/YuminosukeSato/logitcv/pipeline"
	"github.com/YuminosukeSato/logitcv/plotting"
	"github.com/YuminosukeSato/logitcv/preprocessing"
)

// Sink receives both kinds of plots.
type Sink interface {
	plotting.ScatterSink
	plotting.LossSink
}

// Runner executes experiments for one configuration.
type Runner struct {
	cfg    *config.Config
	logger log.Logger
	sink   Sink
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger overrides the component logger.
func WithLogger(l log.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithSink replaces the PNG sink, e.g. with a plotting.MemorySink in tests.
func WithSink(s Sink) Option {
	return func(r *Runner) { r.sink = s }
}

// NewRunner creates a runner. Plots go to <output.dir>/plots by default.
func NewRunner(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.GetLoggerWithName("experiment")
	}
	if r.sink == nil {
		r.sink = plotting.NewPNGSink(filepath.Join(cfg.Output.Dir, "plots"))
	}
	return r
}

// Config returns the configuration the runner was built with.
func (r *Runner) Config() *config.Config { return r.cfg }

// WeightsPath is where trained weights are written, or "" when saving is off.
// A relative weights_file is placed under output.dir.
func (r *Runner) WeightsPath() string {
	file := r.cfg.Output.WeightsFile
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(r.cfg.Output.Dir, file)
}

// Prepared is the dataset after loading, encoding and splitting.
type Prepared struct {
	Raw      *dataset.Dataset
	Encoder  *preprocessing.OneHotEncoder
	Features *dataset.FeatureMatrix
	Split    *model_selection.Split
}

// Prepare loads the CSV, one-hot encodes the categorical columns and splits
// the rows into train and test sets with the configured seed.
func (r *Runner) Prepare() (*Prepared, error) {
	cfg := r.cfg
	raw, err := dataset.LoadCSV(cfg.Data.Path, dataset.CSVOptions{
		IDColumn:           cfg.Data.IDColumn,
		LabelColumn:        cfg.Data.LabelColumn,
		CategoricalColumns: cfg.Data.Categorical,
		InferCategorical:   cfg.Data.InferCategorical,
	})
	if err != nil {
		return nil, err
	}

	var encOpts []preprocessing.OneHotOption
	if cfg.Preprocess.DropFirst {
		encOpts = append(encOpts, preprocessing.WithDropFirst())
	}
	enc := preprocessing.NewOneHotEncoder(encOpts...)
	encoded, err := enc.FitTransform(raw)
	if err != nil {
		return nil, lerrors.Wrap(err, "encode categorical columns")
	}
	fm, err := encoded.FeatureMatrix()
	if err != nil {
		return nil, err
	}

	var splitOpts []model_selection.SplitOption
	if cfg.Split.Stratify {
		splitOpts = append(splitOpts, model_selection.WithStratify())
	}
	split, err := model_selection.TrainTestSplit(fm.X, fm.Y, cfg.Split.TestSize, cfg.Split.Seed, splitOpts...)
	if err != nil {
		return nil, err
	}

	r.logger.Info("data prepared",
		log.PhaseKey, log.PhasePreprocessing,
		log.SamplesKey, raw.NumRows(),
		log.ColumnsKey, fm.Columns,
		"split.train", len(split.TrainIndices),
		"split.test", len(split.TestIndices),
		log.RandomSeedKey, cfg.Split.Seed,
	)
	return &Prepared{Raw: raw, Encoder: enc, Features: fm, Split: split}, nil
}

func (r *Runner) classifierOptions(prep *Prepared) []linear_model.Option {
	return []linear_model.Option{
		linear_model.WithFeatureNames(prep.Features.Columns),
		linear_model.WithLogger(r.logger),
	}
}

// TrainReport is the outcome of Train.
type TrainReport struct {
	Model       *pipeline.Pipeline
	Train       Evaluation
	Test        Evaluation
	WeightsPath string
	Elapsed     time.Duration
}

// Train fits the configured model on the training split and scores it on
// both splits. Weights and the loss curve are written when configured.
func (r *Runner) Train(ctx context.Context) (*TrainReport, error) {
	start := time.Now()
	prep, err := r.Prepare()
	if err != nil {
		return nil, err
	}
	params, err := r.cfg.Model.Params()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := append(r.classifierOptions(prep), linear_model.WithParams(params))
	p, err := pipeline.New(r.cfg.Preprocess.Scaling, linear_model.NewLogisticRegression(opts...))
	if err != nil {
		return nil, err
	}
	split := prep.Split
	if err := p.Fit(split.XTrain, split.YTrain); err != nil {
		return nil, err
	}

	report := &TrainReport{Model: p}
	if report.Train, err = Evaluate(p, split.XTrain, split.YTrain); err != nil {
		return nil, lerrors.Wrap(err, "evaluate train split")
	}
	if report.Test, err = Evaluate(p, split.XTest, split.YTest); err != nil {
		return nil, lerrors.Wrap(err, "evaluate test split")
	}
	if report.WeightsPath, err = r.saveWeights(p); err != nil {
		return nil, err
	}
	if r.cfg.Output.LossCurve {
		if err := r.sink.LossCurve("LogisticRegression", p.Classifier().LossHistory()); err != nil {
			return nil, err
		}
	}
	report.Elapsed = time.Since(start)

	r.logger.Info("training finished",
		log.OperationKey, log.OperationFit,
		log.HyperParamsKey, params.String(),
		"accuracy.train", report.Train.Accuracy,
		"accuracy.test", report.Test.Accuracy,
		log.DurationMsKey, report.Elapsed.Milliseconds(),
	)
	return report, nil
}

func (r *Runner) saveWeights(m model.WeightExporter) (string, error) {
	path := r.WeightsPath()
	if path == "" {
		return "", nil
	}
	if err := model.SaveWeightsFile(m, path); err != nil {
		return "", err
	}
	r.logger.Info("weights saved", log.PathKey, path)
	return path, nil
}

// SearchReport is the outcome of Search.
type SearchReport struct {
	Result      *model_selection.SearchResult
	Grid        *model_selection.ParamGrid
	Test        Evaluation
	WeightsPath string
}

// Search runs cross-validated grid search on the training split, then scores
// the refit best model on the held-out test split. progress may be nil.
func (r *Runner) Search(ctx context.Context, progress func(done, total int)) (*SearchReport, error) {
	cfg := r.cfg
	prep, err := r.Prepare()
	if err != nil {
		return nil, err
	}
	grid, err := model_selection.NewParamGrid(cfg.Search.Grid)
	if err != nil {
		return nil, err
	}
	base, err := cfg.Model.Params()
	if err != nil {
		return nil, err
	}
	scoring, err := metrics.GetScorer(cfg.Search.Scoring)
	if err != nil {
		return nil, err
	}
	if err := pipeline.ValidateScaling(cfg.Preprocess.Scaling); err != nil {
		return nil, err
	}

	var cv model_selection.Splitter
	if cfg.Search.Stratified {
		cv = model_selection.NewStratifiedKFold(cfg.Search.Folds, cfg.Search.Shuffle, cfg.Search.Seed)
	} else {
		cv = model_selection.NewKFold(cfg.Search.Folds, cfg.Search.Shuffle, cfg.Search.Seed)
	}

	gs := model_selection.NewGridSearchCV(grid, cv)
	gs.BaseParams = base
	gs.Scoring = scoring
	gs.Factory = pipeline.Factory(cfg.Preprocess.Scaling, r.classifierOptions(prep)...)

	runOpts := []model_selection.Option{
		model_selection.WithWorkers(cfg.Search.Workers),
		model_selection.WithLogger(r.logger),
	}
	if progress != nil {
		runOpts = append(runOpts, model_selection.WithProgress(progress))
	}
	split := prep.Split
	result, err := gs.Fit(ctx, split.XTrain, split.YTrain, runOpts...)
	if err != nil {
		return nil, err
	}

	report := &SearchReport{Result: result, Grid: grid}
	if report.Test, err = Evaluate(result.BestEstimator, split.XTest, split.YTest); err != nil {
		return nil, lerrors.Wrap(err, "evaluate best estimator")
	}
	if exporter, ok := result.BestEstimator.(model.WeightExporter); ok {
		if report.WeightsPath, err = r.saveWeights(exporter); err != nil {
			return nil, err
		}
	}
	if p, ok := result.BestEstimator.(*pipeline.Pipeline); ok && cfg.Output.LossCurve {
		if err := r.sink.LossCurve("best", p.Classifier().LossHistory()); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// Plot sends each configured numeric feature, paired with the labels, to the
// scatter sink. An empty feature list plots every numeric column.
func (r *Runner) Plot() error {
	prep, err := r.Prepare()
	if err != nil {
		return err
	}
	return plotting.ScatterFeatures(r.sink, prep.Raw, r.cfg.Output.PlotFeatures...)
}

// EvaluateSaved loads weights from path and scores them on the test split the
// current configuration produces. The stored feature names must match the
// encoded columns.
func (r *Runner) EvaluateSaved(path string) (Evaluation, error) {
	prep, err := r.Prepare()
	if err != nil {
		return Evaluation{}, err
	}
	p, err := pipeline.New(pipeline.ScalingNone, linear_model.NewLogisticRegression(linear_model.WithLogger(r.logger)))
	if err != nil {
		return Evaluation{}, err
	}
	if err := model.LoadWeightsFile(p, path); err != nil {
		return Evaluation{}, err
	}
	if names := p.Classifier().FeatureNames(); len(names) > 0 && !slices.Equal(names, prep.Features.Columns) {
		return Evaluation{}, lerrors.NewConfigurationError("weights", "feature columns differ from the dataset", names)
	}
	return Evaluate(p, prep.Split.XTest, prep.Split.YTest)
}

// Evaluation holds the test metrics of one split.
type Evaluation struct {
	Samples   int
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	LogLoss   float64
	Brier     float64
	AUC       float64
	Confusion metrics.ConfusionMatrix
}

// Evaluate scores clf on X and y with every classification metric.
func Evaluate(clf model.Classifier, X mat.Matrix, y *mat.VecDense) (Evaluation, error) {
	pred, err := clf.Predict(X)
	if err != nil {
		return Evaluation{}, err
	}
	proba, err := clf.PredictProba(X)
	if err != nil {
		return Evaluation{}, err
	}

	ev := Evaluation{Samples: y.Len()}
	for _, m := range []struct {
		dst *float64
		fn  metrics.ScoreFunc
		in  *mat.VecDense
	}{
		{&ev.Accuracy, metrics.Accuracy, pred},
		{&ev.Precision, metrics.Precision, pred},
		{&ev.Recall, metrics.Recall, pred},
		{&ev.F1, metrics.F1, pred},
		{&ev.LogLoss, metrics.LogLoss, proba},
		{&ev.Brier, metrics.BrierScore, proba},
		{&ev.AUC, metrics.AUC, proba},
	} {
		if *m.dst, err = m.fn(y, m.in); err != nil {
			return Evaluation{}, err
		}
	}
	if ev.Confusion, err = metrics.NewConfusionMatrix(y, pred); err != nil {
		return Evaluation{}, err
	}
	return ev, nil
}
