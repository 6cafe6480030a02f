package linear_model

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/logitcv/core/model"
	"github.com/YuminosukeSato/logitcv/metrics"
	lerrors "github.com/YuminosukeSato/logitcv/pkg/errors"
	"github.com/YuminosukeSato/logitcv/pkg/log"
)

const modelName = "LogisticRegression"

// LogisticRegression is a binary classifier trained by full-batch gradient
// descent on the mean negative log-likelihood.
//
// Each Fit starts from fresh parameters (zeros, or N(0, InitStdDev²) drawn
// from a PCG generator seeded with Seed), so two fits with the same data and
// Params produce bit-identical weights.
type LogisticRegression struct {
	state  *model.StateManager
	params Params
	logger log.Logger

	coef         []float64
	intercept    float64
	nIter        int
	lossHistory  []float64
	featureNames []string
}

// Option configures a LogisticRegression.
type Option func(*LogisticRegression)

// WithParams replaces all hyperparameters.
func WithParams(p Params) Option {
	return func(lr *LogisticRegression) { lr.params = p }
}

// WithLearningRate sets the step size β.
func WithLearningRate(beta float64) Option {
	return func(lr *LogisticRegression) { lr.params.LearningRate = beta }
}

// WithMaxIterations sets the iteration cap T.
func WithMaxIterations(t int) Option {
	return func(lr *LogisticRegression) { lr.params.MaxIterations = t }
}

// WithRegularization sets λ and switches the penalty to l2.
func WithRegularization(lambda float64) Option {
	return func(lr *LogisticRegression) {
		lr.params.RegularizationStrength = lambda
		lr.params.Penalty = PenaltyL2
	}
}

// WithPenalty sets the penalty kind.
func WithPenalty(p Penalty) Option {
	return func(lr *LogisticRegression) { lr.params.Penalty = p }
}

// WithTol sets the early stopping tolerance on ‖grad_w‖₂. Zero disables it.
func WithTol(tol float64) Option {
	return func(lr *LogisticRegression) { lr.params.Tol = tol }
}

// WithFitIntercept controls whether the bias is learned.
func WithFitIntercept(fit bool) Option {
	return func(lr *LogisticRegression) { lr.params.FitIntercept = fit }
}

// WithRandomInit draws initial weights from N(0, std²) using seed.
func WithRandomInit(std float64, seed uint64) Option {
	return func(lr *LogisticRegression) {
		lr.params.InitStdDev = std
		lr.params.Seed = seed
	}
}

// WithFeatureNames records column names, exported with the weights.
func WithFeatureNames(names []string) Option {
	return func(lr *LogisticRegression) { lr.featureNames = slices.Clone(names) }
}

// WithLogger overrides the component logger.
func WithLogger(l log.Logger) Option {
	return func(lr *LogisticRegression) { lr.logger = l }
}

// NewLogisticRegression creates an unfitted model with DefaultParams
// modified by opts. Params are validated by Fit.
func NewLogisticRegression(opts ...Option) *LogisticRegression {
	lr := &LogisticRegression{
		state:  model.NewStateManager(),
		params: DefaultParams(),
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

func (lr *LogisticRegression) componentLogger() log.Logger {
	if lr.logger == nil {
		lr.logger = log.GetLoggerWithName("linear_model")
	}
	return lr.logger
}

// Fit trains the model on X (n×d) and y (n labels in {0,1}).
//
// On failure the model is left unfitted. Non-finite gradients, parameters or
// loss abort training with a NumericInstabilityError. When Tol > 0 and the
// tolerance is not reached within MaxIterations a ConvergenceWarning is
// emitted and the last parameters are kept.
func (lr *LogisticRegression) Fit(X mat.Matrix, y *mat.VecDense) (err error) {
	const op = "LogisticRegression.Fit"
	defer lerrors.Recover(&err, op)
	lr.state.Reset()

	p := lr.params
	if err := p.Validate(); err != nil {
		return err
	}
	n, d := X.Dims()
	if n == 0 || d == 0 {
		return lerrors.NewModelError(op, "empty data", lerrors.ErrEmptyData)
	}
	if y == nil {
		return lerrors.NewModelError(op, "nil labels", lerrors.ErrEmptyData)
	}
	if y.Len() != n {
		return lerrors.NewDimensionError(op, n, y.Len(), 0)
	}
	for i := 0; i < n; i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return lerrors.NewConfigurationError("y", fmt.Sprintf("label at row %d must be 0 or 1", i), v)
		}
	}
	if lr.featureNames != nil && len(lr.featureNames) != d {
		return lerrors.NewDimensionError(op+"(feature names)", len(lr.featureNames), d, 1)
	}

	start := time.Now()
	w := lr.initialWeights(d)
	b := 0.0
	l2 := p.Penalty == PenaltyL2 && p.RegularizationStrength > 0
	invN := 1.0 / float64(n)

	z := mat.NewVecDense(n, nil)
	prob := mat.NewVecDense(n, nil)
	resid := mat.NewVecDense(n, nil)
	grad := mat.NewVecDense(d, nil)
	history := make([]float64, 0, p.MaxIterations)

	logger := lr.componentLogger()
	verbose := logger.Enabled(context.Background(), log.LevelDebug)

	var gradNorm float64
	converged := false
	iter := 0
	for iter < p.MaxIterations {
		iter++

		// z = X·w + b
		z.MulVec(X, w)
		if b != 0 {
			for i := 0; i < n; i++ {
				z.SetVec(i, z.AtVec(i)+b)
			}
		}
		sigmoidVec(prob, z)

		loss := meanNLL(z, y)
		if l2 {
			loss += 0.5 * p.RegularizationStrength * mat.Dot(w, w)
		}

		// grad_w = Xᵀ(p−y)/n + λw, grad_b = Σ(p−y)/n
		resid.SubVec(prob, y)
		grad.MulVec(X.T(), resid)
		grad.ScaleVec(invN, grad)
		if l2 {
			grad.AddScaledVec(grad, p.RegularizationStrength, w)
		}
		gradB := mat.Sum(resid) * invN

		if err := lerrors.CheckNumericalStability("gradient", grad.RawVector().Data, iter); err != nil {
			return err
		}
		if err := lerrors.CheckScalar("intercept gradient", gradB, iter); err != nil {
			return err
		}
		if err := lerrors.CheckScalar("loss", loss, iter); err != nil {
			return err
		}

		w.AddScaledVec(w, -p.LearningRate, grad)
		if p.FitIntercept {
			b -= p.LearningRate * gradB
		}
		if err := lerrors.CheckNumericalStability("weights", w.RawVector().Data, iter); err != nil {
			return err
		}
		if err := lerrors.CheckScalar("intercept", b, iter); err != nil {
			return err
		}

		history = append(history, loss)
		gradNorm = mat.Norm(grad, 2)
		if verbose && (iter == 1 || iter%100 == 0) {
			logger.Debug("gradient descent step",
				log.IterationKey, iter,
				log.LossKey, loss,
				log.GradNormKey, gradNorm,
			)
		}
		if p.Tol > 0 && gradNorm < p.Tol {
			converged = true
			break
		}
	}

	if p.Tol > 0 && !converged {
		lerrors.Warn(lerrors.NewConvergenceWarning(modelName, iter,
			fmt.Sprintf("gradient norm %.3g is above tol %.3g", gradNorm, p.Tol)))
	}

	lr.coef = slices.Clone(w.RawVector().Data)
	lr.intercept = b
	lr.nIter = iter
	lr.lossHistory = history
	lr.state.SetDimensions(d, n)
	lr.state.SetFitted()

	logger.Debug("fit finished",
		log.ModelNameKey, modelName,
		log.OperationKey, log.OperationFit,
		log.SamplesKey, n,
		log.FeaturesKey, d,
		log.IterationKey, iter,
		log.LossKey, history[len(history)-1],
		log.GradNormKey, gradNorm,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

func (lr *LogisticRegression) initialWeights(d int) *mat.VecDense {
	w := mat.NewVecDense(d, nil)
	if lr.params.InitStdDev > 0 {
		rng := rand.New(rand.NewPCG(lr.params.Seed, lr.params.Seed))
		for j := 0; j < d; j++ {
			w.SetVec(j, rng.NormFloat64()*lr.params.InitStdDev)
		}
	}
	return w
}

// DecisionFunction returns the raw scores X·w + b.
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (*mat.VecDense, error) {
	return lr.decision(X, "DecisionFunction")
}

func (lr *LogisticRegression) decision(X mat.Matrix, method string) (*mat.VecDense, error) {
	n, d := X.Dims()
	if err := lr.state.RequireFeatures(modelName, method, d); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, lerrors.NewModelError(modelName+"."+method, "empty data", lerrors.ErrEmptyData)
	}
	z := mat.NewVecDense(n, nil)
	z.MulVec(X, mat.NewVecDense(d, slices.Clone(lr.coef)))
	for i := 0; i < n; i++ {
		z.SetVec(i, z.AtVec(i)+lr.intercept)
	}
	return z, nil
}

// PredictProba returns P(y=1 | x) for every row of X.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (*mat.VecDense, error) {
	z, err := lr.decision(X, "PredictProba")
	if err != nil {
		return nil, err
	}
	prob := mat.NewVecDense(z.Len(), nil)
	sigmoidVec(prob, z)
	return prob, nil
}

// Predict returns 1 where P(y=1 | x) >= 0.5 and 0 elsewhere.
func (lr *LogisticRegression) Predict(X mat.Matrix) (*mat.VecDense, error) {
	prob, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}
	labels := mat.NewVecDense(prob.Len(), nil)
	for i := 0; i < prob.Len(); i++ {
		if prob.AtVec(i) >= 0.5 {
			labels.SetVec(i, 1)
		}
	}
	return labels, nil
}

// Score returns the accuracy of Predict(X) against y.
func (lr *LogisticRegression) Score(X mat.Matrix, y *mat.VecDense) (float64, error) {
	pred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(y, pred)
}

// IsFitted reports whether Fit has completed successfully.
func (lr *LogisticRegression) IsFitted() bool { return lr.state.IsFitted() }

// Coef returns a copy of the learned weights.
func (lr *LogisticRegression) Coef() []float64 { return slices.Clone(lr.coef) }

// Intercept returns the learned bias.
func (lr *LogisticRegression) Intercept() float64 { return lr.intercept }

// NIter returns the number of iterations run by the last Fit.
func (lr *LogisticRegression) NIter() int { return lr.nIter }

// LossHistory returns the mean loss recorded at every iteration of the last Fit.
func (lr *LogisticRegression) LossHistory() []float64 { return slices.Clone(lr.lossHistory) }

// FeatureNames returns the column names given with WithFeatureNames.
func (lr *LogisticRegression) FeatureNames() []string { return slices.Clone(lr.featureNames) }

// Params returns the hyperparameters.
func (lr *LogisticRegression) Params() Params { return lr.params }

// GetParams returns the hyperparameters keyed by name.
func (lr *LogisticRegression) GetParams() map[string]interface{} { return lr.params.Map() }

// Clone returns an unfitted model with the same hyperparameters, feature
// names and logger.
func (lr *LogisticRegression) Clone() *LogisticRegression {
	return NewLogisticRegression(
		WithParams(lr.params),
		WithFeatureNames(lr.featureNames),
		WithLogger(lr.logger),
	)
}

// ExportWeights implements model.WeightExporter.
func (lr *LogisticRegression) ExportWeights() (*model.ModelWeights, error) {
	if err := lr.state.RequireFitted(modelName, "ExportWeights"); err != nil {
		return nil, err
	}
	nFeatures, nSamples := lr.state.GetDimensions()
	return &model.ModelWeights{
		ModelType:       modelName,
		Version:         model.WeightsFormatVersion,
		Coefficients:    lr.Coef(),
		Intercept:       lr.intercept,
		Features:        lr.FeatureNames(),
		Hyperparameters: lr.GetParams(),
		Metadata: map[string]interface{}{
			"n_features": nFeatures,
			"n_samples":  nSamples,
			"n_iter":     lr.nIter,
			"checksum":   lr.GetWeightHash(),
		},
		IsFitted: true,
	}, nil
}

// ImportWeights implements model.WeightExporter. Hyperparameters are
// restored too, so the model can be refit with the same settings.
func (lr *LogisticRegression) ImportWeights(weights *model.ModelWeights) error {
	if weights == nil {
		return lerrors.NewValueError(modelName+".ImportWeights", "weights cannot be nil")
	}
	if weights.ModelType != modelName {
		return lerrors.NewValueError(modelName+".ImportWeights",
			fmt.Sprintf("model type mismatch: expected %s, got %s", modelName, weights.ModelType))
	}
	if err := weights.Validate(); err != nil {
		return err
	}
	params, err := DefaultParams().With(weights.Hyperparameters)
	if err != nil {
		return err
	}

	lr.state.Reset()
	lr.params = params
	lr.coef = slices.Clone(weights.Coefficients)
	lr.intercept = weights.Intercept
	lr.featureNames = slices.Clone(weights.Features)
	lr.lossHistory = nil
	lr.nIter = metadataInt(weights.Metadata, "n_iter")
	lr.state.SetDimensions(len(lr.coef), metadataInt(weights.Metadata, "n_samples"))
	lr.state.SetFitted()
	return nil
}

// metadataInt reads an integer that may have been decoded from JSON as float64.
func metadataInt(meta map[string]interface{}, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// GetWeightHash returns a SHA-256 over the weights and bias, or "" when unfitted.
func (lr *LogisticRegression) GetWeightHash() string {
	if !lr.state.IsFitted() {
		return ""
	}
	data, _ := json.Marshal(append(slices.Clone(lr.coef), lr.intercept))
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// String returns a short description of the model.
func (lr *LogisticRegression) String() string {
	if !lr.state.IsFitted() {
		return fmt.Sprintf("LogisticRegression(%s)", lr.params)
	}
	return fmt.Sprintf("LogisticRegression(n_features=%d, n_iter=%d, fitted=true)", len(lr.coef), lr.nIter)
}
