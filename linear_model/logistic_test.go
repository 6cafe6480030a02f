package linear_model

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/logitcv/core/model"
	lerrors "github.com/YuminosukeSato/logitcv/pkg/errors"
	"github.com/YuminosukeSato/logitcv/pkg/log"
)

// separable is a one-feature problem where x > 0 means label 1.
func separable() (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(5, 1, []float64{-3, -2, 2, 3, 4})
	y := mat.NewVecDense(5, []float64{0, 0, 1, 1, 1})
	return X, y
}

func quietModel(t *testing.T, opts ...Option) (*LogisticRegression, *log.TestLogger) {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	return NewLogisticRegression(append([]Option{WithLogger(logger)}, opts...)...), logger
}

func captureWarnings(t *testing.T) *[]error {
	t.Helper()
	var got []error
	lerrors.SetWarningHandler(func(w error) { got = append(got, w) })
	t.Cleanup(func() { lerrors.SetWarningHandler(nil) })
	return &got
}

func TestSigmoid(t *testing.T) {
	assert.Equal(t, 0.5, Sigmoid(0))

	prev := 0.0
	for z := -30.0; z <= 30; z += 0.5 {
		s := Sigmoid(z)
		assert.Greater(t, s, 0.0, "z=%v", z)
		assert.Less(t, s, 1.0, "z=%v", z)
		assert.GreaterOrEqual(t, s, prev, "monotone at z=%v", z)
		assert.InDelta(t, 1-s, Sigmoid(-z), 1e-12, "symmetry at z=%v", z)
		prev = s
	}

	// for large |z| the result rounds to exactly 0 or 1 in float64, never NaN or Inf
	for _, z := range []float64{-1000, 1000, -math.MaxFloat64, math.MaxFloat64} {
		s := Sigmoid(z)
		assert.False(t, math.IsNaN(s) || math.IsInf(s, 0), "z=%v", z)
	}
	assert.Equal(t, 1.0, Sigmoid(1000))
	assert.Equal(t, 0.0, Sigmoid(-1000))
}

func TestSigmoidVecMatchesScalar(t *testing.T) {
	n := parallelThreshold + 17
	z := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		z.SetVec(i, float64(i-n/2)/100)
	}
	dst := mat.NewVecDense(n, nil)
	sigmoidVec(dst, z)
	for i := 0; i < n; i += 97 {
		assert.Equal(t, Sigmoid(z.AtVec(i)), dst.AtVec(i))
	}
}

func TestFitSeparable(t *testing.T) {
	X, y := separable()
	lr, logger := quietModel(t,
		WithLearningRate(0.5),
		WithRegularization(0),
		WithMaxIterations(1000),
		WithTol(0),
	)

	require.NoError(t, lr.Fit(X, y))
	assert.True(t, lr.IsFitted())
	assert.Equal(t, 1000, lr.NIter())
	assert.Greater(t, lr.Coef()[0], 0.0)

	acc, err := lr.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, acc)

	history := lr.LossHistory()
	require.Len(t, history, 1000)
	assert.InDelta(t, math.Log(2), history[0], 1e-12)
	assert.Less(t, history[len(history)-1], history[0])

	assert.True(t, logger.ContainsMessage("fit finished"))
	assert.True(t, logger.ContainsField(log.IterationKey, float64(1000)))
}

func TestPredictProbaRange(t *testing.T) {
	X, y := separable()
	lr, _ := quietModel(t, WithLearningRate(0.5), WithMaxIterations(200), WithTol(0))
	require.NoError(t, lr.Fit(X, y))

	proba, err := lr.PredictProba(X)
	require.NoError(t, err)
	pred, err := lr.Predict(X)
	require.NoError(t, err)
	for i := 0; i < proba.Len(); i++ {
		p := proba.AtVec(i)
		assert.True(t, p >= 0 && p <= 1)
		want := 0.0
		if p >= 0.5 {
			want = 1
		}
		assert.Equal(t, want, pred.AtVec(i))
	}
}

func TestFitIsDeterministic(t *testing.T) {
	X, y := separable()
	opts := []Option{WithLearningRate(0.3), WithMaxIterations(50), WithRandomInit(0.5, 42), WithTol(0)}

	a, _ := quietModel(t, opts...)
	b, _ := quietModel(t, opts...)
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	assert.Equal(t, a.Coef(), b.Coef())
	assert.Equal(t, a.Intercept(), b.Intercept())
	assert.Equal(t, a.GetWeightHash(), b.GetWeightHash())

	// refitting restarts from the initial weights
	require.NoError(t, a.Fit(X, y))
	assert.Equal(t, b.GetWeightHash(), a.GetWeightHash())
}

func TestFitWithoutIntercept(t *testing.T) {
	X, y := separable()
	lr, _ := quietModel(t, WithFitIntercept(false), WithMaxIterations(20), WithTol(0))
	require.NoError(t, lr.Fit(X, y))
	assert.Equal(t, 0.0, lr.Intercept())
}

func TestRegularizationShrinksWeights(t *testing.T) {
	X, y := separable()
	plain, _ := quietModel(t, WithLearningRate(0.5), WithMaxIterations(300), WithTol(0))
	ridge, _ := quietModel(t, WithLearningRate(0.5), WithMaxIterations(300), WithTol(0), WithRegularization(0.5))
	require.NoError(t, plain.Fit(X, y))
	require.NoError(t, ridge.Fit(X, y))
	assert.Less(t, math.Abs(ridge.Coef()[0]), math.Abs(plain.Coef()[0]))

	// penalty none ignores λ
	none, _ := quietModel(t, WithLearningRate(0.5), WithMaxIterations(300), WithTol(0),
		WithRegularization(0.5), WithPenalty(PenaltyNone))
	require.NoError(t, none.Fit(X, y))
	assert.Equal(t, plain.Coef(), none.Coef())
}

func TestFitNumericInstability(t *testing.T) {
	X, y := separable()
	lr, _ := quietModel(t,
		WithLearningRate(1e6),
		WithRegularization(1),
		WithMaxIterations(100),
		WithTol(0),
	)

	err := lr.Fit(X, y)
	require.Error(t, err)
	var nie *lerrors.NumericInstabilityError
	assert.True(t, lerrors.As(err, &nie), "got %v", err)
	assert.False(t, lr.IsFitted())
}

func TestFitEmitsConvergenceWarning(t *testing.T) {
	warnings := captureWarnings(t)
	X, y := separable()
	lr, _ := quietModel(t, WithMaxIterations(5), WithTol(1e-12))

	require.NoError(t, lr.Fit(X, y))
	require.Len(t, *warnings, 1)
	var cw *lerrors.ConvergenceWarning
	require.True(t, lerrors.As((*warnings)[0], &cw))
	assert.Equal(t, 5, cw.Iterations)
	assert.True(t, lr.IsFitted())
}

func TestFitStopsAtTol(t *testing.T) {
	warnings := captureWarnings(t)
	X, y := separable()
	lr, _ := quietModel(t, WithMaxIterations(10000), WithTol(0.5), WithLearningRate(0.5))

	require.NoError(t, lr.Fit(X, y))
	assert.Less(t, lr.NIter(), 10000)
	assert.Empty(t, *warnings)
}

func TestFitValidation(t *testing.T) {
	X, y := separable()

	tests := []struct {
		name  string
		model *LogisticRegression
		X     mat.Matrix
		y     *mat.VecDense
		check func(t *testing.T, err error)
	}{
		{
			name:  "label length",
			model: NewLogisticRegression(),
			X:     X,
			y:     mat.NewVecDense(3, []float64{0, 1, 0}),
			check: func(t *testing.T, err error) {
				var de *lerrors.DimensionError
				assert.True(t, lerrors.As(err, &de))
			},
		},
		{
			name:  "non binary label",
			model: NewLogisticRegression(),
			X:     X,
			y:     mat.NewVecDense(5, []float64{0, 0, 2, 1, 1}),
			check: func(t *testing.T, err error) {
				assert.True(t, lerrors.Is(err, lerrors.ErrConfiguration))
			},
		},
		{
			name:  "bad learning rate",
			model: NewLogisticRegression(WithLearningRate(0)),
			X:     X,
			y:     y,
			check: func(t *testing.T, err error) {
				var ce *lerrors.ConfigurationError
				require.True(t, lerrors.As(err, &ce))
				assert.Equal(t, ParamLearningRate, ce.ParamName)
			},
		},
		{
			name:  "feature names",
			model: NewLogisticRegression(WithFeatureNames([]string{"a", "b"})),
			X:     X,
			y:     y,
			check: func(t *testing.T, err error) {
				var de *lerrors.DimensionError
				assert.True(t, lerrors.As(err, &de))
			},
		},
		{
			name:  "nil labels",
			model: NewLogisticRegression(),
			X:     X,
			y:     nil,
			check: func(t *testing.T, err error) {
				assert.True(t, lerrors.Is(err, lerrors.ErrEmptyData))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.model.Fit(tt.X, tt.y)
			require.Error(t, err)
			tt.check(t, err)
			assert.False(t, tt.model.IsFitted())
		})
	}
}

func TestFailedRefitLeavesModelUnfitted(t *testing.T) {
	X, y := separable()
	lr, _ := quietModel(t, WithTol(0))
	require.NoError(t, lr.Fit(X, y))

	bad := mat.NewVecDense(5, []float64{0, 0, 1, 1, 7})
	require.Error(t, lr.Fit(X, bad))
	assert.False(t, lr.IsFitted())

	_, err := lr.Predict(X)
	var nf *lerrors.NotFittedError
	assert.True(t, lerrors.As(err, &nf))
}

func TestPredictErrors(t *testing.T) {
	X, y := separable()
	lr, _ := quietModel(t, WithTol(0))

	_, err := lr.Predict(X)
	var nf *lerrors.NotFittedError
	assert.True(t, lerrors.As(err, &nf))

	require.NoError(t, lr.Fit(X, y))
	_, err = lr.PredictProba(mat.NewDense(2, 2, []float64{1, 2, 3, 4}))
	var de *lerrors.DimensionError
	assert.True(t, lerrors.As(err, &de))

	_, err = lr.Score(X, mat.NewVecDense(2, []float64{0, 1}))
	var lm *lerrors.LengthMismatchError
	assert.True(t, lerrors.As(err, &lm))
}

func TestCloneIsUnfitted(t *testing.T) {
	X, y := separable()
	lr, _ := quietModel(t, WithLearningRate(0.7), WithFeatureNames([]string{"x"}), WithTol(0))
	require.NoError(t, lr.Fit(X, y))

	c := lr.Clone()
	assert.False(t, c.IsFitted())
	assert.Equal(t, lr.Params(), c.Params())
	assert.Equal(t, []string{"x"}, c.FeatureNames())
}

func TestWeightsRoundTrip(t *testing.T) {
	X, y := separable()
	lr, _ := quietModel(t, WithLearningRate(0.5), WithMaxIterations(100), WithFeatureNames([]string{"x"}), WithTol(0))
	require.NoError(t, lr.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, model.SaveWeights(lr, &buf))

	restored, _ := quietModel(t)
	require.NoError(t, model.LoadWeights(restored, &buf))

	assert.True(t, restored.IsFitted())
	assert.Equal(t, lr.GetWeightHash(), restored.GetWeightHash())
	assert.Equal(t, lr.Params(), restored.Params())
	assert.Equal(t, lr.NIter(), restored.NIter())
	assert.Equal(t, []string{"x"}, restored.FeatureNames())

	want, err := lr.PredictProba(X)
	require.NoError(t, err)
	got, err := restored.PredictProba(X)
	require.NoError(t, err)
	assert.Equal(t, want.RawVector().Data, got.RawVector().Data)
}

func TestExportRequiresFit(t *testing.T) {
	_, err := NewLogisticRegression().ExportWeights()
	var nf *lerrors.NotFittedError
	assert.True(t, lerrors.As(err, &nf))
	assert.Empty(t, NewLogisticRegression().GetWeightHash())
}

func TestImportRejectsOtherModel(t *testing.T) {
	w := &model.ModelWeights{
		ModelType:    "LinearRegression",
		Version:      model.WeightsFormatVersion,
		Coefficients: []float64{1},
		IsFitted:     true,
	}
	err := NewLogisticRegression().ImportWeights(w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model type mismatch")
}
