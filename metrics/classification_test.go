package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/logitcv/pkg/errors"
)

func vec(v ...float64) *mat.VecDense {
	if len(v) == 0 {
		return nil
	}
	return mat.NewVecDense(len(v), v)
}

// silenceWarnings discards library warnings for the duration of the test.
func silenceWarnings(t *testing.T) *[]error {
	t.Helper()
	var got []error
	errors.SetWarningHandler(func(w error) { got = append(got, w) })
	t.Cleanup(func() { errors.SetWarningHandler(nil) })
	return &got
}

func TestAUC(t *testing.T) {
	silenceWarnings(t)
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "Perfect classifier",
			yTrue: []float64{0, 0, 0, 1, 1, 1},
			yPred: []float64{0.1, 0.2, 0.3, 0.7, 0.8, 0.9},
			want:  1.0,
		},
		{
			name:  "Worst classifier",
			yTrue: []float64{0, 0, 0, 1, 1, 1},
			yPred: []float64{0.9, 0.8, 0.7, 0.3, 0.2, 0.1},
			want:  0.0,
		},
		{
			name:  "Random classifier",
			yTrue: []float64{0, 1, 0, 1},
			yPred: []float64{0.5, 0.5, 0.5, 0.5},
			want:  0.5,
		},
		{
			name:  "Typical case",
			yTrue: []float64{0, 0, 1, 1},
			yPred: []float64{0.1, 0.4, 0.35, 0.8},
			want:  0.75,
		},
		{
			name:  "All positive labels",
			yTrue: []float64{1, 1, 1, 1},
			yPred: []float64{0.1, 0.4, 0.35, 0.8},
			want:  0.5, // Undefined case, returns 0.5
		},
		{
			name:  "All negative labels",
			yTrue: []float64{0, 0, 0, 0},
			yPred: []float64{0.1, 0.4, 0.35, 0.8},
			want:  0.5, // Undefined case, returns 0.5
		},
		{
			name:    "Non-binary labels",
			yTrue:   []float64{0, 0.5, 1},
			yPred:   []float64{0.1, 0.5, 0.9},
			wantErr: true,
		},
		{
			name:    "Dimension mismatch",
			yTrue:   []float64{0, 1},
			yPred:   []float64{0.5},
			wantErr: true,
		},
		{
			name:    "Empty vectors",
			yTrue:   []float64{},
			yPred:   []float64{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUC(vec(tt.yTrue...), vec(tt.yPred...))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestAUCMatrix(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   mat.Matrix
		yPred   mat.Matrix
		want    float64
		wantErr bool
	}{
		{
			name:  "Matrix input",
			yTrue: mat.NewDense(4, 1, []float64{0, 0, 1, 1}),
			yPred: mat.NewDense(4, 1, []float64{0.1, 0.4, 0.35, 0.8}),
			want:  0.75,
		},
		{
			name:  "Multi-column matrix (uses first column)",
			yTrue: mat.NewDense(4, 2, []float64{0, 9, 0, 9, 1, 9, 1, 9}),
			yPred: mat.NewDense(4, 2, []float64{0.1, 9, 0.4, 9, 0.35, 9, 0.8, 9}),
			want:  0.75,
		},
		{
			name:    "Nil matrix",
			yTrue:   nil,
			yPred:   mat.NewDense(1, 1, []float64{0.5}),
			wantErr: true,
		},
		{
			name:    "Empty matrix",
			yTrue:   &mat.Dense{},
			yPred:   &mat.Dense{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUCMatrix(tt.yTrue, tt.yPred)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestBinaryLogLoss(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "Perfect predictions",
			yTrue: []float64{0, 0, 1, 1},
			yPred: []float64{0, 0, 1, 1},
			want:  0.0, // Will be small epsilon value due to clipping
		},
		{
			name:  "Typical case",
			yTrue: []float64{0, 0, 1, 1},
			yPred: []float64{0.1, 0.2, 0.8, 0.9},
			want:  0.164252, // Approximate expected value
		},
		{
			name:  "Worst predictions",
			yTrue: []float64{0, 0, 1, 1},
			yPred: []float64{0.9, 0.9, 0.1, 0.1},
			want:  2.3025851, // Approximate expected value
		},
		{
			name:  "Clipping edge case",
			yTrue: []float64{0, 1},
			yPred: []float64{0, 1}, // Will be clipped to avoid log(0)
			want:  0.0,             // Small value due to epsilon
		},
		{
			name:    "Non-binary labels",
			yTrue:   []float64{0, 0.5, 1},
			yPred:   []float64{0.1, 0.5, 0.9},
			wantErr: true,
		},
		{
			name:    "Empty vectors",
			yTrue:   []float64{},
			yPred:   []float64{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BinaryLogLoss(vec(tt.yTrue...), vec(tt.yPred...))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.01)
		})
	}
}

func TestAccuracy(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []float64
		yPred []float64
		want  float64
	}{
		{"perfect", []float64{0, 1, 1, 0}, []float64{0, 1, 1, 0}, 1.0},
		{"three of four", []float64{0, 1, 1, 0}, []float64{0, 1, 0, 0}, 0.75},
		{"none", []float64{0, 0, 0}, []float64{1, 1, 1}, 0.0},
		{"multi valued labels", []float64{0, 1, 2, 1, 0}, []float64{0, 1, 1, 1, 0}, 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Accuracy(vec(tt.yTrue...), vec(tt.yPred...))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestAccuracyErrors(t *testing.T) {
	_, err := Accuracy(vec(0, 1), vec(0))
	require.Error(t, err)
	var lm *errors.LengthMismatchError
	assert.True(t, errors.As(err, &lm))

	_, err = Accuracy(nil, nil)
	require.Error(t, err)
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
}

func TestClassificationError(t *testing.T) {
	got, err := ClassificationError(vec(0, 0, 1, 1), vec(0, 1, 1, 0))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, got, 1e-12)

	_, err = ClassificationError(vec(0, 1), vec(0))
	assert.Error(t, err)
}

func TestConfusionMatrix(t *testing.T) {
	cm, err := NewConfusionMatrix(vec(1, 1, 0, 0, 1, 0), vec(1, 0, 0, 1, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, ConfusionMatrix{TN: 2, FP: 1, FN: 1, TP: 2}, cm)
	assert.Equal(t, 6, cm.Total())

	_, err = NewConfusionMatrix(vec(0, 2), vec(0, 1))
	assert.Error(t, err)
}

func TestPrecisionRecallF1(t *testing.T) {
	yTrue := vec(1, 1, 1, 0, 0, 0)
	yPred := vec(1, 1, 0, 1, 0, 0)

	p, err := Precision(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, p, 1e-12)

	r, err := Recall(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, r, 1e-12)

	f, err := F1(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, f, 1e-12)
}

func TestZeroDivisionWarns(t *testing.T) {
	warnings := silenceWarnings(t)

	p, err := Precision(vec(1, 0, 1), vec(0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, p)

	r, err := Recall(vec(0, 0), vec(1, 0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, r)

	f, err := F1(vec(0, 0), vec(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, f)

	require.Len(t, *warnings, 3)
	var w *errors.UndefinedMetricWarning
	require.True(t, errors.As((*warnings)[0], &w))
	assert.Equal(t, "precision", w.Metric)
}

func TestBrierScore(t *testing.T) {
	got, err := BrierScore(vec(0, 1, 1, 0), vec(0.1, 0.9, 0.6, 0.4))
	require.NoError(t, err)
	assert.InDelta(t, (0.01+0.01+0.16+0.16)/4, got, 1e-12)

	_, err = BrierScore(vec(0, 0.5), vec(0.1, 0.2))
	assert.Error(t, err)
}

func TestGetScorer(t *testing.T) {
	for _, name := range ScorerNames() {
		fn, err := GetScorer(name)
		require.NoError(t, err, name)
		got, err := fn(vec(1, 0, 1), vec(1, 0, 1))
		require.NoError(t, err)
		assert.Equal(t, 1.0, got, name)
	}

	fn, err := GetScorer("")
	require.NoError(t, err)
	got, err := fn(vec(1, 0), vec(1, 1))
	require.NoError(t, err)
	assert.Equal(t, 0.5, got)

	_, err = GetScorer("roc_auc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

func BenchmarkAUC(b *testing.B) {
	n := 1000
	yTrue := make([]float64, n)
	yPred := make([]float64, n)
	for i := 0; i < n; i++ {
		if i >= n/2 {
			yTrue[i] = 1
		}
		yPred[i] = float64(i) / float64(n)
	}
	yTrueVec := mat.NewVecDense(n, yTrue)
	yPredVec := mat.NewVecDense(n, yPred)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = AUC(yTrueVec, yPredVec)
	}
}
