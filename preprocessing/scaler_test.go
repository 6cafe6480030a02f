package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/logitcv/pkg/errors"
)

func TestStandardScaler(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 10,
		3, 10,
		4, 10,
	})
	s := NewStandardScalerDefault()
	Xs, err := s.FitTransform(X)
	require.NoError(t, err)

	assert.InDelta(t, 2.5, s.Mean[0], 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), s.Scale[0], 1e-12)
	// constant column keeps scale 1
	assert.Equal(t, 1.0, s.Scale[1])
	assert.Equal(t, 0.0, Xs.At(0, 1))

	col := mat.Col(nil, 0, Xs)
	var sum float64
	for _, v := range col {
		sum += v
	}
	assert.InDelta(t, 0, sum, 1e-12)

	back, err := s.InverseTransform(Xs)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-12))

	// input is not modified
	assert.Equal(t, 1.0, X.At(0, 0))
	assert.Contains(t, s.String(), "n_features=2")
}

func TestStandardScalerErrors(t *testing.T) {
	s := NewStandardScalerDefault()
	_, err := s.Transform(mat.NewDense(1, 1, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	require.NoError(t, s.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	_, err = s.Transform(mat.NewDense(1, 3, nil))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestMinMaxScaler(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		0, 5,
		5, 5,
		10, 5,
	})
	m := NewMinMaxScalerDefault()
	Xs, err := m.FitTransform(X)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0.5, 1}, mat.Col(nil, 0, Xs))
	assert.Equal(t, []float64{0, 0, 0}, mat.Col(nil, 1, Xs))

	back, err := m.InverseTransform(Xs)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(X, back, 1e-12))

	bad := NewMinMaxScaler([2]float64{1, 0})
	assert.True(t, errors.Is(bad.Fit(X), errors.ErrConfiguration))
}

func TestScalerAffineMatchesTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, -3,
		4, 0,
		2, 9,
		7, 2,
	})
	for name, s := range map[string]interface {
		FitTransform(mat.Matrix) (*mat.Dense, error)
		Affine() ([]float64, []float64)
	}{
		"standard": NewStandardScalerDefault(),
		"minmax":   NewMinMaxScaler([2]float64{-1, 1}),
	} {
		t.Run(name, func(t *testing.T) {
			Xs, err := s.FitTransform(X)
			require.NoError(t, err)
			offset, divisor := s.Affine()
			require.Len(t, offset, 2)
			for i := 0; i < 4; i++ {
				for j := 0; j < 2; j++ {
					assert.InDelta(t, Xs.At(i, j), (X.At(i, j)-offset[j])/divisor[j], 1e-12)
				}
			}
		})
	}

	offset, divisor := NewStandardScalerDefault().Affine()
	assert.Nil(t, offset)
	assert.Nil(t, divisor)
}

func TestRestoreStandardScaler(t *testing.T) {
	s, err := RestoreStandardScaler([]float64{1, 2}, []float64{2, 4})
	require.NoError(t, err)
	assert.True(t, s.IsFitted())

	Xs, err := s.Transform(mat.NewDense(1, 2, []float64{3, 10}))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, Xs.RawRowView(0))

	_, err = RestoreStandardScaler([]float64{1}, []float64{1, 2})
	var lm *errors.LengthMismatchError
	assert.True(t, errors.As(err, &lm))

	_, err = RestoreStandardScaler([]float64{1}, []float64{0})
	assert.Error(t, err)
}
