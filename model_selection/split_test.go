package model_selection

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/logitcv/linear_model"
	lerrors "github.com/YuminosukeSato/logitcv/pkg/errors"
	"github.com/YuminosukeSato/logitcv/pkg/log"
)

// rowsData returns n rows where column 0 holds the row index, so rows can be
// traced through a split. Labels alternate 0,1 unless positives is given.
func rowsData(n int, positives ...int) (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	pos := make(map[int]bool)
	for _, p := range positives {
		pos[p] = true
	}
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i*i))
		if (len(positives) == 0 && i%2 == 1) || pos[i] {
			y.SetVec(i, 1)
		}
	}
	return X, y
}

func TestTrainTestSplitPartitionsRows(t *testing.T) {
	X, y := rowsData(20)
	s, err := TrainTestSplit(X, y, 0.25, 42)
	require.NoError(t, err)

	assert.Len(t, s.TestIndices, 5)
	assert.Len(t, s.TrainIndices, 15)

	all := append(append([]int{}, s.TrainIndices...), s.TestIndices...)
	sort.Ints(all)
	for i, v := range all {
		assert.Equal(t, i, v)
	}

	// rows and labels follow the indices, columns unchanged
	for i, idx := range s.TestIndices {
		assert.Equal(t, float64(idx), s.XTest.At(i, 0))
		assert.Equal(t, float64(idx*idx), s.XTest.At(i, 1))
		assert.Equal(t, y.AtVec(idx), s.YTest.AtVec(i))
	}
	for i, idx := range s.TrainIndices {
		assert.Equal(t, float64(idx), s.XTrain.At(i, 0))
	}
}

func TestTrainTestSplitIsDeterministic(t *testing.T) {
	X, y := rowsData(30)
	a, err := TrainTestSplit(X, y, 0.3, 7)
	require.NoError(t, err)
	b, err := TrainTestSplit(X, y, 0.3, 7)
	require.NoError(t, err)
	assert.Equal(t, a.TestIndices, b.TestIndices)
	assert.Equal(t, a.TrainIndices, b.TrainIndices)

	c, err := TrainTestSplit(X, y, 0.3, 8)
	require.NoError(t, err)
	assert.NotEqual(t, a.TestIndices, c.TestIndices)
}

func TestTrainTestSplitStratify(t *testing.T) {
	// 12 negatives, 8 positives
	X, y := rowsData(20, 0, 3, 5, 8, 11, 14, 17, 19)
	s, err := TrainTestSplit(X, y, 0.25, 1, WithStratify())
	require.NoError(t, err)

	require.Len(t, s.TestIndices, 5)
	positives := 0
	for i := 0; i < s.YTest.Len(); i++ {
		positives += int(s.YTest.AtVec(i))
	}
	// 5·8/20 = 2 positives, 5·12/20 = 3 negatives
	assert.Equal(t, 2, positives)
}

func TestTrainTestSplitErrors(t *testing.T) {
	X, y := rowsData(4)

	for _, size := range []float64{0, 1, -0.2, 1.5} {
		_, err := TrainTestSplit(X, y, size, 0)
		assert.True(t, lerrors.Is(err, lerrors.ErrConfiguration), "testSize=%v", size)
	}

	// ceil(0.9·4) = 4 leaves nothing to train on
	_, err := TrainTestSplit(X, y, 0.9, 0)
	assert.True(t, lerrors.Is(err, lerrors.ErrConfiguration))

	_, err = TrainTestSplit(X, mat.NewVecDense(3, nil), 0.5, 0)
	var de *lerrors.DimensionError
	assert.True(t, lerrors.As(err, &de))
}

// Five points on a line, labelled by sign. Whatever rows a 60/40 split
// holds out, the model separates both sides perfectly.
func TestEndToEndFiveRows(t *testing.T) {
	X := mat.NewDense(5, 1, []float64{-3, -2, 2, 3, 4})
	y := mat.NewVecDense(5, []float64{0, 0, 1, 1, 1})

	type splitCase struct {
		name string
		seed uint64
		opts []SplitOption
	}
	tests := []splitCase{{name: "stratified", seed: 42, opts: []SplitOption{WithStratify()}}}
	for seed := uint64(0); seed < 20; seed++ {
		tests = append(tests, splitCase{name: fmt.Sprintf("plain seed %d", seed), seed: seed})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := TrainTestSplit(X, y, 0.4, tt.seed, tt.opts...)
			require.NoError(t, err)
			require.Len(t, s.TestIndices, 2)

			logger, _ := log.NewTestLogger(log.LevelInfo)
			lr := linear_model.NewLogisticRegression(
				linear_model.WithLearningRate(0.5),
				linear_model.WithRegularization(0),
				linear_model.WithMaxIterations(1000),
				linear_model.WithTol(0),
				linear_model.WithLogger(logger),
			)
			require.NoError(t, lr.Fit(s.XTrain, s.YTrain))

			trainAcc, err := lr.Score(s.XTrain, s.YTrain)
			require.NoError(t, err)
			testAcc, err := lr.Score(s.XTest, s.YTest)
			require.NoError(t, err)
			assert.Equal(t, 1.0, trainAcc)
			assert.Equal(t, 1.0, testAcc)
		})
	}
}
