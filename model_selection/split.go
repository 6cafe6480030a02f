// Package model_selection provides seeded train/test splitting, k-fold
// cross-validation and an exhaustive grid search over LogisticRegression
// hyperparameters.
package model_selection

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/logitcv/dataset"
	lerrors "github.com/YuminosukeSato/logitcv/pkg/errors"
)

// Split holds the two sides of a train/test split. Indices refer to rows of
// the input matrix, in the order the rows appear in XTrain and XTest.
type Split struct {
	XTrain       *mat.Dense
	XTest        *mat.Dense
	YTrain       *mat.VecDense
	YTest        *mat.VecDense
	TrainIndices []int
	TestIndices  []int
}

// SplitOption configures TrainTestSplit.
type SplitOption func(*splitConfig)

type splitConfig struct {
	stratify bool
}

// WithStratify keeps the class proportions of y on both sides.
func WithStratify() SplitOption {
	return func(c *splitConfig) { c.stratify = true }
}

// TrainTestSplit partitions the rows of X and y into a training and a test
// set. ceil(testSize·n) rows go to the test side; both sides must end up
// non-empty. The permutation is drawn from a PCG generator seeded with seed,
// so the same inputs always give the same split.
func TrainTestSplit(X mat.Matrix, y *mat.VecDense, testSize float64, seed uint64, opts ...SplitOption) (*Split, error) {
	const op = "TrainTestSplit"
	var cfg splitConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	n, _ := X.Dims()
	if n == 0 || y == nil {
		return nil, lerrors.NewModelError(op, "empty data", lerrors.ErrEmptyData)
	}
	if y.Len() != n {
		return nil, lerrors.NewDimensionError(op, n, y.Len(), 0)
	}
	if !(testSize > 0 && testSize < 1) {
		return nil, lerrors.NewConfigurationError("test_size", "must be in (0, 1)", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < 1 || nTest > n-1 {
		return nil, lerrors.NewConfigurationError("test_size",
			fmt.Sprintf("leaves %d of %d rows for testing, both sides need at least one", nTest, n), testSize)
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	var train, test []int
	if cfg.stratify {
		train, test = stratifiedPartition(rng, y, nTest)
	} else {
		perm := rng.Perm(n)
		test, train = perm[:nTest], perm[nTest:]
	}

	s := &Split{
		TrainIndices: slices.Clone(train),
		TestIndices:  slices.Clone(test),
	}
	s.XTrain, s.YTrain = dataset.SelectRows(X, y, s.TrainIndices)
	s.XTest, s.YTest = dataset.SelectRows(X, y, s.TestIndices)
	return s, nil
}

// classGroups returns the row indices of each distinct label, ordered by label.
func classGroups(y *mat.VecDense) ([]float64, [][]int) {
	byLabel := make(map[float64][]int)
	for i := 0; i < y.Len(); i++ {
		byLabel[y.AtVec(i)] = append(byLabel[y.AtVec(i)], i)
	}
	labels := make([]float64, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Float64s(labels)
	groups := make([][]int, len(labels))
	for i, l := range labels {
		groups[i] = byLabel[l]
	}
	return labels, groups
}

// stratifiedPartition allocates nTest rows across classes by largest
// remainder, then draws each class's share at random.
func stratifiedPartition(rng *rand.Rand, y *mat.VecDense, nTest int) (train, test []int) {
	n := y.Len()
	_, groups := classGroups(y)

	alloc := make([]int, len(groups))
	rem := make([]float64, len(groups))
	assigned := 0
	for k, g := range groups {
		quota := float64(nTest) * float64(len(g)) / float64(n)
		alloc[k] = int(math.Floor(quota))
		rem[k] = quota - float64(alloc[k])
		assigned += alloc[k]
	}
	order := make([]int, len(groups))
	for k := range order {
		order[k] = k
	}
	// stable: ties go to the lower label
	sort.SliceStable(order, func(a, b int) bool { return rem[order[a]] > rem[order[b]] })
	for _, k := range order {
		if assigned == nTest {
			break
		}
		if alloc[k] < len(groups[k]) {
			alloc[k]++
			assigned++
		}
	}

	for k, g := range groups {
		idx := slices.Clone(g)
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		test = append(test, idx[:alloc[k]]...)
		train = append(train, idx[alloc[k]:]...)
	}
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	return train, test
}
