package model_selection

import (
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/mat"

	lerrors "github.com/YuminosukeSato/logitcv/pkg/errors"
)

// Fold is one train/validation partition of the rows.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// Splitter produces cross-validation folds.
type Splitter interface {
	Split(X mat.Matrix, y *mat.VecDense) ([]Fold, error)
	GetNSplits() int
}

// KFold splits rows into k contiguous groups of near-equal size (sizes differ
// by at most one). Every row lands in exactly one validation fold.
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewKFold creates a k-fold splitter. When shuffle is set the rows are
// permuted once with a PCG generator seeded by seed before slicing.
func NewKFold(nSplits int, shuffle bool, seed uint64) *KFold {
	return &KFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: seed}
}

// GetNSplits returns k.
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split generates the folds for the rows of X.
func (kf *KFold) Split(X mat.Matrix, _ *mat.VecDense) ([]Fold, error) {
	nSamples, _ := X.Dims()
	if err := checkFolds("KFold.Split", kf.NSplits, nSamples); err != nil {
		return nil, err
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(kf.RandomSeed, kf.RandomSeed))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	foldOf := make([]int, nSamples)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits
	current := 0
	for f := 0; f < kf.NSplits; f++ {
		size := foldSize
		if f < remainder {
			size++
		}
		for _, idx := range indices[current : current+size] {
			foldOf[idx] = f
		}
		current += size
	}
	return buildFolds(foldOf, kf.NSplits), nil
}

// StratifiedKFold keeps the class proportions of y in every fold. Rows of each
// class (optionally shuffled) are dealt round-robin across folds, continuing
// from class to class, so fold sizes also differ by at most one.
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewStratifiedKFold creates a stratified k-fold splitter.
func NewStratifiedKFold(nSplits int, shuffle bool, seed uint64) *StratifiedKFold {
	return &StratifiedKFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: seed}
}

// GetNSplits returns k.
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split generates stratified folds. y is required.
func (skf *StratifiedKFold) Split(X mat.Matrix, y *mat.VecDense) ([]Fold, error) {
	const op = "StratifiedKFold.Split"
	nSamples, _ := X.Dims()
	if err := checkFolds(op, skf.NSplits, nSamples); err != nil {
		return nil, err
	}
	if y == nil || y.Len() != nSamples {
		got := 0
		if y != nil {
			got = y.Len()
		}
		return nil, lerrors.NewDimensionError(op, nSamples, got, 0)
	}

	_, groups := classGroups(y)
	var r *rand.Rand
	if skf.Shuffle {
		r = rand.New(rand.NewPCG(skf.RandomSeed, skf.RandomSeed))
	}

	foldOf := make([]int, nSamples)
	pos := 0
	for _, g := range groups {
		idx := slices.Clone(g)
		if r != nil {
			r.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		}
		for _, row := range idx {
			foldOf[row] = pos % skf.NSplits
			pos++
		}
	}
	return buildFolds(foldOf, skf.NSplits), nil
}

func checkFolds(op string, k, n int) error {
	if k < 2 {
		return lerrors.NewConfigurationError("n_splits", "must be at least 2", k)
	}
	if n == 0 {
		return lerrors.NewModelError(op, "empty data", lerrors.ErrEmptyData)
	}
	if k > n {
		return lerrors.NewInsufficientDataError(op, k, n)
	}
	return nil
}

// buildFolds turns a row → fold assignment into Fold values with ascending
// indices.
func buildFolds(foldOf []int, k int) []Fold {
	folds := make([]Fold, k)
	for f := range folds {
		folds[f].TestIndices = make([]int, 0, len(foldOf)/k+1)
		folds[f].TrainIndices = make([]int, 0, len(foldOf)-len(foldOf)/k)
	}
	for row, f := range foldOf {
		for g := range folds {
			if g == f {
				folds[g].TestIndices = append(folds[g].TestIndices, row)
			} else {
				folds[g].TrainIndices = append(folds[g].TrainIndices, row)
			}
		}
	}
	return folds
}
