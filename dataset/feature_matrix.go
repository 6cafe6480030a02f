package dataset

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	lerrors "github.com/YuminosukeSato/logitcv/pkg/errors"
)

// FeatureMatrix is a dense n×d design matrix with its label vector and fixed
// column names. The row count of X always equals the length of Y.
type FeatureMatrix struct {
	X       *mat.Dense
	Y       *mat.VecDense
	Columns []string
}

// NewFeatureMatrix checks that X, y and columns agree in shape.
func NewFeatureMatrix(X *mat.Dense, y *mat.VecDense, columns []string) (*FeatureMatrix, error) {
	const op = "dataset.NewFeatureMatrix"
	if X == nil || y == nil {
		return nil, lerrors.NewModelError(op, "nil input", lerrors.ErrEmptyData)
	}
	n, p := X.Dims()
	if y.Len() != n {
		return nil, lerrors.NewDimensionError(op, n, y.Len(), 0)
	}
	if len(columns) != p {
		return nil, lerrors.NewDimensionError(op, p, len(columns), 1)
	}
	return &FeatureMatrix{X: X, Y: y, Columns: slices.Clone(columns)}, nil
}

// Dims returns the number of rows and features.
func (f *FeatureMatrix) Dims() (rows, features int) {
	return f.X.Dims()
}

// ColumnIndex returns the position of the named column, or -1.
func (f *FeatureMatrix) ColumnIndex(name string) int {
	return lo.IndexOf(f.Columns, name)
}

// Subset copies the given rows, in order, into a new FeatureMatrix.
func (f *FeatureMatrix) Subset(rows []int) *FeatureMatrix {
	X, y := SelectRows(f.X, f.Y, rows)
	return &FeatureMatrix{X: X, Y: y, Columns: slices.Clone(f.Columns)}
}

// SelectRows copies the given rows of X and y into new storage. It panics on
// an out of range index like gonum accessors do.
func SelectRows(X mat.Matrix, y *mat.VecDense, rows []int) (*mat.Dense, *mat.VecDense) {
	_, p := X.Dims()
	if len(rows) == 0 {
		return &mat.Dense{}, &mat.VecDense{}
	}
	Xs := mat.NewDense(len(rows), p, nil)
	ys := mat.NewVecDense(len(rows), nil)
	for i, r := range rows {
		for j := 0; j < p; j++ {
			Xs.Set(i, j, X.At(r, j))
		}
		ys.SetVec(i, y.AtVec(r))
	}
	return Xs, ys
}

// String renders a short description for logs and CLI output.
func (f *FeatureMatrix) String() string {
	n, p := f.Dims()
	return fmt.Sprintf("FeatureMatrix(%d×%d, columns=%v)", n, p, f.Columns)
}
