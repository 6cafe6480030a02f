package linear_model

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/logitcv/core/parallel"
	lerrors "github.com/YuminosukeSato/logitcv/pkg/errors"
)

// rows above this are split across goroutines
const parallelThreshold = 8192

// Sigmoid computes 1/(1+e^{-z}) without overflowing for large |z|: the
// exponent is always taken of a non-positive number. Far enough out the
// result rounds to exactly 0 or 1.
func Sigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	ez := math.Exp(z)
	return ez / (1.0 + ez)
}

// sigmoidVec writes Sigmoid(z[i]) into dst.
func sigmoidVec(dst, z *mat.VecDense) {
	parallel.ParallelizeWithThreshold(z.Len(), parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			dst.SetVec(i, Sigmoid(z.AtVec(i)))
		}
	})
}

// meanNLL is the mean negative log-likelihood of labels y given scores z.
// -log σ(z) = log(1+e^{-z}) and -log(1-σ(z)) = log(1+e^{z}).
func meanNLL(z, y *mat.VecDense) float64 {
	n := z.Len()
	var sum float64
	for i := 0; i < n; i++ {
		if y.AtVec(i) == 1 {
			sum += lerrors.Log1pExp(-z.AtVec(i))
		} else {
			sum += lerrors.Log1pExp(z.AtVec(i))
		}
	}
	return sum / float64(n)
}
