// Package pipeline chains an optional feature scaler with a
// LogisticRegression so that scaling statistics are learned from the rows a
// model is trained on and nothing else. Grid search builds one pipeline per
// fold through Factory.
package pipeline

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/logitcv/core/model"
	"github.com/YuminosukeSato/logitcv/linear_model"
	lerrors "github.com/YuminosukeSato/logitcv/pkg/errors"
	"github.com/YuminosukeSato/logitcv/preprocessing"
)

// Scaling names accepted by New and Factory.
const (
	ScalingNone     = "none"
	ScalingStandard = "standard"
	ScalingMinMax   = "minmax"
)

// Metadata keys used to persist the scaler next to the model weights.
const (
	metaScaling = "scaling"
	metaOffset  = "scaler_offset"
	metaDivisor = "scaler_divisor"
)

// Scaler is a feature transformer that can describe itself as
// (x - offset) / divisor, which is how it is persisted.
type Scaler interface {
	model.Transformer
	model.Fittable
	Affine() (offset, divisor []float64)
}

// Pipeline scales X and then fits or applies the classifier.
type Pipeline struct {
	scaling string
	scaler  Scaler
	clf     *linear_model.LogisticRegression
}

// New creates a pipeline around clf. scaling is one of none, standard, minmax.
func New(scaling string, clf *linear_model.LogisticRegression) (*Pipeline, error) {
	scaler, err := newScaler(scaling)
	if err != nil {
		return nil, err
	}
	if scaling == "" {
		scaling = ScalingNone
	}
	return &Pipeline{scaling: scaling, scaler: scaler, clf: clf}, nil
}

func newScaler(scaling string) (Scaler, error) {
	switch scaling {
	case ScalingNone, "":
		return nil, nil
	case ScalingStandard:
		return preprocessing.NewStandardScalerDefault(), nil
	case ScalingMinMax:
		return preprocessing.NewMinMaxScalerDefault(), nil
	default:
		return nil, lerrors.NewConfigurationError("preprocess.scaling", "must be one of none, standard, minmax", scaling)
	}
}

// ValidateScaling reports whether scaling names a known scaler.
func ValidateScaling(scaling string) error {
	_, err := newScaler(scaling)
	return err
}

// Factory returns a grid search factory building a fresh pipeline per call.
// scaling must already be valid, see ValidateScaling.
func Factory(scaling string, opts ...linear_model.Option) func(linear_model.Params) model.Classifier {
	return func(params linear_model.Params) model.Classifier {
		all := make([]linear_model.Option, 0, len(opts)+1)
		all = append(all, opts...)
		clf := linear_model.NewLogisticRegression(append(all, linear_model.WithParams(params))...)
		p, err := New(scaling, clf)
		if err != nil {
			// unreachable after ValidateScaling; fall back to the bare model
			return clf
		}
		return p
	}
}

// Classifier returns the wrapped model.
func (p *Pipeline) Classifier() *linear_model.LogisticRegression { return p.clf }

// Scaling returns the scaler name.
func (p *Pipeline) Scaling() string { return p.scaling }

// Fit learns the scaler on X, then trains the classifier on the scaled rows.
func (p *Pipeline) Fit(X mat.Matrix, y *mat.VecDense) error {
	Xs, err := p.fitTransform(X)
	if err != nil {
		return err
	}
	return p.clf.Fit(Xs, y)
}

func (p *Pipeline) fitTransform(X mat.Matrix) (mat.Matrix, error) {
	if p.scaler == nil {
		return X, nil
	}
	Xs, err := p.scaler.FitTransform(X)
	if err != nil {
		return nil, lerrors.Wrap(err, "pipeline scaler")
	}
	return Xs, nil
}

func (p *Pipeline) transform(X mat.Matrix) (mat.Matrix, error) {
	if p.scaler == nil {
		return X, nil
	}
	Xs, err := p.scaler.Transform(X)
	if err != nil {
		return nil, lerrors.Wrap(err, "pipeline scaler")
	}
	return Xs, nil
}

// Predict scales X with the fitted scaler and returns class labels.
func (p *Pipeline) Predict(X mat.Matrix) (*mat.VecDense, error) {
	Xs, err := p.transform(X)
	if err != nil {
		return nil, err
	}
	return p.clf.Predict(Xs)
}

// PredictProba scales X and returns P(y=1 | x).
func (p *Pipeline) PredictProba(X mat.Matrix) (*mat.VecDense, error) {
	Xs, err := p.transform(X)
	if err != nil {
		return nil, err
	}
	return p.clf.PredictProba(Xs)
}

// IsFitted reports whether both stages are fitted.
func (p *Pipeline) IsFitted() bool {
	return p.clf.IsFitted() && (p.scaler == nil || p.scaler.IsFitted())
}

// ExportWeights stores the classifier weights plus the scaler statistics.
func (p *Pipeline) ExportWeights() (*model.ModelWeights, error) {
	w, err := p.clf.ExportWeights()
	if err != nil {
		return nil, err
	}
	w.Metadata[metaScaling] = p.scaling
	if p.scaler != nil {
		offset, divisor := p.scaler.Affine()
		w.Metadata[metaOffset] = offset
		w.Metadata[metaDivisor] = divisor
	}
	return w, nil
}

// ImportWeights restores the classifier and, when present, the scaler. Any
// stored scaler comes back as an affine StandardScaler with the same
// transform.
func (p *Pipeline) ImportWeights(w *model.ModelWeights) error {
	if err := p.clf.ImportWeights(w); err != nil {
		return err
	}
	scaling, _ := w.Metadata[metaScaling].(string)
	if scaling == "" || scaling == ScalingNone {
		p.scaling, p.scaler = ScalingNone, nil
		return nil
	}

	offset, err := floatSlice(w.Metadata[metaOffset])
	if err != nil {
		return lerrors.Wrap(err, metaOffset)
	}
	divisor, err := floatSlice(w.Metadata[metaDivisor])
	if err != nil {
		return lerrors.Wrap(err, metaDivisor)
	}
	if len(offset) != len(w.Coefficients) {
		return lerrors.NewDimensionError("Pipeline.ImportWeights", len(w.Coefficients), len(offset), 1)
	}
	scaler, err := preprocessing.RestoreStandardScaler(offset, divisor)
	if err != nil {
		return err
	}
	p.scaling, p.scaler = scaling, scaler
	return nil
}

// GetWeightHash returns the classifier weight hash.
func (p *Pipeline) GetWeightHash() string { return p.clf.GetWeightHash() }

// floatSlice accepts []float64 or the []interface{} produced by JSON decoding.
func floatSlice(v interface{}) ([]float64, error) {
	switch s := v.(type) {
	case []float64:
		return s, nil
	case []interface{}:
		out := make([]float64, len(s))
		for i, e := range s {
			f, ok := e.(float64)
			if !ok {
				return nil, lerrors.NewValueError("floatSlice", fmt.Sprintf("element %d is %T", i, e))
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, lerrors.NewValueError("floatSlice", fmt.Sprintf("unexpected %T", v))
	}
}

// String describes the pipeline.
func (p *Pipeline) String() string {
	return fmt.Sprintf("Pipeline(scaling=%s, %s)", p.scaling, p.clf)
}
