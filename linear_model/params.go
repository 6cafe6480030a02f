package linear_model

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	lerrors "github.com/YuminosukeSato/logitcv/pkg/errors"
)

// Hyperparameter names, shared by Params.Set, GetParams and grid search spaces.
const (
	ParamLearningRate           = "learning_rate"
	ParamMaxIterations          = "max_iterations"
	ParamRegularizationStrength = "regularization_strength"
	ParamPenalty                = "penalty"
	ParamTol                    = "tol"
	ParamFitIntercept           = "fit_intercept"
	ParamInitStdDev             = "init_std_dev"
	ParamSeed                   = "seed"
)

// Penalty selects the regularization term added to the gradient.
type Penalty string

const (
	// PenaltyNone disables regularization regardless of RegularizationStrength.
	PenaltyNone Penalty = "none"
	// PenaltyL2 adds λ·w to the weight gradient. The bias is never penalised.
	PenaltyL2 Penalty = "l2"
)

// Params is the full, validated hyperparameter set of LogisticRegression.
// It is a value type: Set returns a modified copy.
type Params struct {
	// LearningRate is the gradient descent step size β.
	LearningRate float64 `param:"learning_rate" validate:"gt=0,finite"`
	// MaxIterations caps the number of full-batch updates T.
	MaxIterations int `param:"max_iterations" validate:"gt=0"`
	// RegularizationStrength is λ, used when Penalty is l2.
	RegularizationStrength float64 `param:"regularization_strength" validate:"gte=0,finite"`
	// Penalty is "none" or "l2".
	Penalty Penalty `param:"penalty" validate:"oneof=none l2"`
	// Tol stops training early once ‖grad_w‖₂ < Tol. Zero disables early stopping.
	Tol float64 `param:"tol" validate:"gte=0,finite"`
	// FitIntercept learns the bias b. When false b stays 0.
	FitIntercept bool `param:"fit_intercept"`
	// InitStdDev > 0 draws initial weights from N(0, InitStdDev²) seeded by
	// Seed. Zero starts from all-zero weights.
	InitStdDev float64 `param:"init_std_dev" validate:"gte=0,finite"`
	// Seed feeds the PCG generator used for weight initialisation.
	Seed uint64 `param:"seed"`
}

// DefaultParams returns the defaults used when no option overrides them.
func DefaultParams() Params {
	return Params{
		LearningRate:           0.1,
		MaxIterations:          100,
		RegularizationStrength: 0,
		Penalty:                PenaltyL2,
		Tol:                    1e-4,
		FitIntercept:           true,
	}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func paramValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			return fld.Tag.Get("param")
		})
		_ = validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
			v := fl.Field().Float()
			return !math.IsNaN(v) && !math.IsInf(v, 0)
		})
	})
	return validate
}

// Validate checks every field and reports the first violation as a
// ConfigurationError naming the parameter.
func (p Params) Validate() error {
	err := paramValidator().Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if lerrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return lerrors.NewConfigurationError(fe.Field(), describeRule(fe), fe.Value())
	}
	return lerrors.Wrap(err, "validate params")
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "finite":
		return "must be finite"
	default:
		return "failed " + fe.Tag()
	}
}

// Names returns all recognised hyperparameter names, sorted.
func Names() []string {
	names := lo.Keys(DefaultParams().Map())
	sort.Strings(names)
	return names
}

// Map returns the parameters keyed by name.
func (p Params) Map() map[string]interface{} {
	return map[string]interface{}{
		ParamLearningRate:           p.LearningRate,
		ParamMaxIterations:          p.MaxIterations,
		ParamRegularizationStrength: p.RegularizationStrength,
		ParamPenalty:                string(p.Penalty),
		ParamTol:                    p.Tol,
		ParamFitIntercept:           p.FitIntercept,
		ParamInitStdDev:             p.InitStdDev,
		ParamSeed:                   p.Seed,
	}
}

// Set returns a copy of p with the named parameter replaced. Numeric values
// are accepted as any Go number (JSON and YAML decoders produce float64 or
// int). It does not run Validate.
func (p Params) Set(name string, value interface{}) (Params, error) {
	switch name {
	case ParamLearningRate:
		v, err := toFloat(name, value)
		p.LearningRate = v
		return p, err
	case ParamRegularizationStrength:
		v, err := toFloat(name, value)
		p.RegularizationStrength = v
		return p, err
	case ParamTol:
		v, err := toFloat(name, value)
		p.Tol = v
		return p, err
	case ParamInitStdDev:
		v, err := toFloat(name, value)
		p.InitStdDev = v
		return p, err
	case ParamMaxIterations:
		v, err := toInt(name, value)
		p.MaxIterations = v
		return p, err
	case ParamSeed:
		v, err := toInt(name, value)
		if err == nil && v < 0 {
			err = lerrors.NewConfigurationError(name, "must not be negative", value)
		}
		p.Seed = uint64(v)
		return p, err
	case ParamPenalty:
		switch v := value.(type) {
		case Penalty:
			p.Penalty = v
		case string:
			p.Penalty = Penalty(strings.ToLower(v))
		default:
			return p, lerrors.NewConfigurationError(name, "must be a string", value)
		}
		return p, nil
	case ParamFitIntercept:
		v, ok := value.(bool)
		if !ok {
			return p, lerrors.NewConfigurationError(name, "must be a bool", value)
		}
		p.FitIntercept = v
		return p, nil
	default:
		return p, lerrors.NewConfigurationError(name, "unknown hyperparameter", value)
	}
}

// With applies every entry of values through Set and validates the result.
func (p Params) With(values map[string]interface{}) (Params, error) {
	keys := lo.Keys(values)
	sort.Strings(keys)
	for _, k := range keys {
		var err error
		if p, err = p.Set(k, values[k]); err != nil {
			return p, err
		}
	}
	return p, p.Validate()
}

// String renders the parameters in name order.
func (p Params) String() string {
	m := p.Map()
	parts := lo.Map(Names(), func(k string, _ int) string {
		return fmt.Sprintf("%s=%v", k, m[k])
	})
	return "Params(" + strings.Join(parts, ", ") + ")"
}

func toFloat(name string, value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	default:
		return 0, lerrors.NewConfigurationError(name, "must be a number", value)
	}
}

func toInt(name string, value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, lerrors.NewConfigurationError(name, "must be an integer", value)
		}
		return int(v), nil
	default:
		return 0, lerrors.NewConfigurationError(name, "must be an integer", value)
	}
}
