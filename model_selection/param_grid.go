package model_selection

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/YuminosukeSato/logitcv/linear_model"
	lerrors "github.com/YuminosukeSato/logitcv/pkg/errors"
)

// SearchableParams are the hyperparameter names a ParamGrid accepts.
var SearchableParams = []string{
	linear_model.ParamLearningRate,
	linear_model.ParamMaxIterations,
	linear_model.ParamPenalty,
	linear_model.ParamRegularizationStrength,
	linear_model.ParamTol,
}

// Axis is one searched hyperparameter and its candidate values, in the order
// they are tried.
type Axis struct {
	Name   string
	Values []interface{}
}

// ParamGrid is the Cartesian product of its axes. Axes are ordered by name and
// the last axis varies fastest, so enumeration order is deterministic.
type ParamGrid struct {
	axes []Axis
}

// NewParamGrid builds a grid from name → candidate values. Every value is
// checked against the hyperparameter rules before any fitting happens.
func NewParamGrid(space map[string][]interface{}) (*ParamGrid, error) {
	if len(space) == 0 {
		return nil, lerrors.NewEmptySpaceError("")
	}

	names := lo.Keys(space)
	sort.Strings(names)

	axes := make([]Axis, 0, len(names))
	for _, name := range names {
		values := space[name]
		if !lo.Contains(SearchableParams, name) {
			return nil, lerrors.NewConfigurationError(name,
				"not a searchable hyperparameter, expected one of "+strings.Join(SearchableParams, ", "), values)
		}
		if len(values) == 0 {
			return nil, lerrors.NewEmptySpaceError(name)
		}
		converted := make([]interface{}, len(values))
		for i, v := range values {
			p, err := linear_model.DefaultParams().Set(name, v)
			if err != nil {
				return nil, err
			}
			if err := p.Validate(); err != nil {
				return nil, err
			}
			converted[i] = p.Map()[name]
		}
		// compared after conversion so 100 and 100.0 count as the same candidate
		if dups := lo.FindDuplicates(converted); len(dups) > 0 {
			return nil, lerrors.NewConfigurationError(name, "duplicate candidate values", dups)
		}
		axes = append(axes, Axis{Name: name, Values: append([]interface{}(nil), values...)})
	}
	return &ParamGrid{axes: axes}, nil
}

// Axes returns a copy of the axes in enumeration order.
func (g *ParamGrid) Axes() []Axis {
	return lo.Map(g.axes, func(a Axis, _ int) Axis {
		return Axis{Name: a.Name, Values: append([]interface{}(nil), a.Values...)}
	})
}

// Names returns the searched hyperparameter names, sorted.
func (g *ParamGrid) Names() []string {
	return lo.Map(g.axes, func(a Axis, _ int) string { return a.Name })
}

// Size returns the number of combinations.
func (g *ParamGrid) Size() int {
	size := 1
	for _, a := range g.axes {
		size *= len(a.Values)
	}
	return size
}

// At returns combination i (0 <= i < Size) as name → value.
func (g *ParamGrid) At(i int) map[string]interface{} {
	combo := make(map[string]interface{}, len(g.axes))
	for k := len(g.axes) - 1; k >= 0; k-- {
		values := g.axes[k].Values
		combo[g.axes[k].Name] = values[i%len(values)]
		i /= len(values)
	}
	return combo
}

// Combinations enumerates every combination, last axis fastest.
func (g *ParamGrid) Combinations() []map[string]interface{} {
	out := make([]map[string]interface{}, g.Size())
	for i := range out {
		out[i] = g.At(i)
	}
	return out
}

// Params applies every combination on top of base and validates the result.
func (g *ParamGrid) Params(base linear_model.Params) ([]linear_model.Params, error) {
	combos := g.Combinations()
	params := make([]linear_model.Params, len(combos))
	for i, c := range combos {
		p, err := base.With(c)
		if err != nil {
			return nil, lerrors.Wrapf(err, "combination %d", i)
		}
		params[i] = p
	}
	return params, nil
}

// FormatCombination renders a combination in axis order, e.g.
// "learning_rate=0.1 max_iterations=500".
func (g *ParamGrid) FormatCombination(combo map[string]interface{}) string {
	parts := lo.Map(g.axes, func(a Axis, _ int) string {
		return fmt.Sprintf("%s=%v", a.Name, combo[a.Name])
	})
	return strings.Join(parts, " ")
}
