// Package dataset holds the immutable tabular container loaded from CSV and the
// dense FeatureMatrix derived from it.
//
// A Dataset keeps columns in file order. Numeric columns store float64 values,
// categorical columns keep their raw strings until a preprocessing.OneHotEncoder
// replaces them. Once every column is numeric, FeatureMatrix produces the
// gonum matrix consumed by the models.
package dataset

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	lerrors "github.com/YuminosukeSato/logitcv/pkg/errors"
)

// Kind distinguishes numeric from categorical columns.
type Kind int

const (
	// Numeric columns hold float64 values.
	Numeric Kind = iota
	// Categorical columns hold raw string values.
	Categorical
)

func (k Kind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "numeric"
}

// Column is one named feature column. Exactly one of Numeric or Categorical is
// populated, according to Kind.
type Column struct {
	Name        string
	Kind        Kind
	Numeric     []float64
	Categorical []string
}

// Len returns the number of values in the column.
func (c Column) Len() int {
	if c.Kind == Categorical {
		return len(c.Categorical)
	}
	return len(c.Numeric)
}

func (c Column) clone() Column {
	return Column{
		Name:        c.Name,
		Kind:        c.Kind,
		Numeric:     slices.Clone(c.Numeric),
		Categorical: slices.Clone(c.Categorical),
	}
}

func (c Column) subset(rows []int) Column {
	out := Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Categorical {
		out.Categorical = lo.Map(rows, func(r int, _ int) string { return c.Categorical[r] })
	} else {
		out.Numeric = lo.Map(rows, func(r int, _ int) float64 { return c.Numeric[r] })
	}
	return out
}

// NumericColumn builds a numeric column.
func NumericColumn(name string, values []float64) Column {
	return Column{Name: name, Kind: Numeric, Numeric: values}
}

// CategoricalColumn builds a categorical column.
func CategoricalColumn(name string, values []string) Column {
	return Column{Name: name, Kind: Categorical, Categorical: values}
}

// Dataset is an immutable table of feature columns, a binary label and
// optional row identifiers. Accessors return copies.
type Dataset struct {
	columns   []Column
	labelName string
	labels    []float64
	ids       []string
}

// New validates and builds a Dataset. Every column must have len(labels)
// values, column names must be unique and labels must be 0 or 1. ids may be
// nil; otherwise it needs one entry per row. The slices are copied.
func New(columns []Column, labelName string, labels []float64, ids []string) (*Dataset, error) {
	const op = "dataset.New"
	n := len(labels)
	if n == 0 {
		return nil, lerrors.NewModelError(op, "no rows", lerrors.ErrEmptyData)
	}
	if len(columns) == 0 {
		return nil, lerrors.NewModelError(op, "no feature columns", lerrors.ErrEmptyData)
	}
	if dup := lo.FindDuplicates(lo.Map(columns, func(c Column, _ int) string { return c.Name })); len(dup) > 0 {
		return nil, lerrors.NewConfigurationError("columns", "duplicate column name", dup[0])
	}
	for _, c := range columns {
		if c.Name == labelName {
			return nil, lerrors.NewConfigurationError("columns", "label column cannot also be a feature", c.Name)
		}
		if c.Len() != n {
			return nil, lerrors.NewDimensionError(fmt.Sprintf("%s(%s)", op, c.Name), n, c.Len(), 0)
		}
	}
	if ids != nil && len(ids) != n {
		return nil, lerrors.NewDimensionError(op+"(ids)", n, len(ids), 0)
	}
	if i, bad := firstNonBinary(labels); bad {
		return nil, lerrors.NewConfigurationError(labelName, fmt.Sprintf("label at row %d must be 0 or 1", i), labels[i])
	}

	return &Dataset{
		columns:   lo.Map(columns, func(c Column, _ int) Column { return c.clone() }),
		labelName: labelName,
		labels:    slices.Clone(labels),
		ids:       slices.Clone(ids),
	}, nil
}

func firstNonBinary(labels []float64) (int, bool) {
	for i, v := range labels {
		if v != 0 && v != 1 {
			return i, true
		}
	}
	return -1, false
}

// NumRows returns the number of rows.
func (d *Dataset) NumRows() int { return len(d.labels) }

// LabelName returns the name of the label column.
func (d *Dataset) LabelName() string { return d.labelName }

// ColumnNames returns feature column names in order.
func (d *Dataset) ColumnNames() []string {
	return lo.Map(d.columns, func(c Column, _ int) string { return c.Name })
}

// Columns returns copies of all feature columns in order.
func (d *Dataset) Columns() []Column {
	return lo.Map(d.columns, func(c Column, _ int) Column { return c.clone() })
}

// Column returns a copy of the named column.
func (d *Dataset) Column(name string) (Column, bool) {
	c, ok := lo.Find(d.columns, func(c Column) bool { return c.Name == name })
	if !ok {
		return Column{}, false
	}
	return c.clone(), true
}

// CategoricalNames returns the names of columns that still hold strings.
func (d *Dataset) CategoricalNames() []string {
	return lo.FilterMap(d.columns, func(c Column, _ int) (string, bool) {
		return c.Name, c.Kind == Categorical
	})
}

// Labels returns a copy of the label values.
func (d *Dataset) Labels() []float64 { return slices.Clone(d.labels) }

// IDs returns a copy of the row identifiers, or nil when none were loaded.
func (d *Dataset) IDs() []string { return slices.Clone(d.ids) }

// ClassCounts returns the number of rows labelled 0 and 1.
func (d *Dataset) ClassCounts() (negatives, positives int) {
	positives = lo.CountBy(d.labels, func(v float64) bool { return v == 1 })
	return len(d.labels) - positives, positives
}

// Subset returns a new Dataset holding the given rows in the given order.
func (d *Dataset) Subset(rows []int) (*Dataset, error) {
	for _, r := range rows {
		if r < 0 || r >= d.NumRows() {
			return nil, lerrors.NewValueError("Dataset.Subset", fmt.Sprintf("row index %d out of range [0, %d)", r, d.NumRows()))
		}
	}
	var ids []string
	if d.ids != nil {
		ids = lo.Map(rows, func(r int, _ int) string { return d.ids[r] })
	}
	return New(
		lo.Map(d.columns, func(c Column, _ int) Column { return c.subset(rows) }),
		d.labelName,
		lo.Map(rows, func(r int, _ int) float64 { return d.labels[r] }),
		ids,
	)
}

// WithColumns returns a Dataset with the same labels and ids but a new set of
// feature columns. Used by encoders to replace categorical columns.
func (d *Dataset) WithColumns(columns []Column) (*Dataset, error) {
	return New(columns, d.labelName, d.labels, d.ids)
}

// FeatureMatrix converts an all-numeric Dataset into a dense matrix. It fails
// with a ConfigurationError when categorical columns remain.
func (d *Dataset) FeatureMatrix() (*FeatureMatrix, error) {
	if cats := d.CategoricalNames(); len(cats) > 0 {
		return nil, lerrors.NewConfigurationError("columns", "categorical columns must be encoded first", cats)
	}
	n, p := d.NumRows(), len(d.columns)
	X := mat.NewDense(n, p, nil)
	for j, c := range d.columns {
		X.SetCol(j, c.Numeric)
	}
	return &FeatureMatrix{
		X:       X,
		Y:       mat.NewVecDense(n, slices.Clone(d.labels)),
		Columns: d.ColumnNames(),
	}, nil
}
