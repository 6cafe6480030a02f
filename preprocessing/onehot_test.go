package preprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/logitcv/dataset"
	"github.com/YuminosukeSato/logitcv/pkg/errors"
)

func heartRows(t *testing.T, famhist []string) *dataset.Dataset {
	t.Helper()
	n := len(famhist)
	age := make([]float64, n)
	sbp := make([]float64, n)
	labels := make([]float64, n)
	for i := range famhist {
		age[i] = float64(40 + i)
		sbp[i] = float64(120 + i)
		labels[i] = float64(i % 2)
	}
	ds, err := dataset.New([]dataset.Column{
		dataset.NumericColumn("sbp", sbp),
		dataset.CategoricalColumn("famhist", famhist),
		dataset.NumericColumn("age", age),
	}, "chd", labels, nil)
	require.NoError(t, err)
	return ds
}

func TestOneHotEncoderInsertsColumnsInPlace(t *testing.T) {
	ds := heartRows(t, []string{"Present", "Absent", "Present"})
	enc := NewOneHotEncoder()

	out, err := enc.FitTransform(ds, "famhist")
	require.NoError(t, err)

	assert.Equal(t, []string{"Absent", "Present"}, enc.Categories("famhist"))
	assert.Equal(t, []string{"sbp", "famhist_Absent", "famhist_Present", "age"}, out.ColumnNames())
	assert.Empty(t, out.CategoricalNames())

	absent, _ := out.Column("famhist_Absent")
	present, _ := out.Column("famhist_Present")
	assert.Equal(t, []float64{0, 1, 0}, absent.Numeric)
	assert.Equal(t, []float64{1, 0, 1}, present.Numeric)

	// labels and other columns pass through untouched
	assert.Equal(t, ds.Labels(), out.Labels())
	age, _ := out.Column("age")
	assert.Equal(t, []float64{40, 41, 42}, age.Numeric)
}

func TestOneHotEncoderDropFirst(t *testing.T) {
	ds := heartRows(t, []string{"Present", "Absent"})
	enc := NewOneHotEncoder(WithDropFirst())

	out, err := enc.FitTransform(ds)
	require.NoError(t, err)
	assert.Equal(t, []string{"sbp", "famhist_Present", "age"}, out.ColumnNames())
	assert.Equal(t, []string{"famhist_Present"}, enc.OutputNames("famhist"))

	single := heartRows(t, []string{"Present", "Present"})
	err = NewOneHotEncoder(WithDropFirst()).Fit(single)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}

func TestOneHotEncoderTrainTestAgree(t *testing.T) {
	train := heartRows(t, []string{"Present", "Absent", "Absent", "Present"})
	test := heartRows(t, []string{"Absent"})

	enc := NewOneHotEncoder()
	require.NoError(t, enc.Fit(train, "famhist"))

	a, err := enc.Transform(train)
	require.NoError(t, err)
	b, err := enc.Transform(test)
	require.NoError(t, err)
	assert.Equal(t, a.ColumnNames(), b.ColumnNames())
}

func TestOneHotEncoderErrors(t *testing.T) {
	train := heartRows(t, []string{"Present", "Absent"})

	t.Run("not fitted", func(t *testing.T) {
		_, err := NewOneHotEncoder().Transform(train)
		var nf *errors.NotFittedError
		assert.True(t, errors.As(err, &nf))
	})

	t.Run("unseen value", func(t *testing.T) {
		enc := NewOneHotEncoder()
		require.NoError(t, enc.Fit(train, "famhist"))
		_, err := enc.Transform(heartRows(t, []string{"Unknown"}))
		var encErr *errors.EncodingError
		require.True(t, errors.As(err, &encErr))
		assert.Equal(t, "famhist", encErr.Column)
		assert.Equal(t, "Unknown", encErr.Value)
		assert.Equal(t, []string{"Absent", "Present"}, encErr.Known)
	})

	t.Run("numeric column", func(t *testing.T) {
		err := NewOneHotEncoder().Fit(train, "age")
		assert.True(t, errors.Is(err, errors.ErrConfiguration))
	})

	t.Run("missing column", func(t *testing.T) {
		err := NewOneHotEncoder().Fit(train, "smoker")
		assert.True(t, errors.Is(err, errors.ErrConfiguration))
	})

	t.Run("column missing at transform", func(t *testing.T) {
		enc := NewOneHotEncoder()
		require.NoError(t, enc.Fit(train, "famhist"))
		encoded, err := enc.Transform(train)
		require.NoError(t, err)
		_, err = enc.Transform(encoded)
		assert.True(t, errors.Is(err, errors.ErrConfiguration))
	})
}
