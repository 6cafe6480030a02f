package preprocessing

import (
	"fmt"
	"slices"
	"sort"

	"github.com/samber/lo"

	"github.com/YuminosukeSato/logitcv/core/model"
	"github.com/YuminosukeSato/logitcv/dataset"
	"github.com/YuminosukeSato/logitcv/pkg/errors"
	"github.com/YuminosukeSato/logitcv/pkg/log"
)

// OneHotEncoder はカテゴリ列を0/1のダミー列に置き換えるエンコーダ
//
// カテゴリ集合はFit時に確定し、辞書順に並べられる。Transformは同じ集合を使うため、
// 訓練データとテストデータで列の並びが一致する。生成される列名は "<列名>_<値>" で、
// 元の列があった位置にカテゴリ順で挿入される。
type OneHotEncoder struct {
	state *model.StateManager

	// DropFirst は先頭カテゴリのダミー列を出力しない（多重共線性の回避）
	DropFirst bool

	columns    []string
	categories map[string][]string
}

// OneHotOption はOneHotEncoderのオプション
type OneHotOption func(*OneHotEncoder)

// WithDropFirst は先頭カテゴリのダミー列を省略する
func WithDropFirst() OneHotOption {
	return func(e *OneHotEncoder) { e.DropFirst = true }
}

// NewOneHotEncoder は新しいOneHotEncoderを作成する
//
// 使用例:
//
//	enc := preprocessing.NewOneHotEncoder(preprocessing.WithDropFirst())
//	encoded, err := enc.FitTransform(ds, "famhist")
func NewOneHotEncoder(opts ...OneHotOption) *OneHotEncoder {
	e := &OneHotEncoder{
		state:      model.NewStateManager(),
		categories: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsFitted は学習済みかどうかを返す
func (e *OneHotEncoder) IsFitted() bool { return e.state.IsFitted() }

// Fit は指定列のカテゴリ集合を学習する。列を省略した場合は全カテゴリ列が対象
func (e *OneHotEncoder) Fit(ds *dataset.Dataset, columns ...string) error {
	if len(columns) == 0 {
		columns = ds.CategoricalNames()
	}
	if dup := lo.FindDuplicates(columns); len(dup) > 0 {
		return errors.NewConfigurationError("columns", "column listed twice", dup[0])
	}

	categories := make(map[string][]string, len(columns))
	for _, name := range columns {
		col, err := categoricalColumn(ds, name)
		if err != nil {
			return err
		}
		cats := lo.Uniq(col.Categorical)
		sort.Strings(cats)
		if e.DropFirst && len(cats) < 2 {
			return errors.NewConfigurationError(name, "drop_first needs at least two categories", cats)
		}
		categories[name] = cats
	}

	e.columns = slices.Clone(columns)
	e.categories = categories
	e.state.SetDimensions(len(columns), ds.NumRows())
	e.state.SetFitted()

	logger := log.GetLoggerWithName("preprocessing")
	for _, name := range e.columns {
		logger.Debug("categories learned",
			log.PhaseKey, log.PhasePreprocessing,
			"column", name,
			"categories", e.categories[name],
		)
	}
	return nil
}

func categoricalColumn(ds *dataset.Dataset, name string) (dataset.Column, error) {
	col, ok := ds.Column(name)
	if !ok {
		return dataset.Column{}, errors.NewConfigurationError(name, "column not found", ds.ColumnNames())
	}
	if col.Kind != dataset.Categorical {
		return dataset.Column{}, errors.NewConfigurationError(name, "column is not categorical", col.Kind.String())
	}
	return col, nil
}

// Transform はカテゴリ列をダミー列に置き換えた新しいDatasetを返す
// 学習時に見ていない値はEncodingErrorになる
func (e *OneHotEncoder) Transform(ds *dataset.Dataset) (*dataset.Dataset, error) {
	if err := e.state.RequireFitted("OneHotEncoder", "Transform"); err != nil {
		return nil, err
	}
	for _, name := range e.columns {
		if _, err := categoricalColumn(ds, name); err != nil {
			return nil, err
		}
	}

	var out []dataset.Column
	for _, col := range ds.Columns() {
		cats, ok := e.categories[col.Name]
		if !ok {
			out = append(out, col)
			continue
		}
		dummies, err := e.encode(col, cats)
		if err != nil {
			return nil, err
		}
		out = append(out, dummies...)
	}
	return ds.WithColumns(out)
}

func (e *OneHotEncoder) encode(col dataset.Column, cats []string) ([]dataset.Column, error) {
	index := make(map[string]int, len(cats))
	for i, c := range cats {
		index[c] = i
	}

	n := col.Len()
	values := make([][]float64, len(cats))
	for i := range values {
		values[i] = make([]float64, n)
	}
	for r, v := range col.Categorical {
		k, ok := index[v]
		if !ok {
			return nil, errors.NewEncodingError(col.Name, v, slices.Clone(cats))
		}
		values[k][r] = 1.0
	}

	start := 0
	if e.DropFirst {
		start = 1
	}
	out := make([]dataset.Column, 0, len(cats)-start)
	for k := start; k < len(cats); k++ {
		out = append(out, dataset.NumericColumn(dummyName(col.Name, cats[k]), values[k]))
	}
	return out, nil
}

func dummyName(column, value string) string {
	return fmt.Sprintf("%s_%s", column, value)
}

// FitTransform はFitとTransformを同じDatasetに対して実行する
func (e *OneHotEncoder) FitTransform(ds *dataset.Dataset, columns ...string) (*dataset.Dataset, error) {
	if err := e.Fit(ds, columns...); err != nil {
		return nil, err
	}
	return e.Transform(ds)
}

// Categories は学習済みのカテゴリ（辞書順）を返す。未知の列はnil
func (e *OneHotEncoder) Categories(column string) []string {
	return slices.Clone(e.categories[column])
}

// Columns はエンコード対象の列名を返す
func (e *OneHotEncoder) Columns() []string {
	return slices.Clone(e.columns)
}

// OutputNames は指定列から生成されるダミー列名を返す
func (e *OneHotEncoder) OutputNames(column string) []string {
	cats := e.categories[column]
	if e.DropFirst && len(cats) > 0 {
		cats = cats[1:]
	}
	return lo.Map(cats, func(c string, _ int) string { return dummyName(column, c) })
}
