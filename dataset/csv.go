package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	lerrors "github.com/YuminosukeSato/logitcv/pkg/errors"
	"github.com/YuminosukeSato/logitcv/pkg/log"
)

// CSVOptions describes how a CSV header maps onto a Dataset.
type CSVOptions struct {
	// IDColumn names the row identifier column excluded from the features.
	// Empty means the file has no identifier column.
	IDColumn string
	// LabelColumn names the binary label column.
	LabelColumn string
	// CategoricalColumns lists columns kept as strings.
	CategoricalColumns []string
	// InferCategorical also treats any column with a non-numeric value as
	// categorical instead of failing.
	InferCategorical bool
}

// DefaultCSVOptions matches the South African heart-disease CSV layout.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		IDColumn:           "row.names",
		LabelColumn:        "chd",
		CategoricalColumns: []string{"famhist"},
	}
}

// LoadCSV reads a Dataset from a file.
func LoadCSV(path string, opts CSVOptions) (*Dataset, error) {
	start := time.Now()
	f, err := os.Open(path)
	if err != nil {
		return nil, lerrors.Wrapf(err, "open dataset %s", path)
	}
	defer f.Close()

	ds, err := ReadCSV(f, opts)
	if err != nil {
		return nil, lerrors.Wrapf(err, "load %s", path)
	}

	neg, pos := ds.ClassCounts()
	log.GetLoggerWithName("dataset").Info("dataset loaded",
		log.OperationKey, log.OperationLoad,
		log.PathKey, path,
		log.SamplesKey, ds.NumRows(),
		log.ColumnsKey, ds.ColumnNames(),
		"class.negative", neg,
		"class.positive", pos,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return ds, nil
}

// ReadCSV parses a CSV stream with a header row. The label must be 0 or 1.
// Parse failures report the 1-based line number.
func ReadCSV(r io.Reader, opts CSVOptions) (*Dataset, error) {
	const op = "dataset.ReadCSV"
	if opts.LabelColumn == "" {
		return nil, lerrors.NewConfigurationError("label_column", "must not be empty", opts.LabelColumn)
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, lerrors.Wrap(err, "read CSV")
	}
	if len(records) < 2 {
		return nil, lerrors.NewModelError(op, "header and at least one row required", lerrors.ErrEmptyData)
	}

	header := lo.Map(records[0], func(h string, _ int) string { return strings.TrimSpace(h) })
	rows := records[1:]

	labelIdx := lo.IndexOf(header, opts.LabelColumn)
	if labelIdx < 0 {
		return nil, lerrors.NewConfigurationError("label_column", "not found in header", opts.LabelColumn)
	}
	idIdx := -1
	if opts.IDColumn != "" {
		if idIdx = lo.IndexOf(header, opts.IDColumn); idIdx < 0 {
			return nil, lerrors.NewConfigurationError("id_column", "not found in header", opts.IDColumn)
		}
	}
	for _, name := range opts.CategoricalColumns {
		if !lo.Contains(header, name) {
			return nil, lerrors.NewConfigurationError("categorical_columns", "not found in header", name)
		}
	}

	labels := make([]float64, len(rows))
	var ids []string
	if idIdx >= 0 {
		ids = make([]string, len(rows))
	}
	for i, rec := range rows {
		line := i + 2
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[labelIdx]), 64)
		if err != nil || (v != 0 && v != 1) {
			return nil, lerrors.NewValueError(op, fmt.Sprintf("line %d: label %q must be 0 or 1", line, rec[labelIdx]))
		}
		labels[i] = v
		if ids != nil {
			ids[i] = rec[idIdx]
		}
	}

	var columns []Column
	for j, name := range header {
		if j == labelIdx || j == idIdx {
			continue
		}
		raw := lo.Map(rows, func(rec []string, _ int) string { return strings.TrimSpace(rec[j]) })
		if lo.Contains(opts.CategoricalColumns, name) {
			columns = append(columns, CategoricalColumn(name, raw))
			continue
		}
		values, line, err := parseFloats(raw)
		if err != nil {
			if opts.InferCategorical {
				columns = append(columns, CategoricalColumn(name, raw))
				continue
			}
			return nil, lerrors.NewValueError(op, fmt.Sprintf("line %d: column %q: %v", line, name, err))
		}
		columns = append(columns, NumericColumn(name, values))
	}

	return New(columns, opts.LabelColumn, labels, ids)
}

// parseFloats returns the 1-based CSV line of the first bad value on failure.
func parseFloats(raw []string) ([]float64, int, error) {
	out := make([]float64, len(raw))
	for i, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, i + 2, err
		}
		out[i] = v
	}
	return out, 0, nil
}
