package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/YuminosukeSato/logitcv/experiment"
	"github.com/YuminosukeSato/logitcv/linear_model"
	"github.com/YuminosukeSato/logitcv/model_selection"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	return table
}

func f4(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

func renderCoefficients(w io.Writer, clf *linear_model.LogisticRegression) {
	table := newTable(w, []string{"feature", "coefficient"})
	names := clf.FeatureNames()
	for i, c := range clf.Coef() {
		name := fmt.Sprintf("x%d", i)
		if i < len(names) {
			name = names[i]
		}
		table.Append([]string{name, f4(c)})
	}
	table.Append([]string{"(intercept)", f4(clf.Intercept())})
	table.Render()
	fmt.Fprintf(w, "iterations: %d\n", clf.NIter())
}

// renderEvaluation prints one column per evaluated split.
func renderEvaluation(w io.Writer, names []string, evals ...experiment.Evaluation) {
	table := newTable(w, append([]string{"metric"}, names...))
	rows := []struct {
		metric string
		value  func(experiment.Evaluation) string
	}{
		{"samples", func(e experiment.Evaluation) string { return strconv.Itoa(e.Samples) }},
		{"accuracy", func(e experiment.Evaluation) string { return f4(e.Accuracy) }},
		{"precision", func(e experiment.Evaluation) string { return f4(e.Precision) }},
		{"recall", func(e experiment.Evaluation) string { return f4(e.Recall) }},
		{"f1", func(e experiment.Evaluation) string { return f4(e.F1) }},
		{"log loss", func(e experiment.Evaluation) string { return f4(e.LogLoss) }},
		{"brier", func(e experiment.Evaluation) string { return f4(e.Brier) }},
		{"auc", func(e experiment.Evaluation) string { return f4(e.AUC) }},
		{"tn/fp/fn/tp", func(e experiment.Evaluation) string {
			c := e.Confusion
			return fmt.Sprintf("%d/%d/%d/%d", c.TN, c.FP, c.FN, c.TP)
		}},
	}
	for _, row := range rows {
		table.Append(append([]string{row.metric}, lo.Map(evals, func(e experiment.Evaluation, _ int) string {
			return row.value(e)
		})...))
	}
	table.Render()
}

func renderCandidates(w io.Writer, grid *model_selection.ParamGrid, result *model_selection.SearchResult) {
	header := append([]string{"#", "rank"}, grid.Names()...)
	header = append(header, "mean train", "mean valid", "std valid")
	table := newTable(w, header)
	for _, c := range result.Candidates {
		rank := "-"
		if !c.Failed {
			rank = strconv.Itoa(c.Rank)
		}
		row := []string{strconv.Itoa(c.Index), rank}
		for _, name := range grid.Names() {
			row = append(row, fmt.Sprint(c.Combination[name]))
		}
		if c.Failed {
			row = append(row, "failed", "failed", "-")
		} else {
			row = append(row, f4(c.MeanTrainScore), f4(c.MeanTestScore), f4(c.StdTestScore))
		}
		table.Append(row)
	}
	table.Render()
}
