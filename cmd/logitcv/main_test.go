package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lerrors "github.com/YuminosukeSato/logitcv/pkg/errors"
)

var sampleCSV = filepath.Join("..", "..", "testdata", "saheart_sample.csv")

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestTrainCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "--data", sampleCSV, "--out", dir, "train")
	require.NoError(t, err)

	assert.Contains(t, out, "famhist_Present")
	assert.Contains(t, out, "(intercept)")
	assert.Contains(t, out, "accuracy")
	assert.Contains(t, out, "weights written to")
	_, err = os.Stat(filepath.Join(dir, "model.json"))
	assert.NoError(t, err)

	out, err = run(t, "--data", sampleCSV, "--out", dir, "evaluate")
	require.NoError(t, err)
	assert.Contains(t, out, "auc")
}

func TestSearchCommand(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "logitcv.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
search:
  folds: 3
  grid:
    regularization_strength: [0, 0.1]
`), 0o600))

	out, err := run(t, "--config", cfgPath, "--data", sampleCSV, "--out", t.TempDir(), "search", "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "regularization_strength")
	assert.Contains(t, out, "mean valid")
	assert.Contains(t, out, "best: ")
}

func TestPlotCommand(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "--data", sampleCSV, "--out", dir, "plot", "age")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "plots", "age_scatter.png"))
	assert.NoError(t, err)
}

func TestInvalidOverride(t *testing.T) {
	_, err := run(t, "--log-format", "xml", "train")
	assert.True(t, lerrors.Is(err, lerrors.ErrConfiguration))
}

func TestEvaluateMissingWeights(t *testing.T) {
	_, err := run(t, "--data", sampleCSV, "--out", t.TempDir(), "evaluate", "missing.json")
	assert.Error(t, err)
}
