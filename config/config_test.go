package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/logitcv/linear_model"
	lerrors "github.com/YuminosukeSato/logitcv/pkg/errors"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "chd", cfg.Data.LabelColumn)
	assert.Equal(t, "row.names", cfg.Data.IDColumn)
	assert.Equal(t, []string{"famhist"}, cfg.Data.Categorical)
	assert.Equal(t, 0.25, cfg.Split.TestSize)
	assert.Equal(t, uint64(42), cfg.Split.Seed)
	assert.Equal(t, 5, cfg.Search.Folds)
	assert.Equal(t, "standard", cfg.Preprocess.Scaling)
	assert.Equal(t, DefaultGrid(), cfg.Search.Grid)
	assert.Equal(t, "info", cfg.Log.Level)

	params, err := cfg.Model.Params()
	require.NoError(t, err)
	assert.Equal(t, 1000, params.MaxIterations)
	assert.Equal(t, linear_model.PenaltyL2, params.Penalty)
}

func TestLoadReaderYAML(t *testing.T) {
	text := `
data:
  path: heart.csv
split:
  test_size: 0.3
  seed: 7
model:
  learning_rate: 0.05
  max_iterations: 200
search:
  folds: 3
  scoring: f1
  grid:
    learning_rate: [0.05, 0.5]
log:
  format: json
`
	cfg, err := LoadReader(strings.NewReader(text), "yaml")
	require.NoError(t, err)

	assert.Equal(t, "heart.csv", cfg.Data.Path)
	assert.Equal(t, "chd", cfg.Data.LabelColumn)
	assert.Equal(t, 0.3, cfg.Split.TestSize)
	assert.Equal(t, uint64(7), cfg.Split.Seed)
	assert.Equal(t, 3, cfg.Search.Folds)
	assert.Equal(t, "f1", cfg.Search.Scoring)
	assert.Equal(t, "json", cfg.Log.Format)

	// a user grid replaces the default one entirely
	require.Len(t, cfg.Search.Grid, 1)
	assert.Equal(t, []interface{}{0.05, 0.5}, cfg.Search.Grid["learning_rate"])

	params, err := cfg.Model.Params()
	require.NoError(t, err)
	assert.Equal(t, 0.05, params.LearningRate)
	assert.Equal(t, 200, params.MaxIterations)
}

func TestLoadReaderTOML(t *testing.T) {
	text := `
[preprocess]
scaling = "minmax"
drop_first = false

[search]
workers = 2
`
	cfg, err := LoadReader(strings.NewReader(text), "toml")
	require.NoError(t, err)
	assert.Equal(t, "minmax", cfg.Preprocess.Scaling)
	assert.False(t, cfg.Preprocess.DropFirst)
	assert.Equal(t, 2, cfg.Search.Workers)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logitcv.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"output": {"dir": "results"}}`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "results", cfg.Output.Dir)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "out", cfg.Output.Dir)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("LOGITCV_SPLIT_TEST_SIZE", "0.4")
	t.Setenv("LOGITCV_SEARCH_FOLDS", "4")
	t.Setenv("LOGITCV_LOG_LEVEL", "debug")

	cfg, err := LoadReader(strings.NewReader("split:\n  test_size: 0.2\n"), "yaml")
	require.NoError(t, err)
	assert.Equal(t, 0.4, cfg.Split.TestSize)
	assert.Equal(t, 4, cfg.Search.Folds)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		param string
	}{
		{"test size too large", "split:\n  test_size: 1.5\n", "split.test_size"},
		{"test size zero", "split:\n  test_size: 0\n", "split.test_size"},
		{"one fold", "search:\n  folds: 1\n", "search.folds"},
		{"negative workers", "search:\n  workers: -1\n", "search.workers"},
		{"unknown scaling", "preprocess:\n  scaling: robust\n", "preprocess.scaling"},
		{"unknown log format", "log:\n  format: xml\n", "log.format"},
		{"empty label", "data:\n  label_column: \"\"\n", "data.label_column"},
		{"bad learning rate", "model:\n  learning_rate: -1\n", "learning_rate"},
		{"unknown penalty", "model:\n  penalty: l1\n", "penalty"},
		{"unknown scorer", "search:\n  scoring: roc\n", "scoring"},
		{"unsearchable grid axis", "search:\n  grid:\n    seed: [1, 2]\n", "seed"},
		{"empty grid axis", "search:\n  grid:\n    tol: []\n", "tol"},
		{"nested grid candidate", "search:\n  grid:\n    learning_rate: [[0.1, 0.5]]\n", "learning_rate"},
		{"duplicate grid candidate", "search:\n  grid:\n    max_iterations: [100, 100.0]\n", "max_iterations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadReader(strings.NewReader(tt.yaml), "yaml")
			require.Error(t, err)
			assert.True(t, lerrors.Is(err, lerrors.ErrConfiguration), "got %v", err)

			var ce *lerrors.ConfigurationError
			var ee *lerrors.EmptySpaceError
			switch {
			case lerrors.As(err, &ce):
				assert.Equal(t, tt.param, ce.ParamName)
			case lerrors.As(err, &ee):
				assert.Equal(t, tt.param, ee.ParamName)
			default:
				t.Fatalf("unexpected error type %T", err)
			}
		})
	}
}
