// Package config loads experiment settings. Built-in defaults are overridden
// by a YAML, TOML or JSON file, and both by LOGITCV_* environment variables.
package config

import (
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/logitcv/linear_model"
	"github.com/YuminosukeSato/logitcv/metrics"
	"github.com/YuminosukeSato/logitcv/model_selection"
	lerrors "github.com/YuminosukeSato/logitcv/pkg/errors"
)

// EnvPrefix prefixes environment overrides, e.g. LOGITCV_SPLIT_TEST_SIZE.
const EnvPrefix = "LOGITCV"

// Config is the full experiment configuration.
type Config struct {
	Data       DataConfig       `mapstructure:"data"`
	Split      SplitConfig      `mapstructure:"split"`
	Preprocess PreprocessConfig `mapstructure:"preprocess"`
	Model      ModelConfig      `mapstructure:"model"`
	Search     SearchConfig     `mapstructure:"search"`
	Output     OutputConfig     `mapstructure:"output"`
	Log        LogConfig        `mapstructure:"log"`
}

// DataConfig locates the CSV and names its special columns.
type DataConfig struct {
	Path             string   `mapstructure:"path" validate:"required"`
	IDColumn         string   `mapstructure:"id_column"`
	LabelColumn      string   `mapstructure:"label_column" validate:"required"`
	Categorical      []string `mapstructure:"categorical"`
	InferCategorical bool     `mapstructure:"infer_categorical"`
}

// SplitConfig controls the train/test split.
type SplitConfig struct {
	TestSize float64 `mapstructure:"test_size" validate:"gt=0,lt=1"`
	Seed     uint64  `mapstructure:"seed"`
	Stratify bool    `mapstructure:"stratify"`
}

// PreprocessConfig controls encoding and scaling.
type PreprocessConfig struct {
	DropFirst bool   `mapstructure:"drop_first"`
	Scaling   string `mapstructure:"scaling" validate:"oneof=none standard minmax"`
}

// ModelConfig holds the LogisticRegression hyperparameters used for plain
// training and as the base of a grid search.
type ModelConfig struct {
	LearningRate           float64 `mapstructure:"learning_rate"`
	MaxIterations          int     `mapstructure:"max_iterations"`
	RegularizationStrength float64 `mapstructure:"regularization_strength"`
	Penalty                string  `mapstructure:"penalty"`
	Tol                    float64 `mapstructure:"tol"`
	FitIntercept           bool    `mapstructure:"fit_intercept"`
	InitStdDev             float64 `mapstructure:"init_std_dev"`
	Seed                   uint64  `mapstructure:"seed"`
}

// SearchConfig controls cross-validated grid search.
type SearchConfig struct {
	Folds      int                      `mapstructure:"folds" validate:"gte=2"`
	Stratified bool                     `mapstructure:"stratified"`
	Shuffle    bool                     `mapstructure:"shuffle"`
	Seed       uint64                   `mapstructure:"seed"`
	Workers    int                      `mapstructure:"workers" validate:"gte=0"`
	Scoring    string                   `mapstructure:"scoring"`
	Grid       map[string][]interface{} `mapstructure:"grid"`
}

// OutputConfig says where artefacts go.
type OutputConfig struct {
	Dir          string   `mapstructure:"dir" validate:"required"`
	WeightsFile  string   `mapstructure:"weights_file"`
	PlotFeatures []string `mapstructure:"plot_features"`
	LossCurve    bool     `mapstructure:"loss_curve"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

// defaults mirror the South African heart disease notebook.
var defaults = map[string]interface{}{
	"data.path":              "testdata/saheart_sample.csv",
	"data.id_column":         "row.names",
	"data.label_column":      "chd",
	"data.categorical":       []string{"famhist"},
	"data.infer_categorical": false,

	"split.test_size": 0.25,
	"split.seed":      42,
	"split.stratify":  true,

	"preprocess.drop_first": true,
	"preprocess.scaling":    "standard",

	"model.learning_rate":           0.1,
	"model.max_iterations":          1000,
	"model.regularization_strength": 0.0,
	"model.penalty":                 "l2",
	"model.tol":                     1e-4,
	"model.fit_intercept":           true,
	"model.init_std_dev":            0.0,
	"model.seed":                    0,

	"search.folds":      5,
	"search.stratified": true,
	"search.shuffle":    true,
	"search.seed":       42,
	"search.workers":    0,
	"search.scoring":    "accuracy",

	"output.dir":           "out",
	"output.weights_file":  "model.json",
	"output.plot_features": []string{"sbp", "tobacco", "ldl", "adiposity", "typea", "obesity", "alcohol", "age"},
	"output.loss_curve":    true,

	"log.level":  "info",
	"log.format": "console",
}

// DefaultGrid is searched when the config names no grid. It is applied after
// decoding since viper merges nested default maps key by key.
func DefaultGrid() map[string][]interface{} {
	return map[string][]interface{}{
		linear_model.ParamRegularizationStrength: {0.0, 0.001, 0.01, 0.1, 1.0},
		linear_model.ParamMaxIterations:          {100, 500, 1000},
	}
}

// New returns a viper instance with defaults and environment overrides set up.
func New() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default returns the built-in configuration.
func Default() (*Config, error) {
	return decode(New())
}

// Load reads path (any format viper recognises by extension) on top of the
// defaults. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, lerrors.Wrapf(err, "read config %s", path)
		}
	}
	return decode(v)
}

// LoadReader reads a config of the given format ("yaml", "toml", "json").
func LoadReader(r io.Reader, format string) (*Config, error) {
	v := New()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, lerrors.Wrapf(err, "read %s config", format)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, lerrors.Wrap(err, "decode config")
	}
	if len(cfg.Search.Grid) == 0 {
		cfg.Search.Grid = DefaultGrid()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			return strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		})
	})
	return validate
}

// Validate checks field rules, the model hyperparameters, the search grid
// and the scorer name. Failures are ConfigurationErrors naming the dotted key.
func (c *Config) Validate() error {
	if err := structValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if lerrors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return lerrors.NewConfigurationError(dottedKey(fe.Namespace()), strings.TrimSpace("failed "+fe.Tag()+" "+fe.Param()), fe.Value())
		}
		return lerrors.Wrap(err, "validate config")
	}
	if _, err := c.Model.Params(); err != nil {
		return lerrors.Wrap(err, "model")
	}
	if _, err := model_selection.NewParamGrid(c.Search.Grid); err != nil {
		return lerrors.Wrap(err, "search.grid")
	}
	if _, err := metrics.GetScorer(c.Search.Scoring); err != nil {
		return err
	}
	return nil
}

// dottedKey turns "Config.split.test_size" into "split.test_size".
func dottedKey(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// Params converts the model section into validated hyperparameters.
func (m ModelConfig) Params() (linear_model.Params, error) {
	return linear_model.DefaultParams().With(map[string]interface{}{
		linear_model.ParamLearningRate:           m.LearningRate,
		linear_model.ParamMaxIterations:          m.MaxIterations,
		linear_model.ParamRegularizationStrength: m.RegularizationStrength,
		linear_model.ParamPenalty:                m.Penalty,
		linear_model.ParamTol:                    m.Tol,
		linear_model.ParamFitIntercept:           m.FitIntercept,
		linear_model.ParamInitStdDev:             m.InitStdDev,
		linear_model.ParamSeed:                   m.Seed,
	})
}
