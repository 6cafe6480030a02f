// Standard attribute keys for training and model selection logs.
//
// Keys follow a hierarchical naming convention ("data.samples",
// "search.candidate") so JSON logs can be filtered per concern.

package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type, e.g. "LogisticRegression".
	ModelNameKey = "model.name"

	// OperationKey specifies the operation: "fit", "predict", "score", ...
	OperationKey = "ml.operation"

	// ComponentKey identifies the package emitting the log.
	ComponentKey = "ml.component"

	// PhaseKey indicates the lifecycle phase: "training", "validation", ...
	PhaseKey = "ml.phase"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ColumnsKey  = "data.columns"
	PathKey     = "data.path"
)

// Metrics and timing.
const (
	DurationMsKey = "perf.duration_ms"
	AccuracyKey   = "metrics.accuracy"
	ScoreKey      = "metrics.score"
	LossKey       = "metrics.loss"
	GradNormKey   = "metrics.grad_norm"
	IterationKey  = "training.iteration"
)

// Hyperparameters.
const (
	HyperParamsKey    = "model.hyperparams"
	LearningRateKey   = "hyperparams.learning_rate"
	RegularizationKey = "hyperparams.regularization"
	MaxIterationsKey  = "hyperparams.max_iterations"
	RandomSeedKey     = "config.random_seed"
)

// Model selection.
const (
	CandidatesKey = "search.candidates"
	CandidateKey  = "search.candidate"
	FoldsKey      = "search.folds"
	FoldKey       = "search.fold"
	WorkersKey    = "search.workers"
	BestIndexKey  = "search.best_index"
)

// Error context.
const (
	ErrorCodeKey  = "error.code"
	SuggestionKey = "error.suggestion"
)

// Standard values for OperationKey, PhaseKey and ErrorCodeKey.
const (
	OperationFit           = "fit"
	OperationPredict       = "predict"
	OperationTransform     = "transform"
	OperationScore         = "score"
	OperationSplit         = "split"
	OperationSearch        = "search"
	OperationLoad          = "load"
	OperationCrossValidate = "cross_validate"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseTesting       = "testing"
	PhasePreprocessing = "preprocessing"

	ErrorNotFitted          = "NOT_FITTED"
	ErrorDimensionMismatch  = "DIMENSION_MISMATCH"
	ErrorConvergence        = "CONVERGENCE_FAILURE"
	ErrorNumericInstability = "NUMERIC_INSTABILITY"
)
