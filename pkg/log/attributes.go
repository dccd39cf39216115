// Standard attribute keys for machine learning and pipeline log records.
//
// Keys follow a hierarchical naming convention ("model.name",
// "data.samples") so that log records can be filtered by prefix.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of model.
	// Examples: "RandomForestRegressor", "StandardScaler"
	ModelNameKey = "model.name"

	// ModelVersionKey identifies the trained model variant ("v1", "v2").
	ModelVersionKey = "model.version"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package emitted the record.
	ComponentKey = "ml.component"

	// StageKey names the pipeline stage ("clean", "features", "train", ...).
	StageKey = "pipeline.stage"

	// PathKey is a file read or written by a stage.
	PathKey = "io.path"
)

// Data Shape
const (
	// SamplesKey indicates the number of samples (rows).
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns).
	FeaturesKey = "data.features"

	// RemovedKey counts rows dropped by a cleaning step.
	RemovedKey = "data.removed"
)

// Metrics and Performance
const (
	DurationMsKey = "perf.duration_ms"
	AccuracyKey   = "metrics.accuracy"
	RMSEKey       = "metrics.rmse"
	MAEKey        = "metrics.mae"
	R2ScoreKey    = "metrics.r2_score"

	// TreesKey is the number of trees in a forest.
	TreesKey = "model.n_estimators"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// HTTP serving
const (
	MethodKey = "http.method"
	RouteKey  = "http.route"
	StatusKey = "http.status"
)

// Error context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"
	OperationSave         = "save"
	OperationLoad         = "load"
)
