// Standard attribute keys for boosting operations. Using these keys keeps
// log output consistent across the library and makes per-iteration training
// logs easy to filter and analyze. The keys follow a hierarchical naming
// convention (e.g. "model.name", "data.samples").

package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type.
	// Examples: "AdaBoostClassifier", "AdaBoostRegressor"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "predict_proba", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package emits the record.
	// Examples: "ensemble.adaboost", "metrics"
	ComponentKey = "ml.component"

	// AlgorithmKey names the boosting variant in use.
	// Examples: "SAMME", "SAMME.R", "R2"
	AlgorithmKey = "boost.algorithm"
)

// Data shape.
const (
	// SamplesKey is the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// ClassesKey is the number of distinct class labels (classification).
	ClassesKey = "data.classes"
)

// Training progress.
const (
	// IterationKey is the current boosting iteration, starting at 0.
	IterationKey = "training.iteration"

	// NEstimatorsKey is the configured maximum number of estimators.
	NEstimatorsKey = "training.n_estimators"

	// EstimatorWeightKey is the weight assigned to the iteration's member.
	EstimatorWeightKey = "training.estimator_weight"

	// EstimatorErrorKey is the weighted error of the iteration's member.
	EstimatorErrorKey = "training.estimator_error"

	// LearningRateKey is the configured learning rate.
	LearningRateKey = "hyperparams.learning_rate"

	// LossKey names the regression loss function.
	LossKey = "hyperparams.loss"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Evaluation.
const (
	// AccuracyKey records classification accuracy, range [0, 1].
	AccuracyKey = "metrics.accuracy"

	// R2ScoreKey records the R² coefficient of determination.
	R2ScoreKey = "metrics.r2_score"

	// DurationMsKey records the execution time of an operation in
	// milliseconds.
	DurationMsKey = "perf.duration_ms"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationPredictProba = "predict_proba"
	OperationScore        = "score"
)
