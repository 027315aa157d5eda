package log

// Model and operation context.
const (
	// ModelNameKey identifies the model type.
	// Examples: "RandomForestClassifier", "OLS"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "tune", "eliminate"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "dataset", "ensemble", "linear", "analysis"
	ComponentKey = "ml.component"
)

// Data shape.
const (
	// SamplesKey is the number of rows in the table being processed.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of input columns.
	FeaturesKey = "data.features"

	// DroppedRowsKey counts rows removed by a cleaning step.
	DroppedRowsKey = "data.dropped_rows"
)

// Model hyperparameters and metrics.
const (
	// TreesKey is the ensemble size of a random forest.
	TreesKey = "forest.trees"

	// MaxFeaturesKey is the number of candidate columns per split.
	MaxFeaturesKey = "forest.max_features"

	// OOBErrorKey is the out-of-bag misclassification rate.
	OOBErrorKey = "metrics.oob_error"

	// AccuracyKey is classification accuracy in [0,1].
	AccuracyKey = "metrics.accuracy"

	// R2ScoreKey is the regression coefficient of determination.
	R2ScoreKey = "metrics.r2_score"

	// AICKey is the Akaike information criterion of a fitted regression.
	AICKey = "metrics.aic"

	// SeedKey records the random seed for reproducibility.
	SeedKey = "hyperparams.seed"
)
