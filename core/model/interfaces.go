package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter is the interface for trainable estimators.
type Fitter interface {
	// Fit trains the estimator on the given data.
	Fit(X, y mat.Matrix) error
}

// Predictor is the interface for estimators that can predict.
type Predictor interface {
	// Predict returns predictions for the input samples as an n×1 matrix.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer is the interface for estimators that can score themselves: accuracy
// for classifiers, R² for regressors.
type Scorer interface {
	Score(X, y mat.Matrix) (float64, error)
}

// Regressor combines the interfaces of a regression estimator.
type Regressor interface {
	Fitter
	Predictor
	Scorer
}

// Classifier combines the interfaces of a classification estimator.
type Classifier interface {
	Fitter
	Predictor
	Scorer

	// PredictProba returns per-class probability estimates, one row per
	// sample and one column per class.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the class labels seen during fitting, in the order
	// used by PredictProba columns.
	Classes() []float64
}

// ParameterGetter is the interface for estimators that expose their
// hyperparameters.
type ParameterGetter interface {
	// GetParams returns the estimator's hyperparameters.
	GetParams() map[string]interface{}
}
