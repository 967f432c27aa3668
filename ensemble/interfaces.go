package ensemble

import (
	"gonum.org/v1/gonum/mat"
)

// WeakClassifier is the contract a classification weak learner must satisfy
// to be boosted. Fit must honor per-sample weights; Predict returns hard
// labels as an n×1 matrix.
type WeakClassifier interface {
	Fit(X, y mat.Matrix, sampleWeight []float64) error
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// WeakRegressor is the contract a regression weak learner must satisfy to be
// boosted. AdaBoost.R2 fits it on bootstrap resamples, so sampleWeight may be
// nil.
type WeakRegressor interface {
	Fit(X, y mat.Matrix, sampleWeight []float64) error
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// ProbabilityEstimator is the optional capability required by the SAMME.R
// algorithm and by probability prediction. PredictProba returns one row per
// sample and one column per class, in the ensemble's class order.
type ProbabilityEstimator interface {
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// FeatureImportancer is the optional capability needed for feature-importance
// aggregation across ensemble members.
type FeatureImportancer interface {
	FeatureImportances() []float64
}
