// Package goboost provides adaptive boosting (AdaBoost) ensemble learning
// for Go, with a scikit-learn-like API built on gonum matrices.
//
// The library wraps user-supplied weak learners into strong ensemble
// estimators: AdaBoostClassifier (the discrete SAMME and real SAMME.R
// multi-class algorithms) and AdaBoostRegressor (AdaBoost.R2 with linear,
// square and exponential losses).
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "gonum.org/v1/gonum/mat"
//
//	    "github.com/YuminosukeSato/goboost/ensemble"
//	)
//
//	func main() {
//	    X := mat.NewDense(6, 1, []float64{0, 1, 2, 10, 11, 12})
//	    y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})
//
//	    clf := ensemble.NewAdaBoostClassifier(
//	        ensemble.WithBaseClassifier(newMyStump),
//	        ensemble.WithNEstimators(50),
//	    )
//	    if err := clf.Fit(X, y); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    pred, err := clf.Predict(X)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(mat.Formatted(pred))
//	}
//
// # Packages
//
//   - ensemble: the AdaBoost meta-estimators and weak-learner contracts
//   - metrics: accuracy, MAE and R² evaluation metrics
//   - core/model: fitted-state tracking and common estimator interfaces
//   - core/parallel: chunked parallel execution helpers
//   - pkg/errors: structured errors and the library-wide warning hook
//   - pkg/log: structured logging with standard ML attribute keys
//
// All estimators report failure through explicit error returns with stack
// traces attached, and emit structured training logs through log/slog.
package goboost
