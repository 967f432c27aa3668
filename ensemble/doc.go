// Package ensemble implements adaptive boosting (AdaBoost) meta-estimators.
//
// AdaBoostClassifier implements the discrete SAMME and real SAMME.R
// multi-class boosting algorithms; AdaBoostRegressor implements AdaBoost.R2.
// Both repeatedly fit a user-supplied weak learner on re-weighted copies of
// the training set and combine the fitted learners into a single strong
// predictor: weighted voting or probability combination for classification,
// a weighted median for regression.
//
// The weak learner is an external collaborator. It is supplied as a factory
// function producing one fresh instance per boosting iteration and only has
// to satisfy the WeakClassifier or WeakRegressor contract; probability
// estimates and per-feature importances are optional capabilities detected
// at the point of use.
//
//	stump := func() ensemble.WeakClassifier { return newDecisionStump() }
//	clf := ensemble.NewAdaBoostClassifier(
//	    ensemble.WithBaseClassifier(stump),
//	    ensemble.WithNEstimators(100),
//	)
//	if err := clf.Fit(X, y); err != nil {
//	    // handle
//	}
//	pred, err := clf.Predict(XTest)
//
// Fitting is strictly sequential: each iteration's sample weights depend on
// the previous iteration's outcome. Once fitted, an estimator is safe for
// concurrent read-only prediction calls as long as the weak learners'
// Predict methods are.
//
// References:
//
//	Y. Freund, R. Schapire, "A Decision-Theoretic Generalization of
//	on-Line Learning and an Application to Boosting", 1995.
//	J. Zhu, H. Zou, S. Rosset, T. Hastie, "Multi-class AdaBoost", 2009.
//	H. Drucker, "Improving Regressors using Boosting Techniques", 1997.
package ensemble
