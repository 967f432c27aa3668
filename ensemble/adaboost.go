package ensemble

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goboost/pkg/errors"
	"github.com/YuminosukeSato/goboost/pkg/log"
)

// boostStep carries the outcome of one boosting iteration. A nil sampleWeight
// is the early-termination sentinel: the loop stops and the just-fitted
// learner is discarded, unless keepOnStop is set (AdaBoost.R2 keeps a poor
// learner when it would otherwise be the ensemble's only member).
type boostStep[E any] struct {
	learner         E
	sampleWeight    []float64
	estimatorWeight float64
	estimatorError  float64
	keepOnStop      bool
	stopReason      string
}

// booster is one boosting variant: it fits a weak learner on the current
// sample weights and computes the iteration's error and weight update.
// Implementations must not mutate sampleWeight; the updated vector is
// returned in the step.
type booster[E any] interface {
	boost(iboost int, X, y mat.Matrix, sampleWeight []float64) (boostStep[E], error)
}

// ensembleMembers is the learned state of a boosted ensemble: the ordered
// sequence of fitted weak learners with their weights and errors. It is
// frozen once fitting completes.
type ensembleMembers[E any] struct {
	estimators       []E
	estimatorWeights []float64
	estimatorErrors  []float64
}

func (m *ensembleMembers[E]) add(learner E, weight, estimatorError float64) {
	m.estimators = append(m.estimators, learner)
	m.estimatorWeights = append(m.estimatorWeights, weight)
	m.estimatorErrors = append(m.estimatorErrors, estimatorError)
}

func (m *ensembleMembers[E]) len() int {
	return len(m.estimators)
}

// boostParams is the immutable configuration of one boosting run.
type boostParams struct {
	algorithm    string
	nEstimators  int
	learningRate float64
}

// fitEnsemble drives the sequential boosting loop: it validates the inputs,
// initializes the sample weights, applies the booster once per iteration and
// enforces the stop conditions. It returns the retained members; per-iteration
// anomalies terminate the loop early but are not errors as long as at least
// one member was retained.
func fitEnsemble[E any](b booster[E], p boostParams, X, y mat.Matrix, sampleWeight []float64, logger log.Logger) (ensembleMembers[E], error) {
	var members ensembleMembers[E]

	n, d := X.Dims()
	if n == 0 || d == 0 {
		return members, errors.NewModelError(p.algorithm+".Fit", "empty data", errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yRows != n {
		return members, errors.NewDimensionError(p.algorithm+".Fit", n, yRows, 0)
	}
	if yCols != 1 {
		return members, errors.NewValueError(p.algorithm+".Fit", "y must be a column vector")
	}
	if p.learningRate <= 0 {
		return members, errors.NewValidationError("learning_rate", "must be greater than zero", p.learningRate)
	}
	if p.nEstimators <= 0 {
		return members, errors.NewValidationError("n_estimators", "must be greater than zero", p.nEstimators)
	}

	weights, err := newSampleWeights(n, sampleWeight)
	if err != nil {
		return members, err
	}

	logger.Info("boosting started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, n,
		log.FeaturesKey, d,
		log.NEstimatorsKey, p.nEstimators,
		log.LearningRateKey, p.learningRate,
	)

	for iboost := 0; iboost < p.nEstimators; iboost++ {
		step, err := b.boost(iboost, X, y, weights.view())
		if err != nil {
			return ensembleMembers[E]{}, err
		}

		if step.sampleWeight == nil {
			if step.keepOnStop {
				members.add(step.learner, step.estimatorWeight, step.estimatorError)
			}
			logger.Warn("boosting terminated early",
				log.IterationKey, iboost,
				"reason", step.stopReason,
			)
			errors.Warn(errors.NewBoostTerminationWarning(
				p.algorithm, iboost, step.stopReason, members.len(), p.nEstimators))
			break
		}

		members.add(step.learner, step.estimatorWeight, step.estimatorError)
		logger.Debug("boost step",
			log.IterationKey, iboost,
			log.EstimatorWeightKey, step.estimatorWeight,
			log.EstimatorErrorKey, step.estimatorError,
		)

		// A zero-error member makes the fit perfect; further iterations
		// cannot improve it and renormalization would degenerate.
		if step.estimatorError == 0 {
			logger.Info("perfect fit reached", log.IterationKey, iboost)
			break
		}

		weights.replace(step.sampleWeight)
		sum := weights.sum()
		if sum <= 0 {
			logger.Warn("sample weight sum became non-positive",
				log.IterationKey, iboost,
			)
			break
		}
		// The final iteration's weights are never read again, so skip the
		// renormalization there.
		if iboost < p.nEstimators-1 {
			weights.normalize(sum)
		}
	}

	if members.len() == 0 {
		return members, errors.NewModelError(p.algorithm+".Fit",
			"boosting terminated without retaining any estimator", errors.ErrNoEstimators)
	}

	logger.Info("boosting finished",
		log.OperationKey, log.OperationFit,
		log.NEstimatorsKey, members.len(),
	)
	return members, nil
}

// aggregateImportances computes the estimator-weight-weighted average of the
// members' per-feature importances, normalized by the total estimator weight.
func aggregateImportances[E any](modelName string, m *ensembleMembers[E]) ([]float64, error) {
	var total []float64
	for i, est := range m.estimators {
		fi, ok := any(est).(FeatureImportancer)
		if !ok {
			return nil, errors.NewCapabilityError(modelName, "feature importances",
				"The base estimator must implement FeatureImportancer.")
		}
		imp := fi.FeatureImportances()
		if total == nil {
			total = make([]float64, len(imp))
		}
		if len(imp) != len(total) {
			return nil, errors.NewDimensionError(modelName+".FeatureImportances", len(total), len(imp), 1)
		}
		floats.AddScaled(total, m.estimatorWeights[i], imp)
	}

	norm := floats.Sum(m.estimatorWeights)
	if norm > 0 {
		floats.Scale(1/norm, total)
	}
	return total, nil
}

// columnVec copies the single column of y into a dense vector.
func columnVec(y mat.Matrix) *mat.VecDense {
	n, _ := y.Dims()
	v := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v.SetVec(i, y.At(i, 0))
	}
	return v
}
