package ensemble

import (
	"iter"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goboost/core/model"
	"github.com/YuminosukeSato/goboost/core/parallel"
	"github.com/YuminosukeSato/goboost/metrics"
	"github.com/YuminosukeSato/goboost/pkg/errors"
	"github.com/YuminosukeSato/goboost/pkg/log"
)

// Loss functions for AdaBoostRegressor, applied to the normalized absolute
// prediction errors when updating the sample weights.
const (
	LossLinear      = "linear"
	LossSquare      = "square"
	LossExponential = "exponential"
)

// AdaBoostRegressor is a meta-estimator implementing AdaBoost.R2 (Drucker,
// 1997): it fits a sequence of weak regressors on bootstrap resamples drawn
// from iteratively re-weighted training data and predicts with the weighted
// median of the members' outputs.
type AdaBoostRegressor struct {
	state *model.StateManager

	// Hyperparameters
	nEstimators  int
	learningRate float64
	loss         string
	randomState  int64
	newEstimator func() WeakRegressor

	// Learned state
	members ensembleMembers[WeakRegressor]

	logger log.Logger
}

var _ model.Regressor = (*AdaBoostRegressor)(nil)

// RegressorOption is a functional option for AdaBoostRegressor.
type RegressorOption func(*AdaBoostRegressor)

// NewAdaBoostRegressor creates a new AdaBoostRegressor.
//
// Defaults: 50 estimators, learning rate 1.0, linear loss, random state 0. A
// weak learner factory must be supplied with WithBaseRegressor before
// fitting.
func NewAdaBoostRegressor(opts ...RegressorOption) *AdaBoostRegressor {
	r := &AdaBoostRegressor{
		state:        model.NewStateManager(),
		nEstimators:  50,
		learningRate: 1.0,
		loss:         LossLinear,
		logger:       log.GetLoggerWithName("ensemble.adaboost"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithBaseRegressor sets the weak-learner factory. The factory is called once
// per boosting iteration and must return a fresh, unfitted learner.
func WithBaseRegressor(factory func() WeakRegressor) RegressorOption {
	return func(r *AdaBoostRegressor) {
		r.newEstimator = factory
	}
}

// WithRegNEstimators sets the maximum number of boosting iterations.
func WithRegNEstimators(n int) RegressorOption {
	return func(r *AdaBoostRegressor) {
		r.nEstimators = n
	}
}

// WithRegLearningRate sets the learning rate shrinking each member's
// contribution.
func WithRegLearningRate(lr float64) RegressorOption {
	return func(r *AdaBoostRegressor) {
		r.learningRate = lr
	}
}

// WithLoss selects the loss function: LossLinear, LossSquare or
// LossExponential.
func WithLoss(loss string) RegressorOption {
	return func(r *AdaBoostRegressor) {
		r.loss = loss
	}
}

// WithRandomState seeds the bootstrap sampler, making Fit deterministic for a
// given seed.
func WithRandomState(seed int64) RegressorOption {
	return func(r *AdaBoostRegressor) {
		r.randomState = seed
	}
}

// Fit builds a boosted regressor from the training set. Sample weights are
// initialized to 1/n.
func (r *AdaBoostRegressor) Fit(X, y mat.Matrix) error {
	return r.FitWeighted(X, y, nil)
}

// FitWeighted builds a boosted regressor from a training set with explicit
// initial sample weights. The weights are copied and normalized to sum to 1;
// a non-positive weight sum is rejected.
//
// Refitting fully discards the previous ensemble, including the bootstrap
// sampler, which is re-seeded from the configured random state.
func (r *AdaBoostRegressor) FitWeighted(X, y mat.Matrix, sampleWeight []float64) error {
	if r.newEstimator == nil {
		return errors.NewValidationError("base_estimator", "a weak-learner factory is required", nil)
	}
	if r.loss != LossLinear && r.loss != LossSquare && r.loss != LossExponential {
		return errors.NewValidationError("loss", "must be linear, square or exponential", r.loss)
	}

	b := &regressorBooster{
		nEstimators:  r.nEstimators,
		learningRate: r.learningRate,
		loss:         r.loss,
		newEstimator: r.newEstimator,
		rng:          rand.New(rand.NewSource(r.randomState)),
	}

	members, err := fitEnsemble[WeakRegressor](b, boostParams{
		algorithm:    "AdaBoost.R2",
		nEstimators:  r.nEstimators,
		learningRate: r.learningRate,
	}, X, y, sampleWeight, r.logger.With(
		log.ModelNameKey, "AdaBoostRegressor",
		log.LossKey, r.loss,
	))
	if err != nil {
		return err
	}

	n, d := X.Dims()
	r.members = members
	r.state.Reset()
	r.state.SetDimensions(d, n)
	r.state.SetFitted()
	return nil
}

// regressorBooster holds the per-fit state of the AdaBoost.R2 strategy,
// including the bootstrap sampler. It lives for a single boosting run.
type regressorBooster struct {
	nEstimators  int
	learningRate float64
	loss         string
	newEstimator func() WeakRegressor
	rng          *rand.Rand
}

// sampleBootstrap draws n indices with replacement, each index chosen with
// probability proportional to its sample weight, by inverting the weight CDF.
func (b *regressorBooster) sampleBootstrap(sampleWeight []float64) []int {
	n := len(sampleWeight)
	cdf := make([]float64, n)
	floats.CumSum(cdf, sampleWeight)
	total := cdf[n-1]

	idx := make([]int, n)
	for i := range idx {
		u := b.rng.Float64() * total
		j := sort.Search(n, func(k int) bool { return cdf[k] > u })
		if j == n {
			j = n - 1
		}
		idx[i] = j
	}
	return idx
}

// boost performs a single boost according to AdaBoost.R2.
func (b *regressorBooster) boost(iboost int, X, y mat.Matrix, sampleWeight []float64) (boostStep[WeakRegressor], error) {
	var zero boostStep[WeakRegressor]

	n, d := X.Dims()
	idx := b.sampleBootstrap(sampleWeight)

	bootX := mat.NewDense(n, d, nil)
	bootY := mat.NewDense(n, 1, nil)
	for i, src := range idx {
		for j := 0; j < d; j++ {
			bootX.Set(i, j, X.At(src, j))
		}
		bootY.Set(i, 0, y.At(src, 0))
	}

	// The weighted resampling already accounts for the sample weights, so the
	// learner itself is fitted unweighted.
	est := b.newEstimator()
	if err := est.Fit(bootX, bootY, nil); err != nil {
		return zero, errors.Wrap(err, "AdaBoostRegressor: fitting weak learner")
	}

	// Errors are measured on the original, unresampled data.
	pred, err := est.Predict(X)
	if err != nil {
		return zero, errors.Wrap(err, "AdaBoostRegressor: predicting with weak learner")
	}
	if pr, _ := pred.Dims(); pr != n {
		return zero, errors.NewDimensionError("AdaBoostRegressor.Fit", n, pr, 0)
	}

	// Errors are normalized by the largest absolute error over every sample,
	// zero-weight ones included; the weights only enter the average loss.
	errVect := make([]float64, n)
	var errMax float64
	for j := 0; j < n; j++ {
		e := math.Abs(pred.At(j, 0) - y.At(j, 0))
		errVect[j] = e
		if e > errMax {
			errMax = e
		}
	}

	var estimatorError float64
	if errMax != 0 {
		for j := 0; j < n; j++ {
			e := errVect[j] / errMax
			switch b.loss {
			case LossSquare:
				e *= e
			case LossExponential:
				e = 1 - math.Exp(-e)
			}
			errVect[j] = e
			estimatorError += sampleWeight[j] * e
		}
	}

	if estimatorError <= 0 {
		return boostStep[WeakRegressor]{
			learner:         est,
			sampleWeight:    copyWeights(sampleWeight),
			estimatorWeight: 1,
			estimatorError:  0,
		}, nil
	}

	if estimatorError >= 0.5 {
		// Discard the member and stop, unless it would be the ensemble's only
		// member; a lone member is kept so the ensemble can still predict.
		step := boostStep[WeakRegressor]{stopReason: "average loss at or above 0.5"}
		if iboost == 0 {
			step.learner = est
			step.estimatorWeight = 0
			step.estimatorError = 1
			step.keepOnStop = true
		}
		return step, nil
	}

	beta := estimatorError / (1 - estimatorError)
	estimatorWeight := b.learningRate * math.Log(1/beta)

	updated := copyWeights(sampleWeight)
	if iboost != b.nEstimators-1 {
		for j := range updated {
			if updated[j] > 0 {
				updated[j] *= math.Pow(beta, (1-errVect[j])*b.learningRate)
			}
		}
	}

	return boostStep[WeakRegressor]{
		learner:         est,
		sampleWeight:    updated,
		estimatorWeight: estimatorWeight,
		estimatorError:  estimatorError,
	}, nil
}

// memberPredictions collects each member's predictions on X as one column per
// member.
func (r *AdaBoostRegressor) memberPredictions(X mat.Matrix) ([][]float64, error) {
	n, _ := X.Dims()
	preds := make([][]float64, r.members.len())
	for i, est := range r.members.estimators {
		pred, err := est.Predict(X)
		if err != nil {
			return nil, errors.Wrap(err, "AdaBoostRegressor: predicting with ensemble member")
		}
		if pr, _ := pred.Dims(); pr != n {
			return nil, errors.NewDimensionError("AdaBoostRegressor.Predict", n, pr, 0)
		}
		col := make([]float64, n)
		for j := 0; j < n; j++ {
			col[j] = pred.At(j, 0)
		}
		preds[i] = col
	}
	return preds, nil
}

// weightedMedian computes, for every sample, the weighted median of the first
// limit members' predictions: the members are ordered by predicted value and
// the prediction of the first member whose cumulative weight reaches half the
// total is selected.
func (r *AdaBoostRegressor) weightedMedian(preds [][]float64, limit, n int) *mat.Dense {
	out := mat.NewDense(n, 1, nil)
	weights := r.members.estimatorWeights[:limit]
	total := floats.Sum(weights)

	parallel.ParallelizeWithThreshold(n, 256, func(start, end int) {
		order := make([]int, limit)
		for i := start; i < end; i++ {
			for k := range order {
				order[k] = k
			}
			sort.SliceStable(order, func(a, b int) bool {
				return preds[order[a]][i] < preds[order[b]][i]
			})

			var cum float64
			pick := order[limit-1]
			for _, k := range order {
				cum += weights[k]
				if cum >= 0.5*total {
					pick = k
					break
				}
			}
			out.Set(i, 0, preds[pick][i])
		}
	})
	return out
}

// Predict returns the weighted median of the ensemble members' predictions as
// an n×1 matrix.
func (r *AdaBoostRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := r.state.RequireFitted("AdaBoostRegressor", "Predict"); err != nil {
		return nil, err
	}

	preds, err := r.memberPredictions(X)
	if err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	return r.weightedMedian(preds, r.members.len(), n), nil
}

// StagedPredict returns a lazy sequence of predictions, one per ensemble
// prefix length. Each member's predictions are computed once and reused
// across prefixes; breaking out of the range stops all remaining work.
func (r *AdaBoostRegressor) StagedPredict(X mat.Matrix) iter.Seq2[*mat.Dense, error] {
	return func(yield func(*mat.Dense, error) bool) {
		if err := r.state.RequireFitted("AdaBoostRegressor", "StagedPredict"); err != nil {
			yield(nil, err)
			return
		}

		n, _ := X.Dims()
		preds := make([][]float64, 0, r.members.len())
		for _, est := range r.members.estimators {
			pred, err := est.Predict(X)
			if err != nil {
				yield(nil, errors.Wrap(err, "AdaBoostRegressor: predicting with ensemble member"))
				return
			}
			if pr, _ := pred.Dims(); pr != n {
				yield(nil, errors.NewDimensionError("AdaBoostRegressor.Predict", n, pr, 0))
				return
			}
			col := make([]float64, n)
			for j := 0; j < n; j++ {
				col[j] = pred.At(j, 0)
			}
			preds = append(preds, col)

			if !yield(r.weightedMedian(preds, len(preds), n), nil) {
				return
			}
		}
	}
}

// Score returns the coefficient of determination of Predict on the given
// test data.
func (r *AdaBoostRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := r.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(columnVec(y), columnVec(pred))
}

// StagedScore returns a lazy sequence of coefficients of determination, one
// per ensemble prefix length.
func (r *AdaBoostRegressor) StagedScore(X, y mat.Matrix) iter.Seq2[float64, error] {
	return func(yield func(float64, error) bool) {
		yTrue := columnVec(y)
		for pred, err := range r.StagedPredict(X) {
			if err != nil {
				yield(0, err)
				return
			}
			r2, err := metrics.R2Score(yTrue, columnVec(pred))
			if !yield(r2, err) {
				return
			}
		}
	}
}

// FeatureImportances returns the estimator-weight-weighted average of the
// members' per-feature importances. The weak learner must implement
// FeatureImportancer.
func (r *AdaBoostRegressor) FeatureImportances() ([]float64, error) {
	if err := r.state.RequireFitted("AdaBoostRegressor", "FeatureImportances"); err != nil {
		return nil, err
	}
	return aggregateImportances("AdaBoostRegressor", &r.members)
}

// EstimatorWeights returns the weight assigned to each ensemble member.
func (r *AdaBoostRegressor) EstimatorWeights() []float64 {
	return copyWeights(r.members.estimatorWeights)
}

// EstimatorErrors returns the weighted training loss of each ensemble member.
func (r *AdaBoostRegressor) EstimatorErrors() []float64 {
	return copyWeights(r.members.estimatorErrors)
}

// Estimators returns the fitted ensemble members in boosting order.
func (r *AdaBoostRegressor) Estimators() []WeakRegressor {
	out := make([]WeakRegressor, len(r.members.estimators))
	copy(out, r.members.estimators)
	return out
}

// GetParams returns the regressor's hyperparameters.
func (r *AdaBoostRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":  r.nEstimators,
		"learning_rate": r.learningRate,
		"loss":          r.loss,
		"random_state":  r.randomState,
	}
}
