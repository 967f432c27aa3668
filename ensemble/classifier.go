package ensemble

import (
	"iter"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goboost/core/model"
	"github.com/YuminosukeSato/goboost/metrics"
	"github.com/YuminosukeSato/goboost/pkg/errors"
	"github.com/YuminosukeSato/goboost/pkg/log"
)

// Boosting algorithm names for AdaBoostClassifier.
const (
	// AlgorithmSAMME is the discrete multi-class boosting algorithm: members
	// vote with hard labels, weighted by their estimator weight.
	AlgorithmSAMME = "SAMME"

	// AlgorithmSAMMER is the real boosting algorithm: members contribute
	// class-probability-derived scores. It requires the weak learner to
	// implement ProbabilityEstimator and typically converges faster.
	AlgorithmSAMMER = "SAMME.R"
)

// probaFloor displaces zero (or negative, under negative sample weights)
// probabilities so their logarithm stays finite.
const probaFloor = 1e-5

// AdaBoostClassifier is a meta-estimator that fits a sequence of weak
// classifiers on iteratively re-weighted versions of the training set and
// combines them by weighted voting (SAMME) or probability combination
// (SAMME.R).
type AdaBoostClassifier struct {
	state *model.StateManager

	// Hyperparameters
	nEstimators  int
	learningRate float64
	algorithm    string
	newEstimator func() WeakClassifier

	// Learned state
	members   ensembleMembers[WeakClassifier]
	classes_  []float64
	nClasses_ int

	logger log.Logger
}

var _ model.Classifier = (*AdaBoostClassifier)(nil)

// ClassifierOption is a functional option for AdaBoostClassifier.
type ClassifierOption func(*AdaBoostClassifier)

// NewAdaBoostClassifier creates a new AdaBoostClassifier.
//
// Defaults: 50 estimators, learning rate 1.0, algorithm SAMME.R. A weak
// learner factory must be supplied with WithBaseClassifier before fitting.
func NewAdaBoostClassifier(opts ...ClassifierOption) *AdaBoostClassifier {
	c := &AdaBoostClassifier{
		state:        model.NewStateManager(),
		nEstimators:  50,
		learningRate: 1.0,
		algorithm:    AlgorithmSAMMER,
		logger:       log.GetLoggerWithName("ensemble.adaboost"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithBaseClassifier sets the weak-learner factory. The factory is called
// once per boosting iteration and must return a fresh, unfitted learner.
func WithBaseClassifier(factory func() WeakClassifier) ClassifierOption {
	return func(c *AdaBoostClassifier) {
		c.newEstimator = factory
	}
}

// WithNEstimators sets the maximum number of boosting iterations.
func WithNEstimators(n int) ClassifierOption {
	return func(c *AdaBoostClassifier) {
		c.nEstimators = n
	}
}

// WithLearningRate sets the learning rate shrinking each member's
// contribution.
func WithLearningRate(lr float64) ClassifierOption {
	return func(c *AdaBoostClassifier) {
		c.learningRate = lr
	}
}

// WithAlgorithm selects the boosting algorithm, AlgorithmSAMME or
// AlgorithmSAMMER.
func WithAlgorithm(algorithm string) ClassifierOption {
	return func(c *AdaBoostClassifier) {
		c.algorithm = algorithm
	}
}

// Fit builds a boosted classifier from the training set. Sample weights are
// initialized to 1/n.
func (c *AdaBoostClassifier) Fit(X, y mat.Matrix) error {
	return c.FitWeighted(X, y, nil)
}

// FitWeighted builds a boosted classifier from a training set with explicit
// initial sample weights. The weights are copied and normalized to sum to 1;
// a non-positive weight sum is rejected.
//
// Refitting fully discards the previous ensemble. The visible learned state
// is only replaced once the new fit completes.
func (c *AdaBoostClassifier) FitWeighted(X, y mat.Matrix, sampleWeight []float64) error {
	if c.newEstimator == nil {
		return errors.NewValidationError("base_estimator", "a weak-learner factory is required", nil)
	}
	if c.algorithm != AlgorithmSAMME && c.algorithm != AlgorithmSAMMER {
		return errors.NewValidationError("algorithm", "must be SAMME or SAMME.R", c.algorithm)
	}
	if c.algorithm == AlgorithmSAMMER {
		if _, ok := c.newEstimator().(ProbabilityEstimator); !ok {
			return errors.NewCapabilityError("AdaBoostClassifier", "probability estimates",
				"SAMME.R requires the weak learner to implement ProbabilityEstimator; "+
					"change the base estimator or use algorithm SAMME instead.")
		}
	}

	classes, err := extractClasses(y)
	if err != nil {
		return err
	}
	if len(classes) < 2 {
		return errors.NewValueError("AdaBoostClassifier.Fit", "y must contain at least two distinct classes")
	}

	b := &classifierBooster{
		algorithm:    c.algorithm,
		nEstimators:  c.nEstimators,
		learningRate: c.learningRate,
		newEstimator: c.newEstimator,
		classes:      classes,
	}

	members, err := fitEnsemble[WeakClassifier](b, boostParams{
		algorithm:    c.algorithm,
		nEstimators:  c.nEstimators,
		learningRate: c.learningRate,
	}, X, y, sampleWeight, c.logger.With(
		log.ModelNameKey, "AdaBoostClassifier",
		log.AlgorithmKey, c.algorithm,
	))
	if err != nil {
		return err
	}

	n, d := X.Dims()
	c.members = members
	c.classes_ = classes
	c.nClasses_ = len(classes)
	c.state.Reset()
	c.state.SetDimensions(d, n)
	c.state.SetFitted()
	return nil
}

// classifierBooster holds the per-fit state of the SAMME and SAMME.R
// strategies. It lives for a single boosting run so a failed refit cannot
// corrupt the classifier's published state.
type classifierBooster struct {
	algorithm    string
	nEstimators  int
	learningRate float64
	newEstimator func() WeakClassifier
	classes      []float64
}

func (b *classifierBooster) boost(iboost int, X, y mat.Matrix, sampleWeight []float64) (boostStep[WeakClassifier], error) {
	if b.algorithm == AlgorithmSAMMER {
		return b.boostReal(iboost, X, y, sampleWeight)
	}
	return b.boostDiscrete(iboost, X, y, sampleWeight)
}

// boostDiscrete performs a single boost using the SAMME discrete algorithm.
func (b *classifierBooster) boostDiscrete(iboost int, X, y mat.Matrix, sampleWeight []float64) (boostStep[WeakClassifier], error) {
	var zero boostStep[WeakClassifier]

	est := b.newEstimator()
	if err := est.Fit(X, y, sampleWeight); err != nil {
		return zero, errors.Wrap(err, "AdaBoostClassifier: fitting weak learner")
	}
	pred, err := est.Predict(X)
	if err != nil {
		return zero, errors.Wrap(err, "AdaBoostClassifier: predicting with weak learner")
	}

	n := len(sampleWeight)
	if pr, _ := pred.Dims(); pr != n {
		return zero, errors.NewDimensionError("AdaBoostClassifier.Fit", n, pr, 0)
	}

	incorrect := make([]bool, n)
	var estimatorError float64
	for j := 0; j < n; j++ {
		if pred.At(j, 0) != y.At(j, 0) {
			incorrect[j] = true
			estimatorError += sampleWeight[j]
		}
	}
	if wSum := floats.Sum(sampleWeight); wSum > 0 {
		estimatorError /= wSum
	}

	if estimatorError <= 0 {
		return boostStep[WeakClassifier]{
			learner:         est,
			sampleWeight:    copyWeights(sampleWeight),
			estimatorWeight: 1,
			estimatorError:  0,
		}, nil
	}

	// A member no better than random guessing cannot contribute; discard it
	// and stop.
	k := float64(len(b.classes))
	if estimatorError >= 1-1/k {
		return boostStep[WeakClassifier]{stopReason: "error at or above chance level"}, nil
	}

	alpha := b.learningRate * (math.Log((1-estimatorError)/estimatorError) + math.Log(k-1))

	updated := copyWeights(sampleWeight)
	if iboost != b.nEstimators-1 {
		boost := math.Exp(alpha)
		for j := range updated {
			// Boost only positive weights unless alpha is negative, so
			// negative supplied weights keep a consistent sign.
			if incorrect[j] && (updated[j] > 0 || alpha < 0) {
				updated[j] *= boost
			}
		}
	}

	return boostStep[WeakClassifier]{
		learner:         est,
		sampleWeight:    updated,
		estimatorWeight: alpha,
		estimatorError:  estimatorError,
	}, nil
}

// boostReal performs a single boost using the SAMME.R real algorithm.
func (b *classifierBooster) boostReal(iboost int, X, y mat.Matrix, sampleWeight []float64) (boostStep[WeakClassifier], error) {
	var zero boostStep[WeakClassifier]

	est := b.newEstimator()
	if err := est.Fit(X, y, sampleWeight); err != nil {
		return zero, errors.Wrap(err, "AdaBoostClassifier: fitting weak learner")
	}
	pe, ok := est.(ProbabilityEstimator)
	if !ok {
		return zero, errors.NewCapabilityError("AdaBoostClassifier", "probability estimates",
			"SAMME.R requires the weak learner to implement ProbabilityEstimator.")
	}
	proba, err := pe.PredictProba(X)
	if err != nil {
		return zero, errors.Wrap(err, "AdaBoostClassifier: predicting probabilities with weak learner")
	}

	n := len(sampleWeight)
	nClasses := len(b.classes)
	pr, pc := proba.Dims()
	if pr != n {
		return zero, errors.NewDimensionError("AdaBoostClassifier.Fit", n, pr, 0)
	}
	if pc != nClasses {
		return zero, errors.NewDimensionError("AdaBoostClassifier.Fit", nClasses, pc, 1)
	}

	var estimatorError float64
	for j := 0; j < n; j++ {
		best := 0
		for k := 1; k < nClasses; k++ {
			if proba.At(j, k) > proba.At(j, best) {
				best = k
			}
		}
		if b.classes[best] != y.At(j, 0) {
			estimatorError += sampleWeight[j]
		}
	}
	if wSum := floats.Sum(sampleWeight); wSum > 0 {
		estimatorError /= wSum
	}

	if estimatorError <= 0 {
		return boostStep[WeakClassifier]{
			learner:         est,
			sampleWeight:    copyWeights(sampleWeight),
			estimatorWeight: 1,
			estimatorError:  0,
		}, nil
	}

	k := float64(nClasses)
	updated := copyWeights(sampleWeight)
	if iboost != b.nEstimators-1 {
		for j := range updated {
			// Per-sample boost factor: inner product of the class coding
			// (+1 for the true class, -1/(K-1) otherwise) with the clamped
			// log-probabilities.
			var inner float64
			for cls := 0; cls < nClasses; cls++ {
				p := proba.At(j, cls)
				if p <= 0 {
					p = probaFloor
				}
				code := -1 / (k - 1)
				if b.classes[cls] == y.At(j, 0) {
					code = 1
				}
				inner += code * math.Log(p)
			}
			alphaJ := -b.learningRate * ((k - 1) / k) * inner
			if updated[j] > 0 || alphaJ < 0 {
				updated[j] *= math.Exp(alphaJ)
			}
		}
	}

	// The per-sample factors drive the reweighting; the member itself always
	// carries unit weight in this variant.
	return boostStep[WeakClassifier]{
		learner:         est,
		sampleWeight:    updated,
		estimatorWeight: 1,
		estimatorError:  estimatorError,
	}, nil
}

// extractClasses returns the sorted distinct labels of y.
func extractClasses(y mat.Matrix) ([]float64, error) {
	n, cols := y.Dims()
	if n == 0 {
		return nil, errors.NewModelError("AdaBoostClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if cols != 1 {
		return nil, errors.NewValueError("AdaBoostClassifier.Fit", "y must be a column vector")
	}

	seen := make(map[float64]bool, 8)
	classes := make([]float64, 0, 8)
	for i := 0; i < n; i++ {
		label := y.At(i, 0)
		if !seen[label] {
			seen[label] = true
			classes = append(classes, label)
		}
	}
	sort.Float64s(classes)
	return classes, nil
}

// classIndex returns the position of label in the sorted class list, or -1.
func classIndex(classes []float64, label float64) int {
	i := sort.SearchFloat64s(classes, label)
	if i < len(classes) && classes[i] == label {
		return i
	}
	return -1
}

// sammeProba computes one member's per-class decision contribution from its
// probability estimates (Zhu et al., algorithm 4, step 2c).
func sammeProba(est WeakClassifier, nClasses int, X mat.Matrix) (*mat.Dense, error) {
	pe, ok := est.(ProbabilityEstimator)
	if !ok {
		return nil, errors.NewCapabilityError("AdaBoostClassifier", "probability estimates",
			"The ensemble members must implement ProbabilityEstimator.")
	}
	proba, err := pe.PredictProba(X)
	if err != nil {
		return nil, errors.Wrap(err, "AdaBoostClassifier: predicting probabilities with ensemble member")
	}

	n, k := proba.Dims()
	if k != nClasses {
		return nil, errors.NewDimensionError("AdaBoostClassifier", nClasses, k, 1)
	}

	out := mat.NewDense(n, nClasses, nil)
	logp := make([]float64, nClasses)
	for i := 0; i < n; i++ {
		var logSum float64
		for c := 0; c < nClasses; c++ {
			p := proba.At(i, c)
			if p <= 0 {
				p = probaFloor
			}
			logp[c] = math.Log(p)
			logSum += logp[c]
		}
		for c := 0; c < nClasses; c++ {
			out.Set(i, c, float64(nClasses-1)*(logp[c]-logSum/float64(nClasses)))
		}
	}
	return out, nil
}

// scoreAccumulator holds the running per-class score sum and cumulative
// estimator weight while walking the ensemble in order. It backs both the
// one-shot and the staged decision functions.
type scoreAccumulator struct {
	scores *mat.Dense
	norm   float64
}

// accumulateMember folds member idx into the accumulator.
func (c *AdaBoostClassifier) accumulateMember(acc *scoreAccumulator, idx int, X mat.Matrix) error {
	est := c.members.estimators[idx]
	weight := c.members.estimatorWeights[idx]

	n, _ := X.Dims()
	if acc.scores == nil {
		acc.scores = mat.NewDense(n, c.nClasses_, nil)
	}
	acc.norm += weight

	if c.algorithm == AlgorithmSAMMER {
		contrib, err := sammeProba(est, c.nClasses_, X)
		if err != nil {
			return err
		}
		acc.scores.Add(acc.scores, contrib)
		return nil
	}

	pred, err := est.Predict(X)
	if err != nil {
		return errors.Wrap(err, "AdaBoostClassifier: predicting with ensemble member")
	}
	for i := 0; i < n; i++ {
		if cls := classIndex(c.classes_, pred.At(i, 0)); cls >= 0 {
			acc.scores.Set(i, cls, acc.scores.At(i, cls)+weight)
		}
	}
	return nil
}

// decision produces the normalized decision scores for the members folded so
// far: an n×K matrix, collapsed to a signed n×1 column in the binary case.
func (acc *scoreAccumulator) decision(binary bool) *mat.Dense {
	n, k := acc.scores.Dims()
	if binary {
		out := mat.NewDense(n, 1, nil)
		for i := 0; i < n; i++ {
			out.Set(i, 0, (acc.scores.At(i, 1)-acc.scores.At(i, 0))/acc.norm)
		}
		return out
	}
	out := mat.NewDense(n, k, nil)
	out.Scale(1/acc.norm, acc.scores)
	return out
}

// DecisionFunction computes the pre-argmax decision scores of X: an n×K
// matrix of per-class scores, or a signed n×1 column for binary problems
// where values closer to -1 or 1 favor the first or second class.
func (c *AdaBoostClassifier) DecisionFunction(X mat.Matrix) (*mat.Dense, error) {
	if err := c.state.RequireFitted("AdaBoostClassifier", "DecisionFunction"); err != nil {
		return nil, err
	}

	acc := &scoreAccumulator{}
	for i := range c.members.estimators {
		if err := c.accumulateMember(acc, i, X); err != nil {
			return nil, err
		}
	}
	return acc.decision(c.nClasses_ == 2), nil
}

// StagedDecisionFunction returns a lazy sequence of decision scores, one per
// ensemble prefix length. The running score sum is reused between steps, and
// breaking out of the range stops all remaining work.
func (c *AdaBoostClassifier) StagedDecisionFunction(X mat.Matrix) iter.Seq2[*mat.Dense, error] {
	return func(yield func(*mat.Dense, error) bool) {
		if err := c.state.RequireFitted("AdaBoostClassifier", "StagedDecisionFunction"); err != nil {
			yield(nil, err)
			return
		}

		acc := &scoreAccumulator{}
		for i := range c.members.estimators {
			if err := c.accumulateMember(acc, i, X); err != nil {
				yield(nil, err)
				return
			}
			if !yield(acc.decision(c.nClasses_ == 2), nil) {
				return
			}
		}
	}
}

// decisionToLabels maps decision scores to class labels: the sign for binary
// problems, the argmax class otherwise.
func (c *AdaBoostClassifier) decisionToLabels(dec *mat.Dense) *mat.Dense {
	n, _ := dec.Dims()
	out := mat.NewDense(n, 1, nil)

	if c.nClasses_ == 2 {
		for i := 0; i < n; i++ {
			if dec.At(i, 0) > 0 {
				out.Set(i, 0, c.classes_[1])
			} else {
				out.Set(i, 0, c.classes_[0])
			}
		}
		return out
	}

	for i := 0; i < n; i++ {
		best := 0
		for k := 1; k < c.nClasses_; k++ {
			if dec.At(i, k) > dec.At(i, best) {
				best = k
			}
		}
		out.Set(i, 0, c.classes_[best])
	}
	return out
}

// Predict returns the predicted class for each input sample as an n×1 matrix.
func (c *AdaBoostClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	dec, err := c.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	return c.decisionToLabels(dec), nil
}

// StagedPredict returns a lazy sequence of class predictions, one per
// ensemble prefix length. The last element equals Predict's output.
func (c *AdaBoostClassifier) StagedPredict(X mat.Matrix) iter.Seq2[*mat.Dense, error] {
	return func(yield func(*mat.Dense, error) bool) {
		for dec, err := range c.StagedDecisionFunction(X) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(c.decisionToLabels(dec), nil) {
				return
			}
		}
	}
}

// probaFromScores converts accumulated SAMME.R scores into per-class
// probabilities.
func probaFromScores(scores *mat.Dense, nClasses int) *mat.Dense {
	n, k := scores.Dims()
	out := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		var sum float64
		for c := 0; c < k; c++ {
			v := math.Exp(scores.At(i, c) / float64(nClasses-1))
			out.Set(i, c, v)
			sum += v
		}
		// An all-zero row would divide by zero; leave it unnormalized.
		if sum == 0 {
			sum = 1
		}
		for c := 0; c < k; c++ {
			out.Set(i, c, out.At(i, c)/sum)
		}
	}
	return out
}

// PredictProba returns per-class probability estimates for each input sample,
// combining the members' probability contributions. The weak learner must
// implement ProbabilityEstimator.
func (c *AdaBoostClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := c.state.RequireFitted("AdaBoostClassifier", "PredictProba"); err != nil {
		return nil, err
	}

	var scores *mat.Dense
	for _, est := range c.members.estimators {
		contrib, err := sammeProba(est, c.nClasses_, X)
		if err != nil {
			return nil, err
		}
		if scores == nil {
			scores = contrib
		} else {
			scores.Add(scores, contrib)
		}
	}
	return probaFromScores(scores, c.nClasses_), nil
}

// StagedPredictProba returns a lazy sequence of probability estimates, one
// per ensemble prefix length.
func (c *AdaBoostClassifier) StagedPredictProba(X mat.Matrix) iter.Seq2[*mat.Dense, error] {
	return func(yield func(*mat.Dense, error) bool) {
		if err := c.state.RequireFitted("AdaBoostClassifier", "StagedPredictProba"); err != nil {
			yield(nil, err)
			return
		}

		var scores *mat.Dense
		for _, est := range c.members.estimators {
			contrib, err := sammeProba(est, c.nClasses_, X)
			if err != nil {
				yield(nil, err)
				return
			}
			if scores == nil {
				scores = contrib
			} else {
				scores.Add(scores, contrib)
			}
			if !yield(probaFromScores(scores, c.nClasses_), nil) {
				return
			}
		}
	}
}

// PredictLogProba returns the elementwise logarithm of PredictProba.
func (c *AdaBoostClassifier) PredictLogProba(X mat.Matrix) (mat.Matrix, error) {
	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, k := proba.Dims()
	out := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			out.Set(i, j, math.Log(proba.At(i, j)))
		}
	}
	return out, nil
}

// Score returns the mean accuracy of Predict on the given test data.
func (c *AdaBoostClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := c.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.Accuracy(columnVec(y), columnVec(pred))
}

// StagedScore returns a lazy sequence of accuracies, one per ensemble prefix
// length.
func (c *AdaBoostClassifier) StagedScore(X, y mat.Matrix) iter.Seq2[float64, error] {
	return func(yield func(float64, error) bool) {
		yTrue := columnVec(y)
		for pred, err := range c.StagedPredict(X) {
			if err != nil {
				yield(0, err)
				return
			}
			acc, err := metrics.Accuracy(yTrue, columnVec(pred))
			if !yield(acc, err) {
				return
			}
		}
	}
}

// FeatureImportances returns the estimator-weight-weighted average of the
// members' per-feature importances. The weak learner must implement
// FeatureImportancer.
func (c *AdaBoostClassifier) FeatureImportances() ([]float64, error) {
	if err := c.state.RequireFitted("AdaBoostClassifier", "FeatureImportances"); err != nil {
		return nil, err
	}
	return aggregateImportances("AdaBoostClassifier", &c.members)
}

// Classes returns the class labels seen during fitting, in column order.
func (c *AdaBoostClassifier) Classes() []float64 {
	out := make([]float64, len(c.classes_))
	copy(out, c.classes_)
	return out
}

// NClasses returns the number of distinct classes seen during fitting.
func (c *AdaBoostClassifier) NClasses() int {
	return c.nClasses_
}

// EstimatorWeights returns the weight assigned to each ensemble member.
func (c *AdaBoostClassifier) EstimatorWeights() []float64 {
	return copyWeights(c.members.estimatorWeights)
}

// EstimatorErrors returns the weighted training error of each ensemble
// member.
func (c *AdaBoostClassifier) EstimatorErrors() []float64 {
	return copyWeights(c.members.estimatorErrors)
}

// Estimators returns the fitted ensemble members in boosting order.
func (c *AdaBoostClassifier) Estimators() []WeakClassifier {
	out := make([]WeakClassifier, len(c.members.estimators))
	copy(out, c.members.estimators)
	return out
}

// GetParams returns the classifier's hyperparameters.
func (c *AdaBoostClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":  c.nEstimators,
		"learning_rate": c.learningRate,
		"algorithm":     c.algorithm,
	}
}
