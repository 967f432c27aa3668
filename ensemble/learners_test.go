package ensemble

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goboost/pkg/errors"
)

// stumpClassifier is a weighted one-level decision tree used as the default
// weak learner in tests. It searches every feature and midpoint threshold for
// the split minimizing the weighted misclassification mass and predicts the
// weighted majority class on each side.
type stumpClassifier struct {
	feature   int
	threshold float64
	classes   []float64
	leftDist  []float64
	rightDist []float64
	nFeatures int
}

func newStump() *stumpClassifier { return &stumpClassifier{} }

func (s *stumpClassifier) Fit(X, y mat.Matrix, sampleWeight []float64) error {
	n, d := X.Dims()
	if n == 0 {
		return errors.NewValueError("stump.Fit", "empty data")
	}
	if sampleWeight == nil {
		sampleWeight = make([]float64, n)
		for i := range sampleWeight {
			sampleWeight[i] = 1 / float64(n)
		}
	}

	classes, err := extractClasses(y)
	if err != nil {
		return err
	}
	s.classes = classes
	s.nFeatures = d

	bestErr := math.Inf(1)
	for j := 0; j < d; j++ {
		values := make([]float64, n)
		for i := 0; i < n; i++ {
			values[i] = X.At(i, j)
		}
		sort.Float64s(values)

		for i := 1; i < n; i++ {
			if values[i] == values[i-1] {
				continue
			}
			t := (values[i] + values[i-1]) / 2

			left := make([]float64, len(classes))
			right := make([]float64, len(classes))
			for k := 0; k < n; k++ {
				cls := classIndex(classes, y.At(k, 0))
				if X.At(k, j) <= t {
					left[cls] += sampleWeight[k]
				} else {
					right[cls] += sampleWeight[k]
				}
			}

			e := floats.Sum(left) - floats.Max(left) + floats.Sum(right) - floats.Max(right)
			if e < bestErr {
				bestErr = e
				s.feature = j
				s.threshold = t
				s.leftDist = left
				s.rightDist = right
			}
		}
	}

	if s.leftDist == nil {
		// All feature values identical; degenerate to a majority vote.
		dist := make([]float64, len(classes))
		for k := 0; k < n; k++ {
			dist[classIndex(classes, y.At(k, 0))] += sampleWeight[k]
		}
		s.feature = 0
		s.threshold = math.Inf(1)
		s.leftDist = dist
		s.rightDist = dist
	}
	return nil
}

func (s *stumpClassifier) side(x float64) []float64 {
	if x <= s.threshold {
		return s.leftDist
	}
	return s.rightDist
}

func (s *stumpClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	n, _ := X.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		dist := s.side(X.At(i, s.feature))
		out.Set(i, 0, s.classes[floats.MaxIdx(dist)])
	}
	return out, nil
}

func (s *stumpClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	n, _ := X.Dims()
	out := mat.NewDense(n, len(s.classes), nil)
	for i := 0; i < n; i++ {
		dist := s.side(X.At(i, s.feature))
		total := floats.Sum(dist)
		for c := range dist {
			out.Set(i, c, dist[c]/total)
		}
	}
	return out, nil
}

func (s *stumpClassifier) FeatureImportances() []float64 {
	imp := make([]float64, s.nFeatures)
	imp[s.feature] = 1
	return imp
}

// lookupClassifier memorizes the label of each feature-0 value, so it fits
// any training set perfectly as long as feature 0 identifies the sample.
type lookupClassifier struct {
	labels  map[float64]float64
	classes []float64
}

func newLookup() *lookupClassifier { return &lookupClassifier{} }

func (l *lookupClassifier) Fit(X, y mat.Matrix, sampleWeight []float64) error {
	n, _ := X.Dims()
	l.labels = make(map[float64]float64, n)
	for i := 0; i < n; i++ {
		l.labels[X.At(i, 0)] = y.At(i, 0)
	}
	classes, err := extractClasses(y)
	if err != nil {
		return err
	}
	l.classes = classes
	return nil
}

func (l *lookupClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	n, _ := X.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, l.labels[X.At(i, 0)])
	}
	return out, nil
}

func (l *lookupClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	n, _ := X.Dims()
	out := mat.NewDense(n, len(l.classes), nil)
	for i := 0; i < n; i++ {
		out.Set(i, classIndex(l.classes, l.labels[X.At(i, 0)]), 1)
	}
	return out, nil
}

// constantClassifier always predicts the same label, regardless of input and
// weights. It deliberately lacks PredictProba.
type constantClassifier struct {
	label float64
}

func (c *constantClassifier) Fit(X, y mat.Matrix, sampleWeight []float64) error { return nil }

func (c *constantClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	n, _ := X.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, c.label)
	}
	return out, nil
}

// sequenceFactory hands out pre-built learners in order, so a test can script
// the quality of each boosting iteration's learner.
func sequenceFactory(learners ...WeakClassifier) func() WeakClassifier {
	i := 0
	return func() WeakClassifier {
		l := learners[i]
		i++
		return l
	}
}

// weightRecorder wraps a weak classifier and records the sum of the sample
// weights it was fitted with.
type weightRecorder struct {
	inner WeakClassifier
	sums  *[]float64
}

func (w *weightRecorder) Fit(X, y mat.Matrix, sampleWeight []float64) error {
	*w.sums = append(*w.sums, floats.Sum(sampleWeight))
	return w.inner.Fit(X, y, sampleWeight)
}

func (w *weightRecorder) Predict(X mat.Matrix) (mat.Matrix, error) {
	return w.inner.Predict(X)
}

func (w *weightRecorder) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	return w.inner.(ProbabilityEstimator).PredictProba(X)
}

// lookupRegressor memorizes the target of each feature-0 value and falls back
// to the training mean for unseen values.
type lookupRegressor struct {
	targets map[float64]float64
	mean    float64
}

func newLookupRegressor() *lookupRegressor { return &lookupRegressor{} }

func (l *lookupRegressor) Fit(X, y mat.Matrix, sampleWeight []float64) error {
	n, _ := X.Dims()
	l.targets = make(map[float64]float64, n)
	var sum float64
	for i := 0; i < n; i++ {
		l.targets[X.At(i, 0)] = y.At(i, 0)
		sum += y.At(i, 0)
	}
	l.mean = sum / float64(n)
	return nil
}

func (l *lookupRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	n, _ := X.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		if v, ok := l.targets[X.At(i, 0)]; ok {
			out.Set(i, 0, v)
		} else {
			out.Set(i, 0, l.mean)
		}
	}
	return out, nil
}

func (l *lookupRegressor) FeatureImportances() []float64 {
	return []float64{1}
}

// constantRegressor always predicts the same value.
type constantRegressor struct {
	value float64
}

func (c *constantRegressor) Fit(X, y mat.Matrix, sampleWeight []float64) error { return nil }

func (c *constantRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	n, _ := X.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, c.value)
	}
	return out, nil
}

// ruleRegressor ignores its training data and predicts y = 2x on feature 0,
// shifted by a fixed offset for corrupted inputs. Deterministic regardless of
// which bootstrap sample it is fitted on.
type ruleRegressor struct {
	corruptions map[float64]float64
}

func (r *ruleRegressor) Fit(X, y mat.Matrix, sampleWeight []float64) error { return nil }

func (r *ruleRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	n, _ := X.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x := X.At(i, 0)
		out.Set(i, 0, 2*x+r.corruptions[x])
	}
	return out, nil
}

// regSequenceFactory hands out pre-built regressors in order.
func regSequenceFactory(learners ...WeakRegressor) func() WeakRegressor {
	i := 0
	return func() WeakRegressor {
		l := learners[i]
		i++
		return l
	}
}

// countingRegressor wraps a weak regressor and counts Predict calls.
type countingRegressor struct {
	inner    WeakRegressor
	predicts *int
}

func (c *countingRegressor) Fit(X, y mat.Matrix, sampleWeight []float64) error {
	return c.inner.Fit(X, y, sampleWeight)
}

func (c *countingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	*c.predicts++
	return c.inner.Predict(X)
}

// Shared fixtures.

// twoBlobs is a linearly separable binary dataset on one feature.
func twoBlobs() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(6, 1, []float64{0, 1, 2, 10, 11, 12})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})
	return X, y
}

// xorish is a binary dataset no single stump separates.
func xorish() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(4, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
	})
	y := mat.NewDense(4, 1, []float64{0, 1, 1, 0})
	return X, y
}

// threeClass is a separable three-class dataset on one feature.
func threeClass() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(9, 1, []float64{0, 1, 2, 10, 11, 12, 20, 21, 22})
	y := mat.NewDense(9, 1, []float64{0, 0, 0, 1, 1, 1, 2, 2, 2})
	return X, y
}

// line8 is a regression dataset following y = 2x exactly.
func line8() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(8, 1, []float64{0, 1, 2, 3, 4, 5, 6, 7})
	y := mat.NewDense(8, 1, []float64{0, 2, 4, 6, 8, 10, 12, 14})
	return X, y
}

// noisyLine is a regression dataset following y = 2x with one outlier.
func noisyLine() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(8, 1, []float64{0, 1, 2, 3, 4, 5, 6, 7})
	y := mat.NewDense(8, 1, []float64{0, 2, 4, 6.5, 8, 10, 12, 14})
	return X, y
}
