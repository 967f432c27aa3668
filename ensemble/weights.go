package ensemble

import (
	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/goboost/pkg/errors"
)

// sampleWeights owns the per-sample weight vector for the lifetime of one
// boosting run. The boosting loop is its only writer: boosters receive the
// current values read-only and hand back a fresh buffer, never an alias.
type sampleWeights struct {
	w []float64
}

// newSampleWeights initializes the weight vector: uniform 1/n when no weights
// are supplied, otherwise a normalized copy of the supplied weights.
func newSampleWeights(n int, supplied []float64) (*sampleWeights, error) {
	w := make([]float64, n)

	if supplied == nil {
		uniform := 1 / float64(n)
		for i := range w {
			w[i] = uniform
		}
		return &sampleWeights{w: w}, nil
	}

	if len(supplied) != n {
		return nil, errors.NewDimensionError("sample_weight", n, len(supplied), 0)
	}

	sum := floats.Sum(supplied)
	if sum <= 0 {
		return nil, errors.NewValueError("sample_weight",
			"attempting to fit with a non-positive weighted number of samples")
	}

	copy(w, supplied)
	floats.Scale(1/sum, w)
	return &sampleWeights{w: w}, nil
}

// view returns the current weights. Callers must treat the slice as
// read-only.
func (s *sampleWeights) view() []float64 {
	return s.w
}

// replace adopts the updated buffer returned by a boost step.
func (s *sampleWeights) replace(w []float64) {
	s.w = w
}

// sum returns the current total weight mass.
func (s *sampleWeights) sum() float64 {
	return floats.Sum(s.w)
}

// normalize rescales the weights by the given total so they sum to 1.
func (s *sampleWeights) normalize(sum float64) {
	floats.Scale(1/sum, s.w)
}

// copyWeights returns a fresh copy of w.
func copyWeights(w []float64) []float64 {
	out := make([]float64, len(w))
	copy(out, w)
	return out
}
