package metrics

import (
	"math"

	"github.com/YuminosukeSato/goboost/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// MAE computes the mean absolute error.
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	if yTrue == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError("MAE", "empty vector")
	}

	n := yTrue.Len()
	if yPred == nil || yPred.Len() != n {
		got := 0
		if yPred != nil {
			got = yPred.Len()
		}
		return 0, errors.NewDimensionError("MAE", n, got, 0)
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}

	return sum / float64(n), nil
}

// R2Score computes the coefficient of determination R².
//
// R² = 1 - RSS/TSS. When the target has no variance the score is undefined;
// an UndefinedMetricWarning is emitted and 0 is returned.
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	if yTrue == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError("R2Score", "empty vector")
	}

	n := yTrue.Len()
	if yPred == nil || yPred.Len() != n {
		got := 0
		if yPred != nil {
			got = yPred.Len()
		}
		return 0, errors.NewDimensionError("R2Score", n, got, 0)
	}

	var yMean float64
	for i := 0; i < n; i++ {
		yMean += yTrue.AtVec(i)
	}
	yMean /= float64(n)

	var tss, rss float64
	for i := 0; i < n; i++ {
		yTrueVal := yTrue.AtVec(i)
		yPredVal := yPred.AtVec(i)

		tss += (yTrueVal - yMean) * (yTrueVal - yMean)
		rss += (yTrueVal - yPredVal) * (yTrueVal - yPredVal)
	}

	if tss == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("R2Score", "zero variance in yTrue", 0))
		return 0, nil
	}

	return 1 - rss/tss, nil
}
