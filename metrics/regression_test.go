package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestMAE(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "Perfect prediction",
			yTrue: []float64{1, 2, 3},
			yPred: []float64{1, 2, 3},
			want:  0.0,
		},
		{
			name:  "Constant offset",
			yTrue: []float64{1, 2, 3, 4},
			yPred: []float64{2, 3, 4, 5},
			want:  1.0,
		},
		{
			name:  "Mixed signs",
			yTrue: []float64{0, 0},
			yPred: []float64{-1, 3},
			want:  2.0,
		},
		{
			name:    "Empty vectors",
			yTrue:   []float64{},
			yPred:   []float64{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var yTrue, yPred *mat.VecDense
			if len(tt.yTrue) > 0 {
				yTrue = mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			}
			if len(tt.yPred) > 0 {
				yPred = mat.NewVecDense(len(tt.yPred), tt.yPred)
			}

			got, err := MAE(yTrue, yPred)
			if (err != nil) != tt.wantErr {
				t.Errorf("MAE() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("MAE() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestR2Score(t *testing.T) {
	tests := []struct {
		name  string
		yTrue []float64
		yPred []float64
		want  float64
	}{
		{
			name:  "Perfect prediction",
			yTrue: []float64{1, 2, 3, 4},
			yPred: []float64{1, 2, 3, 4},
			want:  1.0,
		},
		{
			name:  "Mean prediction",
			yTrue: []float64{1, 2, 3},
			yPred: []float64{2, 2, 2},
			want:  0.0,
		},
		{
			name:  "Constant target",
			yTrue: []float64{5, 5, 5},
			yPred: []float64{5, 5, 5},
			want:  0.0, // undefined, falls back to 0 with a warning
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yTrue := mat.NewVecDense(len(tt.yTrue), tt.yTrue)
			yPred := mat.NewVecDense(len(tt.yPred), tt.yPred)

			got, err := R2Score(yTrue, yPred)
			if err != nil {
				t.Fatalf("R2Score() error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("R2Score() = %v, want %v", got, tt.want)
			}
		})
	}
}
