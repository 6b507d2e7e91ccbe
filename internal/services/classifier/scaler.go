package classifier

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes each column to zero mean and unit variance.
// Constant columns keep a unit scale.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler learns column statistics from the rows of X.
func FitScaler(X *mat.Dense) *Scaler {
	_, c := X.Dims()
	s := &Scaler{Mean: make([]float64, c), Scale: make([]float64, c)}
	for j := 0; j < c; j++ {
		col := mat.Col(nil, j, X)
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j], s.Scale[j] = mean, std
	}
	return s
}

// Transform scales one row. The input is not modified.
func (s *Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out
}

// TransformAll scales every row of X into a new row slice.
func (s *Scaler) TransformAll(X *mat.Dense) [][]float64 {
	r, _ := X.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = s.Transform(X.RawRowView(i))
	}
	return out
}
