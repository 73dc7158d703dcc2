package features

import (
	"errors"

	"github.com/KaramelBytes/enemcast/internal/knn"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes columns with statistics learned once from the
// training matrix. Columns with zero variance scale to 0.
type Scaler struct {
	mean []float64
	std  []float64
}

// FitScaler computes per-column mean and population standard deviation.
func FitScaler(x *mat.Dense) (*Scaler, error) {
	if x == nil {
		return nil, errors.New("scaler: nil matrix")
	}
	rows, cols := x.Dims()
	if rows == 0 {
		return nil, errors.New("scaler: empty matrix")
	}
	s := &Scaler{mean: make([]float64, cols), std: make([]float64, cols)}
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, x)
		s.mean[j], s.std[j] = stat.PopMeanStdDev(col, nil)
	}
	return s, nil
}

// Width is the number of columns the scaler was fitted on.
func (s *Scaler) Width() int { return len(s.mean) }

// Mean returns a copy of the fitted column means.
func (s *Scaler) Mean() []float64 { return append([]float64(nil), s.mean...) }

// Std returns a copy of the fitted column standard deviations.
func (s *Scaler) Std() []float64 { return append([]float64(nil), s.std...) }

// Transform returns a new standardized copy of x.
func (s *Scaler) Transform(x *mat.Dense) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if cols != len(s.mean) {
		return nil, &knn.DimensionMismatchError{Want: len(s.mean), Got: cols}
	}
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		s.scale(out.RawRowView(i), x.RawRowView(i))
	}
	return out, nil
}

// TransformVector standardizes a single encoded vector.
func (s *Scaler) TransformVector(v []float64) ([]float64, error) {
	if len(v) != len(s.mean) {
		return nil, &knn.DimensionMismatchError{Want: len(s.mean), Got: len(v)}
	}
	out := make([]float64, len(v))
	s.scale(out, v)
	return out, nil
}

func (s *Scaler) scale(dst, src []float64) {
	for j, v := range src {
		if s.std[j] == 0 {
			dst[j] = 0
			continue
		}
		dst[j] = (v - s.mean[j]) / s.std[j]
	}
}
