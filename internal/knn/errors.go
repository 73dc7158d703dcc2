package knn

import "fmt"

// NotFittedError is returned when prediction is requested before Fit.
type NotFittedError struct {
	Subject string
}

func (e *NotFittedError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("regressor for %s is not fitted", e.Subject)
	}
	return "regressor bank is not fitted"
}

// DimensionMismatchError indicates a vector whose width differs from the
// fitted feature width. It means the caller bypassed the encoder/scaler.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: fitted width %d, got %d", e.Want, e.Got)
}
