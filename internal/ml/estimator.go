// Package ml holds the estimators of the forecasting ensemble.
//
// Every estimator is fitted once on a row-major matrix and is not safe for
// concurrent Fit calls; build one instance per unit of work.
package ml

import (
	"errors"
	"fmt"
)

// Estimator is the uniform fit/predict capability of every sub-model.
type Estimator interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
}

// Importancer is implemented by estimators that rank their input features.
type Importancer interface {
	FeatureImportances() []float64
}

var (
	ErrNotFitted   = errors.New("estimator is not fitted")
	ErrEmptyInput  = errors.New("empty training set")
	ErrSingleClass = errors.New("training labels contain a single class")
)

// checkFit validates the shape of a training set and returns its width.
func checkFit(X [][]float64, y []float64) (int, error) {
	if len(X) == 0 {
		return 0, ErrEmptyInput
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("fit: %d rows but %d targets", len(X), len(y))
	}
	p := len(X[0])
	for i, row := range X {
		if len(row) != p {
			return 0, fmt.Errorf("fit: row %d has %d columns, want %d", i, len(row), p)
		}
	}
	return p, nil
}

// checkPredict validates the width of a prediction matrix.
func checkPredict(X [][]float64, p int) error {
	for i, row := range X {
		if len(row) != p {
			return fmt.Errorf("predict: row %d has %d columns, want %d", i, len(row), p)
		}
	}
	return nil
}

// Rows selects the rows of X at idx without copying them.
func Rows(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, k := range idx {
		out[i] = X[k]
	}
	return out
}

// Values selects the elements of y at idx.
func Values(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, k := range idx {
		out[i] = y[k]
	}
	return out
}

// Columns projects every row of X onto cols.
func Columns(X [][]float64, cols []int) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		r := make([]float64, len(cols))
		for j, c := range cols {
			r[j] = row[c]
		}
		out[i] = r
	}
	return out
}
