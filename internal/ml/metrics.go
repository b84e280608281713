package ml

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Scorer compares predictions against ground truth; higher is better.
type Scorer func(yTrue, yPred []float64) (float64, error)

// R2 is the coefficient of determination. A constant target scores 1 when predicted
// exactly and 0 otherwise.
func R2(yTrue, yPred []float64) (float64, error) {
	if len(yTrue) != len(yPred) {
		return 0, fmt.Errorf("r2: %d targets but %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return 0, ErrEmptyInput
	}
	mean := stat.Mean(yTrue, nil)
	var ssRes, ssTot float64
	for i, v := range yTrue {
		d := v - yPred[i]
		ssRes += d * d
		m := v - mean
		ssTot += m * m
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 1 - ssRes/ssTot, nil
}

// Accuracy is the share of exact matches.
func Accuracy(yTrue, yPred []float64) (float64, error) {
	if len(yTrue) != len(yPred) {
		return 0, fmt.Errorf("accuracy: %d targets but %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return 0, ErrEmptyInput
	}
	hits := 0
	for i, v := range yTrue {
		if v == yPred[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(yTrue)), nil
}

// Score predicts X with a fitted est and scores the result against y.
func Score(est Estimator, scorer Scorer, X [][]float64, y []float64) (float64, error) {
	pred, err := est.Predict(X)
	if err != nil {
		return 0, fmt.Errorf("score: %w", err)
	}
	return scorer(y, pred)
}
