package ml

import (
	"fmt"
	"math"
	"sort"
)

// KNNWeights selects how neighbours are weighted.
type KNNWeights string

const (
	WeightsUniform  KNNWeights = "uniform"
	WeightsDistance KNNWeights = "distance"
)

type neighbour struct {
	idx  int
	dist float64
}

// knnIndex is a brute-force Euclidean neighbour search over the training rows.
type knnIndex struct {
	X [][]float64
	y []float64
	p int
}

func (ix *knnIndex) fit(X [][]float64, y []float64, k int) error {
	p, err := checkFit(X, y)
	if err != nil {
		return err
	}
	if k < 1 {
		return fmt.Errorf("n_neighbors %d < 1", k)
	}
	if k > len(X) {
		return fmt.Errorf("n_neighbors %d exceeds %d training rows", k, len(X))
	}
	ix.X = X
	ix.y = y
	ix.p = p
	return nil
}

// nearest returns the k closest training rows; equal distances keep training order.
func (ix *knnIndex) nearest(row []float64, k int) []neighbour {
	all := make([]neighbour, len(ix.X))
	for i, tr := range ix.X {
		s := 0.0
		for j, v := range tr {
			d := v - row[j]
			s += d * d
		}
		all[i] = neighbour{idx: i, dist: math.Sqrt(s)}
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].dist < all[b].dist })
	return all[:k]
}

// KNNRegressor averages the targets of the k nearest training rows.
type KNNRegressor struct {
	K       int
	Weights KNNWeights

	ix     knnIndex
	fitted bool
}

// NewKNNRegressor returns a k-nearest-neighbours regressor.
func NewKNNRegressor(k int, weights KNNWeights) *KNNRegressor {
	return &KNNRegressor{K: k, Weights: weights}
}

func (m *KNNRegressor) Fit(X [][]float64, y []float64) error {
	if err := m.ix.fit(X, y, m.K); err != nil {
		return fmt.Errorf("knn regressor: %w", err)
	}
	m.fitted = true
	return nil
}

func (m *KNNRegressor) Predict(X [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := checkPredict(X, m.ix.p); err != nil {
		return nil, fmt.Errorf("knn regressor: %w", err)
	}
	out := make([]float64, len(X))
	for i, row := range X {
		nb := m.ix.nearest(row, m.K)
		out[i] = m.combine(nb)
	}
	return out, nil
}

// combine weights by inverse distance; exact matches, when present, take all the weight.
func (m *KNNRegressor) combine(nb []neighbour) float64 {
	if m.Weights != WeightsDistance {
		s := 0.0
		for _, n := range nb {
			s += m.ix.y[n.idx]
		}
		return s / float64(len(nb))
	}
	exact, exactSum := 0, 0.0
	for _, n := range nb {
		if n.dist == 0 {
			exact++
			exactSum += m.ix.y[n.idx]
		}
	}
	if exact > 0 {
		return exactSum / float64(exact)
	}
	num, den := 0.0, 0.0
	for _, n := range nb {
		w := 1 / n.dist
		num += w * m.ix.y[n.idx]
		den += w
	}
	return num / den
}

// KNNClassifier takes the majority class of the k nearest training rows.
// Ties go to the smallest class label.
type KNNClassifier struct {
	K int

	ix     knnIndex
	fitted bool
}

// NewKNNClassifier returns a majority-vote k-nearest-neighbours classifier.
func NewKNNClassifier(k int) *KNNClassifier {
	return &KNNClassifier{K: k}
}

func (m *KNNClassifier) Fit(X [][]float64, y []float64) error {
	if err := m.ix.fit(X, y, m.K); err != nil {
		return fmt.Errorf("knn classifier: %w", err)
	}
	m.fitted = true
	return nil
}

func (m *KNNClassifier) Predict(X [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := checkPredict(X, m.ix.p); err != nil {
		return nil, fmt.Errorf("knn classifier: %w", err)
	}
	out := make([]float64, len(X))
	for i, row := range X {
		votes := make([]float64, 0, m.K)
		for _, n := range m.ix.nearest(row, m.K) {
			votes = append(votes, m.ix.y[n.idx])
		}
		out[i] = Mode(votes)
	}
	return out, nil
}

// Mode returns the most frequent value; ties go to the smallest value.
func Mode(values []float64) float64 {
	counts := make(map[float64]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	best, bestCount := math.Inf(1), -1
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best
}
