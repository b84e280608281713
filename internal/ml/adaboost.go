package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// AdaBoostParams configure an AdaBoost.R2 ensemble with linear loss.
type AdaBoostParams struct {
	NEstimators  int
	LearningRate float64
	Base         TreeParams
	Seed         int64
}

// AdaBoostRegressor boosts regression trees fitted on weighted bootstrap resamples and
// predicts with the weighted median of its members.
type AdaBoostRegressor struct {
	AdaBoostParams

	trees   []*Tree
	weights []float64
	p       int
	fitted  bool
}

// NewAdaBoostRegressor returns an AdaBoost.R2 regressor.
func NewAdaBoostRegressor(params AdaBoostParams) *AdaBoostRegressor {
	if params.LearningRate <= 0 {
		params.LearningRate = 1
	}
	return &AdaBoostRegressor{AdaBoostParams: params}
}

func (m *AdaBoostRegressor) Fit(X [][]float64, y []float64) error {
	p, err := checkFit(X, y)
	if err != nil {
		return fmt.Errorf("adaboost: %w", err)
	}
	if m.NEstimators < 1 {
		return fmt.Errorf("adaboost: n_estimators %d < 1", m.NEstimators)
	}
	m.p = p
	m.trees = m.trees[:0]
	m.weights = m.weights[:0]

	n := len(X)
	rng := rand.New(rand.NewSource(m.Seed))
	sw := make([]float64, n)
	for i := range sw {
		sw[i] = 1 / float64(n)
	}
	cdf := make([]float64, n)
	errs := make([]float64, n)
	idx := make([]int, n)

	for b := 0; b < m.NEstimators; b++ {
		acc := 0.0
		for i, w := range sw {
			acc += w
			cdf[i] = acc
		}
		for i := range idx {
			u := rng.Float64() * acc
			k := sort.SearchFloat64s(cdf, u)
			if k >= n {
				k = n - 1
			}
			idx[i] = k
		}

		params := m.Base
		params.Seed = rng.Int63()
		tree := NewRegressionTree(params)
		if err := tree.fitRows(X, y, idx); err != nil {
			return fmt.Errorf("adaboost: estimator %d: %w", b, err)
		}
		pred, err := tree.Predict(X)
		if err != nil {
			return fmt.Errorf("adaboost: estimator %d: %w", b, err)
		}

		maxErr := 0.0
		for i := range errs {
			errs[i] = math.Abs(pred[i] - y[i])
			if sw[i] > 0 && errs[i] > maxErr {
				maxErr = errs[i]
			}
		}
		if maxErr != 0 {
			for i := range errs {
				errs[i] /= maxErr
			}
		}
		estErr := 0.0
		for i, w := range sw {
			if w > 0 {
				estErr += w * errs[i]
			}
		}

		if estErr <= 0 {
			m.trees = append(m.trees, tree)
			m.weights = append(m.weights, 1)
			break
		}
		if estErr >= 0.5 {
			// A lone weak member is kept so the ensemble can still predict.
			if len(m.trees) == 0 {
				m.trees = append(m.trees, tree)
				m.weights = append(m.weights, 1)
			}
			break
		}

		beta := estErr / (1 - estErr)
		m.trees = append(m.trees, tree)
		m.weights = append(m.weights, m.LearningRate*math.Log(1/beta))
		if b == m.NEstimators-1 {
			break
		}
		total := 0.0
		for i := range sw {
			if sw[i] > 0 {
				sw[i] *= math.Pow(beta, (1-errs[i])*m.LearningRate)
			}
			total += sw[i]
		}
		if total <= 0 {
			break
		}
		for i := range sw {
			sw[i] /= total
		}
	}
	m.fitted = true
	return nil
}

func (m *AdaBoostRegressor) Predict(X [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := checkPredict(X, m.p); err != nil {
		return nil, fmt.Errorf("adaboost: %w", err)
	}
	preds := make([][]float64, len(m.trees))
	for t, tree := range m.trees {
		p, err := tree.Predict(X)
		if err != nil {
			return nil, fmt.Errorf("adaboost: %w", err)
		}
		preds[t] = p
	}
	out := make([]float64, len(X))
	order := make([]int, len(m.trees))
	for i := range X {
		for t := range order {
			order[t] = t
		}
		sort.SliceStable(order, func(a, b int) bool { return preds[order[a]][i] < preds[order[b]][i] })
		out[i] = preds[order[weightedMedian(order, m.weights)]][i]
	}
	return out, nil
}

// weightedMedian returns the position in order where the cumulative weight first reaches half.
func weightedMedian(order []int, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	acc := 0.0
	for k, t := range order {
		acc += weights[t]
		if acc >= 0.5*total {
			return k
		}
	}
	return len(order) - 1
}

// FeatureImportances averages member importances by estimator weight.
func (m *AdaBoostRegressor) FeatureImportances() []float64 {
	out := make([]float64, m.p)
	total := 0.0
	for t, tree := range m.trees {
		w := m.weights[t]
		total += w
		for j, v := range tree.FeatureImportances() {
			out[j] += w * v
		}
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}

// Len returns the number of fitted members.
func (m *AdaBoostRegressor) Len() int { return len(m.trees) }
