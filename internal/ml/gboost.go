package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// BoosterParams configure the second-order gradient booster.
type BoosterParams struct {
	NEstimators     int
	LearningRate    float64
	MaxDepth        int
	Gamma           float64
	Lambda          float64
	MinChildWeight  float64
	Subsample       float64
	ColsampleByTree float64
	Seed            int64
}

// DefaultBoosterParams mirror the usual squared-error booster defaults.
func DefaultBoosterParams() BoosterParams {
	return BoosterParams{
		NEstimators:     100,
		LearningRate:    0.3,
		MaxDepth:        6,
		Lambda:          1,
		MinChildWeight:  1,
		Subsample:       1,
		ColsampleByTree: 1,
		Seed:            42,
	}
}

type boostNode struct {
	feature   int
	threshold float64
	left      int
	right     int
	weight    float64
}

type boostTree struct {
	nodes []boostNode
}

func (t *boostTree) predict(row []float64) float64 {
	n := t.nodes[0]
	for n.feature >= 0 {
		if row[n.feature] < n.threshold {
			n = t.nodes[n.left]
		} else {
			n = t.nodes[n.right]
		}
	}
	return n.weight
}

// GradientBooster fits additive regression trees to the gradient and hessian of the
// squared error, with split gain regularised by Lambda and Gamma.
type GradientBooster struct {
	BoosterParams

	base   float64
	trees  []boostTree
	gain   []float64
	p      int
	fitted bool
}

// NewGradientBooster returns a gradient booster; zero fields take DefaultBoosterParams values.
func NewGradientBooster(params BoosterParams) *GradientBooster {
	def := DefaultBoosterParams()
	if params.NEstimators <= 0 {
		params.NEstimators = def.NEstimators
	}
	if params.LearningRate <= 0 {
		params.LearningRate = def.LearningRate
	}
	if params.MaxDepth <= 0 {
		params.MaxDepth = def.MaxDepth
	}
	if params.MinChildWeight <= 0 {
		params.MinChildWeight = def.MinChildWeight
	}
	if params.Subsample <= 0 || params.Subsample > 1 {
		params.Subsample = def.Subsample
	}
	if params.ColsampleByTree <= 0 || params.ColsampleByTree > 1 {
		params.ColsampleByTree = def.ColsampleByTree
	}
	if params.Lambda < 0 {
		params.Lambda = def.Lambda
	}
	return &GradientBooster{BoosterParams: params}
}

func (m *GradientBooster) Fit(X [][]float64, y []float64) error {
	p, err := checkFit(X, y)
	if err != nil {
		return fmt.Errorf("gradient booster: %w", err)
	}
	n := len(X)
	m.p = p
	m.gain = make([]float64, p)
	m.trees = m.trees[:0]

	m.base = 0
	for _, v := range y {
		m.base += v
	}
	m.base /= float64(n)

	rng := rand.New(rand.NewSource(m.Seed))
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = m.base
	}
	grad := make([]float64, n)
	nRows := int(math.Max(1, math.Floor(m.Subsample*float64(n))))
	nCols := int(math.Max(1, math.Floor(m.ColsampleByTree*float64(p))))

	for r := 0; r < m.NEstimators; r++ {
		for i := range grad {
			grad[i] = pred[i] - y[i]
		}
		rows := rng.Perm(n)[:nRows]
		cols := rng.Perm(p)[:nCols]
		sort.Ints(cols)

		tree := boostTree{}
		m.grow(&tree, X, grad, rows, cols, 0)
		m.trees = append(m.trees, tree)
		for i, row := range X {
			pred[i] += tree.predict(row)
		}
	}
	m.fitted = true
	return nil
}

// grow adds the subtree of rows to t and returns its node id. The hessian of the squared
// error is 1 per row, so the hessian sum is the row count.
func (m *GradientBooster) grow(t *boostTree, X [][]float64, grad []float64, rows, cols []int, depth int) int {
	id := len(t.nodes)
	G := 0.0
	for _, i := range rows {
		G += grad[i]
	}
	H := float64(len(rows))
	t.nodes = append(t.nodes, boostNode{feature: -1, weight: -G / (H + m.Lambda) * m.LearningRate})
	if depth >= m.MaxDepth || H < 2*m.MinChildWeight {
		return id
	}

	parent := G * G / (H + m.Lambda)
	bestGain, bestFeature, bestThreshold := 0.0, -1, 0.0
	sorted := make([]int, len(rows))
	for _, f := range cols {
		copy(sorted, rows)
		sort.Slice(sorted, func(a, b int) bool { return X[sorted[a]][f] < X[sorted[b]][f] })
		gl := 0.0
		for s := 1; s < len(sorted); s++ {
			gl += grad[sorted[s-1]]
			a, b := X[sorted[s-1]][f], X[sorted[s]][f]
			if b <= a {
				continue
			}
			hl, hr := float64(s), H-float64(s)
			if hl < m.MinChildWeight || hr < m.MinChildWeight {
				continue
			}
			gr := G - gl
			gain := 0.5*(gl*gl/(hl+m.Lambda)+gr*gr/(hr+m.Lambda)-parent) - m.Gamma
			if gain > bestGain {
				bestGain, bestFeature, bestThreshold = gain, f, a/2+b/2
			}
		}
	}
	if bestFeature < 0 {
		return id
	}

	var left, right []int
	for _, i := range rows {
		if X[i][bestFeature] < bestThreshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return id
	}
	m.gain[bestFeature] += bestGain
	l := m.grow(t, X, grad, left, cols, depth+1)
	r := m.grow(t, X, grad, right, cols, depth+1)
	t.nodes[id].feature = bestFeature
	t.nodes[id].threshold = bestThreshold
	t.nodes[id].left = l
	t.nodes[id].right = r
	return id
}

func (m *GradientBooster) Predict(X [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := checkPredict(X, m.p); err != nil {
		return nil, fmt.Errorf("gradient booster: %w", err)
	}
	out := make([]float64, len(X))
	for i, row := range X {
		v := m.base
		for k := range m.trees {
			v += m.trees[k].predict(row)
		}
		out[i] = v
	}
	return out, nil
}

// FeatureImportances returns the normalised total split gain per feature.
func (m *GradientBooster) FeatureImportances() []float64 {
	out := make([]float64, len(m.gain))
	total := 0.0
	for _, g := range m.gain {
		total += g
	}
	if total > 0 {
		for j, g := range m.gain {
			out[j] = g / total
		}
	}
	return out
}
