package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// ForestParams configure the random forest classifier.
type ForestParams struct {
	NEstimators int
	// MaxFeatures of 0 uses floor(sqrt(p)).
	MaxFeatures     int
	MaxDepth        int
	MinSamplesSplit int
	Seed            int64
}

// RandomForestClassifier averages the class distributions of Gini trees grown on
// bootstrap resamples with a random feature subset at every node.
type RandomForestClassifier struct {
	ForestParams

	classes []float64
	trees   []*Tree
	p       int
	fitted  bool
}

// NewRandomForestClassifier returns a random forest; zero NEstimators means 100.
func NewRandomForestClassifier(params ForestParams) *RandomForestClassifier {
	if params.NEstimators <= 0 {
		params.NEstimators = 100
	}
	return &RandomForestClassifier{ForestParams: params}
}

func (m *RandomForestClassifier) Fit(X [][]float64, y []float64) error {
	p, err := checkFit(X, y)
	if err != nil {
		return fmt.Errorf("random forest: %w", err)
	}
	m.p = p
	m.classes = uniqueSorted(y)
	maxFeatures := m.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(p)))))
	}

	n := len(X)
	rng := rand.New(rand.NewSource(m.Seed))
	m.trees = make([]*Tree, m.NEstimators)
	idx := make([]int, n)
	for t := range m.trees {
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		tree := NewClassificationTree(TreeParams{
			MaxDepth:        m.MaxDepth,
			MinSamplesSplit: m.MinSamplesSplit,
			MaxFeatures:     maxFeatures,
			Seed:            rng.Int63(),
		})
		tree.classes = m.classes
		if err := tree.fitRows(X, y, idx); err != nil {
			return fmt.Errorf("random forest: tree %d: %w", t, err)
		}
		m.trees[t] = tree
	}
	m.fitted = true
	return nil
}

func (m *RandomForestClassifier) Predict(X [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := checkPredict(X, m.p); err != nil {
		return nil, fmt.Errorf("random forest: %w", err)
	}
	sum := make([][]float64, len(X))
	for i := range sum {
		sum[i] = make([]float64, len(m.classes))
	}
	for _, tree := range m.trees {
		proba, err := tree.PredictProba(X)
		if err != nil {
			return nil, fmt.Errorf("random forest: %w", err)
		}
		for i, row := range proba {
			for c, v := range row {
				sum[i][c] += v
			}
		}
	}
	out := make([]float64, len(X))
	for i, row := range sum {
		out[i] = m.classes[argmax(row)]
	}
	return out, nil
}

// FeatureImportances averages the member tree importances.
func (m *RandomForestClassifier) FeatureImportances() []float64 {
	out := make([]float64, m.p)
	if len(m.trees) == 0 {
		return out
	}
	for _, tree := range m.trees {
		for j, v := range tree.FeatureImportances() {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(m.trees))
	}
	return out
}
