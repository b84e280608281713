package ml

import (
	"fmt"
	"math/rand"
	"sort"
)

// Criterion is the node impurity measure of a decision tree.
type Criterion int

const (
	CriterionMSE Criterion = iota
	CriterionGini
)

// featureEpsilon is the minimum gap between two feature values for a threshold between them.
const featureEpsilon = 1e-7

// TreeParams bound the growth of a decision tree.
type TreeParams struct {
	// MaxDepth of 0 grows until leaves are pure.
	MaxDepth        int
	MinSamplesSplit int
	// MaxFeatures of 0 considers every feature at each node.
	MaxFeatures int
	Seed        int64
}

type treeNode struct {
	feature   int
	threshold float64
	left      int
	right     int
	// value is the mean target of a regression node or the class distribution of a classification node.
	value []float64
}

func (n treeNode) leaf() bool { return n.feature < 0 }

// Tree is a CART decision tree with binary axis-aligned splits.
type Tree struct {
	TreeParams
	criterion Criterion

	classes     []float64
	classIndex  map[float64]int
	nodes       []treeNode
	importances []float64
	p           int
	rng         *rand.Rand
	fitted      bool
}

// NewRegressionTree returns a squared-error regression tree.
func NewRegressionTree(params TreeParams) *Tree {
	return &Tree{TreeParams: params, criterion: CriterionMSE}
}

// NewClassificationTree returns a Gini classification tree.
func NewClassificationTree(params TreeParams) *Tree {
	return &Tree{TreeParams: params, criterion: CriterionGini}
}

func (t *Tree) Fit(X [][]float64, y []float64) error {
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	return t.fitRows(X, y, idx)
}

// fitRows grows the tree on the rows listed in idx; repeated indices act as sample weights.
func (t *Tree) fitRows(X [][]float64, y []float64, idx []int) error {
	p, err := checkFit(X, y)
	if err != nil {
		return fmt.Errorf("decision tree: %w", err)
	}
	if len(idx) == 0 {
		return fmt.Errorf("decision tree: %w", ErrEmptyInput)
	}
	t.p = p
	if t.MinSamplesSplit < 2 {
		t.MinSamplesSplit = 2
	}
	if t.MaxFeatures <= 0 || t.MaxFeatures > p {
		t.MaxFeatures = p
	}
	if t.criterion == CriterionGini {
		if t.classes == nil {
			t.classes = uniqueSorted(y)
		}
		t.classIndex = make(map[float64]int, len(t.classes))
		for i, c := range t.classes {
			t.classIndex[c] = i
		}
	}
	t.rng = rand.New(rand.NewSource(t.Seed))
	t.nodes = t.nodes[:0]
	t.importances = make([]float64, p)
	t.build(X, y, idx, 0)

	total := 0.0
	for _, v := range t.importances {
		total += v
	}
	if total > 0 {
		for j := range t.importances {
			t.importances[j] /= total
		}
	}
	t.fitted = true
	return nil
}

func (t *Tree) build(X [][]float64, y []float64, idx []int, depth int) int {
	id := len(t.nodes)
	value, imp := t.nodeStats(y, idx)
	t.nodes = append(t.nodes, treeNode{feature: -1, value: value})

	if (t.MaxDepth > 0 && depth >= t.MaxDepth) || len(idx) < t.MinSamplesSplit || imp <= 1e-12 {
		return id
	}
	s, ok := t.bestSplit(X, y, idx)
	if !ok {
		return id
	}

	left := make([]int, 0, s.nLeft)
	right := make([]int, 0, len(idx)-s.nLeft)
	for _, i := range idx {
		if X[i][s.feature] <= s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	t.importances[s.feature] += float64(len(idx))*imp - s.childImpurity

	l := t.build(X, y, left, depth+1)
	r := t.build(X, y, right, depth+1)
	t.nodes[id].feature = s.feature
	t.nodes[id].threshold = s.threshold
	t.nodes[id].left = l
	t.nodes[id].right = r
	return id
}

// nodeStats returns the node value and its impurity.
func (t *Tree) nodeStats(y []float64, idx []int) ([]float64, float64) {
	n := float64(len(idx))
	if t.criterion == CriterionMSE {
		sum := 0.0
		for _, i := range idx {
			sum += y[i]
		}
		mean := sum / n
		ss := 0.0
		for _, i := range idx {
			d := y[i] - mean
			ss += d * d
		}
		return []float64{mean}, ss / n
	}
	dist := make([]float64, len(t.classes))
	for _, i := range idx {
		dist[t.classIndex[y[i]]]++
	}
	g := 1.0
	for c := range dist {
		dist[c] /= n
		g -= dist[c] * dist[c]
	}
	return dist, g
}

type split struct {
	feature   int
	threshold float64
	nLeft     int
	// childImpurity is the sample-weighted impurity of both children.
	childImpurity float64
}

func (t *Tree) bestSplit(X [][]float64, y []float64, idx []int) (split, bool) {
	features := t.rng.Perm(t.p)[:t.MaxFeatures]
	sorted := make([]int, len(idx))
	var best split
	found := false
	for _, f := range features {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool { return X[sorted[a]][f] < X[sorted[b]][f] })
		s, ok := t.scanFeature(X, y, sorted, f)
		if ok && (!found || s.childImpurity < best.childImpurity) {
			best, found = s, true
		}
	}
	return best, found
}

// scanFeature sweeps every threshold of feature f over rows sorted by that feature.
func (t *Tree) scanFeature(X [][]float64, y []float64, sorted []int, f int) (split, bool) {
	n := len(sorted)
	best := split{feature: f}
	found := false

	if t.criterion == CriterionMSE {
		// Centering keeps the running sums well conditioned.
		mean := 0.0
		for _, i := range sorted {
			mean += y[i]
		}
		mean /= float64(n)
		totSum, totSq := 0.0, 0.0
		for _, i := range sorted {
			v := y[i] - mean
			totSum += v
			totSq += v * v
		}
		lSum, lSq := 0.0, 0.0
		for s := 1; s < n; s++ {
			v := y[sorted[s-1]] - mean
			lSum += v
			lSq += v * v
			a, b := X[sorted[s-1]][f], X[sorted[s]][f]
			if b <= a+featureEpsilon {
				continue
			}
			nl, nr := float64(s), float64(n-s)
			rSum, rSq := totSum-lSum, totSq-lSq
			child := (lSq - lSum*lSum/nl) + (rSq - rSum*rSum/nr)
			if !found || child < best.childImpurity {
				best.threshold = midpoint(a, b)
				best.nLeft = s
				best.childImpurity = child
				found = true
			}
		}
		return best, found
	}

	k := len(t.classes)
	total := make([]float64, k)
	for _, i := range sorted {
		total[t.classIndex[y[i]]]++
	}
	left := make([]float64, k)
	for s := 1; s < n; s++ {
		left[t.classIndex[y[sorted[s-1]]]]++
		a, b := X[sorted[s-1]][f], X[sorted[s]][f]
		if b <= a+featureEpsilon {
			continue
		}
		nl, nr := float64(s), float64(n-s)
		gl, gr := 1.0, 1.0
		for c := 0; c < k; c++ {
			pl := left[c] / nl
			pr := (total[c] - left[c]) / nr
			gl -= pl * pl
			gr -= pr * pr
		}
		child := nl*gl + nr*gr
		if !found || child < best.childImpurity {
			best.threshold = midpoint(a, b)
			best.nLeft = s
			best.childImpurity = child
			found = true
		}
	}
	return best, found
}

func midpoint(a, b float64) float64 {
	m := a/2 + b/2
	if m == b {
		return a
	}
	return m
}

func (t *Tree) leafFor(row []float64) treeNode {
	n := t.nodes[0]
	for !n.leaf() {
		if row[n.feature] <= n.threshold {
			n = t.nodes[n.left]
		} else {
			n = t.nodes[n.right]
		}
	}
	return n
}

func (t *Tree) Predict(X [][]float64) ([]float64, error) {
	if !t.fitted {
		return nil, ErrNotFitted
	}
	if err := checkPredict(X, t.p); err != nil {
		return nil, fmt.Errorf("decision tree: %w", err)
	}
	out := make([]float64, len(X))
	for i, row := range X {
		v := t.leafFor(row).value
		if t.criterion == CriterionMSE {
			out[i] = v[0]
			continue
		}
		out[i] = t.classes[argmax(v)]
	}
	return out, nil
}

// PredictProba returns the leaf class distribution of every row, ordered like Classes.
func (t *Tree) PredictProba(X [][]float64) ([][]float64, error) {
	if !t.fitted {
		return nil, ErrNotFitted
	}
	if t.criterion != CriterionGini {
		return nil, fmt.Errorf("decision tree: probabilities need a classification tree")
	}
	if err := checkPredict(X, t.p); err != nil {
		return nil, fmt.Errorf("decision tree: %w", err)
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = t.leafFor(row).value
	}
	return out, nil
}

// Classes returns the sorted class labels of a classification tree.
func (t *Tree) Classes() []float64 { return t.classes }

// FeatureImportances returns the normalised total impurity decrease per feature.
func (t *Tree) FeatureImportances() []float64 { return t.importances }

// Depth returns the depth of the deepest leaf.
func (t *Tree) Depth() int {
	if len(t.nodes) == 0 {
		return 0
	}
	var walk func(id, d int) int
	walk = func(id, d int) int {
		n := t.nodes[id]
		if n.leaf() {
			return d
		}
		l, r := walk(n.left, d+1), walk(n.right, d+1)
		if l > r {
			return l
		}
		return r
	}
	return walk(0, 0)
}

func uniqueSorted(y []float64) []float64 {
	seen := make(map[float64]struct{}, 4)
	out := make([]float64, 0, 4)
	for _, v := range y {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// argmax returns the first index of the largest value.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
