package ml

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func linearData(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		a, b := rng.Float64(), rng.Float64()
		X[i] = []float64{a, b}
		y[i] = 3*a - 2*b + 1
	}
	return X, y
}

func blobs(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	centers := map[float64][2]float64{-1: {0, 0}, 0: {5, 5}, 1: {10, 0}}
	labels := []float64{-1, 0, 1}
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		c := labels[i%3]
		ctr := centers[c]
		X[i] = []float64{ctr[0] + rng.NormFloat64()*0.5, ctr[1] + rng.NormFloat64()*0.5}
		y[i] = c
	}
	return X, y
}

func mustScore(t *testing.T, est Estimator, scorer Scorer, X [][]float64, y []float64) float64 {
	t.Helper()
	s, err := Score(est, scorer, X, y)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	return s
}

func TestPolyTermsCount(t *testing.T) {
	// C(5+3,3) - 1 monomials of degree 1..3 over 5 inputs.
	if got := len(polyTerms(5, 3)); got != 55 {
		t.Fatalf("terms = %d, want 55", got)
	}
}

func TestPolyRidgeFitsCubic(t *testing.T) {
	X := make([][]float64, 60)
	y := make([]float64, 60)
	for i := range X {
		x := float64(i)/30 - 1
		X[i] = []float64{x}
		y[i] = x*x*x - x + 0.5
	}
	m := NewPolyRidge(3, 1e-6)
	if err := m.Fit(X, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if s := mustScore(t, m, R2, X, y); s < 0.999 {
		t.Fatalf("r2 = %v", s)
	}
}

func TestKNNRegressorDistanceWeights(t *testing.T) {
	X := [][]float64{{0}, {1}, {3}}
	y := []float64{0, 10, 30}
	m := NewKNNRegressor(2, WeightsDistance)
	if err := m.Fit(X, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	got, err := m.Predict([][]float64{{1}, {0.25}})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if got[0] != 10 {
		t.Fatalf("exact match = %v, want 10", got[0])
	}
	// neighbours 0 (d=.25, w=4) and 1 (d=.75, w=4/3)
	want := (4*0 + 10*4.0/3) / (4 + 4.0/3)
	if math.Abs(got[1]-want) > 1e-12 {
		t.Fatalf("weighted = %v, want %v", got[1], want)
	}
	if err := NewKNNRegressor(4, WeightsDistance).Fit(X, y); err == nil {
		t.Fatalf("expected error when k exceeds rows")
	}
}

func TestModeTiesToSmallest(t *testing.T) {
	if got := Mode([]float64{1, -1, 1, -1, 0}); got != -1 {
		t.Fatalf("mode = %v, want -1", got)
	}
}

func TestTreeRespectsDepthAndFitsStep(t *testing.T) {
	X := make([][]float64, 40)
	y := make([]float64, 40)
	for i := range X {
		X[i] = []float64{float64(i), float64(i % 3)}
		if i >= 20 {
			y[i] = 5
		}
	}
	tree := NewRegressionTree(TreeParams{MaxDepth: 1, Seed: 1})
	if err := tree.Fit(X, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if tree.Depth() != 1 {
		t.Fatalf("depth = %d", tree.Depth())
	}
	pred, _ := tree.Predict([][]float64{{3, 0}, {30, 0}})
	if pred[0] != 0 || pred[1] != 5 {
		t.Fatalf("pred = %v", pred)
	}
	imp := tree.FeatureImportances()
	if imp[0] != 1 || imp[1] != 0 {
		t.Fatalf("importances = %v", imp)
	}
}

func TestAdaBoostBeatsMean(t *testing.T) {
	X, y := linearData(120, 3)
	m := NewAdaBoostRegressor(AdaBoostParams{NEstimators: 30, Base: TreeParams{MaxDepth: 4}, Seed: 42})
	if err := m.Fit(X, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if m.Len() < 1 || m.Len() > 30 {
		t.Fatalf("members = %d", m.Len())
	}
	if s := mustScore(t, m, R2, X, y); s < 0.8 {
		t.Fatalf("r2 = %v", s)
	}
	imp := m.FeatureImportances()
	if imp[0] <= imp[1]*0.5 {
		t.Fatalf("importances = %v", imp)
	}
}

func TestAdaBoostDeterministicBySeed(t *testing.T) {
	X, y := linearData(50, 9)
	a := NewAdaBoostRegressor(AdaBoostParams{NEstimators: 10, Base: TreeParams{MaxDepth: 3}, Seed: 7})
	b := NewAdaBoostRegressor(AdaBoostParams{NEstimators: 10, Base: TreeParams{MaxDepth: 3}, Seed: 7})
	_ = a.Fit(X, y)
	_ = b.Fit(X, y)
	pa, _ := a.Predict(X)
	pb, _ := b.Predict(X)
	for i := range pa {
		if pa[i] != pb[i] {
			t.Fatalf("same seed gave different predictions at %d", i)
		}
	}
}

func TestWeightedMedian(t *testing.T) {
	if k := weightedMedian([]int{0, 1, 2}, []float64{1, 1, 5}); k != 2 {
		t.Fatalf("median position = %d, want 2", k)
	}
	if k := weightedMedian([]int{0, 1, 2}, []float64{1, 1, 1}); k != 1 {
		t.Fatalf("median position = %d, want 1", k)
	}
}

func TestGradientBoosterFitsLinear(t *testing.T) {
	X, y := linearData(150, 5)
	params := DefaultBoosterParams()
	params.NEstimators = 60
	params.MaxDepth = 3
	params.Subsample = 0.8
	params.ColsampleByTree = 1
	m := NewGradientBooster(params)
	if err := m.Fit(X, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if s := mustScore(t, m, R2, X, y); s < 0.9 {
		t.Fatalf("r2 = %v", s)
	}
}

func TestLinearSVCSeparatesBlobs(t *testing.T) {
	X, y := blobs(90, 11)
	m := NewLinearSVC(DefaultSVCParams())
	if err := m.Fit(X, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if s := mustScore(t, m, Accuracy, X, y); s < 0.9 {
		t.Fatalf("accuracy = %v", s)
	}
	err := NewLinearSVC(DefaultSVCParams()).Fit([][]float64{{1}, {2}}, []float64{1, 1})
	if !errors.Is(err, ErrSingleClass) {
		t.Fatalf("expected ErrSingleClass, got %v", err)
	}
}

func TestClassifiersOnBlobs(t *testing.T) {
	X, y := blobs(90, 13)
	for name, est := range map[string]Estimator{
		"knn":    NewKNNClassifier(5),
		"forest": NewRandomForestClassifier(ForestParams{NEstimators: 20, Seed: 42}),
		"tree":   NewClassificationTree(TreeParams{Seed: 1}),
	} {
		if err := est.Fit(X, y); err != nil {
			t.Fatalf("%s fit: %v", name, err)
		}
		if s := mustScore(t, est, Accuracy, X, y); s < 0.95 {
			t.Fatalf("%s accuracy = %v", name, s)
		}
	}
}

func TestPredictBeforeFit(t *testing.T) {
	for name, est := range map[string]Estimator{
		"poly":    NewPolyRidge(3, 1),
		"knn":     NewKNNRegressor(2, WeightsDistance),
		"tree":    NewRegressionTree(TreeParams{}),
		"ada":     NewAdaBoostRegressor(AdaBoostParams{NEstimators: 1}),
		"booster": NewGradientBooster(BoosterParams{}),
		"svc":     NewLinearSVC(SVCParams{}),
		"forest":  NewRandomForestClassifier(ForestParams{}),
	} {
		if _, err := est.Predict([][]float64{{1}}); !errors.Is(err, ErrNotFitted) {
			t.Fatalf("%s: expected ErrNotFitted, got %v", name, err)
		}
	}
}
