package search

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"FinCast/internal/domain/models"
	"FinCast/internal/ml"
	"FinCast/internal/ml/ensemble"
)

func sineData(n int) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(2))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		a, b := rng.Float64(), rng.Float64()
		X[i] = []float64{a, b}
		y[i] = math.Sin(3*a) + b
	}
	return X, y
}

func knnFactory(params map[string]float64) (ml.Estimator, error) {
	return ml.NewKNNRegressor(int(params[ensemble.ParamKNNNeighbors]), ml.WeightsDistance), nil
}

type countingRecorder struct{ ok, failed int }

func (c *countingRecorder) RecordSearchUnit(result string) {
	if result == "ok" {
		c.ok++
	} else {
		c.failed++
	}
}

func TestDistributions(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for name, d := range RegressionSpace() {
		for i := 0; i < 200; i++ {
			if v := d.Sample(rng); !d.Contains(v) {
				t.Fatalf("%s (%s) sampled %v outside its support", name, d, v)
			}
		}
	}
	if (IntUniform{1, 5}).Contains(5) || !(IntUniform{1, 5}).Contains(1) {
		t.Fatalf("IntUniform bounds")
	}
	if (IntUniform{1, 5}).Contains(2.5) {
		t.Fatalf("IntUniform accepted a fraction")
	}
	if (Uniform{0.6, 0.4}).Contains(1.0) || !(Uniform{0.6, 0.4}).Contains(0.6) {
		t.Fatalf("Uniform bounds")
	}
}

func TestSearchBestMatchesCrossValidate(t *testing.T) {
	X, y := sineData(120)
	space := Space{ensemble.ParamKNNNeighbors: IntUniform{1, 5}}
	rec := &countingRecorder{}
	s := New(space, Options{Iterations: 5, Folds: 10, Concurrency: 4, Seed: 3}, nil, rec)

	res, err := s.Search(context.Background(), knnFactory, X, y)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !space.Contains(res.Best.Params) {
		t.Fatalf("best params %v outside the space", res.Best.Params)
	}
	for _, c := range res.Candidates {
		if !space.Contains(c.Params) {
			t.Fatalf("candidate params %v outside the space", c.Params)
		}
		if c.Mean > res.Best.Mean {
			t.Fatalf("candidate %d beats the best", c.Index)
		}
	}
	scores, err := CrossValidate(context.Background(), knnFactory, res.Best.Params, X, y, 10, ml.R2, 2)
	if err != nil {
		t.Fatalf("cross validate: %v", err)
	}
	if math.Abs(MeanScore(scores)-res.Best.Mean) > 1e-9 {
		t.Fatalf("recomputed %v, reported %v", MeanScore(scores), res.Best.Mean)
	}
	if rec.ok != 50 || rec.failed != 0 {
		t.Fatalf("recorder ok=%d failed=%d", rec.ok, rec.failed)
	}
	if res.Estimator == nil {
		t.Fatalf("best estimator not refitted")
	}
	if _, err := res.Estimator.Predict(X[:3]); err != nil {
		t.Fatalf("refitted estimator: %v", err)
	}
}

func TestSearchSkipsFailingUnits(t *testing.T) {
	X, y := sineData(40)
	space := Space{ensemble.ParamKNNNeighbors: IntUniform{1, 5}}
	flaky := func(params map[string]float64) (ml.Estimator, error) {
		if params[ensemble.ParamKNNNeighbors] == 1 {
			return nil, errors.New("rejected")
		}
		return knnFactory(params)
	}
	s := New(space, Options{Iterations: 8, Folds: 4, Concurrency: 1, Seed: 5}, nil, nil)
	res, err := s.Search(context.Background(), flaky, X, y)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Best.Params[ensemble.ParamKNNNeighbors] == 1 {
		t.Fatalf("failing candidate selected")
	}
	for _, c := range res.Candidates {
		if c.Params[ensemble.ParamKNNNeighbors] == 1 {
			t.Fatalf("candidate without successful folds kept")
		}
	}
}

func TestSearchExhausted(t *testing.T) {
	X, y := sineData(20)
	failing := func(map[string]float64) (ml.Estimator, error) { return nil, errors.New("boom") }
	s := New(Space{ensemble.ParamKNNNeighbors: IntUniform{1, 5}}, Options{Iterations: 2, Folds: 5}, nil, nil)
	_, err := s.Search(context.Background(), failing, X, y)
	var exhausted *models.SearchExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected SearchExhaustedError, got %v", err)
	}
	if exhausted.Failures != 10 || exhausted.Candidates != 2 || exhausted.Folds != 5 {
		t.Fatalf("unexpected error fields %+v", exhausted)
	}
}

func TestEmptySpaceEvaluatesDefaultOnce(t *testing.T) {
	s := New(Space{}, Options{Iterations: 5}, nil, nil)
	if got := len(s.Candidates()); got != 1 {
		t.Fatalf("candidates = %d, want 1", got)
	}
}

func TestCandidatesDeterministic(t *testing.T) {
	a := New(RegressionSpace(), Options{Seed: 9}, nil, nil).Candidates()
	b := New(RegressionSpace(), Options{Seed: 9}, nil, nil).Candidates()
	for i := range a {
		for k, v := range a[i] {
			if b[i][k] != v {
				t.Fatalf("candidate %d param %s differs", i, k)
			}
		}
	}
}

func TestRankSharesTies(t *testing.T) {
	cs := []Candidate{{Mean: 0.5}, {Mean: 0.9}, {Mean: 0.5}, {Mean: 0.1}}
	rank(cs)
	want := []int{2, 1, 2, 4}
	for i, c := range cs {
		if c.Rank != want[i] {
			t.Fatalf("rank[%d] = %d, want %d", i, c.Rank, want[i])
		}
	}
}

func TestConfigFactoryLeavesBaseUntouched(t *testing.T) {
	base := ensemble.DefaultRegressionConfig()
	f := ConfigFactory(base)
	if _, err := f(map[string]float64{ensemble.ParamKNNNeighbors: 4}); err != nil {
		t.Fatalf("factory: %v", err)
	}
	if base.KNN.NNeighbors != 2 {
		t.Fatalf("base config mutated")
	}
	if _, err := f(map[string]float64{"nope": 1}); err == nil {
		t.Fatalf("expected error for unknown parameter")
	}
}
