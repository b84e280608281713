package selection

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"FinCast/internal/domain/models"
	"FinCast/internal/ml"
)

// weighted reports each column's first-row value as its importance.
type weighted struct{ imp []float64 }

func (w *weighted) Fit(X [][]float64, _ []float64) error {
	w.imp = append([]float64(nil), X[0]...)
	return nil
}

func (w *weighted) Predict(X [][]float64) ([]float64, error) { return make([]float64, len(X)), nil }

func (w *weighted) FeatureImportances() []float64 { return w.imp }

func stubReference() ml.Estimator { return &weighted{} }

func TestRFEKeepsMostImportant(t *testing.T) {
	X := [][]float64{{0.5, 0.1, 0.9, 0.1, 0.7}, {0, 0, 0, 0, 0}}
	cols := []string{"a", "b", "c", "d", "e"}
	sel, err := NewRFE(2, stubReference).Fit(X, []float64{0, 0}, cols)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if !reflect.DeepEqual(sel.Columns, []string{"c", "e"}) {
		t.Fatalf("columns = %v", sel.Columns)
	}
	// b and d tie; b (lower index) is dropped first.
	if !reflect.DeepEqual(sel.Ranking, []int{2, 4, 1, 3, 1}) {
		t.Fatalf("ranking = %v", sel.Ranking)
	}
	got := sel.Apply([][]float64{{1, 2, 3, 4, 5}})
	if !reflect.DeepEqual(got, [][]float64{{3, 5}}) {
		t.Fatalf("apply = %v", got)
	}
}

func TestRFEExactlyK(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	X := make([][]float64, 60)
	y := make([]float64, 60)
	for i := range X {
		row := make([]float64, 6)
		for j := range row {
			row[j] = rng.Float64()
		}
		X[i] = row
		y[i] = 4*row[2] + row[4]
	}
	cols := []string{"f0", "f1", "f2", "f3", "f4", "f5"}
	for k := 1; k <= 6; k++ {
		sel, err := NewRFE(k, AdaBoostReference(5, 3, 42)).Fit(X, y, cols)
		if err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}
		if len(sel.Columns) != k || len(sel.Indices) != k {
			t.Fatalf("k=%d: kept %v", k, sel.Columns)
		}
	}
	sel, _ := NewRFE(1, AdaBoostReference(5, 3, 42)).Fit(X, y, cols)
	if sel.Columns[0] != "f2" {
		t.Fatalf("strongest feature = %v, want f2", sel.Columns)
	}
}

func TestRFERejectsBadK(t *testing.T) {
	X := [][]float64{{1, 2}}
	for _, k := range []int{0, 3} {
		_, err := NewRFE(k, stubReference).Fit(X, []float64{1}, []string{"a", "b"})
		var cfgErr *models.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("k=%d: expected ConfigError, got %v", k, err)
		}
	}
}
