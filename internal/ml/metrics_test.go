package ml

import (
	"math"
	"testing"
)

func TestR2(t *testing.T) {
	tests := []struct {
		name       string
		yTrue, got []float64
		want       float64
	}{
		{"perfect", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"mean", []float64{1, 2, 3}, []float64{2, 2, 2}, 0},
		{"constant exact", []float64{4, 4}, []float64{4, 4}, 1},
		{"constant miss", []float64{4, 4}, []float64{4, 5}, 0},
		{"negative", []float64{1, 2, 3}, []float64{3, 2, 1}, -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := R2(tt.yTrue, tt.got)
			if err != nil {
				t.Fatalf("r2: %v", err)
			}
			if math.Abs(s-tt.want) > 1e-12 {
				t.Fatalf("r2 = %v, want %v", s, tt.want)
			}
		})
	}
}

func TestAccuracy(t *testing.T) {
	s, err := Accuracy([]float64{1, 0, -1, 1}, []float64{1, 0, 1, -1})
	if err != nil || s != 0.5 {
		t.Fatalf("accuracy = %v, %v", s, err)
	}
	if _, err := Accuracy([]float64{1}, nil); err == nil {
		t.Fatalf("expected length error")
	}
}

func TestKFoldContiguous(t *testing.T) {
	folds, err := KFold(10, 3)
	if err != nil {
		t.Fatalf("kfold: %v", err)
	}
	sizes := []int{4, 3, 3}
	next := 0
	for f, fold := range folds {
		if len(fold.Test) != sizes[f] || len(fold.Train) != 10-sizes[f] {
			t.Fatalf("fold %d sizes test=%d train=%d", f, len(fold.Test), len(fold.Train))
		}
		for _, i := range fold.Test {
			if i != next {
				t.Fatalf("fold %d not contiguous: %v", f, fold.Test)
			}
			next++
		}
	}
	if _, err := KFold(3, 4); err == nil {
		t.Fatalf("expected error for more folds than rows")
	}
}

func TestTrainTestSplit(t *testing.T) {
	train, test, err := TrainTestSplit(10, 0.3, 42)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(test) != 3 || len(train) != 7 {
		t.Fatalf("sizes %d/%d", len(train), len(test))
	}
	seen := map[int]bool{}
	for _, i := range append(append([]int(nil), train...), test...) {
		if seen[i] {
			t.Fatalf("index %d repeated", i)
		}
		seen[i] = true
	}
	train2, _, _ := TrainTestSplit(10, 0.3, 42)
	for i := range train {
		if train[i] != train2[i] {
			t.Fatalf("split not deterministic for a fixed seed")
		}
	}
}
