package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestFieldsRendered(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf).With(String("run_id", "r1"))
	l.Info("stage done",
		String("stage", "rfe"),
		Int("k", 5),
		Float64("score", 0.5),
		Duration("duration_ms", 1500*time.Millisecond),
		Error(errors.New("boom")),
	)

	var got map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	want := map[string]interface{}{
		"run_id":      "r1",
		"stage":       "rfe",
		"k":           float64(5),
		"score":       0.5,
		"duration_ms": float64(1500),
		"error":       "boom",
		"message":     "stage done",
		"level":       "info",
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func TestNopDiscards(t *testing.T) {
	Nop().With(Bool("x", true)).Error("ignored", Any("v", []int{1}))
}
