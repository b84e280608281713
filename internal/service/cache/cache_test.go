package cache

import (
	"context"
	"testing"
	"time"

	"FinCast/internal/domain/models"
)

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if err := c.SetBytes(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if b, ok, _ := c.GetBytes(ctx, "k"); !ok || string(b) != "v" {
		t.Fatalf("expected hit, got %q %v", b, ok)
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := c.GetBytes(ctx, "k"); ok {
		t.Fatalf("expected expiry")
	}
}

func TestForecastCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	fc := NewForecastCache(NewTTLCache(), time.Hour, nil)
	last := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	key := Key("SAP", models.ModeRegression, 30, last)
	if key != "forecast:SAP:regression:30:2024-03-01" {
		t.Fatalf("key = %s", key)
	}
	if _, ok := fc.Get(ctx, key); ok {
		t.Fatalf("unexpected hit")
	}
	in := &models.ForecastResult{RunID: "r1", Ticker: "SAP", Horizon: 30, EvaluationScore: 0.8}
	if err := fc.Set(ctx, key, in); err != nil {
		t.Fatalf("set: %v", err)
	}
	out, ok := fc.Get(ctx, key)
	if !ok || out.RunID != "r1" || out.EvaluationScore != 0.8 {
		t.Fatalf("got %+v %v", out, ok)
	}
}

func TestForecastCacheCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	bc := NewTTLCache()
	_ = bc.SetBytes(ctx, "k", []byte("not json"), 0)
	if _, ok := NewForecastCache(bc, 0, nil).Get(ctx, "k"); ok {
		t.Fatalf("corrupt entry should miss")
	}
}

func TestLayeredCachePromotesFromL2(t *testing.T) {
	ctx := context.Background()
	l2 := NewTTLCache()
	c := NewLayeredCache(l2, time.Minute)

	if err := l2.SetBytes(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("seed l2: %v", err)
	}
	if b, ok, err := c.GetBytes(ctx, "k"); err != nil || !ok || string(b) != "v" {
		t.Fatalf("expected l2 hit, got %q %v %v", b, ok, err)
	}
	if _, ok, _ := c.l1.GetBytes(ctx, "k"); !ok {
		t.Fatalf("l2 hit was not promoted to l1")
	}
}

func TestLayeredCacheWriteThrough(t *testing.T) {
	ctx := context.Background()
	l2 := NewTTLCache()
	c := NewLayeredCache(l2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.l1.now = func() time.Time { return now }

	if err := c.SetBytes(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := l2.GetBytes(ctx, "k"); !ok {
		t.Fatalf("l2 missing written value")
	}
	now = now.Add(2 * time.Minute)
	if _, ok, _ := c.l1.GetBytes(ctx, "k"); ok {
		t.Fatalf("l1 entry outlived its cap")
	}
	if _, ok, _ := c.GetBytes(ctx, "k"); !ok {
		t.Fatalf("expected fallback to l2")
	}
}
