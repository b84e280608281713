package ratelimit

import (
	"testing"
	"time"
)

func TestAllowPerKeyBurst(t *testing.T) {
	l := New(1, 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("burst of 2 should pass")
	}
	if l.Allow("a") {
		t.Fatalf("third request within the same instant should be limited")
	}
	if !l.Allow("b") {
		t.Fatalf("keys must not share a bucket")
	}
	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Fatalf("bucket should refill after one second")
	}
}

func TestSweepDropsIdleKeys(t *testing.T) {
	l := New(1, 1)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	l.Allow("old")
	now = now.Add(10 * time.Minute)
	l.Allow("new")

	if n := l.Sweep(5 * time.Minute); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	if l.Len() != 1 {
		t.Fatalf("len = %d, want 1", l.Len())
	}
}
