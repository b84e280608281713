package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   string
		ok   bool
	}{
		{"iso date", "2024-10-10", true},
		{"rfc3339", "2024-10-10T00:00:00Z", true},
		{"unix", strconv.FormatInt(want.Unix(), 10), true},
		{"empty", "", false},
		{"garbage", "10/10/2024", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(want) {
				t.Fatalf("got %v, want %v", got, want)
			}
		})
	}
}

func TestTruncateDay(t *testing.T) {
	in := time.Date(2024, 3, 5, 23, 59, 0, 0, time.UTC)
	if got := TruncateDay(in); !got.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected %v", got)
	}
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.5", 12.5, true},
		{" 3 ", 3, true},
		{"null", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseFloat(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("ParseFloat(%q) = %v, %v", tt.in, got, ok)
		}
	}
	if NormalizeHeader(" Adj  Close ") != "adj_close" {
		t.Fatalf("header not normalized")
	}
}
