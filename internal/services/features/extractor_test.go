package features

import (
	"math"
	"testing"
	"time"

	"FinCast/internal/domain/models"
)

func synthSeries(n int) models.PriceSeries {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.PriceBar, n)
	for i := range bars {
		c := 100 + float64(i)*0.5 + math.Sin(float64(i)/3)
		bars[i] = models.PriceBar{
			Date:     start.AddDate(0, 0, i),
			Open:     c - 0.3*math.Cos(float64(i)),
			High:     c + 1,
			Low:      c - 1,
			Close:    c,
			AdjClose: c * 0.98,
			Volume:   1000 + float64(i%7)*100,
		}
	}
	return models.PriceSeries{Ticker: "TEST", Bars: bars}
}

func TestRollingMeanRequiresFullWindow(t *testing.T) {
	got := RollingMean([]float64{1, 2, 3, 4}, 3, 3)
	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Fatalf("expected NaN before full window, got %v", got)
	}
	if got[2] != 2 || got[3] != 3 {
		t.Fatalf("unexpected means %v", got)
	}
}

func TestRollingStdIsSample(t *testing.T) {
	got := RollingStd([]float64{1, 2, 3, 4}, 4, 2)
	if !math.IsNaN(got[0]) {
		t.Fatalf("single observation std should be NaN, got %v", got[0])
	}
	if math.Abs(got[1]-math.Sqrt(0.5)) > 1e-12 {
		t.Fatalf("std of [1 2] = %v, want %v", got[1], math.Sqrt(0.5))
	}
	want := math.Sqrt(5.0 / 3.0)
	if math.Abs(got[3]-want) > 1e-12 {
		t.Fatalf("std of [1..4] = %v, want %v", got[3], want)
	}
}

func TestEWMMeanAdjusted(t *testing.T) {
	// span 3 -> alpha 0.5; second value = (2 + 0.5*1) / (1 + 0.5)
	got := EWMMean([]float64{1, 2}, 3)
	if got[0] != 1 {
		t.Fatalf("first ewm = %v, want 1", got[0])
	}
	if math.Abs(got[1]-2.5/1.5) > 1e-12 {
		t.Fatalf("second ewm = %v, want %v", got[1], 2.5/1.5)
	}
}

func TestComputeFormulae(t *testing.T) {
	s := synthSeries(260)
	rows, err := NewEngineer().Compute(s, models.FillFull, 30)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(rows) != len(s.Bars) {
		t.Fatalf("rows = %d, want %d", len(rows), len(s.Bars))
	}
	i := 250
	b := s.Bars[i]
	r := rows[i]
	if !r.Date.Equal(b.Date) {
		t.Fatalf("date mismatch")
	}
	if math.Abs(r.HighLowPct-(b.High-b.Low)/b.Close*100) > 1e-12 {
		t.Fatalf("high_low_pct = %v", r.HighLowPct)
	}
	if math.Abs(r.PctChange-(b.Close-b.Open)/b.Open*100) > 1e-12 {
		t.Fatalf("pct_change = %v", r.PctChange)
	}
	if math.Abs(r.DailyReturn-(b.Close/b.Open-1)) > 1e-12 {
		t.Fatalf("daily_return = %v", r.DailyReturn)
	}
	if math.Abs(r.LogVolume-math.Log(b.Volume)) > 1e-12 {
		t.Fatalf("log_volume = %v", r.LogVolume)
	}
	wantLR := math.Log(b.AdjClose) - math.Log(s.Bars[i-1].AdjClose)
	if math.Abs(r.LogReturn-wantLR) > 1e-12 {
		t.Fatalf("log_return = %v, want %v", r.LogReturn, wantLR)
	}
	if r.Sign != 1 && r.Sign != -1 && r.Sign != 0 {
		t.Fatalf("sign = %v", r.Sign)
	}
	if math.Abs(r.PlusMinus20d) > 20 {
		t.Fatalf("plus_minus_20d out of range: %v", r.PlusMinus20d)
	}
	for j, v := range r.Vector() {
		if !models.IsFinite(v) {
			t.Fatalf("column %s not finite: %v", models.FeatureColumns[j], v)
		}
	}
}

func TestComputeMeanFillsWarmup(t *testing.T) {
	s := synthSeries(240)
	rows, err := NewEngineer().Compute(s, models.FillFull, 0)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// volume_vs_200d_avg is undefined for the first 199 rows and takes the mean of the rest.
	sum := 0.0
	for _, r := range rows[199:] {
		sum += r.VolumeVs200dAvg
	}
	mean := sum / float64(len(rows)-199)
	if math.Abs(rows[0].VolumeVs200dAvg-mean) > 1e-9 {
		t.Fatalf("warmup fill = %v, want %v", rows[0].VolumeVs200dAvg, mean)
	}
	// log_return of the first row is filled too.
	if !models.IsFinite(rows[0].LogReturn) {
		t.Fatalf("first log_return not filled")
	}
}

func TestFillScopeTrainIgnoresTail(t *testing.T) {
	col := []float64{math.NaN(), 1, 3, 100}
	fillMean(col, 3)
	if col[0] != 2 {
		t.Fatalf("train-scope fill = %v, want 2", col[0])
	}
	if FillRows(models.FillTrain, 10, 4) != 6 {
		t.Fatalf("train fill rows")
	}
	if FillRows(models.FillFull, 10, 4) != 10 {
		t.Fatalf("full fill rows")
	}
}

func TestComputeTreatsInfAsMissing(t *testing.T) {
	s := synthSeries(30)
	s.Bars[10].Open = 0 // pct_change and daily_return become +Inf
	rows, err := NewEngineer().Compute(s, models.FillFull, 0)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !models.IsFinite(rows[10].PctChange) || !models.IsFinite(rows[10].DailyReturn) {
		t.Fatalf("inf not replaced: %+v", rows[10])
	}
}

func TestComputeRejectsUnorderedSeries(t *testing.T) {
	s := synthSeries(5)
	s.Bars[3].Date = s.Bars[2].Date
	_, err := NewEngineer().Compute(s, models.FillFull, 0)
	if err == nil {
		t.Fatalf("expected error for duplicate dates")
	}
}
