package labels

import (
	"errors"
	"math"
	"testing"
	"time"

	"FinCast/internal/domain/models"
)

func seriesFromCloses(ticker string, closes []float64) models.PriceSeries {
	start := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = models.PriceBar{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, AdjClose: c, Volume: 1}
	}
	return models.PriceSeries{Ticker: ticker, Bars: bars}
}

func TestBuySellHold(t *testing.T) {
	tests := []struct {
		name    string
		returns []float64
		want    int
	}{
		{"up first", []float64{0.03, 0, 0, 0, 0, 0, 0}, 1},
		{"down first", []float64{-0.03, 0, 0, 0, 0, 0, 0}, -1},
		{"inside band", []float64{0.019, -0.019, 0.01, -0.01, 0, 0.02, -0.02}, 0},
		{"first crossing wins", []float64{0, -0.021, 0.5, 0, 0, 0, 0}, -1},
		{"late crossing", []float64{0, 0, 0, 0, 0, 0, 0.021}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuySellHold(tt.returns, DefaultThreshold); got != tt.want {
				t.Fatalf("BuySellHold(%v) = %d, want %d", tt.returns, got, tt.want)
			}
		})
	}
}

func TestRegressionShiftsByHorizon(t *testing.T) {
	closes := []float64{1.0001, 2.0004, 3, 4, 5, 6}
	col, err := Regression(seriesFromCloses("A", closes), 2)
	if err != nil {
		t.Fatalf("regression: %v", err)
	}
	want := []float64{3, 4, 5, 6}
	for i, w := range want {
		if col.Values[i] != w {
			t.Fatalf("label[%d] = %v, want %v", i, col.Values[i], w)
		}
	}
	if col.Known(4) || col.Known(5) {
		t.Fatalf("tail rows must be unknown: %v", col.Values)
	}
	if col.KnownCount() != 4 {
		t.Fatalf("known = %d", col.KnownCount())
	}
}

func TestRegressionIsLeakageFree(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 10 + float64(i)
	}
	base, _ := Regression(seriesFromCloses("A", closes), 5)
	// Changing bar t must only affect labels of rows strictly before t.
	for tt := 0; tt < len(closes); tt++ {
		mod := append([]float64(nil), closes...)
		mod[tt] += 100
		col, _ := Regression(seriesFromCloses("A", mod), 5)
		for r := tt; r < len(closes); r++ {
			a, b := base.Values[r], col.Values[r]
			if math.IsNaN(a) && math.IsNaN(b) {
				continue
			}
			if a != b {
				t.Fatalf("label of row %d changed when bar %d changed", r, tt)
			}
		}
	}
}

func TestRegressionInterpolatesShortGaps(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	s := seriesFromCloses("A", closes)
	s.Bars[3].AdjClose = math.NaN()
	col, _ := Regression(s, 1)
	if col.Values[2] != 4 {
		t.Fatalf("interpolated label = %v, want 4", col.Values[2])
	}
}

func TestInterpolateLimitBothDirections(t *testing.T) {
	nan := math.NaN()
	xs := []float64{0, nan, nan, nan, nan, nan, nan, nan, nan, 9}
	got := InterpolateLimit(xs, 3)
	for _, k := range []int{1, 2, 3, 6, 7, 8} {
		if got[k] != float64(k) {
			t.Fatalf("got[%d] = %v, want %d", k, got[k], k)
		}
	}
	if !math.IsNaN(got[4]) || !math.IsNaN(got[5]) {
		t.Fatalf("middle of long gap should stay missing: %v", got)
	}

	edges := InterpolateLimit([]float64{nan, 2, 3, nan}, 3)
	if edges[0] != 2 || edges[3] != 3 {
		t.Fatalf("edge fill = %v", edges)
	}
}

func TestClassificationLabels(t *testing.T) {
	closes := []float64{100, 103, 100, 97, 100, 100, 100, 100, 100, 100, 100}
	u := BuildUniverse([]models.PriceSeries{seriesFromCloses("A", closes), seriesFromCloses("B", closes)})
	col, err := Classification(u, "A", 2, DefaultThreshold)
	if err != nil {
		t.Fatalf("classification: %v", err)
	}
	if col.Values[0] != 1 {
		t.Fatalf("label[0] = %v, want 1", col.Values[0])
	}
	if col.Values[1] != -1 {
		t.Fatalf("label[1] = %v, want -1", col.Values[1])
	}
	if col.Values[4] != 0 {
		t.Fatalf("label[4] = %v, want 0", col.Values[4])
	}
	if col.Known(len(closes)-1) || col.Known(len(closes)-2) {
		t.Fatalf("rows without a full forward window must be unknown")
	}
	spread := Spread(col)
	if spread["buy"] < 1 || spread["sell"] < 1 {
		t.Fatalf("unexpected spread %v", spread)
	}
}

func TestClassificationMissingTicker(t *testing.T) {
	u := BuildUniverse([]models.PriceSeries{seriesFromCloses("A", []float64{1, 2, 3})})
	_, err := Classification(u, "ZZZ", DefaultOffsets, DefaultThreshold)
	var missing *models.MissingTickerError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingTickerError, got %v", err)
	}
}

func TestBuildUniverseUnionDates(t *testing.T) {
	a := seriesFromCloses("A", []float64{1, 2, 3})
	b := seriesFromCloses("B", []float64{5, 6})
	b.Bars[0].Date = a.Bars[0].Date.AddDate(0, 0, -1)
	b.Bars[1].Date = a.Bars[1].Date
	u := BuildUniverse([]models.PriceSeries{a, b})
	if len(u.Dates) != 4 {
		t.Fatalf("dates = %d, want 4", len(u.Dates))
	}
	if u.Prices[0][0] != 0 || u.Prices[0][1] != 5 {
		t.Fatalf("first row = %v", u.Prices[0])
	}
	ch := PctChanges(u)
	if ch[1][0] != 0 {
		t.Fatalf("change from zero price must be 0, got %v", ch[1][0])
	}
	if math.Abs(ch[2][0]-1) > 1e-12 {
		t.Fatalf("change = %v, want 1", ch[2][0])
	}
}
