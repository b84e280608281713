package labels

import (
	"math"
	"time"

	"FinCast/internal/domain/models"
)

// Defaults of the classification label.
const (
	DefaultOffsets   = 7
	DefaultThreshold = 0.02
	// InterpolationLimit bounds how many consecutive missing regression labels are filled from each side.
	InterpolationLimit = 3
)

// Regression labels row t with the adjusted close H bars later, rounded to three decimals.
// Interior gaps are interpolated up to InterpolationLimit values; rows whose target lies
// past the last bar stay unknown.
func Regression(series models.PriceSeries, horizon int) (models.LabelColumn, error) {
	if horizon < 0 {
		return models.LabelColumn{}, &models.ConfigError{Field: "horizon", Reason: "must be >= 0"}
	}
	n := series.Len()
	raw := make([]float64, n)
	for t := 0; t < n; t++ {
		if t+horizon >= n {
			raw[t] = math.NaN()
			continue
		}
		v := series.Bars[t+horizon].AdjClose
		if !models.IsFinite(v) {
			raw[t] = math.NaN()
			continue
		}
		raw[t] = round3(v)
	}
	values := InterpolateLimit(raw, InterpolationLimit)
	for t := n - horizon; t < n; t++ {
		if t >= 0 {
			values[t] = math.NaN()
		}
	}
	return models.LabelColumn{
		Mode:    models.ModeRegression,
		Horizon: horizon,
		Dates:   series.Dates(),
		Values:  values,
	}, nil
}

// BuySellHold scans returns in offset order and reports the first threshold crossing:
// 1 above +threshold, -1 below -threshold, 0 when none crosses.
func BuySellHold(returns []float64, threshold float64) int {
	for _, r := range returns {
		if r > threshold {
			return models.SignalBuy
		}
		if r < -threshold {
			return models.SignalSell
		}
	}
	return models.SignalHold
}

// ForwardReturns returns (p[t+i]-p[t])/p[t] for i = 1..offsets, or nil when the window
// passes the end of prices or p[t] is missing.
func ForwardReturns(prices []float64, t, offsets int) []float64 {
	if t+offsets >= len(prices) || prices[t] == 0 || !models.IsFinite(prices[t]) {
		return nil
	}
	out := make([]float64, offsets)
	for i := 1; i <= offsets; i++ {
		out[i-1] = (prices[t+i] - prices[t]) / prices[t]
	}
	return out
}

// Classification labels every universe date of ticker with BuySellHold over the next
// offsets returns. Rows without a complete forward window or without a price stay unknown.
func Classification(u models.Universe, ticker string, offsets int, threshold float64) (models.LabelColumn, error) {
	if offsets < 1 {
		return models.LabelColumn{}, &models.ConfigError{Field: "offsets", Reason: "must be >= 1"}
	}
	if threshold <= 0 {
		return models.LabelColumn{}, &models.ConfigError{Field: "threshold", Reason: "must be > 0"}
	}
	prices, ok := u.Column(ticker)
	if !ok {
		return models.LabelColumn{}, &models.MissingTickerError{Ticker: ticker}
	}
	values := make([]float64, len(prices))
	for t := range prices {
		rets := ForwardReturns(prices, t, offsets)
		if rets == nil {
			values[t] = math.NaN()
			continue
		}
		values[t] = float64(BuySellHold(rets, threshold))
	}
	return models.LabelColumn{
		Mode:    models.ModeClassification,
		Horizon: offsets,
		Dates:   append([]time.Time(nil), u.Dates...),
		Values:  values,
	}, nil
}

// Spread counts labelled rows per signal name.
func Spread(c models.LabelColumn) map[string]int {
	out := map[string]int{}
	for i, v := range c.Values {
		if c.Known(i) {
			out[models.SignalName(v)]++
		}
	}
	return out
}
