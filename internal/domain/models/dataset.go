package models

import (
	"math"
	"time"
)

// LabelMode selects the target kind.
type LabelMode string

const (
	ModeRegression     LabelMode = "regression"
	ModeClassification LabelMode = "classification"
)

// Signal values of the classification label.
const (
	SignalSell = -1
	SignalHold = 0
	SignalBuy  = 1
)

// SignalName maps a class value to its human label.
func SignalName(v float64) string {
	switch {
	case v > 0.5:
		return "buy"
	case v < -0.5:
		return "sell"
	default:
		return "hold"
	}
}

// LabelColumn is a forward-looking target aligned with a date index.
// NaN marks rows whose label is not knowable yet.
type LabelColumn struct {
	Mode    LabelMode   `json:"mode"`
	Horizon int         `json:"horizon"`
	Dates   []time.Time `json:"dates"`
	Values  []float64   `json:"values"`
}

// Known reports whether row i carries a label.
func (c LabelColumn) Known(i int) bool {
	return i >= 0 && i < len(c.Values) && !math.IsNaN(c.Values[i])
}

// KnownCount returns the number of labelled rows.
func (c LabelColumn) KnownCount() int {
	n := 0
	for i := range c.Values {
		if c.Known(i) {
			n++
		}
	}
	return n
}

// Universe is the date-aligned adjusted close matrix of several tickers.
type Universe struct {
	Tickers []string    `json:"tickers"`
	Dates   []time.Time `json:"dates"`
	// Prices[t][j] is the adjusted close of Tickers[j] on Dates[t].
	Prices [][]float64 `json:"prices"`
}

// Column returns the price column of ticker, or false when absent.
func (u Universe) Column(ticker string) ([]float64, bool) {
	j := -1
	for k, t := range u.Tickers {
		if t == ticker {
			j = k
			break
		}
	}
	if j < 0 {
		return nil, false
	}
	out := make([]float64, len(u.Prices))
	for t := range u.Prices {
		out[t] = u.Prices[t][j]
	}
	return out, true
}

// HoldoutRow identifies one forecast-input row.
type HoldoutRow struct {
	Date     time.Time `json:"date"`
	AdjClose float64   `json:"adj_close"`
}

// Scaler transforms feature matrices with parameters fixed at fit time.
type Scaler interface {
	Transform(X [][]float64) [][]float64
}

// Dataset is the model-ready split of one ticker's history.
type Dataset struct {
	Ticker     string       `json:"ticker"`
	Mode       LabelMode    `json:"mode"`
	Horizon    int          `json:"horizon"`
	Columns    []string     `json:"columns"`
	X          [][]float64  `json:"x"`
	Y          []float64    `json:"y"`
	TrainDates []time.Time  `json:"train_dates"`
	ForecastX  [][]float64  `json:"forecast_x"`
	Holdout    []HoldoutRow `json:"holdout"`
	Scaler     Scaler       `json:"-"`
}
