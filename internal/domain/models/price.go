package models

import (
	"fmt"
	"time"
)

// PriceBar is one trading day of OHLCV data for a single ticker.
type PriceBar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close"`
	Volume   float64   `json:"volume"`
}

// PriceSeries is the date-ascending history of one ticker.
type PriceSeries struct {
	Ticker string     `json:"ticker"`
	Bars   []PriceBar `json:"bars"`
}

// Len returns the number of bars.
func (s PriceSeries) Len() int { return len(s.Bars) }

// Validate checks that dates are strictly increasing.
func (s PriceSeries) Validate() error {
	for i := 1; i < len(s.Bars); i++ {
		if !s.Bars[i].Date.After(s.Bars[i-1].Date) {
			return &InvalidSeriesError{
				Ticker: s.Ticker,
				Reason: fmt.Sprintf("bar %d (%s) is not after bar %d (%s)",
					i, s.Bars[i].Date.Format(DateLayout), i-1, s.Bars[i-1].Date.Format(DateLayout)),
			}
		}
	}
	return nil
}

// AdjCloses returns the adjusted close column.
func (s PriceSeries) AdjCloses() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.AdjClose
	}
	return out
}

// Dates returns the date column.
func (s PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Date
	}
	return out
}

// LastDate returns the date of the most recent bar, or the zero time for an empty series.
func (s PriceSeries) LastDate() time.Time {
	if len(s.Bars) == 0 {
		return time.Time{}
	}
	return s.Bars[len(s.Bars)-1].Date
}

// DateLayout is the trading-day format used in logs, cache keys and the API.
const DateLayout = "2006-01-02"
