package dataset

import (
	"fmt"
	"math"

	"FinCast/internal/domain/models"
	"FinCast/internal/services/features"
	"FinCast/internal/services/labels"
)

// Options tune the dataset builder.
type Options struct {
	FillScope   models.FillScope
	MinLookback int
}

// Builder turns price history into model-ready datasets.
type Builder struct {
	engineer *features.Engineer
	opts     Options
}

// NewBuilder returns a builder; zero options fall back to full-history fill and the 200-bar lookback.
func NewBuilder(engineer *features.Engineer, opts Options) *Builder {
	if opts.FillScope == "" {
		opts.FillScope = models.FillFull
	}
	if opts.MinLookback <= 0 {
		opts.MinLookback = features.MinLookback
	}
	if engineer == nil {
		engineer = features.NewEngineer()
	}
	return &Builder{engineer: engineer, opts: opts}
}

// Regression builds the dataset that predicts the adjusted close horizon bars ahead.
// The last horizon rows form the forecast input.
func (b *Builder) Regression(series models.PriceSeries, horizon int) (*models.Dataset, error) {
	if horizon < 0 {
		return nil, &models.ConfigError{Field: "horizon", Reason: "must be >= 0"}
	}
	n := series.Len()
	need := horizon + b.opts.MinLookback
	if n < need {
		return nil, &models.InsufficientDataError{Ticker: series.Ticker, Have: n, Need: need}
	}

	rows, err := b.engineer.Compute(series, b.opts.FillScope, horizon)
	if err != nil {
		return nil, fmt.Errorf("build regression dataset: %w", err)
	}
	label, err := labels.Regression(series, horizon)
	if err != nil {
		return nil, fmt.Errorf("build regression dataset: %w", err)
	}

	cut := n - horizon
	ds := &models.Dataset{
		Ticker:  series.Ticker,
		Mode:    models.ModeRegression,
		Horizon: horizon,
		Columns: append([]string(nil), models.FeatureColumns...),
	}
	var train [][]float64
	for t := 0; t < cut; t++ {
		vec := rows[t].Vector()
		if !label.Known(t) || !allFinite(vec) {
			continue
		}
		train = append(train, vec)
		ds.Y = append(ds.Y, label.Values[t])
		ds.TrainDates = append(ds.TrainDates, rows[t].Date)
	}
	if len(train) == 0 {
		return nil, &models.InsufficientDataError{Ticker: series.Ticker, Have: 0, Need: 1}
	}
	forecast := make([][]float64, 0, horizon)
	for t := cut; t < n; t++ {
		forecast = append(forecast, rows[t].Vector())
		ds.Holdout = append(ds.Holdout, models.HoldoutRow{Date: rows[t].Date, AdjClose: series.Bars[t].AdjClose})
	}

	scaler := FitMinMax(train)
	ds.Scaler = scaler
	ds.X = scaler.Transform(train)
	ds.ForecastX = scaler.Transform(forecast)
	return ds, nil
}

// Classification builds the buy/sell/hold dataset of ticker over the universe. Features are the
// day-over-day changes of every universe ticker; the last offsets rows form the forecast input.
func (b *Builder) Classification(u models.Universe, ticker string, offsets int, threshold float64) (*models.Dataset, error) {
	prices, ok := u.Column(ticker)
	if !ok {
		return nil, &models.MissingTickerError{Ticker: ticker}
	}
	n := len(u.Dates)
	need := offsets + b.opts.MinLookback
	if n < need {
		return nil, &models.InsufficientDataError{Ticker: ticker, Have: n, Need: need}
	}
	label, err := labels.Classification(u, ticker, offsets, threshold)
	if err != nil {
		return nil, fmt.Errorf("build classification dataset: %w", err)
	}
	changes := labels.PctChanges(u)

	cut := n - offsets
	ds := &models.Dataset{
		Ticker:  ticker,
		Mode:    models.ModeClassification,
		Horizon: offsets,
		Columns: append([]string(nil), u.Tickers...),
	}
	var train [][]float64
	for t := 0; t < cut; t++ {
		if !label.Known(t) {
			continue
		}
		train = append(train, changes[t])
		ds.Y = append(ds.Y, label.Values[t])
		ds.TrainDates = append(ds.TrainDates, u.Dates[t])
	}
	if len(train) == 0 {
		return nil, &models.InsufficientDataError{Ticker: ticker, Have: 0, Need: 1}
	}
	forecast := make([][]float64, 0, offsets)
	for t := cut; t < n; t++ {
		forecast = append(forecast, changes[t])
		ds.Holdout = append(ds.Holdout, models.HoldoutRow{Date: u.Dates[t], AdjClose: prices[t]})
	}

	scaler := FitMinMax(train)
	ds.Scaler = scaler
	ds.X = scaler.Transform(train)
	ds.ForecastX = scaler.Transform(forecast)
	return ds, nil
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
