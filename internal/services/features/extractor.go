package features

import (
	"fmt"
	"math"

	"FinCast/internal/domain/models"
)

// Window sizes of the engineered columns.
const (
	VolumeShortWindow = 5
	VolumeLongWindow  = 200
	EMASpan           = 50
	ZScoreWindow      = 200
	ZScoreMinPeriods  = 20
	PlusMinusWindow   = 20

	// MinLookback is the longest trailing window; shorter histories leave columns undefined.
	MinLookback = 200
)

// Engineer derives FeatureRows from raw bars.
type Engineer struct{}

// NewEngineer returns a feature engineer.
func NewEngineer() *Engineer { return &Engineer{} }

// Compute derives one FeatureRow per bar. Missing values are replaced by the column mean
// over the rows selected by scope; FillTrain excludes the trailing horizon rows.
func (e *Engineer) Compute(series models.PriceSeries, scope models.FillScope, horizon int) ([]models.FeatureRow, error) {
	n := series.Len()
	if n == 0 {
		return nil, &models.InsufficientDataError{Ticker: series.Ticker, Have: 0, Need: 1}
	}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("compute features: %w", err)
	}
	fillRows := FillRows(scope, n, horizon)

	cols := e.columns(series)
	for _, col := range cols {
		replaceInf(col)
		fillMean(col, fillRows)
	}

	rows := make([]models.FeatureRow, n)
	vec := make([]float64, len(cols))
	for i, b := range series.Bars {
		for j := range cols {
			vec[j] = cols[j][i]
		}
		rows[i] = models.FeatureRowFromVector(b.Date, vec)
	}
	return rows, nil
}

// FillRows returns the fill bound for scope given the series length and horizon.
func FillRows(scope models.FillScope, n, horizon int) int {
	if scope == models.FillTrain && n-horizon > 0 {
		return n - horizon
	}
	return n
}

// columns computes the raw (unfilled) feature columns in models.FeatureColumns order.
func (e *Engineer) columns(series models.PriceSeries) [][]float64 {
	n := series.Len()
	adj := make([]float64, n)
	logVol := make([]float64, n)
	hlPct := make([]float64, n)
	logRet := make([]float64, n)
	pctChg := make([]float64, n)
	dailyRet := make([]float64, n)
	volume := make([]float64, n)
	closes := make([]float64, n)

	for i, b := range series.Bars {
		adj[i] = b.AdjClose
		volume[i] = b.Volume
		closes[i] = b.Close
		logVol[i] = math.Log(b.Volume)
		hlPct[i] = (b.High - b.Low) / b.Close * 100.0
		pctChg[i] = (b.Close - b.Open) / b.Open * 100.0
		dailyRet[i] = b.Close/b.Open - 1
		if i == 0 {
			logRet[i] = math.NaN()
		} else {
			logRet[i] = math.Log(b.AdjClose) - math.Log(series.Bars[i-1].AdjClose)
		}
	}

	vol5 := RollingMean(volume, VolumeShortWindow, VolumeShortWindow)
	vol5Log := make([]float64, n)
	for i, v := range vol5 {
		vol5Log[i] = math.Log(v)
	}

	vol200 := RollingMean(volume, VolumeLongWindow, VolumeLongWindow)
	volVsAvg := make([]float64, n)
	for i := range volume {
		volVsAvg[i] = volume[i]/vol200[i] - 1
	}

	ema := EWMMean(closes, EMASpan)
	closeVsEMA := make([]float64, n)
	for i := range closes {
		closeVsEMA[i] = closes[i]/ema[i] - 1
	}

	zMean := RollingMean(closes, ZScoreWindow, ZScoreMinPeriods)
	zStd := RollingStd(closes, ZScoreWindow, ZScoreMinPeriods)
	z := make([]float64, n)
	for i := range closes {
		z[i] = (closes[i] - zMean[i]) / zStd[i]
	}

	signs := make([]float64, n)
	for i, v := range pctChg {
		signs[i] = sign(v)
	}
	plusMinus := RollingSum(signs, PlusMinusWindow)

	return [][]float64{
		adj,
		logVol,
		hlPct,
		logRet,
		pctChg,
		dailyRet,
		vol5Log,
		volVsAvg,
		closeVsEMA,
		z,
		signs,
		plusMinus,
	}
}

// replaceInf turns ±Inf into NaN in place.
func replaceInf(col []float64) {
	for i, v := range col {
		if math.IsInf(v, 0) {
			col[i] = math.NaN()
		}
	}
}

// fillMean replaces NaN with the mean of the finite values in col[:rows].
// A column without finite values in scope is filled with 0.
func fillMean(col []float64, rows int) {
	sum, cnt := 0.0, 0
	for _, v := range col[:rows] {
		if models.IsFinite(v) {
			sum += v
			cnt++
		}
	}
	mean := 0.0
	if cnt > 0 {
		mean = sum / float64(cnt)
	}
	for i, v := range col {
		if math.IsNaN(v) {
			col[i] = mean
		}
	}
}
