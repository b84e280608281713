package models

import (
	"math"
	"time"
)

// Engineered feature column names.
const (
	ColAdjClose        = "adj_close"
	ColLogVolume       = "log_volume"
	ColHighLowPct      = "high_low_pct"
	ColLogReturn       = "log_return"
	ColPctChange       = "pct_change"
	ColDailyReturn     = "daily_return"
	ColVolume5dMeanLog = "volume_5d_mean_log"
	ColVolumeVs200dAvg = "volume_vs_200d_avg"
	ColCloseVs50dEMA   = "close_vs_50d_ema"
	ColZScore          = "z_score"
	ColSign            = "sign"
	ColPlusMinus20d    = "plus_minus_20d"
)

// FeatureColumns is the fixed column order of FeatureRow.Vector.
var FeatureColumns = []string{
	ColAdjClose,
	ColLogVolume,
	ColHighLowPct,
	ColLogReturn,
	ColPctChange,
	ColDailyReturn,
	ColVolume5dMeanLog,
	ColVolumeVs200dAvg,
	ColCloseVs50dEMA,
	ColZScore,
	ColSign,
	ColPlusMinus20d,
}

// FeatureRow holds the engineered features of one bar.
type FeatureRow struct {
	Date            time.Time `json:"date"`
	AdjClose        float64   `json:"adj_close"`
	LogVolume       float64   `json:"log_volume"`
	HighLowPct      float64   `json:"high_low_pct"`
	LogReturn       float64   `json:"log_return"`
	PctChange       float64   `json:"pct_change"`
	DailyReturn     float64   `json:"daily_return"`
	Volume5dMeanLog float64   `json:"volume_5d_mean_log"`
	VolumeVs200dAvg float64   `json:"volume_vs_200d_avg"`
	CloseVs50dEMA   float64   `json:"close_vs_50d_ema"`
	ZScore          float64   `json:"z_score"`
	Sign            float64   `json:"sign"`
	PlusMinus20d    float64   `json:"plus_minus_20d"`
}

// Vector returns the features in FeatureColumns order.
func (r FeatureRow) Vector() []float64 {
	return []float64{
		r.AdjClose,
		r.LogVolume,
		r.HighLowPct,
		r.LogReturn,
		r.PctChange,
		r.DailyReturn,
		r.Volume5dMeanLog,
		r.VolumeVs200dAvg,
		r.CloseVs50dEMA,
		r.ZScore,
		r.Sign,
		r.PlusMinus20d,
	}
}

// FeatureRowFromVector rebuilds a row from values in FeatureColumns order.
func FeatureRowFromVector(date time.Time, v []float64) FeatureRow {
	return FeatureRow{
		Date:            date,
		AdjClose:        v[0],
		LogVolume:       v[1],
		HighLowPct:      v[2],
		LogReturn:       v[3],
		PctChange:       v[4],
		DailyReturn:     v[5],
		Volume5dMeanLog: v[6],
		VolumeVs200dAvg: v[7],
		CloseVs50dEMA:   v[8],
		ZScore:          v[9],
		Sign:            v[10],
		PlusMinus20d:    v[11],
	}
}

// FillScope selects which rows contribute to the mean used for missing features.
type FillScope string

const (
	// FillFull averages over the whole history, including the forecast tail.
	FillFull FillScope = "full"
	// FillTrain averages over the rows that are trainable for the horizon.
	FillTrain FillScope = "train"
)

// IsFinite reports whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
