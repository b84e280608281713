package labels

import (
	"sort"
	"time"

	"FinCast/internal/domain/models"
)

// BuildUniverse aligns the adjusted closes of several tickers on the union of their dates.
// A ticker without a bar on a date gets price 0 there.
func BuildUniverse(series []models.PriceSeries) models.Universe {
	seen := make(map[int64]time.Time)
	for _, s := range series {
		for _, b := range s.Bars {
			seen[b.Date.Unix()] = b.Date
		}
	}
	dates := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	index := make(map[int64]int, len(dates))
	for i, d := range dates {
		index[d.Unix()] = i
	}

	u := models.Universe{
		Tickers: make([]string, len(series)),
		Dates:   dates,
		Prices:  make([][]float64, len(dates)),
	}
	for t := range u.Prices {
		u.Prices[t] = make([]float64, len(series))
	}
	for j, s := range series {
		u.Tickers[j] = s.Ticker
		for _, b := range s.Bars {
			u.Prices[index[b.Date.Unix()]][j] = b.AdjClose
		}
	}
	return u
}

// PctChanges returns the per-ticker day-over-day change of the universe prices.
// The first row and any non-finite change are 0.
func PctChanges(u models.Universe) [][]float64 {
	out := make([][]float64, len(u.Prices))
	for t := range u.Prices {
		out[t] = make([]float64, len(u.Tickers))
		if t == 0 {
			continue
		}
		for j := range u.Tickers {
			prev, cur := u.Prices[t-1][j], u.Prices[t][j]
			v := (cur - prev) / prev
			if models.IsFinite(v) {
				out[t][j] = v
			}
		}
	}
	return out
}
