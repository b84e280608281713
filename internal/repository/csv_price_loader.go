package repository

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"FinCast/internal/domain/models"
	"FinCast/pkg/util"
)

// LoadPriceFile reads price history from a JSON fixture or a daily-bar CSV.
// A CSV file holds one ticker named after the file, e.g. SAP.csv.
func LoadPriceFile(path string) ([]models.PriceSeries, error) {
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return LoadPriceFixture(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	ticker := strings.ToUpper(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	s, err := LoadPriceCSV(f, ticker)
	if err != nil {
		return nil, err
	}
	return []models.PriceSeries{s}, nil
}

// LoadPriceCSV parses Date,Open,High,Low,Close,Adj Close,Volume rows. Rows with
// missing values are skipped; Adj Close falls back to Close when absent.
func LoadPriceCSV(r io.Reader, ticker string) (models.PriceSeries, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return models.PriceSeries{}, fmt.Errorf("read csv header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[util.NormalizeHeader(h)] = i
	}
	for _, col := range []string{"date", "open", "high", "low", "close", "volume"} {
		if _, ok := idx[col]; !ok {
			return models.PriceSeries{}, fmt.Errorf("csv: missing column %q", col)
		}
	}
	adjCol, hasAdj := idx["adj_close"]

	var bars []models.PriceBar
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.PriceSeries{}, fmt.Errorf("read csv: %w", err)
		}
		b, ok := parseBar(rec, idx, adjCol, hasAdj)
		if !ok {
			continue
		}
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	s := models.PriceSeries{Ticker: ticker, Bars: bars}
	if err := s.Validate(); err != nil {
		return models.PriceSeries{}, fmt.Errorf("csv %s: %w", ticker, err)
	}
	return s, nil
}

func parseBar(rec []string, idx map[string]int, adjCol int, hasAdj bool) (models.PriceBar, bool) {
	cell := func(i int) string {
		if i < len(rec) {
			return rec[i]
		}
		return ""
	}
	date, ok := util.ParseDate(cell(idx["date"]))
	if !ok {
		return models.PriceBar{}, false
	}
	var vals [5]float64
	for i, col := range []string{"open", "high", "low", "close", "volume"} {
		v, ok := util.ParseFloat(cell(idx[col]))
		if !ok {
			return models.PriceBar{}, false
		}
		vals[i] = v
	}
	adj := vals[3]
	if hasAdj {
		v, ok := util.ParseFloat(cell(adjCol))
		if !ok {
			return models.PriceBar{}, false
		}
		adj = v
	}
	return models.PriceBar{
		Date:     util.TruncateDay(date),
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		AdjClose: adj,
		Volume:   vals[4],
	}, true
}
