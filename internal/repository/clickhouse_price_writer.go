package repository

import (
	"context"
	"fmt"
	"strings"

	"FinCast/internal/domain/models"
)

// insertChunk bounds the rows of one multi-row INSERT.
const insertChunk = 2000

// StoreBatch inserts bars with multi-row VALUES statements. The table is a
// ReplacingMergeTree, so re-ingesting a date overwrites it on merge.
func (s *CHPriceStore) StoreBatch(ctx context.Context, series []models.PriceSeries) error {
	for _, ps := range series {
		if err := ps.Validate(); err != nil {
			return fmt.Errorf("store batch: %w", err)
		}
		for start := 0; start < len(ps.Bars); start += insertChunk {
			end := min(start+insertChunk, len(ps.Bars))
			q, args := insertBars(s.table, ps.Ticker, ps.Bars[start:end])
			if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
				return fmt.Errorf("insert bars %s: %w", ps.Ticker, err)
			}
		}
	}
	return nil
}

func insertBars(table, ticker string, bars []models.PriceBar) (string, []any) {
	values := make([]string, 0, len(bars))
	args := make([]any, 0, len(bars)*8)
	for _, b := range bars {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, ticker, b.Date, b.Open, b.High, b.Low, b.Close, b.AdjClose, b.Volume)
	}
	q := fmt.Sprintf("INSERT INTO %s (ticker, date, open, high, low, close, adj_close, volume) VALUES %s",
		table, strings.Join(values, ","))
	return q, args
}
