package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"FinCast/internal/domain/models"
	pkgch "FinCast/pkg/clickhouse"
	applogger "FinCast/pkg/logger"
)

// PriceSchema returns the DDL of the daily bar table.
func PriceSchema(database, table string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s.%s (
            ticker    LowCardinality(String),
            date      Date,
            open      Float64,
            high      Float64,
            low       Float64,
            close     Float64,
            adj_close Float64,
            volume    Float64
        )
        ENGINE = ReplacingMergeTree
        ORDER BY (ticker, date)
    `, database, table),
	}
}

// CHPriceStore implements PriceStore backed by ClickHouse.
type CHPriceStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewCHPriceStore reads bars from database.table.
func NewCHPriceStore(ch *pkgch.Client, table string) *CHPriceStore {
	return &CHPriceStore{db: ch.DB(), table: ch.Database() + "." + table, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CHPriceStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

// GetSeries returns the full daily history of ticker. FINAL collapses rows
// re-ingested by the ReplacingMergeTree so every date appears once.
func (s *CHPriceStore) GetSeries(ctx context.Context, ticker string) (models.PriceSeries, error) {
	start := time.Now()
	const qtpl = `
        SELECT date, open, high, low, close, adj_close, volume
        FROM %s FINAL
        WHERE ticker = ?
        ORDER BY date ASC
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), ticker)
	if err != nil {
		s.l.Error("clickhouse get_series query error",
			applogger.String("table", s.table),
			applogger.String("ticker", ticker),
			applogger.Error(err),
		)
		return models.PriceSeries{}, fmt.Errorf("get series: %w", err)
	}
	defer rows.Close()

	bars, err := scanBars(rows)
	if err != nil {
		s.l.Error("clickhouse get_series scan error",
			applogger.String("table", s.table),
			applogger.String("ticker", ticker),
			applogger.Error(err),
		)
		return models.PriceSeries{}, err
	}
	if len(bars) == 0 {
		return models.PriceSeries{}, &models.MissingTickerError{Ticker: ticker}
	}
	s.l.Info("clickhouse get_series ok",
		applogger.String("table", s.table),
		applogger.String("ticker", ticker),
		applogger.Int("rows", len(bars)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return models.PriceSeries{Ticker: ticker, Bars: bars}, nil
}

// ListTickers returns the distinct tickers in ascending order.
func (s *CHPriceStore) ListTickers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT DISTINCT ticker FROM %s ORDER BY ticker`, s.table))
	if err != nil {
		s.l.Error("clickhouse list_tickers query error",
			applogger.String("table", s.table),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan ticker: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// rowScanner is the subset of *sql.Rows used by scanBars.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanBars(rows rowScanner) ([]models.PriceBar, error) {
	out := make([]models.PriceBar, 0, 2048)
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Date = b.Date.UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
