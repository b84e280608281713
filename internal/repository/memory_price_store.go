package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"FinCast/internal/domain/models"
)

// MemoryPriceStore serves series held in memory. Used for local runs and tests.
type MemoryPriceStore struct {
	mu     sync.RWMutex
	series map[string]models.PriceSeries
}

// NewMemoryPriceStore indexes series by ticker. Later duplicates win.
func NewMemoryPriceStore(series ...models.PriceSeries) *MemoryPriceStore {
	s := &MemoryPriceStore{series: make(map[string]models.PriceSeries, len(series))}
	for _, ps := range series {
		s.series[ps.Ticker] = ps
	}
	return s
}

// LoadPriceFixture reads a JSON array of price series.
func LoadPriceFixture(path string) ([]models.PriceSeries, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var series []models.PriceSeries
	if err := json.Unmarshal(b, &series); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	for _, s := range series {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("fixture: %w", err)
		}
	}
	return series, nil
}

// NewMemoryPriceStoreFromFile loads a JSON fixture or a daily-bar CSV.
func NewMemoryPriceStoreFromFile(path string) (*MemoryPriceStore, error) {
	series, err := LoadPriceFile(path)
	if err != nil {
		return nil, err
	}
	return NewMemoryPriceStore(series...), nil
}

func (s *MemoryPriceStore) GetSeries(_ context.Context, ticker string) (models.PriceSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ps, ok := s.series[ticker]
	if !ok || ps.Len() == 0 {
		return models.PriceSeries{}, &models.MissingTickerError{Ticker: ticker}
	}
	bars := make([]models.PriceBar, len(ps.Bars))
	copy(bars, ps.Bars)
	return models.PriceSeries{Ticker: ps.Ticker, Bars: bars}, nil
}

func (s *MemoryPriceStore) ListTickers(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.series))
	for t := range s.series {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// StoreBatch replaces the stored history of each series.
func (s *MemoryPriceStore) StoreBatch(_ context.Context, series []models.PriceSeries) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ps := range series {
		s.series[ps.Ticker] = ps
	}
	return nil
}
