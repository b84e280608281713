package repository

import (
	"context"

	"FinCast/internal/domain/models"
)

// PriceStore provides read-only access to daily bars.
type PriceStore interface {
	// GetSeries returns the date-ascending history of ticker or *models.MissingTickerError.
	GetSeries(ctx context.Context, ticker string) (models.PriceSeries, error)
	ListTickers(ctx context.Context) ([]string, error)
}

// ForecastPublisher hands finished results to downstream consumers.
type ForecastPublisher interface {
	Publish(ctx context.Context, r *models.ForecastResult) error
	Close() error
}

// ForecastCache keeps recent results keyed by request and data version.
type ForecastCache interface {
	Get(ctx context.Context, key string) (*models.ForecastResult, bool)
	Set(ctx context.Context, key string, r *models.ForecastResult) error
}

type Metrics interface {
	RecordForecast(ticker, mode string)
	RecordError(kind string)
	RecordScore(ticker, mode string, score float64)
	RecordSearchUnit(result string)
	RecordLatency(op string, seconds float64)
}
