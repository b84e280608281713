package service

import (
	"context"

	"FinCast/internal/domain/models"
)

// Forecaster runs the forecasting pipeline for one request.
type Forecaster interface {
	Run(ctx context.Context, req models.ForecastRequest) (*models.ForecastResult, error)
	Tickers(ctx context.Context) ([]string, error)
}
