package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	pkgkafka "FinCast/pkg/kafka"
	"FinCast/pkg/logger"
	pkgmetrics "FinCast/pkg/metrics"
)

// KafkaForecastHandler runs the pipeline for forecast requests read from Kafka.
// The result is published by the pipeline itself.
type KafkaForecastHandler struct {
	topic      string
	forecaster domsvc.Forecaster
	metrics    domrepo.Metrics
	validate   *validator.Validate
	log        *logger.Logger
}

func NewKafkaForecastHandler(topic string, forecaster domsvc.Forecaster, metrics domrepo.Metrics, log *logger.Logger) *KafkaForecastHandler {
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = pkgmetrics.Nop{}
	}
	return &KafkaForecastHandler{topic: topic, forecaster: forecaster, metrics: metrics, validate: validator.New(), log: log}
}

func (h *KafkaForecastHandler) Topic() string { return h.topic }

// incoming message schema: {ticker, mode, horizon, refresh}
func (h *KafkaForecastHandler) Handle(ctx context.Context, b []byte) error {
	var req models.ForecastRequest
	if err := defaults.Set(&req); err != nil {
		return backoff.Permanent(fmt.Errorf("request defaults: %w", err))
	}
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return backoff.Permanent(fmt.Errorf("decode request: %w", err))
	}
	if err := h.validate.Struct(req); err != nil {
		h.metrics.RecordError("consumer_validate")
		return backoff.Permanent(fmt.Errorf("validate request: %w", err))
	}

	start := time.Now()
	res, err := h.forecaster.Run(ctx, req)
	h.metrics.RecordLatency("consumer_forecast", time.Since(start).Seconds())
	if err != nil {
		// Data and configuration problems do not heal on retry.
		if isDomainError(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	h.log.Info("forecast request served",
		logger.String("ticker", res.Ticker),
		logger.String("mode", string(res.Mode)),
		logger.String("run_id", res.RunID),
		logger.String("trace_id", pkgkafka.TraceID(ctx)),
	)
	return nil
}

func isDomainError(err error) bool {
	var (
		insufficient *models.InsufficientDataError
		missing      *models.MissingTickerError
		cfgErr       *models.ConfigError
		invalid      *models.InvalidSeriesError
		exhausted    *models.SearchExhaustedError
	)
	return errors.As(err, &insufficient) || errors.As(err, &missing) || errors.As(err, &cfgErr) ||
		errors.As(err, &invalid) || errors.As(err, &exhausted)
}

var _ pkgkafka.MessageHandler = (*KafkaForecastHandler)(nil)
