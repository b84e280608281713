package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"FinCast/internal/domain/models"
	applogger "FinCast/pkg/logger"
)

// publisher is the subset of *pkgkafka.Producer used here.
type publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaForecastPublisher publishes results keyed by ticker.
type KafkaForecastPublisher struct {
	producer   publisher
	topic      string
	retries    uint64
	backoffMax time.Duration
	l          *applogger.Logger
}

// NewKafkaForecastPublisher retries each publish up to retries times with exponential backoff.
func NewKafkaForecastPublisher(producer publisher, topic string, retries uint64, backoffMax time.Duration, l *applogger.Logger) *KafkaForecastPublisher {
	if l == nil {
		l = applogger.Nop()
	}
	return &KafkaForecastPublisher{producer: producer, topic: topic, retries: retries, backoffMax: backoffMax, l: l}
}

func (p *KafkaForecastPublisher) Publish(ctx context.Context, r *models.ForecastResult) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 200 * time.Millisecond
	if p.backoffMax > 0 {
		eb.MaxInterval = p.backoffMax
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, p.retries), ctx)

	op := func() error {
		return p.producer.Publish(ctx, p.topic, []byte(r.Ticker), r)
	}
	notify := func(err error, wait time.Duration) {
		p.l.Warn("publish forecast retry",
			applogger.String("topic", p.topic),
			applogger.String("ticker", r.Ticker),
			applogger.Duration("wait", wait),
			applogger.Error(err),
		)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return fmt.Errorf("publish forecast %s: %w", r.RunID, err)
	}
	p.l.Info("forecast published",
		applogger.String("topic", p.topic),
		applogger.String("ticker", r.Ticker),
		applogger.String("run_id", r.RunID),
	)
	return nil
}

func (p *KafkaForecastPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopPublisher drops results; used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *models.ForecastResult) error { return nil }

func (NopPublisher) Close() error { return nil }
