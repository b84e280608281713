package di

import (
	"context"
	"fmt"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/handler/api"
	internalrepo "FinCast/internal/repository"
	"FinCast/internal/service/cache"
	"FinCast/internal/service/ratelimit"
	"FinCast/internal/services/dataset"
	"FinCast/internal/services/features"
	"FinCast/internal/usecase"
	pkgch "FinCast/pkg/clickhouse"
	"FinCast/pkg/config"
	xhttp "FinCast/pkg/http"
	"FinCast/pkg/http/middleware"
	pkgkafka "FinCast/pkg/kafka"
	"FinCast/pkg/logger"
	"FinCast/pkg/metrics"
	"FinCast/pkg/server"
)

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient connects and creates the bar table. It returns nil for the memory store.
func ProvideClickHouseClient(cfg *config.Config, log *logger.Logger) (*pkgch.Client, func(), error) {
	if cfg.Store.Type != "clickhouse" {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.PriceSchema(cfg.ClickHouse.Database, cfg.ClickHouse.Table)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	log.Info("clickhouse ready", logger.String("database", cfg.ClickHouse.Database), logger.String("table", cfg.ClickHouse.Table))

	cleanup := func() {
		if err := client.Close(); err != nil {
			log.Warn("clickhouse close", logger.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvidePriceStore selects the price history backend.
func ProvidePriceStore(cfg *config.Config, ch *pkgch.Client, log *logger.Logger) (repository.PriceStore, error) {
	switch cfg.Store.Type {
	case "memory":
		s, err := internalrepo.NewMemoryPriceStoreFromFile(cfg.Store.Fixture)
		if err != nil {
			return nil, fmt.Errorf("memory store: %w", err)
		}
		return s, nil
	default:
		if ch == nil {
			return nil, fmt.Errorf("clickhouse store without client")
		}
		s := internalrepo.NewCHPriceStore(ch, cfg.ClickHouse.Table)
		s.SetLogger(log.With(logger.String("component", "price_store")))
		return s, nil
	}
}

// ProvideForecastCache builds the result cache; "none" disables caching and
// "layered" fronts Redis with an in-process cache.
func ProvideForecastCache(cfg *config.Config, log *logger.Logger) (repository.ForecastCache, func(), error) {
	l := log.With(logger.String("component", "forecast_cache"))
	switch cfg.Cache.Type {
	case "redis", "layered":
		rc := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		cleanup := func() {
			if err := rc.Close(); err != nil {
				log.Warn("redis close", logger.Error(err))
			}
		}
		var bc cache.BytesCache = rc
		if cfg.Cache.Type == "layered" {
			bc = cache.NewLayeredCache(rc, cfg.Cache.LocalTTL)
		}
		return cache.NewForecastCache(bc, cfg.Cache.TTL, l), cleanup, nil
	case "memory":
		return cache.NewForecastCache(cache.NewTTLCache(), cfg.Cache.TTL, l), func() {}, nil
	default:
		return cache.Nop{}, func() {}, nil
	}
}

// ProvideKafkaProducer creates a Kafka producer. It returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, log *logger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	cleanup := func() {
		if err := producer.Close(); err != nil {
			log.Warn("kafka producer close", logger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvideForecastPublisher publishes results to Kafka, or drops them when Kafka is disabled.
func ProvideForecastPublisher(cfg *config.Config, producer *pkgkafka.Producer, log *logger.Logger) repository.ForecastPublisher {
	if producer == nil {
		return internalrepo.NopPublisher{}
	}
	return internalrepo.NewKafkaForecastPublisher(
		producer,
		cfg.Kafka.ResultsTopic,
		cfg.Kafka.Producer.PublishRetries,
		cfg.Kafka.Producer.BackoffMax,
		log.With(logger.String("component", "forecast_publisher")),
	)
}

// ProvideDatasetBuilder creates the dataset builder.
func ProvideDatasetBuilder(cfg *config.Config) *dataset.Builder {
	return dataset.NewBuilder(features.NewEngineer(), dataset.Options{
		FillScope: models.FillScope(cfg.Forecast.FillScope),
	})
}

// ProvidePipelineOptions maps the forecast section onto pipeline options.
func ProvidePipelineOptions(cfg *config.Config) usecase.PipelineOptions {
	f := cfg.Forecast
	return usecase.PipelineOptions{
		Horizon:                f.Horizon,
		K:                      f.K,
		Iterations:             f.Iterations,
		Folds:                  f.Folds,
		Concurrency:            f.Concurrency,
		Offsets:                f.Offsets,
		Threshold:              f.Threshold,
		FillScope:              models.FillScope(f.FillScope),
		Seed:                   f.Seed,
		RegressionTestSize:     f.RegressionTestSize,
		ClassificationTestSize: f.ClassificationTestSize,
		RFEEstimators:          f.RFE.Estimators,
		RFEMaxDepth:            f.RFE.MaxDepth,
		AdaBoostEstimators:     f.AdaBoostEstimators,
		Tickers:                f.Tickers,
	}
}

// ProvideForecaster exposes the pipeline behind the domain interface.
func ProvideForecaster(p *usecase.ForecastPipeline) domsvc.Forecaster {
	return p
}

// ProvideKafkaForecastHandler handles forecast requests from the requests topic.
func ProvideKafkaForecastHandler(cfg *config.Config, f domsvc.Forecaster, m repository.Metrics, log *logger.Logger) *usecase.KafkaForecastHandler {
	return usecase.NewKafkaForecastHandler(cfg.Kafka.RequestsTopic, f, m, log)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML. It returns nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, h *usecase.KafkaForecastHandler, log *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(h, log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook())
	return consumer, nil
}

// ProvideRateLimiter limits forecast requests per client IP.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)
}

// ProvideHTTPServer assembles the Echo server.
func ProvideHTTPServer(cfg *config.Config, log *logger.Logger, h *api.ForecastEchoHandler, lim *ratelimit.Limiter) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(log.With(logger.String("component", "http")), h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithMiddleware(middleware.RateLimit(lim, cfg.Metrics.Path, "/api/tickers")),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	forecaster domsvc.Forecaster,
	store repository.PriceStore,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	limiter *ratelimit.Limiter,
) *server.App {
	return server.New(cfg, log, forecaster, store, httpServer, consumer, limiter)
}
