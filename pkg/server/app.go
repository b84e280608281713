package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	internalrepo "FinCast/internal/repository"
	"FinCast/internal/service/ratelimit"
	"FinCast/pkg/config"
	xhttp "FinCast/pkg/http"
	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"
)

// BarWriter persists price history; implemented by the ClickHouse and memory stores.
type BarWriter interface {
	StoreBatch(ctx context.Context, series []models.PriceSeries) error
}

// App encapsulates the application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	forecaster domsvc.Forecaster
	store      repository.PriceStore
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	limiter    *ratelimit.Limiter
}

// New creates a new App instance with all dependencies. consumer may be nil.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	forecaster domsvc.Forecaster,
	store repository.PriceStore,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	limiter *ratelimit.Limiter,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		forecaster: forecaster,
		store:      store,
		httpServer: httpServer,
		consumer:   consumer,
		limiter:    limiter,
	}
}

// Forecaster exposes the pipeline for one-shot runs.
func (a *App) Forecaster() domsvc.Forecaster { return a.forecaster }

// Ingest writes a JSON fixture or a daily-bar CSV into the store.
func (a *App) Ingest(ctx context.Context, path string) error {
	w, ok := a.store.(BarWriter)
	if !ok {
		return fmt.Errorf("ingest: store %T is read-only", a.store)
	}
	series, err := internalrepo.LoadPriceFile(path)
	if err != nil {
		return err
	}
	if err := w.StoreBatch(ctx, series); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	bars := 0
	for _, s := range series {
		bars += s.Len()
	}
	a.log.Info("ingest done", applogger.Int("series", len(series)), applogger.Int("bars", bars))
	return nil
}

// Run starts the HTTP API and the Kafka consumer and blocks until interrupted.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.consumer != nil {
		if err := a.consumer.Start(ctx); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	if a.limiter != nil {
		go a.sweepLimiter(ctx)
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) sweepLimiter(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.limiter.Sweep(10 * time.Minute); n > 0 {
				a.log.Debug("rate limiter swept", applogger.Int("keys", n))
			}
		}
	}
}

// shutdown stops the HTTP server and drains the consumer. Infrastructure
// clients are released by the cleanup returned from the injector.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
