package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/ml"
	"FinCast/internal/ml/ensemble"
	"FinCast/internal/ml/search"
	"FinCast/internal/ml/selection"
	"FinCast/internal/service/cache"
	"FinCast/internal/services/dataset"
	"FinCast/internal/services/labels"
	"FinCast/pkg/logger"
	"FinCast/pkg/metrics"
)

// PipelineOptions are the tunables of one forecasting run.
type PipelineOptions struct {
	Horizon     int
	K           int
	Iterations  int
	Folds       int
	Concurrency int
	Offsets     int
	Threshold   float64
	FillScope   models.FillScope
	Seed        int64

	RegressionTestSize     float64
	ClassificationTestSize float64

	RFEEstimators      int
	RFEMaxDepth        int
	AdaBoostEstimators int

	// Tickers is the classification universe; empty means every stored ticker.
	Tickers []string

	// Space overrides the regression search space; nil uses search.RegressionSpace.
	Space search.Space
}

// DefaultPipelineOptions mirrors the configuration defaults.
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		Horizon:                120,
		K:                      5,
		Iterations:             5,
		Folds:                  10,
		Offsets:                labels.DefaultOffsets,
		Threshold:              labels.DefaultThreshold,
		FillScope:              models.FillFull,
		Seed:                   42,
		RegressionTestSize:     0.3,
		ClassificationTestSize: 0.25,
		RFEEstimators:          3000,
		RFEMaxDepth:            4,
		AdaBoostEstimators:     3000,
	}
}

// ForecastPipeline wires dataset building, feature selection, search and evaluation.
type ForecastPipeline struct {
	store     domrepo.PriceStore
	publisher domrepo.ForecastPublisher
	cache     domrepo.ForecastCache
	metrics   domrepo.Metrics
	builder   *dataset.Builder
	opts      PipelineOptions
	log       *logger.Logger
	now       func() time.Time
}

func NewForecastPipeline(store domrepo.PriceStore, publisher domrepo.ForecastPublisher, fc domrepo.ForecastCache, m domrepo.Metrics, builder *dataset.Builder, opts PipelineOptions, log *logger.Logger) *ForecastPipeline {
	if log == nil {
		log = logger.Nop()
	}
	if fc == nil {
		fc = cache.Nop{}
	}
	if m == nil {
		m = metrics.Nop{}
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if builder == nil {
		builder = dataset.NewBuilder(nil, dataset.Options{FillScope: opts.FillScope})
	}
	return &ForecastPipeline{
		store:     store,
		publisher: publisher,
		cache:     fc,
		metrics:   m,
		builder:   builder,
		opts:      opts,
		log:       log,
		now:       time.Now,
	}
}

var _ domsvc.Forecaster = (*ForecastPipeline)(nil)

// Tickers lists the tickers the store can serve.
func (p *ForecastPipeline) Tickers(ctx context.Context) ([]string, error) {
	return p.store.ListTickers(ctx)
}

// Run serves req from the cache when the underlying data is unchanged, otherwise runs the
// pipeline, caches and publishes the result.
func (p *ForecastPipeline) Run(ctx context.Context, req models.ForecastRequest) (*models.ForecastResult, error) {
	if req.Mode == "" {
		req.Mode = models.ModeRegression
	}
	if req.Horizon <= 0 {
		req.Horizon = p.opts.Horizon
	}
	if req.Mode == models.ModeClassification {
		req.Horizon = p.opts.Offsets
	}

	start := time.Now()
	series, err := p.store.GetSeries(ctx, req.Ticker)
	if err != nil {
		p.fail("price_store")
		return nil, fmt.Errorf("load %s: %w", req.Ticker, err)
	}
	key := cache.Key(req.Ticker, req.Mode, req.Horizon, series.LastDate())
	if !req.Refresh {
		if r, ok := p.cache.Get(ctx, key); ok {
			p.log.Info("forecast cache hit", logger.String("ticker", req.Ticker), logger.String("key", key))
			return r, nil
		}
	}

	var res *models.ForecastResult
	switch req.Mode {
	case models.ModeRegression:
		res, err = p.Regression(ctx, series, req.Horizon)
	case models.ModeClassification:
		res, err = p.Classification(ctx, req.Ticker)
	default:
		err = &models.ConfigError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", req.Mode)}
	}
	if err != nil {
		p.fail(errorKind(err))
		return nil, err
	}
	p.metrics.RecordForecast(res.Ticker, string(res.Mode))
	p.metrics.RecordLatency("pipeline_"+string(res.Mode), time.Since(start).Seconds())

	if err := p.cache.Set(ctx, key, res); err != nil {
		p.log.Warn("cache forecast", logger.String("key", key), logger.Error(err))
	}
	if err := p.publisher.Publish(ctx, res); err != nil {
		p.fail("publish")
		p.log.Error("publish forecast", logger.String("run_id", res.RunID), logger.Error(err))
	}
	return res, nil
}

// Regression forecasts the adjusted close horizon bars ahead of every holdout row.
func (p *ForecastPipeline) Regression(ctx context.Context, series models.PriceSeries, horizon int) (*models.ForecastResult, error) {
	runID := uuid.NewString()
	log := p.log.With(
		logger.String("run_id", runID),
		logger.String("ticker", series.Ticker),
		logger.String("mode", string(models.ModeRegression)),
		logger.Int("horizon", horizon),
	)

	stage := time.Now()
	ds, err := p.builder.Regression(series, horizon)
	if err != nil {
		return nil, fmt.Errorf("build dataset: %w", err)
	}
	p.stage(log, "dataset", stage, logger.Int("rows", len(ds.X)), logger.Int("forecast_rows", len(ds.ForecastX)))

	stage = time.Now()
	rfe := selection.NewRFE(p.opts.K, selection.AdaBoostReference(p.opts.RFEEstimators, p.opts.RFEMaxDepth, p.opts.Seed))
	sel, err := rfe.Fit(ds.X, ds.Y, ds.Columns)
	if err != nil {
		return nil, fmt.Errorf("select features: %w", err)
	}
	X := sel.Apply(ds.X)
	forecastX := sel.Apply(ds.ForecastX)
	p.stage(log, "selection", stage, logger.Strings("features", sel.Columns))

	base := ensemble.DefaultRegressionConfig()
	base.Seed = p.opts.Seed
	base.AdbReg.NEstimators = p.opts.AdaBoostEstimators

	space := p.opts.Space
	if space == nil {
		space = search.RegressionSpace()
	}
	ev, err := p.evaluate(ctx, log, X, ds.Y, space, base, ml.R2, p.opts.RegressionTestSize)
	if err != nil {
		return nil, err
	}

	preds, err := ev.search.Estimator.Predict(forecastX)
	if err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}
	points := make([]models.ForecastPoint, len(preds))
	for i, h := range ds.Holdout {
		points[i] = models.ForecastPoint{Date: h.Date, Actual: h.AdjClose, Forecast: preds[i]}
	}

	res := p.result(runID, series.Ticker, models.ModeRegression, horizon, ev)
	res.Points = points
	res.SelectedFeatures = sel.Columns
	res.BestParams = ev.search.Best.Params
	res.LastBarDate = series.LastDate()
	p.metrics.RecordScore(res.Ticker, string(res.Mode), res.EvaluationScore)
	log.Info("regression forecast ready",
		logger.Float64("evaluation_r2", res.EvaluationScore),
		logger.Float64("cv_r2", res.CVScore),
	)
	return res, nil
}

// Classification predicts the buy/sell/hold signal of ticker against the configured universe.
func (p *ForecastPipeline) Classification(ctx context.Context, ticker string) (*models.ForecastResult, error) {
	runID := uuid.NewString()
	log := p.log.With(
		logger.String("run_id", runID),
		logger.String("ticker", ticker),
		logger.String("mode", string(models.ModeClassification)),
		logger.Int("offsets", p.opts.Offsets),
	)

	stage := time.Now()
	u, err := p.universe(ctx, ticker)
	if err != nil {
		return nil, err
	}
	ds, err := p.builder.Classification(u, ticker, p.opts.Offsets, p.opts.Threshold)
	if err != nil {
		return nil, fmt.Errorf("build dataset: %w", err)
	}
	spread := labels.Spread(models.LabelColumn{Values: ds.Y})
	p.stage(log, "dataset", stage,
		logger.Int("rows", len(ds.X)),
		logger.Int("universe", len(u.Tickers)),
		logger.Any("spread", spread),
	)

	base := ensemble.DefaultClassificationConfig()
	base.Seed = p.opts.Seed
	ev, err := p.evaluate(ctx, log, ds.X, ds.Y, search.Space{}, base, ml.Accuracy, p.opts.ClassificationTestSize)
	if err != nil {
		return nil, err
	}

	preds, err := ev.search.Estimator.Predict(ds.ForecastX)
	if err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}
	points := make([]models.ForecastPoint, len(preds))
	for i, h := range ds.Holdout {
		points[i] = models.ForecastPoint{Date: h.Date, Actual: h.AdjClose, Forecast: preds[i], Signal: models.SignalName(preds[i])}
	}

	res := p.result(runID, ticker, models.ModeClassification, p.opts.Offsets, ev)
	res.Points = points
	res.SelectedFeatures = ds.Columns
	res.LabelSpread = spread
	res.PredictedSpread = labels.Spread(models.LabelColumn{Values: ev.testPreds})
	if len(u.Dates) > 0 {
		res.LastBarDate = u.Dates[len(u.Dates)-1]
	}
	p.metrics.RecordScore(res.Ticker, string(res.Mode), res.EvaluationScore)
	log.Info("classification forecast ready",
		logger.Float64("accuracy", res.EvaluationScore),
		logger.Any("predicted_spread", res.PredictedSpread),
	)
	return res, nil
}

type evaluation struct {
	search    *search.Result
	score     float64
	testPreds []float64
}

// evaluate splits X into train and test rows, searches on the train rows and scores the
// refitted best estimator on the test rows.
func (p *ForecastPipeline) evaluate(ctx context.Context, log *logger.Logger, X [][]float64, y []float64, space search.Space, base ensemble.Config, scorer ml.Scorer, testSize float64) (*evaluation, error) {
	trainIdx, testIdx, err := ml.TrainTestSplit(len(X), testSize, p.opts.Seed)
	if err != nil {
		return nil, &models.ConfigError{Field: "test_size", Reason: err.Error()}
	}
	Xtr, ytr := ml.Rows(X, trainIdx), ml.Values(y, trainIdx)
	Xte, yte := ml.Rows(X, testIdx), ml.Values(y, testIdx)

	stage := time.Now()
	s := search.New(space, search.Options{
		Iterations:  p.opts.Iterations,
		Folds:       p.opts.Folds,
		Concurrency: p.opts.Concurrency,
		Seed:        p.opts.Seed,
		Scorer:      scorer,
	}, log, p.metrics)
	sr, err := s.Search(ctx, search.ConfigFactory(base), Xtr, ytr)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	p.stage(log, "search", stage, logger.Float64("best_cv_score", sr.Best.Mean))

	preds, err := sr.Estimator.Predict(Xte)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	score, err := scorer(yte, preds)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	return &evaluation{search: sr, score: score, testPreds: preds}, nil
}

func (p *ForecastPipeline) result(runID, ticker string, mode models.LabelMode, horizon int, ev *evaluation) *models.ForecastResult {
	res := &models.ForecastResult{
		RunID:           runID,
		Ticker:          ticker,
		Mode:            mode,
		Horizon:         horizon,
		EvaluationScore: ev.score,
		CVScore:         ev.search.Best.Mean,
		GeneratedAt:     p.now().UTC(),
	}
	for _, c := range ev.search.Candidates {
		if c.Rank > 3 {
			continue
		}
		res.TopCandidates = append(res.TopCandidates, models.CandidateReport{
			Rank:      c.Rank,
			MeanScore: c.Mean,
			StdScore:  c.Std,
			Folds:     len(c.Scores),
			Params:    c.Params,
		})
	}
	return res
}

// universe loads the configured tickers, adding ticker when it is not listed.
func (p *ForecastPipeline) universe(ctx context.Context, ticker string) (models.Universe, error) {
	tickers := p.opts.Tickers
	if len(tickers) == 0 {
		var err error
		tickers, err = p.store.ListTickers(ctx)
		if err != nil {
			return models.Universe{}, fmt.Errorf("list tickers: %w", err)
		}
	}
	listed := false
	for _, t := range tickers {
		if t == ticker {
			listed = true
			break
		}
	}
	if !listed {
		tickers = append(append([]string(nil), tickers...), ticker)
	}

	series := make([]models.PriceSeries, 0, len(tickers))
	for _, t := range tickers {
		s, err := p.store.GetSeries(ctx, t)
		if err != nil {
			return models.Universe{}, fmt.Errorf("load %s: %w", t, err)
		}
		series = append(series, s)
	}
	return labels.BuildUniverse(series), nil
}

func (p *ForecastPipeline) stage(log *logger.Logger, name string, start time.Time, fields ...logger.Field) {
	d := time.Since(start)
	p.metrics.RecordLatency("stage_"+name, d.Seconds())
	log.Info("stage done", append([]logger.Field{logger.String("stage", name), logger.Duration("duration_ms", d)}, fields...)...)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, *models.ForecastResult) error { return nil }

func (noopPublisher) Close() error { return nil }

func (p *ForecastPipeline) fail(kind string) {
	p.metrics.RecordError(kind)
}

// errorKind labels err for the error counter.
func errorKind(err error) string {
	var (
		insufficient *models.InsufficientDataError
		missing      *models.MissingTickerError
		exhausted    *models.SearchExhaustedError
		cfgErr       *models.ConfigError
		invalid      *models.InvalidSeriesError
	)
	switch {
	case errors.As(err, &insufficient):
		return "insufficient_data"
	case errors.As(err, &missing):
		return "missing_ticker"
	case errors.As(err, &exhausted):
		return "search_exhausted"
	case errors.As(err, &cfgErr):
		return "config"
	case errors.As(err, &invalid):
		return "invalid_series"
	default:
		return "internal"
	}
}
