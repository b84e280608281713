package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"FinCast/internal/domain/models"
	"FinCast/internal/ml/ensemble"
	"FinCast/internal/ml/search"
	"FinCast/internal/repository"
	"FinCast/internal/service/cache"
	"FinCast/internal/services/dataset"
)

func trendSeries(ticker string, n int, phase float64) models.PriceSeries {
	start := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	bars := make([]models.PriceBar, n)
	for i := range bars {
		x := float64(i)
		c := 100 + 0.5*x + 3*math.Sin(x/4+phase)
		bars[i] = models.PriceBar{
			Date:     start.AddDate(0, 0, i),
			Open:     c - 0.4*math.Cos(x/3+phase),
			High:     c + 1.5,
			Low:      c - 1.5,
			Close:    c,
			AdjClose: c,
			Volume:   1e5 + 1e4*math.Sin(x/7),
		}
	}
	return models.PriceSeries{Ticker: ticker, Bars: bars}
}

func cycleSeries(ticker string, n int, phase float64) models.PriceSeries {
	s := trendSeries(ticker, n, phase)
	for i := range s.Bars {
		c := 100 * (1 + 0.05*math.Sin(float64(i)/4+phase))
		s.Bars[i].Close, s.Bars[i].AdjClose = c, c
		s.Bars[i].Open = c * 0.999
		s.Bars[i].High, s.Bars[i].Low = c*1.01, c*0.99
	}
	return s
}

type recordingMetrics struct {
	mu        sync.Mutex
	errors    []string
	forecasts int
	units     int
}

func (m *recordingMetrics) RecordForecast(string, string) {
	m.mu.Lock()
	m.forecasts++
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors = append(m.errors, kind)
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordScore(string, string, float64) {}

func (m *recordingMetrics) RecordSearchUnit(string) {
	m.mu.Lock()
	m.units++
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordLatency(string, float64) {}

type recordingPublisher struct {
	mu      sync.Mutex
	results []*models.ForecastResult
}

func (p *recordingPublisher) Publish(_ context.Context, r *models.ForecastResult) error {
	p.mu.Lock()
	p.results = append(p.results, r)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func smallOptions() PipelineOptions {
	opts := DefaultPipelineOptions()
	opts.Horizon = 30
	opts.K = 5
	opts.Iterations = 2
	opts.Folds = 3
	opts.Concurrency = 2
	opts.RFEEstimators = 5
	opts.AdaBoostEstimators = 10
	opts.Space = search.Space{
		ensemble.ParamKNNNeighbors:   search.IntUniform{Low: 1, High: 5},
		ensemble.ParamDTMaxDepth:     search.IntUniform{Low: 4, High: 7},
		ensemble.ParamAdbNEstimators: search.IntUniform{Low: 5, High: 20},
		ensemble.ParamXGBNEstimators: search.IntUniform{Low: 10, High: 20},
	}
	return opts
}

func newPipeline(opts PipelineOptions, series ...models.PriceSeries) (*ForecastPipeline, *recordingPublisher, *recordingMetrics) {
	pub := &recordingPublisher{}
	m := &recordingMetrics{}
	store := repository.NewMemoryPriceStore(series...)
	fc := cache.NewForecastCache(cache.NewTTLCache(), time.Hour, nil)
	builder := dataset.NewBuilder(nil, dataset.Options{FillScope: opts.FillScope})
	return NewForecastPipeline(store, pub, fc, m, builder, opts, nil), pub, m
}

func TestRegressionForecastsTrend(t *testing.T) {
	s := trendSeries("SAP", 300, 0)
	p, _, m := newPipeline(smallOptions(), s)

	res, err := p.Regression(context.Background(), s, 30)
	if err != nil {
		t.Fatalf("regression: %v", err)
	}
	if len(res.Points) != 30 {
		t.Fatalf("points = %d, want 30", len(res.Points))
	}
	for i, pt := range res.Points {
		bar := s.Bars[270+i]
		if !pt.Date.Equal(bar.Date) || pt.Actual != bar.AdjClose {
			t.Fatalf("point %d misaligned: %+v", i, pt)
		}
		if !models.IsFinite(pt.Forecast) {
			t.Fatalf("point %d forecast not finite", i)
		}
	}
	if len(res.SelectedFeatures) != 5 {
		t.Fatalf("selected = %v", res.SelectedFeatures)
	}
	// The series rises, so forecasts of the latest rows must sit above early prices.
	mean := 0.0
	for _, f := range res.Forecasts() {
		mean += f
	}
	mean /= float64(len(res.Points))
	if mean < s.Bars[150].AdjClose {
		t.Fatalf("mean forecast %v below mid-series price %v", mean, s.Bars[150].AdjClose)
	}
	if res.EvaluationScore < 0.5 {
		t.Fatalf("evaluation R2 = %v", res.EvaluationScore)
	}
	if res.RunID == "" || res.Mode != models.ModeRegression || res.Horizon != 30 {
		t.Fatalf("result header = %+v", res)
	}
	if len(res.TopCandidates) == 0 || res.TopCandidates[0].Folds == 0 {
		t.Fatalf("top candidates = %+v", res.TopCandidates)
	}
	if m.units != 2*3 {
		t.Fatalf("search units = %d, want 6", m.units)
	}
}

func TestClassificationSignals(t *testing.T) {
	opts := smallOptions()
	series := []models.PriceSeries{
		cycleSeries("SAP", 260, 0),
		cycleSeries("BMW", 260, 1),
		cycleSeries("ALV", 260, 2),
	}
	p, _, _ := newPipeline(opts, series...)

	res, err := p.Classification(context.Background(), "SAP")
	if err != nil {
		t.Fatalf("classification: %v", err)
	}
	if len(res.Points) != opts.Offsets {
		t.Fatalf("points = %d, want %d", len(res.Points), opts.Offsets)
	}
	for _, pt := range res.Points {
		switch pt.Signal {
		case "buy", "sell", "hold":
		default:
			t.Fatalf("signal = %q", pt.Signal)
		}
	}
	if res.LabelSpread["buy"] == 0 || res.LabelSpread["sell"] == 0 {
		t.Fatalf("label spread = %v", res.LabelSpread)
	}
	predicted := 0
	for _, n := range res.PredictedSpread {
		predicted += n
	}
	labelled := 0
	for _, n := range res.LabelSpread {
		labelled += n
	}
	if want := int(math.Ceil(float64(labelled) * opts.ClassificationTestSize)); predicted != want {
		t.Fatalf("predicted spread covers %d rows, want %d", predicted, want)
	}
	if res.EvaluationScore < 0 || res.EvaluationScore > 1 {
		t.Fatalf("accuracy = %v", res.EvaluationScore)
	}
	if len(res.SelectedFeatures) != 3 {
		t.Fatalf("features = %v", res.SelectedFeatures)
	}
}

func TestRunCachesAndPublishes(t *testing.T) {
	opts := smallOptions()
	s := trendSeries("SAP", 300, 0)
	p, pub, _ := newPipeline(opts, s)
	ctx := context.Background()
	req := models.ForecastRequest{Ticker: "SAP", Mode: models.ModeRegression, Horizon: 30}

	first, err := p.Run(ctx, req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	second, err := p.Run(ctx, req)
	if err != nil {
		t.Fatalf("run cached: %v", err)
	}
	if second.RunID != first.RunID {
		t.Fatalf("expected cached result")
	}
	if len(pub.results) != 1 {
		t.Fatalf("published %d results, want 1", len(pub.results))
	}

	req.Refresh = true
	third, err := p.Run(ctx, req)
	if err != nil {
		t.Fatalf("run refresh: %v", err)
	}
	if third.RunID == first.RunID || len(pub.results) != 2 {
		t.Fatalf("refresh did not rerun")
	}
}

func TestRunReportsTypedErrors(t *testing.T) {
	p, _, m := newPipeline(smallOptions(), trendSeries("SAP", 100, 0))
	ctx := context.Background()

	_, err := p.Run(ctx, models.ForecastRequest{Ticker: "SAP", Horizon: 30})
	var insufficient *models.InsufficientDataError
	if !errors.As(err, &insufficient) || insufficient.Need != 230 {
		t.Fatalf("expected InsufficientDataError need 230, got %v", err)
	}

	_, err = p.Run(ctx, models.ForecastRequest{Ticker: "NOPE"})
	var missing *models.MissingTickerError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingTickerError, got %v", err)
	}
	if len(m.errors) != 2 || m.errors[0] != "insufficient_data" || m.errors[1] != "price_store" {
		t.Fatalf("error kinds = %v", m.errors)
	}
}

type stubForecaster struct {
	req models.ForecastRequest
	err error
}

func (f *stubForecaster) Run(_ context.Context, req models.ForecastRequest) (*models.ForecastResult, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.ForecastResult{Ticker: req.Ticker, Mode: req.Mode}, nil
}

func (f *stubForecaster) Tickers(context.Context) ([]string, error) { return nil, nil }

func TestKafkaForecastHandler(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		err       error
		wantErr   bool
		permanent bool
	}{
		{name: "ok", body: `{"ticker":"SAP","horizon":30}`},
		{name: "bad json", body: `{`, wantErr: true, permanent: true},
		{name: "missing ticker field", body: `{"horizon":30}`, wantErr: true, permanent: true},
		{name: "bad mode", body: `{"ticker":"SAP","mode":"guess"}`, wantErr: true, permanent: true},
		{name: "domain error", body: `{"ticker":"SAP"}`, err: &models.MissingTickerError{Ticker: "SAP"}, wantErr: true, permanent: true},
		{name: "transient error", body: `{"ticker":"SAP"}`, err: errors.New("store timeout"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &stubForecaster{err: tt.err}
			h := NewKafkaForecastHandler("fincast.forecast-requests", f, nil, nil)
			err := h.Handle(context.Background(), []byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			var perm *backoff.PermanentError
			if got := errors.As(err, &perm); got != tt.permanent {
				t.Fatalf("permanent = %v, want %v (%v)", got, tt.permanent, err)
			}
			if tt.name == "ok" && f.req.Mode != models.ModeRegression {
				t.Fatalf("mode default not applied: %q", f.req.Mode)
			}
		})
	}
}
