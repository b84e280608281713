package di

import (
	"context"
	"testing"

	"FinCast/pkg/config"
)

func TestInitializeAppMemoryStore(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	cfg.Log.Output = "stderr"
	cfg.Log.Level = "error"
	cfg.Store.Type = "memory"
	cfg.Store.Fixture = "../../testdata/SAP.csv"
	cfg.Cache.Type = "memory"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	app, cleanup, err := InitializeApp(cfg)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer cleanup()

	ctx := context.Background()
	tickers, err := app.Forecaster().Tickers(ctx)
	if err != nil {
		t.Fatalf("tickers: %v", err)
	}
	if len(tickers) != 1 || tickers[0] != "SAP" {
		t.Fatalf("tickers = %v, want [SAP]", tickers)
	}
	if err := app.Ingest(ctx, "../../testdata/SAP.csv"); err != nil {
		t.Fatalf("ingest: %v", err)
	}
}

func TestProvidePipelineOptions(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	cfg.Forecast.Tickers = []string{"SAP", "BMW"}
	opts := ProvidePipelineOptions(cfg)
	if opts.Horizon != 120 || opts.K != 5 || opts.Offsets != 7 || opts.Seed != 42 {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.RFEEstimators != 3000 || len(opts.Tickers) != 2 {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.Space != nil {
		t.Fatalf("space override should stay unset")
	}
}
