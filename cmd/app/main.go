package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"FinCast/internal/di"
	"FinCast/internal/domain/models"
	"FinCast/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	envPath := flag.String("env", ".env", "dotenv file path")
	ticker := flag.String("ticker", "", "ticker to forecast once and print as JSON")
	mode := flag.String("mode", string(models.ModeRegression), "regression or classification")
	horizon := flag.Int("horizon", 0, "regression horizon in trading days (0 uses the configured default)")
	refresh := flag.Bool("refresh", false, "bypass the result cache")
	serve := flag.Bool("serve", false, "run the HTTP API and Kafka consumer")
	ingest := flag.String("ingest", "", "JSON file of price series to write into the store")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("dotenv load failed: %v", err)
	}

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	// Wire DI: Initialize all dependencies
	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *ingest != "" {
		if err := app.Ingest(ctx, *ingest); err != nil {
			log.Printf("ingest failed: %v", err)
			cleanup()
			os.Exit(1)
		}
	}

	switch {
	case *serve:
		// Run application (blocks until signal)
		if err := app.Run(ctx); err != nil {
			log.Printf("app error: %v", err)
			cleanup()
			os.Exit(1)
		}
	case *ticker != "":
		req := models.ForecastRequest{
			Ticker:  *ticker,
			Mode:    models.LabelMode(*mode),
			Horizon: *horizon,
			Refresh: *refresh,
		}
		res, err := app.Forecaster().Run(ctx, req)
		if err != nil {
			log.Printf("forecast failed: %v", err)
			cleanup()
			os.Exit(1)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			log.Printf("encode result: %v", err)
			cleanup()
			os.Exit(1)
		}
	case *ingest == "":
		flag.Usage()
		cleanup()
		os.Exit(2)
	}
}
