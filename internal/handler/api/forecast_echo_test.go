package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"FinCast/internal/domain/models"
	xhttp "FinCast/pkg/http"
)

type stubForecaster struct {
	got models.ForecastRequest
	err error
}

func (s *stubForecaster) Run(_ context.Context, req models.ForecastRequest) (*models.ForecastResult, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.ForecastResult{RunID: "run-1", Ticker: req.Ticker, Mode: req.Mode, Horizon: req.Horizon}, nil
}

func (s *stubForecaster) Tickers(context.Context) ([]string, error) {
	return []string{"BMW", "SAP"}, s.err
}

func serve(t *testing.T, f *stubForecaster, target string) (*httptest.ResponseRecorder, xhttp.Envelope) {
	t.Helper()
	e := echo.New()
	NewForecastEchoHandler(nil, f).RegisterRoutes(e)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body xhttp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return rec, body
}

func TestForecastEndpoint(t *testing.T) {
	f := &stubForecaster{}
	rec, body := serve(t, f, "/api/forecast?ticker=SAP&horizon=30")
	if rec.Code != http.StatusOK || body.Status != http.StatusOK {
		t.Fatalf("status = %d / %d", rec.Code, body.Status)
	}
	if f.got.Ticker != "SAP" || f.got.Horizon != 30 || f.got.Mode != models.ModeRegression {
		t.Fatalf("request = %+v", f.got)
	}
}

func TestSignalEndpointUsesClassification(t *testing.T) {
	f := &stubForecaster{}
	rec, _ := serve(t, f, "/api/signal?ticker=SAP&refresh=true")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.got.Mode != models.ModeClassification || !f.got.Refresh {
		t.Fatalf("request = %+v", f.got)
	}
}

func TestForecastValidation(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"missing ticker", "/api/forecast?horizon=30"},
		{"horizon too large", "/api/forecast?ticker=SAP&horizon=5000"},
		{"unknown mode", "/api/forecast?ticker=SAP&mode=guess"},
		{"horizon not a number", "/api/forecast?ticker=SAP&horizon=abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := serve(t, &stubForecaster{}, tt.target)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestForecastErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"insufficient data", &models.InsufficientDataError{Ticker: "SAP", Have: 10, Need: 230}, http.StatusUnprocessableEntity},
		{"missing ticker", &models.MissingTickerError{Ticker: "SAP"}, http.StatusNotFound},
		{"search exhausted", &models.SearchExhaustedError{Candidates: 5, Folds: 10, Failures: 50}, http.StatusInternalServerError},
		{"config", &models.ConfigError{Field: "k", Reason: "too large"}, http.StatusBadRequest},
		{"wrapped", errors.Join(errors.New("ctx"), &models.MissingTickerError{Ticker: "SAP"}), http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := serve(t, &stubForecaster{err: tt.err}, "/api/forecast?ticker=SAP")
			if rec.Code != tt.want || body.Status != tt.want {
				t.Fatalf("status = %d / %d, want %d", rec.Code, body.Status, tt.want)
			}
		})
	}
}

func TestTickersEndpoint(t *testing.T) {
	rec, body := serve(t, &stubForecaster{}, "/api/tickers")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	tickers, ok := body.Data.([]interface{})
	if !ok || len(tickers) != 2 {
		t.Fatalf("data = %v", body.Data)
	}
}

func TestValidationNamesField(t *testing.T) {
	_, body := serve(t, &stubForecaster{}, "/api/forecast?horizon=30")
	if len(body.Errors) != 1 || body.Errors[0].Field != "ticker" || body.Errors[0].Code != "ERR_REQUIRED" {
		t.Fatalf("errors = %+v", body.Errors)
	}
}
