package api

import (
	"github.com/labstack/echo/v4"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
	xhttp "FinCast/pkg/http"
	xlogger "FinCast/pkg/logger"
)

// ForecastEchoHandler serves forecasts over HTTP.
type ForecastEchoHandler struct {
	logger     *xlogger.Logger
	forecaster domsvc.Forecaster
}

func NewForecastEchoHandler(logger *xlogger.Logger, forecaster domsvc.Forecaster) *ForecastEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &ForecastEchoHandler{logger: logger, forecaster: forecaster}
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/forecast", h.Forecast)
	g.GET("/signal", h.Signal)
	g.GET("/tickers", h.Tickers)
}

// Forecast runs the pipeline in the requested mode (regression by default).
func (h *ForecastEchoHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if problems := xhttp.Bind(c, req); problems != nil {
		return xhttp.Invalid(c, problems)
	}
	return h.run(c, *req)
}

// Signal is the classification shortcut of Forecast.
func (h *ForecastEchoHandler) Signal(c echo.Context) error {
	req := &models.SignalRequest{}
	if problems := xhttp.Bind(c, req); problems != nil {
		return xhttp.Invalid(c, problems)
	}
	return h.run(c, models.ForecastRequest{
		Ticker:  req.Ticker,
		Mode:    models.ModeClassification,
		Refresh: req.Refresh,
	})
}

func (h *ForecastEchoHandler) Tickers(c echo.Context) error {
	tickers, err := h.forecaster.Tickers(c.Request().Context())
	if err != nil {
		h.logger.Error("list tickers error", xlogger.Error(err))
		return xhttp.Fail(c, toAppError(err))
	}
	return xhttp.OK(c, tickers)
}

func (h *ForecastEchoHandler) run(c echo.Context, req models.ForecastRequest) error {
	res, err := h.forecaster.Run(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("forecast usecase error",
			xlogger.String("ticker", req.Ticker),
			xlogger.String("mode", string(req.Mode)),
			xlogger.Error(err),
		)
		return xhttp.Fail(c, toAppError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=300")
	return xhttp.OK(c, res)
}
