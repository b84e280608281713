package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"FinCast/pkg/logger"
)

// Recover turns handler panics into 500 responses and logs the stack.
func Recover(log *logger.Logger) echo.MiddlewareFunc {
	return echomw.RecoverWithConfig(echomw.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error("http handler panic",
				logger.String("uri", c.Request().RequestURI),
				logger.String("stack", string(stack)),
				logger.Error(err),
			)
			return echo.NewHTTPError(http.StatusInternalServerError)
		},
	})
}

// CORS allows read-only cross-origin access to the API.
func CORS() echo.MiddlewareFunc {
	return echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		ExposeHeaders: []string{echo.HeaderXRequestID},
	})
}
