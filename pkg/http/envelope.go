package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler registers its routes on the server.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// Envelope is the body of every API response.
type Envelope struct {
	Status    int         `json:"status"`
	Message   string      `json:"message"`
	RequestID string      `json:"request_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Errors    []Problem   `json:"errors,omitempty"`
}

func envelope(c echo.Context, status int) Envelope {
	return Envelope{
		Status:    status,
		Message:   http.StatusText(status),
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
	}
}

// Respond writes data with status.
func Respond(c echo.Context, status int, data interface{}) error {
	env := envelope(c, status)
	env.Data = data
	return c.JSON(status, env)
}

// OK writes data with 200.
func OK(c echo.Context, data interface{}) error {
	return Respond(c, http.StatusOK, data)
}

// Invalid answers 400 with the request problems.
func Invalid(c echo.Context, problems []Problem) error {
	env := envelope(c, http.StatusBadRequest)
	env.Errors = problems
	return c.JSON(http.StatusBadRequest, env)
}

// Fail answers with the status of an *AppError in err's chain, or 500.
func Fail(c echo.Context, err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = Internal("Something went wrong")
	}
	env := envelope(c, appErr.Status)
	env.Errors = []Problem{appErr.Problem}
	return c.JSON(appErr.Status, env)
}

// errorHandler renders errors that escape handlers, such as unknown routes, in the envelope.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		err = NewAppError(he.Code, "ERR_HTTP", msg)
	}
	_ = Fail(c, err)
}
