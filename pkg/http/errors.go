package http

import (
	"fmt"
	"net/http"
)

// Problem is one machine-readable error detail of a response.
type Problem struct {
	Code    string                 `json:"code"`
	Field   string                 `json:"field,omitempty"`
	Message string                 `json:"message"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// AppError carries a Problem together with the HTTP status it maps to.
type AppError struct {
	Problem
	Status int
	Err    error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError builds an error answered with status.
func NewAppError(status int, code, message string) *AppError {
	return &AppError{Problem: Problem{Code: code, Message: message}, Status: status}
}

// With attaches a detail parameter.
func (e *AppError) With(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// OnField names the request field at fault.
func (e *AppError) OnField(field string) *AppError {
	e.Field = field
	return e
}

// Wrap keeps err as the cause; it is logged, never serialised.
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, "ERR_NOT_FOUND", message)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, "ERR_BAD_REQUEST", message)
}

// Unprocessable is for well-formed requests the stored data cannot satisfy.
func Unprocessable(message string) *AppError {
	return NewAppError(http.StatusUnprocessableEntity, "ERR_UNPROCESSABLE", message)
}

func Internal(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, "ERR_INTERNAL", message)
}
