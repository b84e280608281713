package api

import (
	"errors"
	"net/http"

	"FinCast/internal/domain/models"
	xhttp "FinCast/pkg/http"
)

// toAppError maps pipeline errors onto HTTP statuses.
func toAppError(err error) *xhttp.AppError {
	var (
		insufficient *models.InsufficientDataError
		missing      *models.MissingTickerError
		exhausted    *models.SearchExhaustedError
		cfgErr       *models.ConfigError
		invalid      *models.InvalidSeriesError
	)
	switch {
	case errors.As(err, &insufficient):
		return xhttp.Unprocessable(insufficient.Error()).
			With("have", insufficient.Have).
			With("need", insufficient.Need).
			Wrap(err)
	case errors.As(err, &missing):
		return xhttp.NotFound(missing.Error()).Wrap(err)
	case errors.As(err, &exhausted):
		return xhttp.NewAppError(http.StatusInternalServerError, "ERR_SEARCH_EXHAUSTED", exhausted.Error()).
			With("candidates", exhausted.Candidates).
			Wrap(err)
	case errors.As(err, &cfgErr):
		return xhttp.BadRequest(cfgErr.Error()).OnField(cfgErr.Field).Wrap(err)
	case errors.As(err, &invalid):
		return xhttp.Unprocessable(invalid.Error()).Wrap(err)
	default:
		return xhttp.Internal("forecast failed").Wrap(err)
	}
}
