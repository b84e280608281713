package models

import "fmt"

// InsufficientDataError reports a history too short for lookback + horizon.
type InsufficientDataError struct {
	Ticker string
	Have   int
	Need   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: have %d bars, need %d", e.Ticker, e.Have, e.Need)
}

// MissingTickerError reports a ticker absent from the available universe.
type MissingTickerError struct {
	Ticker string
}

func (e *MissingTickerError) Error() string {
	return fmt.Sprintf("ticker %q not found", e.Ticker)
}

// SearchExhaustedError reports that every (candidate, fold) unit of a search failed.
type SearchExhaustedError struct {
	Candidates int
	Folds      int
	Failures   int
	LastErr    error
}

func (e *SearchExhaustedError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("search exhausted: %d/%d units failed over %d candidates: %v",
			e.Failures, e.Candidates*e.Folds, e.Candidates, e.LastErr)
	}
	return fmt.Sprintf("search exhausted: %d/%d units failed over %d candidates",
		e.Failures, e.Candidates*e.Folds, e.Candidates)
}

func (e *SearchExhaustedError) Unwrap() error { return e.LastErr }

// ConfigError reports an invalid pipeline or model setting.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidSeriesError reports a PriceSeries that breaks the ordering invariant.
type InvalidSeriesError struct {
	Ticker string
	Reason string
}

func (e *InvalidSeriesError) Error() string {
	return fmt.Sprintf("invalid series %s: %s", e.Ticker, e.Reason)
}
