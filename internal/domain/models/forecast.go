package models

import "time"

// ForecastPoint is one row of the frame handed to the plotting collaborator.
type ForecastPoint struct {
	Date     time.Time `json:"date"`
	Actual   float64   `json:"eod"`
	Forecast float64   `json:"forecast"`
	Signal   string    `json:"signal,omitempty"`
}

// CandidateReport summarises one evaluated hyperparameter combination.
type CandidateReport struct {
	Rank      int                `json:"rank"`
	MeanScore float64            `json:"mean_score"`
	StdScore  float64            `json:"std_score"`
	Folds     int                `json:"folds"`
	Params    map[string]float64 `json:"params"`
}

// ForecastResult is the output of one pipeline run.
type ForecastResult struct {
	RunID            string             `json:"run_id"`
	Ticker           string             `json:"ticker"`
	Mode             LabelMode          `json:"mode"`
	Horizon          int                `json:"horizon"`
	Points           []ForecastPoint    `json:"points"`
	EvaluationScore  float64            `json:"evaluation_score"`
	CVScore          float64            `json:"cv_score"`
	SelectedFeatures []string           `json:"selected_features"`
	BestParams       map[string]float64 `json:"best_params,omitempty"`
	TopCandidates    []CandidateReport  `json:"top_candidates,omitempty"`
	LabelSpread      map[string]int     `json:"label_spread,omitempty"`
	PredictedSpread  map[string]int     `json:"predicted_spread,omitempty"`
	LastBarDate      time.Time          `json:"last_bar_date"`
	GeneratedAt      time.Time          `json:"generated_at"`
}

// Forecasts returns the predicted values in row order.
func (r *ForecastResult) Forecasts() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.Forecast
	}
	return out
}

// ForecastRequest asks for one pipeline run. Shared by the HTTP API and the Kafka consumer.
type ForecastRequest struct {
	Ticker  string    `query:"ticker" json:"ticker" validate:"required,max=16"`
	Mode    LabelMode `query:"mode" json:"mode" default:"regression" validate:"oneof=regression classification"`
	Horizon int       `query:"horizon" json:"horizon" validate:"gte=0,lte=1000"`
	// Refresh bypasses the result cache.
	Refresh bool `query:"refresh" json:"refresh"`
}

// SignalRequest asks for the classification signal of one ticker.
type SignalRequest struct {
	Ticker  string `query:"ticker" json:"ticker" validate:"required,max=16"`
	Refresh bool   `query:"refresh" json:"refresh"`
}
