package dataset

import "FinCast/internal/domain/models"

// MinMaxScaler maps each column to [0,1] using the range seen at fit time.
// Values outside that range are not clipped.
type MinMaxScaler struct {
	Min   []float64 `json:"min"`
	Range []float64 `json:"range"`
}

var _ models.Scaler = (*MinMaxScaler)(nil)

// FitMinMax learns per-column minimum and range from X. A constant column gets range 1.
func FitMinMax(X [][]float64) *MinMaxScaler {
	if len(X) == 0 {
		return &MinMaxScaler{}
	}
	p := len(X[0])
	s := &MinMaxScaler{Min: make([]float64, p), Range: make([]float64, p)}
	maxs := make([]float64, p)
	copy(s.Min, X[0])
	copy(maxs, X[0])
	for _, row := range X[1:] {
		for j, v := range row {
			if v < s.Min[j] {
				s.Min[j] = v
			}
			if v > maxs[j] {
				maxs[j] = v
			}
		}
	}
	for j := range s.Range {
		s.Range[j] = maxs[j] - s.Min[j]
		if s.Range[j] == 0 {
			s.Range[j] = 1
		}
	}
	return s
}

// Transform returns a scaled copy of X; X is left untouched.
func (s *MinMaxScaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.Min[j]) / s.Range[j]
		}
		out[i] = scaled
	}
	return out
}
