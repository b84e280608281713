package search

import (
	"fmt"
	"math/rand"
	"sort"

	"FinCast/internal/ml"
	"FinCast/internal/ml/ensemble"
)

// Distribution draws values of one hyperparameter.
type Distribution interface {
	Sample(rng *rand.Rand) float64
	Contains(v float64) bool
	String() string
}

// IntUniform draws integers uniformly from [Low, High).
type IntUniform struct {
	Low, High int
}

func (d IntUniform) Sample(rng *rand.Rand) float64 {
	return float64(d.Low + rng.Intn(d.High-d.Low))
}

func (d IntUniform) Contains(v float64) bool {
	return v == float64(int(v)) && v >= float64(d.Low) && v < float64(d.High)
}

func (d IntUniform) String() string { return fmt.Sprintf("randint[%d,%d)", d.Low, d.High) }

// Uniform draws reals uniformly from [Loc, Loc+Scale).
type Uniform struct {
	Loc, Scale float64
}

func (d Uniform) Sample(rng *rand.Rand) float64 {
	return d.Loc + rng.Float64()*d.Scale
}

func (d Uniform) Contains(v float64) bool {
	return v >= d.Loc && v < d.Loc+d.Scale
}

func (d Uniform) String() string { return fmt.Sprintf("uniform[%g,%g)", d.Loc, d.Loc+d.Scale) }

// Space maps flat ensemble parameter names to their distributions.
type Space map[string]Distribution

// RegressionSpace is the search space of the regression ensemble.
func RegressionSpace() Space {
	return Space{
		ensemble.ParamKNNNeighbors:       IntUniform{1, 5},
		ensemble.ParamDTMaxDepth:         IntUniform{4, 7},
		ensemble.ParamDTMinSamplesSplit:  IntUniform{2, 10},
		ensemble.ParamDTMaxFeatures:      IntUniform{2, 5},
		ensemble.ParamAdbMaxDepth:        IntUniform{4, 7},
		ensemble.ParamAdbMinSamplesSplit: IntUniform{2, 10},
		ensemble.ParamAdbMaxFeatures:     IntUniform{2, 5},
		ensemble.ParamAdbNEstimators:     IntUniform{1, 5000},
		ensemble.ParamXGBColsample:       Uniform{0.7, 0.3},
		ensemble.ParamXGBGamma:           Uniform{0, 0.5},
		ensemble.ParamXGBLearningRate:    Uniform{0.03, 0.3},
		ensemble.ParamXGBMaxDepth:        IntUniform{2, 6},
		ensemble.ParamXGBNEstimators:     IntUniform{100, 150},
		ensemble.ParamXGBSubsample:       Uniform{0.6, 0.4},
	}
}

// Names returns the parameter names in sampling order.
func (s Space) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Sample draws one value per parameter, in name order so a seed fixes the whole draw.
func (s Space) Sample(rng *rand.Rand) map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, n := range s.Names() {
		out[n] = s[n].Sample(rng)
	}
	return out
}

// Contains reports whether params names exactly the space's parameters with admissible values.
func (s Space) Contains(params map[string]float64) bool {
	if len(params) != len(s) {
		return false
	}
	for n, v := range params {
		d, ok := s[n]
		if !ok || !d.Contains(v) {
			return false
		}
	}
	return true
}

// ConfigFactory builds voting ensembles from base with the sampled parameters applied.
// base itself is never modified.
func ConfigFactory(base ensemble.Config) Factory {
	return func(params map[string]float64) (ml.Estimator, error) {
		cfg, err := base.With(params)
		if err != nil {
			return nil, err
		}
		return cfg.Build()
	}
}
