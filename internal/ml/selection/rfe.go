// Package selection reduces the feature set with recursive feature elimination.
package selection

import (
	"fmt"

	"FinCast/internal/domain/models"
	"FinCast/internal/ml"
)

// Reference builds the importance-reporting estimator refitted at every elimination round.
type Reference func() ml.Estimator

// AdaBoostReference is the default reference: AdaBoost.R2 over depth-bounded trees.
func AdaBoostReference(nEstimators, maxDepth int, seed int64) Reference {
	return func() ml.Estimator {
		return ml.NewAdaBoostRegressor(ml.AdaBoostParams{
			NEstimators:  nEstimators,
			LearningRate: 1,
			Base:         ml.TreeParams{MaxDepth: maxDepth, MinSamplesSplit: 2},
			Seed:         seed,
		})
	}
}

// RFE drops the least important feature one at a time until K remain.
type RFE struct {
	K         int
	Reference Reference
}

// NewRFE returns an eliminator keeping k features.
func NewRFE(k int, ref Reference) *RFE {
	return &RFE{K: k, Reference: ref}
}

// Selection is the retained column subset; it is never modified after Fit returns.
type Selection struct {
	// Indices are the retained positions in the original column order.
	Indices []int
	Columns []string
	// Ranking is 1 for retained columns and grows with earlier elimination.
	Ranking []int
}

// Fit ranks the columns of X. Ties in importance drop the lowest index first.
func (r *RFE) Fit(X [][]float64, y []float64, columns []string) (*Selection, error) {
	if len(X) == 0 {
		return nil, fmt.Errorf("rfe: %w", ml.ErrEmptyInput)
	}
	p := len(X[0])
	if len(columns) != p {
		return nil, fmt.Errorf("rfe: %d column names for %d features", len(columns), p)
	}
	if r.K < 1 || r.K > p {
		return nil, &models.ConfigError{Field: "k", Reason: fmt.Sprintf("must be in [1,%d], got %d", p, r.K)}
	}
	if r.Reference == nil {
		return nil, &models.ConfigError{Field: "reference", Reason: "missing reference estimator"}
	}

	active := make([]int, p)
	for j := range active {
		active[j] = j
	}
	ranking := make([]int, p)
	rank := p - r.K + 1
	for len(active) > r.K {
		est := r.Reference()
		if err := est.Fit(ml.Columns(X, active), y); err != nil {
			return nil, fmt.Errorf("rfe: fit with %d features: %w", len(active), err)
		}
		imp, ok := est.(ml.Importancer)
		if !ok {
			return nil, &models.ConfigError{Field: "reference", Reason: fmt.Sprintf("%T reports no importances", est)}
		}
		scores := imp.FeatureImportances()
		weakest := 0
		for k := 1; k < len(scores); k++ {
			if scores[k] < scores[weakest] {
				weakest = k
			}
		}
		ranking[active[weakest]] = rank
		rank--
		active = append(active[:weakest:weakest], active[weakest+1:]...)
	}

	sel := &Selection{Indices: active, Ranking: ranking}
	for _, j := range active {
		ranking[j] = 1
		sel.Columns = append(sel.Columns, columns[j])
	}
	return sel, nil
}

// Apply projects X onto the retained columns.
func (s *Selection) Apply(X [][]float64) [][]float64 {
	return ml.Columns(X, s.Indices)
}
