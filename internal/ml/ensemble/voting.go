package ensemble

import (
	"fmt"

	"FinCast/internal/ml"
)

// Member is a named sub-model of a voting ensemble.
type Member struct {
	Name      string
	Estimator ml.Estimator
}

type voting struct {
	members []Member
	fitted  bool
}

func (v *voting) fit(X [][]float64, y []float64) error {
	if len(v.members) == 0 {
		return fmt.Errorf("voting: no members")
	}
	for _, m := range v.members {
		if err := m.Estimator.Fit(X, y); err != nil {
			return fmt.Errorf("voting: fit %s: %w", m.Name, err)
		}
	}
	v.fitted = true
	return nil
}

// predictAll returns one prediction column per member.
func (v *voting) predictAll(X [][]float64) ([][]float64, error) {
	if !v.fitted {
		return nil, ml.ErrNotFitted
	}
	out := make([][]float64, len(v.members))
	for k, m := range v.members {
		p, err := m.Estimator.Predict(X)
		if err != nil {
			return nil, fmt.Errorf("voting: predict %s: %w", m.Name, err)
		}
		out[k] = p
	}
	return out, nil
}

// Members returns the sub-models in member order.
func (v *voting) Members() []Member { return v.members }

// VotingRegressor predicts the unweighted mean of its members.
type VotingRegressor struct {
	voting
}

// NewVotingRegressor returns an averaging ensemble over members.
func NewVotingRegressor(members ...Member) *VotingRegressor {
	return &VotingRegressor{voting{members: members}}
}

func (v *VotingRegressor) Fit(X [][]float64, y []float64) error { return v.fit(X, y) }

func (v *VotingRegressor) Predict(X [][]float64) ([]float64, error) {
	cols, err := v.predictAll(X)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i := range out {
		s := 0.0
		for _, c := range cols {
			s += c[i]
		}
		out[i] = s / float64(len(cols))
	}
	return out, nil
}

// VotingClassifier predicts the majority label of its members; ties go to the smallest label.
type VotingClassifier struct {
	voting
}

// NewVotingClassifier returns a hard-voting ensemble over members.
func NewVotingClassifier(members ...Member) *VotingClassifier {
	return &VotingClassifier{voting{members: members}}
}

func (v *VotingClassifier) Fit(X [][]float64, y []float64) error { return v.fit(X, y) }

func (v *VotingClassifier) Predict(X [][]float64) ([]float64, error) {
	cols, err := v.predictAll(X)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	votes := make([]float64, len(cols))
	for i := range out {
		for k, c := range cols {
			votes[k] = c[i]
		}
		out[i] = ml.Mode(votes)
	}
	return out, nil
}
