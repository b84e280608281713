package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// SVCParams configure the linear support vector classifier.
type SVCParams struct {
	C       float64
	Tol     float64
	MaxIter int
	Seed    int64
}

// DefaultSVCParams returns C=1, tol 1e-4 and 1000 passes.
func DefaultSVCParams() SVCParams {
	return SVCParams{C: 1, Tol: 1e-4, MaxIter: 1000}
}

// LinearSVC is an L2-regularised squared-hinge linear classifier solved by dual coordinate
// descent. More than two classes are handled one-vs-rest. The intercept is learned as the
// weight of a constant input of 1 and is regularised like the other weights.
type LinearSVC struct {
	SVCParams

	classes []float64
	// w[c] holds p feature weights followed by the intercept.
	w      [][]float64
	p      int
	fitted bool
}

// NewLinearSVC returns a linear SVM classifier.
func NewLinearSVC(params SVCParams) *LinearSVC {
	def := DefaultSVCParams()
	if params.C <= 0 {
		params.C = def.C
	}
	if params.Tol <= 0 {
		params.Tol = def.Tol
	}
	if params.MaxIter <= 0 {
		params.MaxIter = def.MaxIter
	}
	return &LinearSVC{SVCParams: params}
}

func (m *LinearSVC) Fit(X [][]float64, y []float64) error {
	p, err := checkFit(X, y)
	if err != nil {
		return fmt.Errorf("linear svc: %w", err)
	}
	m.classes = uniqueSorted(y)
	if len(m.classes) < 2 {
		return fmt.Errorf("linear svc: %w", ErrSingleClass)
	}
	m.p = p
	aug := make([][]float64, len(X))
	for i, row := range X {
		r := make([]float64, p+1)
		copy(r, row)
		r[p] = 1
		aug[i] = r
	}
	rng := rand.New(rand.NewSource(m.Seed))

	if len(m.classes) == 2 {
		m.w = [][]float64{m.solve(aug, signs(y, m.classes[1]), rng)}
	} else {
		m.w = make([][]float64, len(m.classes))
		for c, cls := range m.classes {
			m.w[c] = m.solve(aug, signs(y, cls), rng)
		}
	}
	m.fitted = true
	return nil
}

func signs(y []float64, positive float64) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		if v == positive {
			out[i] = 1
		} else {
			out[i] = -1
		}
	}
	return out
}

// solve runs dual coordinate descent for one binary problem with labels in {-1,+1}.
func (m *LinearSVC) solve(X [][]float64, y []float64, rng *rand.Rand) []float64 {
	n, d := len(X), len(X[0])
	diag := 1 / (2 * m.C)
	w := make([]float64, d)
	alpha := make([]float64, n)
	qd := make([]float64, n)
	for i, row := range X {
		s := diag
		for _, v := range row {
			s += v * v
		}
		qd[i] = s
	}

	for iter := 0; iter < m.MaxIter; iter++ {
		pgMax, pgMin := math.Inf(-1), math.Inf(1)
		for _, i := range rng.Perm(n) {
			row := X[i]
			g := 0.0
			for j, v := range row {
				g += w[j] * v
			}
			g = y[i]*g - 1 + diag*alpha[i]

			pg := g
			if alpha[i] == 0 && g > 0 {
				pg = 0
			}
			pgMax = math.Max(pgMax, pg)
			pgMin = math.Min(pgMin, pg)
			if math.Abs(pg) <= 1e-12 {
				continue
			}
			old := alpha[i]
			alpha[i] = math.Max(alpha[i]-g/qd[i], 0)
			delta := (alpha[i] - old) * y[i]
			for j, v := range row {
				w[j] += delta * v
			}
		}
		if pgMax-pgMin <= m.Tol {
			break
		}
	}
	return w
}

func (m *LinearSVC) decision(row []float64, w []float64) float64 {
	s := w[m.p]
	for j, v := range row {
		s += w[j] * v
	}
	return s
}

func (m *LinearSVC) Predict(X [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := checkPredict(X, m.p); err != nil {
		return nil, fmt.Errorf("linear svc: %w", err)
	}
	out := make([]float64, len(X))
	for i, row := range X {
		if len(m.w) == 1 {
			if m.decision(row, m.w[0]) > 0 {
				out[i] = m.classes[1]
			} else {
				out[i] = m.classes[0]
			}
			continue
		}
		best, bestScore := 0, math.Inf(-1)
		for c, w := range m.w {
			if s := m.decision(row, w); s > bestScore {
				best, bestScore = c, s
			}
		}
		out[i] = m.classes[best]
	}
	return out, nil
}
