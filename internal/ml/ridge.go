package ml

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// PolyRidge expands the inputs into all monomials up to Degree and fits an L2-penalised
// least squares model with an unpenalised intercept.
type PolyRidge struct {
	Degree int
	Alpha  float64

	p         int
	terms     [][]int
	coef      []float64
	intercept float64
	fitted    bool
}

// NewPolyRidge returns a polynomial ridge regressor.
func NewPolyRidge(degree int, alpha float64) *PolyRidge {
	return &PolyRidge{Degree: degree, Alpha: alpha}
}

// polyTerms lists the monomials of degree 1..degree over p inputs as index multisets,
// ordered by degree then lexicographically.
func polyTerms(p, degree int) [][]int {
	var out [][]int
	var rec func(start int, cur []int, left int)
	rec = func(start int, cur []int, left int) {
		if left == 0 {
			out = append(out, append([]int(nil), cur...))
			return
		}
		for j := start; j < p; j++ {
			rec(j, append(cur, j), left-1)
		}
	}
	for d := 1; d <= degree; d++ {
		rec(0, nil, d)
	}
	return out
}

func (m *PolyRidge) expand(row []float64) []float64 {
	out := make([]float64, len(m.terms))
	for t, term := range m.terms {
		v := 1.0
		for _, j := range term {
			v *= row[j]
		}
		out[t] = v
	}
	return out
}

func (m *PolyRidge) Fit(X [][]float64, y []float64) error {
	p, err := checkFit(X, y)
	if err != nil {
		return fmt.Errorf("poly ridge: %w", err)
	}
	if m.Degree < 1 {
		return fmt.Errorf("poly ridge: degree %d < 1", m.Degree)
	}
	m.p = p
	m.terms = polyTerms(p, m.Degree)
	n, q := len(X), len(m.terms)

	Z := mat.NewDense(n, q, nil)
	for i, row := range X {
		Z.SetRow(i, m.expand(row))
	}
	means := make([]float64, q)
	for j := 0; j < q; j++ {
		means[j] = floats.Sum(mat.Col(nil, j, Z)) / float64(n)
	}
	yMean := floats.Sum(y) / float64(n)
	for i := 0; i < n; i++ {
		for j := 0; j < q; j++ {
			Z.Set(i, j, Z.At(i, j)-means[j])
		}
	}
	yc := make([]float64, n)
	for i, v := range y {
		yc[i] = v - yMean
	}

	var gram mat.SymDense
	gram.SymOuterK(1, Z.T())
	for j := 0; j < q; j++ {
		gram.SetSym(j, j, gram.At(j, j)+m.Alpha)
	}
	var rhs mat.VecDense
	rhs.MulVec(Z.T(), mat.NewVecDense(n, yc))

	var w mat.VecDense
	var chol mat.Cholesky
	if ok := chol.Factorize(&gram); ok {
		if err := chol.SolveVecTo(&w, &rhs); err != nil {
			return fmt.Errorf("poly ridge: solve: %w", err)
		}
	} else if err := w.SolveVec(&gram, &rhs); err != nil {
		return fmt.Errorf("poly ridge: solve: %w", err)
	}

	m.coef = make([]float64, q)
	for j := range m.coef {
		m.coef[j] = w.AtVec(j)
	}
	m.intercept = yMean - floats.Dot(means, m.coef)
	m.fitted = true
	return nil
}

func (m *PolyRidge) Predict(X [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := checkPredict(X, m.p); err != nil {
		return nil, fmt.Errorf("poly ridge: %w", err)
	}
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = m.intercept + floats.Dot(m.expand(row), m.coef)
	}
	return out, nil
}
