// Package qubo holds sparse quadratic unconstrained binary optimisation
// problems and evaluates them on single assignments or sample batches.
package qubo

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Pair is a quadratic term key. Normalised pairs satisfy I < J.
type Pair struct {
	I, J int
}

// LinearTerm is a single coefficient c_i of x_i.
type LinearTerm struct {
	Index int
	Coeff float64
}

// QuadraticTerm is a single coefficient c_ij of x_i x_j with I < J.
type QuadraticTerm struct {
	I, J  int
	Coeff float64
}

// Problem is a sparse quadratic binary objective
//
//	min  offset + sum_i c_i x_i + sum_{i<j} c_ij x_i x_j,   x in {0,1}^n
//
// Problems are immutable after construction. Terms are kept in index order so
// evaluation and circuit emission are deterministic.
type Problem struct {
	n         int
	linear    []LinearTerm
	quadratic []QuadraticTerm
	offset    float64
}

// New builds a Problem from already normalised coefficient maps.
// Quadratic keys must satisfy I < J; use FromDict for unordered pairs.
func New(n int, linear map[int]float64, quadratic map[Pair]float64) (*Problem, error) {
	if n <= 0 {
		return nil, &ValidationError{Field: "n", Reason: fmt.Sprintf("must be positive, got %d", n)}
	}

	p := &Problem{n: n}
	for i, c := range linear {
		if i < 0 || i >= n {
			return nil, &ValidationError{Field: "linear", Reason: fmt.Sprintf("key %d out of range [0, %d)", i, n)}
		}
		p.linear = append(p.linear, LinearTerm{Index: i, Coeff: c})
	}
	for k, c := range quadratic {
		if k.I >= k.J {
			return nil, &ValidationError{
				Field:  "quadratic",
				Reason: fmt.Sprintf("key (%d,%d) must satisfy i < j", k.I, k.J),
			}
		}
		if k.I < 0 || k.J >= n {
			return nil, &ValidationError{Field: "quadratic", Reason: fmt.Sprintf("key (%d,%d) out of range", k.I, k.J)}
		}
		p.quadratic = append(p.quadratic, QuadraticTerm{I: k.I, J: k.J, Coeff: c})
	}

	sort.Slice(p.linear, func(a, b int) bool { return p.linear[a].Index < p.linear[b].Index })
	sort.Slice(p.quadratic, func(a, b int) bool {
		if p.quadratic[a].I != p.quadratic[b].I {
			return p.quadratic[a].I < p.quadratic[b].I
		}
		return p.quadratic[a].J < p.quadratic[b].J
	})
	return p, nil
}

// FromDict builds a Problem from coefficient maps whose quadratic keys may be
// unordered. (i,j) and (j,i) are folded into (min, max) by summing; a diagonal
// pair (i,i) is folded into the linear term since x_i*x_i = x_i.
func FromDict(n int, linear map[int]float64, quadratic map[Pair]float64) (*Problem, error) {
	lin := make(map[int]float64, len(linear))
	for i, c := range linear {
		lin[i] = c
	}

	quad := make(map[Pair]float64, len(quadratic))
	for k, c := range quadratic {
		i, j := k.I, k.J
		if i == j {
			lin[i] += c
			continue
		}
		if i > j {
			i, j = j, i
		}
		quad[Pair{I: i, J: j}] += c
	}
	return New(n, lin, quad)
}

// FromMatrix builds a Problem from a square matrix. The diagonal becomes the
// linear terms and M[i,j]+M[j,i] the quadratic term for i<j. Exact zeros are dropped.
func FromMatrix(m mat.Matrix) (*Problem, error) {
	r, c := m.Dims()
	if r != c {
		return nil, &ValidationError{Field: "matrix", Reason: fmt.Sprintf("must be square, got %dx%d", r, c)}
	}

	linear := make(map[int]float64)
	quadratic := make(map[Pair]float64)
	for i := 0; i < r; i++ {
		if v := m.At(i, i); v != 0 {
			linear[i] = v
		}
		for j := i + 1; j < r; j++ {
			if w := m.At(i, j) + m.At(j, i); w != 0 {
				quadratic[Pair{I: i, J: j}] = w
			}
		}
	}
	return New(r, linear, quadratic)
}

// WithOffset returns a copy of p carrying the constant energy offset c.
func (p *Problem) WithOffset(c float64) *Problem {
	cp := *p
	cp.offset = c
	return &cp
}

// N returns the number of binary variables.
func (p *Problem) N() int { return p.n }

// Offset returns the constant energy term.
func (p *Problem) Offset() float64 { return p.offset }

// LinearTerms returns the linear terms in index order. The slice must not be modified.
func (p *Problem) LinearTerms() []LinearTerm { return p.linear }

// QuadraticTerms returns the quadratic terms in (i, j) order. The slice must not be modified.
func (p *Problem) QuadraticTerms() []QuadraticTerm { return p.quadratic }

// Linear returns a copy of the linear coefficients.
func (p *Problem) Linear() map[int]float64 {
	out := make(map[int]float64, len(p.linear))
	for _, t := range p.linear {
		out[t.Index] = t.Coeff
	}
	return out
}

// Quadratic returns a copy of the quadratic coefficients.
func (p *Problem) Quadratic() map[Pair]float64 {
	out := make(map[Pair]float64, len(p.quadratic))
	for _, t := range p.quadratic {
		out[Pair{I: t.I, J: t.J}] = t.Coeff
	}
	return out
}

// Evaluate returns the objective for one assignment. Entries are usually 0/1
// but any real relaxation is accepted.
func (p *Problem) Evaluate(x []float64) (float64, error) {
	if len(x) < p.n {
		return 0, &LengthError{Got: len(x), Want: p.n}
	}
	cost := p.offset
	for _, t := range p.linear {
		cost += t.Coeff * x[t.Index]
	}
	for _, t := range p.quadratic {
		cost += t.Coeff * x[t.I] * x[t.J]
	}
	return cost, nil
}

// EvaluateBits evaluates a boolean assignment.
func (p *Problem) EvaluateBits(x []bool) (float64, error) {
	if len(x) < p.n {
		return 0, &LengthError{Got: len(x), Want: p.n}
	}
	cost := p.offset
	for _, t := range p.linear {
		if x[t.Index] {
			cost += t.Coeff
		}
	}
	for _, t := range p.quadratic {
		if x[t.I] && x[t.J] {
			cost += t.Coeff
		}
	}
	return cost, nil
}

// EvaluateBatch evaluates every row of X (n_samples x n) using column
// selection and element-wise products only.
func (p *Problem) EvaluateBatch(X mat.Matrix) ([]float64, error) {
	rows, cols := X.Dims()
	if cols < p.n {
		return nil, &LengthError{Got: cols, Want: p.n}
	}

	costs := make([]float64, rows)
	if rows == 0 {
		return costs, nil
	}
	for i := range costs {
		costs[i] = p.offset
	}

	columns := make(map[int][]float64)
	column := func(j int) []float64 {
		if c, ok := columns[j]; ok {
			return c
		}
		c := mat.Col(nil, j, X)
		columns[j] = c
		return c
	}

	for _, t := range p.linear {
		floats.AddScaled(costs, t.Coeff, column(t.Index))
	}
	prod := make([]float64, rows)
	for _, t := range p.quadratic {
		floats.MulTo(prod, column(t.I), column(t.J))
		floats.AddScaled(costs, t.Coeff, prod)
	}
	return costs, nil
}

// ToMatrix returns the upper-triangular coefficient matrix. The offset is not represented.
func (p *Problem) ToMatrix() *mat.Dense {
	q := mat.NewDense(p.n, p.n, nil)
	for _, t := range p.linear {
		q.Set(t.Index, t.Index, t.Coeff)
	}
	for _, t := range p.quadratic {
		q.Set(t.I, t.J, t.Coeff)
	}
	return q
}

func (p *Problem) String() string {
	return fmt.Sprintf("qubo.Problem(n=%d, linear_terms=%d, quadratic_terms=%d)",
		p.n, len(p.linear), len(p.quadratic))
}
