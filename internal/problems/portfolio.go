package problems

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/varqopt/internal/qubo"
)

// PortfolioOption configures Portfolio.
type PortfolioOption func(*portfolioOptions)

type portfolioOptions struct {
	riskFactor float64
	budget     *int
	penalty    *float64
}

// WithRiskFactor weights the variance term against the return term. Default 1.
func WithRiskFactor(q float64) PortfolioOption {
	return func(o *portfolioOptions) { o.riskFactor = q }
}

// WithBudget adds the cardinality constraint "select exactly b assets".
func WithBudget(b int) PortfolioOption {
	return func(o *portfolioOptions) { o.budget = &b }
}

// WithBudgetPenalty overrides the budget penalty, which defaults to
// max|r_i| * n. It has no effect without WithBudget.
func WithBudgetPenalty(a float64) PortfolioOption {
	return func(o *portfolioOptions) { o.penalty = &a }
}

// Portfolio encodes Markowitz mean-variance selection
//
//	C(x) = -sum_i r_i x_i + q * sum_ij sigma_ij x_i x_j  [+ A (sum_i x_i - B)²]
//
// The constraint constant A*B² is carried as the problem offset.
func Portfolio(returns []float64, covariance mat.Matrix, opts ...PortfolioOption) (*qubo.Problem, error) {
	n := len(returns)
	if n == 0 {
		return nil, &ValidationError{Field: "returns", Reason: "is empty"}
	}
	r, c := covariance.Dims()
	if r != n || c != n {
		return nil, &ValidationError{Field: "covariance", Reason: fmt.Sprintf("must be (%d, %d), got (%d, %d)", n, n, r, c)}
	}

	o := portfolioOptions{riskFactor: 1}
	for _, fn := range opts {
		fn(&o)
	}
	q := o.riskFactor

	linear := make(map[int]float64)
	quadratic := make(map[qubo.Pair]float64)
	for i := 0; i < n; i++ {
		linear[i] = -returns[i] + q*covariance.At(i, i)
		for j := i + 1; j < n; j++ {
			if v := q * (covariance.At(i, j) + covariance.At(j, i)); v != 0 {
				quadratic[qubo.Pair{I: i, J: j}] += v
			}
		}
	}

	var offset float64
	if o.budget != nil {
		b := float64(*o.budget)
		a := defaultBudgetPenalty(returns)
		if o.penalty != nil {
			a = *o.penalty
		}
		for i := 0; i < n; i++ {
			linear[i] += a * (1 - 2*b)
			for j := i + 1; j < n; j++ {
				quadratic[qubo.Pair{I: i, J: j}] += 2 * a
			}
		}
		offset = a * b * b
	}

	dropZeros(linear)
	p, err := qubo.FromDict(n, linear, quadratic)
	if err != nil {
		return nil, err
	}
	return p.WithOffset(offset), nil
}

func defaultBudgetPenalty(returns []float64) float64 {
	abs := make([]float64, len(returns))
	for i, r := range returns {
		abs[i] = math.Abs(r)
	}
	return floats.Max(abs) * float64(len(returns))
}

// Selected returns the indices set in the assignment.
func Selected(solution []bool) []int {
	var idx []int
	for i, x := range solution {
		if x {
			idx = append(idx, i)
		}
	}
	return idx
}
