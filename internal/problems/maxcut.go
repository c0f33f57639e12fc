// Package problems reduces classical combinatorial problems to QUBO form with
// the penalty method.
package problems

import (
	"github.com/cwbudde/varqopt/internal/adjacency"
	"github.com/cwbudde/varqopt/internal/qubo"
)

// MaxCut encodes the weighted max-cut of the (symmetrised) graph as
//
//	C(x) = -sum_{i<j} w_ij (x_i + x_j - 2 x_i x_j)
//
// so the QUBO minimum is the negative maximum cut weight.
func MaxCut(src adjacency.Source) (*qubo.Problem, error) {
	a, err := adjacency.Symmetric(src)
	if err != nil {
		return nil, err
	}
	n := a.SymmetricDim()

	linear := make(map[int]float64)
	quadratic := make(map[qubo.Pair]float64)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			w := a.At(i, j)
			if w == 0 {
				continue
			}
			linear[i] -= w
			linear[j] -= w
			quadratic[qubo.Pair{I: i, J: j}] += 2 * w
		}
	}
	dropZeros(linear)
	return qubo.FromDict(n, linear, quadratic)
}

// CutWeight returns the total weight of edges whose endpoints fall on
// different sides of the assignment.
func CutWeight(src adjacency.Source, side []bool) (float64, error) {
	a, err := adjacency.Symmetric(src)
	if err != nil {
		return 0, err
	}
	n := a.SymmetricDim()
	if len(side) != n {
		return 0, &ValidationError{Field: "assignment", Reason: "length does not match node count"}
	}
	var cut float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if side[i] != side[j] {
				cut += a.At(i, j)
			}
		}
	}
	return cut, nil
}

func dropZeros(m map[int]float64) {
	for k, v := range m {
		if v == 0 {
			delete(m, k)
		}
	}
}

// ValidationError reports malformed problem data.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "problems: invalid " + e.Field + ": " + e.Reason
}
