// Package opt provides derivative-free minimisers for noisy objectives.
package opt

import (
	"context"
	"fmt"
)

// Objective evaluates the cost at x. An error aborts the optimisation and is
// returned from Run unchanged.
type Objective func(x []float64) (float64, error)

// Problem describes a minimisation.
type Problem struct {
	Objective Objective
	// Initial is the starting point; its length fixes the dimension.
	Initial []float64
	// Lower and Upper are box bounds. Population methods need them; simplex
	// methods ignore them.
	Lower, Upper []float64
	// Step is the initial exploration radius around Initial (simplex size).
	Step float64
}

// Dim returns the problem dimension.
func (p Problem) Dim() int { return len(p.Initial) }

// Result reports the best point found and the run diagnostics.
type Result struct {
	X          []float64
	F          float64
	FuncEvals  int
	Iterations int
	Converged  bool
	Status     string
}

// Optimizer defines an optimization algorithm interface
type Optimizer interface {
	// Run minimises p.Objective. It blocks on every objective call.
	Run(ctx context.Context, p Problem) (*Result, error)
	Name() string
}

// New returns the optimizer registered under name ("neldermead" or
// "mayfly") configured with an evaluation budget and seed.
func New(name string, maxIter int, seed int64) (Optimizer, error) {
	switch name {
	case "", "neldermead":
		return NewNelderMead(maxIter), nil
	case "mayfly":
		return NewMayfly(maxIter, DefaultPopSize, seed), nil
	default:
		return nil, &UnknownError{Name: name}
	}
}

// UnknownError is returned by New for unrecognised optimizer names.
type UnknownError struct {
	Name string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("opt: unknown optimizer %q; choose neldermead or mayfly", e.Name)
}
