package opt

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// NelderMead is a downhill-simplex minimiser driven by gonum/optimize.
// MaxIter caps objective evaluations.
type NelderMead struct {
	MaxIter int
	// FuncTol is the absolute change in the best value below which the run
	// counts as converged after FuncTolIters major iterations.
	FuncTol      float64
	FuncTolIters int
}

// NewNelderMead creates a simplex optimizer with an evaluation budget.
func NewNelderMead(maxIter int) *NelderMead {
	return &NelderMead{MaxIter: maxIter, FuncTol: 1e-6, FuncTolIters: 50}
}

func (nm *NelderMead) Name() string { return "neldermead" }

func (nm *NelderMead) Run(ctx context.Context, p Problem) (*Result, error) {
	if p.Dim() == 0 {
		return nil, fmt.Errorf("opt: empty initial point")
	}

	var (
		evals  int
		objErr error
	)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if objErr != nil {
				return math.Inf(1)
			}
			if err := ctx.Err(); err != nil {
				objErr = err
				return math.Inf(1)
			}
			evals++
			f, err := p.Objective(x)
			if err != nil {
				objErr = err
				return math.Inf(1)
			}
			return f
		},
		Status: func() (optimize.Status, error) {
			if objErr != nil {
				return optimize.Failure, objErr
			}
			return optimize.NotTerminated, nil
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: nm.MaxIter,
		Converger: &optimize.FunctionConverge{
			Absolute:   nm.FuncTol,
			Iterations: nm.FuncTolIters,
		},
	}
	method := &optimize.NelderMead{SimplexSize: p.Step}

	res, err := optimize.Minimize(problem, append([]float64(nil), p.Initial...), settings, method)
	if objErr != nil {
		return nil, objErr
	}
	if err != nil {
		return nil, fmt.Errorf("opt: nelder-mead: %w", err)
	}

	return &Result{
		X:          res.X,
		F:          res.F,
		FuncEvals:  evals,
		Iterations: res.Stats.MajorIterations,
		Converged:  converged(res.Status),
		Status:     res.Status.String(),
	}, nil
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.FunctionConvergence, optimize.FunctionThreshold,
		optimize.StepConvergence, optimize.MethodConverge, optimize.GradientThreshold:
		return true
	}
	return false
}
