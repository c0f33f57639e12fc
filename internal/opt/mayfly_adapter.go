package opt

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// DefaultPopSize is the smallest population mayfly v0.1.0 accepts.
const DefaultPopSize = 20

// MayflyAdapter wraps the external Mayfly library to conform to our Optimizer interface.
// Mayfly explores the whole box [min(Lower), max(Upper)] and ignores Initial.
type MayflyAdapter struct {
	maxIters    int
	popSize     int
	seed        int64
	convergence ConvergenceConfig
}

// NewMayfly creates a new Mayfly optimizer adapter
func NewMayfly(maxIters, popSize int, seed int64) *MayflyAdapter {
	return &MayflyAdapter{
		maxIters:    maxIters,
		popSize:     max(popSize, DefaultPopSize),
		seed:        seed,
		convergence: DefaultConvergenceConfig(),
	}
}

// WithConvergence replaces the early-stop configuration.
func (m *MayflyAdapter) WithConvergence(cfg ConvergenceConfig) *MayflyAdapter {
	m.convergence = cfg
	return m
}

func (m *MayflyAdapter) Name() string { return "mayfly" }

// Run executes the Mayfly optimization using the external library. The best
// cost of each population-sized batch of evaluations feeds a
// ConvergenceTracker; once it reports convergence the remaining evaluations
// are skipped.
func (m *MayflyAdapter) Run(ctx context.Context, p Problem) (*Result, error) {
	dim := p.Dim()
	if dim == 0 {
		return nil, fmt.Errorf("opt: empty initial point")
	}
	if len(p.Lower) == 0 || len(p.Upper) == 0 {
		return nil, fmt.Errorf("opt: mayfly needs lower and upper bounds")
	}

	tracker := NewConvergenceTracker(m.convergence)
	var (
		evals     int
		objErr    error
		done      bool
		batchBest = math.Inf(1)
	)
	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = func(x []float64) float64 {
		if done || objErr != nil {
			return math.Inf(1)
		}
		if err := ctx.Err(); err != nil {
			objErr = err
			return math.Inf(1)
		}
		f, err := p.Objective(x)
		if err != nil {
			objErr = err
			return math.Inf(1)
		}
		evals++
		batchBest = math.Min(batchBest, f)
		if evals%m.popSize == 0 {
			done = tracker.Update(batchBest)
		}
		return f
	}
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize

	// The library uses scalar bounds.
	config.LowerBound = minOf(p.Lower)
	config.UpperBound = maxOf(p.Upper)

	// Set random seed for reproducibility
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if objErr != nil {
		return nil, objErr
	}
	if err != nil {
		return nil, fmt.Errorf("opt: mayfly: %w", err)
	}

	slog.Debug("Mayfly finished", "evaluations", evals, "best_cost", result.GlobalBest.Cost, "converged", done)
	status := "IterationLimit"
	if done {
		status = "FunctionConvergence"
	}
	return &Result{
		X:          append([]float64(nil), result.GlobalBest.Position...),
		F:          result.GlobalBest.Cost,
		FuncEvals:  evals,
		Iterations: tracker.Updates(),
		Converged:  done,
		Status:     status,
	}, nil
}

func minOf(xs []float64) float64 {
	m := math.Inf(1)
	for _, x := range xs {
		m = math.Min(m, x)
	}
	return m
}

func maxOf(xs []float64) float64 {
	m := math.Inf(-1)
	for _, x := range xs {
		m = math.Max(m, x)
	}
	return m
}
