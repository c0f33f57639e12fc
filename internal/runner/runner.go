// Package runner turns a store.JobSpec into a finished store.RunRecord using
// the configured backend and optimizer.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/varqopt/internal/backend"
	"github.com/cwbudde/varqopt/internal/config"
	"github.com/cwbudde/varqopt/internal/problems"
	"github.com/cwbudde/varqopt/internal/solver"
	"github.com/cwbudde/varqopt/internal/store"
)

// Runner executes job specs. Both fields are read-only after construction,
// so one Runner may serve concurrent jobs.
type Runner struct {
	Config *config.Config
	// Metrics instruments the backend when non-nil.
	Metrics *backend.Metrics
}

// New returns a Runner for cfg.
func New(cfg *config.Config, metrics *backend.Metrics) *Runner {
	return &Runner{Config: cfg, Metrics: metrics}
}

// Check validates spec and builds its problem or Hamiltonian without
// running anything.
func (r *Runner) Check(spec store.JobSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	if spec.Problem != nil {
		if _, err := spec.Problem.Build(); err != nil {
			return err
		}
	}
	if len(spec.Hamiltonian) > 0 {
		if _, err := solver.NewSparsePauliOp(spec.Hamiltonian); err != nil {
			return err
		}
	}
	return nil
}

// Run solves spec and returns the filled record. observer may be nil.
func (r *Runner) Run(ctx context.Context, runID string, spec store.JobSpec, observer solver.Observer) (*store.RunRecord, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	b, err := r.Config.NewBackend(r.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}

	rec := store.NewRunRecord(runID, spec)
	rec.Optimizer = r.Config.Optimizer
	rec.Backend = r.Config.Backend.Kind

	slog.Info("Run started", "runID", runID, "solver", spec.Solver, "input", spec.Input(),
		"optimizer", rec.Optimizer, "backend", rec.Backend)
	start := time.Now()

	var result any
	switch spec.Solver {
	case store.SolverPCE:
		result, err = r.runPCE(ctx, spec, b, observer, rec)
	case store.SolverQAOA:
		result, err = r.runQAOA(ctx, spec, b, observer, rec)
	case store.SolverVQE:
		result, err = r.runVQE(ctx, spec, b, observer, rec)
	}
	if err != nil {
		return nil, err
	}

	rec.ElapsedSeconds = time.Since(start).Seconds()
	if rec.Result, err = json.Marshal(result); err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	if spec.Problem != nil && spec.Problem.Kind == problems.KindTSP {
		// an infeasible assignment leaves Tour nil
		if rec.Tour, err = problems.DecodeTSP(rec.Solution, len(spec.Problem.Distances)); err != nil {
			return nil, err
		}
	}

	slog.Info("Run finished", "runID", runID, "cost", rec.Cost, "evals", rec.FuncEvals,
		"converged", rec.Converged, "elapsed", rec.ElapsedSeconds)
	return rec, nil
}

func (r *Runner) solverOptions(b backend.Backend, maxIter int, observer solver.Observer) ([]solver.Option, error) {
	o, err := r.Config.NewOptimizer(maxIter)
	if err != nil {
		return nil, err
	}
	opts := []solver.Option{solver.WithBackend(b), solver.WithOptimizer(o)}
	if observer != nil {
		opts = append(opts, solver.WithObserver(observer))
	}
	return opts, nil
}

func (r *Runner) runPCE(ctx context.Context, spec store.JobSpec, b backend.Backend, observer solver.Observer, rec *store.RunRecord) (any, error) {
	problem, err := spec.Problem.Build()
	if err != nil {
		return nil, err
	}
	cfg := r.Config.PCE
	if spec.PCE != nil {
		cfg = *spec.PCE
	}
	opts, err := r.solverOptions(b, cfg.MaxIter, observer)
	if err != nil {
		return nil, err
	}
	s, err := solver.NewPCE(problem, cfg, opts...)
	if err != nil {
		return nil, err
	}
	res, err := s.Solve(ctx)
	if err != nil {
		return nil, err
	}

	rec.Cost = res.Cost
	rec.Solution = res.Solution
	rec.TopSolutions = res.TopSolutions
	rec.Params = res.Params
	rec.NumQubits = res.NumQubits
	rec.FuncEvals = res.FuncEvals
	rec.Converged = res.Converged
	return res, nil
}

func (r *Runner) runQAOA(ctx context.Context, spec store.JobSpec, b backend.Backend, observer solver.Observer, rec *store.RunRecord) (any, error) {
	problem, err := spec.Problem.Build()
	if err != nil {
		return nil, err
	}
	cfg := r.Config.QAOA
	if spec.QAOA != nil {
		cfg = *spec.QAOA
	}
	opts, err := r.solverOptions(b, cfg.MaxIter, observer)
	if err != nil {
		return nil, err
	}
	s, err := solver.NewQAOA(problem, cfg, opts...)
	if err != nil {
		return nil, err
	}
	res, err := s.Solve(ctx)
	if err != nil {
		return nil, err
	}

	rec.Cost = res.Cost
	rec.Solution = res.Solution
	rec.TopSolutions = res.TopSolutions
	rec.Params = append(append([]float64{}, res.Gamma...), res.Beta...)
	rec.NumQubits = problem.N()
	rec.FuncEvals = res.FuncEvals
	rec.Converged = res.Converged
	return res, nil
}

func (r *Runner) runVQE(ctx context.Context, spec store.JobSpec, b backend.Backend, observer solver.Observer, rec *store.RunRecord) (any, error) {
	h, err := solver.NewSparsePauliOp(spec.Hamiltonian)
	if err != nil {
		return nil, err
	}
	cfg := r.Config.VQE
	if spec.VQE != nil {
		cfg = *spec.VQE
	}
	opts, err := r.solverOptions(b, cfg.MaxIter, observer)
	if err != nil {
		return nil, err
	}
	s, err := solver.NewVQE(h, cfg, opts...)
	if err != nil {
		return nil, err
	}
	res, err := s.Solve(ctx)
	if err != nil {
		return nil, err
	}

	rec.Cost = res.Energy
	rec.Params = res.Params
	rec.NumQubits = s.Config().Qubits
	rec.FuncEvals = res.FuncEvals
	rec.Converged = res.Converged
	return res, nil
}
