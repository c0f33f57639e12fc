package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/varqopt/internal/backend"
	"github.com/cwbudde/varqopt/internal/circuit"
	"github.com/cwbudde/varqopt/internal/opt"
	"github.com/cwbudde/varqopt/internal/qubo"
)

const (
	qaoaStep = 0.2
	// Initial angles are drawn from [0, qaoaInitMax) so the first circuits
	// stay close to the identity.
	qaoaInitMax = 0.1
)

// QAOASolver runs the p-layer QAOA ansatz with one qubit per variable and
// minimises the shot-weighted CVaR of the sampled costs.
type QAOASolver struct {
	problem *qubo.Problem
	cfg     QAOAConfig
	opts    options
}

// QAOAResult is the outcome of QAOASolver.Solve.
type QAOAResult struct {
	Solution     []bool      `json:"solution"`
	Cost         float64     `json:"cost"`
	Gamma        []float64   `json:"gamma"`
	Beta         []float64   `json:"beta"`
	FuncEvals    int         `json:"n_iters"`
	Converged    bool        `json:"converged"`
	TopSolutions []Candidate `json:"top_solutions"`
}

// NewQAOA validates cfg. A depth below one is rejected.
func NewQAOA(problem *qubo.Problem, cfg QAOAConfig, opts ...Option) (*QAOASolver, error) {
	if problem == nil {
		return nil, &ValidationError{Field: "problem", Reason: "is nil"}
	}
	if cfg.Layers < 1 {
		return nil, &ValidationError{Field: "p", Reason: fmt.Sprintf("must be >= 1, got %d", cfg.Layers)}
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	cfg.CVaRTop = clampCVaRTop(cfg.CVaRTop)
	return &QAOASolver{problem: problem, cfg: cfg, opts: buildOptions(opts)}, nil
}

func (s *QAOASolver) Config() QAOAConfig { return s.cfg }

// Solve optimises [gamma..., beta...] and ranks the final high-shot sample.
func (s *QAOASolver) Solve(ctx context.Context) (*QAOAResult, error) {
	p := s.cfg.Layers
	rng := rand.New(rand.NewPCG(s.cfg.Seed, s.cfg.Seed))
	theta0 := make([]float64, 2*p)
	lower := make([]float64, 2*p)
	upper := make([]float64, 2*p)
	for i := range theta0 {
		theta0[i] = rng.Float64() * qaoaInitMax
		upper[i] = math.Pi
	}

	b := s.opts.backendFor(s.cfg.Seed)
	optimizer := s.opts.optimizerFor(s.cfg.MaxIter)
	slog.Info("QAOA solve started",
		"vars", s.problem.N(), "p", p, "shots", s.cfg.Shots, "optimizer", optimizer.Name())

	var evals int
	objective := func(theta []float64) (float64, error) {
		counts, err := s.sample(ctx, b, theta, s.cfg.Shots)
		if err != nil {
			return 0, err
		}
		outs, err := s.outcomes(counts)
		if err != nil {
			return 0, err
		}
		cost := cvar(outs, s.cfg.CVaRTop, true)
		evals++
		slog.Debug("QAOA evaluation", "eval", evals, "cost", cost)
		s.opts.notify(evals, cost)
		return cost, nil
	}

	res, err := optimizer.Run(ctx, opt.Problem{
		Objective: objective,
		Initial:   theta0,
		Lower:     lower,
		Upper:     upper,
		Step:      qaoaStep,
	})
	if err != nil {
		return nil, fmt.Errorf("solver: qaoa: %w", err)
	}

	counts, err := s.sample(ctx, b, res.X, max(s.cfg.Shots, MinFinalShots))
	if err != nil {
		return nil, fmt.Errorf("solver: qaoa final sample: %w", err)
	}
	outs, err := s.outcomes(counts)
	if err != nil {
		return nil, err
	}
	if len(outs) == 0 {
		return nil, errors.New("solver: qaoa final sample returned no counts")
	}
	top := rank(outs, TopSolutions)

	slog.Info("QAOA solve finished",
		"cost", top[0].Cost, "evaluations", res.FuncEvals, "converged", res.Converged, "status", res.Status)
	return &QAOAResult{
		Solution:     top[0].Solution,
		Cost:         top[0].Cost,
		Gamma:        append([]float64(nil), res.X[:p]...),
		Beta:         append([]float64(nil), res.X[p:]...),
		FuncEvals:    res.FuncEvals,
		Converged:    res.Converged,
		TopSolutions: top,
	}, nil
}

func (s *QAOASolver) sample(ctx context.Context, b backend.Backend, theta []float64, shots int) (backend.Counts, error) {
	p := s.cfg.Layers
	c, err := circuit.QAOA(s.problem, theta[:p], theta[p:])
	if err != nil {
		return nil, err
	}
	return b.Run(ctx, c, shots)
}

// outcomes decodes every distinct bitstring, qubit i being character n-1-i,
// and evaluates them in one batch.
func (s *QAOASolver) outcomes(counts backend.Counts) ([]outcome, error) {
	keys := counts.Keys()
	if len(keys) == 0 {
		return nil, nil
	}
	n := s.problem.N()
	data := make([]float64, len(keys)*n)
	outs := make([]outcome, len(keys))
	for i, key := range keys {
		x, err := assignmentFromKey(key, n)
		if err != nil {
			return nil, err
		}
		for j, v := range x {
			if v {
				data[i*n+j] = 1
			}
		}
		outs[i] = outcome{key: key, solution: x, shots: counts[key]}
	}

	costs, err := s.problem.EvaluateBatch(mat.NewDense(len(keys), n, data))
	if err != nil {
		return nil, err
	}
	for i := range outs {
		outs[i].cost = costs[i]
	}
	return outs, nil
}
