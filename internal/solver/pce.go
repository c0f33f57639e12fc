package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/cwbudde/varqopt/internal/backend"
	"github.com/cwbudde/varqopt/internal/circuit"
	"github.com/cwbudde/varqopt/internal/encoding"
	"github.com/cwbudde/varqopt/internal/opt"
	"github.com/cwbudde/varqopt/internal/qubo"
)

const pceStep = 0.5

// PCESolver minimises a quadratic problem on a parity-compressed register:
// n variables share k < n qubits and each variable is the parity of a masked
// subset of the measured bits.
type PCESolver struct {
	problem *qubo.Problem
	enc     encoding.Encoding
	cfg     PCEConfig
	opts    options
}

// PCEResult is the outcome of PCESolver.Solve.
type PCEResult struct {
	Solution         []bool      `json:"solution"`
	Cost             float64     `json:"cost"`
	NumOriginalVars  int         `json:"n_original_vars"`
	NumQubits        int         `json:"n_qubits"`
	CompressionRatio float64     `json:"compression_ratio"`
	Params           []float64   `json:"params"`
	FuncEvals        int         `json:"n_function_evals"`
	Converged        bool        `json:"converged"`
	TopSolutions     []Candidate `json:"top_solutions"`
}

// NewPCE validates cfg and sizes the encoding from the problem.
func NewPCE(problem *qubo.Problem, cfg PCEConfig, opts ...Option) (*PCESolver, error) {
	if problem == nil {
		return nil, &ValidationError{Field: "problem", Reason: "is nil"}
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	cfg.CVaRTop = clampCVaRTop(cfg.CVaRTop)

	enc, err := encoding.New(cfg.Encoding, problem.N())
	if err != nil {
		return nil, err
	}
	return &PCESolver{problem: problem, enc: enc, cfg: cfg, opts: buildOptions(opts)}, nil
}

// Encoding returns the parity encoding in use.
func (s *PCESolver) Encoding() encoding.Encoding { return s.enc }

// Config returns the effective configuration.
func (s *PCESolver) Config() PCEConfig { return s.cfg }

// Solve optimises the ansatz angles, then resamples the best circuit with at
// least MinFinalShots shots and ranks the decoded assignments.
func (s *PCESolver) Solve(ctx context.Context) (*PCEResult, error) {
	k := s.enc.NumQubits()
	nParams := s.cfg.Layers * k

	rng := rand.New(rand.NewPCG(s.cfg.Seed, s.cfg.Seed))
	theta0 := make([]float64, nParams)
	lower := make([]float64, nParams)
	upper := make([]float64, nParams)
	for i := range theta0 {
		theta0[i] = rng.Float64() * 2 * math.Pi
		upper[i] = 2 * math.Pi
	}

	b := s.opts.backendFor(s.cfg.Seed)
	optimizer := s.opts.optimizerFor(s.cfg.MaxIter)
	slog.Info("PCE solve started",
		"vars", s.problem.N(), "qubits", k, "encoding", s.cfg.Encoding,
		"params", nParams, "shots", s.cfg.Shots, "optimizer", optimizer.Name())

	var evals int
	objective := func(theta []float64) (float64, error) {
		counts, err := s.sample(ctx, b, theta, s.cfg.Shots)
		if err != nil {
			return 0, err
		}
		cost, err := s.cost(counts)
		if err != nil {
			return 0, err
		}
		evals++
		slog.Debug("PCE evaluation", "eval", evals, "cost", cost)
		s.opts.notify(evals, cost)
		return cost, nil
	}

	res, err := optimizer.Run(ctx, opt.Problem{
		Objective: objective,
		Initial:   theta0,
		Lower:     lower,
		Upper:     upper,
		Step:      pceStep,
	})
	if err != nil {
		return nil, fmt.Errorf("solver: pce: %w", err)
	}

	counts, err := s.sample(ctx, b, res.X, max(s.cfg.Shots, MinFinalShots))
	if err != nil {
		return nil, fmt.Errorf("solver: pce final sample: %w", err)
	}
	outs, err := s.outcomes(counts)
	if err != nil {
		return nil, err
	}
	if len(outs) == 0 {
		return nil, errors.New("solver: pce final sample returned no counts")
	}
	top := rank(outs, TopSolutions)

	slog.Info("PCE solve finished",
		"cost", top[0].Cost, "evaluations", res.FuncEvals, "converged", res.Converged, "status", res.Status)
	return &PCEResult{
		Solution:         top[0].Solution,
		Cost:             top[0].Cost,
		NumOriginalVars:  s.problem.N(),
		NumQubits:        k,
		CompressionRatio: s.enc.CompressionRatio(),
		Params:           res.X,
		FuncEvals:        res.FuncEvals,
		Converged:        res.Converged,
		TopSolutions:     top,
	}, nil
}

func (s *PCESolver) sample(ctx context.Context, b backend.Backend, theta []float64, shots int) (backend.Counts, error) {
	c, err := circuit.HardwareEfficient(s.enc.NumQubits(), s.cfg.Layers, theta)
	if err != nil {
		return nil, err
	}
	return b.Run(ctx, c, shots)
}

// cost selects the smooth relaxation below CVaRAlpha and the CVaR of the
// decoded samples otherwise.
func (s *PCESolver) cost(counts backend.Counts) (float64, error) {
	if s.cfg.Alpha >= CVaRAlpha {
		outs, err := s.outcomes(counts)
		if err != nil {
			return 0, err
		}
		return cvar(outs, s.cfg.CVaRTop, false), nil
	}
	return s.smoothCost(counts)
}

// smoothCost maps each variable's parity correlation c to
// (1 - tanh(alpha*c)) / 2 and evaluates the relaxed objective.
func (s *PCESolver) smoothCost(counts backend.Counts) (float64, error) {
	keys := counts.Keys()
	bitstrings := make([]uint64, len(keys))
	weights := make([]float64, len(keys))
	for i, key := range keys {
		v, err := parseKey(key, s.enc.NumQubits())
		if err != nil {
			return 0, err
		}
		bitstrings[i] = v
		weights[i] = float64(counts[key])
	}

	corr := s.enc.PauliCorrelations(bitstrings, weights)
	soft := make([]float64, len(corr))
	for i, c := range corr {
		soft[i] = (1 - math.Tanh(s.cfg.Alpha*c)) / 2
	}
	return s.problem.Evaluate(soft)
}

// outcomes decodes every distinct bitstring through the encoding and
// evaluates it in one batch.
func (s *PCESolver) outcomes(counts backend.Counts) ([]outcome, error) {
	keys := counts.Keys()
	if len(keys) == 0 {
		return nil, nil
	}
	bitstrings := make([]uint64, len(keys))
	for i, key := range keys {
		v, err := parseKey(key, s.enc.NumQubits())
		if err != nil {
			return nil, err
		}
		bitstrings[i] = v
	}

	decoded := s.enc.DecodeBatch(bitstrings)
	costs, err := s.problem.EvaluateBatch(decoded)
	if err != nil {
		return nil, err
	}

	outs := make([]outcome, len(keys))
	for i, key := range keys {
		row := decoded.RawRowView(i)
		x := make([]bool, len(row))
		for j, v := range row {
			x[j] = v != 0
		}
		outs[i] = outcome{key: key, solution: x, cost: costs[i], shots: counts[key]}
	}
	return outs, nil
}
