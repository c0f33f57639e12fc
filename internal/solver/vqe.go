package solver

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/varqopt/internal/backend"
	"github.com/cwbudde/varqopt/internal/circuit"
	"github.com/cwbudde/varqopt/internal/opt"
)

const vqeStep = 0.3

// VQESolver estimates the ground-state energy of a SparsePauliOp with the
// hardware-efficient ansatz. Terms sharing a measurement basis are read from
// one circuit.
type VQESolver struct {
	hamiltonian *SparsePauliOp
	groups      []basisGroup
	cfg         VQEConfig
	opts        options

	history []float64
}

// VQEResult is the outcome of VQESolver.Solve.
type VQEResult struct {
	Energy        float64   `json:"energy"`
	Params        []float64 `json:"params"`
	FuncEvals     int       `json:"n_iters"`
	Converged     bool      `json:"converged"`
	EnergyHistory []float64 `json:"energy_history"`
}

// NewVQE validates cfg against the Hamiltonian. cfg.Qubits must cover every
// qubit a term touches; zero means exactly NumQubits.
func NewVQE(h *SparsePauliOp, cfg VQEConfig, opts ...Option) (*VQESolver, error) {
	if h == nil {
		return nil, &ValidationError{Field: "hamiltonian", Reason: "is nil"}
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	need := h.NumQubits()
	if cfg.Qubits == 0 {
		cfg.Qubits = need
	}
	if cfg.Qubits < 1 {
		return nil, &ValidationError{Field: "qubits", Reason: "hamiltonian touches no qubit and none were given"}
	}
	if cfg.Qubits < need {
		return nil, &ValidationError{Field: "qubits", Reason: fmt.Sprintf("hamiltonian needs %d qubits, got %d", need, cfg.Qubits)}
	}
	return &VQESolver{
		hamiltonian: h,
		groups:      groupByBasis(h.Terms()),
		cfg:         cfg,
		opts:        buildOptions(opts),
	}, nil
}

// Config returns the effective configuration.
func (s *VQESolver) Config() VQEConfig { return s.cfg }

// NumCircuits returns how many circuits one energy evaluation runs.
func (s *VQESolver) NumCircuits() int { return len(s.groups) }

// Solve minimises <H> over layers*qubits angles. The energy history starts
// empty on every call.
func (s *VQESolver) Solve(ctx context.Context) (*VQEResult, error) {
	nParams := s.cfg.Layers * s.cfg.Qubits
	rng := rand.New(rand.NewPCG(s.cfg.Seed, s.cfg.Seed))
	theta0 := make([]float64, nParams)
	lower := make([]float64, nParams)
	upper := make([]float64, nParams)
	for i := range theta0 {
		theta0[i] = rng.Float64() * 2 * math.Pi
		upper[i] = 2 * math.Pi
	}
	s.history = s.history[:0]

	b := s.opts.backendFor(s.cfg.Seed)
	optimizer := s.opts.optimizerFor(s.cfg.MaxIter)
	slog.Info("VQE solve started",
		"qubits", s.cfg.Qubits, "terms", len(s.hamiltonian.Terms()), "circuits", len(s.groups),
		"params", nParams, "parallel", s.cfg.Parallel, "optimizer", optimizer.Name())

	objective := func(theta []float64) (float64, error) {
		energy, err := s.Energy(ctx, b, theta)
		if err != nil {
			return 0, err
		}
		s.history = append(s.history, energy)
		slog.Debug("VQE evaluation", "eval", len(s.history), "energy", energy)
		s.opts.notify(len(s.history), energy)
		return energy, nil
	}

	res, err := optimizer.Run(ctx, opt.Problem{
		Objective: objective,
		Initial:   theta0,
		Lower:     lower,
		Upper:     upper,
		Step:      vqeStep,
	})
	if err != nil {
		return nil, fmt.Errorf("solver: vqe: %w", err)
	}

	slog.Info("VQE solve finished",
		"energy", res.F, "evaluations", res.FuncEvals, "converged", res.Converged, "status", res.Status)
	return &VQEResult{
		Energy:        res.F,
		Params:        res.X,
		FuncEvals:     res.FuncEvals,
		Converged:     res.Converged,
		EnergyHistory: append([]float64(nil), s.history...),
	}, nil
}

// Energy estimates <H> at theta on b. With Parallel set the circuits are
// prepared concurrently and then sampled in group order, so a seeded
// backend yields the same energy either way.
func (s *VQESolver) Energy(ctx context.Context, b backend.Backend, theta []float64) (float64, error) {
	prepared := make([]*backend.Prepared, len(s.groups))
	if s.cfg.Parallel && len(s.groups) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		for i := range s.groups {
			g.Go(func() error {
				c, err := circuit.Measurement(s.cfg.Qubits, s.cfg.Layers, theta, s.groups[i].basis)
				if err != nil {
					return err
				}
				prepared[i], err = backend.Prepare(gctx, b, c)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return 0, err
		}
	}

	var energy float64
	for i, grp := range s.groups {
		var (
			counts backend.Counts
			err    error
		)
		if prepared[i] != nil {
			counts, err = backend.Sample(ctx, b, prepared[i], s.cfg.Shots)
		} else {
			counts, err = s.runGroup(ctx, b, grp, theta)
		}
		if err != nil {
			return 0, err
		}
		e, err := s.groupEnergy(grp, counts)
		if err != nil {
			return 0, err
		}
		energy += e
	}
	return energy, nil
}

func (s *VQESolver) runGroup(ctx context.Context, b backend.Backend, grp basisGroup, theta []float64) (backend.Counts, error) {
	c, err := circuit.Measurement(s.cfg.Qubits, s.cfg.Layers, theta, grp.basis)
	if err != nil {
		return nil, err
	}
	return b.Run(ctx, c, s.cfg.Shots)
}

func (s *VQESolver) groupEnergy(grp basisGroup, counts backend.Counts) (float64, error) {
	total := counts.Total()
	if total == 0 {
		return 0, nil
	}

	var energy float64
	for _, t := range grp.terms {
		exp, err := parityExpectation(counts, t.qubits(), s.cfg.Qubits, total)
		if err != nil {
			return 0, err
		}
		energy += t.Coeff * exp
	}
	return energy, nil
}

// parityExpectation returns Σ (-1)^parity * count / total, the parity taken
// over the listed qubits only. Qubit q is character n-1-q of a key padded to
// n characters.
func parityExpectation(counts backend.Counts, qubits []int, n, total int) (float64, error) {
	var sum float64
	for _, key := range counts.Keys() {
		if len(key) > n {
			return 0, fmt.Errorf("solver: count key %q longer than %d qubits: %w", key, n, backend.ErrInvalidCounts)
		}
		bs := strings.Repeat("0", n-len(key)) + key
		odd := false
		for _, q := range qubits {
			if bs[n-1-q] == '1' {
				odd = !odd
			}
		}
		if odd {
			sum -= float64(counts[key])
		} else {
			sum += float64(counts[key])
		}
	}
	return sum / float64(total), nil
}
