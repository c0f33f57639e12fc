package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cwbudde/varqopt/internal/problems"
	"github.com/cwbudde/varqopt/internal/solver"
)

// Solver names accepted in a JobSpec.
const (
	SolverPCE  = "pce"
	SolverQAOA = "qaoa"
	SolverVQE  = "vqe"
)

// JobSpec describes what to solve. It is stored with every run so the run
// can be repeated, and it is the body of a job request.
//
// Nil solver sections fall back to the configured defaults.
type JobSpec struct {
	Solver      string             `json:"solver" yaml:"solver"`
	Problem     *problems.Spec     `json:"problem,omitempty" yaml:"problem,omitempty"`
	Hamiltonian []solver.PauliTerm `json:"hamiltonian,omitempty" yaml:"hamiltonian,omitempty"`

	PCE  *solver.PCEConfig  `json:"pce,omitempty" yaml:"pce,omitempty"`
	QAOA *solver.QAOAConfig `json:"qaoa,omitempty" yaml:"qaoa,omitempty"`
	VQE  *solver.VQEConfig  `json:"vqe,omitempty" yaml:"vqe,omitempty"`
}

// Validate checks that the spec names a solver and carries its input.
func (s *JobSpec) Validate() error {
	switch s.Solver {
	case SolverPCE, SolverQAOA:
		if s.Problem == nil {
			return &ValidationError{Field: "problem", Reason: "is required for " + s.Solver}
		}
	case SolverVQE:
		if len(s.Hamiltonian) == 0 {
			return &ValidationError{Field: "hamiltonian", Reason: "is required for vqe"}
		}
	case "":
		return &ValidationError{Field: "solver", Reason: "cannot be empty"}
	default:
		return &ValidationError{Field: "solver", Reason: fmt.Sprintf("unknown solver %q; choose pce, qaoa or vqe", s.Solver)}
	}
	return nil
}

// Input summarises what the spec solves, e.g. "maxcut" or "hamiltonian(3 terms)".
func (s JobSpec) Input() string {
	if s.Problem != nil {
		return string(s.Problem.Kind)
	}
	return fmt.Sprintf("hamiltonian(%d terms)", len(s.Hamiltonian))
}

// RunRecord is the persisted outcome of one solve.
type RunRecord struct {
	RunID string  `json:"runId"`
	Spec  JobSpec `json:"spec"`

	Optimizer string `json:"optimizer"`
	Backend   string `json:"backend"`

	// Cost is the objective value for pce/qaoa and the energy for vqe.
	Cost         float64            `json:"cost"`
	Solution     []bool             `json:"solution,omitempty"`
	TopSolutions []solver.Candidate `json:"topSolutions,omitempty"`
	Params       []float64          `json:"params,omitempty"`
	// Tour is the decoded visiting order for feasible tsp solutions.
	Tour      []int `json:"tour,omitempty"`
	NumQubits int   `json:"numQubits"`
	FuncEvals int   `json:"funcEvals"`
	Converged bool  `json:"converged"`

	ElapsedSeconds float64   `json:"elapsedSeconds"`
	Timestamp      time.Time `json:"timestamp"`

	// Result is the solver's own result document.
	Result json.RawMessage `json:"result,omitempty"`
}

// RunInfo contains metadata about a run without its result payload.
// Used for listing runs efficiently.
type RunInfo struct {
	RunID     string    `json:"runId"`
	Solver    string    `json:"solver"`
	Input     string    `json:"input"`
	Cost      float64   `json:"cost"`
	FuncEvals int       `json:"funcEvals"`
	Converged bool      `json:"converged"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRunRecord starts a record for spec stamped with the current time.
func NewRunRecord(runID string, spec JobSpec) *RunRecord {
	return &RunRecord{
		RunID:     runID,
		Spec:      spec,
		Timestamp: time.Now(),
	}
}

// ToInfo converts a full RunRecord to RunInfo (metadata only).
func (r *RunRecord) ToInfo() RunInfo {
	return RunInfo{
		RunID:     r.RunID,
		Solver:    r.Spec.Solver,
		Input:     r.Spec.Input(),
		Cost:      r.Cost,
		FuncEvals: r.FuncEvals,
		Converged: r.Converged,
		Timestamp: r.Timestamp,
	}
}

// Validate checks if the record has valid data.
func (r *RunRecord) Validate() error {
	if r.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if err := r.Spec.Validate(); err != nil {
		return err
	}
	if r.Spec.Solver != SolverVQE && len(r.Solution) == 0 {
		return &ValidationError{Field: "Solution", Reason: "cannot be empty for " + r.Spec.Solver}
	}
	if r.FuncEvals < 0 {
		return &ValidationError{Field: "FuncEvals", Reason: "cannot be negative"}
	}
	if r.NumQubits < 0 {
		return &ValidationError{Field: "NumQubits", Reason: "cannot be negative"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	return nil
}

// ValidationError represents a record or spec validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
