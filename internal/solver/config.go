package solver

import "github.com/cwbudde/varqopt/internal/encoding"

// Alpha at or above CVaRAlpha switches PCE from the smooth relaxation to
// the CVaR cost.
const CVaRAlpha = 5.0

const (
	// MinFinalShots is the lower bound on the shot count of the last
	// sampling pass.
	MinFinalShots = 4096
	// TopSolutions is the number of ranked candidates kept in results.
	TopSolutions = 10

	minCVaRTop = 0.01
)

// PCEConfig configures a PCESolver.
type PCEConfig struct {
	Encoding encoding.Kind `json:"encoding" yaml:"encoding" validate:"oneof=dense poly"`
	Layers   int           `json:"layers" yaml:"layers" validate:"min=1"`
	Shots    int           `json:"shots" yaml:"shots" validate:"min=1"`
	// Alpha below CVaRAlpha selects the smooth cost and sets its tanh
	// sharpness.
	Alpha   float64 `json:"alpha" yaml:"alpha" validate:"gte=0"`
	CVaRTop float64 `json:"cvar_top" yaml:"cvar_top" validate:"gt=0"`
	MaxIter int     `json:"max_iter" yaml:"max_iter" validate:"min=1"`
	Seed    uint64  `json:"seed" yaml:"seed"`
}

// DefaultPCEConfig returns the PCE defaults.
func DefaultPCEConfig() PCEConfig {
	return PCEConfig{
		Encoding: encoding.KindDense,
		Layers:   2,
		Shots:    1024,
		Alpha:    2.0,
		CVaRTop:  0.1,
		MaxIter:  300,
	}
}

// QAOAConfig configures a QAOASolver. Layers is the QAOA depth p.
type QAOAConfig struct {
	Layers  int     `json:"p" yaml:"p" validate:"min=1"`
	Shots   int     `json:"shots" yaml:"shots" validate:"min=1"`
	CVaRTop float64 `json:"cvar_top" yaml:"cvar_top" validate:"gt=0"`
	MaxIter int     `json:"max_iter" yaml:"max_iter" validate:"min=1"`
	Seed    uint64  `json:"seed" yaml:"seed"`
}

// DefaultQAOAConfig returns the QAOA defaults.
func DefaultQAOAConfig() QAOAConfig {
	return QAOAConfig{
		Layers:  1,
		Shots:   1024,
		CVaRTop: 0.1,
		MaxIter: 300,
	}
}

// VQEConfig configures a VQESolver. Qubits may be zero, in which case the
// Hamiltonian's own qubit count is used.
type VQEConfig struct {
	Qubits  int    `json:"qubits" yaml:"qubits" validate:"gte=0"`
	Layers  int    `json:"layers" yaml:"layers" validate:"min=1"`
	Shots   int    `json:"shots" yaml:"shots" validate:"min=1"`
	MaxIter int    `json:"max_iter" yaml:"max_iter" validate:"min=1"`
	Seed    uint64 `json:"seed" yaml:"seed"`
	// Parallel runs the measurement circuits of one evaluation concurrently.
	Parallel bool `json:"parallel" yaml:"parallel"`
}

// DefaultVQEConfig returns the VQE defaults.
func DefaultVQEConfig() VQEConfig {
	return VQEConfig{
		Layers:  2,
		Shots:   1024,
		MaxIter: 300,
	}
}

func clampCVaRTop(v float64) float64 {
	return max(minCVaRTop, min(1, v))
}
