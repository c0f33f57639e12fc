package circuit

import (
	"fmt"
	"sort"

	"github.com/cwbudde/varqopt/internal/qubo"
)

// Basis is the Pauli basis a qubit is measured in.
type Basis byte

const (
	BasisZ Basis = 'Z'
	BasisX Basis = 'X'
	BasisY Basis = 'Y'
)

// HardwareEfficient builds layers of RY rotations followed by a CX ring
// (0->1, 1->2, ..., k-1->0), then measures every qubit. theta holds
// layers*k angles, layer-major.
func HardwareEfficient(k, layers int, theta []float64) (*Circuit, error) {
	p, err := hardwareEfficient(k, layers, theta)
	if err != nil {
		return nil, err
	}
	return p.Circuit()
}

func hardwareEfficient(k, layers int, theta []float64) (*Program, error) {
	if k <= 0 {
		return nil, fmt.Errorf("circuit: qubit count must be positive, got %d", k)
	}
	if len(theta) != k*layers {
		return nil, fmt.Errorf("circuit: expected %d angles for %d layers on %d qubits, got %d",
			k*layers, layers, k, len(theta))
	}

	p := NewProgram(k)
	for layer := 0; layer < layers; layer++ {
		offset := layer * k
		for i := 0; i < k; i++ {
			p.RY(theta[offset+i], i)
		}
		if k > 1 {
			for i := 0; i < k-1; i++ {
				p.CX(i, i+1)
			}
			p.CX(k-1, 0)
		}
	}
	return p, nil
}

// Measurement builds the hardware-efficient ansatz followed by the rotations
// that map each listed qubit's basis onto Z: H for X, Sdg then H for Y.
// Qubits absent from basis, or mapped to Z, are measured unrotated.
func Measurement(k, layers int, theta []float64, basis map[int]Basis) (*Circuit, error) {
	p, err := hardwareEfficient(k, layers, theta)
	if err != nil {
		return nil, err
	}

	qubits := make([]int, 0, len(basis))
	for q := range basis {
		qubits = append(qubits, q)
	}
	sort.Ints(qubits)
	for _, q := range qubits {
		if q < 0 || q >= k {
			return nil, fmt.Errorf("circuit: basis qubit %d out of range [0, %d)", q, k)
		}
		switch basis[q] {
		case BasisX:
			p.H(q)
		case BasisY:
			p.Sdg(q).H(q)
		case BasisZ:
		default:
			return nil, fmt.Errorf("circuit: unknown basis %q on qubit %d", basis[q], q)
		}
	}
	return p.Circuit()
}

// QAOA builds the p-layer cost/mixer ansatz with one qubit per variable:
// H on every qubit, then per layer CX-RZ(2γw)-CX for every quadratic term,
// RZ(2γh) for every linear term and RX(2β) on every qubit.
func QAOA(problem *qubo.Problem, gamma, beta []float64) (*Circuit, error) {
	if len(gamma) == 0 || len(gamma) != len(beta) {
		return nil, fmt.Errorf("circuit: need matching non-empty gamma and beta, got %d and %d", len(gamma), len(beta))
	}
	n := problem.N()

	p := NewProgram(n)
	for i := 0; i < n; i++ {
		p.H(i)
	}
	for layer := range gamma {
		g, b := gamma[layer], beta[layer]
		for _, t := range problem.QuadraticTerms() {
			p.CX(t.I, t.J).RZ(2*g*t.Coeff, t.J).CX(t.I, t.J)
		}
		for _, t := range problem.LinearTerms() {
			p.RZ(2*g*t.Coeff, t.Index)
		}
		for i := 0; i < n; i++ {
			p.RX(2*b, i)
		}
	}
	return p.Circuit()
}
