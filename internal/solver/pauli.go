package solver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cwbudde/varqopt/internal/circuit"
)

// PauliTerm is coeff times a tensor product of single-qubit Paulis. Ops maps
// qubit index to "X", "Y" or "Z"; "I" entries and lowercase letters are
// accepted on input.
type PauliTerm struct {
	Coeff float64        `json:"coeff" yaml:"coeff"`
	Ops   map[int]string `json:"ops" yaml:"ops"`
}

// SparsePauliOp is a Hamiltonian H = Σ c_k P_k.
type SparsePauliOp struct {
	terms []PauliTerm
}

// NewSparsePauliOp normalises letters to upper case and drops identities.
func NewSparsePauliOp(terms []PauliTerm) (*SparsePauliOp, error) {
	out := make([]PauliTerm, 0, len(terms))
	for k, t := range terms {
		ops := make(map[int]string, len(t.Ops))
		for q, p := range t.Ops {
			if q < 0 {
				return nil, &ValidationError{Field: "hamiltonian", Reason: fmt.Sprintf("term %d: negative qubit %d", k, q)}
			}
			letter := strings.ToUpper(strings.TrimSpace(p))
			switch letter {
			case "I":
				continue
			case "X", "Y", "Z":
				ops[q] = letter
			default:
				return nil, &ValidationError{Field: "hamiltonian", Reason: fmt.Sprintf("term %d: unknown Pauli %q on qubit %d", k, p, q)}
			}
		}
		out = append(out, PauliTerm{Coeff: t.Coeff, Ops: ops})
	}
	return &SparsePauliOp{terms: out}, nil
}

// Terms returns the normalised terms.
func (h *SparsePauliOp) Terms() []PauliTerm { return h.terms }

// NumQubits returns one more than the highest qubit any term touches.
func (h *SparsePauliOp) NumQubits() int {
	n := 0
	for _, t := range h.terms {
		for q := range t.Ops {
			n = max(n, q+1)
		}
	}
	return n
}

func (h *SparsePauliOp) String() string {
	parts := make([]string, len(h.terms))
	for i, t := range h.terms {
		parts[i] = fmt.Sprintf("%+g*%s", t.Coeff, t.label())
	}
	return strings.Join(parts, " ")
}

// label renders the term as e.g. "Z0 Z1", or "I" for the identity.
func (t PauliTerm) label() string {
	qubits := t.qubits()
	if len(qubits) == 0 {
		return "I"
	}
	parts := make([]string, len(qubits))
	for i, q := range qubits {
		parts[i] = fmt.Sprintf("%s%d", t.Ops[q], q)
	}
	return strings.Join(parts, " ")
}

func (t PauliTerm) qubits() []int {
	qs := make([]int, 0, len(t.Ops))
	for q := range t.Ops {
		qs = append(qs, q)
	}
	sort.Ints(qs)
	return qs
}

// basisGroup holds the terms measured from one circuit.
type basisGroup struct {
	basis map[int]circuit.Basis
	terms []PauliTerm
}

// groupByBasis batches terms with identical (qubit, Pauli) sets, in order of
// first appearance.
func groupByBasis(terms []PauliTerm) []basisGroup {
	index := map[string]int{}
	var groups []basisGroup
	for _, t := range terms {
		key := t.label()
		i, ok := index[key]
		if !ok {
			basis := make(map[int]circuit.Basis, len(t.Ops))
			for q, p := range t.Ops {
				basis[q] = circuit.Basis(p[0])
			}
			i = len(groups)
			index[key] = i
			groups = append(groups, basisGroup{basis: basis})
		}
		groups[i].terms = append(groups[i].terms, t)
	}
	return groups
}
