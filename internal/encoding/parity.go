// Package encoding maps many binary variables onto few qubits with XOR-parity masks.
//
// Variable i is represented by the parity of the measured bits selected by
// its mask:
//
//	x_i = popcount(bitstring & mask_i) mod 2
//
// where bit j of bitstring is the measurement of qubit j.
package encoding

import (
	"fmt"
	"math"
	"math/bits"

	"gonum.org/v1/gonum/mat"
)

// Kind names an encoding strategy.
type Kind string

const (
	KindDense Kind = "dense"
	KindPoly  Kind = "poly"
)

// Encoding is implemented by Dense and Poly.
type Encoding interface {
	NumVars() int
	NumQubits() int
	Masks() []uint64
	DecodeBatch(bitstrings []uint64) *mat.Dense
	DecodeBits(bitstring uint64) []bool
	PauliCorrelations(bitstrings []uint64, weights []float64) []float64
	CompressionRatio() float64
}

// New returns the encoding named by kind for nVars variables.
func New(kind Kind, nVars int) (Encoding, error) {
	switch kind {
	case KindDense:
		return NewDense(nVars)
	case KindPoly:
		return NewPoly(nVars)
	default:
		return nil, &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown encoding %q; choose dense or poly", kind)}
	}
}

// Parity reports whether x has an odd number of set bits.
func Parity(x uint64) bool {
	x ^= x >> 32
	x ^= x >> 16
	x ^= x >> 8
	x ^= x >> 4
	x ^= x >> 2
	x ^= x >> 1
	return x&1 == 1
}

// ParityBatch applies Parity to every element of xs.
func ParityBatch(xs []uint64) []bool {
	out := make([]bool, len(xs))
	for i, x := range xs {
		out[i] = Parity(x)
	}
	return out
}

// masks is the decoding machinery shared by both variants.
type masks struct {
	nVars   int
	nQubits int
	masks   []uint64
}

func (m *masks) NumVars() int   { return m.nVars }
func (m *masks) NumQubits() int { return m.nQubits }

// Masks returns a copy of the per-variable parity masks.
func (m *masks) Masks() []uint64 {
	return append([]uint64(nil), m.masks...)
}

func (m *masks) CompressionRatio() float64 {
	return float64(m.nVars) / float64(m.nQubits)
}

// DecodeBatch expands each sample into an (n_samples x n_vars) 0/1 matrix.
func (m *masks) DecodeBatch(bitstrings []uint64) *mat.Dense {
	if len(bitstrings) == 0 {
		return &mat.Dense{}
	}
	data := make([]float64, len(bitstrings)*m.nVars)
	for s, b := range bitstrings {
		row := data[s*m.nVars : (s+1)*m.nVars]
		for i, mask := range m.masks {
			if Parity(b & mask) {
				row[i] = 1
			}
		}
	}
	return mat.NewDense(len(bitstrings), m.nVars, data)
}

// DecodeBits decodes a single sample.
func (m *masks) DecodeBits(bitstring uint64) []bool {
	out := make([]bool, m.nVars)
	for i, mask := range m.masks {
		out[i] = Parity(bitstring & mask)
	}
	return out
}

// PauliCorrelations returns, per variable, the weighted expectation of
// (-1)^parity in [-1, 1]. Weights are normalised to sum to one; a zero total
// weight yields all zeros.
func (m *masks) PauliCorrelations(bitstrings []uint64, weights []float64) []float64 {
	corr := make([]float64, m.nVars)
	var total float64
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return corr
	}
	for s, b := range bitstrings {
		w := weights[s] / total
		for i, mask := range m.masks {
			if Parity(b & mask) {
				corr[i] -= w
			} else {
				corr[i] += w
			}
		}
	}
	return corr
}

// Dense uses k = ceil(log2(n+1)) qubits; variable i has mask i+1.
type Dense struct {
	masks
}

// NewDense returns the densest encoding for nVars variables.
func NewDense(nVars int) (*Dense, error) {
	if nVars <= 0 {
		return nil, &ValidationError{Field: "nVars", Reason: fmt.Sprintf("must be positive, got %d", nVars)}
	}
	// bits.Len(n) == ceil(log2(n+1))
	k := max(1, bits.Len(uint(nVars)))
	if k > 64 {
		return nil, &ValidationError{Field: "nVars", Reason: "needs more than 64 qubits"}
	}
	ms := make([]uint64, nVars)
	for i := range ms {
		ms[i] = uint64(i + 1)
	}
	return &Dense{masks{nVars: nVars, nQubits: k, masks: ms}}, nil
}

func (d *Dense) String() string {
	return fmt.Sprintf("DenseEncoding(n_vars=%d, n_qubits=%d, compression=%.1fx)",
		d.nVars, d.nQubits, d.CompressionRatio())
}

// Poly places the variables on a side x side grid and uses one row qubit and
// one column qubit per variable: k = 2*ceil(sqrt(n)).
type Poly struct {
	masks
	side int
}

// NewPoly returns the grid encoding for nVars variables.
func NewPoly(nVars int) (*Poly, error) {
	if nVars <= 0 {
		return nil, &ValidationError{Field: "nVars", Reason: fmt.Sprintf("must be positive, got %d", nVars)}
	}
	side := int(math.Ceil(math.Sqrt(float64(nVars))))
	if 2*side > 64 {
		return nil, &ValidationError{Field: "nVars", Reason: fmt.Sprintf("%d variables need %d qubits, limit is 64", nVars, 2*side)}
	}
	ms := make([]uint64, nVars)
	for i := range ms {
		r, c := i/side, i%side
		ms[i] = 1<<uint(r) | 1<<uint(side+c)
	}
	return &Poly{masks: masks{nVars: nVars, nQubits: 2 * side, masks: ms}, side: side}, nil
}

// Side returns the grid side length.
func (p *Poly) Side() int { return p.side }

func (p *Poly) String() string {
	return fmt.Sprintf("PolyEncoding(n_vars=%d, side=%d, n_qubits=%d, compression=%.1fx)",
		p.nVars, p.side, p.nQubits, p.CompressionRatio())
}

// ValidationError reports an invalid encoding request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "encoding: invalid " + e.Field + ": " + e.Reason
}
