package backend

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/cwbudde/varqopt/internal/circuit"
)

// MaxSimulatorQubits bounds the statevector size (2^n amplitudes).
const MaxSimulatorQubits = 24

// Simulator is the in-process statevector backend. Sampling is seeded, so a
// simulator replays the same shot sequence for the same sequence of calls.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator returns a simulator whose sampling is seeded with seed.
func NewSimulator(seed uint64) *Simulator {
	return &Simulator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Run simulates c and samples shots measurement outcomes.
func (s *Simulator) Run(ctx context.Context, c *circuit.Circuit, shots int) (Counts, error) {
	if shots <= 0 {
		return nil, fmt.Errorf("simulator: shots must be positive, got %d", shots)
	}
	p, err := s.Prepare(ctx, c)
	if err != nil {
		return nil, err
	}
	return s.Sample(ctx, p, shots)
}

// Prepare computes the outcome distribution of c. It does not touch the
// random stream and may run concurrently with other calls.
func (s *Simulator) Prepare(ctx context.Context, c *circuit.Circuit) (*Prepared, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.Measured {
		return nil, fmt.Errorf("simulator: circuit has no measurement")
	}
	if c.NumQubits > MaxSimulatorQubits {
		return nil, fmt.Errorf("simulator: %d qubits exceeds limit of %d", c.NumQubits, MaxSimulatorQubits)
	}

	state := Statevector(c)
	probs := make([]float64, len(state))
	for i, a := range state {
		re, im := real(a), imag(a)
		probs[i] = re*re + im*im
	}
	return &Prepared{Circuit: c, probs: probs}, nil
}

// Sample draws shots outcomes from a prepared distribution.
func (s *Simulator) Sample(ctx context.Context, p *Prepared, shots int) (Counts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if shots <= 0 {
		return nil, fmt.Errorf("simulator: shots must be positive, got %d", shots)
	}
	if p.probs == nil {
		var err error
		if p, err = s.Prepare(ctx, p.Circuit); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	dist := distuv.NewCategorical(p.probs, s.rng)
	hits := make(map[int]int)
	for i := 0; i < shots; i++ {
		hits[int(dist.Rand())]++
	}
	s.mu.Unlock()

	counts := make(Counts, len(hits))
	for idx, n := range hits {
		counts[formatIndex(idx, p.Circuit.NumQubits)] = n
	}
	return counts, nil
}

// Statevector returns the final amplitudes of c applied to |0...0>.
// Amplitude index bit q is qubit q.
func Statevector(c *circuit.Circuit) []complex128 {
	amps := make([]complex128, 1<<uint(c.NumQubits))
	amps[0] = 1
	for _, op := range c.Ops {
		apply(amps, op)
	}
	return amps
}

func formatIndex(idx, n int) string {
	s := strconv.FormatInt(int64(idx), 2)
	if len(s) < n {
		s = strings.Repeat("0", n-len(s)) + s
	}
	return s
}

func apply(amps []complex128, op circuit.Op) {
	q := op.Qubits[0]
	switch op.Gate {
	case circuit.GateH:
		h := complex(1/math.Sqrt2, 0)
		pairs(amps, q, func(a, b complex128) (complex128, complex128) {
			return h * (a + b), h * (a - b)
		})
	case circuit.GateX:
		pairs(amps, q, func(a, b complex128) (complex128, complex128) { return b, a })
	case circuit.GateY:
		pairs(amps, q, func(a, b complex128) (complex128, complex128) { return -1i * b, 1i * a })
	case circuit.GateZ:
		phase(amps, q, -1)
	case circuit.GateS:
		phase(amps, q, 1i)
	case circuit.GateSdg:
		phase(amps, q, -1i)
	case circuit.GateRX:
		c, s := math.Cos(op.Params[0]/2), math.Sin(op.Params[0]/2)
		cc, js := complex(c, 0), complex(0, -s)
		pairs(amps, q, func(a, b complex128) (complex128, complex128) {
			return cc*a + js*b, js*a + cc*b
		})
	case circuit.GateRY:
		c, s := math.Cos(op.Params[0]/2), math.Sin(op.Params[0]/2)
		cc, ss := complex(c, 0), complex(s, 0)
		pairs(amps, q, func(a, b complex128) (complex128, complex128) {
			return cc*a - ss*b, ss*a + cc*b
		})
	case circuit.GateRZ:
		p := cmplx.Exp(complex(0, op.Params[0]/2))
		bit := 1 << uint(q)
		for i := range amps {
			if i&bit != 0 {
				amps[i] *= p
			} else {
				amps[i] *= cmplx.Conj(p)
			}
		}
	case circuit.GateCX:
		cBit, tBit := 1<<uint(op.Qubits[0]), 1<<uint(op.Qubits[1])
		for i := range amps {
			if i&cBit != 0 && i&tBit == 0 {
				j := i | tBit
				amps[i], amps[j] = amps[j], amps[i]
			}
		}
	case circuit.GateCZ:
		cBit, tBit := 1<<uint(op.Qubits[0]), 1<<uint(op.Qubits[1])
		for i := range amps {
			if i&cBit != 0 && i&tBit != 0 {
				amps[i] = -amps[i]
			}
		}
	default:
		panic("simulator: unsupported gate " + op.Gate)
	}
}

// pairs applies a 2x2 update to every (|..0_q..>, |..1_q..>) amplitude pair.
func pairs(amps []complex128, q int, f func(a, b complex128) (complex128, complex128)) {
	bit := 1 << uint(q)
	for i := range amps {
		if i&bit == 0 {
			j := i | bit
			amps[i], amps[j] = f(amps[i], amps[j])
		}
	}
}

func phase(amps []complex128, q int, factor complex128) {
	bit := 1 << uint(q)
	for i := range amps {
		if i&bit != 0 {
			amps[i] *= factor
		}
	}
}
