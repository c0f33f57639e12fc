package backend

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/cwbudde/varqopt/internal/circuit"
)

// Noisy applies independent readout errors to another backend's results:
// every measured bit of every shot flips with probability P.
type Noisy struct {
	inner Backend
	p     float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewNoisy wraps inner with bit-flip probability p in [0, 1].
func NewNoisy(inner Backend, p float64, seed uint64) (*Noisy, error) {
	if p < 0 || p > 1 {
		return nil, fmt.Errorf("noisy: flip probability must be in [0, 1], got %g", p)
	}
	return &Noisy{inner: inner, p: p, rng: rand.New(rand.NewPCG(seed, ^seed))}, nil
}

func (n *Noisy) Run(ctx context.Context, c *circuit.Circuit, shots int) (Counts, error) {
	counts, err := n.inner.Run(ctx, c, shots)
	if err != nil {
		return nil, err
	}
	return n.flip(counts), nil
}

// Prepare delegates to the wrapped backend.
func (n *Noisy) Prepare(ctx context.Context, c *circuit.Circuit) (*Prepared, error) {
	return Prepare(ctx, n.inner, c)
}

// Sample samples the wrapped backend and applies readout errors.
func (n *Noisy) Sample(ctx context.Context, p *Prepared, shots int) (Counts, error) {
	counts, err := Sample(ctx, n.inner, p, shots)
	if err != nil {
		return nil, err
	}
	return n.flip(counts), nil
}

func (n *Noisy) flip(counts Counts) Counts {
	if n.p == 0 {
		return counts
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(Counts, len(counts))
	for _, key := range counts.Keys() {
		for s := 0; s < counts[key]; s++ {
			b := []byte(key)
			for i := range b {
				if n.rng.Float64() < n.p {
					b[i] ^= 1 // '0' <-> '1'
				}
			}
			out[string(b)]++
		}
	}
	return out
}
