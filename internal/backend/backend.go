// Package backend executes circuits for a number of shots and returns the
// measured bitstring counts.
//
// Count keys are binary strings of the circuit's width. Character n-1-q of a
// key holds the measurement of qubit q, so parsing a key as a base-2 integer
// puts qubit q at bit q.
package backend

import (
	"context"
	"errors"
	"sort"

	"github.com/cwbudde/varqopt/internal/circuit"
)

var (
	// ErrBackendOffline is returned when a device reports itself unavailable.
	ErrBackendOffline = errors.New("backend offline")
	// ErrInvalidCounts is returned for count maps that cannot be normalised.
	ErrInvalidCounts = errors.New("invalid counts")
)

// Counts maps measured bitstrings to the number of shots that produced them.
type Counts map[string]int

// Total returns the number of shots represented.
func (c Counts) Total() int {
	var n int
	for _, v := range c {
		n += v
	}
	return n
}

// Keys returns the bitstrings in lexical order. Iterating counts through
// Keys keeps downstream floating-point sums reproducible.
func (c Counts) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Backend runs a measured circuit for shots repetitions.
type Backend interface {
	Run(ctx context.Context, c *circuit.Circuit, shots int) (Counts, error)
}

// Func adapts a plain function to Backend.
type Func func(ctx context.Context, c *circuit.Circuit, shots int) (Counts, error)

func (f Func) Run(ctx context.Context, c *circuit.Circuit, shots int) (Counts, error) {
	return f(ctx, c, shots)
}

// Fixed returns a backend that ignores the circuit and always reports a copy
// of counts. Useful for deterministic replays.
func Fixed(counts Counts) Backend {
	return Func(func(ctx context.Context, _ *circuit.Circuit, _ int) (Counts, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out := make(Counts, len(counts))
		for k, v := range counts {
			out[k] = v
		}
		return out, nil
	})
}
