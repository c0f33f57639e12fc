package solver

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/varqopt/internal/backend"
)

// Candidate is one ranked assignment from the final sampling pass.
type Candidate struct {
	Solution []bool  `json:"solution"`
	Cost     float64 `json:"cost"`
}

// outcome is a distinct measured bitstring with its decoded assignment.
type outcome struct {
	key      string
	solution []bool
	cost     float64
	shots    int
}

// cvar returns the mean cost of the best frac of the outcomes. With byShots
// every shot counts once, otherwise every distinct bitstring does. An empty
// sample costs zero.
func cvar(outs []outcome, frac float64, byShots bool) float64 {
	sorted := sortOutcomes(outs)

	weight := func(o outcome) int {
		if byShots {
			return o.shots
		}
		return 1
	}
	var total int
	for _, o := range sorted {
		total += weight(o)
	}
	if total == 0 {
		return 0
	}

	keep := max(1, int(float64(total)*frac))
	costs := make([]float64, 0, len(sorted))
	weights := make([]float64, 0, len(sorted))
	for _, o := range sorted {
		if keep == 0 {
			break
		}
		w := min(weight(o), keep)
		if w == 0 {
			continue
		}
		costs = append(costs, o.cost)
		weights = append(weights, float64(w))
		keep -= w
	}
	return stat.Mean(costs, weights)
}

// rank orders the distinct assignments by cost, breaking ties by the
// assignment's bit pattern, and returns at most limit of them.
func rank(outs []outcome, limit int) []Candidate {
	seen := make(map[string]bool, len(outs))
	var cands []Candidate
	for _, o := range sortOutcomes(outs) {
		id := bitsKey(o.solution)
		if seen[id] {
			continue
		}
		seen[id] = true
		cands = append(cands, Candidate{Solution: o.solution, Cost: o.cost})
	}
	sort.SliceStable(cands, func(a, b int) bool {
		if cands[a].Cost != cands[b].Cost {
			return cands[a].Cost < cands[b].Cost
		}
		return bitsKey(cands[a].Solution) < bitsKey(cands[b].Solution)
	})
	if len(cands) > limit {
		cands = cands[:limit]
	}
	return cands
}

func sortOutcomes(outs []outcome) []outcome {
	sorted := append([]outcome(nil), outs...)
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].cost != sorted[b].cost {
			return sorted[a].cost < sorted[b].cost
		}
		return sorted[a].key < sorted[b].key
	})
	return sorted
}

// bitsKey renders an assignment in variable order.
func bitsKey(x []bool) string {
	var b strings.Builder
	b.Grow(len(x))
	for _, v := range x {
		if v {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// parseKey reads a count key of at most n characters as a base-2 integer,
// so qubit q lands on bit q.
func parseKey(key string, n int) (uint64, error) {
	if len(key) > n {
		return 0, fmt.Errorf("solver: count key %q longer than %d qubits: %w", key, n, backend.ErrInvalidCounts)
	}
	v, err := strconv.ParseUint(key, 2, 64)
	if err != nil {
		return 0, fmt.Errorf("solver: count key %q: %w", key, backend.ErrInvalidCounts)
	}
	return v, nil
}

// assignmentFromKey zero-pads key to n characters and maps character n-1-i
// to variable i.
func assignmentFromKey(key string, n int) ([]bool, error) {
	if len(key) > n {
		return nil, fmt.Errorf("solver: count key %q longer than %d qubits: %w", key, n, backend.ErrInvalidCounts)
	}
	if len(key) < n {
		key = strings.Repeat("0", n-len(key)) + key
	}
	x := make([]bool, n)
	for i := 0; i < n; i++ {
		switch key[n-1-i] {
		case '1':
			x[i] = true
		case '0':
		default:
			return nil, fmt.Errorf("solver: count key %q: %w", key, backend.ErrInvalidCounts)
		}
	}
	return x, nil
}
