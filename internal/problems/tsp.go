package problems

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/varqopt/internal/qubo"
)

// TSPOption configures TSP.
type TSPOption func(*tspOptions)

type tspOptions struct {
	penalty *float64
}

// WithPenalty overrides the constraint penalty, which defaults to
// max(distances) * n.
func WithPenalty(a float64) TSPOption {
	return func(o *tspOptions) { o.penalty = &a }
}

// TSPVar returns the variable index of "city visited at time step t".
func TSPVar(city, t, nCities int) int {
	return city*nCities + t
}

// TSP encodes the travelling salesman problem on n cities with the one-hot
// time-step encoding: n² variables, variable TSPVar(i, t) set when city i is
// visited at step t.
//
// Both "every city exactly once" and "every step exactly one city" are
// penalised as A*(sum x - 1)². The constant A per constraint is carried as
// the problem offset, so a feasible assignment's energy equals its tour
// length.
func TSP(distances mat.Matrix, opts ...TSPOption) (*qubo.Problem, error) {
	r, c := distances.Dims()
	if r != c {
		return nil, &ValidationError{Field: "distances", Reason: fmt.Sprintf("must be square, got %dx%d", r, c)}
	}
	n := r
	if n < 2 {
		return nil, &ValidationError{Field: "distances", Reason: "TSP requires at least 2 cities"}
	}

	var o tspOptions
	for _, fn := range opts {
		fn(&o)
	}
	a := mat.Max(distances) * float64(n)
	if o.penalty != nil {
		a = *o.penalty
	}

	linear := make(map[int]float64)
	quadratic := make(map[qubo.Pair]float64)
	addQuad := func(i, j int, v float64) {
		if i == j {
			linear[i] += v
			return
		}
		if i > j {
			i, j = j, i
		}
		quadratic[qubo.Pair{I: i, J: j}] += v
	}

	// each city exactly once
	for i := 0; i < n; i++ {
		for t := 0; t < n; t++ {
			linear[TSPVar(i, t, n)] -= a
			for tp := t + 1; tp < n; tp++ {
				addQuad(TSPVar(i, t, n), TSPVar(i, tp, n), 2*a)
			}
		}
	}
	// each time step exactly one city
	for t := 0; t < n; t++ {
		for i := 0; i < n; i++ {
			linear[TSPVar(i, t, n)] -= a
			for ip := i + 1; ip < n; ip++ {
				addQuad(TSPVar(i, t, n), TSPVar(ip, t, n), 2*a)
			}
		}
	}
	// route length
	for t := 0; t < n; t++ {
		next := (t + 1) % n
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				if d := distances.At(i, j); d != 0 {
					addQuad(TSPVar(i, t, n), TSPVar(j, next, n), d)
				}
			}
		}
	}

	dropZeros(linear)
	p, err := qubo.FromDict(n*n, linear, quadratic)
	if err != nil {
		return nil, err
	}
	return p.WithOffset(2 * float64(n) * a), nil
}

// DecodeTSP turns an n²-variable assignment into the visit order. A nil tour
// with a nil error means the assignment is infeasible: some time step has no
// city or several, or a city is visited twice. A length mismatch is an error.
func DecodeTSP(solution []bool, nCities int) ([]int, error) {
	n := nCities
	if len(solution) != n*n {
		return nil, &ValidationError{
			Field:  "solution",
			Reason: fmt.Sprintf("expected %d variables, got %d", n*n, len(solution)),
		}
	}

	tour := make([]int, 0, n)
	seen := make([]bool, n)
	for t := 0; t < n; t++ {
		city := -1
		for i := 0; i < n; i++ {
			if !solution[TSPVar(i, t, n)] {
				continue
			}
			if city >= 0 {
				return nil, nil
			}
			city = i
		}
		if city < 0 || seen[city] {
			return nil, nil
		}
		seen[city] = true
		tour = append(tour, city)
	}
	return tour, nil
}

// TourLength returns the length of the closed tour, including the return
// from the last city to the first.
func TourLength(distances mat.Matrix, tour []int) (float64, error) {
	r, c := distances.Dims()
	if r != c {
		return 0, &ValidationError{Field: "distances", Reason: fmt.Sprintf("must be square, got %dx%d", r, c)}
	}
	var total float64
	for t, city := range tour {
		next := tour[(t+1)%len(tour)]
		if city < 0 || city >= r || next < 0 || next >= r {
			return 0, &ValidationError{Field: "tour", Reason: fmt.Sprintf("city index out of range [0, %d)", r)}
		}
		total += distances.At(city, next)
	}
	return total, nil
}
