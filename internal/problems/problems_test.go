package problems

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/varqopt/internal/adjacency"
	"github.com/cwbudde/varqopt/internal/qubo"
)

func bruteForceMin(t *testing.T, p *qubo.Problem) ([]bool, float64) {
	t.Helper()
	n := p.N()
	require.LessOrEqual(t, n, 16)
	var best []bool
	bestE := math.Inf(1)
	for s := 0; s < 1<<n; s++ {
		x := make([]bool, n)
		for i := range x {
			x[i] = s>>i&1 == 1
		}
		e, err := p.EvaluateBits(x)
		require.NoError(t, err)
		if e < bestE {
			best, bestE = x, e
		}
	}
	return best, bestE
}

func TestMaxCutCycleWithDiagonal(t *testing.T) {
	g := adjacency.Edges{Weights: map[adjacency.Edge]float64{
		{U: 0, V: 1}: 1, {U: 1, V: 2}: 1, {U: 2, V: 3}: 1, {U: 3, V: 0}: 1,
		{U: 0, V: 2}: 0.5,
	}}
	p, err := MaxCut(g)
	require.NoError(t, err)
	assert.Equal(t, 4, p.N())

	x, e := bruteForceMin(t, p)
	assert.InDelta(t, -4.0, e, 1e-12)

	cut, err := CutWeight(g, x)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, cut, 1e-12)
}

func TestMaxCutEnergyIsNegativeCut(t *testing.T) {
	m := mat.NewDense(3, 3, []float64{
		0, 2, 0,
		0, 0, 3,
		1, 0, 0,
	})
	src := adjacency.Matrix{M: m}
	p, err := MaxCut(src)
	require.NoError(t, err)

	for s := 0; s < 8; s++ {
		x := []bool{s&1 == 1, s&2 == 2, s&4 == 4}
		e, err := p.EvaluateBits(x)
		require.NoError(t, err)
		cut, err := CutWeight(src, x)
		require.NoError(t, err)
		assert.InDelta(t, -cut, e, 1e-12)
	}
}

func threeCities() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, 1, 2,
		1, 0, 1.5,
		2, 1.5, 0,
	})
}

func tourAssignment(tour []int) []bool {
	n := len(tour)
	x := make([]bool, n*n)
	for step, city := range tour {
		x[TSPVar(city, step, n)] = true
	}
	return x
}

func TestTSPRoundTrip(t *testing.T) {
	d := threeCities()
	p, err := TSP(d)
	require.NoError(t, err)
	assert.Equal(t, 9, p.N())

	x := tourAssignment([]int{0, 2, 1})
	tour, err := DecodeTSP(x, 3)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 1, 2}, tour)
	assert.Equal(t, []int{0, 2, 1}, tour)

	length, err := TourLength(d, tour)
	require.NoError(t, err)
	assert.InDelta(t, 2+1.5+1, length, 1e-12)

	// penalties cancel on a feasible assignment
	e, err := p.EvaluateBits(x)
	require.NoError(t, err)
	assert.InDelta(t, length, e, 1e-9)
}

func TestTSPInfeasibleDecodesToNil(t *testing.T) {
	x := tourAssignment([]int{0, 1, 2})
	x[TSPVar(1, 0, 3)] = true
	tour, err := DecodeTSP(x, 3)
	require.NoError(t, err)
	assert.Nil(t, tour)

	repeated := tourAssignment([]int{0, 0, 2})
	tour, err = DecodeTSP(repeated, 3)
	require.NoError(t, err)
	assert.Nil(t, tour)

	tour, err = DecodeTSP(make([]bool, 9), 3)
	require.NoError(t, err)
	assert.Nil(t, tour)

	_, err = DecodeTSP(make([]bool, 8), 3)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestTSPFeasibleMinimumIsShortestTour(t *testing.T) {
	d := mat.NewDense(3, 3, []float64{
		0, 1, 4,
		1, 0, 2,
		4, 2, 0,
	})
	p, err := TSP(d, WithPenalty(20))
	require.NoError(t, err)

	x, e := bruteForceMin(t, p)
	tour, err := DecodeTSP(x, 3)
	require.NoError(t, err)
	require.NotNil(t, tour)
	assert.InDelta(t, 7.0, e, 1e-9)
}

func TestTSPValidation(t *testing.T) {
	var verr *ValidationError
	_, err := TSP(mat.NewDense(2, 3, nil))
	assert.ErrorAs(t, err, &verr)
	_, err = TSP(mat.NewDense(1, 1, nil))
	assert.ErrorAs(t, err, &verr)
}

func TestPortfolioZeroAssetEnergy(t *testing.T) {
	r := []float64{0.10, 0.12, 0.08, 0.15}
	cov := mat.NewDiagDense(4, []float64{0.02, 0.03, 0.015, 0.04})

	p, err := Portfolio(r, cov, WithRiskFactor(2), WithBudget(2), WithBudgetPenalty(3))
	require.NoError(t, err)
	e, err := p.Evaluate(make([]float64, 4))
	require.NoError(t, err)
	assert.InDelta(t, 3*2*2, e, 1e-12)

	// default penalty is max|r| * n
	p, err = Portfolio(r, cov, WithBudget(2))
	require.NoError(t, err)
	e, err = p.Evaluate(make([]float64, 4))
	require.NoError(t, err)
	assert.InDelta(t, 0.15*4*4, e, 1e-12)
}

func TestPortfolioObjective(t *testing.T) {
	r := []float64{0.1, 0.2}
	cov := mat.NewDense(2, 2, []float64{0.05, 0.01, 0.01, 0.08})
	p, err := Portfolio(r, cov, WithRiskFactor(0.5))
	require.NoError(t, err)

	e, err := p.Evaluate([]float64{1, 1})
	require.NoError(t, err)
	want := -0.3 + 0.5*(0.05+0.08+0.01+0.01)
	assert.InDelta(t, want, e, 1e-12)
	assert.Equal(t, []int{0, 1}, Selected([]bool{true, true}))
}

func TestPortfolioShapeMismatch(t *testing.T) {
	_, err := Portfolio([]float64{1, 2, 3}, mat.NewDense(2, 2, nil))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSpecFromYAML(t *testing.T) {
	doc := `
kind: tsp
distances:
  - [0, 1, 2]
  - [1, 0, 1.5]
  - [2, 1.5, 0]
penalty: 10
`
	var s Spec
	require.NoError(t, yaml.Unmarshal([]byte(doc), &s))
	p, err := s.Build()
	require.NoError(t, err)
	assert.Equal(t, 9, p.N())
	assert.InDelta(t, 60.0, p.Offset(), 1e-12)
}

func TestSpecKinds(t *testing.T) {
	terms := Spec{
		Kind:      KindTerms,
		N:         2,
		Linear:    map[int]float64{0: 1},
		Quadratic: []Term{{I: 1, J: 0, Coeff: -2}},
		Offset:    0.5,
	}
	p, err := terms.Build()
	require.NoError(t, err)
	assert.Equal(t, map[qubo.Pair]float64{{I: 0, J: 1}: -2}, p.Quadratic())
	assert.Equal(t, 0.5, p.Offset())

	mc := Spec{Kind: KindMaxCut, Edges: []WeightedEdge{{U: 0, V: 1, Weight: 1}}}
	p, err = mc.Build()
	require.NoError(t, err)
	assert.Equal(t, 2, p.N())

	ragged := Spec{Kind: KindMatrix, Matrix: [][]float64{{1, 2}, {3}}}
	_, err = ragged.Build()
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = (&Spec{Kind: "knapsack"}).Build()
	assert.ErrorAs(t, err, &verr)
}
