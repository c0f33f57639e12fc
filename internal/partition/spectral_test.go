package partition

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/varqopt/internal/adjacency"
)

// twoCliques returns two 4-node cliques joined by a single weak edge.
func twoCliques() adjacency.Edges {
	w := map[adjacency.Edge]float64{}
	for _, base := range []int{0, 4} {
		for i := 0; i < 4; i++ {
			for j := i + 1; j < 4; j++ {
				w[adjacency.Edge{U: base + i, V: base + j}] = 1
			}
		}
	}
	w[adjacency.Edge{U: 3, V: 4}] = 0.05
	return adjacency.Edges{Weights: w}
}

func assertCovers(t *testing.T, parts [][]int, n int) {
	t.Helper()
	var all []int
	for _, p := range parts {
		all = append(all, p...)
	}
	sort.Ints(all)
	want := make([]int, n)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, all)
}

func TestSinglePartContainsEveryNode(t *testing.T) {
	parts, err := Spectral(twoCliques(), 1)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, parts[0])
}

func TestMorePartsThanNodesGivesSingletons(t *testing.T) {
	src := adjacency.Matrix{M: mat.NewDense(3, 3, []float64{0, 1, 0, 1, 0, 1, 0, 1, 0})}
	parts, err := Spectral(src, 5)
	require.NoError(t, err)

	require.Len(t, parts, 5)
	assert.Equal(t, [][]int{{0}, {1}, {2}, {}, {}}, parts)
	assertCovers(t, parts, 3)
}

func TestInvalidPartCount(t *testing.T) {
	_, err := Spectral(twoCliques(), 0)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = Spectral(adjacency.Matrix{M: mat.NewDense(2, 3, nil)}, 2)
	var aerr *adjacency.ValidationError
	assert.ErrorAs(t, err, &aerr)
}

func TestSplitsWeaklyJoinedCliques(t *testing.T) {
	for _, c := range []Clusterer{DefaultClusterer(), Lloyd{}} {
		t.Run(c.Name(), func(t *testing.T) {
			parts, err := Spectral(twoCliques(), 2, WithSeed(3), WithClusterer(c))
			require.NoError(t, err)
			require.Len(t, parts, 2)
			assertCovers(t, parts, 8)

			groups := [][]int{parts[0], parts[1]}
			sort.Slice(groups, func(a, b int) bool { return groups[a][0] < groups[b][0] })
			assert.Equal(t, []int{0, 1, 2, 3}, groups[0])
			assert.Equal(t, []int{4, 5, 6, 7}, groups[1])
		})
	}
}

func TestDeterministicUnderSeed(t *testing.T) {
	a, err := Spectral(twoCliques(), 3, WithSeed(11))
	require.NoError(t, err)
	b, err := Spectral(twoCliques(), 3, WithSeed(11))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assertCovers(t, a, 8)
}

func TestIsolatedNodesDoNotDivideByZero(t *testing.T) {
	src := adjacency.Edges{Weights: map[adjacency.Edge]float64{{U: 0, V: 1}: 1}, Nodes: 4}
	parts, err := Spectral(src, 2)
	require.NoError(t, err)
	assertCovers(t, parts, 4)
}

func TestNormalizedLaplacianZeroDegreeRow(t *testing.T) {
	a := mat.NewSymDense(3, []float64{
		0, 2, 0,
		2, 0, 0,
		0, 0, 0,
	})
	l := NormalizedLaplacian(a)
	assert.InDelta(t, 1.0, l.At(0, 0), 1e-12)
	assert.InDelta(t, -1.0, l.At(0, 1), 1e-12)
	assert.InDelta(t, 1.0, l.At(2, 2), 1e-12)
	assert.Equal(t, 0.0, l.At(2, 0))
}

func TestLloydSeparatesObviousClusters(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		0, 0,
		0.1, 0,
		0, 0.1,
		10, 10,
		10.1, 10,
		10, 10.1,
	})
	labels := Lloyd{MaxIter: 50}.Cluster(X, 2, rand.New(rand.NewPCG(1, 1)))
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[0], labels[2])
	assert.Equal(t, labels[3], labels[4])
	assert.Equal(t, labels[3], labels[5])
	assert.NotEqual(t, labels[0], labels[3])
}
