// Package partition splits weighted graphs into node groups with normalized
// spectral clustering.
package partition

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/varqopt/internal/adjacency"
)

const (
	degreeEpsilon = 1e-12
	normEpsilon   = 1e-12
)

type options struct {
	seed      uint64
	clusterer Clusterer
}

// Option configures Spectral.
type Option func(*options)

// WithSeed fixes the k-means seed. The default seed is 0.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithClusterer selects the clustering strategy. The default is
// DefaultClusterer().
func WithClusterer(c Clusterer) Option {
	return func(o *options) { o.clusterer = c }
}

// Spectral partitions the graph into nParts node-index lists. Every node
// appears in exactly one list; lists may be empty when the graph has fewer
// natural clusters than requested.
func Spectral(src adjacency.Source, nParts int, opts ...Option) ([][]int, error) {
	if nParts < 1 {
		return nil, &ValidationError{Field: "nParts", Reason: fmt.Sprintf("must be >= 1, got %d", nParts)}
	}
	o := options{clusterer: DefaultClusterer()}
	for _, fn := range opts {
		fn(&o)
	}

	a, err := adjacency.Symmetric(src)
	if err != nil {
		return nil, err
	}
	n := a.SymmetricDim()

	if nParts == 1 {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return [][]int{all}, nil
	}
	if nParts >= n {
		parts := make([][]int, nParts)
		for i := range parts {
			if i < n {
				parts[i] = []int{i}
			} else {
				parts[i] = []int{}
			}
		}
		return parts, nil
	}

	lap := NormalizedLaplacian(a)
	var eig mat.EigenSym
	if ok := eig.Factorize(lap, true); !ok {
		return nil, fmt.Errorf("partition: eigendecomposition of %dx%d laplacian failed", n, n)
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// EigenSym orders eigenvalues ascending; keep the first nParts columns.
	embedding := mat.DenseCopyOf(vecs.Slice(0, n, 0, nParts))
	normalizeRows(embedding)

	rng := rand.New(rand.NewPCG(o.seed, o.seed))
	labels := o.clusterer.Cluster(embedding, nParts, rng)

	parts := make([][]int, nParts)
	for i := range parts {
		parts[i] = []int{}
	}
	for node, label := range labels {
		parts[label] = append(parts[label], node)
	}

	slog.Debug("Spectral partition computed", "nodes", n, "parts", nParts, "clusterer", o.clusterer.Name())
	return parts, nil
}

// NormalizedLaplacian returns L = I - D^-1/2 A D^-1/2. Rows with zero degree
// get a zero scaling factor.
func NormalizedLaplacian(a mat.Symmetric) *mat.SymDense {
	n := a.SymmetricDim()
	scale := make([]float64, n)
	for i := 0; i < n; i++ {
		var deg float64
		for j := 0; j < n; j++ {
			deg += a.At(i, j)
		}
		if deg > degreeEpsilon {
			scale[i] = 1 / math.Sqrt(deg)
		}
	}

	l := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := -scale[i] * a.At(i, j) * scale[j]
			if i == j {
				v++
			}
			l.SetSym(i, j, v)
		}
	}
	return l
}

func normalizeRows(m *mat.Dense) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		if norm := floats.Norm(row, 2); norm > normEpsilon {
			floats.Scale(1/norm, row)
		}
	}
}

// ValidationError reports invalid partition arguments.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "partition: invalid " + e.Field + ": " + e.Reason
}
