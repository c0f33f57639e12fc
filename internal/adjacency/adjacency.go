// Package adjacency converts the supported weighted-graph inputs into dense
// adjacency matrices.
package adjacency

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/mat"
)

// Source yields a square adjacency matrix.
type Source interface {
	Dense() (*mat.Dense, error)
}

// Matrix wraps an n x n adjacency matrix. It does not need to be symmetric.
type Matrix struct {
	M mat.Matrix
}

func (m Matrix) Dense() (*mat.Dense, error) {
	if m.M == nil {
		return nil, &ValidationError{Field: "matrix", Reason: "is nil"}
	}
	r, c := m.M.Dims()
	if r != c {
		return nil, &ValidationError{Field: "matrix", Reason: fmt.Sprintf("must be square, got %dx%d", r, c)}
	}
	if r == 0 {
		return nil, &ValidationError{Field: "matrix", Reason: "is empty"}
	}
	return mat.DenseCopyOf(m.M), nil
}

// Edge is an undirected edge between node indices U and V.
type Edge struct {
	U, V int
}

// Edges is a sparse undirected edge-weight map. Nodes may be zero, in which
// case the node count is inferred as the largest endpoint plus one.
type Edges struct {
	Weights map[Edge]float64
	Nodes   int
}

func (e Edges) Dense() (*mat.Dense, error) {
	n := e.Nodes
	if n == 0 {
		for k := range e.Weights {
			n = max(n, k.U+1, k.V+1)
		}
	}
	if n <= 0 {
		return nil, &ValidationError{Field: "edges", Reason: "empty edge map and no node count"}
	}

	a := mat.NewDense(n, n, nil)
	for _, k := range sortedEdges(e.Weights) {
		if k.U < 0 || k.V < 0 || k.U >= n || k.V >= n {
			return nil, &ValidationError{Field: "edges", Reason: fmt.Sprintf("edge (%d,%d) out of range [0, %d)", k.U, k.V, n)}
		}
		w := e.Weights[k]
		a.Set(k.U, k.V, a.At(k.U, k.V)+w)
		a.Set(k.V, k.U, a.At(k.V, k.U)+w)
	}
	return a, nil
}

// Graph adapts a gonum weighted graph. Row i of the matrix is the node with
// the i-th smallest ID; NodeIDs returns that ordering.
type Graph struct {
	G graph.Weighted
}

// NodeIDs returns the graph's node IDs in matrix order.
func (g Graph) NodeIDs() []int64 {
	nodes := graph.NodesOf(g.G.Nodes())
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID()
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

func (g Graph) Dense() (*mat.Dense, error) {
	if g.G == nil {
		return nil, &ValidationError{Field: "graph", Reason: "is nil"}
	}
	ids := g.NodeIDs()
	n := len(ids)
	if n == 0 {
		return nil, &ValidationError{Field: "graph", Reason: "has no nodes"}
	}

	a := mat.NewDense(n, n, nil)
	for i, u := range ids {
		for j, v := range ids {
			if i == j {
				continue
			}
			if e := g.G.WeightedEdge(u, v); e != nil {
				a.Set(i, j, e.Weight())
			}
		}
	}
	return a, nil
}

// Symmetric returns (A + Aᵀ)/2 for the source's matrix.
func Symmetric(src Source) (*mat.SymDense, error) {
	a, err := src.Dense()
	if err != nil {
		return nil, err
	}
	n, _ := a.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, (a.At(i, j)+a.At(j, i))/2)
		}
	}
	return s, nil
}

func sortedEdges(w map[Edge]float64) []Edge {
	keys := make([]Edge, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].U != keys[b].U {
			return keys[a].U < keys[b].U
		}
		return keys[a].V < keys[b].V
	})
	return keys
}

// ValidationError reports a malformed adjacency input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "adjacency: invalid " + e.Field + ": " + e.Reason
}
