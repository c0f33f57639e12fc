package problems

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/varqopt/internal/adjacency"
	"github.com/cwbudde/varqopt/internal/qubo"
)

// Kind names a problem family accepted by Spec.
type Kind string

const (
	KindMatrix    Kind = "matrix"
	KindTerms     Kind = "terms"
	KindMaxCut    Kind = "maxcut"
	KindTSP       Kind = "tsp"
	KindPortfolio Kind = "portfolio"
)

// WeightedEdge is one edge of a MaxCut graph.
type WeightedEdge struct {
	U      int     `json:"u" yaml:"u"`
	V      int     `json:"v" yaml:"v"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// Term is one quadratic coefficient of a terms problem. I and J may be in
// any order; I == J adds to the linear coefficient.
type Term struct {
	I     int     `json:"i" yaml:"i"`
	J     int     `json:"j" yaml:"j"`
	Coeff float64 `json:"coeff" yaml:"coeff"`
}

// Spec is the serialisable description of a problem, read from YAML problem
// files and JSON job requests.
type Spec struct {
	Kind Kind `json:"kind" yaml:"kind" validate:"required,oneof=matrix terms maxcut tsp portfolio"`

	// matrix
	Matrix [][]float64 `json:"matrix,omitempty" yaml:"matrix,omitempty"`

	// terms
	N         int             `json:"n,omitempty" yaml:"n,omitempty"`
	Linear    map[int]float64 `json:"linear,omitempty" yaml:"linear,omitempty"`
	Quadratic []Term          `json:"quadratic,omitempty" yaml:"quadratic,omitempty"`
	Offset    float64         `json:"offset,omitempty" yaml:"offset,omitempty"`

	// maxcut
	Edges []WeightedEdge `json:"edges,omitempty" yaml:"edges,omitempty"`
	Nodes int            `json:"nodes,omitempty" yaml:"nodes,omitempty"`

	// tsp
	Distances [][]float64 `json:"distances,omitempty" yaml:"distances,omitempty"`
	Penalty   *float64    `json:"penalty,omitempty" yaml:"penalty,omitempty"`

	// portfolio
	Returns       []float64   `json:"returns,omitempty" yaml:"returns,omitempty"`
	Covariance    [][]float64 `json:"covariance,omitempty" yaml:"covariance,omitempty"`
	RiskFactor    *float64    `json:"risk_factor,omitempty" yaml:"risk_factor,omitempty"`
	Budget        *int        `json:"budget,omitempty" yaml:"budget,omitempty"`
	BudgetPenalty *float64    `json:"budget_penalty,omitempty" yaml:"budget_penalty,omitempty"`
}

var validate = validator.New()

// Validate checks the struct tags of s. Build calls it first.
func (s *Spec) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{
			Field:  strings.ToLower(fe.Field()),
			Reason: fmt.Sprintf("%q fails %s (choose matrix, terms, maxcut, tsp or portfolio)", fe.Value(), fe.Tag()),
		}
	}
	return fmt.Errorf("problems: validate spec: %w", err)
}

// Build constructs the QUBO the spec describes.
func (s *Spec) Build() (*qubo.Problem, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	switch s.Kind {
	case KindMatrix:
		m, err := denseFromRows("matrix", s.Matrix)
		if err != nil {
			return nil, err
		}
		return qubo.FromMatrix(m)

	case KindTerms:
		quad := make(map[qubo.Pair]float64, len(s.Quadratic))
		for _, t := range s.Quadratic {
			quad[qubo.Pair{I: t.I, J: t.J}] += t.Coeff
		}
		p, err := qubo.FromDict(s.N, s.Linear, quad)
		if err != nil {
			return nil, err
		}
		return p.WithOffset(s.Offset), nil

	case KindMaxCut:
		return MaxCut(s.Adjacency())

	case KindTSP:
		d, err := denseFromRows("distances", s.Distances)
		if err != nil {
			return nil, err
		}
		var opts []TSPOption
		if s.Penalty != nil {
			opts = append(opts, WithPenalty(*s.Penalty))
		}
		return TSP(d, opts...)

	case KindPortfolio:
		cov, err := denseFromRows("covariance", s.Covariance)
		if err != nil {
			return nil, err
		}
		var opts []PortfolioOption
		if s.RiskFactor != nil {
			opts = append(opts, WithRiskFactor(*s.RiskFactor))
		}
		if s.Budget != nil {
			opts = append(opts, WithBudget(*s.Budget))
		}
		if s.BudgetPenalty != nil {
			opts = append(opts, WithBudgetPenalty(*s.BudgetPenalty))
		}
		return Portfolio(s.Returns, cov, opts...)

	default:
		return nil, &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown problem kind %q", s.Kind)}
	}
}

// Adjacency returns the spec's graph, either from Edges or from Matrix.
func (s *Spec) Adjacency() adjacency.Source {
	if len(s.Edges) == 0 && len(s.Matrix) > 0 {
		m, err := denseFromRows("matrix", s.Matrix)
		if err != nil {
			return errSource{err}
		}
		return adjacency.Matrix{M: m}
	}
	w := make(map[adjacency.Edge]float64, len(s.Edges))
	for _, e := range s.Edges {
		w[adjacency.Edge{U: e.U, V: e.V}] += e.Weight
	}
	return adjacency.Edges{Weights: w, Nodes: s.Nodes}
}

type errSource struct{ err error }

func (e errSource) Dense() (*mat.Dense, error) { return nil, e.err }

func denseFromRows(field string, rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, &ValidationError{Field: field, Reason: "is empty"}
	}
	cols := len(rows[0])
	if cols == 0 {
		return nil, &ValidationError{Field: field, Reason: "has empty rows"}
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, &ValidationError{Field: field, Reason: fmt.Sprintf("row %d has %d columns, want %d", i, len(row), cols)}
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}
