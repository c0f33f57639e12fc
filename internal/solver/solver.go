// Package solver implements the variational solvers: PCE and QAOA for
// quadratic binary problems and VQE for Pauli-sum Hamiltonians.
//
// Every solver samples circuits through a backend.Backend and drives an
// opt.Optimizer over the circuit angles. Solvers are not safe for concurrent
// Solve calls on the same instance.
package solver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cwbudde/varqopt/internal/backend"
	"github.com/cwbudde/varqopt/internal/opt"
)

// Evaluation is one objective call made by the optimizer.
type Evaluation struct {
	Index int     `json:"index"`
	Cost  float64 `json:"cost"`
}

// Observer receives every cost evaluation in order.
type Observer func(Evaluation)

type options struct {
	backend   backend.Backend
	optimizer opt.Optimizer
	observer  Observer
}

// Option configures a solver.
type Option func(*options)

// WithBackend sets the execution backend. Without it every Solve call uses a
// fresh simulator seeded from the solver's seed.
func WithBackend(b backend.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithOptimizer sets the outer minimiser. The default is Nelder–Mead with
// the configured evaluation budget.
func WithOptimizer(m opt.Optimizer) Option {
	return func(o *options) { o.optimizer = m }
}

// WithObserver registers a callback for every cost evaluation.
func WithObserver(fn Observer) Option {
	return func(o *options) { o.observer = fn }
}

func buildOptions(opts []Option) options {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func (o options) backendFor(seed uint64) backend.Backend {
	if o.backend != nil {
		return o.backend
	}
	return backend.NewSimulator(seed)
}

func (o options) optimizerFor(maxIter int) opt.Optimizer {
	if o.optimizer != nil {
		return o.optimizer
	}
	return opt.NewNelderMead(maxIter)
}

func (o options) notify(index int, cost float64) {
	if o.observer != nil {
		o.observer(Evaluation{Index: index, Cost: cost})
	}
}

var validate = validator.New()

// validateConfig runs the struct tags of cfg and converts the first failure
// into a ValidationError.
func validateConfig(cfg any) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		reason := fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		return &ValidationError{
			Field:  strings.ToLower(fe.Field()),
			Reason: fmt.Sprintf("failed %s (got %v)", reason, fe.Value()),
		}
	}
	return fmt.Errorf("solver: validate config: %w", err)
}

// ValidationError reports an invalid solver argument.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "solver: invalid " + e.Field + ": " + e.Reason
}
