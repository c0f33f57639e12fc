package backend

import (
	"context"

	"github.com/cwbudde/varqopt/internal/circuit"
)

// Prepared is a circuit together with whatever work a backend can do on it
// without consuming randomness.
type Prepared struct {
	Circuit *circuit.Circuit
	probs   []float64
}

// Preparer is implemented by backends whose Run splits into a Prepare step,
// safe to call concurrently, and a Sample step that draws from the
// backend's random stream. Run(c) must equal Sample(Prepare(c)).
type Preparer interface {
	Prepare(ctx context.Context, c *circuit.Circuit) (*Prepared, error)
	Sample(ctx context.Context, p *Prepared, shots int) (Counts, error)
}

// Prepare runs the preparation step of b on c. Backends without one get c
// back unchanged and do all their work in Sample.
func Prepare(ctx context.Context, b Backend, c *circuit.Circuit) (*Prepared, error) {
	if pr, ok := b.(Preparer); ok {
		return pr.Prepare(ctx, c)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Prepared{Circuit: c}, nil
}

// Sample draws shots for p on b. Preparing circuits concurrently and then
// sampling them in a fixed order gives the same counts as calling Run in
// that order.
func Sample(ctx context.Context, b Backend, p *Prepared, shots int) (Counts, error) {
	if pr, ok := b.(Preparer); ok {
		return pr.Sample(ctx, p, shots)
	}
	return b.Run(ctx, p.Circuit, shots)
}
