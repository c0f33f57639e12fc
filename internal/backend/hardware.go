package backend

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cwbudde/varqopt/internal/circuit"
)

// DefaultPollTimeout bounds the wait for a submitted job's result.
const DefaultPollTimeout = 600 * time.Second

// Device is an execution target that accepts OpenQASM program text.
type Device interface {
	Name() string
	Run(ctx context.Context, program string, shots int) (Job, error)
}

// Job is a submitted execution.
type Job interface {
	Result(ctx context.Context, timeout time.Duration) (Result, error)
}

// Result holds the raw counts a device reported. Keys may use register
// separators, hexadecimal, or fewer digits than the circuit width.
type Result interface {
	Counts() map[string]int
}

// Availability is a device's self-reported status.
type Availability struct {
	Online        bool
	StatusMessage string
}

// AvailabilityReporter is implemented by devices that can report whether
// they accept jobs.
type AvailabilityReporter interface {
	Availability(ctx context.Context) (Availability, error)
}

// HardwareOption configures a Hardware backend.
type HardwareOption func(*Hardware)

// WithPollTimeout overrides DefaultPollTimeout.
func WithPollTimeout(d time.Duration) HardwareOption {
	return func(h *Hardware) { h.pollTimeout = d }
}

// WithoutAvailabilityCheck skips the availability pre-check.
func WithoutAvailabilityCheck() HardwareOption {
	return func(h *Hardware) { h.checkAvailability = false }
}

// WithSubmitRate limits job submissions to r per second with the given burst.
func WithSubmitRate(r float64, burst int) HardwareOption {
	return func(h *Hardware) { h.limiter = rate.NewLimiter(rate.Limit(r), max(1, burst)) }
}

// Hardware adapts a Device to Backend. The circuit is sent as OpenQASM text
// and the returned counts are normalised to the circuit width.
type Hardware struct {
	device            Device
	pollTimeout       time.Duration
	checkAvailability bool
	limiter           *rate.Limiter

	mu      sync.Mutex
	checked bool
}

// NewHardware wraps device. By default the device's availability is checked
// before the first submission.
func NewHardware(device Device, opts ...HardwareOption) *Hardware {
	h := &Hardware{
		device:            device,
		pollTimeout:       DefaultPollTimeout,
		checkAvailability: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hardware) String() string {
	return fmt.Sprintf("Hardware(%q, timeout=%s)", h.device.Name(), h.pollTimeout)
}

// Run submits c and waits for its counts.
func (h *Hardware) Run(ctx context.Context, c *circuit.Circuit, shots int) (Counts, error) {
	if err := h.ensureAvailable(ctx); err != nil {
		return nil, err
	}
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("hardware %s: waiting to submit: %w", h.device.Name(), err)
		}
	}

	job, err := h.device.Run(ctx, c.QASM(), shots)
	if err != nil {
		return nil, fmt.Errorf("hardware %s: submit: %w", h.device.Name(), err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, h.pollTimeout)
	defer cancel()
	res, err := job.Result(waitCtx, h.pollTimeout)
	if err != nil {
		return nil, fmt.Errorf("hardware %s: result: %w", h.device.Name(), err)
	}

	counts, err := NormalizeCounts(res.Counts(), c.NumQubits)
	if err != nil {
		return nil, fmt.Errorf("hardware %s: %w", h.device.Name(), err)
	}
	return counts, nil
}

func (h *Hardware) ensureAvailable(ctx context.Context) error {
	if !h.checkAvailability {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.checked {
		return nil
	}

	reporter, ok := h.device.(AvailabilityReporter)
	if !ok {
		h.checked = true
		return nil
	}
	avail, err := reporter.Availability(ctx)
	if err != nil {
		return fmt.Errorf("hardware %s: availability: %w", h.device.Name(), err)
	}
	if !avail.Online {
		slog.Warn("Backend unavailable", "device", h.device.Name(), "status", avail.StatusMessage)
		return fmt.Errorf("%w: %s: %s", ErrBackendOffline, h.device.Name(), avail.StatusMessage)
	}
	h.checked = true
	return nil
}

// LocalDevice runs programs on a Simulator through the same text interface a
// remote device would use.
type LocalDevice struct {
	Sim *Simulator
}

// NewLocalDevice returns a device backed by a simulator seeded with seed.
func NewLocalDevice(seed uint64) *LocalDevice {
	return &LocalDevice{Sim: NewSimulator(seed)}
}

func (d *LocalDevice) Name() string { return "local-simulator" }

func (d *LocalDevice) Run(ctx context.Context, program string, shots int) (Job, error) {
	c, err := circuit.Parse(program)
	if err != nil {
		return nil, err
	}
	counts, err := d.Sim.Run(ctx, c, shots)
	if err != nil {
		return nil, err
	}
	return doneJob{counts}, nil
}

// Availability always reports online.
func (d *LocalDevice) Availability(context.Context) (Availability, error) {
	return Availability{Online: true, StatusMessage: "ready"}, nil
}

type doneJob struct{ counts Counts }

func (j doneJob) Result(context.Context, time.Duration) (Result, error) {
	return j, nil
}

func (j doneJob) Counts() map[string]int {
	return j.counts
}
