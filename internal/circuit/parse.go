package circuit

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Op is one gate application. Params is empty for parameterless gates.
type Op struct {
	Gate   string
	Qubits []int
	Params []float64
}

// Circuit is a parsed program: gates in program order on NumQubits qubits.
type Circuit struct {
	NumQubits int
	Ops       []Op
	Measured  bool
}

var (
	qubitDeclRe = regexp.MustCompile(`^qubit\[(\d+)\]\s+(\w+)$`)
	qregDeclRe  = regexp.MustCompile(`^qreg\s+(\w+)\[(\d+)\]$`)
	bitDeclRe   = regexp.MustCompile(`^(?:bit\[\d+\]\s+\w+|creg\s+\w+\[\d+\])$`)
	measureRe   = regexp.MustCompile(`^(?:\w+\s*=\s*measure\s+\w+|measure\s+\w+\s*->\s*\w+|\w+\[\d+\]\s*=\s*measure\s+\w+\[\d+\]|measure\s+\w+\[\d+\]\s*->\s*\w+\[\d+\])$`)
	gateRe      = regexp.MustCompile(`^([a-z]+)(?:\(([^)]*)\))?\s+(.+)$`)
	operandRe   = regexp.MustCompile(`^\w+\[(\d+)\]$`)
)

var gateArity = map[string]struct{ qubits, params int }{
	GateH: {1, 0}, GateX: {1, 0}, GateY: {1, 0}, GateZ: {1, 0},
	GateS: {1, 0}, GateSdg: {1, 0},
	GateRX: {1, 1}, GateRY: {1, 1}, GateRZ: {1, 1},
	GateCX: {2, 0}, GateCZ: {2, 0},
}

// Parse reads the OpenQASM subset emitted by Program (and the equivalent
// OpenQASM 2 register syntax). Qubit declarations must precede gates.
func Parse(text string) (*Circuit, error) {
	c := &Circuit{NumQubits: -1}
	for lineNo, raw := range strings.Split(text, "\n") {
		line := raw
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, stmt := range strings.Split(line, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if err := c.statement(stmt); err != nil {
				return nil, fmt.Errorf("circuit: line %d: %w", lineNo+1, err)
			}
		}
	}
	if c.NumQubits < 0 {
		return nil, fmt.Errorf("circuit: no qubit declaration")
	}
	return c, nil
}

func (c *Circuit) statement(stmt string) error {
	switch {
	case strings.HasPrefix(stmt, "OPENQASM"), strings.HasPrefix(stmt, "include"):
		return nil
	case bitDeclRe.MatchString(stmt):
		return nil
	}

	if m := qubitDeclRe.FindStringSubmatch(stmt); m != nil {
		return c.declare(m[1])
	}
	if m := qregDeclRe.FindStringSubmatch(stmt); m != nil {
		return c.declare(m[2])
	}
	if measureRe.MatchString(stmt) {
		if c.NumQubits < 0 {
			return fmt.Errorf("measurement before qubit declaration")
		}
		c.Measured = true
		return nil
	}

	m := gateRe.FindStringSubmatch(stmt)
	if m == nil {
		return fmt.Errorf("unrecognised statement %q", stmt)
	}
	if c.NumQubits < 0 {
		return fmt.Errorf("gate %q before qubit declaration", m[1])
	}
	if c.Measured {
		return fmt.Errorf("gate %q after measurement", m[1])
	}
	arity, ok := gateArity[m[1]]
	if !ok {
		return fmt.Errorf("unsupported gate %q", m[1])
	}

	op := Op{Gate: m[1]}
	if m[2] != "" {
		for _, expr := range strings.Split(m[2], ",") {
			v, err := parseAngle(expr)
			if err != nil {
				return err
			}
			op.Params = append(op.Params, v)
		}
	}
	if len(op.Params) != arity.params {
		return fmt.Errorf("gate %s takes %d parameters, got %d", op.Gate, arity.params, len(op.Params))
	}

	for _, operand := range strings.Split(m[3], ",") {
		om := operandRe.FindStringSubmatch(strings.TrimSpace(operand))
		if om == nil {
			return fmt.Errorf("bad operand %q", operand)
		}
		q, _ := strconv.Atoi(om[1])
		if q >= c.NumQubits {
			return fmt.Errorf("qubit %d out of range [0, %d)", q, c.NumQubits)
		}
		op.Qubits = append(op.Qubits, q)
	}
	if len(op.Qubits) != arity.qubits {
		return fmt.Errorf("gate %s acts on %d qubits, got %d", op.Gate, arity.qubits, len(op.Qubits))
	}
	if arity.qubits == 2 && op.Qubits[0] == op.Qubits[1] {
		return fmt.Errorf("gate %s needs distinct qubits", op.Gate)
	}

	c.Ops = append(c.Ops, op)
	return nil
}

func (c *Circuit) declare(size string) error {
	if c.NumQubits >= 0 {
		return fmt.Errorf("only one qubit register is supported")
	}
	n, err := strconv.Atoi(size)
	if err != nil {
		return fmt.Errorf("bad register size %q", size)
	}
	c.NumQubits = n
	return nil
}

// parseAngle accepts a float literal or a product/quotient involving pi,
// e.g. "pi/2", "-2*pi", "0.5*pi/3".
func parseAngle(expr string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(expr), " ", "")
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}

	sign := 1.0
	if strings.HasPrefix(s, "-") {
		sign, s = -1, s[1:]
	}
	num, den, hasDen := strings.Cut(s, "/")
	v := 1.0
	for _, f := range strings.Split(num, "*") {
		switch f {
		case "pi", "π":
			v *= math.Pi
		default:
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return 0, fmt.Errorf("bad angle %q", expr)
			}
			v *= x
		}
	}
	if hasDen {
		d, err := strconv.ParseFloat(den, 64)
		if err != nil || d == 0 {
			return 0, fmt.Errorf("bad angle %q", expr)
		}
		v /= d
	}
	return sign * v, nil
}

// QASM re-emits the circuit as OpenQASM 3 text ending in a full measurement.
func (c *Circuit) QASM() string {
	p := NewProgram(c.NumQubits)
	for _, op := range c.Ops {
		if len(op.Params) == 1 {
			p.Rotation(op.Gate, op.Params[0], op.Qubits[0])
		} else {
			p.Gate(op.Gate, op.Qubits...)
		}
	}
	return p.String()
}

// Depth returns the number of gate layers when gates on disjoint qubits are
// packed greedily.
func (c *Circuit) Depth() int {
	level := make([]int, c.NumQubits)
	depth := 0
	for _, op := range c.Ops {
		d := 0
		for _, q := range op.Qubits {
			d = max(d, level[q])
		}
		d++
		for _, q := range op.Qubits {
			level[q] = d
		}
		depth = max(depth, d)
	}
	return depth
}
