// Package circuit assembles OpenQASM 3 program text and parses it into the
// gate lists executed by backends.
package circuit

import (
	"fmt"
	"strconv"
	"strings"
)

// Gate names understood by Parse and the simulator.
const (
	GateH   = "h"
	GateX   = "x"
	GateY   = "y"
	GateZ   = "z"
	GateS   = "s"
	GateSdg = "sdg"
	GateRX  = "rx"
	GateRY  = "ry"
	GateRZ  = "rz"
	GateCX  = "cx"
	GateCZ  = "cz"
)

// Program accumulates the text of an OpenQASM 3 program: declarations
// first, gate lines in call order, one full-register measurement last.
type Program struct {
	n     int
	lines []string
}

// NewProgram starts a program on n qubits and n classical bits.
func NewProgram(n int) *Program {
	return &Program{n: n}
}

// NumQubits returns the register width.
func (p *Program) NumQubits() int { return p.n }

// Gate appends a parameterless gate.
func (p *Program) Gate(name string, qubits ...int) *Program {
	p.lines = append(p.lines, name+" "+qubitList(qubits)+";")
	return p
}

// Rotation appends a single-parameter gate.
func (p *Program) Rotation(name string, angle float64, qubit int) *Program {
	p.lines = append(p.lines, fmt.Sprintf("%s(%s) q[%d];", name, formatAngle(angle), qubit))
	return p
}

func (p *Program) H(q int) *Program                 { return p.Gate(GateH, q) }
func (p *Program) Sdg(q int) *Program               { return p.Gate(GateSdg, q) }
func (p *Program) CX(control, target int) *Program  { return p.Gate(GateCX, control, target) }
func (p *Program) RX(theta float64, q int) *Program { return p.Rotation(GateRX, theta, q) }
func (p *Program) RY(theta float64, q int) *Program { return p.Rotation(GateRY, theta, q) }
func (p *Program) RZ(theta float64, q int) *Program { return p.Rotation(GateRZ, theta, q) }

// String renders the full program including the trailing measurement.
func (p *Program) String() string {
	var sb strings.Builder
	sb.WriteString("OPENQASM 3.0;\n")
	sb.WriteString("include \"stdgates.inc\";\n")
	fmt.Fprintf(&sb, "qubit[%d] q;\n", p.n)
	fmt.Fprintf(&sb, "bit[%d] c;\n", p.n)
	for _, l := range p.lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	sb.WriteString("c = measure q;\n")
	return sb.String()
}

// Circuit parses the rendered program.
func (p *Program) Circuit() (*Circuit, error) {
	return Parse(p.String())
}

func qubitList(qubits []int) string {
	parts := make([]string, len(qubits))
	for i, q := range qubits {
		parts[i] = fmt.Sprintf("q[%d]", q)
	}
	return strings.Join(parts, ", ")
}

// formatAngle uses the shortest representation that parses back to the same float.
func formatAngle(a float64) string {
	return strconv.FormatFloat(a, 'g', -1, 64)
}
