package qubo

import "fmt"

// ValidationError reports an invalid problem definition.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "qubo: invalid " + e.Field + ": " + e.Reason
}

// LengthError is returned when an assignment is shorter than the problem.
type LengthError struct {
	Got, Want int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("qubo: assignment length %d is shorter than n=%d", e.Got, e.Want)
}
