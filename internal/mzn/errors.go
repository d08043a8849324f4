package mzn

import (
	"errors"
	"fmt"
	"strings"
)

// Terminal solving outcomes. These signal a property of the constraint
// problem, not an infrastructure fault; callers branch with errors.Is and
// never retry them.
var (
	// ErrUnsatisfiable is returned when the problem admits no solution.
	ErrUnsatisfiable = errors.New("the problem is unsatisfiable")

	// ErrUnknown is returned when the solver could not determine a solution.
	ErrUnknown = errors.New("the solution of the problem is unknown")

	// ErrUnbounded is returned when the objective is unbounded.
	ErrUnbounded = errors.New("the problem is unbounded")
)

// ToolError reports an external toolchain program that exited non-zero.
// The tool's captured stderr is preserved verbatim.
type ToolError struct {
	// Tool is the program that failed.
	Tool string

	// Stderr is the captured standard error text.
	Stderr string

	// Err is the underlying invocation error.
	Err error
}

func (e *ToolError) Error() string {
	if s := strings.TrimSpace(e.Stderr); s != "" {
		return fmt.Sprintf("%s: %s", e.Tool, s)
	}
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }
