package interp

import "fmt"

// RuntimeError reports a malformed program the parser let through but the
// interpreter cannot execute: a missing argument, an unsupported
// (object, op) pair, an unresolved local/global/function reference, or an
// index operand that isn't a literal where one is required. Unlike Trap,
// it is not a WebAssembly-level outcome — it means the AST being executed
// is not well-formed, and always aborts executeStackFrame immediately.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string { return "runtime error: " + e.Message }

func runtimeErrorf(format string, args ...any) *RuntimeError {
	return &RuntimeError{Message: fmt.Sprintf(format, args...)}
}

// Trap is a WebAssembly-level abnormal termination (divide by zero, an
// out-of-bounds memory access, an unreachable instruction, a call through
// a nil table slot). It is returned in the usual Go error position, the
// same position as a RuntimeError; isTrapped tells the two apart.
type Trap struct {
	Message string
}

func (t *Trap) Error() string { return "trap: " + t.Message }

// NewTrap builds a Trap with a formatted message.
func NewTrap(format string, args ...any) *Trap {
	return &Trap{Message: fmt.Sprintf(format, args...)}
}
