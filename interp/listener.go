package interp

import "github.com/gowasm/wat/ast"

// Listener lets a host observe frame lifecycle and instruction dispatch
// without modifying the kernel, mirroring the teacher's
// experimental.FunctionListener hook. Implementations only need the
// methods they care about; embed NoopListener to satisfy the interface
// with everything else a no-op.
type Listener interface {
	BeforeFrame(code []ast.Node)
	AfterFrame(trap *Trap)
	BeforeInstr(node ast.Node)
}

// NoopListener implements Listener with no-op methods. It is the zero
// value used whenever a frame is created without an explicit listener, so
// the kernel never needs a nil check at the call site.
type NoopListener struct{}

func (NoopListener) BeforeFrame([]ast.Node) {}
func (NoopListener) AfterFrame(*Trap)       {}
func (NoopListener) BeforeInstr(ast.Node)   {}

var _ Listener = NoopListener{}
