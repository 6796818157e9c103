package interp

import (
	"context"

	"github.com/gowasm/wat/ast"
	"github.com/gowasm/wat/values"
)

// ctrlKind discriminates the non-local exits a body of instructions can
// produce besides falling off the end.
type ctrlKind int

const (
	ctrlNone ctrlKind = iota
	// ctrlBranch is produced by br/br_if/br_table: depth counts how many
	// more enclosing block/loop/if frames must unwind before it is
	// consumed (0 means "this is my target").
	ctrlBranch
	// ctrlReturn is produced by `return` and unwinds every enclosing
	// block/loop/if in the current function call unconditionally.
	ctrlReturn
)

// signal is the kernel's internal non-local-exit carrier. It never crosses
// a function-call boundary (invokeFunc resolves it into either results or
// an error before returning), so it stays unexported.
type signal struct {
	kind ctrlKind
	// depth is only meaningful for ctrlBranch.
	depth int
	vals  []values.Value
}

// StackFrame holds everything one nested instruction-sequence evaluation
// needs: its own code and value stack, the locals and label-name stack it
// shares with the call it belongs to, and back-references to the
// allocator/module it runs against. Block, loop, and if bodies each get
// their own child StackFrame (sharing Locals/Allocator/ModuleAddr) so a
// block can produce at most one result value onto its parent's stack —
// this module's single-result-block restriction falls directly out of that
// shape.
type StackFrame struct {
	Code       []ast.Node
	Locals     []values.Value
	Labels     []ast.ID
	Allocator  *Allocator
	ModuleAddr Addr
	Listener   Listener

	ctx   context.Context
	stack []values.Value
}

// CreateStackFrame builds a root frame that will execute code with the
// given locals. alloc and moduleAddr may be zero-valued when code touches
// no global, memory, table, or call instruction — a pure numeric/local
// sequence needs no module behind it. Set the frame's Listener field
// before executing to observe dispatch.
func CreateStackFrame(ctx context.Context, alloc *Allocator, moduleAddr Addr, code []ast.Node, locals []values.Value) *StackFrame {
	return createStackFrame(ctx, alloc, moduleAddr, code, locals, nil)
}

// ExecuteStackFrame walks the frame's code to completion and returns the
// values left behind (the leftover value stack, or the values carried by a
// return). The error is a *Trap for a WebAssembly-level abort — check with
// IsTrap — and a *RuntimeError when the program itself is malformed.
func ExecuteStackFrame(frame *StackFrame) ([]values.Value, error) {
	_, vals, err := executeStackFrame(frame)
	return vals, err
}

// IsTrap reports whether err is a WebAssembly-level Trap, as opposed to a
// RuntimeError (or nil).
func IsTrap(err error) bool { return isTrapped(err) }

// createStackFrame builds a root frame for a function invocation or a
// top-level global initializer.
func createStackFrame(ctx context.Context, alloc *Allocator, moduleAddr Addr, code []ast.Node, locals []values.Value, listener Listener) *StackFrame {
	if listener == nil {
		listener = NoopListener{}
	}
	return &StackFrame{
		Code:       code,
		Locals:     locals,
		Allocator:  alloc,
		ModuleAddr: moduleAddr,
		Listener:   listener,
		ctx:        ctx,
	}
}

// executeStackFrame walks frame.Code to completion, a return, or a trap.
// The error result is either a *RuntimeError (the program is malformed) or
// a *Trap (a WebAssembly-level abnormal termination); use isTrapped to
// distinguish the latter. The returned signal is non-nil when the body
// exited via return or an unconsumed branch rather than falling off the
// end — callers that need to tell a block-local branch from one still
// escaping (block/loop/if) inspect it directly; a function-call root
// collapses either case into plain result values.
func executeStackFrame(frame *StackFrame) (*signal, []values.Value, error) {
	frame.Listener.BeforeFrame(frame.Code)
	sig, err := execBody(frame, frame.Code)
	frame.Listener.AfterFrame(trapOf(err))
	if err != nil {
		return nil, nil, err
	}
	if sig != nil {
		return sig, sig.vals, nil
	}
	return nil, frame.stack, nil
}

// execBody runs a flat instruction sequence against frame's own value
// stack, stopping early on the first signal or error.
func execBody(frame *StackFrame, body []ast.Node) (*signal, error) {
	for _, node := range body {
		frame.Listener.BeforeInstr(node)
		sig, err := execNode(frame, node)
		if err != nil {
			return nil, err
		}
		if sig != nil {
			return sig, nil
		}
	}
	return nil, nil
}

// execNode dispatches a single instruction-position node to its executor.
func execNode(frame *StackFrame, node ast.Node) (*signal, error) {
	switch n := node.(type) {
	case *ast.Instr:
		return execInstr(frame, n)
	case *ast.BlockInstruction:
		return execBlock(frame, n)
	case *ast.LoopInstruction:
		return execLoop(frame, n)
	case *ast.IfInstruction:
		return execIf(frame, n)
	case *ast.CallInstruction:
		return execCall(frame, n)
	case *ast.CallIndirectInstruction:
		return execCallIndirect(frame, n)
	default:
		return nil, runtimeErrorf("unexpected node %T in instruction position", node)
	}
}

// createAndExecuteChildStackFrame runs code in a fresh frame that shares
// the parent's locals, allocator, and originating module, optionally with
// one more label pushed onto the lexical label-name stack (for a
// block/loop/if body). It returns the child's leftover value stack (or its
// return/escaped-branch values) alongside the signal that produced them, if
// any — callers take as many values as their arity expects and inspect the
// signal to decide whether a branch targeted them or one of their ancestors.
func (f *StackFrame) createAndExecuteChildStackFrame(code []ast.Node, label *ast.ID) (*signal, []values.Value, error) {
	child := &StackFrame{
		Code:       code,
		Locals:     f.Locals,
		Allocator:  f.Allocator,
		ModuleAddr: f.ModuleAddr,
		Listener:   f.Listener,
		ctx:        f.ctx,
	}
	if label != nil {
		child.Labels = append(append([]ast.ID{}, f.Labels...), *label)
	} else {
		child.Labels = f.Labels
	}
	return executeStackFrame(child)
}

// pop1 pops and type-checks the top of the stack.
func (f *StackFrame) pop1(want values.Type) (values.Value, error) {
	v, err := f.popAny()
	if err != nil {
		return values.Value{}, err
	}
	if v.Type != want {
		return values.Value{}, runtimeErrorf("operand type mismatch: want %s, got %s", want, v.Type)
	}
	return v, nil
}

// popAny pops the top of the stack without a type constraint, used by
// drop/select and the call/call_indirect argument machinery.
func (f *StackFrame) popAny() (values.Value, error) {
	if len(f.stack) == 0 {
		return values.Value{}, runtimeErrorf("pop: value stack is empty")
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

// pop2 pops the right then left operand of a binary op (right was pushed
// last) and returns them in left, right order, type-checking both against
// t.
func (f *StackFrame) pop2(t values.Type) (left, right values.Value, err error) {
	right, err = f.popAny()
	if err != nil {
		return values.Value{}, values.Value{}, err
	}
	left, err = f.popAny()
	if err != nil {
		return values.Value{}, values.Value{}, err
	}
	if left.Type != t || right.Type != t {
		return values.Value{}, values.Value{}, runtimeErrorf("operand type mismatch: want %s, got %s/%s", t, left.Type, right.Type)
	}
	return left, right, nil
}

// pushResult pushes v onto the frame's value stack.
func (f *StackFrame) pushResult(v values.Value) { f.stack = append(f.stack, v) }

// castIntoStackLocalOfType applies the §4.3 coercion rule for raw to t.
func (f *StackFrame) castIntoStackLocalOfType(t values.Type, raw float64) values.Value {
	return values.CreateValue(t, raw)
}

// getLocalByIndex reads a local by position.
func (f *StackFrame) getLocalByIndex(i uint32) (values.Value, error) {
	if int(i) >= len(f.Locals) {
		return values.Value{}, runtimeErrorf("local index %d out of range (%d locals)", i, len(f.Locals))
	}
	return f.Locals[i], nil
}

// setLocalByIndex writes a local by position.
func (f *StackFrame) setLocalByIndex(i uint32, v values.Value) error {
	if int(i) >= len(f.Locals) {
		return runtimeErrorf("local index %d out of range (%d locals)", i, len(f.Locals))
	}
	f.Locals[i] = v
	return nil
}

// isTrapped reports whether err represents a WebAssembly-level Trap, as
// opposed to a RuntimeError or nil.
func isTrapped(err error) bool {
	_, ok := err.(*Trap)
	return ok
}

func trapOf(err error) *Trap {
	t, _ := err.(*Trap)
	return t
}

// resolveLabelDepth finds how many enclosing blocks/loops idxNode's branch
// target is away from the innermost one, per spec.md's Index-or-literal
// branch-target rule.
func resolveLabelDepth(frame *StackFrame, idxNode ast.Node) (int, error) {
	switch n := idxNode.(type) {
	case *ast.NumberLiteral:
		return int(n.Val), nil
	case *ast.Identifier:
		for i := len(frame.Labels) - 1; i >= 0; i-- {
			if frame.Labels[i].Raw == n.Value {
				return len(frame.Labels) - 1 - i, nil
			}
		}
		return 0, runtimeErrorf("branch target %q not found in enclosing labels", n.Value)
	default:
		return 0, runtimeErrorf("branch target must be a literal depth or label identifier, got %T", idxNode)
	}
}
