package interp

import (
	"github.com/gowasm/wat/ast"
	"github.com/gowasm/wat/values"
)

// resultArity is the number of values a completed block/loop/if body is
// allowed to leave behind: zero if no (result ...) clause was parsed, one
// otherwise — spec.md's single-result-block restriction.
func resultArity(result *values.Type) int {
	if result == nil {
		return 0
	}
	return 1
}

// trailingValues trims a child frame's leftover stack down to the arity its
// (result ...) clause allows, per the kernel's "at most one result value"
// contract.
func trailingValues(vals []values.Value, arity int) ([]values.Value, error) {
	if len(vals) < arity {
		return nil, runtimeErrorf("block produced %d value(s), want %d", len(vals), arity)
	}
	return vals[len(vals)-arity:], nil
}

// completeStructured pushes a structured instruction's trailing result
// values onto the parent frame, or propagates a control signal one level
// further out. A branch whose target is this instruction's own label
// (depth 0) is treated as normal completion (block/if: the label marks the
// end); execLoop handles its own depth-0 branches before calling this (the
// loop label marks the top, so those branches restart it and never reach
// here).
func completeStructured(frame *StackFrame, sig *signal, vals []values.Value, result *values.Type) (*signal, error) {
	if sig == nil {
		out, err := trailingValues(vals, resultArity(result))
		if err != nil {
			return nil, err
		}
		for _, v := range out {
			frame.pushResult(v)
		}
		return nil, nil
	}
	if sig.kind == ctrlReturn {
		return sig, nil
	}
	if sig.depth == 0 {
		out, err := trailingValues(sig.vals, resultArity(result))
		if err != nil {
			return nil, err
		}
		for _, v := range out {
			frame.pushResult(v)
		}
		return nil, nil
	}
	return &signal{kind: ctrlBranch, depth: sig.depth - 1, vals: sig.vals}, nil
}

func execBlock(frame *StackFrame, n *ast.BlockInstruction) (*signal, error) {
	label := n.Label
	sig, vals, err := frame.createAndExecuteChildStackFrame(n.Instr, &label)
	if err != nil {
		return nil, err
	}
	return completeStructured(frame, sig, vals, n.Result)
}

func execLoop(frame *StackFrame, n *ast.LoopInstruction) (*signal, error) {
	label := n.Label
	for {
		sig, vals, err := frame.createAndExecuteChildStackFrame(n.Instr, &label)
		if err != nil {
			return nil, err
		}
		if sig != nil && sig.kind == ctrlBranch && sig.depth == 0 {
			continue // br targeting this loop's own label restarts it
		}
		return completeStructured(frame, sig, vals, n.Result)
	}
}

func execIf(frame *StackFrame, n *ast.IfInstruction) (*signal, error) {
	_, testVals, err := frame.createAndExecuteChildStackFrame(n.Test, nil)
	if err != nil {
		return nil, err
	}
	if len(testVals) != 1 || testVals[0].Type != values.I32 {
		return nil, runtimeErrorf("if: test must produce exactly one i32 value")
	}
	body := n.Alternate
	if testVals[0].I32() != 0 {
		body = n.Consequent
	}
	label := n.Label
	sig, vals, err := frame.createAndExecuteChildStackFrame(body, &label)
	if err != nil {
		return nil, err
	}
	return completeStructured(frame, sig, vals, n.Result)
}

func execBr(frame *StackFrame, in *ast.Instr) (*signal, error) {
	if len(in.Args) == 0 {
		return nil, runtimeErrorf("br: missing branch target")
	}
	depth, err := resolveLabelDepth(frame, in.Args[0])
	if err != nil {
		return nil, err
	}
	vals := snapshotTop(frame)
	if len(in.Args) > 1 {
		// Folded form carries its branch value inline: (br $l (i32.const 7)).
		_, results, err := frame.createAndExecuteChildStackFrame(in.Args[1:], nil)
		if err != nil {
			return nil, err
		}
		if len(results) > 0 {
			vals = results[len(results)-1:]
		}
	}
	return &signal{kind: ctrlBranch, depth: depth, vals: vals}, nil
}

func execBrIf(frame *StackFrame, in *ast.Instr) (*signal, error) {
	if len(in.Args) == 0 {
		return nil, runtimeErrorf("br_if: missing branch target")
	}
	var cond values.Value
	var err error
	if len(in.Args) > 1 {
		// Folded form carries its condition inline: (br_if $l (i32.eqz ...)).
		cond, err = frame.resolveOperand(in.Args, 1, values.I32)
	} else {
		cond, err = frame.pop1(values.I32)
	}
	if err != nil {
		return nil, err
	}
	if cond.I32() == 0 {
		return nil, nil
	}
	depth, err := resolveLabelDepth(frame, in.Args[0])
	if err != nil {
		return nil, err
	}
	return &signal{kind: ctrlBranch, depth: depth, vals: snapshotTop(frame)}, nil
}

func execBrTable(frame *StackFrame, in *ast.Instr) (*signal, error) {
	labels := in.Args
	var idx values.Value
	var err error
	if n := len(labels); n > 0 && !isLabelNode(labels[n-1]) {
		// Folded form carries the selector inline as the trailing operand:
		// (br_table $a $b $c (get_local 0)).
		idx, err = frame.resolveOperand(labels, n-1, values.I32)
		labels = labels[:n-1]
	} else {
		idx, err = frame.pop1(values.I32)
	}
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, runtimeErrorf("br_table: missing label vector")
	}
	i := int(uint32(idx.I32()))
	target := labels[len(labels)-1] // default/last entry
	if i < len(labels)-1 {
		target = labels[i]
	}
	depth, err := resolveLabelDepth(frame, target)
	if err != nil {
		return nil, err
	}
	return &signal{kind: ctrlBranch, depth: depth, vals: snapshotTop(frame)}, nil
}

// isLabelNode reports whether n can name a branch target: a literal depth
// or a label identifier. Anything else in br_table's argument list is its
// folded selector expression.
func isLabelNode(n ast.Node) bool {
	switch n.(type) {
	case *ast.NumberLiteral, *ast.Identifier:
		return true
	}
	return false
}

func execReturn(frame *StackFrame, in *ast.Instr) (*signal, error) {
	if len(in.Args) > 0 {
		// Folded form carries its result inline: (return (i32.const 5)).
		_, results, err := frame.createAndExecuteChildStackFrame(in.Args, nil)
		if err != nil {
			return nil, err
		}
		if len(results) > 0 {
			return &signal{kind: ctrlReturn, vals: results[len(results)-1:]}, nil
		}
		return &signal{kind: ctrlReturn}, nil
	}
	return &signal{kind: ctrlReturn, vals: snapshotTop(frame)}, nil
}

// snapshotTop carries at most the single top-of-stack value along with a
// branch/return signal, matching the single-result-block restriction.
func snapshotTop(frame *StackFrame) []values.Value {
	if len(frame.stack) == 0 {
		return nil
	}
	return []values.Value{frame.stack[len(frame.stack)-1]}
}

func execCall(frame *StackFrame, n *ast.CallInstruction) (*signal, error) {
	mi := frame.Allocator.Module(frame.ModuleAddr)
	idx, err := resolveIndex(mi.FuncNames, n.Index)
	if err != nil {
		return nil, err
	}
	if int(idx) >= len(mi.FuncAddrs) {
		return nil, runtimeErrorf("call: function index %d out of range", idx)
	}
	fi := frame.Allocator.Func(mi.FuncAddrs[idx])
	args, err := resolveCallArgs(frame, n.InstrArgs, fi.Signature)
	if err != nil {
		return nil, err
	}
	results, err := invokeFunc(frame, fi, args)
	if err != nil {
		return nil, err
	}
	for _, v := range results {
		frame.pushResult(v)
	}
	return nil, nil
}

func execCallIndirect(frame *StackFrame, n *ast.CallIndirectInstruction) (*signal, error) {
	mi := frame.Allocator.Module(frame.ModuleAddr)
	if len(mi.TableAddrs) == 0 {
		return nil, runtimeErrorf("call_indirect: this module declares no table")
	}
	table := frame.Allocator.Table(mi.TableAddrs[0])

	sig := n.SignatureNode
	if sig == nil {
		typeIdx, err := resolveIndex(mi.TypeNames, n.TypeRef.Index)
		if err != nil {
			return nil, err
		}
		if int(typeIdx) >= len(mi.Types) {
			return nil, runtimeErrorf("call_indirect: type index %d out of range", typeIdx)
		}
		sig = mi.Types[typeIdx]
	}

	args, err := resolveCallArgs(frame, n.InstrArgs, sig)
	if err != nil {
		return nil, err
	}

	var tableIdx values.Value
	if len(n.InstrArgs) > len(sig.Params) {
		tableIdx, err = frame.resolveOperand(n.InstrArgs, len(sig.Params), values.I32)
	} else {
		tableIdx, err = frame.pop1(values.I32)
	}
	if err != nil {
		return nil, err
	}
	i := int(uint32(tableIdx.I32()))
	if i < 0 || i >= len(table.Elements) || table.Elements[i] == nil {
		return nil, NewTrap("call_indirect: undefined element")
	}
	fi := frame.Allocator.Func(*table.Elements[i])
	results, err := invokeFunc(frame, fi, args)
	if err != nil {
		return nil, err
	}
	for _, v := range results {
		frame.pushResult(v)
	}
	return nil, nil
}

// resolveCallArgs evaluates a call's folded argument expressions if any were
// given, else pops sig's arity off the ambient stack (deepest argument
// first, matching normal push order).
func resolveCallArgs(frame *StackFrame, instrArgs []ast.Node, sig *ast.Signature) ([]values.Value, error) {
	arity := len(sig.Params)
	if len(instrArgs) >= arity {
		args := make([]values.Value, arity)
		for i := 0; i < arity; i++ {
			v, err := frame.resolveOperand(instrArgs, i, sig.Params[i].Valtype)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return args, nil
	}
	args := make([]values.Value, arity)
	for i := arity - 1; i >= 0; i-- {
		v, err := frame.pop1(sig.Params[i].Valtype)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

// invokeFunc runs fi with args bound as its leading locals, followed by a
// zero value for each declared (local ...) slot, either via its external
// Go callback or by executing its body in a fresh root frame.
func invokeFunc(frame *StackFrame, fi *FuncInstance, args []values.Value) ([]values.Value, error) {
	if fi.IsExternal {
		results, trap := fi.External(frame.ctx, args)
		if trap != nil {
			return nil, trap
		}
		return results, nil
	}
	locals := make([]values.Value, 0, len(args)+len(fi.Locals))
	locals = append(locals, args...)
	for _, t := range fi.Locals {
		locals = append(locals, values.CreateValue(t, 0))
	}
	child := createStackFrame(frame.ctx, frame.Allocator, fi.ModuleAddr, fi.Body, locals, frame.Listener)
	_, results, err := executeStackFrame(child)
	if err != nil {
		return nil, err
	}
	want := len(fi.Signature.Results)
	return trailingValues(results, want)
}

// resolveIndex resolves an ast.Index (symbolic or numeric) against a name
// table built at instantiation time.
func resolveIndex(names map[string]uint32, idx ast.Index) (uint32, error) {
	if idx.Ident != nil {
		i, ok := names[idx.Ident.Value]
		if !ok {
			return 0, runtimeErrorf("unknown identifier $%s", idx.Ident.Value)
		}
		return i, nil
	}
	if idx.Num == nil {
		return 0, runtimeErrorf("index has neither an identifier nor a numeric literal")
	}
	return idx.Num.Value, nil
}
