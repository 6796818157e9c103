package interp

import (
	"encoding/binary"
	"math"

	"github.com/gowasm/wat/ast"
	"github.com/gowasm/wat/values"
)

// memory resolves the single linear memory this frame's module owns. Only
// one memory per module is modeled, matching spec.md's Memory field (no
// multi-memory addressing in load/store operands).
func (f *StackFrame) memory() (*Memory, error) {
	mi := f.Allocator.Module(f.ModuleAddr)
	if len(mi.MemAddrs) == 0 {
		return nil, runtimeErrorf("instruction requires a memory, but this module declares none")
	}
	return f.Allocator.Memory(mi.MemAddrs[0]), nil
}

// resolveOperand reads the argIdx'th folded operand if present (evaluating
// it in a child frame), otherwise falls back to popping it off the ambient
// stack — the same "folded or stack, instruction's choice" rule every
// executor in this file applies to its operands.
func (f *StackFrame) resolveOperand(args []ast.Node, argIdx int, want values.Type) (values.Value, error) {
	if len(args) > argIdx {
		_, results, err := f.createAndExecuteChildStackFrame([]ast.Node{args[argIdx]}, nil)
		if err != nil {
			return values.Value{}, err
		}
		if len(results) != 1 {
			return values.Value{}, runtimeErrorf("expected a single operand, got %d", len(results))
		}
		if results[0].Type != want {
			return values.Value{}, runtimeErrorf("operand type mismatch: want %s, got %s", want, results[0].Type)
		}
		return results[0], nil
	}
	return f.pop1(want)
}

func literalIndexArg(in *ast.Instr, pos int) (uint32, error) {
	if pos >= len(in.Args) {
		return 0, runtimeErrorf("%s: missing index operand", in.ID)
	}
	lit, ok := in.Args[pos].(*ast.NumberLiteral)
	if !ok {
		return 0, runtimeErrorf("%s: index operand must be a literal, got %T", in.ID, in.Args[pos])
	}
	return uint32(lit.Val), nil
}

// resolveNamedIndex resolves an index operand that may be either symbolic
// (Identifier, looked up in names) or numeric (NumberLiteral).
func resolveNamedIndex(names map[string]uint32, node ast.Node) (uint32, error) {
	switch n := node.(type) {
	case *ast.NumberLiteral:
		return uint32(n.Val), nil
	case *ast.Identifier:
		idx, ok := names[n.Value]
		if !ok {
			return 0, runtimeErrorf("unknown identifier $%s", n.Value)
		}
		return idx, nil
	default:
		return 0, runtimeErrorf("index operand must be a literal or identifier, got %T", node)
	}
}

func execLocalGlobal(frame *StackFrame, in *ast.Instr) (*signal, error) {
	switch in.ID {
	case "get_local":
		idx, err := literalIndexArg(in, 0)
		if err != nil {
			return nil, err
		}
		v, err := frame.getLocalByIndex(idx)
		if err != nil {
			return nil, err
		}
		frame.pushResult(v)
		return nil, nil

	case "set_local", "tee_local":
		idx, err := literalIndexArg(in, 0)
		if err != nil {
			return nil, err
		}
		var v values.Value
		if len(in.Args) > 1 {
			_, results, err := frame.createAndExecuteChildStackFrame([]ast.Node{in.Args[1]}, nil)
			if err != nil {
				return nil, err
			}
			if len(results) != 1 {
				return nil, runtimeErrorf("%s: init expression must produce exactly one value", in.ID)
			}
			v = results[0]
		} else {
			v, err = frame.popAny()
			if err != nil {
				return nil, err
			}
		}
		if err := frame.setLocalByIndex(idx, v); err != nil {
			return nil, err
		}
		if in.ID == "tee_local" {
			frame.pushResult(v)
		}
		return nil, nil

	case "get_global":
		if len(in.Args) == 0 {
			return nil, runtimeErrorf("get_global: missing index operand")
		}
		mi := frame.Allocator.Module(frame.ModuleAddr)
		gidx, err := resolveNamedIndex(mi.GlobalNames, in.Args[0])
		if err != nil {
			return nil, err
		}
		if int(gidx) >= len(mi.GlobalAddrs) {
			return nil, runtimeErrorf("get_global: index %d out of range", gidx)
		}
		gi := frame.Allocator.Global(mi.GlobalAddrs[gidx])
		frame.pushResult(gi.Value)
		return nil, nil

	case "set_global":
		if len(in.Args) == 0 {
			return nil, runtimeErrorf("set_global: missing index operand")
		}
		mi := frame.Allocator.Module(frame.ModuleAddr)
		gidx, err := resolveNamedIndex(mi.GlobalNames, in.Args[0])
		if err != nil {
			return nil, err
		}
		if int(gidx) >= len(mi.GlobalAddrs) {
			return nil, runtimeErrorf("set_global: index %d out of range", gidx)
		}
		addr := mi.GlobalAddrs[gidx]
		var v values.Value
		if len(in.Args) > 1 {
			_, results, err := frame.createAndExecuteChildStackFrame(in.Args[1:], nil)
			if err != nil {
				return nil, err
			}
			if len(results) != 1 {
				return nil, runtimeErrorf("set_global: init expression must produce exactly one value")
			}
			v = results[0]
		} else {
			v, err = frame.popAny()
			if err != nil {
				return nil, err
			}
		}
		frame.Allocator.SetGlobal(addr, &GlobalInstance{Type: frame.Allocator.Global(addr).Type, Value: v})
		return nil, nil

	default:
		return nil, runtimeErrorf("unsupported instruction %q", in.ID)
	}
}

func memArgOffset(in *ast.Instr) uint32 {
	if lit, ok := in.NamedArgs["offset"]; ok {
		return uint32(lit.Val)
	}
	return 0
}

// narrowWidth reports the byte width and whether id names a narrowing
// load/store (anything but the plain, full-width "load"/"store").
func narrowWidth(id string) (width uint32, ok bool) {
	switch id {
	case "load8_s", "load8_u", "store8":
		return 1, true
	case "load16_s", "load16_u", "store16":
		return 2, true
	case "load32_s", "load32_u", "store32":
		return 4, true
	default:
		return 0, false
	}
}

func isSignedNarrow(id string) bool {
	return id == "load8_s" || id == "load16_s" || id == "load32_s"
}

func execLoad(frame *StackFrame, in *ast.Instr) (*signal, error) {
	t, ok := values.ParseType(in.Object)
	if !ok {
		return nil, runtimeErrorf("unsupported (object, op) combination: (%q, %q)", in.Object, in.ID)
	}
	mem, err := frame.memory()
	if err != nil {
		return nil, err
	}
	addrVal, err := frame.resolveOperand(in.Args, 0, values.I32)
	if err != nil {
		return nil, err
	}
	ea := effectiveAddress(addrVal.I32(), memArgOffset(in))

	if width, narrow := narrowWidth(in.ID); narrow {
		if t != values.I32 && t != values.I64 {
			return nil, runtimeErrorf("unsupported (object, op) combination: (%q, %q)", in.Object, in.ID)
		}
		if width == 4 && t == values.I32 {
			return nil, runtimeErrorf("unsupported (object, op) combination: (%q, %q)", in.Object, in.ID)
		}
		b, ok := mem.read(ea, width)
		if !ok {
			return nil, NewTrap("out of bounds memory access")
		}
		raw := readUintLE(b)
		signed := isSignedNarrow(in.ID)
		var result int64
		switch width {
		case 1:
			if signed {
				result = int64(int8(raw))
			} else {
				result = int64(uint8(raw))
			}
		case 2:
			if signed {
				result = int64(int16(raw))
			} else {
				result = int64(uint16(raw))
			}
		case 4:
			if signed {
				result = int64(int32(raw))
			} else {
				result = int64(uint32(raw))
			}
		}
		if t == values.I32 {
			frame.pushResult(values.NewI32(result))
		} else {
			frame.pushResult(values.NewI64(result))
		}
		return nil, nil
	}

	switch t {
	case values.I32:
		b, ok := mem.read(ea, 4)
		if !ok {
			return nil, NewTrap("out of bounds memory access")
		}
		frame.pushResult(values.NewI32(int64(int32(binary.LittleEndian.Uint32(b)))))
	case values.I64:
		b, ok := mem.read(ea, 8)
		if !ok {
			return nil, NewTrap("out of bounds memory access")
		}
		frame.pushResult(values.NewI64(int64(binary.LittleEndian.Uint64(b))))
	case values.F32:
		b, ok := mem.read(ea, 4)
		if !ok {
			return nil, NewTrap("out of bounds memory access")
		}
		frame.pushResult(values.NewF32(math.Float32frombits(binary.LittleEndian.Uint32(b))))
	case values.F64:
		b, ok := mem.read(ea, 8)
		if !ok {
			return nil, NewTrap("out of bounds memory access")
		}
		frame.pushResult(values.NewF64(math.Float64frombits(binary.LittleEndian.Uint64(b))))
	}
	return nil, nil
}

func execStore(frame *StackFrame, in *ast.Instr) (*signal, error) {
	t, ok := values.ParseType(in.Object)
	if !ok {
		return nil, runtimeErrorf("unsupported (object, op) combination: (%q, %q)", in.Object, in.ID)
	}
	mem, err := frame.memory()
	if err != nil {
		return nil, err
	}

	var addrVal, val values.Value
	switch len(in.Args) {
	case 2:
		addrVal, err = frame.resolveOperand(in.Args, 0, values.I32)
		if err != nil {
			return nil, err
		}
		val, err = frame.resolveOperand(in.Args, 1, t)
		if err != nil {
			return nil, err
		}
	case 1:
		addrVal, err = frame.resolveOperand(in.Args, 0, values.I32)
		if err != nil {
			return nil, err
		}
		val, err = frame.pop1(t)
		if err != nil {
			return nil, err
		}
	default:
		val, err = frame.pop1(t)
		if err != nil {
			return nil, err
		}
		addrVal, err = frame.pop1(values.I32)
		if err != nil {
			return nil, err
		}
	}

	ea := effectiveAddress(addrVal.I32(), memArgOffset(in))

	if width, narrow := narrowWidth(in.ID); narrow {
		if t != values.I32 && t != values.I64 {
			return nil, runtimeErrorf("unsupported (object, op) combination: (%q, %q)", in.Object, in.ID)
		}
		if width == 4 && t == values.I32 {
			return nil, runtimeErrorf("unsupported (object, op) combination: (%q, %q)", in.Object, in.ID)
		}
		var raw uint64
		if t == values.I32 {
			raw = uint64(uint32(val.I32()))
		} else {
			raw = uint64(val.I64())
		}
		b := writeUintLE(raw, width)
		if !mem.write(ea, b) {
			return nil, NewTrap("out of bounds memory access")
		}
		return nil, nil
	}

	var b []byte
	switch t {
	case values.I32:
		b = make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(val.I32()))
	case values.I64:
		b = make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(val.I64()))
	case values.F32:
		b = make([]byte, 4)
		binary.LittleEndian.PutUint32(b, math.Float32bits(val.F32()))
	case values.F64:
		b = make([]byte, 8)
		binary.LittleEndian.PutUint64(b, math.Float64bits(val.F64()))
	}
	if !mem.write(ea, b) {
		return nil, NewTrap("out of bounds memory access")
	}
	return nil, nil
}

func execMemorySizeGrow(frame *StackFrame, in *ast.Instr) (*signal, error) {
	mem, err := frame.memory()
	if err != nil {
		return nil, err
	}
	switch in.ID {
	case "size":
		frame.pushResult(values.NewI32(int64(mem.Pages())))
		return nil, nil
	case "grow":
		delta, err := frame.resolveOperand(in.Args, 0, values.I32)
		if err != nil {
			return nil, err
		}
		prev, ok := mem.Grow(uint32(delta.I32()))
		if !ok {
			frame.pushResult(values.NewI32(-1))
			return nil, nil
		}
		frame.pushResult(values.NewI32(int64(prev)))
		return nil, nil
	default:
		return nil, runtimeErrorf("unsupported instruction %q", in.ID)
	}
}

// effectiveAddress combines a load/store's dynamic i32 address operand with
// its static offset= immediate. A sum that overflows 32 bits saturates to
// math.MaxUint32 so the memory bounds check traps on it.
func effectiveAddress(addr int32, offset uint32) uint32 {
	ea := uint64(uint32(addr)) + uint64(offset)
	if ea > uint64(math.MaxUint32) {
		// No real memory spans the full 32-bit address space, so saturating
		// here is enough to make the caller's bounds check trap.
		return math.MaxUint32
	}
	return uint32(ea)
}

func readUintLE(b []byte) uint64 {
	var v uint64
	for i, c := range b {
		v |= uint64(c) << (8 * uint(i))
	}
	return v
}

func writeUintLE(v uint64, width uint32) []byte {
	b := make([]byte, width)
	for i := range b {
		b[i] = byte(v >> (8 * uint(i)))
	}
	return b
}
