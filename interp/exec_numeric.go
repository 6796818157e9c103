package interp

import (
	"math"
	"math/bits"

	"github.com/gowasm/wat/ast"
	"github.com/gowasm/wat/values"
)

// execInstr is the single dispatch point for every plain Instr node: the
// const/arithmetic/comparison/bit/control/memory families implemented
// across this file and exec_memory.go/exec_control.go. Folded operand
// expressions are flattened onto the value stack first, since `(i32.add
// (get_local 0) (get_local 1))` is sugar for the plain sequence — except
// for the instructions that interpret their argument nodes structurally
// (indices, literals, branch targets), which keep their own resolution
// rules.
func execInstr(frame *StackFrame, in *ast.Instr) (*signal, error) {
	if !consumesOwnArgs(in.ID) {
		for _, a := range in.Args {
			if lit, ok := a.(*ast.NumberLiteral); ok {
				frame.pushResult(frame.castIntoStackLocalOfType(lit.Type, lit.Val))
				continue
			}
			sig, err := execNode(frame, a)
			if err != nil {
				return nil, err
			}
			if sig != nil {
				return sig, nil
			}
		}
	}
	switch in.ID {
	case "const":
		return execConst(frame, in)
	case "add", "sub", "mul", "div", "div_s", "div_u", "rem_s", "rem_u",
		"and", "or", "xor", "shl", "shr_s", "shr_u", "rotl", "rotr",
		"min", "max", "copysign":
		return execArith(frame, in)
	case "eq", "ne", "lt", "gt", "le", "ge",
		"lt_s", "lt_u", "gt_s", "gt_u", "le_s", "le_u", "ge_s", "ge_u":
		return execCompare(frame, in)
	case "clz", "ctz", "popcnt", "neg", "abs", "sqrt", "ceil", "floor", "trunc", "nearest", "eqz":
		return execUnop(frame, in)
	case "drop":
		return execDrop(frame, in)
	case "select":
		return execSelect(frame, in)
	case "nop":
		return nil, nil
	case "unreachable":
		return nil, NewTrap("unreachable")
	case "get_local", "set_local", "tee_local", "get_global", "set_global":
		return execLocalGlobal(frame, in)
	case "load", "load8_s", "load8_u", "load16_s", "load16_u", "load32_s", "load32_u":
		return execLoad(frame, in)
	case "store", "store8", "store16", "store32":
		return execStore(frame, in)
	case "size", "grow":
		if in.Object == "memory" {
			return execMemorySizeGrow(frame, in)
		}
		return nil, runtimeErrorf("unsupported instruction %q", in.ID)
	case "br":
		return execBr(frame, in)
	case "br_if":
		return execBrIf(frame, in)
	case "br_table":
		return execBrTable(frame, in)
	case "return":
		return execReturn(frame, in)
	default:
		return nil, runtimeErrorf("unsupported (object, op) combination: (%q, %q)", in.Object, in.ID)
	}
}

// consumesOwnArgs reports whether id's executor interprets its argument
// nodes directly — a literal payload, a local/global index, a branch
// target vector, or a folded operand with its own evaluation order —
// rather than as a run of operand expressions to flatten onto the stack.
func consumesOwnArgs(id string) bool {
	switch id {
	case "const",
		"get_local", "set_local", "tee_local", "get_global", "set_global",
		"br", "br_if", "br_table", "return",
		"load", "load8_s", "load8_u", "load16_s", "load16_u", "load32_s", "load32_u",
		"store", "store8", "store16", "store32",
		"size", "grow":
		return true
	}
	return false
}

func execConst(frame *StackFrame, in *ast.Instr) (*signal, error) {
	if len(in.Args) != 1 {
		return nil, runtimeErrorf("const requires exactly one literal operand")
	}
	lit, ok := in.Args[0].(*ast.NumberLiteral)
	if !ok {
		return nil, runtimeErrorf("const operand must be a number literal, got %T", in.Args[0])
	}
	vt, ok := values.ParseType(in.Object)
	if !ok {
		return nil, runtimeErrorf("const on unsupported type %q", in.Object)
	}
	frame.pushResult(frame.castIntoStackLocalOfType(vt, lit.Val))
	return nil, nil
}

// intArithOps take two operands of the same integer type and produce
// another of that type.
var intArithOps = map[string]bool{
	"div_s": true, "div_u": true, "rem_s": true, "rem_u": true,
	"and": true, "or": true, "xor": true,
	"shl": true, "shr_s": true, "shr_u": true, "rotl": true, "rotr": true,
}

// floatOnlyArithOps take two operands of the same float type and produce
// another of that type. add/sub/mul are shared between int and float.
var floatOnlyArithOps = map[string]bool{
	"div": true, "min": true, "max": true, "copysign": true,
}

func execArith(frame *StackFrame, in *ast.Instr) (*signal, error) {
	t, ok := values.ParseType(in.Object)
	if !ok {
		return nil, runtimeErrorf("unsupported (object, op) combination: (%q, %q)", in.Object, in.ID)
	}
	isShared := in.ID == "add" || in.ID == "sub" || in.ID == "mul"
	isFloat := t == values.F32 || t == values.F64
	if !isShared {
		if isFloat && !floatOnlyArithOps[in.ID] {
			return nil, runtimeErrorf("unsupported (object, op) combination: (%q, %q)", in.Object, in.ID)
		}
		if !isFloat && !intArithOps[in.ID] {
			return nil, runtimeErrorf("unsupported (object, op) combination: (%q, %q)", in.Object, in.ID)
		}
	}
	left, right, err := frame.pop2(t)
	if err != nil {
		return nil, err
	}
	var result values.Value
	var trap *Trap
	switch t {
	case values.I32:
		var v int32
		v, trap = evalI32Arith(in.ID, left.I32(), right.I32())
		result = values.NewI32(int64(v))
	case values.I64:
		var v int64
		v, trap = evalI64Arith(in.ID, left.I64(), right.I64())
		result = values.NewI64(v)
	case values.F32:
		var v float32
		v = evalF32Arith(in.ID, left.F32(), right.F32())
		result = values.NewF32(v)
	case values.F64:
		var v float64
		v = evalF64Arith(in.ID, left.F64(), right.F64())
		result = values.NewF64(v)
	}
	if trap != nil {
		return nil, trap
	}
	frame.pushResult(result)
	return nil, nil
}

func evalI32Arith(op string, l, r int32) (int32, *Trap) {
	switch op {
	case "add":
		return l + r, nil
	case "sub":
		return l - r, nil
	case "mul":
		return l * r, nil
	case "div_s":
		if r == 0 {
			return 0, NewTrap("integer divide by zero")
		}
		if l == math.MinInt32 && r == -1 {
			return 0, NewTrap("integer overflow")
		}
		return l / r, nil
	case "div_u":
		if r == 0 {
			return 0, NewTrap("integer divide by zero")
		}
		return int32(uint32(l) / uint32(r)), nil
	case "rem_s":
		if r == 0 {
			return 0, NewTrap("integer divide by zero")
		}
		if l == math.MinInt32 && r == -1 {
			return 0, nil
		}
		return l % r, nil
	case "rem_u":
		if r == 0 {
			return 0, NewTrap("integer divide by zero")
		}
		return int32(uint32(l) % uint32(r)), nil
	case "and":
		return l & r, nil
	case "or":
		return l | r, nil
	case "xor":
		return l ^ r, nil
	case "shl":
		return l << (uint32(r) & 31), nil
	case "shr_s":
		return l >> (uint32(r) & 31), nil
	case "shr_u":
		return int32(uint32(l) >> (uint32(r) & 31)), nil
	case "rotl":
		return int32(bits.RotateLeft32(uint32(l), int(r))), nil
	case "rotr":
		return int32(bits.RotateLeft32(uint32(l), -int(r))), nil
	default:
		return 0, nil
	}
}

func evalI64Arith(op string, l, r int64) (int64, *Trap) {
	switch op {
	case "add":
		return l + r, nil
	case "sub":
		return l - r, nil
	case "mul":
		return l * r, nil
	case "div_s":
		if r == 0 {
			return 0, NewTrap("integer divide by zero")
		}
		if l == math.MinInt64 && r == -1 {
			return 0, NewTrap("integer overflow")
		}
		return l / r, nil
	case "div_u":
		if r == 0 {
			return 0, NewTrap("integer divide by zero")
		}
		return int64(uint64(l) / uint64(r)), nil
	case "rem_s":
		if r == 0 {
			return 0, NewTrap("integer divide by zero")
		}
		if l == math.MinInt64 && r == -1 {
			return 0, nil
		}
		return l % r, nil
	case "rem_u":
		if r == 0 {
			return 0, NewTrap("integer divide by zero")
		}
		return int64(uint64(l) % uint64(r)), nil
	case "and":
		return l & r, nil
	case "or":
		return l | r, nil
	case "xor":
		return l ^ r, nil
	case "shl":
		return l << (uint64(r) & 63), nil
	case "shr_s":
		return l >> (uint64(r) & 63), nil
	case "shr_u":
		return int64(uint64(l) >> (uint64(r) & 63)), nil
	case "rotl":
		return int64(bits.RotateLeft64(uint64(l), int(r))), nil
	case "rotr":
		return int64(bits.RotateLeft64(uint64(l), -int(r))), nil
	default:
		return 0, nil
	}
}

func evalF32Arith(op string, l, r float32) float32 {
	switch op {
	case "add":
		return l + r
	case "sub":
		return l - r
	case "mul":
		return l * r
	case "div":
		return l / r
	case "min":
		return values.F32Min(l, r)
	case "max":
		return values.F32Max(l, r)
	case "copysign":
		return float32(math.Copysign(float64(l), float64(r)))
	default:
		return 0
	}
}

func evalF64Arith(op string, l, r float64) float64 {
	switch op {
	case "add":
		return l + r
	case "sub":
		return l - r
	case "mul":
		return l * r
	case "div":
		return l / r
	case "min":
		return values.WasmCompatMin(l, r)
	case "max":
		return values.WasmCompatMax(l, r)
	case "copysign":
		return math.Copysign(l, r)
	default:
		return 0
	}
}

func execCompare(frame *StackFrame, in *ast.Instr) (*signal, error) {
	t, ok := values.ParseType(in.Object)
	if !ok {
		return nil, runtimeErrorf("unsupported (object, op) combination: (%q, %q)", in.Object, in.ID)
	}
	left, right, err := frame.pop2(t)
	if err != nil {
		return nil, err
	}
	var result bool
	switch t {
	case values.I32:
		result, err = compareI32(in.ID, left.I32(), right.I32())
	case values.I64:
		result, err = compareI64(in.ID, left.I64(), right.I64())
	case values.F32:
		result, err = compareFloat(in.ID, float64(left.F32()), float64(right.F32()))
	case values.F64:
		result, err = compareFloat(in.ID, left.F64(), right.F64())
	}
	if err != nil {
		return nil, err
	}
	if result {
		frame.pushResult(values.NewI32(1))
	} else {
		frame.pushResult(values.NewI32(0))
	}
	return nil, nil
}

func compareI32(op string, l, r int32) (bool, error) {
	switch op {
	case "eq":
		return l == r, nil
	case "ne":
		return l != r, nil
	case "lt_s":
		return l < r, nil
	case "lt_u":
		return uint32(l) < uint32(r), nil
	case "gt_s":
		return l > r, nil
	case "gt_u":
		return uint32(l) > uint32(r), nil
	case "le_s":
		return l <= r, nil
	case "le_u":
		return uint32(l) <= uint32(r), nil
	case "ge_s":
		return l >= r, nil
	case "ge_u":
		return uint32(l) >= uint32(r), nil
	default:
		return false, runtimeErrorf("unsupported (object, op) combination: (%q, %q)", "i32", op)
	}
}

func compareI64(op string, l, r int64) (bool, error) {
	switch op {
	case "eq":
		return l == r, nil
	case "ne":
		return l != r, nil
	case "lt_s":
		return l < r, nil
	case "lt_u":
		return uint64(l) < uint64(r), nil
	case "gt_s":
		return l > r, nil
	case "gt_u":
		return uint64(l) > uint64(r), nil
	case "le_s":
		return l <= r, nil
	case "le_u":
		return uint64(l) <= uint64(r), nil
	case "ge_s":
		return l >= r, nil
	case "ge_u":
		return uint64(l) >= uint64(r), nil
	default:
		return false, runtimeErrorf("unsupported (object, op) combination: (%q, %q)", "i64", op)
	}
}

func compareFloat(op string, l, r float64) (bool, error) {
	switch op {
	case "eq":
		return l == r, nil
	case "ne":
		return l != r, nil
	case "lt":
		return l < r, nil
	case "gt":
		return l > r, nil
	case "le":
		return l <= r, nil
	case "ge":
		return l >= r, nil
	default:
		return false, runtimeErrorf("unsupported (object, op) combination: (float, %q)", op)
	}
}

func execUnop(frame *StackFrame, in *ast.Instr) (*signal, error) {
	t, ok := values.ParseType(in.Object)
	if !ok {
		return nil, runtimeErrorf("unsupported (object, op) combination: (%q, %q)", in.Object, in.ID)
	}
	v, err := frame.pop1(t)
	if err != nil {
		return nil, err
	}

	if in.ID == "eqz" {
		var zero bool
		switch t {
		case values.I32:
			zero = v.I32() == 0
		case values.I64:
			zero = v.I64() == 0
		default:
			return nil, runtimeErrorf("unsupported (object, op) combination: (%q, eqz)", in.Object)
		}
		if zero {
			frame.pushResult(values.NewI32(1))
		} else {
			frame.pushResult(values.NewI32(0))
		}
		return nil, nil
	}

	switch t {
	case values.I32:
		r, err := evalI32Unop(in.ID, v.I32())
		if err != nil {
			return nil, err
		}
		frame.pushResult(values.NewI32(int64(r)))
	case values.I64:
		r, err := evalI64Unop(in.ID, v.I64())
		if err != nil {
			return nil, err
		}
		frame.pushResult(values.NewI64(r))
	case values.F32:
		r, err := evalF32Unop(in.ID, v.F32())
		if err != nil {
			return nil, err
		}
		frame.pushResult(values.NewF32(r))
	case values.F64:
		r, err := evalF64Unop(in.ID, v.F64())
		if err != nil {
			return nil, err
		}
		frame.pushResult(values.NewF64(r))
	}
	return nil, nil
}

func evalI32Unop(op string, v int32) (int32, error) {
	switch op {
	case "clz":
		return int32(bits.LeadingZeros32(uint32(v))), nil
	case "ctz":
		return int32(bits.TrailingZeros32(uint32(v))), nil
	case "popcnt":
		return int32(bits.OnesCount32(uint32(v))), nil
	default:
		return 0, runtimeErrorf("unsupported (object, op) combination: (\"i32\", %q)", op)
	}
}

func evalI64Unop(op string, v int64) (int64, error) {
	switch op {
	case "clz":
		return int64(bits.LeadingZeros64(uint64(v))), nil
	case "ctz":
		return int64(bits.TrailingZeros64(uint64(v))), nil
	case "popcnt":
		return int64(bits.OnesCount64(uint64(v))), nil
	default:
		return 0, runtimeErrorf("unsupported (object, op) combination: (\"i64\", %q)", op)
	}
}

func evalF32Unop(op string, v float32) (float32, error) {
	switch op {
	case "neg":
		return -v, nil
	case "abs":
		return float32(math.Abs(float64(v))), nil
	case "sqrt":
		return float32(math.Sqrt(float64(v))), nil
	case "ceil":
		return float32(math.Ceil(float64(v))), nil
	case "floor":
		return float32(math.Floor(float64(v))), nil
	case "trunc":
		return float32(math.Trunc(float64(v))), nil
	case "nearest":
		return float32(math.RoundToEven(float64(v))), nil
	default:
		return 0, runtimeErrorf("unsupported (object, op) combination: (\"f32\", %q)", op)
	}
}

func evalF64Unop(op string, v float64) (float64, error) {
	switch op {
	case "neg":
		return -v, nil
	case "abs":
		return math.Abs(v), nil
	case "sqrt":
		return math.Sqrt(v), nil
	case "ceil":
		return math.Ceil(v), nil
	case "floor":
		return math.Floor(v), nil
	case "trunc":
		return math.Trunc(v), nil
	case "nearest":
		return math.RoundToEven(v), nil
	default:
		return 0, runtimeErrorf("unsupported (object, op) combination: (\"f64\", %q)", op)
	}
}

func execDrop(frame *StackFrame, _ *ast.Instr) (*signal, error) {
	_, err := frame.popAny()
	return nil, err
}

func execSelect(frame *StackFrame, _ *ast.Instr) (*signal, error) {
	cond, err := frame.pop1(values.I32)
	if err != nil {
		return nil, err
	}
	val2, err := frame.popAny()
	if err != nil {
		return nil, err
	}
	val1, err := frame.popAny()
	if err != nil {
		return nil, err
	}
	if val1.Type != val2.Type {
		return nil, runtimeErrorf("select: operand type mismatch (%s vs %s)", val1.Type, val2.Type)
	}
	if cond.I32() != 0 {
		frame.pushResult(val1)
	} else {
		frame.pushResult(val2)
	}
	return nil, nil
}
