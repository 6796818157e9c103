package interp

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gowasm/wat/ast"
	"github.com/gowasm/wat/values"
)

func instr(object, id string, args ...ast.Node) *ast.Instr {
	return ast.NewInstr(nil, id, object, args, nil)
}

func idxArg(i uint32) *ast.NumberLiteral {
	return ast.NewNumberLiteral(nil, fmt.Sprintf("%d", i), values.I32, float64(i))
}

func numArg(t values.Type, v float64) *ast.NumberLiteral {
	return ast.NewNumberLiteral(nil, fmt.Sprintf("%v", v), t, v)
}

func TestExecuteStackFrame_AddTwoLocals(t *testing.T) {
	code := []ast.Node{
		instr("", "get_local", idxArg(0)),
		instr("", "get_local", idxArg(1)),
		instr("i32", "add"),
	}
	locals := []values.Value{values.NewI32(1), values.NewI32(1)}
	frame := CreateStackFrame(context.Background(), nil, Addr{}, code, locals)
	vals, err := ExecuteStackFrame(frame)
	require.NoError(t, err)
	require.Len(t, vals, 1)
	require.Equal(t, values.I32, vals[0].Type)
	require.Equal(t, int32(2), vals[0].I32())
}

func TestExecuteStackFrame_F32MinMaxZeroAndNaN(t *testing.T) {
	neg0 := float32(math.Copysign(0, -1))
	nan := float32(math.NaN())

	tests := []struct {
		name     string
		op       string
		a, b     float32
		wantNaN  bool
		wantNeg0 bool
	}{
		{"min +0 -0 is -0", "min", 0, neg0, false, true},
		{"max +0 -0 is +0", "max", 0, neg0, false, false},
		{"min NaN propagates", "min", nan, 1234, true, false},
		{"max NaN propagates", "max", nan, 1234, true, false},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			code := []ast.Node{
				instr("", "get_local", idxArg(0)),
				instr("", "get_local", idxArg(1)),
				instr("f32", tc.op),
			}
			locals := []values.Value{values.NewF32(tc.a), values.NewF32(tc.b)}
			frame := CreateStackFrame(context.Background(), nil, Addr{}, code, locals)
			vals, err := ExecuteStackFrame(frame)
			require.NoError(t, err)
			require.Len(t, vals, 1)
			require.Equal(t, values.F32, vals[0].Type)
			got := vals[0].F32()
			if tc.wantNaN {
				require.True(t, got != got, "want NaN, got %v", got)
				return
			}
			require.Equal(t, float32(0), got)
			require.Equal(t, tc.wantNeg0, math.Signbit(float64(got)))
		})
	}
}

func TestExecuteStackFrame_TeeLocalLeavesValueOnStack(t *testing.T) {
	code := []ast.Node{
		instr("", "tee_local", idxArg(0), instr("i32", "const", numArg(values.I32, 5))),
		instr("", "get_local", idxArg(0)),
	}
	locals := []values.Value{values.NewI32(0)}
	frame := CreateStackFrame(context.Background(), nil, Addr{}, code, locals)
	vals, err := ExecuteStackFrame(frame)
	require.NoError(t, err)
	require.Len(t, vals, 2)
	require.Equal(t, int32(5), vals[0].I32())
	require.Equal(t, int32(5), vals[1].I32())
}

func TestExecuteStackFrame_UnreachableTraps(t *testing.T) {
	frame := CreateStackFrame(context.Background(), nil, Addr{}, []ast.Node{instr("", "unreachable")}, nil)
	_, err := ExecuteStackFrame(frame)
	require.Error(t, err)
	require.True(t, IsTrap(err))
}

func TestExecuteStackFrame_RemSMinNegOneIsZero(t *testing.T) {
	code := []ast.Node{
		instr("i32", "const", numArg(values.I32, math.MinInt32)),
		instr("i32", "const", numArg(values.I32, -1)),
		instr("i32", "rem_s"),
	}
	frame := CreateStackFrame(context.Background(), nil, Addr{}, code, nil)
	vals, err := ExecuteStackFrame(frame)
	require.NoError(t, err)
	require.Len(t, vals, 1)
	require.Equal(t, int32(0), vals[0].I32())
}

func TestExecuteStackFrame_DivSOverflowTraps(t *testing.T) {
	code := []ast.Node{
		instr("i32", "const", numArg(values.I32, math.MinInt32)),
		instr("i32", "const", numArg(values.I32, -1)),
		instr("i32", "div_s"),
	}
	frame := CreateStackFrame(context.Background(), nil, Addr{}, code, nil)
	_, err := ExecuteStackFrame(frame)
	require.Error(t, err)
	require.True(t, IsTrap(err))
}

func TestExecuteStackFrame_UnsupportedOpIsRuntimeError(t *testing.T) {
	frame := CreateStackFrame(context.Background(), nil, Addr{}, []ast.Node{instr("f32", "rotl")}, nil)
	_, err := ExecuteStackFrame(frame)
	require.Error(t, err)
	require.False(t, IsTrap(err))
	_, ok := err.(*RuntimeError)
	require.True(t, ok)
}

type countingListener struct {
	frames, instrs, traps int
}

func (l *countingListener) BeforeFrame([]ast.Node) { l.frames++ }
func (l *countingListener) AfterFrame(trap *Trap) {
	if trap != nil {
		l.traps++
	}
}
func (l *countingListener) BeforeInstr(ast.Node) { l.instrs++ }

func TestListener_ObservesDispatchAndTraps(t *testing.T) {
	code := []ast.Node{
		instr("i32", "const", numArg(values.I32, 1)),
		instr("i32", "const", numArg(values.I32, 0)),
		instr("i32", "div_u"),
	}
	var l countingListener
	frame := CreateStackFrame(context.Background(), nil, Addr{}, code, nil)
	frame.Listener = &l
	_, err := ExecuteStackFrame(frame)
	require.True(t, IsTrap(err))
	require.Equal(t, 1, l.frames)
	require.Equal(t, 3, l.instrs)
	require.Equal(t, 1, l.traps)
}
