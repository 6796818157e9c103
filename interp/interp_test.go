package interp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gowasm/wat/ast"
	"github.com/gowasm/wat/internal/token"
	"github.com/gowasm/wat/parser"
	"github.com/gowasm/wat/values"
)

func mustModule(t *testing.T, src string) *ast.Module {
	t.Helper()
	tokens, err := token.Lex([]byte(src))
	require.NoError(t, err)
	prog, err := parser.Parse(tokens, []byte(src))
	require.NoError(t, err)
	for _, node := range prog.Body {
		if mod, ok := node.(*ast.Module); ok {
			return mod
		}
	}
	t.Fatal("no (module ...) form in source")
	return nil
}

func mustInstantiate(t *testing.T, src string, imports map[string]ExternalFunc) (*Allocator, Addr) {
	t.Helper()
	mod := mustModule(t, src)
	alloc := NewAllocator()
	addr, err := Instantiate(context.Background(), alloc, mod, imports)
	require.NoError(t, err)
	return alloc, addr
}

func callExport(t *testing.T, alloc *Allocator, moduleAddr Addr, name string, args ...values.Value) []values.Value {
	t.Helper()
	mi := alloc.Module(moduleAddr)
	export, ok := mi.Export(name)
	require.True(t, ok, "no export named %q", name)
	require.Equal(t, ExportFunc, export.Kind)
	results, err := Invoke(context.Background(), alloc, export.Addr, args)
	require.NoError(t, err)
	return results
}

func TestInstantiate_AddTwoI32(t *testing.T) {
	src := `(module
		(func $add (param $a i32) (param $b i32) (result i32)
			(i32.add (get_local 0) (get_local 1)))
		(export "add" (func $add)))`
	alloc, addr := mustInstantiate(t, src, nil)
	results := callExport(t, alloc, addr, "add", values.NewI32(2), values.NewI32(3))
	require.Len(t, results, 1)
	require.Equal(t, int32(5), results[0].I32())
}

func TestInstantiate_BlockBranchExitsNormally(t *testing.T) {
	src := `(module
		(func $f (result i32)
			(block $b (result i32)
				(br $b (i32.const 7))
				(i32.const 999)))
		(export "f" (func $f)))`
	alloc, addr := mustInstantiate(t, src, nil)
	results := callExport(t, alloc, addr, "f")
	require.Len(t, results, 1)
	require.Equal(t, int32(7), results[0].I32())
}

func TestInstantiate_LoopCountsViaGlobal(t *testing.T) {
	// br_if targeting the loop's own label restarts it rather than
	// exiting, so $n reaches 3 before the function falls off the end.
	src := `(module
		(global $n (mut i32) (i32.const 0))
		(func $count (result i32)
			(loop $continue
				(set_global $n (i32.add (get_global $n) (i32.const 1)))
				(br_if $continue (i32.lt_s (get_global $n) (i32.const 3))))
			(get_global $n))
		(export "count" (func $count)))`
	alloc, addr := mustInstantiate(t, src, nil)
	results := callExport(t, alloc, addr, "count")
	require.Len(t, results, 1)
	require.Equal(t, int32(3), results[0].I32())
}

func TestInstantiate_MemoryStoreLoadRoundTrip(t *testing.T) {
	src := `(module
		(memory $m 1)
		(func $roundtrip (param $v i32) (result i32)
			(i32.store (i32.const 8) (get_local 0))
			(i32.load (i32.const 8)))
		(export "roundtrip" (func $roundtrip)))`
	alloc, addr := mustInstantiate(t, src, nil)
	results := callExport(t, alloc, addr, "roundtrip", values.NewI32(123456))
	require.Len(t, results, 1)
	require.Equal(t, int32(123456), results[0].I32())
}

func TestInstantiate_DataSegmentInitializesMemory(t *testing.T) {
	src := `(module
		(memory $m 1)
		(data (i32.const 0) "\01\02\03\04")
		(func $read (result i32)
			(i32.load8_u (i32.const 2)))
		(export "read" (func $read)))`
	alloc, addr := mustInstantiate(t, src, nil)
	results := callExport(t, alloc, addr, "read")
	require.Len(t, results, 1)
	require.Equal(t, int32(3), results[0].I32())
}

func TestInstantiate_CallIndirectThroughElemSegment(t *testing.T) {
	src := `(module
		(type $sig (func (param i32) (result i32)))
		(table $t anyfunc 1)
		(elem (i32.const 0) $inc)
		(func $inc (param $x i32) (result i32) (i32.add (get_local 0) (i32.const 1)))
		(func $apply (param $x i32) (result i32)
			(call_indirect (type $sig) (get_local 0) (i32.const 0)))
		(export "apply" (func $apply)))`
	alloc, addr := mustInstantiate(t, src, nil)
	results := callExport(t, alloc, addr, "apply", values.NewI32(41))
	require.Len(t, results, 1)
	require.Equal(t, int32(42), results[0].I32())
}

func TestInstantiate_DivByZeroTraps(t *testing.T) {
	src := `(module
		(func $div (param $a i32) (param $b i32) (result i32)
			(i32.div_s (get_local 0) (get_local 1)))
		(export "div" (func $div)))`
	alloc, addr := mustInstantiate(t, src, nil)
	mi := alloc.Module(addr)
	export, ok := mi.Export("div")
	require.True(t, ok)
	_, err := Invoke(context.Background(), alloc, export.Addr, []values.Value{values.NewI32(1), values.NewI32(0)})
	require.Error(t, err)
	require.True(t, isTrapped(err))
}

func TestInstantiate_CallIndirectUndefinedElementTraps(t *testing.T) {
	src := `(module
		(type $sig (func (result i32)))
		(table $t anyfunc 1)
		(func $apply (result i32)
			(call_indirect (type $sig) (i32.const 0)))
		(export "apply" (func $apply)))`
	alloc, addr := mustInstantiate(t, src, nil)
	mi := alloc.Module(addr)
	export, ok := mi.Export("apply")
	require.True(t, ok)
	_, err := Invoke(context.Background(), alloc, export.Addr, nil)
	require.Error(t, err)
	require.True(t, isTrapped(err))
}

func TestInstantiate_ImportedFunctionIsExternal(t *testing.T) {
	src := `(module
		(import "env" "double" (func $double (param i32) (result i32)))
		(func $call_it (param $x i32) (result i32) (call $double (get_local 0)))
		(export "call_it" (func $call_it)))`
	doubleFn := func(ctx context.Context, args []values.Value) ([]values.Value, *Trap) {
		return []values.Value{values.NewI32(int64(args[0].I32()) * 2)}, nil
	}
	alloc, addr := mustInstantiate(t, src, map[string]ExternalFunc{"env.double": doubleFn})
	results := callExport(t, alloc, addr, "call_it", values.NewI32(21))
	require.Len(t, results, 1)
	require.Equal(t, int32(42), results[0].I32())
}

func TestInstantiate_DeclaredLocalIsWritableAfterParams(t *testing.T) {
	// The declared local occupies index 1, after the single parameter.
	src := `(module
		(func $addtmp (param $a i32) (result i32) (local $tmp i32)
			(set_local 1 (i32.add (get_local 0) (i32.const 5)))
			(get_local 1))
		(export "addtmp" (func $addtmp)))`
	alloc, addr := mustInstantiate(t, src, nil)
	results := callExport(t, alloc, addr, "addtmp", values.NewI32(2))
	require.Len(t, results, 1)
	require.Equal(t, int32(7), results[0].I32())
}

func TestInstantiate_DeclaredLocalsAreZeroInitialized(t *testing.T) {
	src := `(module
		(func $zero (result i64) (local i32) (local $x i64)
			(get_local 1))
		(export "zero" (func $zero)))`
	alloc, addr := mustInstantiate(t, src, nil)
	results := callExport(t, alloc, addr, "zero")
	require.Len(t, results, 1)
	require.Equal(t, values.I64, results[0].Type)
	require.Equal(t, int64(0), results[0].I64())
}

func TestInstantiate_BrTableSelectsByIndex(t *testing.T) {
	src := `(module
		(func $pick (param $i i32) (result i32)
			(block $b1
				(block $b0
					(br_table $b0 $b1 (get_local 0)))
				(return (i32.const 10)))
			(i32.const 20))
		(export "pick" (func $pick)))`
	alloc, addr := mustInstantiate(t, src, nil)

	tests := []struct {
		name string
		arg  int64
		want int32
	}{
		{"index 0 exits the inner block", 0, 10},
		{"index 1 exits the outer block", 1, 20},
		{"out of range takes the default", 7, 20},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			results := callExport(t, alloc, addr, "pick", values.NewI32(tc.arg))
			require.Len(t, results, 1)
			require.Equal(t, tc.want, results[0].I32())
		})
	}
}

func TestInstantiate_MemoryGrowAndSize(t *testing.T) {
	src := `(module
		(memory $m 1 2)
		(func $f (result i32)
			(drop (memory.grow (i32.const 1)))
			(memory.size))
		(export "f" (func $f)))`
	alloc, addr := mustInstantiate(t, src, nil)
	results := callExport(t, alloc, addr, "f")
	require.Len(t, results, 1)
	require.Equal(t, int32(2), results[0].I32())
}

func TestInstantiate_MemoryGrowBeyondMaxReportsFailure(t *testing.T) {
	src := `(module
		(memory $m 1 1)
		(func $f (result i32) (memory.grow (i32.const 5)))
		(export "f" (func $f)))`
	alloc, addr := mustInstantiate(t, src, nil)
	results := callExport(t, alloc, addr, "f")
	require.Len(t, results, 1)
	require.Equal(t, int32(-1), results[0].I32())
}

func TestInstantiate_SelectPicksByCondition(t *testing.T) {
	src := `(module
		(func $sel (param $c i32) (result i32)
			(select (i32.const 100) (i32.const 200) (get_local 0)))
		(export "sel" (func $sel)))`
	alloc, addr := mustInstantiate(t, src, nil)

	results := callExport(t, alloc, addr, "sel", values.NewI32(1))
	require.Equal(t, int32(100), results[0].I32())

	results = callExport(t, alloc, addr, "sel", values.NewI32(0))
	require.Equal(t, int32(200), results[0].I32())
}

func TestInstantiate_StartFunctionRunsGlobalSideEffect(t *testing.T) {
	src := `(module
		(global $n (mut i32) (i32.const 0))
		(func $init (set_global $n (i32.const 99)))
		(func $read (result i32) (get_global $n))
		(start $init)
		(export "read" (func $read)))`
	alloc, addr := mustInstantiate(t, src, nil)
	mi := alloc.Module(addr)
	require.NotNil(t, mi.Start)
	_, err := Invoke(context.Background(), alloc, *mi.Start, nil)
	require.NoError(t, err)
	results := callExport(t, alloc, addr, "read")
	require.Len(t, results, 1)
	require.Equal(t, int32(99), results[0].I32())
}
