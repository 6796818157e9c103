// Package bench benchmarks the parse/instantiate/invoke pipeline the way
// the teacher corpus benchmarks competing WebAssembly runtimes against each
// other, scoped here to this module's own interpreter.
package bench

import (
	"context"
	_ "embed"
	"testing"

	"github.com/gowasm/wat/ast"
	"github.com/gowasm/wat/interp"
	"github.com/gowasm/wat/internal/token"
	"github.com/gowasm/wat/parser"
	"github.com/gowasm/wat/values"
)

// testCtx is an arbitrary, non-default context. Non-nil also prevents linter errors.
var testCtx = context.WithValue(context.Background(), struct{}{}, "arbitrary")

//go:embed testdata/fac.wat
var facWat []byte

const facArgument = 30

// BenchmarkFac_Init tracks the time spent parsing and instantiating the
// factorial module, with and without a warmed ProgramCache.
func BenchmarkFac_Init(b *testing.B) {
	b.Run("cold", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, _, err := instantiateFac(facWat, nil); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("cached", func(b *testing.B) {
		cache := interp.NewProgramCache()
		if _, _, err := instantiateFac(facWat, cache); err != nil {
			b.Fatal(err)
		}
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, _, err := instantiateFac(facWat, cache); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkFac_Invoke benchmarks repeated invocation of an already
// instantiated module, isolating call overhead from parse/instantiate cost.
func BenchmarkFac_Invoke(b *testing.B) {
	alloc, addr, err := instantiateFac(facWat, nil)
	if err != nil {
		b.Fatal(err)
	}
	mi := alloc.Module(addr)
	export, ok := mi.Export("fac")
	if !ok {
		b.Fatal(`fac module has no "fac" export`)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := interp.Invoke(testCtx, alloc, export.Addr, []values.Value{values.NewI64(facArgument)}); err != nil {
			b.Fatal(err)
		}
	}
}

// instantiateFac parses and instantiates src, consulting cache first when
// one is given and populating it on a miss.
func instantiateFac(src []byte, cache *interp.ProgramCache) (*interp.Allocator, interp.Addr, error) {
	var prog *ast.Program
	if cache != nil {
		if p, ok := cache.LookupProgram(src); ok {
			prog = p
		}
	}
	if prog == nil {
		tokens, err := token.Lex(src)
		if err != nil {
			return nil, interp.Addr{}, err
		}
		p, err := parser.Parse(tokens, src)
		if err != nil {
			return nil, interp.Addr{}, err
		}
		prog = p
		if cache != nil {
			cache.StoreProgram(src, prog)
		}
	}

	var mod *ast.Module
	for _, node := range prog.Body {
		if m, ok := node.(*ast.Module); ok {
			mod = m
			break
		}
	}

	alloc := interp.NewAllocator()
	addr, err := interp.Instantiate(testCtx, alloc, mod, nil)
	return alloc, addr, err
}
