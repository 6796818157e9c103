package interp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gowasm/wat/internal/token"
	"github.com/gowasm/wat/parser"
)

func TestProgramCache_ProgramRoundTrip(t *testing.T) {
	src := []byte(`(module)`)
	cache := NewProgramCache()

	_, ok := cache.LookupProgram(src)
	require.False(t, ok)

	toks, err := token.Lex(src)
	require.NoError(t, err)
	prog, err := parser.Parse(toks, src)
	require.NoError(t, err)
	cache.StoreProgram(src, prog)

	got, ok := cache.LookupProgram(src)
	require.True(t, ok)
	require.Same(t, prog, got)

	// A single changed byte is a different key.
	_, ok = cache.LookupProgram([]byte(`(module )`))
	require.False(t, ok)
}

func TestProgramCache_ModuleRoundTrip(t *testing.T) {
	src := []byte(`(module (memory 1))`)
	cache := NewProgramCache()

	_, ok := cache.LookupModule(src)
	require.False(t, ok)

	addr := Addr{Kind: AddrModule, Index: 7}
	cache.StoreModule(src, addr)

	got, ok := cache.LookupModule(src)
	require.True(t, ok)
	require.Equal(t, addr, got)
}
