package ast

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDump_RendersModuleAndFunc(t *testing.T) {
	fn := NewFunc(nil, ID{Raw: "f"}, NewSignature(nil, nil, nil), nil, nil, []Node{
		NewInstr(nil, "nop", "", nil, nil),
	})
	mod := NewModule(nil, nil, []Node{fn})
	out := Dump(mod)
	require.True(t, strings.Contains(out, "Module"))
	require.True(t, strings.Contains(out, "Func f"))
	require.True(t, strings.Contains(out, "Instr nop"))
}
