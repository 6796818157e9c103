package ast

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gowasm/wat/values"
)

func TestNewInstr_RejectsStructuralIDs(t *testing.T) {
	for _, id := range []string{"block", "if", "loop"} {
		func() {
			defer func() {
				r := recover()
				require.NotNil(t, r, "expected panic for id %q", id)
				_, ok := r.(*AssertionError)
				require.True(t, ok, "expected *AssertionError, got %T", r)
			}()
			NewInstr(nil, id, "", nil, nil)
		}()
	}
}

func TestNewInstr_AllowsOrdinaryOps(t *testing.T) {
	instr := NewInstr(nil, "add", "i32", nil, nil)
	require.Equal(t, KindInstr, instr.Kind())
	require.Equal(t, "add", instr.ID)
}

func TestNewModule_RejectsBareInstr(t *testing.T) {
	defer func() {
		require.NotNil(t, recover())
	}()
	bad := &Instr{ID: "nop"}
	NewModule(nil, nil, []Node{bad})
}

func TestID_GeneratedOmitsRaw(t *testing.T) {
	gen := ID{Raw: "func_0", Generated: true}
	require.Equal(t, "", gen.String())

	named := ID{Raw: "f"}
	require.Equal(t, "f", named.String())
}

func TestNewGlobalType_RejectsBadMutability(t *testing.T) {
	defer func() {
		require.NotNil(t, recover())
	}()
	NewGlobalType(nil, values.I32, "mutable")
}
