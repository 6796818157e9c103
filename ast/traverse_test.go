package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTraverse_VisitsNestedInstructions(t *testing.T) {
	body := []Node{
		NewInstr(nil, "get_local", "", []Node{NewNumberLiteral(nil, "0", 0, 0)}, nil),
		NewBlockInstruction(nil, ID{Raw: "block_0", Generated: true}, []Node{
			NewInstr(nil, "nop", "", nil, nil),
		}, nil),
	}
	fn := NewFunc(nil, ID{Raw: "f"}, NewSignature(nil, nil, nil), nil, nil, body)
	mod := NewModule(nil, nil, []Node{fn})
	prog := NewProgram(nil, []Node{mod})

	var instrCount int
	err := Traverse(prog, Visitors{
		KindInstr: func(p *Path) error {
			instrCount++
			return nil
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, instrCount)
}

func TestTraverse_Remove(t *testing.T) {
	body := []Node{
		NewInstr(nil, "nop", "", nil, nil),
		NewInstr(nil, "nop", "", nil, nil),
	}
	fn := NewFunc(nil, ID{Raw: "f"}, NewSignature(nil, nil, nil), nil, nil, body)

	err := Traverse(fn, Visitors{
		KindInstr: func(p *Path) error {
			p.Remove()
			return nil
		},
	})
	require.NoError(t, err)
	require.Empty(t, fn.Body)
}

func TestTraverse_StopsOnError(t *testing.T) {
	body := []Node{
		NewInstr(nil, "nop", "", nil, nil),
		NewInstr(nil, "nop", "", nil, nil),
	}
	fn := NewFunc(nil, ID{Raw: "f"}, NewSignature(nil, nil, nil), nil, nil, body)

	boom := require.Error
	var visited int
	err := Traverse(fn, Visitors{
		KindInstr: func(p *Path) error {
			visited++
			return errStop
		},
	})
	boom(t, err)
	require.Equal(t, 1, visited)
}

var errStop = &AssertionError{"stop"}
