package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeFrame_PointsAtColumn(t *testing.T) {
	src := []byte("(module\n  (func $f))\n")
	frame := CodeFrame(src, Loc{Start: Position{Line: 2, Col: 3}})
	require.Equal(t, "  (func $f))\n  ^", frame)
}

func TestCodeFrame_OutOfRangeReturnsEmpty(t *testing.T) {
	src := []byte("(module)")
	require.Equal(t, "", CodeFrame(src, Loc{Start: Position{Line: 99, Col: 1}}))
}
