package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNameGenerator_MonotonicPerCategory(t *testing.T) {
	g := NewNameGenerator()
	require.Equal(t, "func_0", g.Next("func").Raw)
	require.Equal(t, "func_1", g.Next("func").Raw)
	require.Equal(t, "block_0", g.Next("block").Raw)
	require.Equal(t, "func_2", g.Next("func").Raw)
}

func TestNameGenerator_MarksGenerated(t *testing.T) {
	g := NewNameGenerator()
	id := g.Next("func")
	require.True(t, id.Generated)
}

func TestNameGenerator_NoDuplicatesWithinParse(t *testing.T) {
	g := NewNameGenerator()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := g.Next("block")
		require.False(t, seen[id.Raw], "duplicate generated name %q", id.Raw)
		seen[id.Raw] = true
	}
}
