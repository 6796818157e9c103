package ast

import "fmt"

// NameGenerator produces deterministic, monotonic anonymous identifiers —
// func_0, block_0, block_1, ... — one counter per category, never reissuing
// a name within the lifetime of a single parse. The parser owns one
// NameGenerator per call to Parse; it holds no package-level state.
type NameGenerator struct {
	counters map[string]uint32
}

// NewNameGenerator returns a ready-to-use generator.
func NewNameGenerator() *NameGenerator {
	return &NameGenerator{counters: map[string]uint32{}}
}

// Next returns the next generated ID for the given category (e.g. "func",
// "block", "loop", "if"), marked as Generated so a printer can omit it.
func (g *NameGenerator) Next(category string) ID {
	n := g.counters[category]
	g.counters[category] = n + 1
	return ID{Raw: fmt.Sprintf("%s_%d", category, n), Generated: true}
}
