// Package interp implements the allocator, linear memory, stack-frame
// kernel, instruction executors, and module instantiation that turn a
// parsed program into running WebAssembly.
package interp

import "fmt"

// AddrKind discriminates which arena an Addr indexes into.
type AddrKind int

const (
	AddrFunc AddrKind = iota
	AddrGlobal
	AddrTable
	AddrMemory
	AddrModule
)

func (k AddrKind) String() string {
	switch k {
	case AddrFunc:
		return "func"
	case AddrGlobal:
		return "global"
	case AddrTable:
		return "table"
	case AddrMemory:
		return "memory"
	case AddrModule:
		return "module"
	default:
		return fmt.Sprintf("AddrKind(%d)", int(k))
	}
}

// Addr is an opaque handle into the Allocator, stable for its lifetime. A
// function instance holds the Addr of its owning module rather than a
// direct pointer, so module and function instances never form a reference
// cycle — the allocator is the single place that resolves one into the
// other.
type Addr struct {
	Kind  AddrKind
	Index uint32
}

func (a Addr) String() string { return fmt.Sprintf("%s#%d", a.Kind, a.Index) }
