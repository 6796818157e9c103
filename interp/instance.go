package interp

import (
	"context"

	"github.com/gowasm/wat/ast"
	"github.com/gowasm/wat/values"
)

// ExternalFunc is a host callable standing in for a function `ModuleImport`.
// It receives already-coerced argument values and returns result values or
// a Trap, mirroring the signature of an interpreted call.
type ExternalFunc func(ctx context.Context, args []values.Value) ([]values.Value, *Trap)

// FuncInstance is either a module-defined function (Body/Signature set) or
// an imported one backed by an ExternalFunc. ModuleAddr names the owning
// module instance. Locals are the value types of the function's (local ...)
// declarations, indexed after the parameters and zero-initialized on every
// call.
type FuncInstance struct {
	ModuleAddr Addr
	Signature  *ast.Signature
	Locals     []values.Type
	Body       []ast.Node

	IsExternal bool
	External   ExternalFunc
}

// Arity reports how many parameters the function expects.
func (f *FuncInstance) Arity() int {
	if f.Signature == nil {
		return 0
	}
	return len(f.Signature.Params)
}

// GlobalInstance holds a mutable or immutable global's current value.
type GlobalInstance struct {
	Type  ast.GlobalType
	Value values.Value
}

// TableInstance holds function addresses reachable via call_indirect. A nil
// entry is an uninitialized slot — call_indirect through one traps.
type TableInstance struct {
	ElementType string
	Elements    []*Addr
}

// ExportKind discriminates the four exportable entity kinds.
type ExportKind string

const (
	ExportFunc   ExportKind = "Func"
	ExportGlobal ExportKind = "Global"
	ExportMemory ExportKind = "Memory"
	ExportTable  ExportKind = "Table"
)

// Export is one entry of a ModuleInstance's exports array.
type Export struct {
	Name string
	Kind ExportKind
	Addr Addr
}

// ModuleInstance is the result of instantiation: the index spaces built
// while walking a Module's fields, resolved to allocator addresses, plus
// the name tables needed to resolve symbolic references at call time.
type ModuleInstance struct {
	FuncAddrs   []Addr
	GlobalAddrs []Addr
	TableAddrs  []Addr
	MemAddrs    []Addr
	Types       []*ast.Signature

	FuncNames   map[string]uint32
	GlobalNames map[string]uint32
	TableNames  map[string]uint32
	MemNames    map[string]uint32
	TypeNames   map[string]uint32

	Exports []Export
	Start   *Addr
}

// Export looks up a recorded export by name.
func (m *ModuleInstance) Export(name string) (Export, bool) {
	for _, e := range m.Exports {
		if e.Name == name {
			return e, true
		}
	}
	return Export{}, false
}
