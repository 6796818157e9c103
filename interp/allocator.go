package interp

// AllocatorOption configures a new Allocator's initial arena capacity, a
// pure performance knob (avoids reslicing while instantiating a module with
// a known field count) — functional options, matching the config-struct
// pattern used throughout this module.
type AllocatorOption func(*allocatorOptions)

type allocatorOptions struct {
	funcCap, globalCap, tableCap, memoryCap, moduleCap int
}

// WithCapacityHint preallocates arena capacity for the given counts.
func WithCapacityHint(funcs, globals, tables, memories int) AllocatorOption {
	return func(o *allocatorOptions) {
		o.funcCap, o.globalCap, o.tableCap, o.memoryCap = funcs, globals, tables, memories
	}
}

// Allocator is the process-lifetime store described by the specification:
// addresses are stable for its life, and it is the only place a
// FuncInstance's ModuleAddr is resolved back into a ModuleInstance.
type Allocator struct {
	funcs    []*FuncInstance
	globals  []*GlobalInstance
	tables   []*TableInstance
	memories []*Memory
	modules  []*ModuleInstance
}

// NewAllocator builds an empty Allocator.
func NewAllocator(opts ...AllocatorOption) *Allocator {
	var o allocatorOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Allocator{
		funcs:    make([]*FuncInstance, 0, o.funcCap),
		globals:  make([]*GlobalInstance, 0, o.globalCap),
		tables:   make([]*TableInstance, 0, o.tableCap),
		memories: make([]*Memory, 0, o.memoryCap),
		modules:  make([]*ModuleInstance, 0, o.moduleCap),
	}
}

// MallocFunc stores fi and returns its new address.
func (a *Allocator) MallocFunc(fi *FuncInstance) Addr {
	a.funcs = append(a.funcs, fi)
	return Addr{Kind: AddrFunc, Index: uint32(len(a.funcs) - 1)}
}

// MallocGlobal stores gi and returns its new address.
func (a *Allocator) MallocGlobal(gi *GlobalInstance) Addr {
	a.globals = append(a.globals, gi)
	return Addr{Kind: AddrGlobal, Index: uint32(len(a.globals) - 1)}
}

// MallocTable stores ti and returns its new address.
func (a *Allocator) MallocTable(ti *TableInstance) Addr {
	a.tables = append(a.tables, ti)
	return Addr{Kind: AddrTable, Index: uint32(len(a.tables) - 1)}
}

// MallocMemory stores mem and returns its new address.
func (a *Allocator) MallocMemory(mem *Memory) Addr {
	a.memories = append(a.memories, mem)
	return Addr{Kind: AddrMemory, Index: uint32(len(a.memories) - 1)}
}

// MallocModule stores mi and returns its new address.
func (a *Allocator) MallocModule(mi *ModuleInstance) Addr {
	a.modules = append(a.modules, mi)
	return Addr{Kind: AddrModule, Index: uint32(len(a.modules) - 1)}
}

// Func resolves a function address. It panics if addr.Kind is wrong or out
// of range — a mismatched Addr is always a bug in the caller, the same
// class of internal-invariant violation ast.AssertionError guards against
// at the AST layer.
func (a *Allocator) Func(addr Addr) *FuncInstance { return a.funcs[mustKind(addr, AddrFunc)] }

// Global resolves a global address.
func (a *Allocator) Global(addr Addr) *GlobalInstance { return a.globals[mustKind(addr, AddrGlobal)] }

// Table resolves a table address.
func (a *Allocator) Table(addr Addr) *TableInstance { return a.tables[mustKind(addr, AddrTable)] }

// Memory resolves a memory address.
func (a *Allocator) Memory(addr Addr) *Memory { return a.memories[mustKind(addr, AddrMemory)] }

// Module resolves a module address.
func (a *Allocator) Module(addr Addr) *ModuleInstance { return a.modules[mustKind(addr, AddrModule)] }

// SetGlobal overwrites a previously allocated global's value, used by
// global.set.
func (a *Allocator) SetGlobal(addr Addr, gi *GlobalInstance) { a.globals[mustKind(addr, AddrGlobal)] = gi }

func mustKind(addr Addr, want AddrKind) uint32 {
	if addr.Kind != want {
		panic("interp: address kind mismatch: expected " + want.String() + ", got " + addr.Kind.String())
	}
	return addr.Index
}
