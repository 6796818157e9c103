package interp

import (
	"context"

	"github.com/gowasm/wat/ast"
	"github.com/gowasm/wat/values"
)

// Invoke calls the function instance at addr with args bound as its
// arguments, for callers with no StackFrame of their own to call through —
// the CLI's -invoke flag and a module's (start) function both enter the
// interpreter this way.
func Invoke(ctx context.Context, alloc *Allocator, addr Addr, args []values.Value) ([]values.Value, error) {
	fi := alloc.Func(addr)
	root := &StackFrame{Allocator: alloc, ModuleAddr: fi.ModuleAddr, Listener: NoopListener{}, ctx: ctx}
	return invokeFunc(root, fi, args)
}

// Instantiate walks mod's fields and builds a ModuleInstance in the
// allocator: function instances for each Func and function ModuleImport,
// global instances with their init expressions evaluated in a transient
// frame, tables and memories sized per their Limit, Data/Elem segments
// copied into the targets they reference, and finally the export table.
// imports supplies host callables for function imports, keyed by
// "module.name"; other import kinds are not modeled (see DESIGN.md).
func Instantiate(ctx context.Context, alloc *Allocator, mod *ast.Module, imports map[string]ExternalFunc) (Addr, error) {
	mi := &ModuleInstance{
		FuncNames:   map[string]uint32{},
		GlobalNames: map[string]uint32{},
		TableNames:  map[string]uint32{},
		MemNames:    map[string]uint32{},
		TypeNames:   map[string]uint32{},
	}
	assignNames(mod, mi)

	moduleAddr := alloc.MallocModule(mi)

	for _, field := range mod.Fields {
		if n, ok := field.(*ast.TypeInstruction); ok {
			mi.Types = append(mi.Types, typeSignature(n))
		}
	}

	if err := allocateFuncs(alloc, mi, mod, moduleAddr, imports); err != nil {
		return Addr{}, err
	}
	if err := allocateGlobals(ctx, alloc, mi, mod, moduleAddr); err != nil {
		return Addr{}, err
	}
	if err := allocateTablesAndMemories(alloc, mi, mod); err != nil {
		return Addr{}, err
	}
	if err := applyDataAndElemSegments(ctx, alloc, mi, mod, moduleAddr); err != nil {
		return Addr{}, err
	}
	recordExports(alloc, mi, mod)
	if err := recordStart(mi, mod); err != nil {
		return Addr{}, err
	}

	return moduleAddr, nil
}

// assignNames builds the five name tables up front, in one pass, so every
// later step can resolve a symbolic or numeric index regardless of how the
// fields that declare and reference a name are ordered in the source.
func assignNames(mod *ast.Module, mi *ModuleInstance) {
	var funcIdx, globalIdx, tableIdx, memIdx, typeIdx uint32
	for _, field := range mod.Fields {
		switch n := field.(type) {
		case *ast.TypeInstruction:
			if n.ID != nil && !n.ID.IsEmpty() {
				mi.TypeNames[n.ID.Raw] = typeIdx
			}
			typeIdx++
		case *ast.Func:
			if !n.ID.IsEmpty() {
				mi.FuncNames[n.ID.Raw] = funcIdx
			}
			funcIdx++
		case *ast.ModuleImport:
			if d, ok := n.Descr.(*ast.FuncImportDescr); ok {
				if !d.ID.IsEmpty() {
					mi.FuncNames[d.ID.Raw] = funcIdx
				}
				funcIdx++
			}
		case *ast.Global:
			if !n.Name.IsEmpty() {
				mi.GlobalNames[n.Name.Raw] = globalIdx
			}
			globalIdx++
		case *ast.Table:
			if !n.Name.IsEmpty() {
				mi.TableNames[n.Name.Raw] = tableIdx
			}
			tableIdx++
		case *ast.Memory:
			if !n.ID.IsEmpty() {
				mi.MemNames[n.ID.Raw] = memIdx
			}
			memIdx++
		}
	}
}

// typeSignature unwraps a (type ...) definition's inline signature.
func typeSignature(n *ast.TypeInstruction) *ast.Signature { return n.SignatureNode }

// localTypes flattens a function's (local ...) declarations into the value
// types the call machinery zero-initializes.
func localTypes(locals []ast.Param) []values.Type {
	if len(locals) == 0 {
		return nil
	}
	out := make([]values.Type, len(locals))
	for i, l := range locals {
		out[i] = l.Valtype
	}
	return out
}

// funcSignature resolves f's signature, whether given inline or by
// reference to a module-level (type ...) definition.
func funcSignature(mi *ModuleInstance, sig *ast.Signature, ref *ast.TypeReference) (*ast.Signature, error) {
	if sig != nil {
		return sig, nil
	}
	if ref == nil {
		return nil, runtimeErrorf("function has neither an inline signature nor a type reference")
	}
	idx, err := resolveIndex(mi.TypeNames, ref.Index)
	if err != nil {
		return nil, err
	}
	if int(idx) >= len(mi.Types) {
		return nil, runtimeErrorf("type index %d out of range", idx)
	}
	return mi.Types[idx], nil
}

func allocateFuncs(alloc *Allocator, mi *ModuleInstance, mod *ast.Module, moduleAddr Addr, imports map[string]ExternalFunc) error {
	for _, field := range mod.Fields {
		switch n := field.(type) {
		case *ast.Func:
			sig, err := funcSignature(mi, n.SignatureNode, n.TypeRef)
			if err != nil {
				return err
			}
			addr := alloc.MallocFunc(&FuncInstance{
				ModuleAddr: moduleAddr,
				Signature:  sig,
				Locals:     localTypes(n.Locals),
				Body:       n.Body,
			})
			mi.FuncAddrs = append(mi.FuncAddrs, addr)
		case *ast.ModuleImport:
			d, ok := n.Descr.(*ast.FuncImportDescr)
			if !ok {
				continue
			}
			sig, err := funcSignature(mi, d.SignatureNode, d.TypeRef)
			if err != nil {
				return err
			}
			external, ok := imports[n.Module+"."+n.Name]
			if !ok {
				return runtimeErrorf("unresolved import %s.%s", n.Module, n.Name)
			}
			addr := alloc.MallocFunc(&FuncInstance{
				ModuleAddr: moduleAddr,
				Signature:  sig,
				IsExternal: true,
				External:   external,
			})
			mi.FuncAddrs = append(mi.FuncAddrs, addr)
		}
	}
	return nil
}

// evalConstExpr runs code (a global's init, or a Data/Elem segment's
// offset) in a fresh root frame and returns its single resulting value,
// per spec.md's "a transient frame" rule for both global init and segment
// offsets.
func evalConstExpr(ctx context.Context, alloc *Allocator, moduleAddr Addr, code []ast.Node) (values.Value, error) {
	frame := createStackFrame(ctx, alloc, moduleAddr, code, nil, nil)
	_, vals, err := executeStackFrame(frame)
	if err != nil {
		return values.Value{}, err
	}
	if len(vals) == 0 {
		return values.Value{}, runtimeErrorf("constant expression produced no value")
	}
	return vals[len(vals)-1], nil
}

func allocateGlobals(ctx context.Context, alloc *Allocator, mi *ModuleInstance, mod *ast.Module, moduleAddr Addr) error {
	for _, field := range mod.Fields {
		n, ok := field.(*ast.Global)
		if !ok {
			continue
		}
		v, err := evalConstExpr(ctx, alloc, moduleAddr, n.Init)
		if err != nil {
			return err
		}
		addr := alloc.MallocGlobal(&GlobalInstance{Type: n.GlobalTypeNode, Value: v})
		mi.GlobalAddrs = append(mi.GlobalAddrs, addr)
	}
	return nil
}

func allocateTablesAndMemories(alloc *Allocator, mi *ModuleInstance, mod *ast.Module) error {
	for _, field := range mod.Fields {
		n, ok := field.(*ast.Table)
		if !ok {
			continue
		}
		size := n.Limits.Min
		if uint32(len(n.ElemIndices)) > size {
			size = uint32(len(n.ElemIndices))
		}
		elements := make([]*Addr, size)
		for i, idx := range n.ElemIndices {
			fidx, err := resolveIndex(mi.FuncNames, idx)
			if err != nil {
				return err
			}
			if int(fidx) >= len(mi.FuncAddrs) {
				return runtimeErrorf("table element references out-of-range function index %d", fidx)
			}
			addr := mi.FuncAddrs[fidx]
			elements[i] = &addr
		}
		addr := alloc.MallocTable(&TableInstance{ElementType: n.ElementType, Elements: elements})
		mi.TableAddrs = append(mi.TableAddrs, addr)
	}
	for _, field := range mod.Fields {
		n, ok := field.(*ast.Memory)
		if !ok {
			continue
		}
		addr := alloc.MallocMemory(NewMemory(n.Limits.Min, n.Limits.Max))
		mi.MemAddrs = append(mi.MemAddrs, addr)
	}
	return nil
}

// applyDataAndElemSegments copies Data/Elem module fields into the
// memories/tables they target. These AST node kinds carry no executor of
// their own; instantiation is the only place that ever applies them.
func applyDataAndElemSegments(ctx context.Context, alloc *Allocator, mi *ModuleInstance, mod *ast.Module, moduleAddr Addr) error {
	for _, field := range mod.Fields {
		n, ok := field.(*ast.Data)
		if !ok {
			continue
		}
		memIdx, err := resolveIndex(mi.MemNames, n.MemoryIndex)
		if err != nil {
			return err
		}
		if int(memIdx) >= len(mi.MemAddrs) {
			return runtimeErrorf("data segment references out-of-range memory index %d", memIdx)
		}
		off, err := evalConstExpr(ctx, alloc, moduleAddr, []ast.Node{n.Offset})
		if err != nil {
			return err
		}
		mem := alloc.Memory(mi.MemAddrs[memIdx])
		if !mem.write(uint32(off.I32()), n.Init.Values) {
			return runtimeErrorf("data segment write out of memory bounds")
		}
	}
	for _, field := range mod.Fields {
		n, ok := field.(*ast.Elem)
		if !ok {
			continue
		}
		tblIdx, err := resolveIndex(mi.TableNames, n.TableIndex)
		if err != nil {
			return err
		}
		if int(tblIdx) >= len(mi.TableAddrs) {
			return runtimeErrorf("elem segment references out-of-range table index %d", tblIdx)
		}
		off, err := evalConstExpr(ctx, alloc, moduleAddr, n.Offset)
		if err != nil {
			return err
		}
		table := alloc.Table(mi.TableAddrs[tblIdx])
		base := int(uint32(off.I32()))
		for i, idx := range n.Funcs {
			fidx, err := resolveIndex(mi.FuncNames, idx)
			if err != nil {
				return err
			}
			if int(fidx) >= len(mi.FuncAddrs) {
				return runtimeErrorf("elem segment references out-of-range function index %d", fidx)
			}
			pos := base + i
			if pos >= len(table.Elements) {
				return runtimeErrorf("elem segment write out of table bounds")
			}
			addr := mi.FuncAddrs[fidx]
			table.Elements[pos] = &addr
		}
	}
	return nil
}

func recordExports(alloc *Allocator, mi *ModuleInstance, mod *ast.Module) {
	for _, field := range mod.Fields {
		n, ok := field.(*ast.ModuleExport)
		if !ok {
			continue
		}
		var kind ExportKind
		var table map[string]uint32
		var addrs []Addr
		switch n.Descr.ExportType {
		case "Func":
			kind, table, addrs = ExportFunc, mi.FuncNames, mi.FuncAddrs
		case "Global":
			kind, table, addrs = ExportGlobal, mi.GlobalNames, mi.GlobalAddrs
		case "Memory":
			kind, table, addrs = ExportMemory, mi.MemNames, mi.MemAddrs
		case "Table":
			kind, table, addrs = ExportTable, mi.TableNames, mi.TableAddrs
		default:
			continue
		}
		idx, err := resolveIndex(table, n.Descr.ID)
		if err != nil || int(idx) >= len(addrs) {
			continue
		}
		mi.Exports = append(mi.Exports, Export{Name: n.Name, Kind: kind, Addr: addrs[idx]})
	}
}

func recordStart(mi *ModuleInstance, mod *ast.Module) error {
	for _, field := range mod.Fields {
		n, ok := field.(*ast.Start)
		if !ok {
			continue
		}
		idx, err := resolveIndex(mi.FuncNames, n.Index)
		if err != nil {
			return err
		}
		if int(idx) >= len(mi.FuncAddrs) {
			return runtimeErrorf("start function index %d out of range", idx)
		}
		addr := mi.FuncAddrs[idx]
		mi.Start = &addr
	}
	return nil
}
