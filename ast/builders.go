package ast

import (
	"fmt"

	"github.com/gowasm/wat/values"
)

// reservedStructuralIDs are instruction names that MUST be represented by
// their own dedicated node kind rather than a plain Instr. NewInstr panics
// with an AssertionError if asked to build one of these — producing such a
// node is always a bug in the caller (parser or AST-rewriting pass), never
// a reachable runtime condition.
var reservedStructuralIDs = map[string]bool{
	"block": true,
	"if":    true,
	"loop":  true,
}

func NewIdentifier(loc *Loc, value string) *Identifier {
	return &Identifier{base{loc}, value}
}

func NewNumberLiteral(loc *Loc, raw string, t values.Type, val float64) *NumberLiteral {
	return &NumberLiteral{base{loc}, raw, t, val}
}

func NewValtypeLiteral(loc *Loc, name string) *ValtypeLiteral {
	return &ValtypeLiteral{base{loc}, name}
}

func NewStringLiteral(loc *Loc, value []byte) *StringLiteral {
	return &StringLiteral{base{loc}, value}
}

func NewIndexLiteral(loc *Loc, value uint32) *IndexLiteral {
	return &IndexLiteral{base{loc}, value}
}

func NewMemIndexLiteral(loc *Loc, value uint32) *MemIndexLiteral {
	return &MemIndexLiteral{base{loc}, value}
}

func NewLimit(loc *Loc, min uint32, max *uint32) *Limit {
	return &Limit{base{loc}, min, max}
}

func NewGlobalType(loc *Loc, vt values.Type, mutability string) *GlobalType {
	if mutability != "const" && mutability != "var" {
		panic(&AssertionError{fmt.Sprintf("ast: GlobalType mutability must be const or var, got %q", mutability)})
	}
	return &GlobalType{base{loc}, vt, mutability}
}

func NewByteArray(loc *Loc, values []byte) *ByteArray {
	return &ByteArray{base{loc}, values}
}

func NewLeadingComment(loc *Loc, text string) *LeadingComment {
	return &LeadingComment{base{loc}, text}
}

func NewBlockComment(loc *Loc, text string) *BlockComment {
	return &BlockComment{base{loc}, text}
}

func NewSignature(loc *Loc, params []Param, results []values.Type) *Signature {
	return &Signature{base{loc}, params, results}
}

func NewTypeReference(loc *Loc, idx Index) *TypeReference {
	return &TypeReference{base{loc}, idx}
}

func NewFunc(loc *Loc, id ID, sig *Signature, typeRef *TypeReference, locals []Param, body []Node) *Func {
	if sig == nil && typeRef == nil {
		panic(&AssertionError{"ast: Func requires either an inline Signature or a TypeReference"})
	}
	if body == nil {
		body = []Node{}
	}
	return &Func{base{loc}, id, sig, typeRef, locals, body}
}

// NewInstr builds a plain instruction node. It panics with an
// AssertionError if id is "block", "if", or "loop" — per the spec
// invariant, those MUST be BlockInstruction/IfInstruction/LoopInstruction.
func NewInstr(loc *Loc, id string, object string, args []Node, namedArgs map[string]*NumberLiteral) *Instr {
	if reservedStructuralIDs[id] {
		panic(&AssertionError{fmt.Sprintf("ast: %q must be a structured instruction node, not a plain Instr", id)})
	}
	if args == nil {
		args = []Node{}
	}
	return &Instr{base{loc}, id, object, args, namedArgs}
}

func NewBlockInstruction(loc *Loc, label ID, instr []Node, result *values.Type) *BlockInstruction {
	if instr == nil {
		instr = []Node{}
	}
	return &BlockInstruction{base{loc}, label, instr, result}
}

func NewLoopInstruction(loc *Loc, label ID, instr []Node, result *values.Type) *LoopInstruction {
	if instr == nil {
		instr = []Node{}
	}
	return &LoopInstruction{base{loc}, label, instr, result}
}

func NewIfInstruction(loc *Loc, label ID, test []Node, result *values.Type, consequent, alternate []Node) *IfInstruction {
	if test == nil {
		test = []Node{}
	}
	if consequent == nil {
		consequent = []Node{}
	}
	if alternate == nil {
		alternate = []Node{}
	}
	return &IfInstruction{base{loc}, label, test, result, consequent, alternate}
}

func NewCallInstruction(loc *Loc, idx Index, instrArgs []Node) *CallInstruction {
	return &CallInstruction{base{loc}, idx, instrArgs}
}

func NewCallIndirectInstruction(loc *Loc, sig *Signature, typeRef *TypeReference, instrArgs []Node) *CallIndirectInstruction {
	if sig == nil && typeRef == nil {
		panic(&AssertionError{"ast: CallIndirectInstruction requires either an inline Signature or a TypeReference"})
	}
	return &CallIndirectInstruction{base{loc}, sig, typeRef, instrArgs}
}

func NewTypeInstruction(loc *Loc, id *ID, sig *Signature) *TypeInstruction {
	return &TypeInstruction{base{loc}, id, sig}
}

func NewFuncImportDescr(loc *Loc, id ID, sig *Signature, typeRef *TypeReference) *FuncImportDescr {
	if sig == nil && typeRef == nil {
		panic(&AssertionError{"ast: FuncImportDescr requires either an inline Signature or a TypeReference"})
	}
	return &FuncImportDescr{base{loc}, id, sig, typeRef}
}

func NewModuleImport(loc *Loc, module, name string, descr Node) *ModuleImport {
	return &ModuleImport{base{loc}, module, name, descr}
}

func NewModuleExport(loc *Loc, name string, descr ExportDescr) *ModuleExport {
	return &ModuleExport{base{loc}, name, descr}
}

func NewMemory(loc *Loc, id ID, limits Limit) *Memory {
	return &Memory{base{loc}, id, limits}
}

func NewTable(loc *Loc, elementType string, limits Limit, name ID, elemIndices []Index) *Table {
	return &Table{base{loc}, elementType, limits, name, elemIndices}
}

func NewGlobal(loc *Loc, gt GlobalType, init []Node, name ID) *Global {
	if init == nil {
		init = []Node{}
	}
	return &Global{base{loc}, gt, init, name}
}

func NewData(loc *Loc, memIdx Index, offset Node, init ByteArray) *Data {
	return &Data{base{loc}, memIdx, offset, init}
}

func NewElem(loc *Loc, tableIdx Index, offset []Node, funcs []Index) *Elem {
	if offset == nil {
		offset = []Node{}
	}
	return &Elem{base{loc}, tableIdx, offset, funcs}
}

func NewStart(loc *Loc, idx Index) *Start {
	return &Start{base{loc}, idx}
}

func NewModule(loc *Loc, id *ID, fields []Node) *Module {
	if fields == nil {
		fields = []Node{}
	}
	for _, f := range fields {
		if instr, ok := f.(*Instr); ok {
			panic(&AssertionError{fmt.Sprintf("ast: Module.Fields contains a bare Instr %q, expected a ModuleField node", instr.ID)})
		}
	}
	return &Module{base{loc}, id, fields}
}

func NewBinaryModule(loc *Loc, id *ID, blob [][]byte) *BinaryModule {
	return &BinaryModule{base{loc}, id, blob}
}

func NewQuoteModule(loc *Loc, id *ID, str [][]byte) *QuoteModule {
	return &QuoteModule{base{loc}, id, str}
}

func NewProgram(loc *Loc, body []Node) *Program {
	if body == nil {
		body = []Node{}
	}
	return &Program{base{loc}, body}
}
