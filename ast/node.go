// Package ast defines the tagged node tree produced by the WAT parser and
// consumed by the interpreter: ~30 node kinds, their structural invariants,
// the builder functions that enforce those invariants, a depth-first
// traversal, and a debug pretty-printer.
package ast

import (
	"fmt"

	"github.com/gowasm/wat/values"
)

// Kind discriminates the concrete node types. Every Node reports one.
type Kind int

const (
	KindProgram Kind = iota
	KindModule
	KindBinaryModule
	KindQuoteModule
	KindFunc
	KindSignature
	KindTypeReference
	KindInstr
	KindBlockInstruction
	KindLoopInstruction
	KindIfInstruction
	KindCallInstruction
	KindCallIndirectInstruction
	KindTypeInstruction
	KindModuleImport
	KindModuleExport
	KindMemory
	KindTable
	KindGlobal
	KindData
	KindElem
	KindStart
	KindIdentifier
	KindNumberLiteral
	KindValtypeLiteral
	KindStringLiteral
	KindIndexLiteral
	KindMemIndexLiteral
	KindLimit
	KindGlobalType
	KindByteArray
	KindLeadingComment
	KindBlockComment
)

var kindNames = [...]string{
	"Program", "Module", "BinaryModule", "QuoteModule", "Func", "Signature",
	"TypeReference", "Instr", "BlockInstruction", "LoopInstruction",
	"IfInstruction", "CallInstruction", "CallIndirectInstruction",
	"TypeInstruction", "ModuleImport", "ModuleExport", "Memory", "Table",
	"Global", "Data", "Elem", "Start", "Identifier", "NumberLiteral",
	"ValtypeLiteral", "StringLiteral", "IndexLiteral", "MemIndexLiteral",
	"Limit", "GlobalType", "ByteArray", "LeadingComment", "BlockComment",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Position is a single line/column location, 1-indexed like the tokenizer's.
type Position struct {
	Line, Col uint32
}

// Loc is an optional source range attached to a node, used for code frames
// in diagnostics.
type Loc struct {
	Start, End Position
}

// Node is implemented by every concrete AST node. Callers type-switch on the
// result of Kind() (or use a type assertion) to recover the concrete type.
type Node interface {
	Kind() Kind
	Loc() *Loc
}

// base is embedded by every concrete node to provide Loc() without
// repeating the field and getter in each type.
type base struct {
	L *Loc
}

func (b base) Loc() *Loc { return b.L }

// AssertionError indicates an internal invariant violation: a builder
// receiving a non-sequence where a sequence was required, or similar misuse
// of the AST construction API by its own producer. It is never raised by
// well-formed parser or interpreter code, only by bugs in them.
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string { return "assertion failed: " + e.Message }

// ID is a node identifier: either a user-supplied symbolic name (raw starts
// with "$" in source, stored here without the sigil) or one generated by the
// unique-name generator. Generated names keep the generated text (func_0,
// block_0, ...) in Raw and carry Generated=true, so String() returns "" for
// them and a printer can tell the two apart and omit generated names on
// output.
type ID struct {
	Raw       string
	Generated bool
}

// String implements fmt.Stringer.
func (i ID) String() string {
	if i.Generated {
		return ""
	}
	return i.Raw
}

// IsEmpty reports whether no identifier was ever assigned (neither
// user-supplied nor generated). Only transient construction states hit
// this; builders normally fill in at least a generated ID.
func (i ID) IsEmpty() bool { return i.Raw == "" && !i.Generated }

// Index resolves to a function/global/memory/table/type slot: either by
// symbolic Identifier or by numeric IndexLiteral. Exactly one of Ident/Num
// is non-nil.
type Index struct {
	Ident *Identifier
	Num   *IndexLiteral
}

// IsIdentifier reports whether this index resolves symbolically.
func (i Index) IsIdentifier() bool { return i.Ident != nil }

// ---- Leaves ----

type Identifier struct {
	base
	Value string
}

func (*Identifier) Kind() Kind { return KindIdentifier }

type NumberLiteral struct {
	base
	RawText string
	Type    values.Type
	Val     float64
}

func (*NumberLiteral) Kind() Kind { return KindNumberLiteral }

type ValtypeLiteral struct {
	base
	Name string
}

func (*ValtypeLiteral) Kind() Kind { return KindValtypeLiteral }

type StringLiteral struct {
	base
	Value []byte
}

func (*StringLiteral) Kind() Kind { return KindStringLiteral }

type IndexLiteral struct {
	base
	Value uint32
}

func (*IndexLiteral) Kind() Kind { return KindIndexLiteral }

type MemIndexLiteral struct {
	base
	Value uint32
}

func (*MemIndexLiteral) Kind() Kind { return KindMemIndexLiteral }

type Limit struct {
	base
	Min uint32
	Max *uint32
}

func (*Limit) Kind() Kind { return KindLimit }

type GlobalType struct {
	base
	Valtype    values.Type
	Mutability string // "const" or "var"
}

func (*GlobalType) Kind() Kind { return KindGlobalType }

type ByteArray struct {
	base
	Values []byte
}

func (*ByteArray) Kind() Kind { return KindByteArray }

type LeadingComment struct {
	base
	Text string
}

func (*LeadingComment) Kind() Kind { return KindLeadingComment }

type BlockComment struct {
	base
	Text string
}

func (*BlockComment) Kind() Kind { return KindBlockComment }

// ---- Structural ----

// Param is a single function parameter: an optional name and its valtype.
type Param struct {
	ID      ID
	Valtype values.Type
}

type Signature struct {
	base
	Params  []Param
	Results []values.Type
}

func (*Signature) Kind() Kind { return KindSignature }

// TypeReference points at a module-level (type ...) definition by index,
// used wherever a Func/CallIndirect may use either an inline Signature or a
// reference to a previously declared one.
type TypeReference struct {
	base
	Index Index
}

func (*TypeReference) Kind() Kind { return KindTypeReference }

type Func struct {
	base
	ID ID
	// Exactly one of SignatureNode/TypeRef is set.
	SignatureNode *Signature
	TypeRef       *TypeReference
	// Locals declared with (local ...) forms, zero-initialized at call time
	// and indexed after the parameters.
	Locals []Param
	Body   []Node // Instr | BlockInstruction | LoopInstruction | IfInstruction | CallInstruction | CallIndirectInstruction
}

func (*Func) Kind() Kind { return KindFunc }

// Instr is every plain instruction except block/if/loop, which must use
// their own dedicated node kinds — see NewInstr.
type Instr struct {
	base
	ID        string
	Object    string // e.g. "i32" prefix, empty if none
	Args      []Node
	NamedArgs map[string]*NumberLiteral
}

func (*Instr) Kind() Kind { return KindInstr }

type BlockInstruction struct {
	base
	Label  ID
	Instr  []Node
	Result *values.Type
}

func (*BlockInstruction) Kind() Kind { return KindBlockInstruction }

type LoopInstruction struct {
	base
	Label  ID
	Instr  []Node
	Result *values.Type
}

func (*LoopInstruction) Kind() Kind { return KindLoopInstruction }

type IfInstruction struct {
	base
	Label      ID
	Test       []Node
	Result     *values.Type
	Consequent []Node
	Alternate  []Node
}

func (*IfInstruction) Kind() Kind { return KindIfInstruction }

type CallInstruction struct {
	base
	Index     Index
	InstrArgs []Node
}

func (*CallInstruction) Kind() Kind { return KindCallInstruction }

type CallIndirectInstruction struct {
	base
	SignatureNode *Signature
	TypeRef       *TypeReference
	InstrArgs     []Node
}

func (*CallIndirectInstruction) Kind() Kind { return KindCallIndirectInstruction }

type TypeInstruction struct {
	base
	ID            *ID
	SignatureNode *Signature
}

func (*TypeInstruction) Kind() Kind { return KindTypeInstruction }

// FuncImportDescr describes an imported function's type, either inline or
// by reference.
type FuncImportDescr struct {
	base
	ID            ID
	SignatureNode *Signature
	TypeRef       *TypeReference
}

func (*FuncImportDescr) Kind() Kind { return KindSignature } // shares the Func type-use shape

type ModuleImport struct {
	base
	Module string
	Name   string
	Descr  Node // *FuncImportDescr | *GlobalType | *Memory | *Table
}

func (*ModuleImport) Kind() Kind { return KindModuleImport }

// ExportDescr names the kind of thing exported and the index it resolves to.
type ExportDescr struct {
	ExportType string // "Func" | "Global" | "Memory" | "Table"
	ID         Index
}

type ModuleExport struct {
	base
	Name  string
	Descr ExportDescr
}

func (*ModuleExport) Kind() Kind { return KindModuleExport }

type Memory struct {
	base
	ID     ID
	Limits Limit
}

func (*Memory) Kind() Kind { return KindMemory }

type Table struct {
	base
	ElementType string // "anyfunc"
	Limits      Limit
	Name        ID
	ElemIndices []Index
}

func (*Table) Kind() Kind { return KindTable }

type Global struct {
	base
	GlobalTypeNode GlobalType
	Init           []Node // sequence of Instr evaluated to produce the initial value
	Name           ID
}

func (*Global) Kind() Kind { return KindGlobal }

type Data struct {
	base
	MemoryIndex Index
	Offset      Node // an Instr, e.g. i32.const
	Init        ByteArray
}

func (*Data) Kind() Kind { return KindData }

type Elem struct {
	base
	TableIndex Index
	Offset     []Node
	Funcs      []Index
}

func (*Elem) Kind() Kind { return KindElem }

type Start struct {
	base
	Index Index
}

func (*Start) Kind() Kind { return KindStart }

// ---- Modules & root ----

type Module struct {
	base
	ID     *ID
	Fields []Node // ModuleField: Func|ModuleImport|ModuleExport|Memory|Table|Global|Data|Elem|Start|TypeInstruction
}

func (*Module) Kind() Kind { return KindModule }

// BinaryModule carries an opaque (module binary "...") payload: a sequence
// of string chunks that encode a raw .wasm binary. Decoding that payload is
// out of scope for this module.
type BinaryModule struct {
	base
	ID   *ID
	Blob [][]byte
}

func (*BinaryModule) Kind() Kind { return KindBinaryModule }

// QuoteModule carries an opaque (module quote "...") payload: a sequence of
// string chunks holding WAT source text to be re-parsed by the caller.
type QuoteModule struct {
	base
	ID     *ID
	String [][]byte
}

func (*QuoteModule) Kind() Kind { return KindQuoteModule }

// Program is the parser's top-level result: an ordered sequence of
// top-level forms (normally a single Module, but (assert...) style WAST
// directives and leading comments are siblings in Body).
type Program struct {
	base
	Body []Node
}

func (*Program) Kind() Kind { return KindProgram }
