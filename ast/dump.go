package ast

import (
	"fmt"

	"github.com/xlab/treeprint"
)

// Dump renders node and its descendants as a human-readable tree, used by
// tests and the CLI's debug output. It is not the text-format printer
// (round-tripping to WAT source is a separate, out-of-scope concern) — just
// a structural view of the parsed AST.
func Dump(node Node) string {
	tree := treeprint.New()
	dumpInto(tree, node)
	return tree.String()
}

func dumpInto(tree treeprint.Tree, node Node) {
	if node == nil {
		tree.AddNode("<nil>")
		return
	}
	switch n := node.(type) {
	case *Program:
		branch := tree.AddBranch("Program")
		for _, c := range n.Body {
			dumpInto(branch, c)
		}
	case *Module:
		branch := tree.AddBranch(fmt.Sprintf("Module %s", idLabel(n.ID)))
		for _, f := range n.Fields {
			dumpInto(branch, f)
		}
	case *BinaryModule:
		tree.AddNode(fmt.Sprintf("BinaryModule %s (%d chunks)", idLabel(n.ID), len(n.Blob)))
	case *QuoteModule:
		tree.AddNode(fmt.Sprintf("QuoteModule %s (%d chunks)", idLabel(n.ID), len(n.String)))
	case *Func:
		branch := tree.AddBranch(fmt.Sprintf("Func %s", n.ID))
		if n.SignatureNode != nil {
			dumpInto(branch, n.SignatureNode)
		}
		for _, i := range n.Body {
			dumpInto(branch, i)
		}
	case *Signature:
		tree.AddNode(fmt.Sprintf("Signature params=%v results=%v", n.Params, n.Results))
	case *Instr:
		label := n.ID
		if n.Object != "" {
			label = n.Object + "." + n.ID
		}
		if len(n.Args) == 0 {
			tree.AddNode(fmt.Sprintf("Instr %s", label))
			return
		}
		branch := tree.AddBranch(fmt.Sprintf("Instr %s", label))
		for _, a := range n.Args {
			dumpInto(branch, a)
		}
	case *BlockInstruction:
		branch := tree.AddBranch(fmt.Sprintf("block %s", n.Label))
		for _, i := range n.Instr {
			dumpInto(branch, i)
		}
	case *LoopInstruction:
		branch := tree.AddBranch(fmt.Sprintf("loop %s", n.Label))
		for _, i := range n.Instr {
			dumpInto(branch, i)
		}
	case *IfInstruction:
		branch := tree.AddBranch(fmt.Sprintf("if %s", n.Label))
		test := branch.AddBranch("test")
		for _, i := range n.Test {
			dumpInto(test, i)
		}
		then := branch.AddBranch("then")
		for _, i := range n.Consequent {
			dumpInto(then, i)
		}
		if len(n.Alternate) > 0 {
			els := branch.AddBranch("else")
			for _, i := range n.Alternate {
				dumpInto(els, i)
			}
		}
	case *CallInstruction:
		tree.AddNode(fmt.Sprintf("call %s", indexLabel(n.Index)))
	case *CallIndirectInstruction:
		tree.AddNode("call_indirect")
	case *ModuleImport:
		tree.AddNode(fmt.Sprintf("import %q %q", n.Module, n.Name))
	case *ModuleExport:
		tree.AddNode(fmt.Sprintf("export %q -> %s %s", n.Name, n.Descr.ExportType, indexLabel(n.Descr.ID)))
	case *Memory:
		tree.AddNode(fmt.Sprintf("memory %s min=%d", n.ID, n.Limits.Min))
	case *Table:
		tree.AddNode(fmt.Sprintf("table %s", n.Name))
	case *Global:
		tree.AddNode(fmt.Sprintf("global %s %s", n.Name, n.GlobalTypeNode.Valtype))
	case *Data:
		tree.AddNode(fmt.Sprintf("data len=%d", len(n.Init.Values)))
	case *Elem:
		tree.AddNode(fmt.Sprintf("elem %d funcs", len(n.Funcs)))
	case *Start:
		tree.AddNode(fmt.Sprintf("start %s", indexLabel(n.Index)))
	case *Identifier:
		tree.AddNode(fmt.Sprintf("Identifier %q", n.Value))
	case *NumberLiteral:
		tree.AddNode(fmt.Sprintf("NumberLiteral %s %v", n.Type, n.Val))
	default:
		tree.AddNode(fmt.Sprintf("%s", node.Kind()))
	}
}

func idLabel(id *ID) string {
	if id == nil {
		return "$<none>"
	}
	return id.String()
}

func indexLabel(i Index) string {
	if i.Ident != nil {
		return i.Ident.Value
	}
	if i.Num != nil {
		return fmt.Sprintf("%d", i.Num.Value)
	}
	return "<unresolved>"
}
