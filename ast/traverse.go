package ast

// Path is passed to every visitor callback. Node is the node currently
// being visited; Remove, when called from within a visitor, splices the
// node out of its parent's child sequence at once. The node's own children
// are still walked afterwards.
type Path struct {
	Node   Node
	parent *Node // address of the slice slot holding this node, nil at the root
	remove func()
}

// Remove detaches Node from its parent sequence. It is a no-op at the root,
// since Program has no parent to remove it from.
func (p *Path) Remove() {
	if p.remove != nil {
		p.remove()
	}
}

// VisitFunc is called once per matching node during traversal.
type VisitFunc func(p *Path) error

// Visitors maps a Kind to the callback invoked for nodes of that kind. A
// zero-value Visitors performs a traversal with no side effects, useful for
// tests that only want the walk order.
type Visitors map[Kind]VisitFunc

// Traverse performs a depth-first, pre-order walk of node and its
// descendants, invoking any visitor registered for each node's Kind. It
// stops and returns the first error produced by a visitor.
func Traverse(node Node, visitors Visitors) error {
	return traverse(node, visitors, nil)
}

func traverse(node Node, visitors Visitors, remove func()) error {
	if node == nil {
		return nil
	}
	if fn, ok := visitors[node.Kind()]; ok {
		if err := fn(&Path{Node: node, remove: remove}); err != nil {
			return err
		}
	}

	children, setAt := childSlices(node)
	for _, seq := range children {
		for i := 0; i < len(*seq); i++ {
			child := (*seq)[i]
			idx := i
			s := seq
			before := len(*s)
			if err := traverse(child, visitors, func() { removeAt(s, idx) }); err != nil {
				return err
			}
			// The visitor removed this slot; the next sibling shifted into it.
			if len(*s) < before {
				i--
			}
		}
	}
	for _, single := range setAt {
		if single == nil {
			continue
		}
		if err := traverse(single, visitors, nil); err != nil {
			return err
		}
	}
	return nil
}

func removeAt(seq *[]Node, idx int) {
	s := *seq
	if idx < 0 || idx >= len(s) {
		return
	}
	*seq = append(s[:idx], s[idx+1:]...)
}

// childSlices returns, for a given node, every []Node sequence field that
// should be recursed into (so removal can splice the right slice) and every
// single-Node field. Single-Node fields are traversed read-only: Path.Remove
// is a no-op for them, since splicing a single struct field out of its
// parent isn't a sequence operation.
func childSlices(node Node) (seqs []*[]Node, singles []Node) {
	switch n := node.(type) {
	case *Program:
		seqs = append(seqs, &n.Body)
	case *Module:
		seqs = append(seqs, &n.Fields)
	case *Func:
		seqs = append(seqs, &n.Body)
	case *BlockInstruction:
		seqs = append(seqs, &n.Instr)
	case *LoopInstruction:
		seqs = append(seqs, &n.Instr)
	case *IfInstruction:
		seqs = append(seqs, &n.Test, &n.Consequent, &n.Alternate)
	case *Instr:
		seqs = append(seqs, &n.Args)
	case *CallInstruction:
		seqs = append(seqs, &n.InstrArgs)
	case *CallIndirectInstruction:
		seqs = append(seqs, &n.InstrArgs)
	case *Global:
		seqs = append(seqs, &n.Init)
	case *Elem:
		seqs = append(seqs, &n.Offset)
	case *ModuleImport:
		if n.Descr != nil {
			singles = append(singles, n.Descr)
		}
	case *Data:
		if n.Offset != nil {
			singles = append(singles, n.Offset)
		}
	}
	return seqs, singles
}
