package parser

import (
	"github.com/gowasm/wat/ast"
	"github.com/gowasm/wat/internal/token"
	"github.com/gowasm/wat/values"
)

// operandKind classifies a positional operand slot in the opcode signature
// table: a literal of the instruction's own valtype, an index reference, or
// an open-ended run of index references (br_table's label vector).
type operandKind int

const (
	opSelf operandKind = iota
	opIndex
	opVector
	// opExpr is an optional trailing folded expression: present only in
	// folded form, and only when another operand follows the index before
	// the closing paren. set_local/tee_local/set_global use it for the
	// "(set_local $x (i32.const 5))" value shorthand, br for its carried
	// value, br_if for its condition.
	opExpr
)

// noObjectSig covers instructions with no object/valtype prefix that still
// take a fixed positional operand, per the spec's opcode signature table.
var noObjectSig = map[string][]operandKind{
	"get_local":  {opIndex},
	"set_local":  {opIndex, opExpr},
	"tee_local":  {opIndex, opExpr},
	"get_global": {opIndex},
	"set_global": {opIndex, opExpr},
	"br":         {opIndex, opExpr},
	"br_if":      {opIndex, opExpr},
	"br_table":   {opVector},
}

// objectSig covers object-qualified instructions (i32.const, f64.const, ...)
// whose sole operand is a literal of their own type.
var objectSig = map[string][]operandKind{
	"const": {opSelf},
}

func lookupSignature(object, name string) []operandKind {
	if object == "" {
		return noObjectSig[name]
	}
	return objectSig[name]
}

// parseInstrSeqUntilClose parses a sequence of instructions until the next
// CloseParen, which it consumes — the shape shared by function bodies,
// block/loop bodies, and global initializers.
func (p *parser) parseInstrSeqUntilClose() ([]ast.Node, error) {
	var out []ast.Node
	for {
		p.skipComments()
		if p.peek().Kind == token.CloseParen {
			p.advance()
			break
		}
		if p.eof() {
			return nil, p.errf(p.peek().Loc, "unterminated instruction sequence")
		}
		n, err := p.parseInstr()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// parseInstr reads one instruction, in either folded "(op ...)" or plain
// "op ..." form.
func (p *parser) parseInstr() (ast.Node, error) {
	p.skipComments()
	t := p.peek()
	switch t.Kind {
	case token.OpenParen:
		open := p.advance()
		return p.parseFoldedInstrFrom(open.Loc)
	case token.Valtype:
		p.advance()
		if _, err := p.expectKind(token.Dot); err != nil {
			return nil, err
		}
		nameTok, err := p.expectKind(token.Name)
		if err != nil {
			return nil, err
		}
		return p.finishInstr(toLoc(t.Loc), t.Value, nameTok.Value, false)
	case token.Name:
		p.advance()
		switch t.Value {
		case "call":
			return p.parseCallBody(t.Loc, false)
		case "call_indirect":
			return p.parseCallIndirectBody(t.Loc, false)
		default:
			return p.finishInstr(toLoc(t.Loc), "", t.Value, false)
		}
	case token.Keyword:
		// "memory" is a dispatch keyword at the module-field level but also
		// a valid instruction object prefix (memory.size, memory.grow).
		if t.Value == "memory" && p.peekAt(1).Kind == token.Dot {
			p.advance()
			p.advance() // '.'
			nameTok, err := p.expectKind(token.Name)
			if err != nil {
				return nil, err
			}
			return p.finishInstr(toLoc(t.Loc), t.Value, nameTok.Value, false)
		}
		return nil, p.errf(t.Loc, "expected an instruction, got %s %q", t.Kind, t.Value)
	default:
		return nil, p.errf(t.Loc, "expected an instruction, got %s %q", t.Kind, t.Value)
	}
}

// parseFoldedInstrFrom parses the body of a "(...)" instruction form whose
// opening paren has already been consumed (openLoc is its location) and
// consumes the matching close paren before returning.
func (p *parser) parseFoldedInstrFrom(openLoc token.Loc) (ast.Node, error) {
	p.skipComments()
	kw := p.peek()
	if kw.Kind == token.Keyword {
		switch kw.Value {
		case "block":
			p.advance()
			return p.parseBlockBody(openLoc)
		case "loop":
			p.advance()
			return p.parseLoopBody(openLoc)
		case "if":
			p.advance()
			return p.parseIfBody(openLoc)
		case "memory":
			if p.peekAt(1).Kind == token.Dot {
				p.advance()
				p.advance() // '.'
				nameTok, err := p.expectKind(token.Name)
				if err != nil {
					return nil, err
				}
				return p.finishInstr(toLoc(openLoc), kw.Value, nameTok.Value, true)
			}
		}
	}
	if kw.Kind == token.Valtype {
		p.advance()
		if _, err := p.expectKind(token.Dot); err != nil {
			return nil, err
		}
		nameTok, err := p.expectKind(token.Name)
		if err != nil {
			return nil, err
		}
		return p.finishInstr(toLoc(openLoc), kw.Value, nameTok.Value, true)
	}
	if kw.Kind == token.Name {
		p.advance()
		switch kw.Value {
		case "call":
			return p.parseCallBody(openLoc, true)
		case "call_indirect":
			return p.parseCallIndirectBody(openLoc, true)
		default:
			return p.finishInstr(toLoc(openLoc), "", kw.Value, true)
		}
	}
	return nil, p.errf(kw.Loc, "expected an instruction, got %s %q", kw.Kind, kw.Value)
}

// parseNestedFoldedOperand parses a single parenthesized operand expression
// — used for folded instruction arguments and call/call_indirect operands.
func (p *parser) parseNestedFoldedOperand() (ast.Node, error) {
	open, err := p.expectKind(token.OpenParen)
	if err != nil {
		return nil, err
	}
	return p.parseFoldedInstrFrom(open.Loc)
}

// parseNamedArgs collects leading "key=value" pairs (offset=4, align=2, ...)
// ahead of any positional operands.
func (p *parser) parseNamedArgs() (map[string]*ast.NumberLiteral, error) {
	var named map[string]*ast.NumberLiteral
	for {
		p.skipComments()
		key := p.peek()
		if key.Kind != token.Keyword && key.Kind != token.Name {
			break
		}
		if p.peekAt(1).Kind != token.Equal {
			break
		}
		p.advance() // key
		p.advance() // '='
		valTok, err := p.expectKind(token.Number)
		if err != nil {
			return nil, err
		}
		v, err := ast.DecodeInt(valTok.Value, 32)
		if err != nil {
			return nil, p.errf(valTok.Loc, "%s", err)
		}
		if named == nil {
			named = map[string]*ast.NumberLiteral{}
		}
		named[key.Value] = ast.NewNumberLiteral(toLoc(valTok.Loc), valTok.Value, values.I32, v)
	}
	return named, nil
}

// finishInstr parses named args then the signature-driven positional
// operands for a plain Instr, consuming the matching close paren when
// folded is true.
func (p *parser) finishInstr(loc *ast.Loc, object, name string, folded bool) (*ast.Instr, error) {
	named, err := p.parseNamedArgs()
	if err != nil {
		return nil, err
	}
	sig := lookupSignature(object, name)
	args, err := p.parseOperands(sig, object, folded)
	if err != nil {
		return nil, err
	}
	if folded {
		if _, err := p.expectKind(token.CloseParen); err != nil {
			return nil, err
		}
	}
	return ast.NewInstr(loc, name, object, args, named), nil
}

func (p *parser) parseOperands(sig []operandKind, object string, folded bool) ([]ast.Node, error) {
	if sig == nil {
		// Unknown (object, name): no arity is known. In folded form operands
		// are delimited by the closing paren, so read until we hit it; in
		// plain form we treat the instruction as stack-only, matching every
		// binary/unary/comparison op in the supported set.
		if !folded {
			return nil, nil
		}
		var args []ast.Node
		for {
			p.skipComments()
			if p.peek().Kind == token.CloseParen {
				break
			}
			n, err := p.parseDefaultOperand()
			if err != nil {
				return nil, err
			}
			args = append(args, n)
		}
		return args, nil
	}

	var args []ast.Node
	for _, kind := range sig {
		switch kind {
		case opSelf:
			n, err := p.parseSelfOperand(object)
			if err != nil {
				return nil, err
			}
			args = append(args, n)
		case opIndex:
			n, err := p.parseIndexOperand()
			if err != nil {
				return nil, err
			}
			args = append(args, n)
		case opVector:
			for {
				p.skipComments()
				if folded && p.peek().Kind == token.CloseParen {
					break
				}
				if !folded && p.peek().Kind != token.Number && p.peek().Kind != token.Identifier {
					break
				}
				n, err := p.parseIndexOperand()
				if err != nil {
					return nil, err
				}
				args = append(args, n)
			}
		case opExpr:
			if !folded {
				continue
			}
			p.skipComments()
			if p.peek().Kind == token.CloseParen {
				continue
			}
			n, err := p.parseNestedFoldedOperand()
			if err != nil {
				return nil, err
			}
			args = append(args, n)
		}
	}
	return args, nil
}

func (p *parser) parseSelfOperand(object string) (ast.Node, error) {
	p.skipComments()
	if p.peek().Kind == token.OpenParen {
		return p.parseNestedFoldedOperand()
	}
	t, err := p.expectKind(token.Number)
	if err != nil {
		return nil, err
	}
	vt, ok := values.ParseType(object)
	if !ok {
		return nil, p.errf(t.Loc, "const operand on unknown valtype %q", object)
	}
	var val float64
	switch vt {
	case values.I32:
		val, err = ast.DecodeInt(t.Value, 32)
	case values.I64:
		val, err = ast.DecodeInt(t.Value, 64)
	case values.F32:
		val, err = ast.DecodeFloat(t.Value, 32)
	case values.F64:
		val, err = ast.DecodeFloat(t.Value, 64)
	}
	if err != nil {
		return nil, p.errf(t.Loc, "%s", err)
	}
	return ast.NewNumberLiteral(toLoc(t.Loc), t.Value, vt, val), nil
}

func (p *parser) parseIndexOperand() (ast.Node, error) {
	p.skipComments()
	if p.peek().Kind == token.OpenParen {
		return p.parseNestedFoldedOperand()
	}
	idx, err := p.parseIndex()
	if err != nil {
		return nil, err
	}
	return indexArgNode(idx), nil
}

// parseDefaultOperand types an operand of an unrecognized (object, name) pair
// as f64, per the signature table's fallback rule.
func (p *parser) parseDefaultOperand() (ast.Node, error) {
	p.skipComments()
	t := p.peek()
	switch t.Kind {
	case token.OpenParen:
		return p.parseNestedFoldedOperand()
	case token.Number:
		p.advance()
		v, err := ast.DecodeFloat(t.Value, 64)
		if err != nil {
			return nil, p.errf(t.Loc, "%s", err)
		}
		return ast.NewNumberLiteral(toLoc(t.Loc), t.Value, values.F64, v), nil
	case token.Identifier:
		p.advance()
		return ast.NewIdentifier(toLoc(t.Loc), stripDollar(t.Value)), nil
	default:
		return nil, p.errf(t.Loc, "expected an operand, got %s %q", t.Kind, t.Value)
	}
}

func (p *parser) parseCallBody(loc token.Loc, folded bool) (*ast.CallInstruction, error) {
	idx, err := p.parseIndex()
	if err != nil {
		return nil, err
	}
	var args []ast.Node
	if folded {
		for {
			p.skipComments()
			if p.peek().Kind == token.CloseParen {
				p.advance()
				break
			}
			n, err := p.parseNestedFoldedOperand()
			if err != nil {
				return nil, err
			}
			args = append(args, n)
		}
	}
	return ast.NewCallInstruction(toLoc(loc), idx, args), nil
}

func (p *parser) parseCallIndirectBody(loc token.Loc, folded bool) (*ast.CallIndirectInstruction, error) {
	sig, typeRef, err := p.parseTypeUse()
	if err != nil {
		return nil, err
	}
	var args []ast.Node
	if folded {
		for {
			p.skipComments()
			if p.peek().Kind == token.CloseParen {
				p.advance()
				break
			}
			n, err := p.parseNestedFoldedOperand()
			if err != nil {
				return nil, err
			}
			args = append(args, n)
		}
	}
	return ast.NewCallIndirectInstruction(toLoc(loc), sig, typeRef, args), nil
}

func (p *parser) parseBlockBody(openLoc token.Loc) (*ast.BlockInstruction, error) {
	label := p.names.Next("block")
	p.skipComments()
	if p.peek().Kind == token.Identifier {
		label = ast.ID{Raw: stripDollar(p.advance().Value)}
	}
	var result *values.Type
	p.skipComments()
	if p.peek().Kind == token.OpenParen && p.peekAt(1).Value == "result" {
		p.advance()
		p.advance()
		vt, err := p.parseValtype()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKind(token.CloseParen); err != nil {
			return nil, err
		}
		result = &vt
	}
	body, err := p.parseInstrSeqUntilClose()
	if err != nil {
		return nil, err
	}
	return ast.NewBlockInstruction(toLoc(openLoc), label, body, result), nil
}

func (p *parser) parseLoopBody(openLoc token.Loc) (*ast.LoopInstruction, error) {
	label := p.names.Next("loop")
	p.skipComments()
	if p.peek().Kind == token.Identifier {
		label = ast.ID{Raw: stripDollar(p.advance().Value)}
	}
	var result *values.Type
	p.skipComments()
	if p.peek().Kind == token.OpenParen && p.peekAt(1).Value == "result" {
		p.advance()
		p.advance()
		vt, err := p.parseValtype()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKind(token.CloseParen); err != nil {
			return nil, err
		}
		result = &vt
	}
	body, err := p.parseInstrSeqUntilClose()
	if err != nil {
		return nil, err
	}
	return ast.NewLoopInstruction(toLoc(openLoc), label, body, result), nil
}

func (p *parser) parseIfBody(openLoc token.Loc) (*ast.IfInstruction, error) {
	label := p.names.Next("if")
	p.skipComments()
	if p.peek().Kind == token.Identifier {
		label = ast.ID{Raw: stripDollar(p.advance().Value)}
	}
	var result *values.Type
	p.skipComments()
	if p.peek().Kind == token.OpenParen && p.peekAt(1).Value == "result" {
		p.advance()
		p.advance()
		vt, err := p.parseValtype()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKind(token.CloseParen); err != nil {
			return nil, err
		}
		result = &vt
	}

	var test []ast.Node
	for {
		p.skipComments()
		if p.peek().Kind == token.OpenParen && p.peekAt(1).Value == "then" {
			break
		}
		if p.peek().Kind != token.OpenParen {
			return nil, p.errf(p.peek().Loc, "expected a folded test expression or (then ...)")
		}
		open := p.advance()
		n, err := p.parseFoldedInstrFrom(open.Loc)
		if err != nil {
			return nil, err
		}
		test = append(test, n)
	}

	p.advance() // '('
	p.advance() // 'then'
	consequent, err := p.parseInstrSeqUntilClose()
	if err != nil {
		return nil, err
	}

	var alternate []ast.Node
	p.skipComments()
	if p.peek().Kind == token.OpenParen && p.peekAt(1).Value == "else" {
		p.advance()
		p.advance()
		alternate, err = p.parseInstrSeqUntilClose()
		if err != nil {
			return nil, err
		}
	}

	if _, err := p.expectKind(token.CloseParen); err != nil {
		return nil, err
	}
	return ast.NewIfInstruction(toLoc(openLoc), label, test, result, consequent, alternate), nil
}
