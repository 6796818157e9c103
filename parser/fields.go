package parser

import (
	"github.com/gowasm/wat/ast"
	"github.com/gowasm/wat/internal/token"
)

// parseFunc handles "(func ...)". A func carrying an inline "(import ...)"
// produces a ModuleImport instead of a Func, per the text format's
// shorthand-import convention; a func carrying one or more inline
// "(export ...)" forms returns them as buffered exports to be flushed
// immediately after the field itself.
func (p *parser) parseFunc(openLoc token.Loc) (ast.Node, []*ast.ModuleExport, error) {
	id := ast.ID{Generated: true}
	p.skipComments()
	if p.peek().Kind == token.Identifier {
		id = ast.ID{Raw: stripDollar(p.advance().Value)}
	} else {
		id = p.names.Next("func")
	}

	var exports []*ast.ModuleExport
	var importModule, importName string
	var hasImport bool

	for {
		p.skipComments()
		if p.peek().Kind != token.OpenParen {
			break
		}
		switch p.peekAt(1).Value {
		case "export":
			p.advance()
			p.advance()
			name, err := p.parseStringToken()
			if err != nil {
				return nil, nil, err
			}
			if _, err := p.expectKind(token.CloseParen); err != nil {
				return nil, nil, err
			}
			exports = append(exports, ast.NewModuleExport(nil, string(name), ast.ExportDescr{
				ExportType: "Func",
				ID:         ast.Index{Ident: ast.NewIdentifier(nil, id.Raw)},
			}))
			continue
		case "import":
			p.advance()
			p.advance()
			m, err := p.parseStringToken()
			if err != nil {
				return nil, nil, err
			}
			n, err := p.parseStringToken()
			if err != nil {
				return nil, nil, err
			}
			if _, err := p.expectKind(token.CloseParen); err != nil {
				return nil, nil, err
			}
			hasImport = true
			importModule, importName = string(m), string(n)
			continue
		}
		break
	}

	sig, typeRef, err := p.parseTypeUse()
	if err != nil {
		return nil, nil, err
	}

	if hasImport {
		if _, err := p.expectKind(token.CloseParen); err != nil {
			return nil, nil, err
		}
		descr := ast.NewFuncImportDescr(toLoc(openLoc), id, sig, typeRef)
		return ast.NewModuleImport(toLoc(openLoc), importModule, importName, descr), exports, nil
	}

	locals, err := p.parseLocalDecls()
	if err != nil {
		return nil, nil, err
	}

	body, err := p.parseInstrSeqUntilClose()
	if err != nil {
		return nil, nil, err
	}
	fn := ast.NewFunc(toLoc(openLoc), id, sig, typeRef, locals, body)
	return fn, exports, nil
}

// parseLocalDecls reads the run of "(local ...)" declarations between a
// function's type use and its first instruction. Each form contributes one
// named local ("(local $x i32)") or any number of anonymous ones
// ("(local i32 i64)"), indexed after the parameters and zero-initialized
// at call time.
func (p *parser) parseLocalDecls() ([]ast.Param, error) {
	var locals []ast.Param
	for {
		p.skipComments()
		if p.peek().Kind != token.OpenParen || p.peekAt(1).Value != "local" {
			break
		}
		p.advance()
		p.advance()
		ls, err := p.parseParamList()
		if err != nil {
			return nil, err
		}
		locals = append(locals, ls...)
		if _, err := p.expectKind(token.CloseParen); err != nil {
			return nil, err
		}
	}
	return locals, nil
}

func (p *parser) parseMemory(openLoc token.Loc) (ast.Node, []*ast.ModuleExport, error) {
	id := ast.ID{Generated: true}
	p.skipComments()
	if p.peek().Kind == token.Identifier {
		id = ast.ID{Raw: stripDollar(p.advance().Value)}
	} else {
		id = p.names.Next("memory")
	}

	var exports []*ast.ModuleExport
	var importModule, importName string
	hasImport := false

	p.skipComments()
	if p.peek().Kind == token.OpenParen && p.peekAt(1).Value == "export" {
		p.advance()
		p.advance()
		name, err := p.parseStringToken()
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.expectKind(token.CloseParen); err != nil {
			return nil, nil, err
		}
		exports = append(exports, ast.NewModuleExport(nil, string(name), ast.ExportDescr{
			ExportType: "Memory",
			ID:         ast.Index{Ident: ast.NewIdentifier(nil, id.Raw)},
		}))
	}

	p.skipComments()
	if p.peek().Kind == token.OpenParen && p.peekAt(1).Value == "import" {
		p.advance()
		p.advance()
		m, err := p.parseStringToken()
		if err != nil {
			return nil, nil, err
		}
		n, err := p.parseStringToken()
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.expectKind(token.CloseParen); err != nil {
			return nil, nil, err
		}
		hasImport, importModule, importName = true, string(m), string(n)
	}

	// Shorthand: (memory $m (data "bytes")) sets limits.min to the
	// byte-string length, per the spec; otherwise read an explicit Limit.
	var limit ast.Limit
	p.skipComments()
	if p.peek().Kind == token.OpenParen && p.peekAt(1).Value == "data" {
		p.advance()
		p.advance()
		bytes, err := p.parseStringToken()
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.expectKind(token.CloseParen); err != nil {
			return nil, nil, err
		}
		n := uint32(len(bytes))
		limit = *ast.NewLimit(nil, n, &n)
	} else {
		l, err := p.parseLimit()
		if err != nil {
			return nil, nil, err
		}
		limit = l
	}

	if _, err := p.expectKind(token.CloseParen); err != nil {
		return nil, nil, err
	}

	if hasImport {
		descr := ast.NewMemory(toLoc(openLoc), id, limit)
		return ast.NewModuleImport(toLoc(openLoc), importModule, importName, descr), exports, nil
	}
	return ast.NewMemory(toLoc(openLoc), id, limit), exports, nil
}

func (p *parser) parseTable(openLoc token.Loc) (ast.Node, []*ast.ModuleExport, error) {
	id := ast.ID{Generated: true}
	p.skipComments()
	if p.peek().Kind == token.Identifier {
		id = ast.ID{Raw: stripDollar(p.advance().Value)}
	} else {
		id = p.names.Next("table")
	}

	var exports []*ast.ModuleExport
	p.skipComments()
	if p.peek().Kind == token.OpenParen && p.peekAt(1).Value == "export" {
		p.advance()
		p.advance()
		name, err := p.parseStringToken()
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.expectKind(token.CloseParen); err != nil {
			return nil, nil, err
		}
		exports = append(exports, ast.NewModuleExport(nil, string(name), ast.ExportDescr{
			ExportType: "Table",
			ID:         ast.Index{Ident: ast.NewIdentifier(nil, id.Raw)},
		}))
	}

	var elementType string = "anyfunc"
	var elemIndices []ast.Index
	var limit ast.Limit

	p.skipComments()
	if p.peek().Kind == token.OpenParen && p.peekAt(1).Value == "elem" {
		p.advance()
		p.advance()
		for {
			p.skipComments()
			if p.peek().Kind == token.CloseParen {
				p.advance()
				break
			}
			idx, err := p.parseIndex()
			if err != nil {
				return nil, nil, err
			}
			elemIndices = append(elemIndices, idx)
		}
		n := uint32(len(elemIndices))
		limit = *ast.NewLimit(nil, n, &n)
	} else {
		if p.peek().Kind == token.Name {
			elementType = p.advance().Value
		}
		l, err := p.parseLimit()
		if err != nil {
			return nil, nil, err
		}
		limit = l
	}

	if _, err := p.expectKind(token.CloseParen); err != nil {
		return nil, nil, err
	}
	return ast.NewTable(toLoc(openLoc), elementType, limit, id, elemIndices), exports, nil
}

func (p *parser) parseGlobal(openLoc token.Loc) (ast.Node, []*ast.ModuleExport, error) {
	id := ast.ID{Generated: true}
	p.skipComments()
	if p.peek().Kind == token.Identifier {
		id = ast.ID{Raw: stripDollar(p.advance().Value)}
	} else {
		id = p.names.Next("global")
	}

	var exports []*ast.ModuleExport
	p.skipComments()
	if p.peek().Kind == token.OpenParen && p.peekAt(1).Value == "export" {
		p.advance()
		p.advance()
		name, err := p.parseStringToken()
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.expectKind(token.CloseParen); err != nil {
			return nil, nil, err
		}
		exports = append(exports, ast.NewModuleExport(nil, string(name), ast.ExportDescr{
			ExportType: "Global",
			ID:         ast.Index{Ident: ast.NewIdentifier(nil, id.Raw)},
		}))
	}

	var importModule, importName string
	hasImport := false
	p.skipComments()
	if p.peek().Kind == token.OpenParen && p.peekAt(1).Value == "import" {
		p.advance()
		p.advance()
		m, err := p.parseStringToken()
		if err != nil {
			return nil, nil, err
		}
		n, err := p.parseStringToken()
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.expectKind(token.CloseParen); err != nil {
			return nil, nil, err
		}
		hasImport, importModule, importName = true, string(m), string(n)
	}

	gt, err := p.parseGlobalType()
	if err != nil {
		return nil, nil, err
	}

	if hasImport {
		if _, err := p.expectKind(token.CloseParen); err != nil {
			return nil, nil, err
		}
		return ast.NewModuleImport(toLoc(openLoc), importModule, importName, &gt), exports, nil
	}

	init, err := p.parseInstrSeqUntilClose()
	if err != nil {
		return nil, nil, err
	}
	return ast.NewGlobal(toLoc(openLoc), gt, init, id), exports, nil
}

func (p *parser) parseImport(openLoc token.Loc) (*ast.ModuleImport, error) {
	m, err := p.parseStringToken()
	if err != nil {
		return nil, err
	}
	n, err := p.parseStringToken()
	if err != nil {
		return nil, err
	}
	open, err := p.expectKind(token.OpenParen)
	if err != nil {
		return nil, err
	}
	kw, err := p.expectKind(token.Keyword)
	if err != nil {
		return nil, err
	}

	var descr ast.Node
	switch kw.Value {
	case "func":
		id := ast.ID{Generated: true}
		p.skipComments()
		if p.peek().Kind == token.Identifier {
			id = ast.ID{Raw: stripDollar(p.advance().Value)}
		} else {
			id = p.names.Next("func")
		}
		sig, typeRef, err := p.parseTypeUse()
		if err != nil {
			return nil, err
		}
		descr = ast.NewFuncImportDescr(toLoc(open.Loc), id, sig, typeRef)
	case "memory":
		id := ast.ID{Generated: true}
		p.skipComments()
		if p.peek().Kind == token.Identifier {
			id = ast.ID{Raw: stripDollar(p.advance().Value)}
		} else {
			id = p.names.Next("memory")
		}
		l, err := p.parseLimit()
		if err != nil {
			return nil, err
		}
		descr = ast.NewMemory(toLoc(open.Loc), id, l)
	case "table":
		id := ast.ID{Generated: true}
		p.skipComments()
		if p.peek().Kind == token.Identifier {
			id = ast.ID{Raw: stripDollar(p.advance().Value)}
		} else {
			id = p.names.Next("table")
		}
		elementType := "anyfunc"
		if p.peek().Kind == token.Name {
			elementType = p.advance().Value
		}
		l, err := p.parseLimit()
		if err != nil {
			return nil, err
		}
		descr = ast.NewTable(toLoc(open.Loc), elementType, l, id, nil)
	case "global":
		gt, err := p.parseGlobalType()
		if err != nil {
			return nil, err
		}
		descr = &gt
	default:
		return nil, p.errf(kw.Loc, "unknown import descriptor %q", kw.Value)
	}

	if _, err := p.expectKind(token.CloseParen); err != nil {
		return nil, err
	}
	if _, err := p.expectKind(token.CloseParen); err != nil {
		return nil, err
	}
	return ast.NewModuleImport(toLoc(openLoc), string(m), string(n), descr), nil
}

func (p *parser) parseExport(openLoc token.Loc) (*ast.ModuleExport, error) {
	name, err := p.parseStringToken()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKind(token.OpenParen); err != nil {
		return nil, err
	}
	kw, err := p.expectKind(token.Keyword)
	if err != nil {
		return nil, err
	}
	var exportType string
	switch kw.Value {
	case "func":
		exportType = "Func"
	case "global":
		exportType = "Global"
	case "memory":
		exportType = "Memory"
	case "table":
		exportType = "Table"
	default:
		return nil, p.errf(kw.Loc, "unknown export descriptor %q", kw.Value)
	}
	idx, err := p.parseIndex()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKind(token.CloseParen); err != nil {
		return nil, err
	}
	if _, err := p.expectKind(token.CloseParen); err != nil {
		return nil, err
	}
	return ast.NewModuleExport(toLoc(openLoc), string(name), ast.ExportDescr{ExportType: exportType, ID: idx}), nil
}

// parseOffsetExpr reads either "(offset <instr>)" or a bare folded
// instruction directly, both of which the text format accepts as a data/elem
// segment's offset.
func (p *parser) parseOffsetExpr() (ast.Node, error) {
	open, err := p.expectKind(token.OpenParen)
	if err != nil {
		return nil, err
	}
	p.skipComments()
	if p.peek().Kind == token.Keyword && p.peek().Value == "offset" {
		p.advance()
		instr, err := p.parseNestedFoldedOperand()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKind(token.CloseParen); err != nil {
			return nil, err
		}
		return instr, nil
	}
	return p.parseFoldedInstrFrom(open.Loc)
}

func (p *parser) parseData(openLoc token.Loc) (*ast.Data, error) {
	memIdx := ast.Index{Num: ast.NewIndexLiteral(nil, 0)}
	p.skipComments()
	if p.peek().Kind == token.OpenParen && p.peekAt(1).Value == "memory" {
		p.advance()
		p.advance()
		idx, err := p.parseIndex()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKind(token.CloseParen); err != nil {
			return nil, err
		}
		memIdx = idx
	} else if p.peek().Kind == token.Identifier || p.peek().Kind == token.Number {
		idx, err := p.parseIndex()
		if err != nil {
			return nil, err
		}
		memIdx = idx
	}

	offset, err := p.parseOffsetExpr()
	if err != nil {
		return nil, err
	}

	var all []byte
	for {
		p.skipComments()
		if p.peek().Kind != token.String {
			break
		}
		b, err := p.parseStringToken()
		if err != nil {
			return nil, err
		}
		all = append(all, b...)
	}
	if _, err := p.expectKind(token.CloseParen); err != nil {
		return nil, err
	}
	return ast.NewData(toLoc(openLoc), memIdx, offset, *ast.NewByteArray(nil, all)), nil
}

func (p *parser) parseElem(openLoc token.Loc) (*ast.Elem, error) {
	tableIdx := ast.Index{Num: ast.NewIndexLiteral(nil, 0)}
	p.skipComments()
	if p.peek().Kind == token.Identifier || p.peek().Kind == token.Number {
		idx, err := p.parseIndex()
		if err != nil {
			return nil, err
		}
		tableIdx = idx
	}

	offsetNode, err := p.parseOffsetExpr()
	if err != nil {
		return nil, err
	}

	var funcs []ast.Index
	for {
		p.skipComments()
		if p.peek().Kind == token.CloseParen {
			p.advance()
			break
		}
		idx, err := p.parseIndex()
		if err != nil {
			return nil, err
		}
		funcs = append(funcs, idx)
	}
	return ast.NewElem(toLoc(openLoc), tableIdx, []ast.Node{offsetNode}, funcs), nil
}
