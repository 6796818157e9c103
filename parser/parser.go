// Package parser implements the recursive-descent WAT/WAST text-format
// parser: a pre-tokenized stream in, a Program AST out. Module fields are
// dispatched from parseModuleField and instructions from parseInstr, with
// one recursive-descent routine per form of the text format's grammar.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gowasm/wat/ast"
	"github.com/gowasm/wat/internal/token"
	"github.com/gowasm/wat/values"
)

// Option configures a parse. The zero Options value is the default
// configuration, matching the functional-options/clone pattern used
// elsewhere in this module's ambient stack.
type Option func(*Options)

type Options struct {
	KeepComments bool
}

func (o Options) clone() Options { return o }

// WithComments makes the parser retain comment tokens at the Program root
// (line comments as LeadingComment nodes, block comments as BlockComment
// nodes) instead of discarding them. Off by default:
// most callers only want the semantic tree.
func WithComments(keep bool) Option {
	return func(o *Options) { o.KeepComments = keep }
}

// Parse consumes tokens (as produced by internal/token.Lex) and the
// original source (for diagnostic code frames) and returns the Program
// they describe. source is never mutated; it's retained only for error
// reporting.
func Parse(tokens []token.Token, source []byte, opts ...Option) (*ast.Program, error) {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	p := &parser{toks: tokens, source: source, opts: o, names: ast.NewNameGenerator()}
	return p.parseProgram()
}

type parser struct {
	toks   []token.Token
	pos    int
	source []byte
	opts   Options
	names  *ast.NameGenerator
}

func (p *parser) errf(loc token.Loc, format string, args ...any) error {
	return newParseError(p.source, loc, format, args...)
}

func (p *parser) eof() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() token.Token {
	if p.eof() {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *parser) peekAt(off int) token.Token {
	i := p.pos + off
	if i < 0 || i >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[i]
}

func (p *parser) advance() token.Token {
	t := p.peek()
	if !p.eof() {
		p.pos++
	}
	return t
}

// skipComments drops any run of Comment tokens at the cursor, since they
// never participate in grammar decisions.
func (p *parser) skipComments() {
	for !p.eof() && p.peek().Kind == token.Comment {
		p.advance()
	}
}

func (p *parser) expectKind(k token.Kind) (token.Token, error) {
	p.skipComments()
	t := p.peek()
	if t.Kind != k {
		return t, p.errf(t.Loc, "expected %s, got %s %q", k, t.Kind, t.Value)
	}
	return p.advance(), nil
}

func toLoc(l token.Loc) *ast.Loc {
	return &ast.Loc{
		Start: ast.Position{Line: l.Start.Line, Col: l.Start.Col},
		End:   ast.Position{Line: l.End.Line, Col: l.End.Col},
	}
}

func stripDollar(v string) string { return strings.TrimPrefix(v, "$") }

// parseProgram is the top level: a sequence of top-level forms — (module
// ...) forms, bare module fields, folded instructions — and leading
// comments, consumed until the token stream is exhausted.
func (p *parser) parseProgram() (*ast.Program, error) {
	var body []ast.Node
	for {
		if p.opts.KeepComments {
			p.collectComments(&body)
		} else {
			p.skipComments()
		}
		if p.eof() {
			break
		}
		nodes, err := p.parseTopLevelForm()
		if err != nil {
			return nil, err
		}
		body = append(body, nodes...)
	}
	return ast.NewProgram(nil, body), nil
}

// collectComments retains a run of comment tokens as LeadingComment/
// BlockComment nodes instead of discarding them, when WithComments is on.
func (p *parser) collectComments(body *[]ast.Node) {
	for !p.eof() && p.peek().Kind == token.Comment {
		t := p.advance()
		if strings.HasPrefix(t.Value, "(;") {
			text := strings.TrimSuffix(strings.TrimPrefix(t.Value, "(;"), ";)")
			*body = append(*body, ast.NewBlockComment(toLoc(t.Loc), text))
			continue
		}
		*body = append(*body, ast.NewLeadingComment(toLoc(t.Loc), strings.TrimPrefix(t.Value, ";;")))
	}
}

// moduleFieldKeywords is the subset of the dispatch table valid as a bare
// top-level form outside a (module ...) wrapper.
var moduleFieldKeywords = map[string]bool{
	"func": true, "export": true, "import": true, "memory": true,
	"data": true, "table": true, "elem": true, "global": true,
	"type": true, "start": true,
}

// parseTopLevelForm dispatches one "(...)" form on the first significant
// token after the opening paren: a module, a bare module field (whose
// buffered shorthand exports flush as siblings), or — when no keyword
// matches — a folded instruction.
func (p *parser) parseTopLevelForm() ([]ast.Node, error) {
	p.skipComments()
	open := p.peek()
	if open.Kind != token.OpenParen {
		return nil, p.errf(open.Loc, "expected %s, got %s %q", token.OpenParen, open.Kind, open.Value)
	}
	kw := p.peekAt(1)
	if kw.Kind == token.Keyword && kw.Value == "module" {
		p.advance() // '('
		p.advance() // 'module'
		mod, err := p.parseModule(open.Loc)
		if err != nil {
			return nil, err
		}
		return []ast.Node{mod}, nil
	}
	if kw.Kind == token.Keyword && moduleFieldKeywords[kw.Value] {
		field, exports, err := p.parseModuleField()
		if err != nil {
			return nil, err
		}
		out := []ast.Node{field}
		for _, e := range exports {
			out = append(out, e)
		}
		return out, nil
	}
	p.advance()
	n, err := p.parseFoldedInstrFrom(open.Loc)
	if err != nil {
		return nil, err
	}
	return []ast.Node{n}, nil
}

// parseModule handles all three module variants: a field-bearing Module, or
// the opaque BinaryModule/QuoteModule payload forms.
func (p *parser) parseModule(openLoc token.Loc) (ast.Node, error) {
	var id *ast.ID
	p.skipComments()
	if p.peek().Kind == token.Identifier {
		raw := stripDollar(p.advance().Value)
		id = &ast.ID{Raw: raw}
	}

	p.skipComments()
	if p.peek().Kind == token.Keyword && p.peek().Value == "binary" {
		p.advance()
		var chunks [][]byte
		for {
			p.skipComments()
			if p.peek().Kind != token.String {
				break
			}
			s, err := p.parseStringToken()
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, s)
		}
		if _, err := p.expectKind(token.CloseParen); err != nil {
			return nil, err
		}
		return ast.NewBinaryModule(toLoc(openLoc), id, chunks), nil
	}
	if p.peek().Kind == token.Keyword && p.peek().Value == "quote" {
		p.advance()
		var chunks [][]byte
		for {
			p.skipComments()
			if p.peek().Kind != token.String {
				break
			}
			s, err := p.parseStringToken()
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, s)
		}
		if _, err := p.expectKind(token.CloseParen); err != nil {
			return nil, err
		}
		return ast.NewQuoteModule(toLoc(openLoc), id, chunks), nil
	}

	var fields []ast.Node
	for {
		p.skipComments()
		if p.peek().Kind == token.CloseParen {
			p.advance()
			break
		}
		if p.eof() {
			return nil, p.errf(openLoc, "unterminated module")
		}
		field, exports, err := p.parseModuleField()
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
		for _, e := range exports {
			fields = append(fields, e)
		}
	}
	return ast.NewModule(toLoc(openLoc), id, fields), nil
}

// parseModuleField reads one "(<keyword> ...)" module field, dispatching by
// keyword exactly per the spec's dispatch table. It also returns any
// shorthand exports the field buffered inline, to be flushed as synthesized
// ModuleExport siblings immediately following the field itself.
func (p *parser) parseModuleField() (ast.Node, []*ast.ModuleExport, error) {
	open, err := p.expectKind(token.OpenParen)
	if err != nil {
		return nil, nil, err
	}
	p.skipComments()
	kw := p.peek()
	if kw.Kind != token.Keyword {
		return nil, nil, p.errf(kw.Loc, "expected a module field keyword, got %q", kw.Value)
	}
	p.advance()

	switch kw.Value {
	case "func":
		return p.parseFunc(open.Loc)
	case "export":
		n, err := p.parseExport(open.Loc)
		return n, nil, err
	case "import":
		n, err := p.parseImport(open.Loc)
		return n, nil, err
	case "memory":
		return p.parseMemory(open.Loc)
	case "data":
		n, err := p.parseData(open.Loc)
		return n, nil, err
	case "table":
		return p.parseTable(open.Loc)
	case "elem":
		n, err := p.parseElem(open.Loc)
		return n, nil, err
	case "global":
		return p.parseGlobal(open.Loc)
	case "type":
		n, err := p.parseType(open.Loc)
		return n, nil, err
	case "start":
		n, err := p.parseStart(open.Loc)
		return n, nil, err
	default:
		return nil, nil, p.errf(kw.Loc, "unknown module field %q", kw.Value)
	}
}

func (p *parser) parseStringToken() ([]byte, error) {
	t, err := p.expectKind(token.String)
	if err != nil {
		return nil, err
	}
	inner := t.Value
	if len(inner) >= 2 {
		inner = inner[1 : len(inner)-1]
	}
	b, err := ast.DecodeString(inner)
	if err != nil {
		return nil, p.errf(t.Loc, "%s", err)
	}
	return b, nil
}

// parseIndex reads an identifier or numeric index reference.
func (p *parser) parseIndex() (ast.Index, error) {
	p.skipComments()
	t := p.peek()
	switch t.Kind {
	case token.Identifier:
		p.advance()
		return ast.Index{Ident: ast.NewIdentifier(toLoc(t.Loc), stripDollar(t.Value))}, nil
	case token.Number:
		p.advance()
		v, err := strconv.ParseUint(t.Value, 10, 32)
		if err != nil {
			return ast.Index{}, p.errf(t.Loc, "invalid index %q: %s", t.Value, err)
		}
		return ast.Index{Num: ast.NewIndexLiteral(toLoc(t.Loc), uint32(v))}, nil
	default:
		return ast.Index{}, p.errf(t.Loc, "expected an index (identifier or number), got %q", t.Value)
	}
}

// indexArgNode renders an Index as the Node form used inline as an
// instruction argument: an Identifier if symbolic, or an i32 NumberLiteral
// if numeric, matching the worked examples in the spec.
func indexArgNode(idx ast.Index) ast.Node {
	if idx.Ident != nil {
		return idx.Ident
	}
	return ast.NewNumberLiteral(idx.Num.Loc(), fmt.Sprintf("%d", idx.Num.Value), values.I32, float64(idx.Num.Value))
}

func (p *parser) parseLimit() (ast.Limit, error) {
	minTok, err := p.expectKind(token.Number)
	if err != nil {
		return ast.Limit{}, err
	}
	min, err := strconv.ParseUint(minTok.Value, 10, 32)
	if err != nil {
		return ast.Limit{}, p.errf(minTok.Loc, "invalid limit min %q: %s", minTok.Value, err)
	}
	var max *uint32
	p.skipComments()
	if p.peek().Kind == token.Number {
		maxTok := p.advance()
		m, err := strconv.ParseUint(maxTok.Value, 10, 32)
		if err != nil {
			return ast.Limit{}, p.errf(maxTok.Loc, "invalid limit max %q: %s", maxTok.Value, err)
		}
		mm := uint32(m)
		max = &mm
	}
	return *ast.NewLimit(toLoc(minTok.Loc), uint32(min), max), nil
}

// parseGlobalType reads either a bare valtype (immutable) or "(mut
// valtype)" (mutable), matching the text-format grammar referenced in
// DESIGN.md's resolution of the global-import mutability open question.
func (p *parser) parseGlobalType() (ast.GlobalType, error) {
	p.skipComments()
	if p.peek().Kind == token.OpenParen && p.peekAt(1).Value == "mut" {
		loc := p.advance().Loc // '('
		p.advance()            // 'mut'
		vt, err := p.parseValtype()
		if err != nil {
			return ast.GlobalType{}, err
		}
		if _, err := p.expectKind(token.CloseParen); err != nil {
			return ast.GlobalType{}, err
		}
		return *ast.NewGlobalType(toLoc(loc), vt, "var"), nil
	}
	vt, err := p.parseValtype()
	if err != nil {
		return ast.GlobalType{}, err
	}
	return *ast.NewGlobalType(nil, vt, "const"), nil
}

func (p *parser) parseValtype() (values.Type, error) {
	t, err := p.expectKind(token.Valtype)
	if err != nil {
		return 0, err
	}
	vt, ok := values.ParseType(t.Value)
	if !ok {
		return 0, p.errf(t.Loc, "unknown valtype %q", t.Value)
	}
	return vt, nil
}

// parseSignature reads zero or more leading "(param ...)" forms followed by
// zero or more "(result ...)" forms.
func (p *parser) parseSignature() (*ast.Signature, error) {
	var params []ast.Param
	var results []values.Type
	for {
		p.skipComments()
		if p.peek().Kind != token.OpenParen {
			break
		}
		nextKw := p.peekAt(1).Value
		if nextKw == "param" {
			p.advance()
			p.advance()
			ps, err := p.parseParamList()
			if err != nil {
				return nil, err
			}
			params = append(params, ps...)
			if _, err := p.expectKind(token.CloseParen); err != nil {
				return nil, err
			}
			continue
		}
		if nextKw == "result" {
			p.advance()
			p.advance()
			for {
				p.skipComments()
				if p.peek().Kind != token.Valtype {
					break
				}
				vt, err := p.parseValtype()
				if err != nil {
					return nil, err
				}
				results = append(results, vt)
			}
			if _, err := p.expectKind(token.CloseParen); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return ast.NewSignature(nil, params, results), nil
}

// parseParamList handles both "(param $x i32)" (one named param) and
// "(param i32 i32)" (multiple anonymous params sharing the form).
func (p *parser) parseParamList() ([]ast.Param, error) {
	p.skipComments()
	if p.peek().Kind == token.Identifier {
		id := ast.ID{Raw: stripDollar(p.advance().Value)}
		vt, err := p.parseValtype()
		if err != nil {
			return nil, err
		}
		return []ast.Param{{ID: id, Valtype: vt}}, nil
	}
	var out []ast.Param
	for {
		p.skipComments()
		if p.peek().Kind != token.Valtype {
			break
		}
		vt, err := p.parseValtype()
		if err != nil {
			return nil, err
		}
		out = append(out, ast.Param{Valtype: vt})
	}
	return out, nil
}

// parseTypeUse reads either "(type <index>)" or falls back to an inline
// Signature — exactly one of the two is ever returned non-nil, per the
// ast builders' invariant.
func (p *parser) parseTypeUse() (*ast.Signature, *ast.TypeReference, error) {
	p.skipComments()
	if p.peek().Kind == token.OpenParen && p.peekAt(1).Value == "type" {
		loc := p.advance().Loc
		p.advance()
		idx, err := p.parseIndex()
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.expectKind(token.CloseParen); err != nil {
			return nil, nil, err
		}
		return nil, ast.NewTypeReference(toLoc(loc), idx), nil
	}
	sig, err := p.parseSignature()
	if err != nil {
		return nil, nil, err
	}
	return sig, nil, nil
}

func (p *parser) parseType(openLoc token.Loc) (*ast.TypeInstruction, error) {
	var id *ast.ID
	p.skipComments()
	if p.peek().Kind == token.Identifier {
		v := ast.ID{Raw: stripDollar(p.advance().Value)}
		id = &v
	}
	if _, err := p.expectKind(token.OpenParen); err != nil {
		return nil, err
	}
	if _, err := p.expectKind(token.Keyword); err != nil {
		return nil, err
	}
	sig, err := p.parseSignature()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKind(token.CloseParen); err != nil {
		return nil, err
	}
	if _, err := p.expectKind(token.CloseParen); err != nil {
		return nil, err
	}
	return ast.NewTypeInstruction(toLoc(openLoc), id, sig), nil
}

func (p *parser) parseStart(openLoc token.Loc) (*ast.Start, error) {
	idx, err := p.parseIndex()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKind(token.CloseParen); err != nil {
		return nil, err
	}
	return ast.NewStart(toLoc(openLoc), idx), nil
}
