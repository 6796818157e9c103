// Package token defines the token contract the WAT parser consumes and
// provides a reference lexer implementing it. The specification treats the
// tokenizer as an external collaborator and describes only the stream
// shape it must deliver; this package is that delivery, kept separate from
// the parser so a host is free to swap in its own.
package token

import "fmt"

// Kind discriminates token types. Names match the specification's token
// kind list: openParen, closeParen, identifier, string, number, valtype,
// name, dot, equal, keyword, comment.
type Kind int

const (
	OpenParen Kind = iota
	CloseParen
	Identifier // $-prefixed symbolic name
	String     // "quoted, with quotes included in Value"
	Number     // numeric literal, sign/digits/hex/float/inf/nan
	Valtype    // one of i32, i64, f32, f64
	Name       // any other bareword: instruction mnemonics, field names not
	// recognized as a dispatch keyword, named-argument keys
	Dot     // '.' separating a valtype prefix from an op name
	Equal   // '=' separating a named-argument key from its value
	Keyword // a bareword recognized as a module-field/block dispatch keyword
	Comment // ';; line' or '(; block ;)' — never semantically meaningful
	EOF
)

var kindNames = [...]string{
	"openParen", "closeParen", "identifier", "string", "number", "valtype",
	"name", "dot", "equal", "keyword", "comment", "eof",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Position is a 1-indexed line/column location.
type Position struct {
	Line, Col uint32
}

// Loc is the half-open source range a token occupies.
type Loc struct {
	Start, End Position
}

// Token is one lexical unit of the pre-tokenized stream the parser walks.
type Token struct {
	Kind  Kind
	Value string
	Loc   Loc
}

// dispatchKeywords is the set of barewords the parser's §4.1 dispatch table
// recognizes as module-field or structured-instruction keywords. Anything
// else lexes as Name, even though both are plain idchar runs to the lexer.
var dispatchKeywords = map[string]bool{
	"module": true, "func": true, "export": true, "import": true,
	"memory": true, "data": true, "table": true, "elem": true,
	"global": true, "type": true, "start": true, "block": true,
	"loop": true, "if": true, "then": true, "else": true, "param": true,
	"result": true, "local": true, "mut": true, "offset": true,
	"binary": true, "quote": true, "declare": true, "item": true,
}

var valtypes = map[string]bool{"i32": true, "i64": true, "f32": true, "f64": true}

// ClassifyBareword returns the Kind a bareword lexeme should carry: Valtype
// for i32/i64/f32/f64, Keyword for a recognized dispatch keyword, Name
// otherwise.
func ClassifyBareword(s string) Kind {
	if valtypes[s] {
		return Valtype
	}
	if dispatchKeywords[s] {
		return Keyword
	}
	return Name
}
