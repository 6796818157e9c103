package parser

import (
	"fmt"

	"github.com/gowasm/wat/internal/token"
)

// ParseError is raised for any unexpected token, missing required token, or
// malformed literal the parser encounters. It never attempts recovery: the
// first one raised aborts the parse. When a code frame can be built for the
// offending token's location, Error leads with that two-line source frame;
// otherwise it returns the message alone.
type ParseError struct {
	Message string
	Loc     token.Loc
	Frame   string
}

func (e *ParseError) Error() string {
	if e.Frame == "" {
		return e.Message
	}
	return e.Frame + "\n" + e.Message
}

func newParseError(source []byte, loc token.Loc, format string, args ...any) *ParseError {
	return &ParseError{
		Message: fmt.Sprintf(format, args...),
		Loc:     loc,
		Frame:   token.CodeFrame(source, loc),
	}
}
