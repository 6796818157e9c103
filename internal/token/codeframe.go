package token

import (
	"fmt"
	"strings"
)

// CodeFrame renders a two-line source excerpt around loc: the offending
// line followed by a caret pointing at the starting column. It degrades
// gracefully when loc falls outside source, returning an empty string
// rather than panicking, since diagnostics must never themselves crash.
func CodeFrame(source []byte, loc Loc) string {
	lines := strings.Split(string(source), "\n")
	lineIdx := int(loc.Start.Line) - 1
	if lineIdx < 0 || lineIdx >= len(lines) {
		return ""
	}
	line := lines[lineIdx]
	col := int(loc.Start.Col) - 1
	if col < 0 {
		col = 0
	}
	if col > len(line) {
		col = len(line)
	}
	caret := strings.Repeat(" ", col) + "^"
	return fmt.Sprintf("%s\n%s", line, caret)
}
