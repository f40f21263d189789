package source

import (
	"fmt"
	"strconv"
	"strings"
)

// Position is a file location given on the command line.
type Position struct {
	Path   string
	Line   int // 1-based, 0 when not given
	Offset int // byte offset, -1 when not given
}

// ParsePosition parses "path" or "path:line".
func ParsePosition(arg string) (Position, error) {
	pos := Position{Path: arg, Offset: -1}
	idx := strings.LastIndex(arg, ":")
	if idx <= 0 || idx == len(arg)-1 {
		return pos, nil
	}

	line, err := strconv.Atoi(arg[idx+1:])
	if err != nil {
		// Not a line suffix; treat the whole argument as a path.
		return pos, nil
	}
	if line < 1 {
		return Position{}, fmt.Errorf("invalid line number in %q", arg)
	}
	pos.Path = arg[:idx]
	pos.Line = line
	return pos, nil
}

// Cursor resolves the position to a byte offset within buf.
// An explicit offset wins over a line; with neither, the cursor sits at the
// end of the buffer.
func (p Position) Cursor(buf *Buffer) int {
	switch {
	case p.Offset >= 0:
		return buf.clamp(p.Offset)
	case p.Line > 0:
		return buf.EndOfLine(p.Line)
	default:
		return buf.Len()
	}
}
