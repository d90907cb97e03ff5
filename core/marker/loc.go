package marker

import (
	"errors"
	"strings"
)

var (
	// ErrNoSuchLine is returned when a Loc names a line past the end of the source.
	ErrNoSuchLine = errors.New("line does not exist")
	// ErrNoSuchColumn is returned when a Loc names a column past the end of its line.
	ErrNoSuchColumn = errors.New("column does not exist")
)

// Loc is a 0-based line and column (in bytes) within a source.
type Loc struct {
	Line   int
	Column int
}

// Index converts l to a byte offset into source. The offset just past the
// last byte of a line (its newline, or the end of the source) is valid.
func (l Loc) Index(source string) (int, error) {
	lineStart, err := lineIndex(l.Line, source)
	if err != nil {
		return 0, err
	}

	pos := lineStart + l.Column
	if l.Column < 0 || pos > len(source) {
		return 0, ErrNoSuchColumn
	}
	if strings.IndexByte(source[lineStart:pos], '\n') >= 0 {
		return 0, ErrNoSuchColumn
	}
	return pos, nil
}

// LocOf converts a byte offset into source to a Loc. Offsets past the end
// of source are clamped to it.
func LocOf(source string, offset int) Loc {
	offset = min(max(offset, 0), len(source))
	head := source[:offset]
	line := strings.Count(head, "\n")
	return Loc{Line: line, Column: offset - (strings.LastIndexByte(head, '\n') + 1)}
}

func lineIndex(line int, source string) (int, error) {
	if line < 0 {
		return 0, ErrNoSuchLine
	}
	pos := 0
	for range line {
		i := strings.IndexByte(source[pos:], '\n')
		if i < 0 {
			return 0, ErrNoSuchLine
		}
		pos += i + 1
	}
	return pos, nil
}
