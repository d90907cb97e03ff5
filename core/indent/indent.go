// Package indent shifts lines of text to the right by a fixed number of spaces.
//
// The central operation is Subrange, which indents the tail of a byte buffer
// in place with a single backward pass. Blank lines never receive
// indentation, so the engine never introduces trailing whitespace.
package indent

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
)

// Indentation is a count of leading space characters.
type Indentation int

// String returns the indentation as a run of spaces.
func (i Indentation) String() string {
	if i <= 0 {
		return ""
	}
	return strings.Repeat(" ", int(i))
}

// Append appends the indentation to dst.
func (i Indentation) Append(dst []byte) []byte {
	for range int(i) {
		dst = append(dst, ' ')
	}
	return dst
}

// Indent returns text with every non-empty line indented.
// Non-empty output always ends with a newline.
func (i Indentation) Indent(text string) string {
	buf := EnsureTrailingLinebreak([]byte(text), 0)
	return string(Subrange(buf, 0, i))
}

// EnsureTrailingLinebreak appends a newline to buf if buf[start:] is
// non-empty and does not already end with one.
func EnsureTrailingLinebreak(buf []byte, start int) []byte {
	if len(buf) > start && buf[len(buf)-1] != '\n' {
		buf = append(buf, '\n')
	}
	return buf
}

// Subrange shifts every line of buf[start:] right by width spaces and
// returns the resulting buffer. buf[:start] is left untouched. Empty lines,
// including the empty remainder after a trailing newline, are not indented.
//
// The buffer grows at most once; lines are moved from the end towards start
// so each byte is copied a single time. Subrange panics if start is out of range.
func Subrange(buf []byte, start int, width Indentation) []byte {
	if start < 0 || start > len(buf) {
		panic(fmt.Sprintf("indent: start %d out of range [0, %d]", start, len(buf)))
	}
	n := int(width)
	if n <= 0 || start == len(buf) {
		return buf
	}

	filled := countFilledLines(buf[start:])
	if filled == 0 {
		return buf
	}

	oldEnd := len(buf)
	grow := filled * n
	buf = slices.Grow(buf, grow)[:oldEnd+grow]

	dst := len(buf)
	src := oldEnd
	for {
		lineStart := start + bytes.LastIndexByte(buf[start:src], '\n') + 1
		length := src - lineStart

		dst -= length
		copy(buf[dst:], buf[lineStart:src])
		if length > 0 {
			dst -= n
			for k := dst; k < dst+n; k++ {
				buf[k] = ' '
			}
		}

		if lineStart == start {
			break
		}
		dst--
		buf[dst] = '\n'
		src = lineStart - 1
	}

	if dst != start {
		panic(fmt.Sprintf("indent: destination cursor ended at %d, expected %d", dst, start))
	}
	return buf
}

// countFilledLines counts the non-empty lines of text.
func countFilledLines(text []byte) int {
	count := 0
	for len(text) > 0 {
		i := bytes.IndexByte(text, '\n')
		if i < 0 {
			return count + 1
		}
		if i > 0 {
			count++
		}
		text = text[i+1:]
	}
	return count
}
