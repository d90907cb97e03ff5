// Package marker splits source text into verbatim and generated regions.
//
// A generated region is delimited by a begin marker line and an end marker line:
//
//	// << codegen identifier >>
//	...generated code...
//	// << /codegen 0123abcd >>
//
// The text before "<<" and after ">>" is unconstrained, so the markers work
// inside the comment syntax of any host language. The only rule is that the
// first "<<" on a line opens the marker, which means the text before it never
// contains "<<" and never ends in '<'.
//
// Parsing is lossless: concatenating the regions returned by Parse
// reproduces the input.
package marker

import (
	"errors"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/codemask/core/checksum"
	apperrors "github.com/FocuswithJustin/codemask/core/errors"
	"github.com/FocuswithJustin/codemask/core/indent"
)

// markerGrammar is the participle grammar for the delimiter between "<<" and ">>".
// Examples: "<< codegen foo >>", "<< /codegen >>", "<< /codegen 0a1b >>", "<< /codegen>>"
//
//nolint:govet // participle grammar tags are not standard struct tags
type markerGrammar struct {
	Closing  bool   `"<<" @"/"?`
	Keyword  string `@"codegen"`
	Argument string `@Word?`
	Close    string `@">>"`
}

// markerLexer defines the tokens of a marker. Whitespace between tokens is free.
var markerLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Open", Pattern: `<<`},
	{Name: "Close", Pattern: `>>`},
	{Name: "Slash", Pattern: `/`},
	{Name: "Word", Pattern: `[A-Za-z0-9_]+`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})

// markerParser is the participle parser for marker delimiters.
var markerParser = participle.MustBuild[markerGrammar](
	participle.Lexer(markerLexer),
	participle.Elide("Whitespace"),
)

const keyword = "codegen"

type lineKind uint8

const (
	codeLine lineKind = iota
	beginLine
	endLine
)

// line is a classified source line.
type line struct {
	kind   lineKind
	marker Marker
	// argument is the identifier of a begin marker or the checksum text of an end marker.
	argument string
	// argColumn is the 0-based column of argument within the line.
	argColumn int
}

// openRegion tracks a begin marker waiting for its end marker.
type openRegion struct {
	line       int
	offset     int
	marker     Marker
	identifier string
	codeStart  int
}

// Parse splits source into regions. It fails with a *errors.SyntaxError if a
// marker is malformed, an end marker has no begin marker, or a begin marker
// is never closed, and with a *errors.InvalidChecksumError if a stored
// checksum is not valid hex.
//
// An empty source yields no regions.
func Parse(source string) ([]Region, error) {
	var (
		regions   []Region
		pending   *openRegion
		textStart int
		textLine  = 1
	)

	pos := 0
	for lineNo := 1; pos < len(source); lineNo++ {
		end, next := len(source), len(source)
		if i := strings.IndexByte(source[pos:], '\n'); i >= 0 {
			end, next = pos+i, pos+i+1
		}

		l, err := parseLine(source[pos:end], lineNo)
		if err != nil {
			return nil, err
		}
		l.marker.Raw = source[pos:next]

		switch l.kind {
		case beginLine:
			if pending != nil {
				return nil, syntaxAt(source, pos,
					"begin marker for %q inside region %q opened at line %d", l.argument, pending.identifier, pending.line)
			}
			if textStart < pos {
				regions = append(regions, Region{Kind: Verbatim, Line: textLine, Text: source[textStart:pos]})
			}
			pending = &openRegion{line: lineNo, offset: pos, marker: l.marker, identifier: l.argument, codeStart: next}

		case endLine:
			if pending == nil {
				return nil, syntaxAt(source, pos, "end marker without a matching begin marker")
			}
			sum, err := checksum.ParseHex(l.argument)
			if err != nil {
				var ice *apperrors.InvalidChecksumError
				if errors.As(err, &ice) {
					loc := LocOf(source, pos+l.argColumn)
					ice.Line, ice.Column = loc.Line+1, loc.Column+1
				}
				return nil, err
			}
			regions = append(regions, Region{
				Kind:       Generated,
				Line:       pending.line,
				Identifier: pending.identifier,
				Code:       source[pending.codeStart:pos],
				Checksum:   sum,
				Begin:      pending.marker,
				End:        l.marker,
			})
			pending = nil
			textStart, textLine = next, lineNo+1
		}

		pos = next
	}

	if pending != nil {
		return nil, syntaxAt(source, pending.offset+int(pending.marker.Indentation)+len(pending.marker.BeforeMarker),
			"begin marker for %q has no matching end marker", pending.identifier)
	}
	if textStart < len(source) {
		regions = append(regions, Region{Kind: Verbatim, Line: textLine, Text: source[textStart:]})
	}
	return regions, nil
}

// syntaxAt returns a syntax error positioned at a byte offset of source.
func syntaxAt(source string, offset int, format string, args ...any) error {
	loc := LocOf(source, offset)
	return apperrors.NewSyntax(loc.Line+1, loc.Column+1, format, args...)
}

// parseLine classifies a single line (without its newline).
func parseLine(text string, lineNo int) (line, error) {
	start := strings.Index(text, "<<")
	if start < 0 || !isMarkerAttempt(text[start+2:]) {
		return line{kind: codeLine}, nil
	}

	closeAt := strings.Index(text[start+2:], ">>")
	if closeAt < 0 {
		return line{}, apperrors.NewSyntax(lineNo, len(text)+1, `marker is missing its closing ">>"`)
	}
	closeAt += start + 2

	parsed, err := markerParser.ParseString("", text[start:closeAt+2])
	if err != nil {
		column := start + 1
		var perr participle.Error
		if errors.As(err, &perr) {
			column += perr.Position().Offset
			return line{}, apperrors.NewSyntax(lineNo, column, "malformed marker: %s", perr.Message())
		}
		return line{}, apperrors.NewSyntax(lineNo, column, "malformed marker: %v", err)
	}

	indentation := len(text) - len(strings.TrimLeft(text, " "))
	l := line{
		marker: Marker{
			Indentation:  indent.Indentation(indentation),
			BeforeMarker: text[indentation:start],
			AfterMarker:  text[closeAt+2:],
		},
		argument: parsed.Argument,
	}
	if parsed.Argument != "" {
		afterKeyword := start + strings.Index(text[start:], keyword) + len(keyword)
		l.argColumn = afterKeyword + strings.Index(text[afterKeyword:closeAt], parsed.Argument)
	}

	if parsed.Closing {
		l.kind = endLine
		return l, nil
	}

	l.kind = beginLine
	if !IsIdentifier(parsed.Argument) {
		column := start + 1
		if parsed.Argument != "" {
			column = l.argColumn + 1
		}
		return line{}, apperrors.NewSyntax(lineNo, column, "expected an identifier after %q, found %q", keyword, parsed.Argument)
	}
	return l, nil
}

// isMarkerAttempt reports whether the text following "<<" starts with the
// codegen keyword, optionally preceded by '/'. Anything else is ordinary code.
func isMarkerAttempt(rest string) bool {
	rest = strings.TrimLeft(rest, " \t")
	if strings.HasPrefix(rest, "/") {
		rest = strings.TrimLeft(rest[1:], " \t")
	}
	if !strings.HasPrefix(rest, keyword) {
		return false
	}
	rest = rest[len(keyword):]
	return rest == "" || !isWordByte(rest[0])
}

// Contains reports whether source has anything that looks like a marker,
// well formed or not. It is a cheap filter ahead of Parse.
func Contains(source string) bool {
	for i := 0; ; {
		j := strings.Index(source[i:], "<<")
		if j < 0 {
			return false
		}
		i += j + 2
		if isMarkerAttempt(source[i:]) {
			return true
		}
	}
}

// IsIdentifier reports whether s can name a region: a letter or underscore
// followed by letters, digits or underscores.
func IsIdentifier(s string) bool {
	if s == "" || ('0' <= s[0] && s[0] <= '9') {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isWordByte(s[i]) {
			return false
		}
	}
	return true
}

func isWordByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
