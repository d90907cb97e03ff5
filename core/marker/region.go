package marker

import (
	"github.com/FocuswithJustin/codemask/core/checksum"
	"github.com/FocuswithJustin/codemask/core/indent"
)

// Kind classifies a region.
type Kind uint8

const (
	// Verbatim is hand written text, reproduced byte for byte.
	Verbatim Kind = iota
	// Generated is a delimited region owned by a producer.
	Generated
)

func (k Kind) String() string {
	switch k {
	case Verbatim:
		return "verbatim"
	case Generated:
		return "generated"
	default:
		return "unknown"
	}
}

// Marker is the surrounding syntax of a begin or end marker line.
type Marker struct {
	// Indentation is the count of leading spaces on the marker line.
	Indentation indent.Indentation
	// BeforeMarker is the text between the indentation and "<<".
	// It never contains "<<" and never ends in '<'.
	BeforeMarker string
	// AfterMarker is the text following ">>" up to the end of the line.
	AfterMarker string
	// Raw is the complete marker line as found in the source, including its
	// newline if it had one.
	Raw string
}

// Region is a span of a parsed source. All string fields are substrings of
// the source passed to Parse; a Region never owns a copy of its text.
type Region struct {
	Kind Kind
	// Line is the 1-based line number of the region's first byte.
	Line int

	// Text holds the hand written text of a Verbatim region.
	Text string

	// The remaining fields are only set for Generated regions.

	// Identifier names the producer governing the region.
	Identifier string
	// Code is the text between the begin and end marker lines. It is
	// either empty or ends with a newline.
	Code string
	// Checksum is the hash prefix stored in the end marker, empty if none.
	Checksum checksum.Checksum
	Begin    Marker
	End      Marker
}

// Source returns the bytes of the original source that the region covers.
func (r Region) Source() string {
	if r.Kind == Verbatim {
		return r.Text
	}
	return r.Begin.Raw + r.Code + r.End.Raw
}

// AppendBegin appends a begin marker line for identifier to dst.
func AppendBegin(dst []byte, m Marker, identifier string) []byte {
	dst = m.Indentation.Append(dst)
	dst = append(dst, m.BeforeMarker...)
	dst = append(dst, "<< codegen "...)
	dst = append(dst, identifier...)
	dst = append(dst, " >>"...)
	dst = append(dst, m.AfterMarker...)
	return append(dst, '\n')
}

// AppendEnd appends an end marker line storing the first n bytes of h (hex
// encoded) to dst. n == 0 omits the checksum field.
func AppendEnd(dst []byte, m Marker, h checksum.Hash, n int) []byte {
	dst = m.Indentation.Append(dst)
	dst = append(dst, m.BeforeMarker...)
	dst = append(dst, "<< /codegen"...)
	if n > 0 {
		dst = append(dst, ' ')
		dst = h.AppendHex(dst, n)
	}
	dst = append(dst, " >>"...)
	dst = append(dst, m.AfterMarker...)
	return append(dst, '\n')
}
