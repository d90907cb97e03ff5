// Package codegen regenerates the generated regions of a mixed
// hand-written/generated source file.
//
// Generate parses the source into regions, verifies each generated region
// against the checksum stored in its end marker, asks a Producer for fresh
// content, re-indents that content to match the begin marker and stores a
// new checksum. Hand-written text is copied through untouched. The result
// is all or nothing: any error aborts the whole file.
package codegen

import (
	"errors"
	"fmt"

	"github.com/FocuswithJustin/codemask/core/checksum"
	apperrors "github.com/FocuswithJustin/codemask/core/errors"
	"github.com/FocuswithJustin/codemask/core/indent"
	"github.com/FocuswithJustin/codemask/core/marker"
)

// DefaultChecksumBytes is the checksum length stored by DefaultConfig.
const DefaultChecksumBytes = 8

// outputSlack is the extra capacity reserved per region for checksums and
// re-indentation.
const outputSlack = 2*checksum.Size + 64

// Config controls how regenerated files are written.
type Config struct {
	// ChecksumBytesToStore is the number of hash bytes (0 to 32) hex encoded
	// into each end marker. Zero stores no checksum.
	ChecksumBytesToStore uint8
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{ChecksumBytesToStore: DefaultChecksumBytes}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if int(c.ChecksumBytesToStore) > checksum.Size {
		return apperrors.NewValidation("checksum_bytes_to_store",
			fmt.Sprintf("must be between 0 and %d, got %d", checksum.Size, c.ChecksumBytesToStore))
	}
	return nil
}

// Usage is a producer's verdict on the bytes it wrote.
type Usage uint8

const (
	// Ignore discards whatever the producer wrote and keeps the region's
	// existing code. It is the zero value.
	Ignore Usage = iota
	// Use replaces the region's code with what the producer wrote.
	Use
)

func (u Usage) String() string {
	switch u {
	case Ignore:
		return "ignore"
	case Use:
		return "use"
	default:
		return fmt.Sprintf("Usage(%d)", uint8(u))
	}
}

// Producer writes the content of the region named identifier to out.
//
// It is called once per generated region, in source order. It may only
// append to out. Returning an error aborts Generate.
type Producer func(identifier string, out *Output) (Usage, error)

// Generate regenerates every generated region of source.
//
// It returns the new file content and true if anything changed, or nil and
// false if the file is already up to date (including when it contains no
// markers at all). A region counts as changed when its new content hashes
// differently from its old content, or when the stored checksum length
// differs from cfg.ChecksumBytesToStore.
//
// Errors unwrap to errors.ErrSyntax, errors.ErrInvalidChecksum,
// errors.ErrWrongChecksum, errors.ErrForbidden, errors.ErrInvalidInput, or
// the producer's own error.
func Generate(source string, cfg Config, produce Producer) ([]byte, bool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}

	regions, err := marker.Parse(source)
	if err != nil {
		return nil, false, err
	}
	if len(regions) == 0 || (len(regions) == 1 && regions[0].Kind == marker.Verbatim) {
		return nil, false, nil
	}

	out := &Output{buf: make([]byte, 0, len(source)+len(regions)*outputSlack)}
	changed := false
	for i := range regions {
		r := &regions[i]
		switch r.Kind {
		case marker.Verbatim:
			out.buf = append(out.buf, r.Text...)
		case marker.Generated:
			regionChanged, err := regenerate(out, r, cfg, produce)
			if err != nil {
				return nil, false, err
			}
			changed = changed || regionChanged
		}
	}

	if !changed {
		return nil, false, nil
	}
	return out.buf, true, nil
}

// regenerate emits one generated region into out and reports whether it changed.
func regenerate(out *Output, r *marker.Region, cfg Config, produce Producer) (bool, error) {
	previous, err := checksum.Verify(r.Code, r.Checksum)
	if err != nil {
		var wce *apperrors.WrongChecksumError
		if errors.As(err, &wce) {
			wce.Identifier, wce.Line = r.Identifier, r.Line
		}
		return false, err
	}
	changed := int(cfg.ChecksumBytesToStore) != r.Checksum.Len()

	out.buf = marker.AppendBegin(out.buf, r.Begin, r.Identifier)

	start := out.Len()
	guard := checksum.Sum(out.buf[:start])

	usage, err := produce(r.Identifier, out)
	if err != nil {
		return false, &apperrors.ProducerError{Identifier: r.Identifier, Err: err}
	}
	if err := checkGuard(out, start, guard, r.Identifier); err != nil {
		return false, err
	}

	switch usage {
	case Use:
		out.buf = indent.EnsureTrailingLinebreak(out.buf, start)
		out.buf = indent.Subrange(out.buf, start, r.Begin.Indentation)
	case Ignore:
		out.buf = append(out.buf[:start], r.Code...)
	default:
		return false, &apperrors.ProducerError{Identifier: r.Identifier, Err: fmt.Errorf("unknown usage %s", usage)}
	}

	current := checksum.Sum(out.buf[start:])
	out.buf = marker.AppendEnd(out.buf, r.End, current, int(cfg.ChecksumBytesToStore))

	return changed || current != previous, nil
}

// checkGuard fails if the producer shrank the buffer below start or changed
// any byte before it.
func checkGuard(out *Output, start int, guard checksum.Hash, identifier string) error {
	if out.Len() < start {
		return &apperrors.ForbiddenError{
			Identifier: identifier,
			Offset:     start,
			Reason:     fmt.Sprintf("output was truncated to %d bytes", out.Len()),
		}
	}
	if checksum.Sum(out.buf[:start]) != guard {
		return &apperrors.ForbiddenError{
			Identifier: identifier,
			Offset:     start,
			Reason:     "output before the region was modified",
		}
	}
	return nil
}
