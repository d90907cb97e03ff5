package codegen

import "unicode/utf8"

// Output is the buffer a Producer writes a region's content into.
//
// The buffer is shared with everything already emitted for the file. A
// producer may only append; Generate detects any change to bytes before the
// region start and fails with errors.ErrForbidden.
type Output struct {
	buf []byte
}

// Write appends p to the buffer. It never fails.
func (o *Output) Write(p []byte) (int, error) {
	o.buf = append(o.buf, p...)
	return len(p), nil
}

// WriteString appends s to the buffer. It never fails.
func (o *Output) WriteString(s string) (int, error) {
	o.buf = append(o.buf, s...)
	return len(s), nil
}

// WriteByte appends c to the buffer. It never fails.
func (o *Output) WriteByte(c byte) error {
	o.buf = append(o.buf, c)
	return nil
}

// WriteRune appends the UTF-8 encoding of r to the buffer. It never fails.
func (o *Output) WriteRune(r rune) (int, error) {
	n := len(o.buf)
	o.buf = utf8.AppendRune(o.buf, r)
	return len(o.buf) - n, nil
}

// Len returns the number of bytes in the buffer, including everything
// emitted before the current region.
func (o *Output) Len() int {
	return len(o.buf)
}

// Bytes returns the whole buffer. The slice aliases the buffer contents.
func (o *Output) Bytes() []byte {
	return o.buf
}

// String returns a copy of the buffer contents.
func (o *Output) String() string {
	return string(o.buf)
}

// Truncate discards all but the first n bytes. n is clamped to
// [0, Len()], so Truncate never grows the buffer. Truncating below the start
// of the current region makes Generate fail.
func (o *Output) Truncate(n int) {
	o.buf = o.buf[:min(max(n, 0), len(o.buf))]
}
