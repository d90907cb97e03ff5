// Package checksum implements the integrity model for generated regions.
//
// A region's content is hashed with BLAKE3. End markers store a hex encoded
// prefix of that hash; Verify compares the prefix against freshly hashed
// content to detect hand edits.
package checksum

import (
	"bytes"
	"encoding/hex"

	"github.com/zeebo/blake3"

	apperrors "github.com/FocuswithJustin/codemask/core/errors"
)

// Size is the length in bytes of a full content hash.
const Size = 32

// Hash is a full BLAKE3 content hash.
type Hash [Size]byte

// Sum hashes data.
func Sum(data []byte) Hash {
	return blake3.Sum256(data)
}

// SumString hashes s without copying it.
func SumString(s string) Hash {
	h := blake3.New()
	_, _ = h.WriteString(s)
	var out Hash
	h.Sum(out[:0])
	return out
}

// String returns the lowercase hex encoding of the full hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// AppendHex appends the hex encoding of the first n bytes of h to dst.
// n is clamped to [0, Size].
func (h Hash) AppendHex(dst []byte, n int) []byte {
	n = min(max(n, 0), Size)
	return hex.AppendEncode(dst, h[:n])
}

// Checksum is a stored hash prefix of 0 to Size bytes.
// The zero value means no checksum was stored.
type Checksum struct {
	bytes [Size]byte
	n     uint8
}

// Len returns the number of stored bytes.
func (c Checksum) Len() int {
	return int(c.n)
}

// IsEmpty reports whether no checksum was stored.
func (c Checksum) IsEmpty() bool {
	return c.n == 0
}

// Bytes returns the stored prefix.
func (c Checksum) Bytes() []byte {
	return c.bytes[:c.n]
}

// String returns the lowercase hex encoding of the stored prefix.
func (c Checksum) String() string {
	return hex.EncodeToString(c.Bytes())
}

// Matches reports whether c is a prefix of h. An empty checksum matches every hash.
func (c Checksum) Matches(h Hash) bool {
	return bytes.Equal(h[:c.n], c.Bytes())
}

// FromHash returns the first n bytes of h as a Checksum. n is clamped to [0, Size].
func FromHash(h Hash, n int) Checksum {
	n = min(max(n, 0), Size)
	var c Checksum
	copy(c.bytes[:], h[:n])
	c.n = uint8(n)
	return c
}

// ParseHex decodes a hex checksum of 0 to 2*Size digits, upper or lower case.
// An empty string yields the empty checksum.
func ParseHex(s string) (Checksum, error) {
	var c Checksum
	if len(s)%2 != 0 {
		return c, &apperrors.InvalidChecksumError{Text: s, Reason: "odd number of hex digits"}
	}
	if len(s) > 2*Size {
		return c, &apperrors.InvalidChecksumError{Text: s, Reason: "longer than 64 hex digits"}
	}
	for i := 0; i < len(s); i += 2 {
		hi, ok1 := fromHexChar(s[i])
		lo, ok2 := fromHexChar(s[i+1])
		if !ok1 || !ok2 {
			return Checksum{}, &apperrors.InvalidChecksumError{Text: s, Reason: "contains a character that is not a hex digit"}
		}
		c.bytes[i/2] = hi<<4 | lo
	}
	c.n = uint8(len(s) / 2)
	return c, nil
}

func fromHexChar(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// Verify hashes code and checks it against the stored prefix. On success the
// full hash is returned. On mismatch the error is a
// *errors.WrongChecksumError carrying the actual hash.
func Verify(code string, stored Checksum) (Hash, error) {
	actual := SumString(code)
	if !stored.Matches(actual) {
		return actual, &apperrors.WrongChecksumError{
			Stored: stored.String(),
			Actual: actual.String(),
		}
	}
	return actual, nil
}
