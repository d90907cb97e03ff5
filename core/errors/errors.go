// Package errors provides the error taxonomy shared by the codemask packages.
//
// Every typed error unwraps to one of the sentinels below so callers can
// classify failures with errors.Is and inspect details with errors.As.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrSyntax indicates malformed or unterminated marker syntax
	ErrSyntax = errors.New("syntax error")
	// ErrInvalidChecksum indicates a checksum field that is not valid hex
	ErrInvalidChecksum = errors.New("invalid checksum")
	// ErrWrongChecksum indicates a generated region was edited since it was produced
	ErrWrongChecksum = errors.New("wrong checksum")
	// ErrForbidden indicates a producer wrote outside of its region
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
)

// SyntaxError reports malformed marker syntax at a 1-based source position.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

// InvalidChecksumError reports a checksum field that cannot be decoded.
type InvalidChecksumError struct {
	Line   int    // 1-based, zero when unknown
	Column int    // 1-based, zero when unknown
	Text   string // the offending checksum text
	Reason string
}

func (e *InvalidChecksumError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid checksum %q at line %d, column %d: %s", e.Text, e.Line, e.Column, e.Reason)
	}
	return fmt.Sprintf("invalid checksum %q: %s", e.Text, e.Reason)
}

func (e *InvalidChecksumError) Unwrap() error {
	return ErrInvalidChecksum
}

// WrongChecksumError reports a generated region whose content no longer
// matches the checksum stored in its end marker.
type WrongChecksumError struct {
	Identifier string
	Line       int    // 1-based line of the begin marker, zero when unknown
	Stored     string // hex as found in the end marker
	Actual     string // hex of the full hash of the current content
}

func (e *WrongChecksumError) Error() string {
	if e.Identifier != "" {
		return fmt.Sprintf("wrong checksum for region %q at line %d: stored %s, content hashes to %s (was the generated code edited by hand?)",
			e.Identifier, e.Line, e.Stored, e.Actual)
	}
	return fmt.Sprintf("wrong checksum: stored %s, content hashes to %s", e.Stored, e.Actual)
}

func (e *WrongChecksumError) Unwrap() error {
	return ErrWrongChecksum
}

// ForbiddenError reports a producer that modified output outside of its region.
type ForbiddenError struct {
	Identifier string
	Offset     int // start offset of the region in the output buffer
	Reason     string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("producer for region %q wrote before offset %d: %s", e.Identifier, e.Offset, e.Reason)
}

func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}

// ProducerError wraps a failure returned by a producer callback.
type ProducerError struct {
	Identifier string
	Err        error
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("producing region %q: %v", e.Identifier, e.Err)
}

func (e *ProducerError) Unwrap() error {
	return e.Err
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "snippet", "config")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NewSyntax creates a SyntaxError
func NewSyntax(line, column int, format string, args ...any) *SyntaxError {
	return &SyntaxError{
		Line:    line,
		Column:  column,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}
