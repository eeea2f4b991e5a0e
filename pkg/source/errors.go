package source

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Common sentinel errors
var (
	ErrUndecodableWeight = errors.New("undecodable weight")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrFetchFailed       = errors.New("attestation fetch failed")
	ErrInvalidRecord     = errors.New("invalid attestation record")
)

// SourceError provides structured error information for attestation
// fetching and decoding.
type SourceError struct {
	Op      string // Operation that failed (e.g., "fetch", "decode", "scan")
	Entity  string // Entity type (e.g., "attestation", "schema", "file")
	ID      string // Entity identifier (UID, schema ID or path)
	Field   string // Field name, if the failure is tied to one
	Cause   error  // Underlying error
	Context string // Additional context
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	subject := e.Entity
	if e.ID != "" {
		subject = fmt.Sprintf("%s %s", e.Entity, e.ID)
	}
	switch {
	case e.Field != "":
		return fmt.Sprintf("%s %s (field %s): %v", e.Op, subject, e.Field, e.Cause)
	case e.Context != "":
		return fmt.Sprintf("%s %s (%s): %v", e.Op, subject, e.Context, e.Cause)
	default:
		return fmt.Sprintf("%s %s: %v", e.Op, subject, e.Cause)
	}
}

// Unwrap returns the underlying cause for error chain support.
func (e *SourceError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for building SourceErrors.
type ErrorBuilder struct {
	err SourceError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: SourceError{Op: op}}
}

// Attestation sets the entity to "attestation" with the given UID.
func (b *ErrorBuilder) Attestation(uid string) *ErrorBuilder {
	b.err.Entity = "attestation"
	b.err.ID = uid
	return b
}

// Schema sets the entity to "schema" with the given ID.
func (b *ErrorBuilder) Schema(id string) *ErrorBuilder {
	b.err.Entity = "schema"
	b.err.ID = id
	return b
}

// File sets the entity to "file" with the given path.
func (b *ErrorBuilder) File(path string) *ErrorBuilder {
	b.err.Entity = "file"
	b.err.ID = path
	return b
}

// Field sets the field name.
func (b *ErrorBuilder) Field(name string) *ErrorBuilder {
	b.err.Field = name
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// FetchError creates a fetch failure for the given schema.
func FetchError(schemaID string, cause error) error {
	return NewError("fetch").Schema(schemaID).Cause(errors.Mark(cause, ErrFetchFailed)).Err()
}

// IsUndecodable returns true if the error is a weight decoding failure.
func IsUndecodable(err error) bool {
	return errors.Is(err, ErrUndecodableWeight)
}
