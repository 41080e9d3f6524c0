// Package validation provides reusable input validation functions for roam.
// All validators follow a consistent pattern: they return nil on success and a
// descriptive error on failure, naming the field at fault so an interactive
// caller can ask again for just that field.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "github.com/roamvpn/roam/lib/errors"
)

// Common validation errors. These are sentinel errors that can be checked with errors.Is().
var (
	// ErrRequired indicates a required field is missing or empty.
	ErrRequired = errors.New("field is required")

	// ErrTooLong indicates a string exceeds the maximum length.
	ErrTooLong = errors.New("value exceeds maximum length")
)

// Constraints for common field types.
const (
	// MaxNetworkNameLength is the maximum length for network names.
	MaxNetworkNameLength = 128

	// MaxTokenLength is the maximum length for a pasted key token.
	MaxTokenLength = 1024
)

// Result represents a validation result with field context.
type Result struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (r *Result) Error() string {
	if r.Field != "" {
		return fmt.Sprintf("%s: %s", r.Field, r.Message)
	}
	return r.Message
}

// Unwrap returns the underlying error for errors.Is() support.
func (r *Result) Unwrap() error {
	return r.Err
}

// NewResult creates a validation result.
func NewResult(field, message string, err error) *Result {
	return &Result{
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// Required validates that a string is non-empty.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return NewResult(field, "is required", ErrRequired)
	}
	return nil
}

// MaxLength validates that a string doesn't exceed the maximum length.
func MaxLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return NewResult(field, fmt.Sprintf("exceeds maximum length of %d characters", max), ErrTooLong)
	}
	return nil
}

// NetworkName validates a network name. An empty or blank name matches
// both ErrRequired and errors.ErrEmptyName.
func NetworkName(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return NewResult(field, "a network name needs to be provided",
			errors.Join(ErrRequired, apperrors.ErrEmptyName))
	}
	return MaxLength(field, value, MaxNetworkNameLength)
}

// KeyToken checks that a pasted token is present and of sane length. The
// alphabet is checked by the decoder under the configured policy.
func KeyToken(field, value string) error {
	return All(
		func() error { return Required(field, value) },
		func() error { return MaxLength(field, value, MaxTokenLength) },
	)
}

// All runs multiple validation functions and returns the first error.
func All(validators ...func() error) error {
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

// Errors collects multiple validation errors.
type Errors []error

// Add appends an error to the collection (nil errors are ignored).
func (e *Errors) Add(err error) {
	if err != nil {
		*e = append(*e, err)
	}
}

// HasErrors returns true if any errors were collected.
func (e Errors) HasErrors() bool {
	return len(e) > 0
}

// Error returns all errors as a single error message.
func (e Errors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("multiple validation errors: ")
	for i, err := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e Errors) Unwrap() []error {
	return e
}
