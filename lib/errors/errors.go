// Package errors provides the tagged error kinds shared by roam's network
// identity packages.
//
// Every parse, decode, and assembly failure is an *Error carrying a Kind so a
// caller (for example an interactive prompt) can tell which field was
// malformed and ask again for only that field. The underlying cause, if any,
// is kept for diagnostics and reachable through errors.Unwrap.
package errors

import (
	"errors"
	"fmt"
)

// Kind categorizes an error.
type Kind int

// Error kinds. The zero value is KindInternal so an *Error built without an
// explicit kind never matches a more specific sentinel by accident.
const (
	KindInternal Kind = iota
	KindEmptyName
	KindMissingField
	KindInvalidAddress
	KindInvalidPrefix
	KindPrefixOutOfRange
	KindDecodeMalformed
	KindRngUnavailable
	KindInvalidKey
	KindConfiguration
	KindNotFound
	KindAlreadyExists
)

var kindNames = map[Kind]string{
	KindInternal:         "internal",
	KindEmptyName:        "empty name",
	KindMissingField:     "missing field",
	KindInvalidAddress:   "invalid address",
	KindInvalidPrefix:    "invalid prefix",
	KindPrefixOutOfRange: "prefix out of range",
	KindDecodeMalformed:  "malformed token",
	KindRngUnavailable:   "random source unavailable",
	KindInvalidKey:       "invalid key",
	KindConfiguration:    "configuration error",
	KindNotFound:         "not found",
	KindAlreadyExists:    "already exists",
}

// String returns a short human-readable name for the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinel errors, one per kind. Use errors.Is() to check for these
// conditions; matching is by kind, so a wrapped *Error with extra context
// still matches its sentinel.
var (
	// ErrEmptyName indicates a network name was not provided.
	ErrEmptyName = New(KindEmptyName, "a network name needs to be provided")

	// ErrMissingField indicates a required segment of the input is absent.
	ErrMissingField = New(KindMissingField, "required field not provided")

	// ErrInvalidAddress indicates an IP address could not be parsed.
	ErrInvalidAddress = New(KindInvalidAddress, "could not parse IP address")

	// ErrInvalidPrefix indicates a prefix length could not be parsed.
	ErrInvalidPrefix = New(KindInvalidPrefix, "could not parse CIDR prefix length")

	// ErrPrefixOutOfRange indicates a prefix length exceeds its address family bound.
	ErrPrefixOutOfRange = New(KindPrefixOutOfRange, "invalid CIDR subnet")

	// ErrDecodeMalformed indicates a key token contains no decodable segment.
	ErrDecodeMalformed = New(KindDecodeMalformed, "failed to deserialize access key")

	// ErrRngUnavailable indicates the secure random source failed.
	ErrRngUnavailable = New(KindRngUnavailable, "secure random source unavailable")

	// ErrInvalidKey indicates key material has the wrong length or the
	// secret and access keys do not belong together.
	ErrInvalidKey = New(KindInvalidKey, "invalid key material")

	// ErrConfiguration indicates a configuration error.
	ErrConfiguration = New(KindConfiguration, "configuration error")

	// ErrNotFound indicates a resource was not found.
	ErrNotFound = New(KindNotFound, "not found")

	// ErrAlreadyExists indicates a resource already exists.
	ErrAlreadyExists = New(KindAlreadyExists, "already exists")
)

// Error is a structured error with a kind, the field it concerns, and an
// optional source error.
type Error struct {
	// Kind categorizes the failure
	Kind Kind `json:"kind"`
	// Field names the input field at fault, if any
	Field string `json:"field,omitempty"`
	// Message is a user-facing description
	Message string `json:"message"`
	// Err is the underlying error, kept for diagnostics
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates a new structured error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// Wrap wraps an existing error with a kind and message.
func Wrap(kind Kind, message string, err error) *Error {
	if err != nil {
		log.WithField("kind", kind.String()).WithError(err).Debug("wrapping error")
	}
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// WithField returns a copy of e attributed to the named input field.
func (e *Error) WithField(field string) *Error {
	c := *e
	c.Field = field
	return &c
}

// KindOf returns the kind of the first *Error in err's tree, or KindInternal
// if there is none. A nil error has KindInternal as well; check err first.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsFatal reports whether err must abort network creation rather than be
// retried with different input.
func IsFatal(err error) bool {
	return errors.Is(err, ErrRngUnavailable)
}

// IsInputError reports whether err was caused by malformed user input that a
// caller can ask for again.
func IsInputError(err error) bool {
	switch KindOf(err) {
	case KindEmptyName, KindMissingField, KindInvalidAddress, KindInvalidPrefix,
		KindPrefixOutOfRange, KindDecodeMalformed:
		return true
	default:
		return false
	}
}
