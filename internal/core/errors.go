package core

import (
	"errors"
	"strconv"
	"strings"
)

// Predefined errors returned by querykit operations.
var (
	// ErrNoRows is returned when a query that expects rows returns no results.
	ErrNoRows = errors.New("no rows in result set")
	// ErrInvalidDestination is returned when a scan target has an unsupported type.
	ErrInvalidDestination = errors.New("invalid scan destination")
	// ErrNilDescriptor is returned when an assembler receives a nil descriptor.
	ErrNilDescriptor = errors.New("descriptor is nil")
)

// ValidationError reports builder misuse: an invalid descriptor call, or a
// statement that cannot be assembled from an otherwise valid descriptor.
type ValidationError struct {
	// Op is the builder call or assembler that failed.
	Op string
	// Field is the offending field or filter name, if any.
	Field string
	// Reason describes the problem.
	Reason string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Field != "" {
		b.WriteString(" (field ")
		b.WriteString(strconv.Quote(e.Field))
		b.WriteString(")")
	}
	return b.String()
}

// UnresolvedFieldError reports a projected or updated name that matches
// neither a field nor a column of the table.
type UnresolvedFieldError struct {
	Field string
	Table string
}

func (e *UnresolvedFieldError) Error() string {
	return "unknown field " + strconv.Quote(e.Field) + " in table " + strconv.Quote(e.Table)
}

func invalid(op, field, reason string) *ValidationError {
	return &ValidationError{Op: op, Field: field, Reason: reason}
}

// WrapError wraps an error with additional context message.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}
