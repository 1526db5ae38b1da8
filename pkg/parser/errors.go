package parser

import (
	"errors"
	"fmt"
)

// ParseError is a classified parse failure with source position context.
type ParseError struct {
	// Message is the human-readable error message.
	Message string

	// Input is the source text being parsed.
	Input string

	// Pos is the position string ("line:col") when known.
	Pos string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := "parse: " + e.Message
	if e.Pos != "" {
		msg += " at " + e.Pos
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError creates a parse error.
func NewParseError(message string, err error) *ParseError {
	return &ParseError{Message: message, Err: err}
}

// WithPos attaches a source position.
func (e *ParseError) WithPos(line, col int32) *ParseError {
	e.Pos = fmt.Sprintf("%d:%d", line, col)
	return e
}

// IsParseError reports whether err is a parse failure.
func IsParseError(err error) bool {
	var e *ParseError
	return errors.As(err, &e)
}
