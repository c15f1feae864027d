// Package reconerr defines the error taxonomy shared by the matching engine,
// the loaders and the CLI.
package reconerr

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorCode string

const (
	ErrInvalidKey      ErrorCode = "INVALID_KEY"
	ErrInvalidColumn   ErrorCode = "INVALID_COLUMN"
	ErrTypeMismatch    ErrorCode = "TYPE_MISMATCH"
	ErrInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	ErrLoadFailed      ErrorCode = "LOAD_FAILED"
	ErrNotFound        ErrorCode = "NOT_FOUND"
)

// Error carries a code plus the column and source (file or table label) it concerns.
type Error struct {
	Code    ErrorCode `json:"code"`
	Column  string    `json:"column,omitempty"`
	Source  string    `json:"source,omitempty"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	if e.Source != "" {
		fmt.Fprintf(&b, "%s: ", e.Source)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, "column %q: ", e.Column)
	}
	b.WriteString(e.Message)
	return b.String()
}

// Is matches another *Error with the same code. A target with a column set
// must also match the column.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	return t.Column == "" || t.Column == e.Column
}

// WithSource returns a copy of e tagged with source.
func (e *Error) WithSource(source string) *Error {
	c := *e
	c.Source = source
	return &c
}

func New(code ErrorCode, column, message string) *Error {
	return &Error{Code: code, Column: column, Message: message}
}

func InvalidKey(column, format string, args ...interface{}) *Error {
	return New(ErrInvalidKey, column, fmt.Sprintf(format, args...))
}

func InvalidColumn(column, format string, args ...interface{}) *Error {
	return New(ErrInvalidColumn, column, fmt.Sprintf(format, args...))
}

func TypeMismatch(column, format string, args ...interface{}) *Error {
	return New(ErrTypeMismatch, column, fmt.Sprintf(format, args...))
}

func InvalidArgument(name, format string, args ...interface{}) *Error {
	return New(ErrInvalidArgument, name, fmt.Sprintf(format, args...))
}

func LoadFailed(source, format string, args ...interface{}) *Error {
	return &Error{Code: ErrLoadFailed, Source: source, Message: fmt.Sprintf(format, args...)}
}

func NotFound(source, format string, args ...interface{}) *Error {
	return &Error{Code: ErrNotFound, Source: source, Message: fmt.Sprintf(format, args...)}
}

// Is reports whether err, or anything it wraps, is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	return errors.Is(err, &Error{Code: code})
}

// CodeOf returns the code of the first *Error in err's chain, or "" if there is none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ExitCode maps an error to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch CodeOf(err) {
	case ErrInvalidKey, ErrInvalidColumn, ErrTypeMismatch, ErrInvalidArgument:
		return 2
	case ErrLoadFailed, ErrNotFound:
		return 3
	default:
		return 1
	}
}
