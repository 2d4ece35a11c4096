package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure a job can end with.
type ErrorKind string

const (
	KindInvalidConfig     ErrorKind = "invalid_config"
	KindNetwork           ErrorKind = "network"
	KindEmptyResponse     ErrorKind = "empty_response"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindDependencyMissing ErrorKind = "dependency_missing"
	KindConversionFailed  ErrorKind = "conversion_failed"
	KindConversionTimeout ErrorKind = "conversion_timeout"
	KindFilesystem        ErrorKind = "filesystem_error"

	// KindUnexpected is assigned by the job runner to faults nobody classified.
	KindUnexpected ErrorKind = "unexpected"
)

// Title returns a short human label for the kind.
func (k ErrorKind) Title() string {
	switch k {
	case KindInvalidConfig:
		return "Invalid configuration"
	case KindNetwork:
		return "Network error"
	case KindEmptyResponse:
		return "Empty response"
	case KindMalformedResponse:
		return "Malformed response"
	case KindDependencyMissing:
		return "Missing dependency"
	case KindConversionFailed:
		return "Conversion failed"
	case KindConversionTimeout:
		return "Conversion timed out"
	case KindFilesystem:
		return "Filesystem error"
	default:
		return "Unexpected error"
	}
}

// Error is the typed error raised by the gateway and the artifact writer.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates an Error of the given kind with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind that wraps err.
func Wrap(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// AsError extracts the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindUnexpected for errors that carry none.
func KindOf(err error) ErrorKind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return KindUnexpected
}
