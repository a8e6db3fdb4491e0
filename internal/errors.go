package internal

import (
	"errors"
	"net/http"
)

// ErrPermissionDenied is the distinguished failure raised by authorization
// collaborators (entity loaders, services). The dispatcher reports it as 403
// whatever the wrapping error says.
var ErrPermissionDenied = errors.New("permission denied")

// Kind classifies a gateway failure.
type Kind int

const (
	KindInternal Kind = iota
	KindAuthenticationRequired
	KindInvalidCredential
	KindForbidden
	KindMethodNotAllowed
	KindBadRequest
	KindMissingArgument
	KindNotFound
	KindInvalidRequest
)

func (k Kind) String() string {
	switch k {
	case KindAuthenticationRequired:
		return "authentication_required"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindForbidden:
		return "forbidden"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	case KindBadRequest:
		return "bad_request"
	case KindMissingArgument:
		return "missing_argument"
	case KindNotFound:
		return "not_found"
	case KindInvalidRequest:
		return "invalid_request"
	default:
		return "internal"
	}
}

// Error is a gateway failure carrying everything needed to render an
// error envelope. Every pipeline stage returns one of these.
type Error struct {
	// Err is the underlying error (for logging, not exposed to callers).
	Err error

	// Message is the caller-facing message written to the envelope.
	Message string

	Kind Kind

	// Status is the HTTP status code of the envelope and response.
	Status int
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) StatusCode() int {
	return e.Status
}

func (e *Error) StatusText() string {
	return http.StatusText(e.Status)
}

// ErrorOption configures an Error.
type ErrorOption func(*Error)

// WithCause attaches the underlying error.
func WithCause(err error) ErrorOption {
	return func(e *Error) {
		e.Err = err
	}
}

// NewError creates an Error of the given kind, status and message.
func NewError(kind Kind, status int, message string, opts ...ErrorOption) *Error {
	e := &Error{Kind: kind, Status: status, Message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Convenience constructors, one per kind.

func ErrAuthenticationRequired(message string, opts ...ErrorOption) *Error {
	return NewError(KindAuthenticationRequired, http.StatusForbidden, message, opts...)
}

func ErrInvalidCredential(message string, opts ...ErrorOption) *Error {
	return NewError(KindInvalidCredential, http.StatusForbidden, message, opts...)
}

func ErrForbidden(message string, opts ...ErrorOption) *Error {
	return NewError(KindForbidden, http.StatusForbidden, message, opts...)
}

func ErrMethodNotAllowed(message string, opts ...ErrorOption) *Error {
	return NewError(KindMethodNotAllowed, http.StatusMethodNotAllowed, message, opts...)
}

func ErrBadRequest(message string, opts ...ErrorOption) *Error {
	return NewError(KindBadRequest, http.StatusBadRequest, message, opts...)
}

func ErrMissingArgument(message string, opts ...ErrorOption) *Error {
	return NewError(KindMissingArgument, http.StatusBadRequest, message, opts...)
}

// ErrMissingParameter reports a required method parameter that no argument
// satisfied. Unlike every other binding failure it carries status 500.
func ErrMissingParameter(message string, opts ...ErrorOption) *Error {
	return NewError(KindMissingArgument, http.StatusInternalServerError, message, opts...)
}

func ErrNotFound(message string, opts ...ErrorOption) *Error {
	return NewError(KindNotFound, http.StatusBadRequest, message, opts...)
}

func ErrInvalidRequest(message string, opts ...ErrorOption) *Error {
	return NewError(KindInvalidRequest, http.StatusBadRequest, message, opts...)
}

func ErrInternal(message string, opts ...ErrorOption) *Error {
	return NewError(KindInternal, http.StatusInternalServerError, message, opts...)
}

// IsError reports whether err is or wraps an *Error.
func IsError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// AsError extracts the *Error from err if present.
// Returns nil if err does not wrap one.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// Classify converts any error into an *Error. A failure wrapping
// ErrPermissionDenied is 403 whatever its own status, other gateway errors
// are returned as is and everything else is an internal failure that keeps
// the original message.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	if e := AsError(err); e != nil {
		if e.Status != http.StatusForbidden && errors.Is(err, ErrPermissionDenied) {
			forbidden := *e
			forbidden.Kind = KindForbidden
			forbidden.Status = http.StatusForbidden
			return &forbidden
		}
		return e
	}
	if errors.Is(err, ErrPermissionDenied) {
		return ErrForbidden(err.Error(), WithCause(err))
	}
	return ErrInternal(err.Error(), WithCause(err))
}
