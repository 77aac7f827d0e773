package api

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed call.
type ErrorKind int

const (
	// KindTransport covers transport failures and non-2xx responses.
	KindTransport ErrorKind = iota
	// KindApplication is a 2xx response whose body reports success=false.
	KindApplication
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindApplication:
		return "application"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is returned by every Client operation that fails.
//
// Message is meant to be shown to the user as is: it is the backend's own
// error text when there is one, otherwise the transport error or HTTP
// status text.
type Error struct {
	Kind    ErrorKind
	Op      string
	Status  int // HTTP status, 0 when no response was received
	Message string
	Err     error
}

// Error returns the user-facing message.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying transport error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsApplication reports whether err is an application-declared failure.
func IsApplication(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindApplication
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
