package defs

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a ClientError so callers can branch on the failure
// class without matching on message text.
type ErrorKind int

const (
	// ErrorKindConfig covers client-creation failures: unparseable endpoint,
	// invalid proxy format, unreadable TLS material.
	ErrorKindConfig ErrorKind = iota + 1

	// ErrorKindValidation covers missing or malformed input fields, detected
	// before any network call is made.
	ErrorKindValidation

	// ErrorKindTransport covers connection, TLS handshake and timeout
	// failures. These are the only errors a caller may reasonably retry.
	ErrorKindTransport

	// ErrorKindProtocol covers a non-2xx HTTP status or a GraphQL error
	// array present in the response body.
	ErrorKindProtocol

	// ErrorKindParse covers malformed or truncated JSON in a response.
	ErrorKindParse

	// ErrorKindMapping covers a well-formed response missing a required
	// field.
	ErrorKindMapping
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindConfig:
		return "config"
	case ErrorKindValidation:
		return "validation"
	case ErrorKindTransport:
		return "transport"
	case ErrorKindProtocol:
		return "protocol"
	case ErrorKindParse:
		return "parse"
	case ErrorKindMapping:
		return "mapping"
	}
	return "unknown"
}

// ClientError is the error type returned by the registry and inference
// clients. The zero values of Status and Offset mean "not applicable".
type ClientError struct {
	Kind     ErrorKind
	Detail   string
	Status   int      // HTTP status, protocol errors only
	Offset   int      // byte offset where scanning stopped, parse errors only
	Messages []string // verbatim GraphQL error messages, when present
	cause    error
}

func (e *ClientError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(" error")
	if e.Detail != EmptyString {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Kind == ErrorKindParse {
		fmt.Fprintf(&b, " (offset %d)", e.Offset)
	}
	if len(e.Messages) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Messages, "; "))
	}
	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	return b.String()
}

func (e *ClientError) Unwrap() error {
	return e.cause
}

// WithDetail sets the human-readable detail and returns the error.
func (e *ClientError) WithDetail(detail string) *ClientError {
	e.Detail = detail
	return e
}

// WithCause attaches an underlying error and returns the error.
func (e *ClientError) WithCause(cause error) *ClientError {
	e.cause = cause
	return e
}

func ErrConfig() *ClientError {
	return &ClientError{Kind: ErrorKindConfig}
}

func ErrValidation() *ClientError {
	return &ClientError{Kind: ErrorKindValidation}
}

func ErrTransport() *ClientError {
	return &ClientError{Kind: ErrorKindTransport}
}

func ErrProtocol(status int) *ClientError {
	return &ClientError{Kind: ErrorKindProtocol, Status: status}
}

// ErrGraphQL builds a protocol error from the messages of a GraphQL error
// array. The messages are kept verbatim.
func ErrGraphQL(status int, messages []string) *ClientError {
	return &ClientError{
		Kind:     ErrorKindProtocol,
		Status:   status,
		Detail:   "graphql error response",
		Messages: messages,
	}
}

func ErrParse(offset int) *ClientError {
	return &ClientError{Kind: ErrorKindParse, Offset: offset}
}

func ErrMapping() *ClientError {
	return &ClientError{Kind: ErrorKindMapping}
}

// KindOf returns the ErrorKind of err, or 0 when err is not a ClientError.
func KindOf(err error) ErrorKind {
	if ce, ok := err.(*ClientError); ok {
		return ce.Kind
	}
	return 0
}
