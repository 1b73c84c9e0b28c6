// Package failure carries the single tagged error type used across the
// session core. Dispatch classifies every error it sees by Kind.
package failure

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

type Kind uint8

const (
	// KindInternal is the zero value so unclassified errors land here.
	KindInternal Kind = iota
	KindProtocol
	KindDomain
)

func (k Kind) String() string {
	switch k {
	case KindProtocol:
		return "protocol"
	case KindDomain:
		return "domain"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil && e.Message == "" {
		return e.cause.Error()
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Domain is a named, user-facing condition. Its message is shown verbatim to
// the acting client.
func Domain(message string) error {
	return &Error{Kind: KindDomain, Message: message}
}

func Domainf(format string, args ...interface{}) error {
	return Domain(fmt.Sprintf(format, args...))
}

// Protocol marks malformed input. It is never shown to the peer.
func Protocol(format string, args ...interface{}) error {
	return &Error{Kind: KindProtocol, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected error with a stack trace.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindInternal, cause: pkgerrors.WithStack(err)}
}

// KindOf reports the kind of err. Errors that are not *Error are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsDomain(err error) bool {
	return err != nil && KindOf(err) == KindDomain
}

// Message returns the user-facing text of a domain error.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindDomain {
		return e.Message
	}
	return err.Error()
}
