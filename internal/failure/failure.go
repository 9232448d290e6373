// Package failure classifies errors crossing the client core into the kinds
// the UI reacts to differently.
package failure

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Unknown Kind = iota
	AuthenticationFailure
	AuthorizationDenied
	Conflict
	ValidationFailure
	NetworkFailure
	ServerFailure
	NotFound
)

func (k Kind) String() string {
	switch k {
	case AuthenticationFailure:
		return "authentication_failure"
	case AuthorizationDenied:
		return "authorization_denied"
	case Conflict:
		return "conflict"
	case ValidationFailure:
		return "validation_failure"
	case NetworkFailure:
		return "network_failure"
	case ServerFailure:
		return "server_failure"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Transient reports whether the user may simply retry.
func (k Kind) Transient() bool {
	return k == NetworkFailure || k == ServerFailure
}

// Error is a classified failure. Message is safe to show; Err carries the raw
// cause for logs.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind so errors.Is(err, failure.ErrConflict) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrAuthentication = &Error{Kind: AuthenticationFailure}
	ErrDenied         = &Error{Kind: AuthorizationDenied}
	ErrConflict       = &Error{Kind: Conflict}
	ErrValidation     = &Error{Kind: ValidationFailure}
	ErrNetwork        = &Error{Kind: NetworkFailure}
	ErrServer         = &Error{Kind: ServerFailure}
	ErrNotFound       = &Error{Kind: NotFound}
)

func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Denied is returned when the authorization gate rejects an action before any
// request is sent.
func Denied(op string) *Error {
	return &Error{Kind: AuthorizationDenied, Op: op, Message: "not permitted"}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// WithOp returns a copy of err's *Error labelled with op, or wraps err as
// Unknown when it is not classified.
func WithOp(op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		cp := *fe
		cp.Op = op
		return &cp
	}
	return Wrap(Unknown, op, err)
}

// UserMessage returns text suitable for a point-of-action alert.
func UserMessage(err error) string {
	switch KindOf(err) {
	case AuthenticationFailure:
		var fe *Error
		if errors.As(err, &fe) && fe.Message != "" {
			return fe.Message
		}
		return "please log in again"
	case AuthorizationDenied:
		return "you are not allowed to do that"
	case Conflict:
		return "the email is already registered"
	case ValidationFailure:
		var fe *Error
		if errors.As(err, &fe) && fe.Message != "" {
			return fe.Message
		}
		return "please fill in all required fields"
	case NetworkFailure:
		return "no connection to the server, try again"
	case ServerFailure:
		return "server error, try again later"
	case NotFound:
		return "the item no longer exists"
	default:
		return "something went wrong"
	}
}
