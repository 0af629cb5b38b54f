// Package trerr defines the error taxonomy shared by the realtime
// translation client and its collaborators.
package trerr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConnection Kind = "connection"
	KindAudio      Kind = "audio"
	KindAPI        Kind = "api"
	KindUnknown    Kind = "unknown"
)

// Error carries a kind, a human-readable message, and whether the
// session can keep going after it. Recoverability never triggers a
// retry by itself; it only tells the state machine whether to keep
// the turn state alive.
type Error struct {
	Kind        Kind
	Message     string
	Recoverable bool
	Cause       error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Connection(msg string, cause error) *Error {
	return &Error{Kind: KindConnection, Message: msg, Recoverable: false, Cause: cause}
}

func Audio(msg string, cause error) *Error {
	return &Error{Kind: KindAudio, Message: msg, Recoverable: false, Cause: cause}
}

// API wraps an error event reported by the remote service. Errors of
// type "authentication" are never recoverable; everything else the
// service reports is, unless it arrives alongside a transport failure.
func API(errType, msg string) *Error {
	return &Error{
		Kind:        KindAPI,
		Message:     msg,
		Recoverable: errType != "authentication",
	}
}

func Unknown(msg string, cause error) *Error {
	return &Error{Kind: KindUnknown, Message: msg, Recoverable: true, Cause: cause}
}

// KindOf reports the kind of err if it is (or wraps) a *Error,
// otherwise KindUnknown.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnknown
}
