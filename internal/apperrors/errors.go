// Package apperrors defines the error taxonomy shared by the clip session engine
// and its HTTP surface. Every failure surfaced to a client carries a Kind and a
// human readable message.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the category of a failure. It doubles as the response code.
type Kind string

const (
	// KindNotFound: unknown session, missing snapshot file.
	KindNotFound Kind = "NOT_FOUND"
	// KindValidation: missing fields, malformed body, nonexistent render paths.
	KindValidation Kind = "VALIDATION"
	// KindIndex: clip index outside [0, len(clips)).
	KindIndex Kind = "INDEX_OUT_OF_RANGE"
	// KindEmptySession: export requested for a session without clips.
	KindEmptySession Kind = "EMPTY_SESSION"
	// KindUnavailable: playback position provider unreachable or unparsable.
	KindUnavailable Kind = "UNAVAILABLE"
	// KindIO: persistence or export filesystem failure.
	KindIO Kind = "IO_ERROR"
	// KindInternal: anything else.
	KindInternal Kind = "INTERNAL"
)

// Sentinels for errors.Is matching on kind alone.
var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrIndex        = &Error{Kind: KindIndex}
	ErrEmptySession = &Error{Kind: KindEmptySession}
	ErrUnavailable  = &Error{Kind: KindUnavailable}
	ErrIO           = &Error{Kind: KindIO}
	ErrInternal     = &Error{Kind: KindInternal}
)

// Error is a categorized failure with an optional underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports a match when target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// HTTPStatus maps the error kind to a response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindIndex, KindEmptySession:
		return http.StatusBadRequest
	case KindUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Index(index, length int) *Error {
	return &Error{Kind: KindIndex, Message: fmt.Sprintf("clip index %d out of range [0, %d)", index, length)}
}

func EmptySession(sessionID string) *Error {
	return &Error{Kind: KindEmptySession, Message: fmt.Sprintf("session %s has no clips", sessionID)}
}

func Unavailable(message string, cause error) *Error {
	return &Error{Kind: KindUnavailable, Message: message, Cause: cause}
}

func IO(message string, cause error) *Error {
	return &Error{Kind: KindIO, Message: message, Cause: cause}
}

func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Cause: cause}
}

// As converts any error into an *Error, wrapping unknown errors as internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("internal error", err)
}

// KindOf returns the Kind of err, or KindInternal for uncategorized errors.
func KindOf(err error) Kind {
	return As(err).Kind
}
