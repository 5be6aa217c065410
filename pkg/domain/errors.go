package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced by the data access layer so the view
// layer can render a specific message.
type ErrorKind string

// Error kinds. See Error for how they are matched.
const (
	KindUnknownSource     ErrorKind = "unknown_source"
	KindSourceUnavailable ErrorKind = "source_unavailable"
	KindNoSourceAvailable ErrorKind = "no_source_available"
	KindFetchFailed       ErrorKind = "fetch_failed"
	KindParseFailed       ErrorKind = "parse_failed"
	// KindSuperseded marks a load whose result was discarded because a newer
	// load or switch started after it.
	KindSuperseded ErrorKind = "superseded"
)

// Sentinels for errors.Is checks. Any *Error with the same kind matches.
var (
	ErrUnknownSource     = &Error{Kind: KindUnknownSource}
	ErrSourceUnavailable = &Error{Kind: KindSourceUnavailable}
	ErrNoSourceAvailable = &Error{Kind: KindNoSourceAvailable}
	ErrFetchFailed       = &Error{Kind: KindFetchFailed}
	ErrParseFailed       = &Error{Kind: KindParseFailed}
	ErrSuperseded        = &Error{Kind: KindSuperseded}
)

// Error is the single error type of the data access layer.
type Error struct {
	Kind   ErrorKind
	Source SourceID
	Err    error
}

// NewError builds an Error of the given kind.
func NewError(kind ErrorKind, source SourceID, err error) *Error {
	return &Error{Kind: kind, Source: source, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Source != "" {
		msg = fmt.Sprintf("%s: source %s", msg, e.Source)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
