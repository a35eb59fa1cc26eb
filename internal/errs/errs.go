// Package errs defines the error kinds the storage core distinguishes and
// the classifier the command layer uses to map them to the two externally
// visible reasons ("client" or "server").
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies one of the error categories the storage core returns.
type Kind string

const (
	NotFound       Kind = "not_found"
	AlreadyExists  Kind = "already_exists"
	Unauthorized   Kind = "unauthorized"
	InvalidArg     Kind = "invalid_argument"
	ParentMissing  Kind = "parent_missing"
	CorruptLog     Kind = "corrupt_log"
	StoreNotLoaded Kind = "store_not_loaded"
	Io             Kind = "io"
	Crypto         Kind = "crypto"
	Backend        Kind = "backend"
	Conflict       Kind = "conflict"
)

// Error wraps an underlying cause with a Kind so callers can classify it
// with errors.As without string-matching messages.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a Kind-tagged error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags an existing error with a Kind, preserving it for errors.Is/As.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Is reports whether err (or any error it wraps) has the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Reason is the externally visible classification every storage-core
// error reduces to: either the caller's fault ("client") or ours
// ("server"). Unrecognized errors default to server, never client, so an
// unexpected failure mode never gets silently presented as a
// malformed-request to an end user.
type Reason string

const (
	ReasonClient Reason = "client"
	ReasonServer Reason = "server"
)

// Classify maps a Kind to the two-value reason the command layer exposes.
func Classify(err error) Reason {
	var e *Error
	if !errors.As(err, &e) {
		return ReasonServer
	}
	switch e.Kind {
	case NotFound, Unauthorized, InvalidArg, ParentMissing:
		return ReasonClient
	default:
		return ReasonServer
	}
}
