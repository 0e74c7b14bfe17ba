// ROGMAR - Docker Compose Stack Templates and Backup Orchestration
// Copyright 2026 ipukeone
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ipukeone/rogmar

// Package errdefs defines the error taxonomy shared by the template
// assembler and the backup/restore chain manager.
//
// Every fatal category aborts the current invocation immediately and leaves
// prior state untouched. Callers classify errors with the Is* predicates
// rather than string matching:
//
//	if errdefs.IsPrecondition(err) {
//	    // refuse and exit non-zero, nothing was modified
//	}
//
// Duplicate environment variables and the incremental-to-full fallback are
// deliberately NOT errors; they are logged as warnings at the call site.
package errdefs

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the fatal categories.
type Kind int

const (
	// KindUnknown is the zero value; never constructed explicitly.
	KindUnknown Kind = iota

	// KindConfig: missing or empty required declarations.
	KindConfig

	// KindFetch: remote template retrieval failure (network, auth).
	KindFetch

	// KindNotFound: a requested ref, subpath, or artifact does not exist.
	KindNotFound

	// KindChainInconsistent: gap in the incremental backup sequence.
	KindChainInconsistent

	// KindPrecondition: environment not in the required state (database
	// still running, insufficient disk space, non-writable target).
	KindPrecondition

	// KindToolFailure: an external backup/restore/dump command exited
	// non-zero.
	KindToolFailure
)

// String returns the diagnostic prefix for the kind.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config error"
	case KindFetch:
		return "fetch error"
	case KindNotFound:
		return "not found"
	case KindChainInconsistent:
		return "chain inconsistent"
	case KindPrecondition:
		return "precondition failed"
	case KindToolFailure:
		return "tool failure"
	default:
		return "error"
	}
}

// Error is a classified error. It wraps an optional cause.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Kind returns the error's classification.
func (e *Error) Kind() Kind {
	return e.kind
}

// newError constructs a classified error with a formatted message.
func newError(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// wrapError constructs a classified error wrapping a cause.
func wrapError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), cause: cause}
}

// Config returns a new ConfigError.
func Config(format string, args ...any) error {
	return newError(KindConfig, format, args...)
}

// WrapConfig wraps a cause as a ConfigError.
func WrapConfig(cause error, format string, args ...any) error {
	return wrapError(KindConfig, cause, format, args...)
}

// Fetch returns a new FetchError.
func Fetch(format string, args ...any) error {
	return newError(KindFetch, format, args...)
}

// WrapFetch wraps a cause as a FetchError.
func WrapFetch(cause error, format string, args ...any) error {
	return wrapError(KindFetch, cause, format, args...)
}

// NotFound returns a new NotFoundError.
func NotFound(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

// ChainInconsistent returns a new ChainInconsistentError.
func ChainInconsistent(format string, args ...any) error {
	return newError(KindChainInconsistent, format, args...)
}

// Precondition returns a new PreconditionError.
func Precondition(format string, args ...any) error {
	return newError(KindPrecondition, format, args...)
}

// WrapPrecondition wraps a cause as a PreconditionError.
func WrapPrecondition(cause error, format string, args ...any) error {
	return wrapError(KindPrecondition, cause, format, args...)
}

// ToolFailure returns a new ToolFailureError.
func ToolFailure(format string, args ...any) error {
	return newError(KindToolFailure, format, args...)
}

// WrapToolFailure wraps a cause as a ToolFailureError.
func WrapToolFailure(cause error, format string, args ...any) error {
	return wrapError(KindToolFailure, cause, format, args...)
}

// kindOf extracts the Kind from an error chain, or KindUnknown.
func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

// IsConfig reports whether err is a ConfigError.
func IsConfig(err error) bool { return kindOf(err) == KindConfig }

// IsFetch reports whether err is a FetchError.
func IsFetch(err error) bool { return kindOf(err) == KindFetch }

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool { return kindOf(err) == KindNotFound }

// IsChainInconsistent reports whether err is a ChainInconsistentError.
func IsChainInconsistent(err error) bool { return kindOf(err) == KindChainInconsistent }

// IsPrecondition reports whether err is a PreconditionError.
func IsPrecondition(err error) bool { return kindOf(err) == KindPrecondition }

// IsToolFailure reports whether err is a ToolFailureError.
func IsToolFailure(err error) bool { return kindOf(err) == KindToolFailure }
