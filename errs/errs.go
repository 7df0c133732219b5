// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package errs defines the protocol error kinds reported by bank and
// subscriber operations. Every failure is synchronous; none are retried
// here. InvariantViolation is the one fatal kind: it means the coverage
// invariant broke despite all individual checks passing.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a protocol failure.
type Kind string

const (
	Unauthorized        Kind = "unauthorized"
	InvalidArgument     Kind = "invalid argument"
	NotFound            Kind = "not found"
	AlreadyExists       Kind = "already exists"
	AlreadyActive       Kind = "already active"
	AlreadyInactive     Kind = "already inactive"
	Inactive            Kind = "inactive"
	InsufficientBalance Kind = "insufficient balance"
	Overflow            Kind = "overflow"
	TransferFailed      Kind = "transfer failed"
	InvariantViolation  Kind = "invariant violation"
)

// Error carries a kind plus context about the failing operation.
type Error struct {
	kind    Kind
	message string
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{
		kind:    kind,
		message: fmt.Sprintf(format, args...),
	}
}

func (e *Error) Error() string {
	if e.message == "" {
		return string(e.kind)
	}
	return string(e.kind) + ": " + e.message
}

// Kind returns the error's kind.
func (e *Error) Kind() Kind {
	return e.kind
}

// KindOf extracts the kind from err, or "" if err is not a protocol error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return ""
}

// Is reports whether err is a protocol error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsFatal reports whether err indicates a protocol bookkeeping bug rather
// than a recoverable caller mistake.
func IsFatal(err error) bool {
	return Is(err, InvariantViolation)
}
