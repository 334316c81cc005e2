// Package errors holds the sentinel errors of the chat service. Call sites
// classify failures with the Is* helpers instead of importing the standard
// errors package next to this one.
package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrInvalidHandle   = fmt.Errorf("invalid handle")
	ErrDuplicateHandle = fmt.Errorf("handle already in use")
	ErrEmptyContent    = fmt.Errorf("empty message content")
	ErrContentTooLong  = fmt.Errorf("message content too long")
	ErrInvalidContent  = fmt.Errorf("message content contains control characters")
	ErrUnknownSession  = fmt.Errorf("unknown session")
	ErrSessionClosed   = fmt.Errorf("session closed")
	ErrStorage         = fmt.Errorf("storage failure")
	ErrEmptyWords      = fmt.Errorf("no words have been found")
	ErrWorkerPanic     = fmt.Errorf("worker panic")
)

// Storage wraps an underlying persistence fault so callers can match it with
// IsStorage while keeping the cause in the chain.
func Storage(op string, err error) error {
	return fmt.Errorf("%s: %w", op, stderrors.Join(ErrStorage, err))
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// IsValidation reports whether err is a synchronous input rejection:
// never persisted, reported to the originating connection only.
func IsValidation(err error) bool {
	return stderrors.Is(err, ErrInvalidHandle) ||
		stderrors.Is(err, ErrEmptyContent) ||
		stderrors.Is(err, ErrContentTooLong) ||
		stderrors.Is(err, ErrInvalidContent)
}

// IsConflict reports whether err is a join or identity-creation collision.
func IsConflict(err error) bool {
	return stderrors.Is(err, ErrDuplicateHandle)
}

func IsStorage(err error) bool {
	return stderrors.Is(err, ErrStorage)
}
