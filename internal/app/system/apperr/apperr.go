// internal/app/system/apperr/apperr.go

// Package apperr defines the error taxonomy shared by the notification core
// and the HTTP layer. Operations wrap these sentinels with context via
// fmt.Errorf("...: %w", ...); handlers map them to status codes with
// errors.Is.
//
// Queries never surface ErrUnauthenticated to the caller; they degrade to
// empty results. Mutations fail fast with whichever sentinel applies, before
// any write happens.
package apperr

import "errors"

var (
	// ErrUnauthenticated means no principal could be resolved.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNotFound means a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized means the principal lacks the required role or
	// membership for the action.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict means a uniqueness constraint or cooldown was violated.
	ErrConflict = errors.New("conflict")
)
