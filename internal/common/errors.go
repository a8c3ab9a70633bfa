// Package common defines shared constants and sentinel errors used across
// the directory server and admin CLI. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Validation errors (missing required fields, no valid items).
	ErrValidation = errors.New("validation error")

	// Admin gate errors (bad or missing admin token).
	ErrUnauthorized = errors.New("unauthorized")

	// Object-store errors. Transport failures, timeouts and malformed
	// stored documents all surface as ErrStoreUnavailable; callers must
	// treat the outcome of the failed operation as unknown.
	ErrStoreUnavailable = errors.New("store unavailable")
)
