// Package common defines shared sentinel errors and small helpers used across
// the card vault. Callers should use errors.Is to match these values; typed
// errors elsewhere (validation, lockout) report true for the matching sentinel.
package common

import "errors"

var (
	// Input errors. Callers correct the input and retry.
	ErrValidation = errors.New("validation failed")

	// Session and authentication errors.
	ErrUnauthorized       = errors.New("unauthorized")
	ErrLockedOut          = errors.New("too many failed unlock attempts")
	ErrLocked             = errors.New("vault is locked")
	ErrAlreadyInitialized = errors.New("vault already initialized")

	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")

	// Data errors. ErrIntegrity means the ciphertext was tampered with or
	// sealed under a different key; the record cannot be recovered.
	ErrIntegrity          = errors.New("integrity check failed")
	ErrUnsupportedVersion = errors.New("unsupported backup version")
)
