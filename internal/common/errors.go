// Package common defines shared constants and sentinel errors used across
// client and server layers of dtodo. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrDuplicateIdentity is returned by the users repository when an insert
	// loses a race against a concurrent registration of the same identity key.
	ErrDuplicateIdentity = errors.New("identity already registered")

	// Service-level errors.
	ErrorInternal             = errors.New("internal error")
	ErrorUnauthorized         = errors.New("unauthorized")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	ErrExportDisabled         = errors.New("task export is not configured")

	// Validation errors.
	ErrInvalidIdentity = errors.New("invalid identity")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
