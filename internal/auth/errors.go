// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"fmt"
)

// Error taxonomy. Callers match these with errors.Is; the oops codes
// wrapped around them carry the detail for logs.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotOwner is returned when an entity exists but belongs to another account.
	ErrNotOwner = errors.New("not owner")

	// ErrConflict is returned when a write loses to a concurrent or duplicate write.
	ErrConflict = errors.New("conflict")

	// ErrValidation is returned when caller input fails validation.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthenticated is returned when a credential is missing, invalid or expired.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when an authenticated principal lacks a capability.
	ErrForbidden = errors.New("forbidden")

	// ErrStoreUnavailable is returned when the persistence layer cannot serve a request.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Credential-specific failures. Each one wraps a taxonomy error so the
// boundary can collapse them into a single generic denial.
var (
	ErrTokenExpired      = fmt.Errorf("access token expired: %w", ErrUnauthenticated)
	ErrTokenBadSignature = fmt.Errorf("access token signature invalid: %w", ErrUnauthenticated)
	ErrTokenMalformed    = fmt.Errorf("access token malformed: %w", ErrUnauthenticated)

	ErrRefreshNotFound = fmt.Errorf("refresh token not found: %w", ErrUnauthenticated)
	ErrRefreshExpired  = fmt.Errorf("refresh token expired: %w", ErrUnauthenticated)
	ErrRefreshRevoked  = fmt.Errorf("refresh token already revoked: %w: %w", ErrConflict, ErrUnauthenticated)
)
