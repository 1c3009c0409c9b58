// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// CredentialKind identifies which credential type authorized a call.
type CredentialKind string

// Credential kinds.
const (
	KindNone        CredentialKind = "none"
	KindAccessToken CredentialKind = "access_token"
	KindAPIKey      CredentialKind = "api_key"
	KindUnknown     CredentialKind = "unknown"
)

// ClassifyCredential performs a structural check on a raw credential.
// It never verifies anything.
func ClassifyCredential(raw string) CredentialKind {
	switch {
	case raw == "":
		return KindNone
	case strings.HasPrefix(raw, APIKeyPrefix):
		if hasSecretShape(raw, APIKeyPrefix) {
			return KindAPIKey
		}
		return KindUnknown
	case looksLikeJWT(raw):
		return KindAccessToken
	default:
		return KindUnknown
	}
}

func looksLikeJWT(raw string) bool {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" || !isBase64URL(p) {
			return false
		}
	}
	return true
}

// Principal is the authenticated caller of a request.
type Principal struct {
	SubjectID    ulid.ULID      `json:"subject_id"`
	Email        string         `json:"email"`
	Role         Role           `json:"role"`
	Scopes       []Scope        `json:"scopes"`
	Kind         CredentialKind `json:"kind"`
	CredentialID string         `json:"credential_id"`
}

// RequireRole fails unless p holds role. Admin satisfies every role.
func RequireRole(p *Principal, role Role) error {
	if p == nil {
		return oops.Code("AUTH_FORBIDDEN").With("required_role", string(role)).Wrap(ErrForbidden)
	}
	if p.Role == RoleAdmin || (p.Role == role && role.Valid()) {
		return nil
	}
	return oops.Code("AUTH_FORBIDDEN").
		With("required_role", string(role)).
		With("role", string(p.Role)).
		With("subject_id", p.SubjectID.String()).
		Wrap(ErrForbidden)
}

// RequireScope fails unless one of p's scopes grants scope.
func RequireScope(p *Principal, scope Scope) error {
	if p == nil {
		return oops.Code("AUTH_FORBIDDEN").With("required_scope", string(scope)).Wrap(ErrForbidden)
	}
	if scope != "" && scopeGranted(p.Scopes, scope) {
		return nil
	}
	return oops.Code("AUTH_FORBIDDEN").
		With("required_scope", string(scope)).
		With("scopes", JoinScopes(p.Scopes)).
		With("subject_id", p.SubjectID.String()).
		Wrap(ErrForbidden)
}

// RequireKind fails unless p was authorized by a credential of kind.
func RequireKind(p *Principal, kind CredentialKind) error {
	if p == nil {
		return oops.Code("AUTH_FORBIDDEN").With("required_kind", string(kind)).Wrap(ErrForbidden)
	}
	if p.Kind == kind {
		return nil
	}
	return oops.Code("AUTH_FORBIDDEN").
		With("required_kind", string(kind)).
		With("kind", string(p.Kind)).
		With("subject_id", p.SubjectID.String()).
		Wrap(ErrForbidden)
}
