// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"slices"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Scope is a named capability carried by a credential.
type Scope string

// Known scopes.
const (
	ScopeRead  Scope = "read"
	ScopeWrite Scope = "write"
	ScopeAdmin Scope = "admin"

	// ScopeAll matches every scope.
	ScopeAll Scope = "*"
)

// Valid reports whether s is one of the assignable scopes.
func (s Scope) Valid() bool {
	return s == ScopeRead || s == ScopeWrite || s == ScopeAdmin
}

// ParseScopes normalizes raw scope names: trimmed, lower-cased,
// de-duplicated and sorted. Unknown names are rejected.
func ParseScopes(raw []string) ([]Scope, error) {
	seen := make(map[Scope]struct{}, len(raw))
	scopes := make([]Scope, 0, len(raw))
	for _, r := range raw {
		s := Scope(strings.ToLower(strings.TrimSpace(r)))
		if s == "" {
			continue
		}
		if !s.Valid() {
			return nil, oops.Code("AUTH_KEY_INVALID_SCOPE").
				With("scope", string(s)).
				Wrapf(ErrValidation, "unknown scope %q", s)
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		scopes = append(scopes, s)
	}
	slices.Sort(scopes)
	return scopes, nil
}

// JoinScopes renders scopes as a comma-separated list.
func JoinScopes(scopes []Scope) string {
	parts := make([]string, len(scopes))
	for i, s := range scopes {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

// SplitScopes parses a comma-separated list without validation.
func SplitScopes(s string) []Scope {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	scopes := make([]Scope, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			scopes = append(scopes, Scope(p))
		}
	}
	return scopes
}

// scopeGlobs caches compiled granted-scope patterns.
var scopeGlobs sync.Map // map[Scope]glob.Glob

// scopeGranted reports whether any granted pattern matches required.
// Patterns that fail to compile grant nothing.
func scopeGranted(granted []Scope, required Scope) bool {
	for _, g := range granted {
		if g == required {
			return true
		}
		if !strings.ContainsAny(string(g), "*?[{") {
			continue
		}
		var matcher glob.Glob
		if cached, ok := scopeGlobs.Load(g); ok {
			matcher, _ = cached.(glob.Glob)
		} else {
			compiled, err := glob.Compile(string(g), ':')
			if err != nil {
				continue
			}
			scopeGlobs.Store(g, compiled)
			matcher = compiled
		}
		if matcher != nil && matcher.Match(string(required)) {
			return true
		}
	}
	return false
}

// scopesWithin reports whether every requested scope is granted by allowed.
func scopesWithin(requested, allowed []Scope) (Scope, bool) {
	for _, s := range requested {
		if !scopeGranted(allowed, s) {
			return s, false
		}
	}
	return "", true
}
