// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/ratelimit"
)

type contextKey string

const principalKey contextKey = "principal"

func withPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the principal set by the authentication
// middleware, or nil.
func PrincipalFrom(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(principalKey).(*auth.Principal)
	return p
}

// bearerToken extracts the credential from "Authorization: Bearer <x>".
// The scheme is case-insensitive.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// clientIP is the peer address of the connection.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// limit counts the request against identity and writes the rate limit
// headers. It reports whether the handler may proceed.
func (a *API) limit(w http.ResponseWriter, r *http.Request, identity string, op ratelimit.Operation) bool {
	decision, err := a.limiter.Check(r.Context(), identity, op)
	if decision.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if err != nil {
		a.writeError(w, r, err)
		return false
	}
	return true
}

// public rate limits an unauthenticated route by client IP.
func (a *API) public(op ratelimit.Operation, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.limit(w, r, "ip:"+clientIP(r), op) {
			return
		}
		next(w, r)
	})
}

// authenticated rate limits by client IP before the credential is
// resolved, so a rejected request never reaches the token or key path.
// Resolved requests are then also counted against the principal.
func (a *API) authenticated(op ratelimit.Operation, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.limit(w, r, "ip:"+clientIP(r), op) {
			return
		}
		p, err := a.resolver.Resolve(r.Context(), bearerToken(r))
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		if !a.limit(w, r, "account:"+p.SubjectID.String(), op) {
			return
		}
		next(w, r.WithContext(withPrincipal(r.Context(), p)))
	})
}

// require wraps an authenticated handler with an authorization check.
func (a *API) require(check func(*auth.Principal) error, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := check(PrincipalFrom(r.Context())); err != nil {
			a.writeError(w, r, err)
			return
		}
		next(w, r)
	}
}
