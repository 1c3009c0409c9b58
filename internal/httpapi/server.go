// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/samber/oops"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/ratelimit"
)

// Deps are the collaborators the API serves.
type Deps struct {
	Service  *auth.Service
	Keys     *auth.KeyManager
	Resolver *auth.Resolver
	Limiter  *ratelimit.Limiter
	Logger   *slog.Logger
}

// API routes requests to the auth core.
type API struct {
	service  *auth.Service
	keys     *auth.KeyManager
	resolver *auth.Resolver
	limiter  *ratelimit.Limiter
	logger   *slog.Logger
	router   *mux.Router
}

// New creates an API. Every dependency except Logger is required.
func New(deps Deps) (*API, error) {
	switch {
	case deps.Service == nil:
		return nil, oops.Code("HTTPAPI_INVALID_DEPENDENCY").Errorf("service is required")
	case deps.Keys == nil:
		return nil, oops.Code("HTTPAPI_INVALID_DEPENDENCY").Errorf("key manager is required")
	case deps.Resolver == nil:
		return nil, oops.Code("HTTPAPI_INVALID_DEPENDENCY").Errorf("resolver is required")
	case deps.Limiter == nil:
		return nil, oops.Code("HTTPAPI_INVALID_DEPENDENCY").Errorf("rate limiter is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &API{
		service:  deps.Service,
		keys:     deps.Keys,
		resolver: deps.Resolver,
		limiter:  deps.Limiter,
		logger:   logger,
	}
	a.router = a.routes()
	return a, nil
}

// Handler returns the traced root handler.
func (a *API) Handler() http.Handler {
	return otelhttp.NewHandler(a.router, "authcore")
}

func (a *API) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "resource not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method_not_allowed"})
	})

	r.Handle("/auth/signup", a.public(ratelimit.OpSignup, a.handleSignup)).Methods(http.MethodPost)
	r.Handle("/auth/login", a.public(ratelimit.OpLogin, a.handleLogin)).Methods(http.MethodPost)
	r.Handle("/auth/refresh", a.public(ratelimit.OpRefresh, a.handleRefresh)).Methods(http.MethodPost)
	r.Handle("/auth/logout", a.public(ratelimit.OpRefresh, a.handleLogout)).Methods(http.MethodPost)
	r.Handle("/auth/logout/all", a.authenticated(ratelimit.OpRefresh, a.handleLogoutAll)).Methods(http.MethodPost)
	r.Handle("/auth/me", a.authenticated(ratelimit.OpDefault, a.handleMe)).Methods(http.MethodGet)

	r.Handle("/keys", a.authenticated(ratelimit.OpKeys, a.handleCreateKey)).Methods(http.MethodPost)
	r.Handle("/keys", a.authenticated(ratelimit.OpKeys, a.handleListKeys)).Methods(http.MethodGet)
	r.Handle("/keys/{id}/revoke", a.authenticated(ratelimit.OpKeys, a.handleRevokeKey)).Methods(http.MethodPost)
	r.Handle("/keys/{id}", a.authenticated(ratelimit.OpKeys, a.handleDeleteKey)).Methods(http.MethodDelete)

	r.Handle("/protected/user", a.authenticated(ratelimit.OpDefault, a.handleUserRoute)).Methods(http.MethodGet)
	r.Handle("/protected/service", a.authenticated(ratelimit.OpDefault,
		a.require(requireServiceKey, a.handleServiceRoute))).Methods(http.MethodGet)
	r.Handle("/protected/admin", a.authenticated(ratelimit.OpDefault,
		a.require(requireAdmin, a.handleAdminRoute))).Methods(http.MethodGet)

	return r
}

func requireServiceKey(p *auth.Principal) error {
	if err := auth.RequireKind(p, auth.KindAPIKey); err != nil {
		return err
	}
	return auth.RequireScope(p, auth.ScopeRead)
}

func requireAdmin(p *auth.Principal) error {
	return auth.RequireRole(p, auth.RoleAdmin)
}
