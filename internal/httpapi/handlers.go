// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/auth"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type accountResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      auth.Role `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func newAccountResponse(a *auth.Account) accountResponse {
	return accountResponse{
		ID:        a.ID.String(),
		Email:     a.Email,
		Role:      a.Role,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
	}
}

// handleSignup registers a user account. Self-service signup never grants
// the admin role.
func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	account, err := a.service.Signup(r.Context(), req.Email, req.Password, auth.RoleUser)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAccountResponse(account))
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pair, err := a.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pair, err := a.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := a.service.Logout(r.Context(), req.RefreshToken); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLogoutAll revokes every refresh token of the caller.
func (a *API) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())
	n, err := a.service.LogoutAll(r.Context(), p.SubjectID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"revoked": n})
}

type meResponse struct {
	accountResponse
	AuthType auth.CredentialKind `json:"auth_type"`
	Scopes   []auth.Scope        `json:"scopes"`
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFrom(r.Context())
	account, err := a.service.Account(r.Context(), p.SubjectID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		accountResponse: newAccountResponse(account),
		AuthType:        p.Kind,
		Scopes:          p.Scopes,
	})
}

type createKeyRequest struct {
	Label         string   `json:"label"`
	Scopes        []string `json:"scopes"`
	ExpiresInDays int      `json:"expires_in_days"`
}

type createdKeyResponse struct {
	ID        string       `json:"id"`
	Key       string       `json:"key"`
	Label     string       `json:"label"`
	KeyPrefix string       `json:"key_prefix"`
	Scopes    []auth.Scope `json:"scopes"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func (a *API) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ttl, err := auth.KeyTTLFromDays(req.ExpiresInDays)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	created, err := a.keys.CreateKey(r.Context(), PrincipalFrom(r.Context()).SubjectID, auth.KeyRequest{
		Label:     req.Label,
		Scopes:    req.Scopes,
		ExpiresIn: ttl,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdKeyResponse{
		ID:        created.Key.ID.String(),
		Key:       created.Plaintext,
		Label:     created.Key.Label,
		KeyPrefix: created.Key.KeyPrefix,
		Scopes:    created.Key.Scopes,
		CreatedAt: created.Key.CreatedAt,
		ExpiresAt: created.Key.ExpiresAt,
	})
}

func (a *API) handleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := a.keys.ListKeys(r.Context(), PrincipalFrom(r.Context()).SubjectID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func (a *API) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	keyID, err := pathKeyID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.keys.RevokeKey(r.Context(), PrincipalFrom(r.Context()).SubjectID, keyID); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "api key revoked", "key_id": keyID.String()})
}

func (a *API) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	keyID, err := pathKeyID(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.keys.DeleteKey(r.Context(), PrincipalFrom(r.Context()).SubjectID, keyID); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathKeyID parses {id}. A malformed ID is reported as not found.
func pathKeyID(r *http.Request) (ulid.ULID, error) {
	raw := mux.Vars(r)["id"]
	id, err := ulid.ParseStrict(raw)
	if err != nil {
		return ulid.ULID{}, oops.Code("AUTH_KEY_NOT_FOUND").With("key_id", raw).Wrap(auth.ErrNotFound)
	}
	return id, nil
}

type protectedResponse struct {
	Message     string              `json:"message"`
	Email       string              `json:"user_email"`
	AuthType    auth.CredentialKind `json:"auth_type"`
	Scopes      []auth.Scope        `json:"scopes"`
	Role        auth.Role           `json:"role"`
	AccessLevel string              `json:"access_level"`
}

func protected(p *auth.Principal, message, level string) protectedResponse {
	return protectedResponse{
		Message:     message,
		Email:       p.Email,
		AuthType:    p.Kind,
		Scopes:      p.Scopes,
		Role:        p.Role,
		AccessLevel: level,
	}
}

func (a *API) handleUserRoute(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, protected(PrincipalFrom(r.Context()), "this is a protected route", "user"))
}

func (a *API) handleServiceRoute(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, protected(PrincipalFrom(r.Context()), "you have read access", "service"))
}

func (a *API) handleAdminRoute(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, protected(PrincipalFrom(r.Context()), "this is an admin route", "admin"))
}
