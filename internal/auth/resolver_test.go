// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/auth/mocks"
	"github.com/holomush/authcore/pkg/errutil"
)

func TestResolve_AccessToken(t *testing.T) {
	f := newFixture(t)
	account := f.account(t, "jwt@example.com", auth.RoleAdmin)
	token, _, err := f.tokens.IssueAccessToken(account)
	require.NoError(t, err)

	p, err := f.resolver.Resolve(t.Context(), token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, p.SubjectID)
	assert.Equal(t, "jwt@example.com", p.Email)
	assert.Equal(t, auth.KindAccessToken, p.Kind)
	assert.Equal(t, []auth.Scope{auth.ScopeAll}, p.Scopes)
	assert.NotEmpty(t, p.CredentialID)
	for _, s := range []auth.Scope{auth.ScopeRead, auth.ScopeWrite, auth.ScopeAdmin} {
		assert.NoError(t, auth.RequireScope(p, s), "admin session grants %q", s)
	}

	t.Run("role change applies before expiry", func(t *testing.T) {
		account.Role = auth.RoleUser
		require.NoError(t, f.store.Accounts().Update(t.Context(), account))

		p, err := f.resolver.Resolve(t.Context(), token)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleUser, p.Role)
		assert.Equal(t, []auth.Scope{auth.ScopeRead, auth.ScopeWrite}, p.Scopes)
		assert.ErrorIs(t, auth.RequireRole(p, auth.RoleAdmin), auth.ErrForbidden)
		assert.ErrorIs(t, auth.RequireScope(p, auth.ScopeAdmin), auth.ErrForbidden)
	})

	t.Run("inactive account", func(t *testing.T) {
		account.IsActive = false
		require.NoError(t, f.store.Accounts().Update(t.Context(), account))

		_, err := f.resolver.Resolve(t.Context(), token)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
		errutil.AssertErrorCode(t, err, "AUTH_UNAUTHENTICATED")
	})
}

func TestResolve_ExpiredAccessToken(t *testing.T) {
	f := newFixture(t)
	account := f.account(t, "late@example.com", auth.RoleUser)
	token, _, err := f.tokens.IssueAccessToken(account)
	require.NoError(t, err)

	f.clock.Advance(31 * time.Minute)
	_, err = f.resolver.Resolve(t.Context(), token)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	assert.NotErrorIs(t, err, auth.ErrTokenExpired, "reason stays internal")
	errutil.AssertErrorCode(t, err, "AUTH_UNAUTHENTICATED")
}

func TestResolve_APIKey(t *testing.T) {
	f := newFixture(t)
	account := f.account(t, "bot@example.com", auth.RoleUser)
	created, err := f.keys.CreateKey(t.Context(), account.ID, auth.KeyRequest{Label: "bot", Scopes: []string{"read"}})
	require.NoError(t, err)

	p, err := f.resolver.Resolve(t.Context(), created.Plaintext)
	require.NoError(t, err)
	assert.Equal(t, account.ID, p.SubjectID)
	assert.Equal(t, auth.KindAPIKey, p.Kind)
	assert.Equal(t, []auth.Scope{auth.ScopeRead}, p.Scopes)
	assert.Equal(t, created.Key.ID.String(), p.CredentialID)
	assert.NoError(t, auth.RequireScope(p, auth.ScopeRead))
	assert.ErrorIs(t, auth.RequireScope(p, auth.ScopeWrite), auth.ErrForbidden)

	require.NoError(t, f.keys.RevokeKey(t.Context(), account.ID, created.Key.ID))
	_, err = f.resolver.Resolve(t.Context(), created.Plaintext)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestResolve_InactiveKeyOwner(t *testing.T) {
	f := newFixture(t)
	account := f.account(t, "gone@example.com", auth.RoleUser)
	created, err := f.keys.CreateKey(t.Context(), account.ID, auth.KeyRequest{Label: "bot"})
	require.NoError(t, err)

	account.IsActive = false
	require.NoError(t, f.store.Accounts().Update(t.Context(), account))

	_, err = f.resolver.Resolve(t.Context(), created.Plaintext)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestResolve_UnrecognizedCredentials(t *testing.T) {
	f := newFixture(t)
	account := f.account(t, "rt@example.com", auth.RoleUser)
	pair, err := f.tokens.IssuePair(t.Context(), account)
	require.NoError(t, err)

	for _, raw := range []string{"", "garbage", pair.RefreshToken, "sk_" + strings.Repeat("0", 10)} {
		_, err := f.resolver.Resolve(t.Context(), raw)
		require.Error(t, err, raw)
		assert.ErrorIs(t, err, auth.ErrUnauthenticated, raw)
		errutil.AssertErrorCode(t, err, "AUTH_UNAUTHENTICATED")
	}
}

func TestResolve_StoreUnavailableIsNotADenial(t *testing.T) {
	f := newFixture(t)
	account := f.account(t, "down@example.com", auth.RoleUser)
	token, _, err := f.tokens.IssueAccessToken(account)
	require.NoError(t, err)

	accounts := mocks.NewMockAccountRepository(t)
	accounts.On("GetByID", mock.Anything, account.ID).Return(nil, auth.ErrStoreUnavailable)
	resolver, err := auth.NewResolver(f.tokens, f.keys, accounts)
	require.NoError(t, err)

	_, err = resolver.Resolve(t.Context(), token)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, auth.ErrUnauthenticated)
	errutil.AssertErrorCode(t, err, "AUTH_STORE_UNAVAILABLE")
}

func TestNewResolver_NilDependencies(t *testing.T) {
	f := newFixture(t)

	_, err := auth.NewResolver(nil, f.keys, f.store.Accounts())
	assert.Error(t, err)
	_, err = auth.NewResolver(f.tokens, nil, f.store.Accounts())
	assert.Error(t, err)
	_, err = auth.NewResolver(f.tokens, f.keys, nil)
	assert.Error(t, err)
}
