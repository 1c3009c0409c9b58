// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/auth/mocks"
	"github.com/holomush/authcore/pkg/errutil"
)

func TestClampKeyTTL(t *testing.T) {
	tests := []struct {
		name      string
		requested time.Duration
		want      time.Duration
		wantErr   bool
	}{
		{name: "zero selects default", requested: 0, want: 90 * 24 * time.Hour},
		{name: "negative rejected", requested: -time.Second, wantErr: true},
		{name: "below minimum raised", requested: time.Second, want: time.Minute},
		{name: "within range kept", requested: 30 * 24 * time.Hour, want: 30 * 24 * time.Hour},
		{name: "exactly maximum kept", requested: 90 * 24 * time.Hour, want: 90 * 24 * time.Hour},
		{name: "above maximum clamped", requested: 365 * 24 * time.Hour, want: 90 * 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := auth.ClampKeyTTL(tt.requested)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, auth.ErrValidation)
				errutil.AssertErrorCode(t, err, "AUTH_KEY_INVALID_EXPIRY")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeyTTLFromDays(t *testing.T) {
	tests := []struct {
		days int
		want time.Duration
	}{
		{days: 0, want: 0},
		{days: 30, want: 30 * 24 * time.Hour},
		{days: math.MaxInt, want: 3650 * 24 * time.Hour},
	}
	for _, tt := range tests {
		got, err := auth.KeyTTLFromDays(tt.days)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "days=%d", tt.days)
	}

	for _, days := range []int{-1, -177147, math.MinInt} {
		_, err := auth.KeyTTLFromDays(days)
		assert.ErrorIs(t, err, auth.ErrValidation, "days=%d", days)
		errutil.AssertErrorCode(t, err, "AUTH_KEY_INVALID_EXPIRY")
	}
}

func TestNewKeyManager_NilDependencies(t *testing.T) {
	_, err := auth.NewKeyManager(nil, mocks.NewMockAccountRepository(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key repository is required")

	_, err = auth.NewKeyManager(mocks.NewMockAPIKeyRepository(t), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account repository is required")
}

func TestCreateKey(t *testing.T) {
	t.Run("stores digest and returns plaintext once", func(t *testing.T) {
		f := newFixture(t)
		account := f.account(t, "svc@example.com", auth.RoleUser)

		created, err := f.keys.CreateKey(t.Context(), account.ID, auth.KeyRequest{
			Label:     "  ci  ",
			Scopes:    []string{"WRITE", "read", "read"},
			ExpiresIn: 400 * 24 * time.Hour,
		})
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(created.Plaintext, auth.APIKeyPrefix))
		assert.Len(t, created.Plaintext, 46)
		assert.Equal(t, "ci", created.Key.Label)
		assert.Equal(t, []auth.Scope{auth.ScopeRead, auth.ScopeWrite}, created.Key.Scopes)
		assert.Equal(t, testEpoch.Add(auth.MaxAPIKeyTTL), created.Key.ExpiresAt)
		assert.Equal(t, created.Plaintext[:11], created.Key.KeyPrefix)
		assert.Equal(t, auth.DigestKey(created.Plaintext), created.Key.KeyHash)

		stored, err := f.store.APIKeys().GetByID(t.Context(), created.Key.ID)
		require.NoError(t, err)
		assert.NotEqual(t, created.Plaintext, stored.KeyHash)
	})

	t.Run("empty scopes default to read", func(t *testing.T) {
		f := newFixture(t)
		account := f.account(t, "def@example.com", auth.RoleUser)

		created, err := f.keys.CreateKey(t.Context(), account.ID, auth.KeyRequest{Label: "reader"})
		require.NoError(t, err)
		assert.Equal(t, []auth.Scope{auth.ScopeRead}, created.Key.Scopes)
		assert.Equal(t, testEpoch.Add(auth.DefaultAPIKeyTTL), created.Key.ExpiresAt)
	})

	t.Run("scope above role is forbidden", func(t *testing.T) {
		f := newFixture(t)
		account := f.account(t, "user@example.com", auth.RoleUser)

		_, err := f.keys.CreateKey(t.Context(), account.ID, auth.KeyRequest{Label: "x", Scopes: []string{"admin"}})
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrForbidden)
		errutil.AssertErrorCode(t, err, "AUTH_KEY_SCOPE_EXCEEDS_ROLE")
	})

	t.Run("admin may grant admin scope", func(t *testing.T) {
		f := newFixture(t)
		account := f.account(t, "root@example.com", auth.RoleAdmin)

		created, err := f.keys.CreateKey(t.Context(), account.ID, auth.KeyRequest{Label: "ops", Scopes: []string{"admin", "write"}})
		require.NoError(t, err)
		assert.Equal(t, []auth.Scope{auth.ScopeAdmin, auth.ScopeWrite}, created.Key.Scopes,
			"keys store concrete scopes, never the pattern")
	})

	tests := []struct {
		name string
		req  auth.KeyRequest
		code string
	}{
		{name: "empty label", req: auth.KeyRequest{Label: "   "}, code: "AUTH_KEY_INVALID_LABEL"},
		{name: "long label", req: auth.KeyRequest{Label: strings.Repeat("l", 101)}, code: "AUTH_KEY_INVALID_LABEL"},
		{name: "unknown scope", req: auth.KeyRequest{Label: "x", Scopes: []string{"delete"}}, code: "AUTH_KEY_INVALID_SCOPE"},
		{name: "negative expiry", req: auth.KeyRequest{Label: "x", ExpiresIn: -time.Hour}, code: "AUTH_KEY_INVALID_EXPIRY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			account := f.account(t, "bad@example.com", auth.RoleUser)
			_, err := f.keys.CreateKey(t.Context(), account.ID, tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, auth.ErrValidation)
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}

	t.Run("unknown account", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.keys.CreateKey(t.Context(), ulid.Make(), auth.KeyRequest{Label: "x"})
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestLookupByPlaintext(t *testing.T) {
	f := newFixture(t)
	account := f.account(t, "look@example.com", auth.RoleUser)
	created, err := f.keys.CreateKey(t.Context(), account.ID, auth.KeyRequest{Label: "k", ExpiresIn: time.Hour})
	require.NoError(t, err)

	t.Run("active key resolves and records use", func(t *testing.T) {
		key, err := f.keys.LookupByPlaintext(t.Context(), created.Plaintext)
		require.NoError(t, err)
		assert.Equal(t, created.Key.ID, key.ID)
		require.NotNil(t, key.LastUsedAt)
		assert.Equal(t, f.clock.Now(), *key.LastUsedAt)
	})

	t.Run("malformed and unknown keys", func(t *testing.T) {
		for _, raw := range []string{"", "sk_short", created.Plaintext + "x", "sk_" + strings.Repeat("q", 43)} {
			_, err := f.keys.LookupByPlaintext(t.Context(), raw)
			assert.ErrorIs(t, err, auth.ErrNotFound, raw)
		}
	})

	t.Run("expired at the expiry instant", func(t *testing.T) {
		f.clock.Advance(time.Hour)
		defer f.clock.Advance(-time.Hour)
		_, err := f.keys.LookupByPlaintext(t.Context(), created.Plaintext)
		require.Error(t, err)
		errutil.AssertErrorContext(t, err, "reason", "expired")
	})

	t.Run("revoked key fails on the next lookup", func(t *testing.T) {
		require.NoError(t, f.keys.RevokeKey(t.Context(), account.ID, created.Key.ID))
		_, err := f.keys.LookupByPlaintext(t.Context(), created.Plaintext)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorContext(t, err, "reason", "revoked")
	})
}

func TestLookupByPlaintext_TouchFailureIsIgnored(t *testing.T) {
	ctx := context.Background()
	keys := mocks.NewMockAPIKeyRepository(t)
	accounts := mocks.NewMockAccountRepository(t)
	mgr, err := auth.NewKeyManager(keys, accounts, auth.WithClock(newTestClock()))
	require.NoError(t, err)

	plaintext := "sk_" + strings.Repeat("K", 43)
	stored := &auth.APIKey{
		ID:        ulid.Make(),
		AccountID: ulid.Make(),
		KeyHash:   auth.DigestKey(plaintext),
		Scopes:    []auth.Scope{auth.ScopeRead},
		CreatedAt: testEpoch,
		ExpiresAt: testEpoch.Add(time.Hour),
	}
	keys.On("GetByHash", ctx, stored.KeyHash).Return(stored, nil)
	keys.On("TouchLastUsed", ctx, stored.ID, mock.AnythingOfType("time.Time")).Return(auth.ErrStoreUnavailable)

	key, err := mgr.LookupByPlaintext(ctx, plaintext)
	require.NoError(t, err)
	assert.Nil(t, key.LastUsedAt)
}

func TestRevokeKey(t *testing.T) {
	f := newFixture(t)
	owner := f.account(t, "owner@example.com", auth.RoleUser)
	other := f.account(t, "other@example.com", auth.RoleUser)
	created, err := f.keys.CreateKey(t.Context(), owner.ID, auth.KeyRequest{Label: "k"})
	require.NoError(t, err)

	err = f.keys.RevokeKey(t.Context(), other.ID, created.Key.ID)
	assert.ErrorIs(t, err, auth.ErrNotOwner)

	err = f.keys.RevokeKey(t.Context(), owner.ID, ulid.Make())
	assert.ErrorIs(t, err, auth.ErrNotFound)

	require.NoError(t, f.keys.RevokeKey(t.Context(), owner.ID, created.Key.ID))
	first, err := f.store.APIKeys().GetByID(t.Context(), created.Key.ID)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	require.NoError(t, f.keys.RevokeKey(t.Context(), owner.ID, created.Key.ID), "idempotent")
	second, err := f.store.APIKeys().GetByID(t.Context(), created.Key.ID)
	require.NoError(t, err)
	assert.Equal(t, first.RevokedAt, second.RevokedAt, "second revoke must not rewrite revoked_at")
}

func TestDeleteKey(t *testing.T) {
	f := newFixture(t)
	owner := f.account(t, "del@example.com", auth.RoleUser)
	other := f.account(t, "nope@example.com", auth.RoleUser)
	created, err := f.keys.CreateKey(t.Context(), owner.ID, auth.KeyRequest{Label: "k"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.keys.DeleteKey(t.Context(), other.ID, created.Key.ID), auth.ErrNotOwner)
	require.NoError(t, f.keys.DeleteKey(t.Context(), owner.ID, created.Key.ID))
	assert.ErrorIs(t, f.keys.DeleteKey(t.Context(), owner.ID, created.Key.ID), auth.ErrNotFound)
}

func TestListKeys(t *testing.T) {
	f := newFixture(t)
	account := f.account(t, "list@example.com", auth.RoleUser)

	short, err := f.keys.CreateKey(t.Context(), account.ID, auth.KeyRequest{Label: "short", ExpiresIn: time.Minute})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	revoked, err := f.keys.CreateKey(t.Context(), account.ID, auth.KeyRequest{Label: "revoked"})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	active, err := f.keys.CreateKey(t.Context(), account.ID, auth.KeyRequest{Label: "active"})
	require.NoError(t, err)

	require.NoError(t, f.keys.RevokeKey(t.Context(), account.ID, revoked.Key.ID))
	f.clock.Advance(2 * time.Minute)

	summaries, err := f.keys.ListKeys(t.Context(), account.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	assert.Equal(t, active.Key.ID, summaries[0].ID)
	assert.Equal(t, auth.KeyStatusActive, summaries[0].Status)
	assert.Equal(t, revoked.Key.ID, summaries[1].ID)
	assert.Equal(t, auth.KeyStatusRevoked, summaries[1].Status)
	assert.Equal(t, short.Key.ID, summaries[2].ID)
	assert.Equal(t, auth.KeyStatusExpired, summaries[2].Status)
}
