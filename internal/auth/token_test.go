// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/auth/memstore"
	"github.com/holomush/authcore/pkg/errutil"
)

func TestNewTokenIssuer_Validation(t *testing.T) {
	store := memstore.New()

	t.Run("short signing key", func(t *testing.T) {
		_, err := auth.NewTokenIssuer(auth.TokenConfig{SigningKey: []byte("short")}, store.RefreshTokens(), store.Accounts())
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_SIGNING_KEY_INVALID")
	})

	t.Run("nil refresh repository", func(t *testing.T) {
		_, err := auth.NewTokenIssuer(auth.TokenConfig{SigningKey: testSigningKey}, nil, store.Accounts())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "refresh token repository is required")
	})

	t.Run("nil account repository", func(t *testing.T) {
		_, err := auth.NewTokenIssuer(auth.TokenConfig{SigningKey: testSigningKey}, store.RefreshTokens(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "account repository is required")
	})

	t.Run("defaults", func(t *testing.T) {
		issuer, err := auth.NewTokenIssuer(auth.TokenConfig{SigningKey: testSigningKey}, store.RefreshTokens(), store.Accounts())
		require.NoError(t, err)
		assert.Equal(t, auth.DefaultAccessTokenTTL, issuer.AccessTTL())
	})
}

func TestAccessTokenExpiry(t *testing.T) {
	f := newFixture(t)
	account := f.account(t, "ttl@example.com", auth.RoleUser)

	token, expiresAt, err := f.tokens.IssueAccessToken(account)
	require.NoError(t, err)
	assert.Equal(t, testEpoch.Add(30*time.Minute), expiresAt)

	f.clock.Advance(29 * time.Minute)
	claims, err := f.tokens.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, account.ID.String(), claims.Subject)
	assert.Equal(t, auth.RoleUser, claims.Role)
	assert.Equal(t, auth.DefaultTokenIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)

	f.clock.Advance(time.Minute)
	_, err = f.tokens.VerifyAccessToken(token)
	assert.ErrorIs(t, err, auth.ErrTokenExpired, "expiry instant is already expired")

	f.clock.Advance(time.Minute)
	_, err = f.tokens.VerifyAccessToken(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	errutil.AssertErrorCode(t, err, "AUTH_TOKEN_EXPIRED")
}

func TestVerifyAccessToken_Rejections(t *testing.T) {
	f := newFixture(t)
	account := f.account(t, "sig@example.com", auth.RoleAdmin)
	token, _, err := f.tokens.IssueAccessToken(account)
	require.NoError(t, err)

	now := testEpoch
	claims := func(typ string) auth.AccessClaims {
		return auth.AccessClaims{
			Role: auth.RoleAdmin,
			Type: typ,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   account.ID.String(),
				Issuer:    auth.DefaultTokenIssuer,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			},
		}
	}
	sign := func(t *testing.T, method jwt.SigningMethod, key any, c auth.AccessClaims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, c).SignedString(key)
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{
			name:  "tampered payload",
			token: tamperPayload(t, token),
			want:  auth.ErrTokenBadSignature,
		},
		{
			name:  "foreign key",
			token: sign(t, jwt.SigningMethodHS256, []byte("another-signing-key-0123456789abcd"), claims("access")),
			want:  auth.ErrTokenBadSignature,
		},
		{
			name:  "wrong algorithm",
			token: sign(t, jwt.SigningMethodHS384, testSigningKey, claims("access")),
			want:  auth.ErrTokenBadSignature,
		},
		{
			name:  "unsigned",
			token: sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, claims("access")),
			want:  auth.ErrTokenBadSignature,
		},
		{
			name:  "wrong token type",
			token: sign(t, jwt.SigningMethodHS256, testSigningKey, claims("refresh")),
			want:  auth.ErrTokenMalformed,
		},
		{
			name:  "garbage",
			token: "a.b.c",
			want:  auth.ErrTokenMalformed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tokens.VerifyAccessToken(tt.token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.ErrorIs(t, err, auth.ErrUnauthenticated)
		})
	}
}

// tamperPayload flips the role claim without re-signing.
func tamperPayload(t *testing.T, token string) string {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	forged := strings.Replace(string(payload), `"role":"admin"`, `"role":"user"`, 1)
	require.NotEqual(t, string(payload), forged)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(forged))
	return strings.Join(parts, ".")
}
