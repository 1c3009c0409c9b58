// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/pkg/errutil"
)

var cheapParams = auth.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1}

func TestHashPassword(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("produces PHC string with default parameters", func(t *testing.T) {
		hash, err := hasher.Hash("Password1!")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$"))
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("salt comes from the injected random source", func(t *testing.T) {
		fixed := func() *auth.Argon2idHasher {
			return auth.NewArgon2idHasherWithParams(cheapParams,
				auth.WithRandom(bytes.NewReader(bytes.Repeat([]byte{0x2a}, 16))))
		}
		hash1, err := fixed().Hash("samepassword")
		require.NoError(t, err)
		hash2, err := fixed().Hash("samepassword")
		require.NoError(t, err)
		assert.Equal(t, hash1, hash2)
		assert.Contains(t, hash1, "$"+base64.RawStdEncoding.EncodeToString(bytes.Repeat([]byte{0x2a}, 16))+"$")
	})

	t.Run("random source failure", func(t *testing.T) {
		h := auth.NewArgon2idHasherWithParams(cheapParams, auth.WithRandom(bytes.NewReader(nil)))
		_, err := h.Hash("Password1!")
		errutil.AssertErrorCode(t, err, "AUTH_RANDOM_FAILED")
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
	})
}

func TestVerifyPassword(t *testing.T) {
	hasher := auth.NewArgon2idHasher()

	t.Run("round trip", func(t *testing.T) {
		hash, err := hasher.Hash("correct horse")
		require.NoError(t, err)

		ok, err := hasher.Verify("correct horse", hash)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = hasher.Verify("correct horsf", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("single bit flip in stored key fails", func(t *testing.T) {
		hash, err := hasher.Hash("Password1!")
		require.NoError(t, err)

		parts := strings.Split(hash, "$")
		key, err := base64.RawStdEncoding.DecodeString(parts[5])
		require.NoError(t, err)
		key[0] ^= 0x01
		parts[5] = base64.RawStdEncoding.EncodeToString(key)

		ok, err := hasher.Verify("Password1!", strings.Join(parts, "$"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("every single bit flip of the stored hash fails", func(t *testing.T) {
		if testing.Short() {
			t.Skip("hashes once per mutated bit")
		}
		cheap := auth.NewArgon2idHasherWithParams(cheapParams)
		hash, err := cheap.Hash("Secure123!")
		require.NoError(t, err)

		for i := range len(hash) {
			for bit := range 8 {
				mutated := []byte(hash)
				mutated[i] ^= 1 << bit
				ok, err := cheap.Verify("Secure123!", string(mutated))
				assert.False(t, ok && err == nil, "byte %d (%q) bit %d still verifies", i, hash[i], bit)
			}
		}
	})

	t.Run("non-canonical trailing bits are rejected", func(t *testing.T) {
		cheap := auth.NewArgon2idHasherWithParams(cheapParams)
		hash, err := cheap.Hash("Secure123!")
		require.NoError(t, err)

		parts := strings.Split(hash, "$")
		// 16 salt bytes leave 4 unused bits in the last character.
		last := parts[4][len(parts[4])-1]
		idx := strings.IndexByte(base64Alphabet, last)
		parts[4] = parts[4][:len(parts[4])-1] + string(base64Alphabet[idx|0x01])

		ok, err := cheap.Verify("Secure123!", strings.Join(parts, "$"))
		assert.False(t, ok)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
	})

	tests := []struct {
		name     string
		hash     string
		contains string
	}{
		{name: "not a hash", hash: "not-a-valid-hash"},
		{name: "wrong algorithm", hash: "$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA", contains: "unsupported hash algorithm"},
		{name: "bad version", hash: "$argon2id$vXX$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{name: "unknown version", hash: "$argon2id$v=16$m=65536,t=1,p=4$c2FsdA$aGFzaA", contains: "unsupported argon2 version"},
		{name: "bad parameters", hash: "$argon2id$v=19$invalid$c2FsdA$aGFzaA"},
		{name: "bad salt encoding", hash: "$argon2id$v=19$m=65536,t=1,p=4$!!!invalid!!!$aGFzaA"},
		{name: "bad key encoding", hash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!invalid!!!"},
		{name: "threads overflow", hash: "$argon2id$v=19$m=65536,t=1,p=256$c2FsdA$aGFzaA", contains: "threads value"},
		{name: "zero rounds", hash: "$argon2id$v=19$m=65536,t=0,p=4$c2FsdHNhbHQ$aGFzaA", contains: "cost parameters"},
		{name: "short salt", hash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA", contains: "salt length"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hasher.Verify("password", tt.hash)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestLegacyBcrypt(t *testing.T) {
	hasher := auth.NewArgon2idHasher()
	legacy, err := bcrypt.GenerateFromPassword([]byte("OldPass1!"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("verifies legacy hash", func(t *testing.T) {
		ok, err := hasher.Verify("OldPass1!", string(legacy))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("rejects wrong password against legacy hash", func(t *testing.T) {
		ok, err := hasher.Verify("NewPass1!", string(legacy))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("legacy hash needs upgrade", func(t *testing.T) {
		assert.True(t, hasher.NeedsUpgrade(string(legacy)))
	})
}

func TestNeedsUpgrade(t *testing.T) {
	cheap := auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1})
	hash, err := cheap.Hash("password")
	require.NoError(t, err)

	assert.False(t, cheap.NeedsUpgrade(hash))
	assert.True(t, auth.NewArgon2idHasher().NeedsUpgrade(hash), "different cost parameters")
}

const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

