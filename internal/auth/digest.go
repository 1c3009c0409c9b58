// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"io"
	"strings"
)

// Opaque credential configuration.
const (
	// RefreshTokenPrefix marks opaque refresh tokens.
	RefreshTokenPrefix = "rt_"

	// APIKeyPrefix marks API keys.
	APIKeyPrefix = "sk_"

	secretBytes      = 32 // 32 bytes of entropy per opaque credential
	secretEncodedLen = 43 // base64url without padding of secretBytes
	displayPrefixLen = 8  // secret characters kept for identification
)

// DigestKey computes the SHA256 hex digest of an opaque credential.
// The digest is deterministic so stores can index it; plaintexts are
// already high-entropy so no per-call salt is needed.
func DigestKey(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}

// VerifyDigest reports whether plaintext digests to digest.
// Uses constant-time comparison to prevent timing attacks.
func VerifyDigest(plaintext, digest string) bool {
	if plaintext == "" || digest == "" {
		return false
	}
	computed := DigestKey(plaintext)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}

// generateSecret returns prefix followed by secretBytes of base64url randomness.
func generateSecret(r io.Reader, prefix string) (string, error) {
	b, err := randomBytes(r, secretBytes)
	if err != nil {
		return "", err
	}
	return prefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// hasSecretShape reports whether s is prefix followed by exactly one
// encoded secret. It never decodes or hashes.
func hasSecretShape(s, prefix string) bool {
	rest, ok := strings.CutPrefix(s, prefix)
	if !ok || len(rest) != secretEncodedLen {
		return false
	}
	return isBase64URL(rest)
}

// displayPrefix returns the non-secret identifier kept alongside a digest.
func displayPrefix(secret, prefix string) string {
	rest := strings.TrimPrefix(secret, prefix)
	if len(rest) > displayPrefixLen {
		rest = rest[:displayPrefixLen]
	}
	return prefix + rest
}

func isBase64URL(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
