// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides the credential core of authcore.
//
// # Credentials
//
// Two independent credential types are issued against one account store:
//   - access tokens: short-lived HS256 JWTs minted by TokenIssuer, paired
//     with opaque rotate-on-use refresh tokens (rt_ prefix)
//   - API keys: long-lived opaque keys (sk_ prefix) managed by KeyManager
//
// Opaque credentials are stored only as SHA256 digests. Plaintexts are
// returned once and never logged.
//
// # Domain Types
//
// Accounts should be created with NewAccount, which normalizes the email
// and fills defaults. Repository implementations receive pre-validated
// values.
//
// # Services
//   - Service: signup, login, refresh, logout
//   - TokenIssuer: access token signing and refresh rotation
//   - KeyManager: API key creation, lookup, revocation and listing
//   - Resolver: request-time credential dispatch into a Principal
//
// Every expiry decision is taken against an injected Clock. Errors carry
// oops codes and wrap the sentinels in errors.go.
package auth
