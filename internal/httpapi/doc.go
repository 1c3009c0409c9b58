// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package httpapi exposes the auth core over JSON/HTTP.
//
// Every authentication failure is answered with the same 401 body; the
// reason is logged, never returned. Credentials are read from the
// Authorization header as "Bearer <token>", where the token is either a
// signed access token or an "sk_" API key.
package httpapi
