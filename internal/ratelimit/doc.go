// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package ratelimit implements fixed-window request limiting keyed by
// identity and operation.
//
// A Limiter resolves the Policy for an operation and asks a Store to count
// the hit. MemoryStore keeps windows in a bounded LRU for single-process
// deployments; RedisStore shares windows across processes with an atomic
// Lua script. Store failures deny the request.
package ratelimit
