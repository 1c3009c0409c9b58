// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/auth/memstore"
)

var (
	testEpoch      = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	testSigningKey = []byte("test-signing-key-0123456789abcdef")
)

// testClock is a settable clock shared by every component in a test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock { return &testClock{now: testEpoch} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingRecorder tallies metric events.
type countingRecorder struct {
	mu        sync.Mutex
	attempts  map[string]int
	rotations map[string]int
	keys      int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{attempts: map[string]int{}, rotations: map[string]int{}}
}

func (r *countingRecorder) AuthAttempt(kind, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[kind+"/"+result]++
}

func (r *countingRecorder) RefreshRotation(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rotations[result]++
}

func (r *countingRecorder) APIKeyCreated() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys++
}

// fixture wires the auth components over a memstore.
type fixture struct {
	recorder *countingRecorder
	clock    *testClock
	store    *memstore.Store
	tokens   *auth.TokenIssuer
	keys     *auth.KeyManager
	resolver *auth.Resolver
	service  *auth.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := newTestClock()
	store := memstore.New()
	recorder := newCountingRecorder()
	opts := []auth.Option{auth.WithClock(clock), auth.WithRecorder(recorder)}

	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{SigningKey: testSigningKey},
		store.RefreshTokens(), store.Accounts(), opts...)
	require.NoError(t, err)

	keys, err := auth.NewKeyManager(store.APIKeys(), store.Accounts(), opts...)
	require.NoError(t, err)

	resolver, err := auth.NewResolver(tokens, keys, store.Accounts(), opts...)
	require.NoError(t, err)

	hasher := auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1})
	service, err := auth.NewService(store.Accounts(), hasher, tokens, opts...)
	require.NoError(t, err)

	return &fixture{recorder: recorder, clock: clock, store: store, tokens: tokens, keys: keys, resolver: resolver, service: service}
}

// account stores an active account directly, bypassing Signup.
func (f *fixture) account(t *testing.T, email string, role auth.Role) *auth.Account {
	t.Helper()
	a, err := auth.NewAccount(email, "$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5", role, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.store.Accounts().Create(t.Context(), a))
	return a
}
