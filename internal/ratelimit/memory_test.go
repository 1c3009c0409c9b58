// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package ratelimit_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/holomush/authcore/internal/ratelimit"
)

func newMemoryStore(t *testing.T, cfg ratelimit.MemoryConfig) *ratelimit.MemoryStore {
	t.Helper()
	s, err := ratelimit.NewMemoryStore(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMemoryStore_FixedWindow(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := newMemoryStore(t, ratelimit.MemoryConfig{Clock: clock})
	policy := ratelimit.Policy{Limit: 5, Window: time.Minute}

	for i := 1; i <= 5; i++ {
		d, err := s.Hit(ctx, "ip|login", policy)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "hit %d", i)
		assert.Equal(t, 5-i, d.Remaining)
	}

	clock.Advance(20 * time.Second)
	d, err := s.Hit(ctx, "ip|login", policy)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 40*time.Second, d.RetryAfter)

	t.Run("rejections do not extend the window", func(t *testing.T) {
		for range 3 {
			_, err := s.Hit(ctx, "ip|login", policy)
			require.NoError(t, err)
		}
		clock.Advance(40 * time.Second)
		d, err := s.Hit(ctx, "ip|login", policy)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 4, d.Remaining)
	})
}

func TestMemoryStore_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t, ratelimit.MemoryConfig{Clock: newFakeClock()})
	policy := ratelimit.Policy{Limit: 1, Window: time.Minute}

	d, err := s.Hit(ctx, "a|login", policy)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = s.Hit(ctx, "b|login", policy)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = s.Hit(ctx, "a|signup", policy)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = s.Hit(ctx, "a|login", policy)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestMemoryStore_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t, ratelimit.MemoryConfig{MaxKeys: 2, Clock: newFakeClock()})
	policy := ratelimit.Policy{Limit: 10, Window: time.Minute}

	for _, key := range []string{"a", "b", "c"} {
		_, err := s.Hit(ctx, key, policy)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, s.Len())
}

func TestMemoryStore_CleanupDropsElapsedWindows(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	reg := prometheus.NewRegistry()
	s := newMemoryStore(t, ratelimit.MemoryConfig{Clock: clock, Registerer: reg})

	_, err := s.Hit(ctx, "short", ratelimit.Policy{Limit: 1, Window: time.Second})
	require.NoError(t, err)
	_, err = s.Hit(ctx, "long", ratelimit.Policy{Limit: 1, Window: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	clock.Advance(2 * time.Second)
	s.Cleanup()
	assert.Equal(t, 1, s.Len())

	expected := `
# HELP authcore_ratelimit_windows Current number of tracked rate limit windows
# TYPE authcore_ratelimit_windows gauge
authcore_ratelimit_windows 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "authcore_ratelimit_windows"))
}

func TestMemoryStore_ConcurrentHitsNeverExceedLimit(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t, ratelimit.MemoryConfig{Clock: newFakeClock()})
	policy := ratelimit.Policy{Limit: 25, Window: time.Minute}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := s.Hit(ctx, "burst", policy)
			if err != nil || !d.Allowed {
				return
			}
			mu.Lock()
			allowed++
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 25, allowed)
}

func TestMemoryStore_CloseStopsCleanupLoop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s, err := ratelimit.NewMemoryStore(ratelimit.MemoryConfig{CleanupInterval: time.Millisecond})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "second close is a no-op")
}
