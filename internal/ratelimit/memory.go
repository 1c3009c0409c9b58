// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
)

// Memory store defaults.
const (
	DefaultMaxKeys         = 10000
	DefaultCleanupInterval = time.Minute
)

// MemoryConfig configures a MemoryStore.
type MemoryConfig struct {
	// MaxKeys bounds the number of tracked windows. The least recently hit
	// window is evicted when the bound is reached.
	MaxKeys int

	// CleanupInterval is how often elapsed windows are dropped.
	CleanupInterval time.Duration

	Clock      Clock
	Registerer prometheus.Registerer
}

type window struct {
	start  time.Time
	length time.Duration
	count  int
}

func (w *window) elapsed(now time.Time) bool {
	return !now.Before(w.start.Add(w.length))
}

// MemoryStore keeps fixed windows in process memory. It is safe for
// concurrent use. Call Close to stop the cleanup goroutine.
type MemoryStore struct {
	mu      sync.Mutex
	windows *simplelru.LRU[string, *window]
	clock   Clock

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	windowGauge prometheus.Gauge
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore and starts its cleanup loop.
func NewMemoryStore(cfg MemoryConfig) (*MemoryStore, error) {
	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	clock := cfg.Clock
	if clock == nil {
		clock = systemClock{}
	}

	windows, err := simplelru.NewLRU[string, *window](maxKeys, nil)
	if err != nil {
		return nil, oops.Code("RATELIMIT_STORE_INIT_FAILED").With("max_keys", maxKeys).Wrap(err)
	}

	s := &MemoryStore{
		windows:  windows,
		clock:    clock,
		stopChan: make(chan struct{}),
	}

	if cfg.Registerer != nil {
		s.windowGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "authcore_ratelimit_windows",
			Help: "Current number of tracked rate limit windows",
		})
		cfg.Registerer.MustRegister(s.windowGauge)
	}

	s.wg.Add(1)
	go s.cleanupLoop(interval)

	return s, nil
}

// Hit counts one request against key.
func (s *MemoryStore) Hit(_ context.Context, key string, policy Policy) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	w, ok := s.windows.Get(key)
	if !ok || w.elapsed(now) {
		w = &window{start: now, length: policy.Window}
		s.windows.Add(key, w)
	}

	if w.count >= policy.Limit {
		return Decision{
			Allowed:    false,
			Limit:      policy.Limit,
			Remaining:  0,
			RetryAfter: w.start.Add(w.length).Sub(now),
		}, nil
	}

	w.count++
	s.updateGauge()
	return Decision{
		Allowed:   true,
		Limit:     policy.Limit,
		Remaining: policy.Limit - w.count,
	}, nil
}

// Len returns the number of tracked windows.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windows.Len()
}

// Cleanup drops every window that has elapsed.
func (s *MemoryStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for _, key := range s.windows.Keys() {
		if w, ok := s.windows.Peek(key); ok && w.elapsed(now) {
			s.windows.Remove(key)
		}
	}
	s.updateGauge()
}

// updateGauge must be called with mu held.
func (s *MemoryStore) updateGauge() {
	if s.windowGauge != nil {
		s.windowGauge.Set(float64(s.windows.Len()))
	}
}

func (s *MemoryStore) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}

// Close stops the cleanup goroutine and blocks until it exits. It is safe
// to call more than once.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}
