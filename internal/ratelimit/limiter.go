// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
)

// Sentinel errors.
var (
	// ErrRateLimited is returned by Check when a hit is rejected.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrStoreUnavailable is returned when the window store cannot be reached.
	// The request is denied.
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
)

// Decision is the outcome of one hit.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Store counts hits against fixed windows. Implementations must apply the
// check and the increment atomically per key.
type Store interface {
	Hit(ctx context.Context, key string, policy Policy) (Decision, error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Limiter applies per-operation policies to a Store.
type Limiter struct {
	store      Store
	policies   Policies
	logger     *slog.Logger
	rejections *prometheus.CounterVec
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithLogger sets the logger for rejections and store failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithRegisterer registers the rejection counter with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(l *Limiter) {
		if reg == nil {
			return
		}
		l.rejections = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_ratelimit_rejections_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"operation"})
		reg.MustRegister(l.rejections)
	}
}

// New creates a Limiter. Missing operations in policies fall back to the
// built-in defaults.
func New(store Store, policies Policies, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, oops.Code("RATELIMIT_INVALID_DEPENDENCY").Errorf("store is required")
	}
	merged := DefaultPolicies().Merge(policies)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	l := &Limiter{
		store:    store,
		policies: merged,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Policy returns the policy enforced for op.
func (l *Limiter) Policy(op Operation) Policy {
	return l.policies.For(op)
}

// Allow counts one hit for identity on op. A store failure returns a
// denying Decision and an error wrapping ErrStoreUnavailable.
func (l *Limiter) Allow(ctx context.Context, identity string, op Operation) (Decision, error) {
	policy := l.policies.For(op)
	decision, err := l.store.Hit(ctx, Key(identity, op), policy)
	if err != nil {
		l.logger.ErrorContext(ctx, "rate limit store failed", "operation", string(op), "error", err)
		return Decision{Limit: policy.Limit, RetryAfter: policy.Window}, oops.Code("RATELIMIT_STORE_UNAVAILABLE").
			With("operation", string(op)).
			Wrapf(ErrStoreUnavailable, "%v", err)
	}
	if !decision.Allowed {
		if l.rejections != nil {
			l.rejections.WithLabelValues(string(op)).Inc()
		}
		l.logger.WarnContext(ctx, "rate limit exceeded",
			"operation", string(op),
			"limit", decision.Limit,
			"retry_after", decision.RetryAfter.String())
	}
	return decision, nil
}

// Check is Allow that turns a rejection into an error wrapping
// ErrRateLimited with a retry_after context value.
func (l *Limiter) Check(ctx context.Context, identity string, op Operation) (Decision, error) {
	decision, err := l.Allow(ctx, identity, op)
	if err != nil {
		return decision, err
	}
	if !decision.Allowed {
		return decision, oops.Code("RATE_LIMITED").
			With("operation", string(op)).
			With("retry_after", decision.RetryAfter).
			Wrap(ErrRateLimited)
	}
	return decision, nil
}

// Key is the window key for identity and op.
func Key(identity string, op Operation) string {
	return identity + "|" + string(op)
}

// RetryAfter extracts the retry_after duration from an error returned by
// Check. It returns false if err carries none.
func RetryAfter(err error) (time.Duration, bool) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return 0, false
	}
	d, ok := oopsErr.Context()["retry_after"].(time.Duration)
	return d, ok
}
