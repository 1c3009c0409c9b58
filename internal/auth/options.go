// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"io"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Clock supplies the current time. Every expiry decision in this package
// is evaluated against a Clock so tests can move time deterministically.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now returns f().
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Option configures the collaborators shared by the services in this package.
type Option func(*options)

// Recorder receives credential outcomes for metrics. Labels are plain
// strings so implementations need not import this package.
type Recorder interface {
	AuthAttempt(kind, result string)
	RefreshRotation(result string)
	APIKeyCreated()
}

type nopRecorder struct{}

func (nopRecorder) AuthAttempt(string, string) {}
func (nopRecorder) RefreshRotation(string)     {}
func (nopRecorder) APIKeyCreated()             {}

type options struct {
	clock    Clock
	random   io.Reader
	logger   *slog.Logger
	recorder Recorder
}

func defaultOptions() options {
	return options{
		clock:    SystemClock{},
		random:   rand.Reader,
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithRandom overrides the secure random source used for secrets.
func WithRandom(r io.Reader) Option {
	return func(o *options) {
		if r != nil {
			o.random = r
		}
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// randomBytes reads n bytes from r.
func randomBytes(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, oops.Code("AUTH_RANDOM_FAILED").
			With("requested_bytes", n).
			Wrap(err)
	}
	return b, nil
}

// newID returns a ULID stamped with now.
func newID(now time.Time) ulid.ULID {
	return ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy())
}
