// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package ratelimit

import (
	"time"

	"github.com/samber/oops"
)

// Operation names a rate-limited action.
type Operation string

// Rate-limited operations.
const (
	OpLogin   Operation = "login"
	OpSignup  Operation = "signup"
	OpRefresh Operation = "refresh"
	OpKeys    Operation = "keys"
	OpDefault Operation = "default"
)

// Policy is the ceiling for one operation: at most Limit hits per Window.
type Policy struct {
	Limit  int           `koanf:"limit" json:"limit" jsonschema:"minimum=1"`
	Window time.Duration `koanf:"window" json:"window" jsonschema:"type=string"`
}

// Validate reports whether p can be enforced.
func (p Policy) Validate() error {
	if p.Limit < 1 {
		return oops.Code("RATELIMIT_POLICY_INVALID").With("limit", p.Limit).Errorf("limit must be at least 1")
	}
	if p.Window <= 0 {
		return oops.Code("RATELIMIT_POLICY_INVALID").With("window", p.Window.String()).Errorf("window must be positive")
	}
	return nil
}

// Policies maps operations to their ceilings.
type Policies map[Operation]Policy

// DefaultPolicies returns the built-in ceilings.
func DefaultPolicies() Policies {
	return Policies{
		OpLogin:   {Limit: 10, Window: time.Minute},
		OpSignup:  {Limit: 5, Window: time.Hour},
		OpRefresh: {Limit: 30, Window: time.Minute},
		OpKeys:    {Limit: 20, Window: time.Minute},
		OpDefault: {Limit: 120, Window: time.Minute},
	}
}

// For returns the policy for op, falling back to OpDefault and then to
// the built-in default.
func (p Policies) For(op Operation) Policy {
	if policy, ok := p[op]; ok {
		return policy
	}
	if policy, ok := p[OpDefault]; ok {
		return policy
	}
	return DefaultPolicies()[OpDefault]
}

// Merge returns a copy of p with overrides applied on top.
func (p Policies) Merge(overrides Policies) Policies {
	merged := make(Policies, len(p)+len(overrides))
	for op, policy := range p {
		merged[op] = policy
	}
	for op, policy := range overrides {
		merged[op] = policy
	}
	return merged
}

// Validate checks every policy.
func (p Policies) Validate() error {
	for op, policy := range p {
		if err := policy.Validate(); err != nil {
			return oops.With("operation", string(op)).Wrap(err)
		}
	}
	return nil
}
