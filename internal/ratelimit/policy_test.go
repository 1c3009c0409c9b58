// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package ratelimit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authcore/internal/ratelimit"
	"github.com/holomush/authcore/pkg/errutil"
)

func TestDefaultPolicies(t *testing.T) {
	p := ratelimit.DefaultPolicies()
	tests := []struct {
		op     ratelimit.Operation
		limit  int
		window time.Duration
	}{
		{ratelimit.OpLogin, 10, time.Minute},
		{ratelimit.OpSignup, 5, time.Hour},
		{ratelimit.OpRefresh, 30, time.Minute},
		{ratelimit.OpKeys, 20, time.Minute},
		{ratelimit.OpDefault, 120, time.Minute},
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			got := p.For(tt.op)
			assert.Equal(t, tt.limit, got.Limit)
			assert.Equal(t, tt.window, got.Window)
		})
	}
}

func TestPolicies_ForFallsBackToDefault(t *testing.T) {
	p := ratelimit.Policies{ratelimit.OpDefault: {Limit: 7, Window: time.Second}}
	assert.Equal(t, 7, p.For("unknown").Limit)

	var empty ratelimit.Policies
	assert.Equal(t, 120, empty.For("unknown").Limit)
}

func TestPolicies_Merge(t *testing.T) {
	base := ratelimit.DefaultPolicies()
	merged := base.Merge(ratelimit.Policies{ratelimit.OpLogin: {Limit: 3, Window: time.Second}})

	assert.Equal(t, 3, merged.For(ratelimit.OpLogin).Limit)
	assert.Equal(t, 10, base.For(ratelimit.OpLogin).Limit, "merge must not modify the receiver")
	assert.Equal(t, 5, merged.For(ratelimit.OpSignup).Limit)
}

func TestPolicies_Validate(t *testing.T) {
	require.NoError(t, ratelimit.DefaultPolicies().Validate())

	err := ratelimit.Policies{ratelimit.OpKeys: {Limit: 0, Window: time.Minute}}.Validate()
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "RATELIMIT_POLICY_INVALID")
	errutil.AssertErrorContext(t, err, "operation", "keys")

	err = ratelimit.Policies{ratelimit.OpKeys: {Limit: 1}}.Validate()
	errutil.AssertErrorCode(t, err, "RATELIMIT_POLICY_INVALID")
}
