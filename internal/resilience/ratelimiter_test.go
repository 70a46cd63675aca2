package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsUpToLimitThenDenies(t *testing.T) {
	now := time.Now()
	r := New(nil, BucketLimits{Limit: 2, RefillRate: 0}).WithClock(func() time.Time { return now })

	first := r.Check("conn-1", "tools/call")
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)

	second := r.Check("conn-1", "tools/call")
	assert.True(t, second.Allowed)
	assert.Equal(t, 0, second.Remaining)

	third := r.Check("conn-1", "tools/call")
	assert.False(t, third.Allowed)
	assert.Equal(t, 0, third.Remaining)
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	now := time.Now()
	r := New(nil, BucketLimits{Limit: 1, RefillRate: 1}).WithClock(func() time.Time { return now })

	first := r.Check("conn-1", "ping")
	assert.True(t, first.Allowed)

	denied := r.Check("conn-1", "ping")
	assert.False(t, denied.Allowed)

	now = now.Add(time.Second)
	recovered := r.Check("conn-1", "ping")
	assert.True(t, recovered.Allowed)
}

func TestRateLimiterPerMethodOverridesDefault(t *testing.T) {
	perMethod := map[string]BucketLimits{"tools/call": {Limit: 5, RefillRate: 0}}
	r := New(perMethod, BucketLimits{Limit: 1, RefillRate: 0})

	for i := 0; i < 5; i++ {
		d := r.Check("conn-1", "tools/call")
		assert.True(t, d.Allowed, "call %d should be allowed under the per-method limit", i)
	}
	assert.False(t, r.Check("conn-1", "tools/call").Allowed)
}

func TestRateLimiterTracksIdentitiesIndependently(t *testing.T) {
	r := New(nil, BucketLimits{Limit: 1, RefillRate: 0})

	assert.True(t, r.Check("conn-1", "ping").Allowed)
	assert.False(t, r.Check("conn-1", "ping").Allowed)
	assert.True(t, r.Check("conn-2", "ping").Allowed)
}
