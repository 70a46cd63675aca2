package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := New("downstream", 2, time.Minute, nil)
	assert.Equal(t, Closed, cb.State())

	require.ErrorIs(t, cb.Execute(context.Background(), func(ctx context.Context) error { return errBoom }), errBoom)
	assert.Equal(t, Closed, cb.State())

	require.ErrorIs(t, cb.Execute(context.Background(), func(ctx context.Context) error { return errBoom }), errBoom)
	assert.Equal(t, Open, cb.State())

	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		t.Fatal("op must not run while circuit is open")
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreakerHalfOpenTrialRecovers(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	cb := New("downstream", 1, time.Second, nil)
	cb.now = clock

	require.ErrorIs(t, cb.Execute(context.Background(), func(ctx context.Context) error { return errBoom }), errBoom)
	assert.Equal(t, Open, cb.State())

	now = now.Add(2 * time.Second)
	assert.Equal(t, HalfOpen, cb.State())

	require.NoError(t, cb.Execute(context.Background(), func(ctx context.Context) error { return nil }))
	assert.Equal(t, Closed, cb.State())
}

func TestCircuitBreakerHalfOpenTrialReopensOnFailure(t *testing.T) {
	now := time.Now()
	cb := New("downstream", 1, time.Second, nil)
	cb.now = func() time.Time { return now }

	require.ErrorIs(t, cb.Execute(context.Background(), func(ctx context.Context) error { return errBoom }), errBoom)
	assert.Equal(t, Open, cb.State())

	now = now.Add(2 * time.Second)
	require.ErrorIs(t, cb.Execute(context.Background(), func(ctx context.Context) error { return errBoom }), errBoom)
	assert.Equal(t, Open, cb.State())
}

func TestCircuitBreakerReset(t *testing.T) {
	cb := New("downstream", 1, time.Minute, nil)
	require.ErrorIs(t, cb.Execute(context.Background(), func(ctx context.Context) error { return errBoom }), errBoom)
	assert.Equal(t, Open, cb.State())

	cb.Reset()
	assert.Equal(t, Closed, cb.State())
}
