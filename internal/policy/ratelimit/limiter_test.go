package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterWaitSpacesSameHost(t *testing.T) {
	l := New(Config{DefaultRPS: 10, DefaultBurst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://example.com/a"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://example.com/b"))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestLimiterHostsAreIndependent(t *testing.T) {
	l := New(Config{DefaultRPS: 1, DefaultBurst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://one.test/"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://two.test/"))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiterHostOverride(t *testing.T) {
	l := New(Config{DefaultRPS: 0.1, HostRPS: map[string]float64{"Fast.test": 0}})
	ctx := context.Background()

	start := time.Now()
	for range 5 {
		require.NoError(t, l.Wait(ctx, "https://fast.test/x"))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiterHonorsContext(t *testing.T) {
	l := New(Config{DefaultRPS: 0.01, DefaultBurst: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, l.Wait(ctx, "https://slow.test/"))
	require.Error(t, l.Wait(ctx, "https://slow.test/"))
}

func TestDisabledLimiter(t *testing.T) {
	l := New(Config{})
	start := time.Now()
	for range 10 {
		require.NoError(t, l.Wait(context.Background(), "::bad url"))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestHostKey(t *testing.T) {
	assert.Equal(t, "example.com", hostKey("https://EXAMPLE.com:8443/x"))
	assert.Equal(t, "unknown", hostKey("::bad"))
}
