package counterstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetMissingIsZero(t *testing.T) {
	m := NewMemory()
	n, err := m.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMemory_SetAndGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", 7, time.Minute))
	n, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestMemory_ExpiryDropsEntry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	base := time.Now()
	now := base
	m.SetClock(func() time.Time { return now })

	require.NoError(t, m.Set(ctx, "k", 3, 10*time.Second))

	now = base.Add(9 * time.Second)
	n, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	now = base.Add(10 * time.Second)
	n, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 0, n, "entry expires exactly at the deadline")
}

func TestMemory_RemainingTTL(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	base := time.Now()
	now := base
	m.SetClock(func() time.Time { return now })

	ttl, err := m.RemainingTTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl, "absent key reports negative TTL")

	require.NoError(t, m.Set(ctx, "k", 1, time.Minute))

	now = base.Add(15 * time.Second)
	ttl, err = m.RemainingTTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, ttl)

	now = base.Add(2 * time.Minute)
	ttl, err = m.RemainingTTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl, "expired key reports negative TTL")
}

func TestMemory_OverwriteResetsTTL(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	base := time.Now()
	now := base
	m.SetClock(func() time.Time { return now })

	require.NoError(t, m.Set(ctx, "k", 1, time.Minute))
	now = base.Add(30 * time.Second)
	require.NoError(t, m.Set(ctx, "k", 2, 10*time.Second))

	ttl, err := m.RemainingTTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, ttl)
}
