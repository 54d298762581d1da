package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carworth/carworth/internal/domain"
)

func TestKeyPool_RotatesPastExhausted(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	pool := NewKeyPool([]string{"key-a", "key-b", "key-c"})

	key, err := pool.Current(now)
	require.NoError(t, err)
	assert.Equal(t, "key-a", key)

	pool.MarkExhausted("key-a", endOfBillingPeriod(now), now)
	key, err = pool.Current(now)
	require.NoError(t, err)
	assert.Equal(t, "key-b", key)
	assert.Equal(t, 2, pool.UsableCount(now))
}

func TestKeyPool_ExhaustedKeyRecoversNextPeriod(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	pool := NewKeyPool([]string{"key-a"})

	pool.MarkExhausted("key-a", endOfBillingPeriod(now), now)
	_, err := pool.Current(now)
	assert.ErrorIs(t, err, domain.ErrAllKeysExhausted)

	// April 1st: the quota resets and the key is live again.
	april := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	key, err := pool.Current(april)
	require.NoError(t, err)
	assert.Equal(t, "key-a", key)
}

func TestKeyPool_InvalidIsPermanent(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	pool := NewKeyPool([]string{"key-a", "key-b"})

	pool.MarkInvalid("key-a", now)
	assert.Equal(t, 1, pool.UsableCount(now))

	// No passage of time revives an invalid key.
	later := now.AddDate(1, 0, 0)
	key, err := pool.Current(later)
	require.NoError(t, err)
	assert.Equal(t, "key-b", key)
	assert.Equal(t, 1, pool.UsableCount(later))
}

func TestKeyPool_AllExhausted(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	pool := NewKeyPool([]string{"key-a", "key-b"})

	pool.MarkExhausted("key-a", endOfBillingPeriod(now), now)
	pool.MarkInvalid("key-b", now)

	_, err := pool.Current(now)
	assert.ErrorIs(t, err, domain.ErrAllKeysExhausted)
}

func TestKeyPool_Empty(t *testing.T) {
	pool := NewKeyPool(nil)
	_, err := pool.Current(time.Now())
	assert.ErrorIs(t, err, domain.ErrAllKeysExhausted)
}

func TestEndOfBillingPeriod(t *testing.T) {
	now := time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), endOfBillingPeriod(now))
}
