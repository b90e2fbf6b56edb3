package secretcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFetchesOnceWithinTTL(t *testing.T) {
	fetches := 0
	cache := New(5*time.Minute, func(ctx context.Context) (string, error) {
		fetches++
		return "secret-1", nil
	})

	for i := 0; i < 3; i++ {
		secret, err := cache.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "secret-1", secret)
	}
	assert.Equal(t, 1, fetches)
}

func TestGetRefetchesAfterTTL(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	secrets := []string{"secret-1", "secret-2"}
	fetches := 0
	cache := New(5*time.Minute, func(ctx context.Context) (string, error) {
		s := secrets[fetches]
		fetches++
		return s, nil
	}, WithClock(func() time.Time { return now }))

	secret, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "secret-1", secret)

	now = now.Add(4 * time.Minute)
	secret, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "secret-1", secret)

	now = now.Add(2 * time.Minute)
	secret, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "secret-2", secret)
	assert.Equal(t, 2, fetches)
}

func TestGetServesStaleOnFetchFailure(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fetches := 0
	cache := New(time.Minute, func(ctx context.Context) (string, error) {
		fetches++
		if fetches > 1 {
			return "", errors.New("control api unavailable")
		}
		return "secret-1", nil
	}, WithClock(func() time.Time { return now }))

	_, err := cache.Get(context.Background())
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	secret, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "secret-1", secret)
}

func TestGetFailsWithNoCachedValue(t *testing.T) {
	cache := New(time.Minute, func(ctx context.Context) (string, error) {
		return "", errors.New("control api unavailable")
	})

	_, err := cache.Get(context.Background())
	require.Error(t, err)
}

func TestInvalidateForcesRefetch(t *testing.T) {
	fetches := 0
	cache := New(time.Hour, func(ctx context.Context) (string, error) {
		fetches++
		return "secret", nil
	})

	_, err := cache.Get(context.Background())
	require.NoError(t, err)
	cache.Invalidate()
	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fetches)
}
