package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceTokenCacheReusesUntilExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	fetches := 0

	cache := NewServiceTokenCache(func(ctx context.Context) (string, time.Time, error) {
		fetches++
		return fmt.Sprintf("token-%d", fetches), now.Add(time.Hour), nil
	})
	cache.now = func() time.Time { return now }

	token, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)

	// Still valid, no refetch.
	token, err = cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)
	assert.Equal(t, 1, fetches)

	// Past expiry, refreshed and overwritten.
	now = now.Add(2 * time.Hour)
	token, err = cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)
	assert.Equal(t, 2, fetches)
}

func TestServiceTokenCacheRefreshesWithinLeeway(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	fetches := 0

	cache := NewServiceTokenCache(func(ctx context.Context) (string, time.Time, error) {
		fetches++
		return "token", now.Add(10 * time.Second), nil
	})
	cache.now = func() time.Time { return now }

	_, err := cache.Token(context.Background())
	require.NoError(t, err)

	// Expiry is closer than the leeway window, so the next call refetches.
	_, err = cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fetches)
}

func TestServiceTokenCachePropagatesFetchError(t *testing.T) {
	cache := NewServiceTokenCache(func(ctx context.Context) (string, time.Time, error) {
		return "", time.Time{}, fmt.Errorf("provider unavailable")
	})

	_, err := cache.Token(context.Background())
	assert.EqualError(t, err, "provider unavailable")
}
