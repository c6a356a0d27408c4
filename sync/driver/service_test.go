package driver

import (
	"context"
	"testing"

	"github.com/syncstack/follower/shared/testutil/assert"
	"github.com/syncstack/follower/shared/testutil/require"
	"github.com/syncstack/follower/sync/persistence"
	"github.com/syncstack/follower/types"
)

func TestService_BlockCache(t *testing.T) {
	p := persistence.NewService(context.Background(), &persistence.Config{QueueCapacity: 1})
	svc, err := NewService(context.Background(), &Config{
		CachePath:          t.TempDir(),
		BlockCacheCapacity: 2,
		Persistence:        p,
	})
	require.NoError(t, err)

	_, ok := svc.CachedBlock(1)
	assert.Equal(t, false, ok)

	svc.CacheBlock(&types.Block{Number: 1, Timestamp: 100})
	block, ok := svc.CachedBlock(1)
	require.Equal(t, true, ok)
	assert.Equal(t, uint64(100), block.Timestamp)

	// The cache is bounded; the oldest entry is evicted.
	svc.CacheBlock(&types.Block{Number: 2})
	svc.CacheBlock(&types.Block{Number: 3})
	_, ok = svc.CachedBlock(1)
	assert.Equal(t, false, ok)
}

func TestService_BadCachePathFailsAssembly(t *testing.T) {
	_, err := NewService(context.Background(), &Config{
		CachePath: "/dev/null/not-a-directory",
	})
	require.ErrorContains(t, "could not create state cache", err)
}
