package generation_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dungeoncrawler/internal/generation"
)

func TestCache_GetOrGenerate_CachesAcrossCalls(t *testing.T) {
	cache := generation.NewCache(4)

	first, err := cache.GetOrGenerate(generation.VariantMaze, 7, 0, 0, 0)
	require.NoError(t, err)
	second, err := cache.GetOrGenerate(generation.VariantMaze, 7, 0, 0, 0)
	require.NoError(t, err)

	require.Same(t, first, second, "cache must return the same memoized pointer on hit")
	require.Equal(t, 1, cache.Len())
}

func TestCache_Purge_ForcesRegeneration(t *testing.T) {
	cache := generation.NewCache(4)

	first, err := cache.GetOrGenerate(generation.VariantMaze, 7, 0, 0, 0)
	require.NoError(t, err)

	cache.Purge()
	require.Equal(t, 0, cache.Len())

	second, err := cache.GetOrGenerate(generation.VariantMaze, 7, 0, 0, 0)
	require.NoError(t, err)

	require.NotSame(t, first, second)
	require.Equal(t, first.East, second.East, "regenerated chunk must be byte-identical to the original")
}
