package snapshot_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"dungeoncrawler/internal/discovery"
	"dungeoncrawler/internal/generation"
	"dungeoncrawler/internal/overlay"
	"dungeoncrawler/internal/snapshot"
	"dungeoncrawler/internal/worldmodel"
	"dungeoncrawler/internal/worldtypes"
)

func newTestBuilder(t *testing.T) (*snapshot.Builder, discovery.Store) {
	t.Helper()
	store := overlay.NewMemStore()
	cache := generation.NewCache(64)
	oracle := worldmodel.NewOracle(worldmodel.WorldRef{ID: "w1", Seed: 11, GeneratorVersion: generation.VariantMaze}, store, cache, func() int64 { return 5000 })
	disc := discovery.NewMemStore()
	return snapshot.NewBuilder(oracle, disc, func() int64 { return 5000 }), disc
}

func TestBuild_HubDistanceIsZeroAtOrigin(t *testing.T) {
	b, _ := newTestBuilder(t)
	snap, err := b.Build(context.Background(), 0, 0, 0, worldtypes.North, 100, nil, snapshot.Cooldowns{})
	require.NoError(t, err)
	require.Equal(t, 0, snap.Hub.DistFeet)
}

func TestBuild_HubDistanceScalesByFive(t *testing.T) {
	b, _ := newTestBuilder(t)
	snap, err := b.Build(context.Background(), 0, 4, 0, worldtypes.North, 100, nil, snapshot.Cooldowns{})
	require.NoError(t, err)
	require.Equal(t, 20, snap.Hub.DistFeet) // round(sqrt(16)*5) = 20
}

func TestBuild_VisibleCellsIncludesPlayerCell(t *testing.T) {
	b, _ := newTestBuilder(t)
	snap, err := b.Build(context.Background(), 0, 0, 0, worldtypes.North, 100, nil, snapshot.Cooldowns{})
	require.NoError(t, err)

	found := false
	for _, c := range snap.VisibleCells {
		if c.X == 0 && c.Y == 0 {
			found = true
		}
	}
	require.True(t, found)
}

func TestBuild_WorldHashIsStableForIdenticalState(t *testing.T) {
	b, _ := newTestBuilder(t)
	snapA, err := b.Build(context.Background(), 0, 0, 0, worldtypes.North, 100, nil, snapshot.Cooldowns{MoveReadyAtMs: 5000})
	require.NoError(t, err)
	snapB, err := b.Build(context.Background(), 0, 0, 0, worldtypes.North, 100, nil, snapshot.Cooldowns{MoveReadyAtMs: 5000})
	require.NoError(t, err)
	require.Equal(t, snapA.WorldHash, snapB.WorldHash)
}

func TestBuild_WorldHashChangesWithPose(t *testing.T) {
	b, _ := newTestBuilder(t)
	snapA, err := b.Build(context.Background(), 0, 0, 0, worldtypes.North, 100, nil, snapshot.Cooldowns{})
	require.NoError(t, err)
	snapB, err := b.Build(context.Background(), 0, 0, 0, worldtypes.South, 100, nil, snapshot.Cooldowns{})
	require.NoError(t, err)
	require.NotEqual(t, snapA.WorldHash, snapB.WorldHash)
}

func TestBuild_MinimapReflectsDiscoveredCells(t *testing.T) {
	b, disc := newTestBuilder(t)
	require.NoError(t, disc.MarkDiscovered(context.Background(), 0, 2, 2, 5000))

	snap, err := b.Build(context.Background(), 0, 0, 0, worldtypes.North, 100, nil, snapshot.Cooldowns{})
	require.NoError(t, err)

	found := false
	for _, c := range snap.MinimapCells {
		if c.X == 2 && c.Y == 2 {
			found = true
		}
	}
	require.True(t, found)
}
