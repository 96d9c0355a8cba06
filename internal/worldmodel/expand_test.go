package worldmodel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"dungeoncrawler/internal/generation"
	"dungeoncrawler/internal/overlay"
	"dungeoncrawler/internal/worldmodel"
	"dungeoncrawler/internal/worldtypes"
)

// expandAllFrontierDoors walks the hub's frontier doors and resolves each
// via a movement query, returning the destination cells it carved.
func expandAllFrontierDoors(t *testing.T, oracle *worldmodel.Oracle, store overlay.Store) [][2]int32 {
	t.Helper()
	ctx := context.Background()
	_, err := oracle.EdgeType(ctx, 0, 0, 0, worldtypes.East, worldtypes.PurposeMovement)
	require.NoError(t, err)

	var dests [][2]int32
	for _, c := range [][2]int32{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		for _, d := range []worldtypes.Direction{worldtypes.North, worldtypes.East, worldtypes.South, worldtypes.West} {
			ov, err := store.GetEdgeOverride(ctx, 0, c[0], c[1], d)
			require.NoError(t, err)
			if ov.IsFrontierDoor() {
				_, err := oracle.EdgeType(ctx, 0, c[0], c[1], d, worldtypes.PurposeMovement)
				require.NoError(t, err)
				dx, dy := d.Delta()
				dests = append(dests, [2]int32{c[0] + int32(dx), c[1] + int32(dy)})
			}
		}
	}
	return dests
}

func TestExpand_FromHubAlwaysCarvesCorridor(t *testing.T) {
	ctx := context.Background()
	store := overlay.NewMemStore()
	cache := generation.NewCache(64)
	oracle := worldmodel.NewOracle(worldmodel.WorldRef{ID: "w1", Seed: 7, GeneratorVersion: generation.VariantMaze}, store, cache, func() int64 { return 0 })

	dests := expandAllFrontierDoors(t, oracle, store)
	require.NotEmpty(t, dests)

	for _, d := range dests {
		cell, err := store.GetCellOverride(ctx, 0, d[0], d[1])
		require.NoError(t, err)
		require.NotNil(t, cell)
		require.Equal(t, overlay.CellCorridor, cell.Meta.Kind, "expansion from a hub/room cell must always land on a corridor")
	}
}

func TestExpand_IsIdempotentOnceDestinationExists(t *testing.T) {
	ctx := context.Background()
	store := overlay.NewMemStore()
	cache := generation.NewCache(64)
	oracle := worldmodel.NewOracle(worldmodel.WorldRef{ID: "w1", Seed: 99, GeneratorVersion: generation.VariantMaze}, store, cache, func() int64 { return 0 })

	_, err := oracle.EdgeType(ctx, 0, 0, 0, worldtypes.East, worldtypes.PurposeMovement)
	require.NoError(t, err)

	var fx, fy int32
	var fdir worldtypes.Direction
	found := false
	for _, c := range [][2]int32{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		for _, d := range []worldtypes.Direction{worldtypes.North, worldtypes.East, worldtypes.South, worldtypes.West} {
			ov, _ := store.GetEdgeOverride(ctx, 0, c[0], c[1], d)
			if ov.IsFrontierDoor() {
				fx, fy, fdir = c[0], c[1], d
				found = true
			}
		}
	}
	require.True(t, found)

	_, err = oracle.EdgeType(ctx, 0, fx, fy, fdir, worldtypes.PurposeMovement)
	require.NoError(t, err)

	dx, dy := fdir.Delta()
	nx, ny := fx+int32(dx), fy+int32(dy)
	first, err := store.GetCellOverride(ctx, 0, nx, ny)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Resolving the now-non-frontier door again must not re-carve or
	// change the destination cell.
	kind, err := oracle.EdgeType(ctx, 0, fx, fy, fdir, worldtypes.PurposeMovement)
	require.NoError(t, err)
	require.Equal(t, worldtypes.DoorUnlocked, kind)

	second, err := store.GetCellOverride(ctx, 0, nx, ny)
	require.NoError(t, err)
	require.Equal(t, *first, *second)
}

func TestExpand_NewCorridorCellHasAtMostThreeOtherDoors(t *testing.T) {
	ctx := context.Background()
	store := overlay.NewMemStore()
	cache := generation.NewCache(64)
	oracle := worldmodel.NewOracle(worldmodel.WorldRef{ID: "w1", Seed: 123, GeneratorVersion: generation.VariantBSP}, store, cache, func() int64 { return 0 })

	dests := expandAllFrontierDoors(t, oracle, store)
	require.NotEmpty(t, dests)

	for _, d := range dests {
		doorCount := 0
		for _, dir := range []worldtypes.Direction{worldtypes.North, worldtypes.East, worldtypes.South, worldtypes.West} {
			ov, err := store.GetEdgeOverride(ctx, 0, d[0], d[1], dir)
			require.NoError(t, err)
			if ov != nil && ov.Kind == worldtypes.DoorUnlocked {
				doorCount++
			}
		}
		require.LessOrEqual(t, doorCount, 3)
	}
}
