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

func newTestOracle(t *testing.T) (*worldmodel.Oracle, overlay.Store) {
	t.Helper()
	store := overlay.NewMemStore()
	cache := generation.NewCache(64)
	clock := func() int64 { return 1000 }
	oracle := worldmodel.NewOracle(worldmodel.WorldRef{ID: "w1", Seed: 42, GeneratorVersion: generation.VariantMaze}, store, cache, clock)
	return oracle, store
}

func TestEdgeType_LazilyInitializesHub(t *testing.T) {
	ctx := context.Background()
	oracle, store := newTestOracle(t)

	_, err := oracle.EdgeType(ctx, 0, 0, 0, worldtypes.East, worldtypes.PurposeMovement)
	require.NoError(t, err)

	cell, err := store.GetCellOverride(ctx, 0, 0, 0)
	require.NoError(t, err)
	require.NotNil(t, cell)
	require.Equal(t, overlay.CellHubRoom, cell.Meta.Kind)
}

func TestEdgeType_HubInteriorEdgesAreOpen(t *testing.T) {
	ctx := context.Background()
	oracle, _ := newTestOracle(t)

	kind, err := oracle.EdgeType(ctx, 0, 0, 0, worldtypes.East, worldtypes.PurposeMovement)
	require.NoError(t, err)
	require.Equal(t, worldtypes.Open, kind)

	kind, err = oracle.EdgeType(ctx, 0, 0, 0, worldtypes.South, worldtypes.PurposeMovement)
	require.NoError(t, err)
	require.Equal(t, worldtypes.Open, kind)
}

func TestEdgeType_MovementOnFrontierDoorExpands(t *testing.T) {
	ctx := context.Background()
	oracle, store := newTestOracle(t)

	// Ensure the hub exists and find one of its frontier doors.
	_, err := oracle.EdgeType(ctx, 0, 0, 0, worldtypes.East, worldtypes.PurposeMovement)
	require.NoError(t, err)

	var frontierX, frontierY int32
	var frontierDir worldtypes.Direction
	found := false
	for _, c := range [][2]int32{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		for _, d := range []worldtypes.Direction{worldtypes.North, worldtypes.East, worldtypes.South, worldtypes.West} {
			ov, err := store.GetEdgeOverride(ctx, 0, c[0], c[1], d)
			require.NoError(t, err)
			if ov.IsFrontierDoor() {
				frontierX, frontierY, frontierDir = c[0], c[1], d
				found = true
				break
			}
		}
		if found {
			break
		}
	}
	require.True(t, found, "expected the hub to have at least one frontier door")

	kind, err := oracle.EdgeType(ctx, 0, frontierX, frontierY, frontierDir, worldtypes.PurposeMovement)
	require.NoError(t, err)
	require.Equal(t, worldtypes.DoorUnlocked, kind)

	// After movement-triggered expansion, the door is no longer flagged
	// frontier (spec §4.6).
	ov, err := store.GetEdgeOverride(ctx, 0, frontierX, frontierY, frontierDir)
	require.NoError(t, err)
	require.False(t, ov.Frontier)

	dx, dy := frontierDir.Delta()
	destCell, err := store.GetCellOverride(ctx, 0, frontierX+int32(dx), frontierY+int32(dy))
	require.NoError(t, err)
	require.NotNil(t, destCell)
}

func TestEdgeType_VisibilityDoesNotExpandFrontier(t *testing.T) {
	ctx := context.Background()
	oracle, store := newTestOracle(t)

	_, err := oracle.EdgeType(ctx, 0, 0, 0, worldtypes.East, worldtypes.PurposeMovement)
	require.NoError(t, err)

	for _, d := range []worldtypes.Direction{worldtypes.North, worldtypes.East, worldtypes.South, worldtypes.West} {
		ov, err := store.GetEdgeOverride(ctx, 0, 0, 0, d)
		require.NoError(t, err)
		if ov.IsFrontierDoor() {
			_, err := oracle.EdgeType(ctx, 0, 0, 0, d, worldtypes.PurposeVisibility)
			require.NoError(t, err)
			dx, dy := d.Delta()
			dest, err := store.GetCellOverride(ctx, 0, dx, dy)
			require.NoError(t, err)
			require.Nil(t, dest, "visibility queries must not trigger frontier expansion")
			return
		}
	}
}

func TestEdgeType_ConcurrentExpansionConverges(t *testing.T) {
	ctx := context.Background()
	oracle, store := newTestOracle(t)

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

	done := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := oracle.EdgeType(ctx, 0, fx, fy, fdir, worldtypes.PurposeMovement)
			done <- err
		}()
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, <-done)
	}

	dx, dy := fdir.Delta()
	nx, ny := fx+int32(dx), fy+int32(dy)
	cell, err := store.GetCellOverride(ctx, 0, nx, ny)
	require.NoError(t, err)
	require.NotNil(t, cell, "destination cell must be carved exactly once, deterministically")
}
