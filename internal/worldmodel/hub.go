package worldmodel

import (
	"context"

	"dungeoncrawler/internal/overlay"
	"dungeoncrawler/internal/prng"
	"dungeoncrawler/internal/worldtypes"
)

// hubPerimeterEdge is one candidate edge leading out of the 2x2 seed hub.
type hubPerimeterEdge struct {
	x, y int32
	dir  worldtypes.Direction
}

// hubPerimeter enumerates the eight edges leading out of the hub's 2x2
// footprint {(0,0),(1,0),(0,1),(1,1)}.
func hubPerimeter() []hubPerimeterEdge {
	return []hubPerimeterEdge{
		{0, 0, worldtypes.North}, {0, 0, worldtypes.West},
		{1, 0, worldtypes.North}, {1, 0, worldtypes.East},
		{0, 1, worldtypes.South}, {0, 1, worldtypes.West},
		{1, 1, worldtypes.South}, {1, 1, worldtypes.East},
	}
}

// ensureSeedHub lazily ensures the level's seed hub exists (spec §4.6): a
// 2x2 room with open interior edges, wall perimeter except 1-2
// deterministically chosen frontier doors. It is idempotent: once the hub
// cell (0,0) carries a CellOverride, later calls are no-ops.
func (o *Oracle) ensureSeedHub(ctx context.Context, level int32) error {
	return o.overlay.Transact(ctx, func(tx overlay.Tx) error {
		existing, err := tx.GetCellOverride(ctx, level, 0, 0)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		now := o.clock()
		for _, c := range [][2]int32{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
			if err := tx.WriteCell(ctx, level, c[0], c[1], overlay.CellMeta{Kind: overlay.CellHubRoom, AreaID: "hub"}, now); err != nil {
				return err
			}
		}

		interior := []hubPerimeterEdge{
			{0, 0, worldtypes.East}, {0, 0, worldtypes.South},
			{1, 0, worldtypes.South}, {0, 1, worldtypes.East},
		}
		for _, e := range interior {
			if err := tx.WriteEdgeBothWays(ctx, level, e.x, e.y, e.dir, worldtypes.Open, false, nil, now); err != nil {
				return err
			}
		}

		rng := prng.New(prng.Mix(o.world.Seed, level, 0, 0, "hub_init"))
		perimeter := hubPerimeter()
		rng.ShuffleInPlace(len(perimeter), func(i, j int) { perimeter[i], perimeter[j] = perimeter[j], perimeter[i] })
		doorCount := rng.Int(1, 3)

		for i, e := range perimeter {
			if i < doorCount {
				if err := tx.WriteEdgeBothWays(ctx, level, e.x, e.y, e.dir, worldtypes.DoorUnlocked, true, nil, now); err != nil {
					return err
				}
				continue
			}
			if err := tx.WriteEdgeBothWays(ctx, level, e.x, e.y, e.dir, worldtypes.Wall, false, nil, now); err != nil {
				return err
			}
		}
		return nil
	})
}
