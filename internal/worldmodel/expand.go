package worldmodel

import (
	"context"
	"fmt"

	"dungeoncrawler/internal/overlay"
	"dungeoncrawler/internal/prng"
	"dungeoncrawler/internal/worldtypes"
)

const (
	corridorContinueProb = 0.72
	roomExtraDoorProb    = 0.55
)

// otherDoorWeights is the weighted choice of how many of a new corridor
// cell's three non-back directions become fresh frontier doors (spec §4.6:
// "weights ≈ {0.3, 0.5, 0.2}" for {0, 1, 2}).
var otherDoorWeights = []struct {
	count int
	until float64
}{
	{0, 0.3},
	{1, 0.8},
	{2, 1.0},
}

// expand performs lazy frontier expansion for the door at (level,x,y,dir)
// (spec §4.6). It runs inside a single overlay transaction so that two
// concurrent resolutions of the same frontier converge to one outcome
// (spec P9).
func (o *Oracle) expand(ctx context.Context, level, x, y int32, dir worldtypes.Direction) error {
	dx, dy := dir.Delta()
	nx, ny := x+int32(dx), y+int32(dy)
	back := dir.Opposite()
	now := o.clock()

	return o.overlay.Transact(ctx, func(tx overlay.Tx) error {
		destCell, err := tx.GetCellOverride(ctx, level, nx, ny)
		if err != nil {
			return err
		}
		if destCell != nil {
			return tx.ClearEdgeFrontier(ctx, level, x, y, dir, now)
		}

		sourceCell, err := tx.GetCellOverride(ctx, level, x, y)
		if err != nil {
			return err
		}
		sourceIsRoomlike := sourceCell != nil &&
			(sourceCell.Meta.Kind == overlay.CellHubRoom || sourceCell.Meta.Kind == overlay.CellRoom)

		rng := prng.New(o.mixExpand(level, x, y, dir))

		if sourceIsRoomlike {
			if err := o.placeRoom(ctx, tx, rng, level, nx, ny, dir, back, now); err != nil {
				return err
			}
		} else if rng.Float01() < corridorContinueProb {
			if err := o.placeCorridor(ctx, tx, rng, level, nx, ny, back, now); err != nil {
				return err
			}
		} else {
			placed, err := o.tryPlaceRoom(ctx, tx, rng, level, nx, ny, dir, back, now)
			if err != nil {
				return err
			}
			if !placed {
				if err := o.placeCorridor(ctx, tx, rng, level, nx, ny, back, now); err != nil {
					return err
				}
			}
		}

		return tx.ClearEdgeFrontier(ctx, level, x, y, dir, now)
	})
}

// placeCorridor records (nx,ny) as a corridor cell, clears the frontier flag
// on the entrance (handled by the caller via the mirror), and decides the
// other three directions: each becomes a fresh frontier door, an explicit
// wall, per the weighted distribution in spec §4.6.
func (o *Oracle) placeCorridor(ctx context.Context, tx overlay.Tx, rng *prng.RNG, level, nx, ny int32, back worldtypes.Direction, now int64) error {
	if err := tx.WriteCell(ctx, level, nx, ny, overlay.CellMeta{Kind: overlay.CellCorridor, AreaID: fmt.Sprintf("corridor:%d:%d:%d", level, nx, ny)}, now); err != nil {
		return err
	}

	others := otherDirections(back)
	rng.ShuffleInPlace(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })
	doorCount := weightedDoorCount(rng)

	for i, d := range others {
		if i < doorCount {
			if err := tx.WriteEdgeBothWays(ctx, level, nx, ny, d, worldtypes.DoorUnlocked, true, nil, now); err != nil {
				return err
			}
			continue
		}
		if err := tx.WriteEdgeBothWays(ctx, level, nx, ny, d, worldtypes.Wall, false, nil, now); err != nil {
			return err
		}
	}
	return nil
}

// placeRoom is placeCorridor's counterpart when the source cell is
// roomlike: the destination must be a corridor cell (spec §4.6: "If source
// is hub/room: destination must be a corridor cell").
func (o *Oracle) placeRoom(ctx context.Context, tx overlay.Tx, rng *prng.RNG, level, nx, ny int32, entryDir, back worldtypes.Direction, now int64) error {
	return o.placeCorridor(ctx, tx, rng, level, nx, ny, back, now)
}

// tryPlaceRoom attempts to place a 2x2 room forward of the entrance,
// falling back to the caller placing a corridor if no 2x2 area is free.
func (o *Oracle) tryPlaceRoom(ctx context.Context, tx overlay.Tx, rng *prng.RNG, level, nx, ny int32, travelDir, back worldtypes.Direction, now int64) (bool, error) {
	travelDx, travelDy := travelDir.Delta()

	var perpA, perpB worldtypes.Direction
	if travelDir == worldtypes.North || travelDir == worldtypes.South {
		perpA, perpB = worldtypes.East, worldtypes.West
	} else {
		perpA, perpB = worldtypes.North, worldtypes.South
	}
	perp := perpA
	if rng.Int(0, 2) == 1 {
		perp = perpB
	}
	perpDx, perpDy := perp.Delta()

	corner0 := [2]int32{nx, ny}
	corner1 := [2]int32{nx + int32(travelDx), ny + int32(travelDy)}
	corner2 := [2]int32{nx + int32(perpDx), ny + int32(perpDy)}
	corner3 := [2]int32{corner1[0] + int32(perpDx), corner1[1] + int32(perpDy)}
	cells := [][2]int32{corner0, corner1, corner2, corner3}

	for _, c := range cells {
		existing, err := tx.GetCellOverride(ctx, level, c[0], c[1])
		if err != nil {
			return false, err
		}
		if existing != nil {
			return false, nil
		}
	}

	areaID := fmt.Sprintf("room:%d:%d:%d", level, nx, ny)
	for _, c := range cells {
		if err := tx.WriteCell(ctx, level, c[0], c[1], overlay.CellMeta{Kind: overlay.CellRoom, AreaID: areaID}, now); err != nil {
			return false, err
		}
	}

	// Four interior edges forming the 2x2 loop.
	if err := writeOpenBetween(ctx, tx, level, corner0, travelDir, now); err != nil {
		return false, err
	}
	if err := writeOpenBetween(ctx, tx, level, corner0, perp, now); err != nil {
		return false, err
	}
	if err := writeOpenBetween(ctx, tx, level, corner1, perp, now); err != nil {
		return false, err
	}
	if err := writeOpenBetween(ctx, tx, level, corner2, travelDir, now); err != nil {
		return false, err
	}

	perimeter := roomPerimeter(cells, map[[2]int32]bool{
		corner0: true, corner1: true, corner2: true, corner3: true,
	})

	extraDoor := rng.Float01() < roomExtraDoorProb
	rng.ShuffleInPlace(len(perimeter), func(i, j int) { perimeter[i], perimeter[j] = perimeter[j], perimeter[i] })

	extraChosen := false
	for _, e := range perimeter {
		if e.x == nx && e.y == ny && e.dir == back {
			// entrance; frontier cleared by the caller.
			continue
		}
		if extraDoor && !extraChosen {
			if err := tx.WriteEdgeBothWays(ctx, level, e.x, e.y, e.dir, worldtypes.DoorUnlocked, true, nil, now); err != nil {
				return false, err
			}
			extraChosen = true
			continue
		}
		if err := tx.WriteEdgeBothWays(ctx, level, e.x, e.y, e.dir, worldtypes.Wall, false, nil, now); err != nil {
			return false, err
		}
	}

	return true, nil
}

func writeOpenBetween(ctx context.Context, tx overlay.Tx, level int32, from [2]int32, dir worldtypes.Direction, now int64) error {
	return tx.WriteEdgeBothWays(ctx, level, from[0], from[1], dir, worldtypes.Open, false, nil, now)
}

type roomEdge struct {
	x, y int32
	dir  worldtypes.Direction
}

// roomPerimeter enumerates every edge leading from a room cell to a cell
// outside the given footprint.
func roomPerimeter(cells [][2]int32, footprint map[[2]int32]bool) []roomEdge {
	var edges []roomEdge
	for _, c := range cells {
		for _, d := range []worldtypes.Direction{worldtypes.North, worldtypes.East, worldtypes.South, worldtypes.West} {
			dx, dy := d.Delta()
			n := [2]int32{c[0] + int32(dx), c[1] + int32(dy)}
			if footprint[n] {
				continue
			}
			edges = append(edges, roomEdge{c[0], c[1], d})
		}
	}
	return edges
}

func otherDirections(exclude worldtypes.Direction) []worldtypes.Direction {
	all := []worldtypes.Direction{worldtypes.North, worldtypes.East, worldtypes.South, worldtypes.West}
	out := make([]worldtypes.Direction, 0, 3)
	for _, d := range all {
		if d != exclude {
			out = append(out, d)
		}
	}
	return out
}

func weightedDoorCount(rng *prng.RNG) int {
	roll := rng.Float01()
	for _, w := range otherDoorWeights {
		if roll < w.until {
			return w.count
		}
	}
	return otherDoorWeights[len(otherDoorWeights)-1].count
}
