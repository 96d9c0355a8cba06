// Package worldmodel implements the edge oracle (spec §4.4), the seed hub
// and lazy frontier expansion (spec §4.6): the single place that answers
// "what is at this edge" by consulting the overlay first and the
// deterministic chunk generator second.
package worldmodel

import (
	"context"
	"fmt"

	"dungeoncrawler/internal/generation"
	"dungeoncrawler/internal/overlay"
	"dungeoncrawler/internal/prng"
	"dungeoncrawler/internal/worldtypes"
)

// WorldRef identifies the world an Oracle serves: its persistent id, its
// 32-bit seed, and the generator variant its base topology is tagged with
// (spec DATA MODEL, World; spec §9 "tag the world with its label").
type WorldRef struct {
	ID               string
	Seed             uint32
	GeneratorVersion generation.Variant
}

// Oracle answers edge queries for one world, resolving overlay ⊕ generator
// per spec §4.4 and driving lazy frontier expansion per spec §4.6.
type Oracle struct {
	world   WorldRef
	overlay overlay.Store
	chunks  *generation.Cache
	clock   func() int64
}

// NewOracle constructs an Oracle. clock must return the current time in
// milliseconds; the core never reads a wall clock directly (spec §9 "Time
// injection").
func NewOracle(world WorldRef, store overlay.Store, chunks *generation.Cache, clock func() int64) *Oracle {
	return &Oracle{world: world, overlay: store, chunks: chunks, clock: clock}
}

// chunkCoords splits a global coordinate into its chunk index and local
// in-chunk offset, using Euclidean (always-non-negative) remainder for
// negative inputs (spec §4.4 "Chunk coordinates use floor-division").
func chunkCoords(v int32) (chunk int32, local int) {
	const size = generation.ChunkSize
	chunk = floorDiv(v, size)
	local = int(v - chunk*size)
	return
}

func floorDiv(a int32, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// EdgeType resolves the edge kind at (level, x, y, dir) for the given
// purpose, per spec §4.4's resolution order, and drives frontier expansion
// when a movement query lands on a frontier door (spec §4.6).
func (o *Oracle) EdgeType(ctx context.Context, level, x, y int32, dir worldtypes.Direction, purpose worldtypes.Purpose) (worldtypes.EdgeKind, error) {
	if purpose != worldtypes.PurposeMinimap {
		if err := o.ensureSeedHub(ctx, level); err != nil {
			return worldtypes.Wall, fmt.Errorf("worldmodel: ensure seed hub: %w", err)
		}
	}

	override, err := o.overlay.GetEdgeOverride(ctx, level, x, y, dir)
	if err != nil {
		return worldtypes.Wall, fmt.Errorf("worldmodel: get edge override: %w", err)
	}
	if override != nil {
		if purpose == worldtypes.PurposeMovement && override.IsFrontierDoor() {
			if err := o.expand(ctx, level, x, y, dir); err != nil {
				return worldtypes.Wall, fmt.Errorf("worldmodel: expand frontier: %w", err)
			}
		}
		return override.Kind, nil
	}

	if kind, crosses := boundaryRuleKind(x, y, dir); crosses {
		return kind, nil
	}

	return o.generatorEdge(level, x, y, dir)
}

// boundaryRuleKind implements spec §4.4 step 3: when (x,y,dir) addresses an
// edge crossing a chunk boundary, it is open iff the orthogonal local
// coordinate is 0 mod 8, else wall. Returns crosses=false when the edge
// does not cross a chunk boundary, in which case the caller falls through
// to the generator.
func boundaryRuleKind(x, y int32, dir worldtypes.Direction) (worldtypes.EdgeKind, bool) {
	_, lx := chunkCoords(x)
	_, ly := chunkCoords(y)

	switch dir {
	case worldtypes.East:
		if lx != generation.ChunkSize-1 {
			return worldtypes.Wall, false
		}
		return openIfMod8(ly), true
	case worldtypes.West:
		if lx != 0 {
			return worldtypes.Wall, false
		}
		return openIfMod8(ly), true
	case worldtypes.South:
		if ly != generation.ChunkSize-1 {
			return worldtypes.Wall, false
		}
		return openIfMod8(lx), true
	case worldtypes.North:
		if ly != 0 {
			return worldtypes.Wall, false
		}
		return openIfMod8(lx), true
	default:
		return worldtypes.Wall, false
	}
}

func openIfMod8(orthogonal int) (worldtypes.EdgeKind) {
	if orthogonal%8 == 0 {
		return worldtypes.Open
	}
	return worldtypes.Wall
}

// generatorEdge decodes the edge from the chunk generator: it locates the
// chunk containing (x,y), fetches/memoizes its ChunkEdges, and decodes per
// spec §4.3.
func (o *Oracle) generatorEdge(level, x, y int32, dir worldtypes.Direction) (worldtypes.EdgeKind, error) {
	cx, lx := chunkCoords(x)
	cy, ly := chunkCoords(y)
	chunk, err := o.chunks.GetOrGenerate(o.world.GeneratorVersion, o.world.Seed, level, cx, cy)
	if err != nil {
		return worldtypes.Wall, err
	}
	return chunk.EdgeAt(lx, ly, dir).ToEdgeKind(), nil
}

// CanTraverse reports whether the edge at (level,x,y,dir) permits movement
// (spec §4.4 canTraverse).
func (o *Oracle) CanTraverse(ctx context.Context, level, x, y int32, dir worldtypes.Direction) (bool, error) {
	kind, err := o.EdgeType(ctx, level, x, y, dir, worldtypes.PurposeMovement)
	if err != nil {
		return false, err
	}
	return kind.Traversable(), nil
}

// mixExpand derives the deterministic RNG seed for frontier expansion (spec
// §4.6): mix(seed, world, level, x, y, dir-code, "expand_v1"). The world id
// and direction code are folded into the label since Mix's contract takes a
// fixed four integers plus a label.
func (o *Oracle) mixExpand(level, x, y int32, dir worldtypes.Direction) uint32 {
	label := fmt.Sprintf("%s|d%d|expand_v1", o.world.ID, int(dir))
	return prng.Mix(o.world.Seed, level, x, y, label)
}
