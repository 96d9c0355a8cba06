// Package snapshot builds the world_state payload sent to a client after
// auth and every successful action (spec §4.9): the player's pose, the
// direction back to the hub, a short visibility ray walk, the discovered
// cells within minimap radius, current cooldowns, and a stable digest of
// the whole thing.
package snapshot

import (
	"context"
	"fmt"
	"math"

	"dungeoncrawler/internal/digest"
	"dungeoncrawler/internal/discovery"
	"dungeoncrawler/internal/worldmodel"
	"dungeoncrawler/internal/worldtypes"
)

// visibilityRadius is the maximum number of cells the ray walk advances in
// each cardinal direction (spec §4.9: "advance up to 3 cells").
const visibilityRadius = 3

// minimapRadius is the square radius around the player within which
// discovered cells are reported (spec §4.9: "radius 12").
const minimapRadius = 12

// cellFootScale converts a single grid cell to the UI-only "feet" unit used
// for the hub distance readout (spec §6.4: "Cell foot scale (UI only) = 5").
const cellFootScale = 5

// You is the player's own pose and vitals (spec §6.1 `you`).
type You struct {
	Level  int32                `json:"level"`
	X, Y   int32                `json:"x"`
	Face   worldtypes.Direction `json:"face"`
	HP     int                  `json:"hp"`
	Status []string             `json:"status"`
}

// Hub is the direction and distance back to the level's seed hub at (0,0)
// (spec §6.1 `hub`).
type Hub struct {
	Level     int32                `json:"level"`
	X, Y      int32                `json:"x"`
	DistFeet  int                  `json:"distFeet"`
	Direction worldtypes.Direction `json:"direction"`
}

// Edges carries the four resolved edge kinds around a cell (spec §6.1
// "Cells ... carry { x, y, edges: { N, E, S, W } }").
type Edges struct {
	N, E, S, W worldtypes.EdgeKind
}

// Cell is one cell surfaced in visibleCells or minimapCells.
type Cell struct {
	X, Y  int32
	Edges Edges
}

// Cooldowns mirrors the session's cooldown clock (spec §4.8).
type Cooldowns struct {
	MoveReadyAtMs int64
	TurnReadyAtMs int64
}

// Snapshot is the full world_state payload (spec §6.1, §4.9).
type Snapshot struct {
	Now          int64
	You          You
	Hub          Hub
	VisibleCells []Cell
	MinimapCells []Cell
	Cooldowns    Cooldowns
	WorldHash    string
}

// Builder constructs snapshots for one world, consulting an edge oracle and
// a discovery store.
type Builder struct {
	oracle     *worldmodel.Oracle
	discovered discovery.Store
	clock      func() int64
}

// NewBuilder constructs a Builder.
func NewBuilder(oracle *worldmodel.Oracle, discovered discovery.Store, clock func() int64) *Builder {
	return &Builder{oracle: oracle, discovered: discovered, clock: clock}
}

// Build assembles a Snapshot for a character currently at (level,x,y)
// facing face, with the given vitals and cooldown clock.
func (b *Builder) Build(ctx context.Context, level, x, y int32, face worldtypes.Direction, hp int, status []string, cd Cooldowns) (Snapshot, error) {
	now := b.clock()

	visible, err := b.rayWalk(ctx, level, x, y)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: ray walk: %w", err)
	}

	minimap, err := b.minimap(ctx, level, x, y)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: minimap: %w", err)
	}

	you := You{Level: level, X: x, Y: y, Face: face, HP: hp, Status: status}
	hub := Hub{
		Level:     level,
		X:         0,
		Y:         0,
		DistFeet:  hubDistanceFeet(x, y),
		Direction: approximateDirToHub(x, y),
	}

	worldHash := digest.Digest(map[string]any{
		"you":       youDigestValue(you),
		"cooldowns": cooldownsDigestValue(cd),
		"visible":   cellsDigestValue(visible),
	})

	return Snapshot{
		Now:          now,
		You:          you,
		Hub:          hub,
		VisibleCells: visible,
		MinimapCells: minimap,
		Cooldowns:    cd,
		WorldHash:    worldHash,
	}, nil
}

// rayWalk implements the §4.9 visibility walk: from the player cell, for
// each cardinal direction, advance up to visibilityRadius cells as long as
// the forward edge (resolved at purpose=visibility) is open or
// lever_secret. Every visited cell is recorded exactly once with its four
// edges resolved at the same purpose.
func (b *Builder) rayWalk(ctx context.Context, level, x, y int32) ([]Cell, error) {
	seen := map[[2]int32]bool{{x, y}: true}
	order := [][2]int32{{x, y}}

	for _, dir := range []worldtypes.Direction{worldtypes.North, worldtypes.East, worldtypes.South, worldtypes.West} {
		cx, cy := x, y
		for step := 0; step < visibilityRadius; step++ {
			kind, err := b.oracle.EdgeType(ctx, level, cx, cy, dir, worldtypes.PurposeVisibility)
			if err != nil {
				return nil, err
			}
			if kind.BlocksVision() {
				break
			}
			dx, dy := dir.Delta()
			cx, cy = cx+int32(dx), cy+int32(dy)
			key := [2]int32{cx, cy}
			if !seen[key] {
				seen[key] = true
				order = append(order, key)
			}
		}
	}

	cells := make([]Cell, 0, len(order))
	for _, k := range order {
		edges, err := b.resolveEdges(ctx, level, k[0], k[1], worldtypes.PurposeVisibility)
		if err != nil {
			return nil, err
		}
		cells = append(cells, Cell{X: k[0], Y: k[1], Edges: edges})
	}
	return cells, nil
}

// minimap resolves every discovered cell within minimapRadius of (x,y) on
// level, each with its four edges resolved at purpose=minimap.
func (b *Builder) minimap(ctx context.Context, level, x, y int32) ([]Cell, error) {
	discovered, err := b.discovered.GetDiscoveredInRadius(ctx, level, x, y, minimapRadius)
	if err != nil {
		return nil, err
	}

	cells := make([]Cell, 0, len(discovered))
	for _, d := range discovered {
		edges, err := b.resolveEdges(ctx, level, d.X, d.Y, worldtypes.PurposeMinimap)
		if err != nil {
			return nil, err
		}
		cells = append(cells, Cell{X: d.X, Y: d.Y, Edges: edges})
	}
	return cells, nil
}

func (b *Builder) resolveEdges(ctx context.Context, level, x, y int32, purpose worldtypes.Purpose) (Edges, error) {
	n, err := b.oracle.EdgeType(ctx, level, x, y, worldtypes.North, purpose)
	if err != nil {
		return Edges{}, err
	}
	e, err := b.oracle.EdgeType(ctx, level, x, y, worldtypes.East, purpose)
	if err != nil {
		return Edges{}, err
	}
	s, err := b.oracle.EdgeType(ctx, level, x, y, worldtypes.South, purpose)
	if err != nil {
		return Edges{}, err
	}
	w, err := b.oracle.EdgeType(ctx, level, x, y, worldtypes.West, purpose)
	if err != nil {
		return Edges{}, err
	}
	return Edges{N: n, E: e, S: s, W: w}, nil
}

// hubDistanceFeet rounds the Euclidean distance from (x,y) to the hub at
// (0,0), scaled by cellFootScale (spec §4.9: "round(sqrt(x²+y²)·5)").
func hubDistanceFeet(x, y int32) int {
	dist := math.Sqrt(float64(x)*float64(x) + float64(y)*float64(y))
	return int(math.Round(dist * cellFootScale))
}

// approximateDirToHub compares |-x| vs |-y| and returns the dominant axis's
// sign mapped to N/E/S/W, breaking ties toward E/W (spec §4.9).
func approximateDirToHub(x, y int32) worldtypes.Direction {
	absX := math.Abs(float64(-x))
	absY := math.Abs(float64(-y))

	if absX >= absY {
		if -x >= 0 {
			return worldtypes.East
		}
		return worldtypes.West
	}
	if -y >= 0 {
		return worldtypes.South
	}
	return worldtypes.North
}

func youDigestValue(you You) map[string]any {
	status := make([]any, len(you.Status))
	for i, s := range you.Status {
		status[i] = s
	}
	return map[string]any{
		"level":  you.Level,
		"x":      you.X,
		"y":      you.Y,
		"face":   you.Face.String(),
		"hp":     you.HP,
		"status": status,
	}
}

func cooldownsDigestValue(cd Cooldowns) map[string]any {
	return map[string]any{
		"moveReadyAtMs": cd.MoveReadyAtMs,
		"turnReadyAtMs": cd.TurnReadyAtMs,
	}
}

func cellsDigestValue(cells []Cell) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = map[string]any{
			"x": c.X,
			"y": c.Y,
			"edges": map[string]any{
				"N": c.Edges.N.String(),
				"E": c.Edges.E.String(),
				"S": c.Edges.S.String(),
				"W": c.Edges.W.String(),
			},
		}
	}
	return out
}
