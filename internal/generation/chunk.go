// Package generation implements the deterministic chunk generator (spec
// §4.3): pure functions from (seed, level, chunkX, chunkY, variant) to a
// 64x64 block of edge data. Two variants are implemented — the canonical
// "maze" recursive-backtracker and the "bsp_v4" BSP dungeon — so that a
// world can tag which one produced its base topology (spec §9: "future
// generators can coexist without mixing").
package generation

import (
	"fmt"

	"dungeoncrawler/internal/worldtypes"
)

// ChunkSize is the width and height, in cells, of one generated chunk
// (spec §6.4).
const ChunkSize = 64

const cellCount = ChunkSize * ChunkSize

// Variant identifies which generator produced a chunk's base topology.
type Variant string

const (
	VariantMaze Variant = "maze"
	VariantBSP  Variant = "bsp_v4"
)

// ChunkEdges is the derived, cacheable base topology of one chunk: the
// east-going and south-going edge of every local cell, plus the inputs that
// produced it. North and west edges of a cell are read off the south/east
// edges of the northern/western neighbor (spec DATA MODEL, ChunkEdges).
type ChunkEdges struct {
	Seed     uint32
	Level    int32
	ChunkX   int32
	ChunkY   int32
	Variant  Variant
	East     []worldtypes.RawEdgeKind
	South    []worldtypes.RawEdgeKind
}

func newChunkEdges(seed uint32, level, cx, cy int32, variant Variant) *ChunkEdges {
	return &ChunkEdges{
		Seed:    seed,
		Level:   level,
		ChunkX:  cx,
		ChunkY:  cy,
		Variant: variant,
		East:    make([]worldtypes.RawEdgeKind, cellCount),
		South:   make([]worldtypes.RawEdgeKind, cellCount),
	}
}

func index(lx, ly int) int {
	return ly*ChunkSize + lx
}

func inBounds(lx, ly int) bool {
	return lx >= 0 && lx < ChunkSize && ly >= 0 && ly < ChunkSize
}

// Generate produces the ChunkEdges for (seed, level, cx, cy) under the named
// variant. It is a pure function of its inputs (spec I1, P1).
func Generate(variant Variant, seed uint32, level, cx, cy int32) (*ChunkEdges, error) {
	switch variant {
	case VariantMaze:
		return generateMaze(seed, level, cx, cy), nil
	case VariantBSP:
		return generateBSP(seed, level, cx, cy), nil
	default:
		return nil, fmt.Errorf("generation: unknown variant %q", variant)
	}
}

// EdgeAt decodes the edge in direction dir for local cell (lx, ly), applying
// the neighbor-lookup rule for north/west edges (spec §4.3 "Edge decoding
// from a chunk"). lx and ly must already be the Euclidean-remainder local
// coordinates in [0, ChunkSize).
func (c *ChunkEdges) EdgeAt(lx, ly int, dir worldtypes.Direction) worldtypes.RawEdgeKind {
	switch dir {
	case worldtypes.East:
		return c.East[index(lx, ly)]
	case worldtypes.South:
		return c.South[index(lx, ly)]
	case worldtypes.West:
		if lx == 0 {
			return worldtypes.RawWall
		}
		return c.East[index(lx-1, ly)]
	case worldtypes.North:
		if ly == 0 {
			return worldtypes.RawWall
		}
		return c.South[index(lx, ly-1)]
	default:
		return worldtypes.RawWall
	}
}

// setEdge writes kind on the edge between (lx,ly) and its neighbor in dir,
// provided the neighbor is in bounds. It writes the canonical (east/south) side of
// the edge regardless of which cell "owns" it.
func setEdge(c *ChunkEdges, lx, ly int, dir worldtypes.Direction, kind worldtypes.RawEdgeKind) {
	switch dir {
	case worldtypes.East:
		if lx+1 < ChunkSize {
			c.East[index(lx, ly)] = kind
		}
	case worldtypes.South:
		if ly+1 < ChunkSize {
			c.South[index(lx, ly)] = kind
		}
	case worldtypes.West:
		if lx-1 >= 0 {
			c.East[index(lx-1, ly)] = kind
		}
	case worldtypes.North:
		if ly-1 >= 0 {
			c.South[index(lx, ly-1)] = kind
		}
	}
}

func getEdge(c *ChunkEdges, lx, ly int, dir worldtypes.Direction) worldtypes.RawEdgeKind {
	return c.EdgeAt(lx, ly, dir)
}
