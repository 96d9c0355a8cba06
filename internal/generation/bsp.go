package generation

import (
	"dungeoncrawler/internal/prng"
	"dungeoncrawler/internal/worldtypes"
)

// Tuning constants for the BSP dungeon variant (spec §4.3 variant B).
const (
	bspMinLeaf        = 10
	bspRoomMargin     = 1
	bspMinRoomSize    = 4
	bspWidenFraction  = 12 // widen roughly 1 in 12 corridors by one cell
)

const (
	cellNone byte = iota
	cellRoom
	cellCorridor
)

type rect struct{ x, y, w, h int }

func (r rect) center() cellPos {
	return cellPos{r.x + r.w/2, r.y + r.h/2}
}

type bspNode struct {
	bounds      rect
	left, right *bspNode
	room        *rect
}

// generateBSP implements spec §4.3 variant B: a BSP tree of axis-aligned
// cuts, one room per leaf, corridor connections walked post-order, a
// corridor/room boundary door promotion pass, and a per-room door guarantee.
func generateBSP(seed uint32, level, cx, cy int32) *ChunkEdges {
	c := newChunkEdges(seed, level, cx, cy, VariantBSP)
	rng := prng.New(prng.Mix(seed, level, cx, cy, string(VariantBSP)))

	kind := make([]byte, cellCount)

	tree := splitBSP(rng, rect{0, 0, ChunkSize, ChunkSize})
	placeRooms(tree, rng, c, kind)
	connectBSP(tree, rng, c, kind)
	promoteDoors(c, kind)
	guaranteeRoomDoors(tree, rng, c, kind)

	return c
}

// splitBSP recursively partitions bounds until leaves are at or below
// bspMinLeaf*2 on both axes.
func splitBSP(rng *prng.RNG, bounds rect) *bspNode {
	node := &bspNode{bounds: bounds}

	canSplitH := bounds.w >= bspMinLeaf*2
	canSplitV := bounds.h >= bspMinLeaf*2
	if !canSplitH && !canSplitV {
		return node
	}

	splitHoriz := canSplitH
	if canSplitH && canSplitV {
		splitHoriz = rng.Int(0, 2) == 0
	} else {
		splitHoriz = canSplitH
	}

	if splitHoriz {
		lo := bspMinLeaf
		hi := bounds.w - bspMinLeaf
		if hi < lo {
			return node
		}
		splitAt := rng.Int(lo, hi+1)
		node.left = splitBSP(rng, rect{bounds.x, bounds.y, splitAt, bounds.h})
		node.right = splitBSP(rng, rect{bounds.x + splitAt, bounds.y, bounds.w - splitAt, bounds.h})
	} else {
		lo := bspMinLeaf
		hi := bounds.h - bspMinLeaf
		if hi < lo {
			return node
		}
		splitAt := rng.Int(lo, hi+1)
		node.left = splitBSP(rng, rect{bounds.x, bounds.y, bounds.w, splitAt})
		node.right = splitBSP(rng, rect{bounds.x, bounds.y + splitAt, bounds.w, bounds.h - splitAt})
	}
	return node
}

// placeRooms walks the tree and carves one room per leaf.
func placeRooms(node *bspNode, rng *prng.RNG, c *ChunkEdges, kind []byte) {
	if node == nil {
		return
	}
	if node.left == nil && node.right == nil {
		b := node.bounds
		maxW := b.w - 2*bspRoomMargin
		maxH := b.h - 2*bspRoomMargin
		if maxW < bspMinRoomSize || maxH < bspMinRoomSize {
			return
		}
		w := rng.Int(bspMinRoomSize, maxW+1)
		h := rng.Int(bspMinRoomSize, maxH+1)
		ox := b.x + bspRoomMargin + rng.Int(0, maxW-w+1)
		oy := b.y + bspRoomMargin + rng.Int(0, maxH-h+1)
		r := rect{ox, oy, w, h}
		node.room = &r
		carveRoomInterior(c, kind, r)
		return
	}
	placeRooms(node.left, rng, c, kind)
	placeRooms(node.right, rng, c, kind)
}

func carveRoomInterior(c *ChunkEdges, kind []byte, r rect) {
	for y := r.y; y < r.y+r.h; y++ {
		for x := r.x; x < r.x+r.w; x++ {
			kind[index(x, y)] = cellRoom
			if x+1 < r.x+r.w {
				setEdge(c, x, y, worldtypes.East, worldtypes.RawOpen)
			}
			if y+1 < r.y+r.h {
				setEdge(c, x, y, worldtypes.South, worldtypes.RawOpen)
			}
		}
	}
}

// connectBSP walks the tree post-order, connecting each internal node's two
// children with a corridor between representative points.
func connectBSP(node *bspNode, rng *prng.RNG, c *ChunkEdges, kind []byte) cellPos {
	if node == nil {
		return cellPos{}
	}
	if node.left == nil && node.right == nil {
		if node.room != nil {
			return node.room.center()
		}
		return node.bounds.center()
	}
	leftPt := connectBSP(node.left, rng, c, kind)
	rightPt := connectBSP(node.right, rng, c, kind)
	carveCorridor(c, kind, rng, leftPt, rightPt)
	return leftPt
}

// carveCorridor carves an L-shaped (straight, when aligned) path between a
// and b, marking cells corridor unless they already belong to a room, and
// widening roughly one corridor in bspWidenFraction by one extra cell.
func carveCorridor(c *ChunkEdges, kind []byte, rng *prng.RNG, a, b cellPos) {
	widen := rng.Int(0, bspWidenFraction) == 0
	horizFirst := rng.Int(0, 2) == 0

	walk := func(x, y int) {
		if kind[index(x, y)] == cellNone {
			kind[index(x, y)] = cellCorridor
		}
	}

	stepOpen := func(x, y int, dir worldtypes.Direction) {
		setEdge(c, x, y, dir, worldtypes.RawOpen)
	}

	cx, cy := a.x, a.y
	walk(cx, cy)
	if horizFirst {
		for cx != b.x {
			dir := worldtypes.East
			if b.x < cx {
				dir = worldtypes.West
			}
			stepOpen(cx, cy, dir)
			dx, _ := dir.Delta()
			cx += dx
			walk(cx, cy)
			if widen && cy+1 < ChunkSize {
				walk(cx, cy+1)
				stepOpen(cx, cy, worldtypes.South)
			}
		}
		for cy != b.y {
			dir := worldtypes.South
			if b.y < cy {
				dir = worldtypes.North
			}
			stepOpen(cx, cy, dir)
			_, dy := dir.Delta()
			cy += dy
			walk(cx, cy)
			if widen && cx+1 < ChunkSize {
				walk(cx+1, cy)
				stepOpen(cx, cy, worldtypes.East)
			}
		}
	} else {
		for cy != b.y {
			dir := worldtypes.South
			if b.y < cy {
				dir = worldtypes.North
			}
			stepOpen(cx, cy, dir)
			_, dy := dir.Delta()
			cy += dy
			walk(cx, cy)
			if widen && cx+1 < ChunkSize {
				walk(cx+1, cy)
				stepOpen(cx, cy, worldtypes.East)
			}
		}
		for cx != b.x {
			dir := worldtypes.East
			if b.x < cx {
				dir = worldtypes.West
			}
			stepOpen(cx, cy, dir)
			dx, _ := dir.Delta()
			cx += dx
			walk(cx, cy)
			if widen && cy+1 < ChunkSize {
				walk(cx, cy+1)
				stepOpen(cx, cy, worldtypes.South)
			}
		}
	}
}

// promoteDoors upgrades every open edge crossing a room/corridor boundary to
// a door, and sanitizes any door not on such a boundary back to open.
func promoteDoors(c *ChunkEdges, kind []byte) {
	sanitizeOrPromote := func(x, y int, dir worldtypes.Direction) {
		dx, dy := dir.Delta()
		nx, ny := x+dx, y+dy
		if !inBounds(nx, ny) {
			return
		}
		e := getEdge(c, x, y, dir)
		if e == worldtypes.RawWall {
			return
		}
		crossesBoundary := kind[index(x, y)] != kind[index(nx, ny)] &&
			kind[index(x, y)] != cellNone && kind[index(nx, ny)] != cellNone
		switch {
		case crossesBoundary && e == worldtypes.RawOpen:
			setEdge(c, x, y, dir, worldtypes.RawDoorUnlocked)
		case !crossesBoundary && e == worldtypes.RawDoorUnlocked:
			setEdge(c, x, y, dir, worldtypes.RawOpen)
		}
	}
	for y := 0; y < ChunkSize; y++ {
		for x := 0; x < ChunkSize; x++ {
			sanitizeOrPromote(x, y, worldtypes.East)
			sanitizeOrPromote(x, y, worldtypes.South)
		}
	}
}

// guaranteeRoomDoors ensures every placed room has at least one door,
// synthesizing one on a perimeter edge if the corridor/room promotion pass
// didn't produce any.
func guaranteeRoomDoors(node *bspNode, rng *prng.RNG, c *ChunkEdges, kind []byte) {
	if node == nil {
		return
	}
	if node.left == nil && node.right == nil {
		if node.room == nil {
			return
		}
		r := *node.room
		if roomHasDoor(c, kind, r) {
			return
		}
		synthesizeRoomDoor(c, kind, rng, r)
		return
	}
	guaranteeRoomDoors(node.left, rng, c, kind)
	guaranteeRoomDoors(node.right, rng, c, kind)
}

func roomHasDoor(c *ChunkEdges, kind []byte, r rect) bool {
	for _, e := range roomPerimeterEdges(r.x, r.y, r.w, r.h) {
		if getEdge(c, e.x, e.y, e.dir) == worldtypes.RawDoorUnlocked {
			return true
		}
	}
	return false
}

func synthesizeRoomDoor(c *ChunkEdges, kind []byte, rng *prng.RNG, r rect) {
	perimeter := roomPerimeterEdges(r.x, r.y, r.w, r.h)
	if len(perimeter) == 0 {
		return
	}
	rng.ShuffleInPlace(len(perimeter), func(i, j int) { perimeter[i], perimeter[j] = perimeter[j], perimeter[i] })
	e := perimeter[0]
	dx, dy := e.dir.Delta()
	nx, ny := e.x+dx, e.y+dy
	if inBounds(nx, ny) && kind[index(nx, ny)] == cellNone {
		kind[index(nx, ny)] = cellCorridor
	}
	setEdge(c, e.x, e.y, e.dir, worldtypes.RawDoorUnlocked)
}
