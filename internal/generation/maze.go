package generation

import (
	"dungeoncrawler/internal/prng"
	"dungeoncrawler/internal/worldtypes"
)

// Tuning constants for the maze-carve variant (spec §4.3 variant A). The
// attempt count and door probability are "calibrated" per the spec, not part
// of the bit-exact contract, but fixed here so the variant is itself
// deterministic.
const (
	mazeRoomAttempts  = 30
	mazeDoorProbMin   = 0.035
	mazeDoorProbMax   = 0.095
	mazeMinRoomSize   = 2
	mazeMaxRoomSize   = 5
)

var allDirections = [4]worldtypes.Direction{
	worldtypes.North, worldtypes.East, worldtypes.South, worldtypes.West,
}

type cellPos struct{ x, y int }

// generateMaze implements spec §4.3 variant A: a recursive-backtracker maze
// carve, followed by overlay room placement and a deterministic door pass.
func generateMaze(seed uint32, level, cx, cy int32) *ChunkEdges {
	c := newChunkEdges(seed, level, cx, cy, VariantMaze)
	rng := prng.New(prng.Mix(seed, level, cx, cy, string(VariantMaze)))

	visited := make([]bool, cellCount)
	start := cellPos{rng.Int(0, ChunkSize), rng.Int(0, ChunkSize)}
	visited[index(start.x, start.y)] = true
	stack := []cellPos{start}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		dirs := allDirections
		rng.ShuffleInPlace(4, func(i, j int) { dirs[i], dirs[j] = dirs[j], dirs[i] })

		advanced := false
		for _, d := range dirs {
			dx, dy := d.Delta()
			nx, ny := cur.x+dx, cur.y+dy
			if !inBounds(nx, ny) || visited[index(nx, ny)] {
				continue
			}
			setEdge(c, cur.x, cur.y, d, worldtypes.RawOpen)
			visited[index(nx, ny)] = true
			stack = append(stack, cellPos{nx, ny})
			advanced = true
			break
		}
		if !advanced {
			stack = stack[:len(stack)-1]
		}
	}

	placeMazeRooms(c, rng)
	sprinkleDoors(c, rng)
	return c
}

// placeMazeRooms attempts mazeRoomAttempts room placements. Each attempt
// picks a weighted size, a location with a 1-cell margin from the chunk
// border, opens every interior edge of the room, and breaks 1-3 of its
// perimeter edges into the surrounding maze.
func placeMazeRooms(c *ChunkEdges, rng *prng.RNG) {
	for attempt := 0; attempt < mazeRoomAttempts; attempt++ {
		w := rng.Int(mazeMinRoomSize, mazeMaxRoomSize+1)
		h := rng.Int(mazeMinRoomSize, mazeMaxRoomSize+1)
		if w+2 >= ChunkSize || h+2 >= ChunkSize {
			continue
		}
		ox := rng.Int(1, ChunkSize-w-1)
		oy := rng.Int(1, ChunkSize-h-1)

		for y := oy; y < oy+h; y++ {
			for x := ox; x < ox+w; x++ {
				if x+1 < ox+w {
					setEdge(c, x, y, worldtypes.East, worldtypes.RawOpen)
				}
				if y+1 < oy+h {
					setEdge(c, x, y, worldtypes.South, worldtypes.RawOpen)
				}
			}
		}

		perimeter := roomPerimeterEdges(ox, oy, w, h)
		rng.ShuffleInPlace(len(perimeter), func(i, j int) { perimeter[i], perimeter[j] = perimeter[j], perimeter[i] })
		n := rng.Int(1, 4)
		if n > len(perimeter) {
			n = len(perimeter)
		}
		for i := 0; i < n; i++ {
			e := perimeter[i]
			setEdge(c, e.x, e.y, e.dir, worldtypes.RawOpen)
		}
	}
}

type perimeterEdge struct {
	x, y int
	dir  worldtypes.Direction
}

// roomPerimeterEdges enumerates every edge leading from a room cell to a
// cell strictly outside the room's footprint.
func roomPerimeterEdges(ox, oy, w, h int) []perimeterEdge {
	var edges []perimeterEdge
	for y := oy; y < oy+h; y++ {
		for x := ox; x < ox+w; x++ {
			for _, d := range allDirections {
				dx, dy := d.Delta()
				nx, ny := x+dx, y+dy
				if !inBounds(nx, ny) {
					continue
				}
				if nx >= ox && nx < ox+w && ny >= oy && ny < oy+h {
					continue // still inside the room
				}
				edges = append(edges, perimeterEdge{x, y, d})
			}
		}
	}
	return edges
}

// sprinkleDoors marks a deterministic fraction of currently-open edges as
// doors, sampling Float01 against a door-probability constant in
// [mazeDoorProbMin, mazeDoorProbMax].
func sprinkleDoors(c *ChunkEdges, rng *prng.RNG) {
	doorProb := mazeDoorProbMin + rng.Float01()*(mazeDoorProbMax-mazeDoorProbMin)
	for i := range c.East {
		if c.East[i] == worldtypes.RawOpen && rng.Float01() < doorProb {
			c.East[i] = worldtypes.RawDoorUnlocked
		}
	}
	for i := range c.South {
		if c.South[i] == worldtypes.RawOpen && rng.Float01() < doorProb {
			c.South[i] = worldtypes.RawDoorUnlocked
		}
	}
}
