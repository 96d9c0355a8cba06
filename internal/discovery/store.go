// Package discovery implements the append-only, global set of cells a
// player has stepped onto (spec §4.7), consulted for minimap extent.
package discovery

import (
	"context"
	"sort"
	"sync"
)

// Cell is one discovered (level, x, y) coordinate.
type Cell struct {
	Level       int32
	X, Y        int32
	DiscoveredAtMs int64
}

// Store is the discovery store's contract (spec §6.2). Writes are
// idempotent inserts; the core never removes a discovery record.
type Store interface {
	// MarkDiscovered idempotently records (level, x, y) as discovered. On a
	// collision, the most recent timestamp wins.
	MarkDiscovered(ctx context.Context, level, x, y int32, atMs int64) error

	// GetDiscoveredInRadius returns every discovered cell on level within a
	// square radius r of (cx, cy), ordered by (y asc, x asc).
	GetDiscoveredInRadius(ctx context.Context, level, cx, cy, r int32) ([]Cell, error)
}

type cellKey struct {
	level, x, y int32
}

// MemStore is the in-memory reference implementation of Store.
type MemStore struct {
	mu    sync.Mutex
	cells map[cellKey]int64
}

// NewMemStore creates an empty in-memory discovery store.
func NewMemStore() *MemStore {
	return &MemStore{cells: make(map[cellKey]int64)}
}

func (s *MemStore) MarkDiscovered(_ context.Context, level, x, y int32, atMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := cellKey{level, x, y}
	if existing, ok := s.cells[key]; !ok || atMs > existing {
		s.cells[key] = atMs
	}
	return nil
}

func (s *MemStore) GetDiscoveredInRadius(_ context.Context, level, cx, cy, r int32) ([]Cell, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Cell
	for key, ts := range s.cells {
		if key.level != level {
			continue
		}
		if abs32(key.x-cx) > r || abs32(key.y-cy) > r {
			continue
		}
		out = append(out, Cell{Level: key.level, X: key.x, Y: key.y, DiscoveredAtMs: ts})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out, nil
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
