// Package overlay implements the sparse, authoritative per-edge and
// per-cell override store (spec §4.5). Overlay records always supersede
// the generator (spec I2); the store is written only by the seed-hub
// initializer and by lazy frontier expansion (spec §4.6), plus an optional
// admin pathway.
package overlay

import (
	"context"

	"dungeoncrawler/internal/worldtypes"
)

// LockMeta carries the optional lock metadata a door edge override may
// have: a difficulty rating, a non-owning reference to a key entity, and
// the state the door should revert to on reset (spec DATA MODEL,
// EdgeOverride).
type LockMeta struct {
	Difficulty          int
	LinkedKeyEntityID   string
	DefaultStateOnReset worldtypes.EdgeKind
}

// EdgeOverride is one sparse, persistent edge record (spec DATA MODEL).
type EdgeOverride struct {
	Level       int32
	X, Y        int32
	Dir         worldtypes.Direction
	Kind        worldtypes.EdgeKind
	Frontier    bool
	Lock        *LockMeta
	UpdatedAtMs int64
}

// IsFrontierDoor reports whether this override is a frontier door (spec
// GLOSSARY: "an unlocked door edge whose metadata marks it as a lazy
// generation boundary").
func (e *EdgeOverride) IsFrontierDoor() bool {
	return e != nil && e.Kind == worldtypes.DoorUnlocked && e.Frontier
}

// CellKind is the finite set of cell metadata kinds (spec DATA MODEL,
// CellOverride).
type CellKind string

const (
	CellHubRoom  CellKind = "hub_room"
	CellRoom     CellKind = "room"
	CellCorridor CellKind = "corridor"
)

// CellMeta is the JSON-ish payload carried by a CellOverride.
type CellMeta struct {
	Kind   CellKind
	AreaID string
}

// CellOverride is one sparse, persistent cell record.
type CellOverride struct {
	Level       int32
	X, Y        int32
	Meta        CellMeta
	UpdatedAtMs int64
}

// Tx is the set of overlay operations available both outside and inside a
// transaction (spec §4.5 public contract). All operations are scoped to a
// single world, fixed by the Store/Tx implementation.
type Tx interface {
	GetEdgeOverride(ctx context.Context, level, x, y int32, dir worldtypes.Direction) (*EdgeOverride, error)
	GetCellOverride(ctx context.Context, level, x, y int32) (*CellOverride, error)

	// WriteEdgeBothWays writes the edge and its mirror on the neighbor
	// cell (spec I3); both records carry the same kind and metadata. The
	// timestamp is always updated. The write is idempotent given the same
	// arguments.
	WriteEdgeBothWays(ctx context.Context, level, x, y int32, dir worldtypes.Direction, kind worldtypes.EdgeKind, frontier bool, lock *LockMeta, nowMs int64) error

	// ClearEdgeFrontier clears the frontier flag on an edge (and its
	// mirror) without changing its kind, used once expansion has resolved
	// the far side of a frontier door.
	ClearEdgeFrontier(ctx context.Context, level, x, y int32, dir worldtypes.Direction, nowMs int64) error

	// WriteCell upserts a cell metadata record.
	WriteCell(ctx context.Context, level, x, y int32, meta CellMeta, nowMs int64) error
}

// Store is the overlay store's full contract: Tx for ordinary reads plus
// Transact for the atomic check-then-carve sequence frontier expansion
// requires (spec §4.6, §5: "the transaction body re-reads the destination
// cell and only carves if it is still absent").
type Store interface {
	Tx

	// Transact runs fn with a Tx that observes a consistent view and whose
	// writes are atomic with respect to every other Transact/Tx call.
	// Concurrent Transact calls racing on the same destination must
	// converge to one outcome (spec P9).
	Transact(ctx context.Context, fn func(tx Tx) error) error
}
