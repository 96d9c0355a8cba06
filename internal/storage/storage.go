// Package storage declares the five record-store interfaces the gameplay
// core consumes (spec §6.2): session, character, world, overlay, and
// discovery. The overlay and discovery contracts live in their own packages
// ([overlay.Store], [discovery.Store]) since they carry the bulk of their
// own domain logic; this package holds the three simpler, single-row
// stores plus the World record lookup that ties a world id to its seed and
// generator variant.
package storage

import (
	"context"
	"errors"

	"dungeoncrawler/internal/generation"
	"dungeoncrawler/internal/worldtypes"
)

// ErrNotFound is returned by a lookup that finds no record. Callers treat
// it as the "none" case in spec §6.2, not as a failure to log.
var ErrNotFound = errors.New("storage: not found")

// Session is a loaded session record: just enough to resolve a bearer
// token to a user (spec §6.2 "loadSession(token) → { userId } | none").
type Session struct {
	UserID    string
	ExpiresAt int64
}

// SessionStore resolves opaque session tokens minted by authstub.
type SessionStore interface {
	// LoadSession returns the session for token, or ErrNotFound if absent.
	// It does not check expiry; callers compare ExpiresAt themselves.
	LoadSession(ctx context.Context, token string) (Session, error)

	// Touch optionally bumps the session's last-seen marker. Implementations
	// may no-op.
	Touch(ctx context.Context, token string, nowMs int64) error
}

// Character is a player's persisted pose and vitals (spec §6.2
// "loadActiveCharacter", "savePosition").
type Character struct {
	CharacterID string
	UserID      string
	WorldID     string
	Level       int32
	X, Y        int32
	Face        worldtypes.Direction
	HP          int
}

// CharacterStore loads and persists character pose.
type CharacterStore interface {
	// LoadActiveCharacter returns the user's current character, or
	// ErrNotFound if the user has none.
	LoadActiveCharacter(ctx context.Context, userID string) (Character, error)

	// SavePosition upserts the character's pose. It is a single atomic
	// row-level write (spec §6.2: "the core never assumes cross-operation
	// transactions").
	SavePosition(ctx context.Context, characterID, worldID string, level, x, y int32, face worldtypes.Direction) error
}

// World is the immutable generation identity of a world (spec §6.2
// "getWorld(worldId) → { seed, generatorVersion }").
type World struct {
	WorldID          string
	Seed             uint32
	GeneratorVersion generation.Variant
}

// WorldStore resolves a world id to its generation identity.
type WorldStore interface {
	GetWorld(ctx context.Context, worldID string) (World, error)
}
