// Package memstore is the in-memory reference implementation of the
// session, character, and world stores (spec §6.2), mirroring the
// teacher's GameState: maps guarded by a single mutex, no persistence
// across process restarts. Used by tests and local `dungeon serve` runs
// without a database.
package memstore

import (
	"context"
	"sync"

	"dungeoncrawler/internal/generation"
	"dungeoncrawler/internal/storage"
	"dungeoncrawler/internal/worldtypes"
)

// Store is a single in-memory backing for all three simple record stores.
// One Store is shared by a whole process; it is not scoped to a world.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]storage.Session
	characters  map[string]storage.Character
	activeByUser map[string]string // userID -> characterID
	worlds      map[string]storage.World
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		sessions:     make(map[string]storage.Session),
		characters:   make(map[string]storage.Character),
		activeByUser: make(map[string]string),
		worlds:       make(map[string]storage.World),
	}
}

// PutSession seeds a session record, used by cmd/dungeon to store the
// session authstub mints and by tests that need a pre-authed connection.
func (s *Store) PutSession(token string, sess storage.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = sess
}

// PutCharacter seeds (or replaces) a character and marks it the active
// character for its user.
func (s *Store) PutCharacter(c storage.Character) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.characters[c.CharacterID] = c
	s.activeByUser[c.UserID] = c.CharacterID
}

// PutWorld seeds a world record.
func (s *Store) PutWorld(w storage.World) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.worlds[w.WorldID] = w
}

func (s *Store) LoadSession(_ context.Context, token string) (storage.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return storage.Session{}, storage.ErrNotFound
	}
	return sess, nil
}

func (s *Store) Touch(_ context.Context, token string, nowMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return storage.ErrNotFound
	}
	_ = nowMs
	s.sessions[token] = sess
	return nil
}

func (s *Store) LoadActiveCharacter(_ context.Context, userID string) (storage.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	charID, ok := s.activeByUser[userID]
	if !ok {
		return storage.Character{}, storage.ErrNotFound
	}
	return s.characters[charID], nil
}

func (s *Store) SavePosition(_ context.Context, characterID, worldID string, level, x, y int32, face worldtypes.Direction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.characters[characterID]
	if !ok {
		return storage.ErrNotFound
	}
	c.WorldID = worldID
	c.Level, c.X, c.Y, c.Face = level, x, y, face
	s.characters[characterID] = c
	return nil
}

func (s *Store) GetWorld(_ context.Context, worldID string) (storage.World, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.worlds[worldID]
	if !ok {
		return storage.World{}, storage.ErrNotFound
	}
	return w, nil
}

// DefaultWorld builds a World record from an id, seed and variant, ready to
// pass to PutWorld; cmd/dungeon uses it for its single served world.
func DefaultWorld(worldID string, seed uint32, variant generation.Variant) storage.World {
	return storage.World{WorldID: worldID, Seed: seed, GeneratorVersion: variant}
}
