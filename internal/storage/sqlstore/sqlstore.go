// Package sqlstore is the durable reference implementation of the session,
// character, and world stores (spec §6.2), backed by
// modernc.org/sqlite — a pure-Go driver, so the module builds without a
// cgo toolchain (grounded: AKJUS-bsc-erigon go.mod pulls the same driver
// for its embedded-node storage path).
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"dungeoncrawler/internal/generation"
	"dungeoncrawler/internal/storage"
	"dungeoncrawler/internal/worldtypes"
)

// Store is a database/sql-backed storage.SessionStore +
// storage.CharacterStore + storage.WorldStore.
type Store struct {
	db *sql.DB
}

// Open opens (and, if necessary, creates) the sqlite database at dsn and
// ensures its schema exists. dsn is passed straight to the driver, so
// ":memory:" and file paths both work.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	token       TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	expires_at  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS characters (
	character_id TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	world_id     TEXT NOT NULL,
	level        INTEGER NOT NULL,
	x            INTEGER NOT NULL,
	y            INTEGER NOT NULL,
	face         INTEGER NOT NULL,
	hp           INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS active_characters (
	user_id      TEXT PRIMARY KEY,
	character_id TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS worlds (
	world_id          TEXT PRIMARY KEY,
	seed              INTEGER NOT NULL,
	generator_version TEXT NOT NULL
);
`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) LoadSession(ctx context.Context, token string) (storage.Session, error) {
	var sess storage.Session
	row := s.db.QueryRowContext(ctx, `SELECT user_id, expires_at FROM sessions WHERE token = ?`, token)
	if err := row.Scan(&sess.UserID, &sess.ExpiresAt); err != nil {
		if err == sql.ErrNoRows {
			return storage.Session{}, storage.ErrNotFound
		}
		return storage.Session{}, fmt.Errorf("sqlstore: load session: %w", err)
	}
	return sess, nil
}

func (s *Store) Touch(ctx context.Context, token string, nowMs int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET expires_at = expires_at WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("sqlstore: touch session: %w", err)
	}
	_ = nowMs
	return nil
}

// PutSession upserts a session record; cmd/dungeon uses it to store the
// session authstub mints.
func (s *Store) PutSession(ctx context.Context, token string, sess storage.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET user_id = excluded.user_id, expires_at = excluded.expires_at`,
		token, sess.UserID, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("sqlstore: put session: %w", err)
	}
	return nil
}

func (s *Store) LoadActiveCharacter(ctx context.Context, userID string) (storage.Character, error) {
	var charID string
	row := s.db.QueryRowContext(ctx, `SELECT character_id FROM active_characters WHERE user_id = ?`, userID)
	if err := row.Scan(&charID); err != nil {
		if err == sql.ErrNoRows {
			return storage.Character{}, storage.ErrNotFound
		}
		return storage.Character{}, fmt.Errorf("sqlstore: load active character id: %w", err)
	}

	var c storage.Character
	var face int
	row = s.db.QueryRowContext(ctx, `
		SELECT character_id, user_id, world_id, level, x, y, face, hp
		FROM characters WHERE character_id = ?`, charID)
	if err := row.Scan(&c.CharacterID, &c.UserID, &c.WorldID, &c.Level, &c.X, &c.Y, &face, &c.HP); err != nil {
		if err == sql.ErrNoRows {
			return storage.Character{}, storage.ErrNotFound
		}
		return storage.Character{}, fmt.Errorf("sqlstore: load character: %w", err)
	}
	c.Face = worldtypes.Direction(face)
	return c, nil
}

func (s *Store) SavePosition(ctx context.Context, characterID, worldID string, level, x, y int32, face worldtypes.Direction) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE characters SET world_id = ?, level = ?, x = ?, y = ?, face = ? WHERE character_id = ?`,
		worldID, level, x, y, int(face), characterID)
	if err != nil {
		return fmt.Errorf("sqlstore: save position: %w", err)
	}
	return nil
}

// PutCharacter upserts a character and marks it active for its user, used
// by cmd/dungeon to seed its development character.
func (s *Store) PutCharacter(ctx context.Context, c storage.Character) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO characters (character_id, user_id, world_id, level, x, y, face, hp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(character_id) DO UPDATE SET
			user_id = excluded.user_id, world_id = excluded.world_id, level = excluded.level,
			x = excluded.x, y = excluded.y, face = excluded.face, hp = excluded.hp`,
		c.CharacterID, c.UserID, c.WorldID, c.Level, c.X, c.Y, int(c.Face), c.HP)
	if err != nil {
		return fmt.Errorf("sqlstore: put character: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO active_characters (user_id, character_id) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET character_id = excluded.character_id`,
		c.UserID, c.CharacterID)
	if err != nil {
		return fmt.Errorf("sqlstore: set active character: %w", err)
	}
	return nil
}

func (s *Store) GetWorld(ctx context.Context, worldID string) (storage.World, error) {
	var w storage.World
	var variant string
	row := s.db.QueryRowContext(ctx, `SELECT world_id, seed, generator_version FROM worlds WHERE world_id = ?`, worldID)
	if err := row.Scan(&w.WorldID, &w.Seed, &variant); err != nil {
		if err == sql.ErrNoRows {
			return storage.World{}, storage.ErrNotFound
		}
		return storage.World{}, fmt.Errorf("sqlstore: get world: %w", err)
	}
	w.GeneratorVersion = generation.Variant(variant)
	return w, nil
}

// PutWorld upserts a world record.
func (s *Store) PutWorld(ctx context.Context, w storage.World) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO worlds (world_id, seed, generator_version) VALUES (?, ?, ?)
		ON CONFLICT(world_id) DO UPDATE SET seed = excluded.seed, generator_version = excluded.generator_version`,
		w.WorldID, w.Seed, string(w.GeneratorVersion))
	if err != nil {
		return fmt.Errorf("sqlstore: put world: %w", err)
	}
	return nil
}
