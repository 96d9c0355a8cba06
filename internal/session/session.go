// Package session implements the per-connection state machine and action
// dispatcher (spec §4.8): auth, pose persistence, cooldown enforcement, and
// the monotonic sequence check every inbound message is held to.
package session

import (
	"context"
	"fmt"

	"dungeoncrawler/internal/discovery"
	"dungeoncrawler/internal/snapshot"
	"dungeoncrawler/internal/storage"
	"dungeoncrawler/internal/worldmodel"
	"dungeoncrawler/internal/worldtypes"
)

// Cooldowns are the wall-clock times at which a new move/turn is accepted
// (spec §4.8: "cooldowns: { moveReadyAtMs, turnReadyAtMs }").
type Cooldowns struct {
	MoveReadyAtMs int64
	TurnReadyAtMs int64
}

// Config carries the cooldown durations, which spec §6.3 requires to be
// configurable rather than hard-coded constants.
type Config struct {
	MoveCooldownMs int64
	TurnCooldownMs int64
}

// Session is one connection's authentication and pose state (spec §4.8).
// It holds no transport details; the gateway owns the socket and calls
// Dispatch for every decoded inbound message.
type Session struct {
	cfg Config

	authed      bool
	userID      string
	characterID string
	worldID     string
	level       int32
	x, y        int32
	face        worldtypes.Direction
	hp          int

	lastSeq   int64
	cooldowns Cooldowns
}

// New creates a session with the initial state spec §4.8 requires: not
// authenticated, lastSeq = -1, cooldowns zero.
func New(cfg Config) *Session {
	return &Session{cfg: cfg, lastSeq: -1}
}

// Deps bundles the collaborators Dispatch needs to resolve an action: the
// three simple record stores, the edge oracle (via the snapshot builder),
// the discovery store, and a clock. The session store's own expiry check
// is authoritative for token validity (spec §6.2) — Dispatch never
// consults the external identity provider directly; the token it receives
// is opaque.
type Deps struct {
	Sessions   storage.SessionStore
	Characters storage.CharacterStore
	Worlds     storage.WorldStore
	Discovery  discovery.Store
	Oracles    OracleLookup
	Clock      func() int64
}

// OracleLookup resolves the edge oracle for a world id, since each world
// carries its own seed/generator identity (spec §6.2 getWorld).
type OracleLookup func(worldID string) (*worldmodel.Oracle, error)

// Inbound is one decoded client→server envelope (spec §6.1).
type Inbound struct {
	Seq     int64
	Type    string
	Payload map[string]any
}

// Outbound is one server→client message. action_result and error replies
// echo the triggering request's seq inside Payload.
type Outbound struct {
	Type    string
	Payload map[string]any
}

// ErrBadSeq, ErrBadSchema, and ErrUnauthenticated name the three error
// replies Dispatch can emit before ever touching game state (spec §4.8);
// ErrNotImplemented is the action_result reason for reserved message types.
var (
	ErrBadSeq           = "bad_seq"
	ErrBadSchema        = "bad_schema"
	ErrUnauthenticated  = "unauthenticated"
	ErrNotImplemented   = "not_implemented"
)

// Dispatch validates and applies one inbound message, returning the
// reply (or replies) to send. Every reply after a successful auth/turn/move
// is followed by a fresh snapshot, per spec §4.9.
func (s *Session) Dispatch(ctx context.Context, deps Deps, in Inbound) ([]Outbound, error) {
	now := deps.Clock()

	if in.Seq <= s.lastSeq {
		return []Outbound{errorMsg(ErrBadSeq, "sequence number must increase", in.Seq)}, nil
	}
	s.lastSeq = in.Seq

	if !s.authed && in.Type != "auth" {
		return []Outbound{{Type: "auth_err", Payload: map[string]any{"reason": ErrUnauthenticated}}}, nil
	}

	switch in.Type {
	case "auth":
		return s.handleAuth(ctx, deps, now, in)
	case "join_world":
		return []Outbound{actionResult(false, ErrNotImplemented, in.Seq)}, nil
	case "turn":
		return s.handleTurn(ctx, deps, now, in)
	case "move":
		return s.handleMove(ctx, deps, now, in)
	case "interact", "use_egg":
		return []Outbound{actionResult(false, ErrNotImplemented, in.Seq)}, nil
	default:
		return []Outbound{errorMsg(ErrBadSchema, fmt.Sprintf("unknown message type %q", in.Type), in.Seq)}, nil
	}
}

func (s *Session) handleAuth(ctx context.Context, deps Deps, now int64, in Inbound) ([]Outbound, error) {
	token, _ := in.Payload["session_token"].(string)
	if token == "" {
		return []Outbound{{Type: "auth_err", Payload: map[string]any{"reason": "missing session_token"}}}, nil
	}

	sess, err := deps.Sessions.LoadSession(ctx, token)
	if err != nil {
		return []Outbound{{Type: "auth_err", Payload: map[string]any{"reason": "invalid session"}}}, nil
	}
	if sess.ExpiresAt != 0 && now > sess.ExpiresAt {
		return []Outbound{{Type: "auth_err", Payload: map[string]any{"reason": "expired session"}}}, nil
	}

	char, err := deps.Characters.LoadActiveCharacter(ctx, sess.UserID)
	if err != nil {
		return []Outbound{{Type: "auth_err", Payload: map[string]any{"reason": "no active character"}}}, nil
	}

	s.authed = true
	s.userID = sess.UserID
	s.characterID = char.CharacterID
	s.worldID = char.WorldID
	s.level, s.x, s.y, s.face, s.hp = char.Level, char.X, char.Y, char.Face, char.HP
	s.cooldowns = Cooldowns{MoveReadyAtMs: now, TurnReadyAtMs: now}

	snap, err := s.buildSnapshot(ctx, deps)
	if err != nil {
		return nil, err
	}

	return []Outbound{
		{Type: "auth_ok", Payload: map[string]any{
			"user_id":      sess.UserID,
			"character_id": char.CharacterID,
			"world_id":     char.WorldID,
		}},
		worldStateMsg(snap),
	}, nil
}

func (s *Session) handleTurn(ctx context.Context, deps Deps, now int64, in Inbound) ([]Outbound, error) {
	faceStr, _ := in.Payload["face"].(string)
	face, ok := worldtypes.ParseDirection(faceStr)
	if !ok {
		return []Outbound{errorMsg(ErrBadSchema, "invalid face", in.Seq)}, nil
	}
	if now < s.cooldowns.TurnReadyAtMs {
		return []Outbound{actionResult(false, "turn_cooldown", in.Seq)}, nil
	}

	s.face = face
	s.cooldowns.TurnReadyAtMs = now + s.cfg.TurnCooldownMs
	if err := deps.Characters.SavePosition(ctx, s.characterID, s.worldID, s.level, s.x, s.y, s.face); err != nil {
		return nil, fmt.Errorf("session: save pose after turn: %w", err)
	}

	snap, err := s.buildSnapshot(ctx, deps)
	if err != nil {
		return nil, err
	}
	return []Outbound{actionResult(true, "", in.Seq), worldStateMsg(snap)}, nil
}

func (s *Session) handleMove(ctx context.Context, deps Deps, now int64, in Inbound) ([]Outbound, error) {
	dirStr, _ := in.Payload["dir"].(string)
	if now < s.cooldowns.MoveReadyAtMs {
		return []Outbound{actionResult(false, "move_cooldown", in.Seq)}, nil
	}

	absDir, newFace, ok := resolveMoveDirection(dirStr, s.face)
	if !ok {
		return []Outbound{actionResult(false, "bad_dir", in.Seq)}, nil
	}

	oracle, err := deps.Oracles(s.worldID)
	if err != nil {
		return nil, fmt.Errorf("session: resolve oracle: %w", err)
	}

	canMove, err := oracle.CanTraverse(ctx, s.level, s.x, s.y, absDir)
	if err != nil {
		return nil, fmt.Errorf("session: check traversal: %w", err)
	}
	if !canMove {
		s.face = newFace
		return []Outbound{actionResult(false, "blocked", in.Seq)}, nil
	}

	dx, dy := absDir.Delta()
	s.x += int32(dx)
	s.y += int32(dy)
	s.face = newFace
	s.cooldowns.MoveReadyAtMs = now + s.cfg.MoveCooldownMs

	if err := deps.Discovery.MarkDiscovered(ctx, s.level, s.x, s.y, now); err != nil {
		return nil, fmt.Errorf("session: mark discovered: %w", err)
	}
	if err := deps.Characters.SavePosition(ctx, s.characterID, s.worldID, s.level, s.x, s.y, s.face); err != nil {
		return nil, fmt.Errorf("session: save pose after move: %w", err)
	}

	snap, err := s.buildSnapshot(ctx, deps)
	if err != nil {
		return nil, err
	}
	return []Outbound{actionResult(true, "", in.Seq), worldStateMsg(snap)}, nil
}

// resolveMoveDirection translates a move direction token ({N,E,S,W,F,B})
// into the absolute direction to traverse and the facing it leaves the
// player in (spec §4.8: "translate F/B to abs using current facing ...
// else set facing to dir").
func resolveMoveDirection(dir string, currentFace worldtypes.Direction) (abs, newFace worldtypes.Direction, ok bool) {
	switch dir {
	case "F":
		return currentFace, currentFace, true
	case "B":
		return currentFace.Opposite(), currentFace, true
	default:
		d, ok := worldtypes.ParseDirection(dir)
		if !ok {
			return 0, 0, false
		}
		return d, d, true
	}
}

func (s *Session) buildSnapshot(ctx context.Context, deps Deps) (snapshot.Snapshot, error) {
	oracle, err := deps.Oracles(s.worldID)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("session: resolve oracle for snapshot: %w", err)
	}
	builder := snapshot.NewBuilder(oracle, deps.Discovery, deps.Clock)
	snap, err := builder.Build(ctx, s.level, s.x, s.y, s.face, s.hp, nil, snapshot.Cooldowns{
		MoveReadyAtMs: s.cooldowns.MoveReadyAtMs,
		TurnReadyAtMs: s.cooldowns.TurnReadyAtMs,
	})
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("session: build snapshot: %w", err)
	}
	return snap, nil
}

func actionResult(ok bool, reason string, seq int64) Outbound {
	payload := map[string]any{"ok": ok, "seq": seq}
	if reason != "" {
		payload["reason"] = reason
	}
	return Outbound{Type: "action_result", Payload: payload}
}

func errorMsg(code, message string, seq int64) Outbound {
	return Outbound{Type: "error", Payload: map[string]any{"code": code, "message": message, "seq": seq}}
}

func worldStateMsg(snap snapshot.Snapshot) Outbound {
	return Outbound{Type: "world_state", Payload: map[string]any{
		"now": snap.Now,
		"you": map[string]any{
			"level":  snap.You.Level,
			"x":      snap.You.X,
			"y":      snap.You.Y,
			"face":   snap.You.Face.String(),
			"hp":     snap.You.HP,
			"status": snap.You.Status,
		},
		"hub": map[string]any{
			"level":     snap.Hub.Level,
			"x":         snap.Hub.X,
			"y":         snap.Hub.Y,
			"distFeet":  snap.Hub.DistFeet,
			"direction": snap.Hub.Direction.String(),
		},
		"cooldowns": map[string]any{
			"moveReadyAtMs": snap.Cooldowns.MoveReadyAtMs,
			"turnReadyAtMs": snap.Cooldowns.TurnReadyAtMs,
		},
		"world_hash":     snap.WorldHash,
		"visible_cells":  cellsPayload(snap.VisibleCells),
		"minimap_cells":  cellsPayload(snap.MinimapCells),
	}}
}

func cellsPayload(cells []snapshot.Cell) []map[string]any {
	out := make([]map[string]any, len(cells))
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

// DefaultConfig returns the cooldown durations spec §6.4 never pins as
// constants but §4.8/§6.3 name by default: 500ms move, 150ms turn.
func DefaultConfig() Config {
	return Config{MoveCooldownMs: 500, TurnCooldownMs: 150}
}
