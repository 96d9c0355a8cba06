package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"dungeoncrawler/internal/authstub"
	"dungeoncrawler/internal/discovery"
	"dungeoncrawler/internal/session"
	"dungeoncrawler/internal/storage"
	"dungeoncrawler/internal/worldmodel"
)

// writeTimeout bounds a single WriteMessage call; a client slow enough to
// exceed it is treated as dead (mirrors the teacher's ClientConnection
// writeLoop deadline).
const writeTimeout = 10 * time.Second

// sendBuffer is the depth of a connection's outgoing channel. When the
// buffer is full, the message being sent is dropped (and logged) rather
// than blocking the connection's own read/dispatch loop (same tolerance the
// teacher's ClientHub gives slow clients).
const sendBuffer = 16

// Deps bundles every collaborator a connection needs to dispatch messages,
// independent of any particular world: the session, character, world and
// discovery stores, the per-world oracle lookup (which fronts the overlay
// store), the clock, and the cooldown config. Issuer is the reference token
// issuer; the dispatch path does not call it.
type Deps struct {
	Sessions   storage.SessionStore
	Characters storage.CharacterStore
	Worlds     storage.WorldStore
	Discovery  discovery.Store
	Issuer     *authstub.Issuer
	Oracles    session.OracleLookup
	Clock      func() int64
	SessionCfg session.Config
}

// Connection manages one client's WebSocket lifecycle: reading framed
// envelopes, dispatching them through the session state machine, and
// writing replies back out via a dedicated buffered channel (mirrors the
// teacher's network.HandleClient + ClientConnection split).
type Connection struct {
	conn    *websocket.Conn
	deps    Deps
	sess    *session.Session
	sendCh  chan []byte
	log     *logrus.Entry
}

// NewConnection wraps an upgraded WebSocket connection and its session
// state.
func NewConnection(conn *websocket.Conn, deps Deps, log *logrus.Entry) *Connection {
	return &Connection{
		conn:   conn,
		deps:   deps,
		sess:   session.New(deps.SessionCfg),
		sendCh: make(chan []byte, sendBuffer),
		log:    log,
	}
}

// Serve runs the connection's write goroutine and then blocks in the read
// loop until the client disconnects or a framing error occurs. It cleans
// up its own write goroutine before returning.
func (c *Connection) Serve(ctx context.Context) {
	done := make(chan struct{})
	go c.writeLoop(done)
	defer func() {
		close(c.sendCh)
		<-done
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxPayloadBytes)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("websocket read error")
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.sendError("bad_schema", "malformed envelope", 0)
			continue
		}

		var payload map[string]any
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &payload); err != nil {
				c.sendError("bad_schema", "malformed payload", env.Seq)
				continue
			}
		}

		outs, err := c.sess.Dispatch(ctx, session.Deps{
			Sessions:   c.deps.Sessions,
			Characters: c.deps.Characters,
			Worlds:     c.deps.Worlds,
			Discovery:  c.deps.Discovery,
			Oracles:    c.deps.Oracles,
			Clock:      c.deps.Clock,
		}, session.Inbound{Seq: env.Seq, Type: env.Type, Payload: payload})
		if err != nil {
			c.log.WithError(err).Error("dispatch failed")
			c.sendError("internal", "internal error", env.Seq)
			continue
		}

		for _, out := range outs {
			c.send(out)
		}
	}
}

func (c *Connection) send(out session.Outbound) {
	body, err := json.Marshal(struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}{Type: out.Type, Payload: out.Payload})
	if err != nil {
		c.log.WithError(err).Error("marshal outbound message")
		return
	}
	select {
	case c.sendCh <- body:
	default:
		c.log.Warn("dropped outbound message: send buffer full")
	}
}

func (c *Connection) sendError(code, message string, seq int64) {
	c.send(session.Outbound{Type: "error", Payload: map[string]any{"code": code, "message": message, "seq": seq}})
}

// writeLoop drains sendCh to the socket until it is closed, then signals
// done.
func (c *Connection) writeLoop(done chan struct{}) {
	defer close(done)
	for body := range c.sendCh {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			c.log.WithError(err).Warn("set write deadline")
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, body); err != nil {
			c.log.WithError(err).Warn("write failed")
			return
		}
	}
}

// NewOracleLookup builds an OracleLookup backed by a single
// worldmodel.Oracle per world id, constructed lazily from the world store
// and a shared overlay/discovery/generation stack. Safe for concurrent use
// across connection goroutines. cmd/dungeon uses this instead of hand-
// rolling its own lookup so every world gets the same per-process caching.
func NewOracleLookup(worlds storage.WorldStore, makeOracle func(world storage.World) *worldmodel.Oracle) session.OracleLookup {
	var mu sync.Mutex
	cache := make(map[string]*worldmodel.Oracle)
	return func(worldID string) (*worldmodel.Oracle, error) {
		mu.Lock()
		defer mu.Unlock()
		if o, ok := cache[worldID]; ok {
			return o, nil
		}
		w, err := worlds.GetWorld(context.Background(), worldID)
		if err != nil {
			return nil, fmt.Errorf("gateway: resolve world %q: %w", worldID, err)
		}
		o := makeOracle(w)
		cache[worldID] = o
		return o, nil
	}
}
