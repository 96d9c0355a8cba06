package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"dungeoncrawler/internal/overlay"
	"dungeoncrawler/internal/worldtypes"
)

// Options configures the HTTP surface: the gameplay channel path, allowed
// origins, and the static admin bearer token for the overlay-write pathway
// (spec §6.3, §4.5 "an admin pathway").
type Options struct {
	ChannelPath     string
	AllowedOrigins  []string
	AdminToken      string
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// NewRouter builds the chi router: the gameplay WebSocket upgrade, a
// liveness probe, and (if AdminToken is set) the admin overlay-write
// routes. connDeps is passed straight through to every new Connection.
func NewRouter(opts Options, connDeps Deps, overlayStore overlay.Store, log *logrus.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	channelPath := opts.ChannelPath
	if channelPath == "" {
		channelPath = "/ws"
	}
	// The gameplay upgrade admits origins listed in AllowedOrigins (any origin
	// for "*" or an empty list) and requests without an Origin header.
	wsUpgrader := upgrader
	wsUpgrader.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		for _, allowed := range opts.AllowedOrigins {
			if allowed == "*" || strings.EqualFold(allowed, origin) {
				return true
			}
		}
		return origin == "" || len(opts.AllowedOrigins) == 0
	}
	r.Get(channelPath, func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("websocket upgrade failed")
			return
		}
		entry := log.WithField("remote_addr", r.RemoteAddr)
		entry.Info("connection established")
		c := NewConnection(conn, connDeps, entry)
		c.Serve(r.Context())
		entry.Info("connection closed")
	})

	if opts.AdminToken != "" {
		r.Route("/admin/overlay", func(r chi.Router) {
			r.Use(adminAuth(opts.AdminToken))
			r.Post("/edge", handleAdminEdge(overlayStore, log))
			r.Post("/cell", handleAdminCell(overlayStore, log))
		})
	}

	return r
}

// adminAuth gates a route group behind a static bearer token (spec §4.5:
// the admin pathway is the only caller outside the seed-hub initializer
// and frontier expansion allowed to write overlay records directly).
func adminAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type adminEdgeRequest struct {
	Level    int32  `json:"level"`
	X        int32  `json:"x"`
	Y        int32  `json:"y"`
	Dir      string `json:"dir"`
	Kind     string `json:"kind"`
	Frontier bool   `json:"frontier"`
}

func handleAdminEdge(store overlay.Store, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adminEdgeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		dir, ok := worldtypes.ParseDirection(req.Dir)
		if !ok {
			http.Error(w, "bad dir", http.StatusBadRequest)
			return
		}
		kind, ok := parseEdgeKind(req.Kind)
		if !ok {
			http.Error(w, "bad kind", http.StatusBadRequest)
			return
		}
		err := store.WriteEdgeBothWays(r.Context(), req.Level, req.X, req.Y, dir, kind, req.Frontier, nil, nowMillis())
		if err != nil {
			log.WithError(err).Error("admin edge write failed")
			http.Error(w, "write failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type adminCellRequest struct {
	Level  int32  `json:"level"`
	X      int32  `json:"x"`
	Y      int32  `json:"y"`
	Kind   string `json:"kind"`
	AreaID string `json:"area_id"`
}

func handleAdminCell(store overlay.Store, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adminCellRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		kind := overlay.CellKind(req.Kind)
		err := store.WriteCell(r.Context(), req.Level, req.X, req.Y, overlay.CellMeta{Kind: kind, AreaID: req.AreaID}, nowMillis())
		if err != nil {
			log.WithError(err).Error("admin cell write failed")
			http.Error(w, "write failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func parseEdgeKind(s string) (worldtypes.EdgeKind, bool) {
	switch s {
	case "wall":
		return worldtypes.Wall, true
	case "open":
		return worldtypes.Open, true
	case "door_locked":
		return worldtypes.DoorLocked, true
	case "door_unlocked":
		return worldtypes.DoorUnlocked, true
	case "lever_secret":
		return worldtypes.LeverSecret, true
	default:
		return 0, false
	}
}

func nowMillis() int64 {
	return nowFunc()
}

// nowFunc is package-level so tests can override it; cmd/dungeon installs
// the real clock once at startup via SetClock.
var nowFunc = func() int64 { return 0 }

// SetClock installs the clock the admin HTTP handlers use for
// UpdatedAtMs timestamps. cmd/dungeon calls this once during wiring.
func SetClock(clock func() int64) {
	nowFunc = clock
}
