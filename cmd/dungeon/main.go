// Command dungeon runs the gameplay gateway: a cobra root command with a
// serve subcommand that wires the stores, the edge oracle, and the
// WebSocket/HTTP gateway together (spec §6.3).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"dungeoncrawler/internal/authstub"
	"dungeoncrawler/internal/config"
	"dungeoncrawler/internal/discovery"
	"dungeoncrawler/internal/gateway"
	"dungeoncrawler/internal/generation"
	"dungeoncrawler/internal/overlay"
	"dungeoncrawler/internal/session"
	"dungeoncrawler/internal/storage"
	"dungeoncrawler/internal/storage/memstore"
	"dungeoncrawler/internal/storage/sqlstore"
	"dungeoncrawler/internal/worldmodel"
)

func main() {
	// .env defaults are loaded best-effort before flags are parsed, so
	// local development doesn't need a full flag line (grounded: the
	// pack's orbas1-Synnergy wires godotenv the same way ahead of its
	// flag/env resolution).
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	root := &cobra.Command{Use: "dungeon"}
	root.AddCommand(serveCmd(log))
	if err := root.Execute(); err != nil {
		log.WithError(err).Fatal("command failed")
		os.Exit(1)
	}
}

func serveCmd(log *logrus.Logger) *cobra.Command {
	defaults := config.Default()

	var (
		listenAddr       string
		channelPath      string
		originsRaw       string
		moveCooldownMs   int64
		turnCooldownMs   int64
		seedOverride     uint32
		generatorVersion string
		adminToken       string
		worldID          string
		storageKind      string
		sqliteDSN        string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the dungeon gameplay gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := defaults
			cfg.ListenAddr = listenAddr
			cfg.ChannelPath = channelPath
			cfg.AllowedOrigins = config.SplitOrigins(originsRaw)
			cfg.MoveCooldownMs = moveCooldownMs
			cfg.TurnCooldownMs = turnCooldownMs
			cfg.SeedOverride = seedOverride
			cfg.GeneratorVersion = generation.Variant(generatorVersion)
			cfg.AdminToken = adminToken
			cfg.SQLiteDSN = sqliteDSN

			return runServe(cfg, worldID, storageKind, log)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", defaults.ListenAddr, "HTTP listen address")
	cmd.Flags().StringVar(&channelPath, "channel-path", defaults.ChannelPath, "WebSocket gameplay channel path")
	cmd.Flags().StringVar(&originsRaw, "allowed-origins", "*", "comma-separated allowed origins, or * for any")
	cmd.Flags().Int64Var(&moveCooldownMs, "move-cooldown-ms", defaults.MoveCooldownMs, "movement cooldown in milliseconds")
	cmd.Flags().Int64Var(&turnCooldownMs, "turn-cooldown-ms", defaults.TurnCooldownMs, "turn cooldown in milliseconds")
	cmd.Flags().Uint32Var(&seedOverride, "seed", defaults.SeedOverride, "world seed override (0 picks a random seed)")
	cmd.Flags().StringVar(&generatorVersion, "generator-version", string(defaults.GeneratorVersion), "generator variant label (maze or bsp_v4)")
	cmd.Flags().StringVar(&adminToken, "admin-token", defaults.AdminToken, "bearer token for the admin overlay pathway (empty disables it)")
	cmd.Flags().StringVar(&worldID, "world-id", "default", "world id served by this process")
	cmd.Flags().StringVar(&storageKind, "storage", "mem", "session/character/world storage backend: mem or sqlite")
	cmd.Flags().StringVar(&sqliteDSN, "sqlite-dsn", defaults.SQLiteDSN, "sqlite DSN used when --storage=sqlite")

	return cmd
}

// records is the subset of storage.SessionStore + storage.CharacterStore +
// storage.WorldStore the gateway dispatch path needs, satisfied by both
// memstore.Store and sqlstore.Store.
type records interface {
	storage.SessionStore
	storage.CharacterStore
	storage.WorldStore
}

func runServe(cfg config.Config, worldID, storageKind string, log *logrus.Logger) error {
	clock := func() int64 { return time.Now().UnixMilli() }
	gateway.SetClock(clock)

	seed := cfg.SeedOverride
	if seed == 0 {
		seed = uint32(time.Now().UnixNano())
	}

	var store records
	switch storageKind {
	case "mem":
		store = memstore.New()
	case "sqlite":
		s, err := sqlstore.Open(cfg.SQLiteDSN)
		if err != nil {
			return fmt.Errorf("open sqlite storage: %w", err)
		}
		store = s
	default:
		return fmt.Errorf("unknown --storage %q (want mem or sqlite)", storageKind)
	}

	ctx := context.Background()
	issuer := authstub.NewIssuer([]byte("dev-signing-key-change-me"), 24*time.Hour)
	token, sessRec, err := issuer.Mint("dev-user", clock())
	if err != nil {
		return err
	}
	devCharacter := storage.Character{
		CharacterID: authstub.NewCharacterID(),
		UserID:      "dev-user",
		WorldID:     worldID,
		Level:       0, X: 0, Y: 0,
		HP: 100,
	}
	world := memstore.DefaultWorld(worldID, seed, cfg.GeneratorVersion)

	switch s := store.(type) {
	case *memstore.Store:
		s.PutWorld(world)
		s.PutSession(token, sessRec)
		s.PutCharacter(devCharacter)
	case *sqlstore.Store:
		if err := s.PutWorld(ctx, world); err != nil {
			return fmt.Errorf("seed world: %w", err)
		}
		if err := s.PutSession(ctx, token, sessRec); err != nil {
			return fmt.Errorf("seed dev session: %w", err)
		}
		if err := s.PutCharacter(ctx, devCharacter); err != nil {
			return fmt.Errorf("seed dev character: %w", err)
		}
	}
	log.WithFields(logrus.Fields{"dev_session_token": token, "storage": storageKind}).Info("seeded development session")

	overlayStore := overlay.NewMemStore()
	discoveryStore := discovery.NewMemStore()
	chunkCache := generation.NewCache(512)

	makeOracle := func(w storage.World) *worldmodel.Oracle {
		return worldmodel.NewOracle(worldmodel.WorldRef{
			ID:               w.WorldID,
			Seed:             w.Seed,
			GeneratorVersion: w.GeneratorVersion,
		}, overlayStore, chunkCache, clock)
	}

	connDeps := gateway.Deps{
		Sessions:   store,
		Characters: store,
		Worlds:     store,
		Discovery:  discoveryStore,
		Issuer:     issuer,
		Oracles:    gateway.NewOracleLookup(store, makeOracle),
		Clock:      clock,
		SessionCfg: session.Config{MoveCooldownMs: cfg.MoveCooldownMs, TurnCooldownMs: cfg.TurnCooldownMs},
	}

	router := gateway.NewRouter(gateway.Options{
		ChannelPath:    cfg.ChannelPath,
		AllowedOrigins: cfg.AllowedOrigins,
		AdminToken:     cfg.AdminToken,
	}, connDeps, overlayStore, log)

	log.WithFields(logrus.Fields{
		"listen":  cfg.ListenAddr,
		"channel": cfg.ChannelPath,
		"variant": cfg.GeneratorVersion,
		"seed":    seed,
		"storage": storageKind,
	}).Info("dungeon gateway starting")

	return http.ListenAndServe(cfg.ListenAddr, router)
}
