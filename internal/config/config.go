// Package config is the shared flag/env configuration struct consumed by
// cmd/dungeon and the gateway (spec §6.3): listening address, message
// channel path, allowed origins, cooldown durations, seed override, and
// generator version label.
package config

import (
	"strings"

	"dungeoncrawler/internal/generation"
)

// Config is the full set of recognized configuration (spec §6.3).
type Config struct {
	ListenAddr       string
	ChannelPath      string
	AllowedOrigins   []string
	MoveCooldownMs   int64
	TurnCooldownMs   int64
	SeedOverride     uint32
	GeneratorVersion generation.Variant
	AdminToken       string
	SQLiteDSN        string
}

// Default returns the configuration cmd/dungeon starts from before flags
// and environment overrides are applied.
func Default() Config {
	return Config{
		ListenAddr:       ":8080",
		ChannelPath:      "/ws",
		AllowedOrigins:   []string{"*"},
		MoveCooldownMs:   500,
		TurnCooldownMs:   150,
		SeedOverride:     0,
		GeneratorVersion: generation.VariantMaze,
		AdminToken:       "",
		SQLiteDSN:        ":memory:",
	}
}

// SplitOrigins parses a comma-separated origins flag/env value into a
// slice, trimming whitespace around each entry.
func SplitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
