package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dungeoncrawler/internal/config"
	"dungeoncrawler/internal/generation"
)

func TestDefault_HasSaneListenAddrAndCooldowns(t *testing.T) {
	cfg := config.Default()
	require.Equal(t, ":8080", cfg.ListenAddr)
	require.Equal(t, "/ws", cfg.ChannelPath)
	require.Equal(t, generation.VariantMaze, cfg.GeneratorVersion)
	require.Greater(t, cfg.MoveCooldownMs, int64(0))
	require.Greater(t, cfg.TurnCooldownMs, int64(0))
}

func TestSplitOrigins(t *testing.T) {
	require.Equal(t, []string{"https://a.example", "https://b.example"}, config.SplitOrigins("https://a.example, https://b.example"))
	require.Nil(t, config.SplitOrigins(""))
	require.Equal(t, []string{"*"}, config.SplitOrigins("*"))
}

func TestSplitOrigins_SkipsEmptyEntries(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, config.SplitOrigins("a,,b, "))
}
