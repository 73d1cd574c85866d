package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadBotDefaults(t *testing.T) {
	cfg := LoadBot()
	require.Equal(t, ".", cfg.Prefix)
	require.Equal(t, "auth_info_session", cfg.SessionDir)
	require.Equal(t, "sqlite", cfg.DatastoreType)
	require.False(t, cfg.AlwaysOnline)
}

func TestLoadBotFromEnv(t *testing.T) {
	t.Setenv("BOT_PREFIX", "!")
	t.Setenv("ALWAYS_ONLINE", "true")
	t.Setenv("BOT_OWNERS", "+62 812 3456 789, 15550001111")
	t.Setenv("SESSION_ID", "kentech_multibot_e30=")

	cfg := LoadBot()
	require.Equal(t, "!", cfg.Prefix)
	require.True(t, cfg.AlwaysOnline)
	require.Equal(t, "kentech_multibot_e30=", cfg.SessionID)
	require.True(t, cfg.IsOwner("628123456789"))
	require.True(t, cfg.IsOwner("+1 555 000 1111"))
	require.False(t, cfg.IsOwner("4400000000"))
}

func TestLoadBotPrefixNone(t *testing.T) {
	t.Setenv("BOT_PREFIX", "none")
	require.Equal(t, "", LoadBot().Prefix)
}

func TestLoadServer(t *testing.T) {
	t.Setenv("SESSION_TTL", "10m")
	cfg := LoadServer()
	require.Equal(t, 10*time.Minute, cfg.SessionTTL)
	require.Equal(t, 15*time.Second, cfg.QRWait)
	require.Equal(t, "0 */5 * * * *", cfg.SweepSpec)
}
