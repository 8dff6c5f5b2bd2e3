package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("MissingFileIsEmptyConfig", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Empty(t, cfg.FPL.Username)
	})

	t.Run("ParsesYAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
fpl:
  username: user@example.com
  password: secret
  accounts:
    - "111"
    - "222"
home_assistant:
  enabled: true
  url: http://ha.local:5050
  token: tok
backfill_days: 7
schedule: "@every 1h"
`), 0600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", cfg.FPL.Username)
		assert.Equal(t, []string{"111", "222"}, cfg.FPL.Accounts)
		assert.True(t, cfg.HomeAssistant.Enabled)
		assert.Equal(t, 7, cfg.GetBackfillDays())
		assert.Equal(t, "@every 1h", cfg.GetSchedule())
	})

	t.Run("Malformed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("fpl: ["), 0600))
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	in := &Config{}
	in.FPL.Username = "user@example.com"
	in.FPL.Token = "tok-abc"

	require.NoError(t, Save(path, in))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "config holds credentials")

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", out.FPL.Token)
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, 15, cfg.GetBackfillDays())
	assert.Equal(t, "@every 20m", cfg.GetSchedule())
	assert.Equal(t, 30, cfg.GetMinRefreshSeconds())
	assert.Equal(t, "fpl", cfg.MQTT.GetTopicPrefix())

	cfg.BackfillDays = -1
	assert.Equal(t, 15, cfg.GetBackfillDays(), "negative values fall back to the default")
}
