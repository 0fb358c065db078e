package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DISCORD_GUILD_ID", "guild")
	t.Setenv("JOB_BOARD_CHANNEL_ID", "board")
	t.Setenv("MOD_LOG_CHANNEL_ID", "modlog")
}

func TestNewFromEnv_Defaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATA_DIR", "")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Discord.RequestTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Moderation.RepostThreshold)
	assert.Equal(t, 162*time.Hour, cfg.Moderation.PostWindow)
	assert.Equal(t, 100, cfg.Moderation.ThreadCacheSize)
	assert.Equal(t, 2*time.Hour, cfg.Moderation.ThreadTTL)
	assert.Equal(t, time.Hour, cfg.Moderation.StaleThreadAge)
	assert.Equal(t, 2, cfg.Reactions.Alert)
	assert.Equal(t, 0, cfg.Reactions.Delete)
	assert.Equal(t, time.Minute, cfg.Reactions.Cooldown)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, filepath.Join("/app/data", "jobmod.db"), cfg.DBPath())
}

func TestNewFromEnv_ParsesValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STAFF_ROLE_IDS", "r1, r2,,")
	t.Setenv("REPOST_THRESHOLD", "15m")
	t.Setenv("REACTION_COOLDOWN", "90")
	t.Setenv("REQUIRE_ENGLISH", "true")
	t.Setenv("DATA_DIR", "/tmp/jobmod")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, []string{"r1", "r2"}, cfg.Roles.Staff)
	assert.Empty(t, cfg.Roles.Helpful)
	assert.Equal(t, 15*time.Minute, cfg.Moderation.RepostThreshold)
	assert.Equal(t, 90*time.Second, cfg.Reactions.Cooldown)
	assert.True(t, cfg.Moderation.RequireEnglish)
	assert.Equal(t, filepath.Join("/tmp/jobmod", "jobmod.db"), cfg.DBPath())
}

func TestNewFromEnv_Validation(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	_, err := NewFromEnv()
	require.Error(t, err)

	cfg, err := NewFromEnv(Offline())
	require.NoError(t, err)
	assert.Empty(t, cfg.Discord.Token)

	t.Setenv("AGED_POSTS_CRON", "not a cron")
	_, err = NewFromEnv(Offline())
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("JOBMOD_TEST_VALUE=from-file\n"), 0o600))
	t.Setenv("JOBMOD_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("JOBMOD_TEST_VALUE"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-file", os.Getenv("JOBMOD_TEST_VALUE"))
}
