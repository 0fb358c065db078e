package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() RuntimeSettings {
	return RuntimeSettings{
		ReactionWarn:     1,
		ReactionAlert:    2,
		ReactionDelete:   0,
		ReactionRework:   2,
		AgedPostsCron:    "0 * * * *",
		StaleThreadsCron: "30 * * * *",
	}
}

func TestRuntimeSettings_Validate(t *testing.T) {
	require.NoError(t, validSettings().Validate())

	invalid := validSettings()
	invalid.AgedPostsCron = "bad cron"
	require.Error(t, invalid.Validate())

	noAlert := validSettings()
	noAlert.ReactionAlert = 0
	require.Error(t, noAlert.Validate())

	negative := validSettings()
	negative.ReactionDelete = -1
	require.Error(t, negative.Validate())
}

func TestRuntimeSettingsFile_RoundTrip(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "settings", "runtime.json")
	input := validSettings()

	require.NoError(t, WriteRuntimeSettingsFile(filePath, input))

	got, err := LoadRuntimeSettingsFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, input, got)

	info, err := os.Stat(filePath)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}

func TestWithRuntimeSettings_OverridesConfig(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REACTION_ALERT", "3")

	override := validSettings()
	override.ReactionAlert = 4
	override.ReactionDelete = 6
	override.StaleThreadsCron = "*/15 * * * *"

	cfg, err := NewFromEnv(WithRuntimeSettings(override))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Reactions.Alert)
	assert.Equal(t, 6, cfg.Reactions.Delete)
	assert.Equal(t, "*/15 * * * *", cfg.Schedule.StaleThreadsCron)
	assert.Equal(t, override, cfg.RuntimeSettings())
}

func TestRuntimeSettingsStore_UpdatePersistsAndNotifies(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "runtime-settings.json")
	store, err := NewRuntimeSettingsStore(filePath, validSettings())
	require.NoError(t, err)

	var seen []RuntimeSettings
	store.OnChange(func(s RuntimeSettings) error {
		seen = append(seen, s)
		return nil
	})

	next := validSettings()
	next.ReactionAlert = 5
	got, err := store.UpdateRuntimeSettings(next)
	require.NoError(t, err)
	assert.Equal(t, next, got)
	assert.Equal(t, []RuntimeSettings{next}, seen)

	persisted, err := LoadRuntimeSettingsFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, next, persisted)
}

func TestRuntimeSettingsStore_ListenerErrorRejectsUpdate(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "runtime-settings.json")
	store, err := NewRuntimeSettingsStore(filePath, validSettings())
	require.NoError(t, err)
	store.OnChange(func(RuntimeSettings) error { return errors.New("reschedule failed") })

	next := validSettings()
	next.ReactionAlert = 9
	_, err = store.UpdateRuntimeSettings(next)
	require.Error(t, err)

	current, err := store.GetRuntimeSettings()
	require.NoError(t, err)
	assert.Equal(t, validSettings(), current)
	_, err = os.Stat(filePath)
	assert.True(t, os.IsNotExist(err))
}
