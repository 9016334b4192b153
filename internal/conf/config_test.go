package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// Tests in this file share the global viper instance and must not run in parallel.

func TestLoadDefaultsFromExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "en", settings.Main.Locale)
	assert.Equal(t, "default", settings.Main.User)
	assert.Equal(t, DefaultMorningTime, settings.Reminder.Times.Morning)
	assert.Equal(t, DefaultNoonTime, settings.Reminder.Times.Noon)
	assert.Equal(t, DefaultNightTime, settings.Reminder.Times.Night)
	assert.Equal(t, 5*time.Second, settings.Notification.GracePeriod)
	assert.Equal(t, 5*time.Minute, settings.Monitor.Deadline)
	assert.Equal(t, 30*time.Second, settings.Monitor.TestDeadline)
	assert.InDelta(t, 30.0, settings.Monitor.PixelThreshold, 1e-9)
	assert.InDelta(t, 0.05, settings.Monitor.MotionRatio, 1e-9)
	assert.Equal(t, 3, settings.Monitor.MinSamples)
	assert.Equal(t, StorageSQLite, settings.Storage.Type)
	assert.Equal(t, "info", settings.Main.Log.DefaultLevel)
	require.NotNil(t, settings.Main.Log.Console)
	assert.True(t, settings.Main.Log.Console.Enabled)

	assert.Equal(t, path, ConfigFileUsed())
	assert.Same(t, settings, GetSettings())
}

func TestWriteDefaultConfigRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("debug: true\n"), 0o644))

	require.Error(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug: true\n", string(data))
}

func TestEnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	t.Setenv("EYEDROP_LOCALE", "ja")
	t.Setenv("EYEDROP_MONITOR_DEADLINE", "2m")
	t.Setenv("EYEDROP_STORAGE_TYPE", "memory")

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ja", settings.Main.Locale)
	assert.Equal(t, 2*time.Minute, settings.Monitor.Deadline)
	assert.Equal(t, StorageMemory, settings.Storage.Type)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "reminder:\n  times:\n    morning: \"25:00\"\nstorage:\n  type: postgres\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
}

func TestValidSlotTime(t *testing.T) {
	tests := []struct {
		expr string
		want bool
	}{
		{"08:00", true},
		{"23:59", true},
		{"24:00", false},
		{"8:00", false},
		{"sunrise", true},
		{"sunset+30m", true},
		{"dusk-1h30m", true},
		{"noon+5m", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidSlotTime(tt.expr))
		})
	}
}

func TestSaveYAMLConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	settings, err := Load(path)
	require.NoError(t, err)

	settings.Reminder.Times.Night = "sunset+1h"
	settings.Family.Enabled = true
	require.NoError(t, SaveYAMLConfig(path, settings))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Contains(t, raw, "reminder")

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sunset+1h", reloaded.Reminder.Times.Night)
	assert.True(t, reloaded.Family.Enabled)
	assert.Equal(t, settings.Monitor.Deadline, reloaded.Monitor.Deadline)
}

func TestActiveDeadline(t *testing.T) {
	m := MonitorSettings{Deadline: 5 * time.Minute, TestDeadline: 30 * time.Second}
	assert.Equal(t, 5*time.Minute, m.ActiveDeadline(false))
	assert.Equal(t, 30*time.Second, m.ActiveDeadline(true))
}
