package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/eyedrop-checker/internal/conf"
)

// Commands share the global viper instance and logger; tests must not run in parallel.

func setupConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, conf.WriteDefaultConfig(path))
	t.Setenv("EYEDROP_STORAGE_TYPE", conf.StorageSQLite)
	t.Setenv("EYEDROP_STORAGE_PATH", filepath.Join(dir, "eyedrops.db"))
	t.Setenv("EYEDROP_USER", "alice")
	t.Setenv("EYEDROP_TIMEZONE", "UTC")
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := RootCommand(&conf.Settings{}, "test")
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConfigInitWritesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	settings, err := conf.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "default", settings.Main.User)

	_, err = execute(t, "config", "init", path)
	require.Error(t, err, "existing file must not be overwritten")
}

func TestDayCommands(t *testing.T) {
	path := setupConfig(t)

	out, err := execute(t, "--config", path, "day", "toggle", "morning", "--date", "2026-10-14")
	require.NoError(t, err)
	assert.Contains(t, out, "2026-10-14")
	assert.Contains(t, out, "33%")

	out, err = execute(t, "--config", path, "day", "note", "left", "eye", "only", "--date", "2026-10-14")
	require.NoError(t, err)
	assert.Contains(t, out, "note: left eye only")

	out, err = execute(t, "--config", path, "day", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "2026-10-14   33%")

	_, err = execute(t, "--config", path, "day", "reset", "--date", "2026-10-14")
	require.NoError(t, err)

	out, err = execute(t, "--config", path, "day", "show", "--date", "2026-10-14")
	require.NoError(t, err)
	assert.Contains(t, out, "0%")
	assert.NotContains(t, out, "note:")

	_, err = execute(t, "--config", path, "day", "toggle", "evening")
	require.Error(t, err)

	_, err = execute(t, "--config", path, "day", "show", "--date", "14.10.2026")
	require.Error(t, err)
}

func TestFamilyCommands(t *testing.T) {
	path := setupConfig(t)

	out, err := execute(t, "--config", path, "family", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no family members")

	out, err = execute(t, "--config", path, "family", "add", "bob@example.com", "--name", "Bob")
	require.NoError(t, err)
	m := regexp.MustCompile(`added bob@example.com \(([0-9a-f-]+)\)`).FindStringSubmatch(out)
	require.Len(t, m, 2, out)

	out, err = execute(t, "--config", path, "family", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "bob@example.com")
	assert.Contains(t, out, "Bob")

	_, err = execute(t, "--config", path, "family", "remove", m[1])
	require.NoError(t, err)

	_, err = execute(t, "--config", path, "family", "remove", m[1])
	require.Error(t, err)
}

func TestMissingConfigFileFails(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "day", "show")
	require.Error(t, err)
}
