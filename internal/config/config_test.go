package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{EnvDB, "SCANFLOW_DATABASE_PATH", "SCANFLOW_LOGGING_LEVEL", "SCANFLOW_ACCESS_ENFORCE"} {
		t.Setenv(key, "")
	}
	return home
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	home := isolateEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".scanflow", "scanflow.db"), cfg.Database.Path)
	assert.True(t, cfg.Database.Lock)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.False(t, cfg.Access.Enforce)
	assert.Empty(t, cfg.Stages.Labels)
	assert.Equal(t, "uk", cfg.Display.Collation)
}

func TestLoad_ReadsFile(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, `
[database]
path = "`+filepath.ToSlash(filepath.Join(dir, "work.db"))+`"
lock = false

[stages]
graph_file = "`+filepath.ToSlash(filepath.Join(dir, "graph.yaml"))+`"

[stages.labels]
translate = "✍️ Переклад"

[access]
coordinators = ["100", "200"]
enforce = true

[logging]
level = "DEBUG"
format = "json"

[shell]
actor = " 100 "
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "work.db"), cfg.Database.Path)
	assert.False(t, cfg.Database.Lock)
	assert.Equal(t, filepath.Join(dir, "graph.yaml"), cfg.Stages.GraphFile)
	assert.Equal(t, map[string]string{"translate": "✍️ Переклад"}, cfg.Stages.Labels)
	assert.Equal(t, []string{"100", "200"}, cfg.Access.Coordinators)
	assert.True(t, cfg.Access.Enforce)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "100", cfg.Shell.Actor)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	t.Setenv("SCANFLOW_LOGGING_LEVEL", "warn")
	t.Setenv("SCANFLOW_ACCESS_ENFORCE", "true")
	t.Setenv(EnvDB, filepath.Join(dir, "env.db"))

	path := writeConfig(t, "[logging]\nlevel = \"debug\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Access.Enforce)
	assert.Equal(t, filepath.Join(dir, "env.db"), cfg.Database.Path)
}

func TestLoad_MemoryDatabaseIsNotExpanded(t *testing.T) {
	isolateEnv(t)
	t.Setenv(EnvDB, ":memory:")

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.Database.Path)
}

func TestLoad_InvalidValues(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, `
[logging]
level = "loud"
format = "xml"

[display]
collation = "not a tag!"

[stages.labels]
edit = " "
`)

	_, err := Load(path)
	require.Error(t, err)
	for _, want := range []string{"logging.level", "logging.format", "display.collation", "stages.labels.edit"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	isolateEnv(t)
	_, err := Load(writeConfig(t, "[logging\nlevel = 1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestWriteSample_RoundTrip(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	require.NoError(t, WriteSample(path, false))
	cfg, err := Load(path)
	require.NoError(t, err)

	want, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, want, cfg)

	err = WriteSample(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	require.NoError(t, WriteSample(path, true))
}

func TestManager_ReloadNotifiesCallbacks(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, "[access]\nenforce = false\n")

	m, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, path, m.Path())
	assert.False(t, m.Get().Access.Enforce)

	var seen []*Config
	m.OnChange(func(c *Config) { seen = append(seen, c) })

	require.NoError(t, os.WriteFile(path, []byte("[access]\nenforce = true\ncoordinators = [\"1\"]\n"), 0o644))
	require.NoError(t, m.Reload())
	require.Len(t, seen, 1)
	assert.True(t, seen[0].Access.Enforce)
	assert.True(t, m.Get().Access.Enforce)

	require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = \"loud\"\n"), 0o644))
	require.Error(t, m.Reload())
	assert.True(t, m.Get().Access.Enforce, "an invalid edit keeps the previous config")
	assert.Len(t, seen, 1)
}

func TestCollationTag(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "uk", cfg.CollationTag().String())

	cfg.Display.Collation = ""
	assert.Equal(t, language.Und, cfg.CollationTag())
}
