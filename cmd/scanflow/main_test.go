package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/scanflow/internal/config"
	"github.com/alexanderramin/scanflow/internal/domain"
)

func TestConfigPath(t *testing.T) {
	t.Setenv(envConfig, "/env/config.toml")

	assert.Equal(t, "/a.toml", configPath([]string{"--config", "/a.toml", "report"}))
	assert.Equal(t, "/b.toml", configPath([]string{"report", "--config=/b.toml"}))
	assert.Equal(t, "/env/config.toml", configPath([]string{"report"}))
	assert.Equal(t, "/env/config.toml", configPath([]string{"--", "--config", "/c.toml"}))
}

func TestLoadGraph_DefaultWithLabels(t *testing.T) {
	graph, err := loadGraph(config.Stages{Labels: map[string]string{"translate": "Переклад"}})
	require.NoError(t, err)
	assert.Equal(t, "Переклад", graph.Label(domain.StageTranslate))
	assert.Equal(t, "Clean", graph.Label(domain.StageClean))
}

func TestLoadGraph_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stages.yaml")
	content := `stages:
  - stage: draft
    entry: true
    next: final
  - stage: final
    terminal: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	graph, err := loadGraph(config.Stages{GraphFile: path})
	require.NoError(t, err)
	assert.Equal(t, []domain.Stage{"draft", "final"}, graph.Stages())

	_, err = loadGraph(config.Stages{GraphFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestRun_ReportOnFreshDatabase(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv(config.EnvDB, filepath.Join(dir, "scanflow.db"))

	require.NoError(t, run([]string{"report", "--format", "csv"}))
	_, err := os.Stat(filepath.Join(dir, "scanflow.db"))
	assert.NoError(t, err)
}
