package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("engine: postgres\n"))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Engine)
	assert.Equal(t, "steam_games", cfg.Table)
	assert.Equal(t, "results.csv", cfg.ResultLog)
	assert.Equal(t, 1, cfg.Runs)
	assert.True(t, cfg.TruncateBeforeRun)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"unknown engine", func(c *Config) { c.Engine = "riak" }},
		{"table injection", func(c *Config) { c.Table = "games; drop table x" }},
		{"zero runs", func(c *Config) { c.Runs = 0 }},
		{"no result log", func(c *Config) { c.ResultLog = "" }},
		{"sqlite without path", func(c *Config) { c.Engine = "sqlite" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mut(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_EnvOverridesYaml(t *testing.T) {
	path := writeConfig(t, `
engine: mysql
connection:
  host: db.internal
  user: bench
  password: from-yaml
table: games
runs: 3
`)
	t.Setenv("BENCH_DB_PASSWORD", "from-env")
	t.Setenv("BENCH_DB_PORT", "3307")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Connection.Host)
	assert.Equal(t, "bench", cfg.Connection.User)
	assert.Equal(t, "from-env", cfg.Connection.Password)
	assert.Equal(t, 3307, cfg.Connection.Port)
	assert.Equal(t, "games", cfg.Table)
	assert.Equal(t, 3, cfg.Runs)
	assert.NotEmpty(t, cfg.FileData)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "engine: [unterminated"))
	assert.Error(t, err)
}
