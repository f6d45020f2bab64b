package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) Config {
	t.Helper()
	var cfg Config
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs, &cfg)
	require.NoError(t, fs.Parse(args))
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := parse(t)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "dev", cfg.DefaultLobby)
	assert.Equal(t, 4, cfg.MaxPlayers)
	assert.Equal(t, 6, cfg.BoardCols)
	assert.Equal(t, 5, cfg.BoardRows)
	assert.NoError(t, cfg.Validate())
}

func TestEnvAndFlags(t *testing.T) {
	t.Setenv("JEOPARDY_MAX_PLAYERS", "6")
	t.Setenv("JEOPARDY_DEFAULT_LOBBY", "friday")

	cfg := parse(t)
	assert.Equal(t, 6, cfg.MaxPlayers)
	assert.Equal(t, "friday", cfg.DefaultLobby)

	cfg = parse(t, "--max-players=3", "--board_cols=4")
	assert.Equal(t, 3, cfg.MaxPlayers, "flags win over env")
	assert.Equal(t, 4, cfg.BoardCols)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"postgres without url", func(c *Config) { c.Store = StorePostgres }, false},
		{"postgres with url", func(c *Config) {
			c.Store = StorePostgres
			c.DatabaseURL = "postgres://localhost/db"
		}, true},
		{"unknown store", func(c *Config) { c.Store = "redis" }, false},
		{"no players", func(c *Config) { c.MaxPlayers = 0 }, false},
		{"empty board", func(c *Config) { c.BoardRows = 0 }, false},
		{"relative public url", func(c *Config) { c.PublicURL = "/play" }, false},
		{"public url", func(c *Config) { c.PublicURL = "https://trivia.example.com" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := parse(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("JEOPARDY_DOTENV_PROBE=yes\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("JEOPARDY_DOTENV_PROBE") })

	require.NoError(t, LoadDotenv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "yes", os.Getenv("JEOPARDY_DOTENV_PROBE"))
}
