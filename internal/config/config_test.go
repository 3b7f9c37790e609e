package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "none", cfg.Cache.Policy)
	assert.Equal(t, 5*time.Minute, cfg.StreamTimeout())
	assert.Equal(t, 30*time.Second, cfg.CatalogTimeout())
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 5*time.Minute, cfg.PassTimeout())
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(APIKeyEnv, "sk-test")
	chdir(t, t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 9090

[cache]
policy = "lru"
max_size = 500

[deck]
path = "decks/burn.yaml"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "lru", cfg.Cache.Policy)
	assert.Equal(t, 500, cfg.Cache.MaxSize)
	assert.Equal(t, "decks/burn.yaml", cfg.Deck.Path)
	assert.True(t, cfg.Deck.Watch)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "strategist.db", filepath.Base(cfg.Storage.Path))
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(APIKeyEnv, "")
	chdir(t, t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server, cfg.Server)
	assert.Empty(t, cfg.LLM.APIKey)
}

func TestLoad_DotEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(APIKeyEnv, "")
	require.NoError(t, os.Unsetenv(APIKeyEnv))
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ANTHROPIC_API_KEY=sk-from-dotenv\n"), 0o600))

	cfg, err := Load(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "sk-from-dotenv", cfg.LLM.APIKey)
}

func TestLoad_InvalidTOML(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport = "), 0o600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config file")
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(APIKeyEnv, "sk-secret")
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Server.Port = 7000
	cfg.LLM.APIKey = "sk-secret"
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-secret")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, loaded.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad duration", func(c *Config) { c.LLM.StreamTimeout = "soon" }, "llm.stream_timeout"},
		{"negative duration", func(c *Config) { c.Resolver.PassTimeout = "-1s" }, "cannot be negative"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"unknown policy", func(c *Config) { c.Cache.Policy = "arc" }, "unknown cache policy"},
		{"lru without size", func(c *Config) { c.Cache.Policy = "lru" }, "positive max size"},
		{"negative history", func(c *Config) { c.Storage.HistoryPerKind = -1 }, "history per kind"},
		{"negative rate", func(c *Config) { c.Server.LLMRequestsPerMinute = -1 }, "requests per minute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
