// Package config loads the strategist's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// APIKeyEnv is the environment variable holding the Anthropic API key.
const APIKeyEnv = "ANTHROPIC_API_KEY"

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Cache    CacheConfig    `toml:"cache"`
	LLM      LLMConfig      `toml:"llm"`
	Deck     DeckConfig     `toml:"deck"`
	Resolver ResolverConfig `toml:"resolver"`
	Storage  StorageConfig  `toml:"storage"`
	Prompts  PromptsConfig  `toml:"prompts"`
	App      AppConfig      `toml:"app"`
}

// ServerConfig contains REST API settings.
type ServerConfig struct {
	Host                 string   `toml:"host"`
	Port                 int      `toml:"port"`
	AllowedOrigins       []string `toml:"allowed_origins"`
	RequestTimeout       string   `toml:"request_timeout"`         // Non-streaming requests (e.g., "60s")
	LLMRequestsPerMinute int      `toml:"llm_requests_per_minute"` // 0 disables the throttle
	LLMBurst             int      `toml:"llm_burst"`
}

// CatalogConfig contains card catalog settings.
type CatalogConfig struct {
	BaseURL        string `toml:"base_url"`
	UserAgent      string `toml:"user_agent"`
	RequestTimeout string `toml:"request_timeout"`
}

// CacheConfig contains card cache settings.
type CacheConfig struct {
	Policy     string `toml:"policy"`     // "none" (unbounded) or "lru"
	MaxSize    int    `toml:"max_size"`   // Entries kept by the lru policy
	Persistent bool   `toml:"persistent"` // Back the cache with the database
}

// LLMConfig contains language model settings. The API key is never read
// from the file.
type LLMConfig struct {
	BaseURL       string `toml:"base_url"`
	Model         string `toml:"model"`
	StreamTimeout string `toml:"stream_timeout"`
	APIKey        string `toml:"-"`
}

// DeckConfig locates the deck definition.
type DeckConfig struct {
	Path  string `toml:"path"`  // deck.json or deck.yaml
	Watch bool   `toml:"watch"` // Reload on change
}

// ResolverConfig contains resolution pass settings.
type ResolverConfig struct {
	PassTimeout string `toml:"pass_timeout"` // "0s" for no bound
}

// StorageConfig contains database settings.
type StorageConfig struct {
	Enabled        bool   `toml:"enabled"`
	Path           string `toml:"path"`
	HistoryPerKind int    `toml:"history_per_kind"`
}

// PromptsConfig contains prompt template settings.
type PromptsConfig struct {
	Dir string `toml:"dir"` // Optional <kind>.txt overrides
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool `toml:"debug_mode"` // Enable debug logging
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                 "127.0.0.1",
			Port:                 8080,
			AllowedOrigins:       []string{"http://localhost:*", "http://127.0.0.1:*", "https://localhost:*"},
			RequestTimeout:       "60s",
			LLMRequestsPerMinute: 20,
			LLMBurst:             5,
		},
		Catalog: CatalogConfig{
			BaseURL:        "https://api.scryfall.com",
			UserAgent:      "DeckStrategist/1.0",
			RequestTimeout: "30s",
		},
		Cache: CacheConfig{
			Policy:     "none",
			MaxSize:    0,
			Persistent: true,
		},
		LLM: LLMConfig{
			BaseURL:       "https://api.anthropic.com/v1",
			Model:         "claude-sonnet-4-20250514",
			StreamTimeout: "5m",
		},
		Deck: DeckConfig{
			Path:  "deck.json",
			Watch: true,
		},
		Resolver: ResolverConfig{
			PassTimeout: "5m",
		},
		Storage: StorageConfig{
			Enabled:        true,
			Path:           "",
			HistoryPerKind: 20,
		},
		App: AppConfig{
			DebugMode: false,
		},
	}
}

// Dir returns the configuration directory, creating it if needed.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".deck-strategist")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	return configDir, nil
}

// DefaultPath returns the path to the configuration file.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the configuration at path, or at DefaultPath when path is
// empty. Keys missing from the file keep their defaults; a missing file
// yields the defaults. The API key comes from the environment, after a
// .env file in the working directory is applied.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	config.LLM.APIKey = os.Getenv(APIKeyEnv)

	if config.Storage.Path == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		config.Storage.Path = filepath.Join(dir, "strategist.db")
	}

	return config, nil
}

// Save writes the configuration to path, or to DefaultPath when path is empty.
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return err
		}
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	durations := map[string]string{
		"server.request_timeout":  c.Server.RequestTimeout,
		"catalog.request_timeout": c.Catalog.RequestTimeout,
		"llm.stream_timeout":      c.LLM.StreamTimeout,
		"resolver.pass_timeout":   c.Resolver.PassTimeout,
	}
	for key, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		if d < 0 {
			return fmt.Errorf("%s cannot be negative: %s", key, value)
		}
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.LLMRequestsPerMinute < 0 {
		return fmt.Errorf("llm requests per minute cannot be negative: %d", c.Server.LLMRequestsPerMinute)
	}

	switch c.Cache.Policy {
	case "", "none":
	case "lru":
		if c.Cache.MaxSize <= 0 {
			return fmt.Errorf("lru cache needs a positive max size, got %d", c.Cache.MaxSize)
		}
	default:
		return fmt.Errorf("unknown cache policy %q", c.Cache.Policy)
	}
	if c.Cache.MaxSize < 0 {
		return fmt.Errorf("cache max size cannot be negative: %d", c.Cache.MaxSize)
	}

	if c.Storage.HistoryPerKind < 0 {
		return fmt.Errorf("history per kind cannot be negative: %d", c.Storage.HistoryPerKind)
	}

	return nil
}

// RequestTimeout returns the server request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return mustDuration(c.Server.RequestTimeout)
}

// CatalogTimeout returns the catalog request timeout as a duration.
func (c *Config) CatalogTimeout() time.Duration {
	return mustDuration(c.Catalog.RequestTimeout)
}

// StreamTimeout returns the LLM stream timeout as a duration.
func (c *Config) StreamTimeout() time.Duration {
	return mustDuration(c.LLM.StreamTimeout)
}

// PassTimeout returns the resolution pass timeout as a duration.
func (c *Config) PassTimeout() time.Duration {
	return mustDuration(c.Resolver.PassTimeout)
}

// mustDuration parses a duration already checked by Validate; invalid
// values read as zero.
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
