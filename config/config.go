package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"amplie/internal/adapter/chroma"
)

const (
	BackendChroma = "chroma"
	BackendMemory = "memory"
)

// Config holds all configuration for amplie.
type Config struct {
	Chroma   ChromaConfig   `yaml:"chroma"`
	Retrieve RetrieveConfig `yaml:"retrieve"`
	Embed    EmbedConfig    `yaml:"embed"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ChromaConfig holds vector store connection settings.
type ChromaConfig struct {
	Backend    string        `yaml:"backend"` // "chroma" or "memory" (in-process, nothing persisted)
	URL        string        `yaml:"url"`
	APIKeyEnv  string        `yaml:"api_key_env"` // Environment variable holding the bearer token
	Timeout    time.Duration `yaml:"timeout"`
	APIVersion string        `yaml:"api_version"` // "v2" tries every shape, "v1" only the oldest
	Tenant     string        `yaml:"tenant"`
	Database   string        `yaml:"database"`
	Collection string        `yaml:"collection"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK      int           `yaml:"top_k"`
	MaxK      int           `yaml:"max_k"`
	CacheSize int           `yaml:"cache_size"` // 0 disables the query cache
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// EmbedConfig controls how the catalog is written to the vector store.
type EmbedConfig struct {
	BatchSize int      `yaml:"batch_size"`
	Includes  []string `yaml:"includes"`
	Excludes  []string `yaml:"excludes"`
}

type CatalogConfig struct {
	Path string `yaml:"path"` // relative paths resolve against the root directory
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chroma: ChromaConfig{
			Backend:    BackendChroma,
			APIKeyEnv:  "CHROMA_KEY",
			Timeout:    chroma.DefaultTimeout,
			APIVersion: "v2",
			Tenant:     chroma.DefaultTenant,
			Database:   chroma.DefaultDatabase,
			Collection: "amplie_tracks_v1",
		},
		Retrieve: RetrieveConfig{
			TopK:      5,
			MaxK:      chroma.MaxK,
			CacheSize: 128,
			CacheTTL:  5 * time.Minute,
		},
		Embed: EmbedConfig{
			BatchSize: 100,
			Includes:  []string{"**/*.json", "**/*.yaml", "**/*.yml"},
			Excludes:  []string{"**/node_modules/**", "**/.git/**", "**/.amplie/**"},
		},
		Catalog: CatalogConfig{
			Path: filepath.Join(".amplie", "catalog.db"),
		},
		Server: ServerConfig{
			Addr: ":3000",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnv()
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for amplie.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "amplie.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".amplie", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overlays the CHROMA_* deployment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("CHROMA_URL"); v != "" {
		c.Chroma.URL = v
	}
	if v := os.Getenv("CHROMA_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			c.Chroma.Timeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("CHROMA_API_VERSION"); v != "" {
		c.Chroma.APIVersion = v
	}
	if v := os.Getenv("CHROMA_TENANT"); v != "" {
		c.Chroma.Tenant = v
	}
	if v := os.Getenv("CHROMA_DATABASE"); v != "" {
		c.Chroma.Database = v
	}
}

// ChromaClientConfig resolves the client settings, reading the API key from
// the configured environment variable.
func (c *Config) ChromaClientConfig() (chroma.Config, error) {
	if c.Chroma.URL == "" {
		return chroma.Config{}, errors.New("chroma url is required (set chroma.url or CHROMA_URL)")
	}
	var key string
	if c.Chroma.APIKeyEnv != "" {
		key = os.Getenv(c.Chroma.APIKeyEnv)
	}
	return chroma.Config{
		BaseURL:    c.Chroma.URL,
		APIKey:     key,
		Timeout:    c.Chroma.Timeout,
		APIVersion: c.Chroma.APIVersion,
		Tenant:     c.Chroma.Tenant,
		Database:   c.Chroma.Database,
	}, nil
}

// CatalogPath returns the catalog database path for the given root directory.
func (c *Config) CatalogPath(root string) string {
	if filepath.IsAbs(c.Catalog.Path) {
		return c.Catalog.Path
	}
	return filepath.Join(root, c.Catalog.Path)
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// NewLogger builds a slog.Logger writing to w at the configured level.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(l.Level)}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
