// Package config loads linkhive's TOML configuration in layers:
// compiled-in defaults, merged with one or more TOML files in order,
// then environment variable overrides, then CLI flag overrides
// (highest priority).
package config

import (
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Config is the root configuration tree: database resolution, cache
// TTL, server/CORS, crawler tuning, embedder provider selection, and
// logging.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Cache    CacheConfig    `toml:"cache"`
	Server   ServerConfig   `toml:"server"`
	Crawler  CrawlerConfig  `toml:"crawler"`
	Embedder EmbedderConfig `toml:"embedder"`
	Logging  LoggingConfig  `toml:"logging"`
}

// DatabaseConfig resolves to either a DSN (URL wins if set) or a plain
// file path: URL form takes priority over discrete fields, and an
// empty config is unconfigured rather than defaulted to a path on
// disk.
type DatabaseConfig struct {
	URL  string `toml:"url"`
	Path string `toml:"path"`
}

// Resolved returns the sqlite DSN/path to open, and whether the
// database section carries enough information to open anything.
func (d DatabaseConfig) Resolved() (string, bool) {
	if d.URL != "" {
		return d.URL, true
	}
	if d.Path != "" {
		return d.Path, true
	}
	return "", false
}

type CacheConfig struct {
	TTLSeconds int `toml:"ttl_seconds"`
}

type ServerConfig struct {
	Host  string `toml:"host"`
	Port  int    `toml:"port"`
	Debug bool   `toml:"debug"`
}

type CrawlerConfig struct {
	UserAgent                string `toml:"user_agent"`
	NavigationTimeoutSeconds int    `toml:"navigation_timeout_seconds"`
	SettleDelayMs            int    `toml:"settle_delay_ms"`
}

// EmbedderConfig selects between the hosted HTTP embedding provider
// and the deterministic fake used for tests and offline operation.
type EmbedderConfig struct {
	Provider      string `toml:"provider"` // "hosted" or "fake"
	Dimension     int    `toml:"dimension"`
	MaxInputChars int    `toml:"max_input_chars"`
	BaseURL       string `toml:"base_url"`
	Model         string `toml:"model"`
}

type LoggingConfig struct {
	Level     string   `toml:"level"`
	Output    []string `toml:"output"` // "console", "file"
	Directory string   `toml:"directory"`
}

// Default returns the compiled-in baseline every load starts from.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{},
		Cache: CacheConfig{
			TTLSeconds: 3600,
		},
		Server: ServerConfig{
			Host:  "127.0.0.1",
			Port:  8000,
			Debug: false,
		},
		Crawler: CrawlerConfig{
			UserAgent:                "linkhive-crawler/1.0 (+https://github.com/tarslinks/linkhive)",
			NavigationTimeoutSeconds: 30,
			SettleDelayMs:            1000,
		},
		Embedder: EmbedderConfig{
			Provider:      "fake",
			Dimension:     1536,
			MaxInputChars: 30000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"console"},
		},
	}
}

// discoveryPaths lists where Load looks for a config file when none is
// given explicitly, in priority order.
var discoveryPaths = []string{
	"./linkhive.toml",
	"./deployments/local/linkhive.toml",
}

// Load builds a Config from defaults, merged with each of paths in
// order (later files override earlier ones), then environment
// variable overrides. If paths is empty, Load probes discoveryPaths
// and silently skips any that do not exist.
func Load(paths ...string) (*Config, error) {
	cfg := Default()

	if len(paths) == 0 {
		for _, p := range discoveryPaths {
			if _, err := os.Stat(p); err == nil {
				paths = append(paths, p)
			}
		}
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LINKHIVE_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("LINKHIVE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("LINKHIVE_CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.TTLSeconds = n
		}
	}
	if v := os.Getenv("LINKHIVE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("LINKHIVE_SERVER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("LINKHIVE_SERVER_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Server.Debug = b
		}
	}
	if v := os.Getenv("LINKHIVE_CRAWLER_USER_AGENT"); v != "" {
		cfg.Crawler.UserAgent = v
	}
	if v := os.Getenv("LINKHIVE_EMBEDDER_PROVIDER"); v != "" {
		cfg.Embedder.Provider = v
	}
	if v := os.Getenv("LINKHIVE_EMBEDDER_BASE_URL"); v != "" {
		cfg.Embedder.BaseURL = v
	}
	if v := os.Getenv("LINKHIVE_EMBEDDER_MODEL"); v != "" {
		cfg.Embedder.Model = v
	}
	if v := os.Getenv("LINKHIVE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// ApplyFlagOverrides applies command-line flag overrides, highest
// priority per the documented load order.
func ApplyFlagOverrides(cfg *Config, host string, port int) {
	if host != "" {
		cfg.Server.Host = host
	}
	if port > 0 {
		cfg.Server.Port = port
	}
}
