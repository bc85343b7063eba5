// Package config loads and validates depscout configuration.
//
// Configuration is resolved in three layers, later layers overriding earlier:
//  1. Built-in defaults (Default)
//  2. TOML config file (~/.config/depscout/config.toml or --config)
//  3. DEPSCOUT_* environment variables
//
// # Example config file
//
//	[registry]
//	url = "https://api.nuget.org/v3/index.json"
//	username = ""
//	password = ""
//
//	[cache]
//	backend = "sqlite"
//	path = "~/.cache/depscout/depscout.db"
//	ttl_minutes = 1440
//
//	[sweep]
//	interval_minutes = 5
//
//	[analyze]
//	workers = 8
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/depscout/depscout/pkg/errors"
)

// appName is used for default directory locations.
const appName = "depscout"

// Default values applied before file and environment overrides.
const (
	// DefaultRegistryURL is the public NuGet V3 service index.
	DefaultRegistryURL = "https://api.nuget.org/v3/index.json"

	// DefaultTTLMinutes is how long cached registry responses stay fresh.
	DefaultTTLMinutes = 24 * 60

	// DefaultSweepMinutes is how often expired cache entries are evicted.
	DefaultSweepMinutes = 5

	// DefaultWorkers bounds concurrent registry lookups during analysis.
	DefaultWorkers = 8
)

// Registry configures access to the package registry.
type Registry struct {
	URL      string `toml:"url"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// Cache configures the cache store backend.
type Cache struct {
	// Backend selects the store implementation: sqlite, memory, redis, mongo, off.
	Backend string `toml:"backend"`

	// Path is the SQLite database file (sqlite backend only).
	Path string `toml:"path"`

	// Addr is the server address (redis and mongo backends).
	Addr string `toml:"addr"`

	// TTLMinutes is the freshness window for cached entries.
	TTLMinutes int `toml:"ttl_minutes"`
}

// Sweep configures the background eviction loop.
type Sweep struct {
	IntervalMinutes int `toml:"interval_minutes"`
}

// Analyze configures dependency analysis.
type Analyze struct {
	// Workers bounds concurrent registry lookups per analysis run.
	Workers int `toml:"workers"`
}

// Config is the complete depscout configuration.
type Config struct {
	Registry Registry `toml:"registry"`
	Cache    Cache    `toml:"cache"`
	Sweep    Sweep    `toml:"sweep"`
	Analyze  Analyze  `toml:"analyze"`
}

// TTL returns the cache freshness window as a duration.
func (c *Config) TTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

// SweepInterval returns the eviction cadence as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Sweep.IntervalMinutes) * time.Minute
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Registry: Registry{
			URL: DefaultRegistryURL,
		},
		Cache: Cache{
			Backend:    "sqlite",
			TTLMinutes: DefaultTTLMinutes,
		},
		Sweep: Sweep{
			IntervalMinutes: DefaultSweepMinutes,
		},
		Analyze: Analyze{
			Workers: DefaultWorkers,
		},
	}
}

// Load resolves the configuration from defaults, an optional TOML file,
// and environment overrides. An empty path means the default location;
// a missing file at the default location is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid config file %s", path)
			}
		case os.IsNotExist(err) && !explicit:
			// Default location absent, fine.
		default:
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "cannot read config file %s", path)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Registry.URL == "" {
		return errors.New(errors.ErrCodeInvalidInput, "registry url must not be empty")
	}
	switch c.Cache.Backend {
	case "sqlite", "memory", "redis", "mongo", "off":
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q (want sqlite, memory, redis, mongo or off)", c.Cache.Backend)
	}
	if c.Cache.TTLMinutes <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "cache ttl_minutes must be positive, got %d", c.Cache.TTLMinutes)
	}
	if c.Sweep.IntervalMinutes <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "sweep interval_minutes must be positive, got %d", c.Sweep.IntervalMinutes)
	}
	if c.Analyze.Workers <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "analyze workers must be positive, got %d", c.Analyze.Workers)
	}
	return nil
}

// applyEnv overrides config fields from DEPSCOUT_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("DEPSCOUT_REGISTRY_URL"); v != "" {
		cfg.Registry.URL = v
	}
	if v := os.Getenv("DEPSCOUT_REGISTRY_USERNAME"); v != "" {
		cfg.Registry.Username = v
	}
	if v := os.Getenv("DEPSCOUT_REGISTRY_PASSWORD"); v != "" {
		cfg.Registry.Password = v
	}
	if v := os.Getenv("DEPSCOUT_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("DEPSCOUT_CACHE_PATH"); v != "" {
		cfg.Cache.Path = v
	}
	if v := os.Getenv("DEPSCOUT_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("DEPSCOUT_CACHE_TTL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.TTLMinutes = n
		}
	}
	if v := os.Getenv("DEPSCOUT_SWEEP_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sweep.IntervalMinutes = n
		}
	}
	if v := os.Getenv("DEPSCOUT_ANALYZE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analyze.Workers = n
		}
	}
}

// DefaultPath returns the default config file location
// (~/.config/depscout/config.toml), or "" if home cannot be resolved.
func DefaultPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName, "config.toml")
}

// DefaultCachePath returns the default SQLite database location
// (~/.cache/depscout/depscout.db) following the XDG convention.
func DefaultCachePath() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName, appName+".db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName, appName+".db"), nil
}
