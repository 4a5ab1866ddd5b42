// Package config loads netlens settings from a TOML file.
//
// The file lives at $XDG_CONFIG_HOME/netlens/config.toml (default
// ~/.config/netlens/config.toml). A missing file yields [Default]. Keys the
// file sets override the defaults; everything else keeps its default value.
//
//	[api]
//	base_url = "http://localhost:8000"
//	algorithm = "louvain"
//	attempts = 1            # > 1 retries transient failures
//
//	[cache]
//	backend = "redis"        # file | redis | none
//	redis_addr = "localhost:6379"
//	ttl = "24h"
//
//	[store]
//	backend = "mongo"        # file | memory | mongo
//	mongo_uri = "mongodb://localhost:27017"
//
//	[server]
//	addr = ":8080"
//
//	[customize]
//	color_by = "community"
//	size_by = "messages"
//
// The environment variables NETLENS_API_URL, NETLENS_REDIS_ADDR and
// NETLENS_MONGO_URI override the file.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/netlens/pkg/customize"
	"github.com/matzehuels/netlens/pkg/errors"
)

// AppName names the config and cache directories.
const AppName = "netlens"

// Environment overrides.
const (
	EnvAPIURL    = "NETLENS_API_URL"
	EnvRedisAddr = "NETLENS_REDIS_ADDR"
	EnvMongoURI  = "NETLENS_MONGO_URI"
)

// Backend names.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Config is the full configuration.
type Config struct {
	API       API                `toml:"api"`
	Cache     Cache              `toml:"cache"`
	Store     Store              `toml:"store"`
	Server    Server             `toml:"server"`
	Customize customize.Settings `toml:"customize"`
}

// API locates the community detection service. An empty BaseURL selects
// in-process detection.
type API struct {
	BaseURL   string   `toml:"base_url"`
	Algorithm string   `toml:"algorithm"`
	Timeout   Duration `toml:"timeout"`
	// Attempts is how many times a service call is tried in total. The
	// default of 1 never retries.
	Attempts int `toml:"attempts"`
}

// Cache configures the detection cache.
type Cache struct {
	Backend       string   `toml:"backend"`
	Dir           string   `toml:"dir"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
	TTL           Duration `toml:"ttl"`
}

// Store configures where research records live.
type Store struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
}

// Server configures `netlens serve`.
type Server struct {
	Addr string `toml:"addr"`
	// SessionTTL drops explorer sessions idle for longer.
	SessionTTL  Duration `toml:"session_ttl"`
	MaxSessions int      `toml:"max_sessions"`
}

// Duration is a time.Duration written as a string such as "24h".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText writes the duration in Go syntax.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		API: API{
			Algorithm: errors.AlgorithmLouvain,
			Timeout:   Duration{2 * time.Minute},
			Attempts:  1,
		},
		Cache: Cache{
			Backend: BackendFile,
			TTL:     Duration{24 * time.Hour},
		},
		Store: Store{
			Backend:       BackendFile,
			MongoDatabase: AppName,
		},
		Server: Server{
			Addr:        ":8080",
			SessionTTL:  Duration{30 * time.Minute},
			MaxSessions: 1000,
		},
		Customize: customize.DefaultSettings(),
	}
}

// Load reads the file at path, or DefaultPath when path is empty, applies
// environment overrides and validates the result. Unknown keys are an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	switch {
	case err == nil:
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, errors.New(errors.ErrCodeInvalidInput, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	case os.IsNotExist(err) && !explicit:
		cfg = Default()
	default:
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "load config %s", path)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Cache.RedisAddr = v
		c.Cache.Backend = BackendRedis
	}
	if v := os.Getenv(EnvMongoURI); v != "" {
		c.Store.MongoURI = v
		c.Store.Backend = BackendMongo
	}
}

// Validate checks backend names, the API URL, the algorithm and the
// customization settings.
func (c *Config) Validate() error {
	if c.API.BaseURL != "" {
		if err := errors.ValidateURL(c.API.BaseURL); err != nil {
			return err
		}
	}
	if c.API.Attempts < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "api: attempts must be at least 1")
	}
	if c.API.Algorithm != "" {
		if err := errors.ValidateAlgorithm(c.API.Algorithm); err != nil {
			return err
		}
	}
	if c.Server.SessionTTL.Duration <= 0 || c.Server.MaxSessions < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "server: session_ttl and max_sessions must be positive")
	}
	switch c.Cache.Backend {
	case BackendFile, BackendNone:
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidInput, "cache: redis backend needs redis_addr")
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "cache: unknown backend %q", c.Cache.Backend)
	}
	switch c.Store.Backend {
	case BackendFile, BackendMemory:
	case BackendMongo:
		if c.Store.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidInput, "store: mongo backend needs mongo_uri")
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "store: unknown backend %q", c.Store.Backend)
	}
	if err := c.Customize.Validate(); err != nil {
		return err
	}
	return nil
}

// Write encodes c as TOML.
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// =============================================================================
// Paths
// =============================================================================

// DefaultPath returns the config file path using XDG standard
// (~/.config/netlens/config.toml).
func DefaultPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, AppName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", AppName, "config.toml"), nil
}

// CacheDir returns the cache directory using XDG standard (~/.cache/netlens/).
func CacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}

// CacheDirectory returns the configured cache directory or CacheDir.
func (c *Config) CacheDirectory() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	return CacheDir()
}
