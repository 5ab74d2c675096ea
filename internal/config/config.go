// Package config loads peertrace server configuration from a TOML file with
// environment-variable overrides for deployment secrets.
//
// The default location is $XDG_CONFIG_HOME/peertrace/config.toml (falling
// back to ~/.config/peertrace/config.toml). A missing file is not an error;
// defaults apply.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Backend names for the cache section.
const (
	CacheBackendFile  = "file"
	CacheBackendRedis = "redis"
	CacheBackendNone  = "none"
)

// Store names for the server section.
const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
)

// Config is the full peertrace configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Cache  CacheConfig  `toml:"cache"`
	Redis  RedisConfig  `toml:"redis"`
	Mongo  MongoConfig  `toml:"mongo"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen string `toml:"listen"` // address for http.ListenAndServe
	Store  string `toml:"store"`  // report store backend: memory or mongo
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Backend string `toml:"backend"` // file, redis, or none
	Dir     string `toml:"dir"`     // file backend directory (empty = XDG cache dir)
}

// RedisConfig configures the Redis cache backend.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// MongoConfig configures the MongoDB report store.
type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{Listen: ":8080", Store: StoreMemory},
		Cache:  CacheConfig{Backend: CacheBackendFile},
		Redis:  RedisConfig{Addr: "localhost:6379"},
		Mongo:  MongoConfig{URI: "mongodb://localhost:27017", Database: "peertrace"},
	}
}

// Load reads configuration from path. An empty path uses the default
// location; a missing file at the default location yields Default().
// Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return cfg, err
		}
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			applyEnv(&cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyEnv(&cfg)
	return cfg, cfg.validate()
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "peertrace", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "peertrace", "config.toml"), nil
}

// applyEnv overlays deployment secrets and endpoints from the environment.
// Environment values win over file values so containerized deployments can
// share one config file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("PEERTRACE_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("PEERTRACE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PEERTRACE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("PEERTRACE_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("PEERTRACE_MONGO_URI"); v != "" {
		cfg.Mongo.URI = v
	}
}

func (c Config) validate() error {
	switch c.Cache.Backend {
	case CacheBackendFile, CacheBackendRedis, CacheBackendNone:
	default:
		return fmt.Errorf("unknown cache backend: %s", c.Cache.Backend)
	}
	switch c.Server.Store {
	case StoreMemory, StoreMongo:
	default:
		return fmt.Errorf("unknown report store: %s", c.Server.Store)
	}
	return nil
}
