package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/unhoist/unhoist/pkg/metastore"
)

// Default cache limits. One metadata record is a few KB, so 50 MiB covers
// tens of thousands of packages.
const (
	defaultCacheMaxAge   = 24 * time.Hour
	defaultCacheMaxBytes = 50 << 20
)

// duration wraps time.Duration so TOML values like "24h" decode naturally.
type duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// config is the on-disk configuration, read from
// ~/.config/unhoist/config.toml when present.
type config struct {
	Cache cacheConfig `toml:"cache"`
	Redis redisConfig `toml:"redis"`
	Mongo mongoConfig `toml:"mongo"`
}

type cacheConfig struct {
	// Backend selects the metadata store: file, redis, mongo or none.
	Backend string `toml:"backend"`
	// Dir is the file backend's directory. Empty means ~/.cache/unhoist.
	Dir string `toml:"dir"`
	// MaxAge is the entry time-to-live, e.g. "24h". Zero disables expiry.
	MaxAge duration `toml:"max_age"`
	// MaxBytes bounds the file backend's total size. Zero disables the bound.
	MaxBytes int64 `toml:"max_bytes"`
}

type redisConfig struct {
	Addr string `toml:"addr"`
}

type mongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// defaultConfig returns the configuration used when no file exists.
func defaultConfig() config {
	return config{
		Cache: cacheConfig{
			Backend:  "file",
			MaxAge:   duration(defaultCacheMaxAge),
			MaxBytes: defaultCacheMaxBytes,
		},
		Redis: redisConfig{Addr: "localhost:6379"},
		Mongo: mongoConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "unhoist",
			Collection: "metadata",
		},
	}
}

// configPath returns the config file location.
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "unhoist", "config.toml"), nil
}

// loadConfig reads path, or the default location when path is empty. A
// missing file is not an error: defaults apply.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	if path == "" {
		p, err := configPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// cacheDir resolves the file backend's directory.
func cacheDir(cfg config) (string, error) {
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "unhoist"), nil
}

// openStore builds the metadata store selected by the configuration. The
// store is an explicit collaborator: commands construct it here and inject it
// into the fetcher, never resolving an ambient default at first use.
func openStore(ctx context.Context, cfg config) (metastore.Store, error) {
	switch cfg.Cache.Backend {
	case "", "file":
		dir, err := cacheDir(cfg)
		if err != nil {
			return nil, err
		}
		return metastore.NewFileStore(dir, time.Duration(cfg.Cache.MaxAge), cfg.Cache.MaxBytes)
	case "redis":
		return metastore.NewRedisStore(ctx, cfg.Redis.Addr, time.Duration(cfg.Cache.MaxAge))
	case "mongo":
		return metastore.NewMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection,
			time.Duration(cfg.Cache.MaxAge), cfg.Cache.MaxBytes)
	case "none":
		return metastore.NewNullStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q (must be one of: file, redis, mongo, none)", cfg.Cache.Backend)
	}
}
