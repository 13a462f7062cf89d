package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Invalid drop policies, matching the reorder engine names.
const (
	InvalidDropRevert   = "revert"
	InvalidDropKeepLast = "keep-last"
)

// DefaultStorageKey is the key holding the board snapshot.
const DefaultStorageKey = "tasks"

// DefaultDevLogDir is the dev log directory, relative to the data directory.
const DefaultDevLogDir = "log"

type Config struct {
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
	Board   BoardConfig   `toml:"board"`
	UI      UIConfig      `toml:"ui"`
}

type StorageConfig struct {
	Backend   string `toml:"backend"`
	Path      string `toml:"path"`
	Key       string `toml:"key"`
	RedisAddr string `toml:"redis_addr"`
	RedisDB   int    `toml:"redis_db"`
	// RedisPassword is read from the environment only.
	RedisPassword string `toml:"-"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type BoardConfig struct {
	DefaultPriority string `toml:"default_priority"`
	InvalidDrop     string `toml:"invalid_drop"`
	ConfirmDelete   bool   `toml:"confirm_delete"`
}

type UIConfig struct {
	ShowHelp bool `toml:"show_help"`
}

func Default(dbPath string) Config {
	return Config{
		Storage: StorageConfig{
			Backend:   BackendSQLite,
			Path:      dbPath,
			Key:       DefaultStorageKey,
			RedisAddr: "127.0.0.1:6379",
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     DefaultDevLogDir,
			},
		},
		Board: BoardConfig{
			DefaultPriority: "medium",
			InvalidDrop:     InvalidDropRevert,
		},
		UI: UIConfig{
			ShowHelp: true,
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// normalize trims and lowercases enum-like fields in place.
func (c *Config) normalize() {
	c.Storage.Backend = strings.TrimSpace(strings.ToLower(c.Storage.Backend))
	c.Storage.Path = strings.TrimSpace(c.Storage.Path)
	c.Storage.Key = strings.TrimSpace(c.Storage.Key)
	c.Storage.RedisAddr = strings.TrimSpace(c.Storage.RedisAddr)
	c.Logging.Level = strings.TrimSpace(strings.ToLower(c.Logging.Level))
	c.Board.DefaultPriority = strings.TrimSpace(strings.ToLower(c.Board.DefaultPriority))
	c.Board.InvalidDrop = strings.TrimSpace(strings.ToLower(c.Board.InvalidDrop))
	if c.Board.DefaultPriority == "" {
		c.Board.DefaultPriority = "medium"
	}
	if c.Board.InvalidDrop == "" {
		c.Board.InvalidDrop = InvalidDropRevert
	}
}

func (c Config) Validate() error {
	switch strings.TrimSpace(strings.ToLower(c.Storage.Backend)) {
	case BackendSQLite:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return errors.New("storage.path is required for the sqlite backend")
		}
	case BackendRedis:
		if strings.TrimSpace(c.Storage.RedisAddr) == "" {
			return errors.New("storage.redis_addr is required for the redis backend")
		}
		if c.Storage.RedisDB < 0 {
			return fmt.Errorf("storage.redis_db must be >= 0, got %d", c.Storage.RedisDB)
		}
	default:
		return fmt.Errorf("invalid storage.backend: %q", c.Storage.Backend)
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		return errors.New("storage.key is required")
	}

	switch strings.TrimSpace(strings.ToLower(c.Logging.Level)) {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	switch strings.TrimSpace(strings.ToLower(c.Board.DefaultPriority)) {
	case "", "low", "medium", "high":
	default:
		return fmt.Errorf("invalid board.default_priority: %q", c.Board.DefaultPriority)
	}
	switch strings.TrimSpace(strings.ToLower(c.Board.InvalidDrop)) {
	case "", InvalidDropRevert, InvalidDropKeepLast:
	default:
		return fmt.Errorf("invalid board.invalid_drop: %q", c.Board.InvalidDrop)
	}

	return nil
}

// EnsureConfigDir creates the parent directory of path.
func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// WriteIfMissing writes cfg to path as TOML unless a file is already there.
// It reports whether a file was created.
func WriteIfMissing(path string, cfg Config) (bool, error) {
	if strings.TrimSpace(path) == "" {
		return false, errors.New("config path is required")
	}
	if err := cfg.Validate(); err != nil {
		return false, err
	}
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("encode toml: %w", err)
	}
	if err := EnsureConfigDir(path); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("create config: %w", err)
	}
	if _, err := f.Write(encoded); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("write config: %w", err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("close config: %w", err)
	}
	return true, nil
}
