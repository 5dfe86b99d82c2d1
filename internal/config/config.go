// Package config provides runtime configuration for the product service.
//
// Values come from built-in defaults, then an optional YAML or TOML file named
// by CONFIG_FILE, then environment variables. Later sources win.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"

	CacheRedis  = "redis"
	CacheMemory = "memory"
	CacheBolt   = "bolt"
)

// Duration is a time.Duration that decodes from strings such as "250ms" in
// both YAML and TOML files.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

func (d Duration) String() string { return time.Duration(d).String() }

type Config struct {
	Server ServerConfig `yaml:"server" toml:"server"`
	Store  StoreConfig  `yaml:"store" toml:"store"`
	Cache  CacheConfig  `yaml:"cache" toml:"cache"`
	Log    LogConfig    `yaml:"log" toml:"log"`
}

type ServerConfig struct {
	Port            string   `yaml:"port" toml:"port"`
	RequestTimeout  Duration `yaml:"request_timeout" toml:"request_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

type StoreConfig struct {
	Driver           string `yaml:"driver" toml:"driver"`
	PostgresHost     string `yaml:"postgres_host" toml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port" toml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user" toml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password" toml:"postgres_password"`
	PostgresDB       string `yaml:"postgres_db" toml:"postgres_db"`
	SQLitePath       string `yaml:"sqlite_path" toml:"sqlite_path"`
	AutoMigrate      bool   `yaml:"auto_migrate" toml:"auto_migrate"`
}

// PostgresDSN renders the connection URL for lib/pq.
func (s StoreConfig) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(s.PostgresUser, s.PostgresPassword),
		Host:     net.JoinHostPort(s.PostgresHost, s.PostgresPort),
		Path:     "/" + s.PostgresDB,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

type CacheConfig struct {
	Driver         string   `yaml:"driver" toml:"driver"`
	TTL            Duration `yaml:"ttl" toml:"ttl"`
	Timeout        Duration `yaml:"timeout" toml:"timeout"`
	RedisHost      string   `yaml:"redis_host" toml:"redis_host"`
	RedisPort      string   `yaml:"redis_port" toml:"redis_port"`
	RedisPassword  string   `yaml:"redis_password" toml:"redis_password"`
	RedisDB        int      `yaml:"redis_db" toml:"redis_db"`
	MemoryCapacity int      `yaml:"memory_capacity" toml:"memory_capacity"`
	BoltPath       string   `yaml:"bolt_path" toml:"bolt_path"`
}

func (c CacheConfig) RedisAddr() string {
	return net.JoinHostPort(c.RedisHost, c.RedisPort)
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	File   string `yaml:"file" toml:"file"`
}

func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(l.Level))
	return level, err
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			RequestTimeout:  Duration(5 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Store: StoreConfig{
			Driver:       StorePostgres,
			PostgresHost: "localhost",
			PostgresPort: "5432",
			PostgresUser: "postgres",
			PostgresDB:   "products",
			SQLitePath:   "products.db",
			AutoMigrate:  true,
		},
		Cache: CacheConfig{
			Driver:         CacheRedis,
			TTL:            Duration(time.Hour),
			Timeout:        Duration(250 * time.Millisecond),
			RedisHost:      "localhost",
			RedisPort:      "6379",
			MemoryCapacity: 10000,
			BoltPath:       "cache.bolt",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration and validates it.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, c)
	case ".toml":
		err = toml.Unmarshal(raw, c)
	default:
		return fmt.Errorf("config file %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error

	setenv(&c.Server.Port, "APP_PORT")
	errs = append(errs,
		durenv(&c.Server.RequestTimeout, "REQUEST_TIMEOUT"),
		durenv(&c.Server.ShutdownTimeout, "SHUTDOWN_TIMEOUT"),
	)

	setenv(&c.Store.Driver, "STORE_DRIVER")
	setenv(&c.Store.PostgresHost, "POSTGRES_HOST")
	setenv(&c.Store.PostgresPort, "POSTGRES_PORT")
	setenv(&c.Store.PostgresUser, "POSTGRES_USER")
	setenv(&c.Store.PostgresPassword, "POSTGRES_PASSWORD")
	setenv(&c.Store.PostgresDB, "POSTGRES_DB")
	setenv(&c.Store.SQLitePath, "SQLITE_PATH")
	errs = append(errs, boolenv(&c.Store.AutoMigrate, "STORE_AUTO_MIGRATE"))

	setenv(&c.Cache.Driver, "CACHE_DRIVER")
	setenv(&c.Cache.RedisHost, "REDIS_HOST")
	setenv(&c.Cache.RedisPort, "REDIS_PORT")
	setenv(&c.Cache.RedisPassword, "REDIS_PASSWORD")
	setenv(&c.Cache.BoltPath, "CACHE_BOLT_PATH")
	errs = append(errs,
		durenv(&c.Cache.TTL, "CACHE_TTL"),
		durenv(&c.Cache.Timeout, "CACHE_TIMEOUT"),
		atoienv(&c.Cache.RedisDB, "REDIS_DB"),
		atoienv(&c.Cache.MemoryCapacity, "CACHE_MEMORY_CAPACITY"),
	)

	setenv(&c.Log.Level, "LOG_LEVEL")
	setenv(&c.Log.Format, "LOG_FORMAT")
	setenv(&c.Log.File, "LOG_FILE")

	return errors.Join(errs...)
}

func setenv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func atoienv(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return &FieldError{Field: key, Message: fmt.Sprintf("not an integer: %q", v)}
	}
	*dst = n
	return nil
}

func boolenv(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return &FieldError{Field: key, Message: fmt.Sprintf("not a boolean: %q", v)}
	}
	*dst = b
	return nil
}

func durenv(dst *Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return &FieldError{Field: key, Message: fmt.Sprintf("not a duration: %q", v)}
	}
	*dst = Duration(d)
	return nil
}

// FieldError names the configuration key that failed validation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

func (c Config) Validate() error {
	if c.Server.Port == "" {
		return &FieldError{Field: "server.port", Message: "is required"}
	}
	if c.Server.RequestTimeout <= 0 {
		return &FieldError{Field: "server.request_timeout", Message: "must be positive"}
	}
	if c.Server.ShutdownTimeout <= 0 {
		return &FieldError{Field: "server.shutdown_timeout", Message: "must be positive"}
	}

	switch c.Store.Driver {
	case StorePostgres:
		if c.Store.PostgresHost == "" || c.Store.PostgresDB == "" {
			return &FieldError{Field: "store.postgres_host", Message: "host and db are required for the postgres driver"}
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return &FieldError{Field: "store.sqlite_path", Message: "is required for the sqlite driver"}
		}
	default:
		return &FieldError{Field: "store.driver", Message: fmt.Sprintf("unknown driver %q", c.Store.Driver)}
	}

	switch c.Cache.Driver {
	case CacheRedis:
		if c.Cache.RedisHost == "" {
			return &FieldError{Field: "cache.redis_host", Message: "is required for the redis driver"}
		}
	case CacheMemory:
		if c.Cache.MemoryCapacity <= 0 {
			return &FieldError{Field: "cache.memory_capacity", Message: "must be positive"}
		}
	case CacheBolt:
		if c.Cache.BoltPath == "" {
			return &FieldError{Field: "cache.bolt_path", Message: "is required for the bolt driver"}
		}
	default:
		return &FieldError{Field: "cache.driver", Message: fmt.Sprintf("unknown driver %q", c.Cache.Driver)}
	}
	if c.Cache.TTL <= 0 {
		return &FieldError{Field: "cache.ttl", Message: "must be positive"}
	}
	if c.Cache.Timeout <= 0 {
		return &FieldError{Field: "cache.timeout", Message: "must be positive"}
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return &FieldError{Field: "log.level", Message: fmt.Sprintf("unknown level %q", c.Log.Level)}
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return &FieldError{Field: "log.format", Message: fmt.Sprintf("unknown format %q", c.Log.Format)}
	}
	return nil
}
