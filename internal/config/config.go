// Package config loads the settings of the rerun server from a YAML file, a .env file and
// RERUN_* environment variables, in increasing order of precedence.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/rerun/internal/logging"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultEnvFile is read when present. A missing file is not an error.
const DefaultEnvFile = ".env"

// Config is the complete server configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
	Engine EngineConfig `mapstructure:"engine" yaml:"engine"`
	Redis  RedisConfig  `mapstructure:"redis" yaml:"redis"`
	Watch  WatchConfig  `mapstructure:"watch" yaml:"watch"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	DevMode         bool          `mapstructure:"dev_mode" yaml:"dev_mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	Metrics         bool          `mapstructure:"metrics" yaml:"metrics"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type EngineConfig struct {
	MaxReruns int           `mapstructure:"max_reruns" yaml:"max_reruns"`
	Heartbeat time.Duration `mapstructure:"heartbeat" yaml:"heartbeat"`
}

// RedisConfig enables the shared cache and the distributed session lock when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`

	// EncryptionKey seals cached values with AES-256-GCM. 64 hex characters.
	EncryptionKey string `mapstructure:"encryption_key" yaml:"encryption_key"`
	// FallbackKeys still decrypt values written before a key rotation.
	FallbackKeys []string `mapstructure:"fallback_keys" yaml:"fallback_keys"`
	// MaskPatterns are regular expressions of map keys masked before caching.
	MaskPatterns []string `mapstructure:"mask_patterns" yaml:"mask_patterns"`
}

// Enabled reports whether a Redis server is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// Keys decodes the encryption keys. active is nil when encryption is off.
func (r RedisConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if r.EncryptionKey == "" {
		if len(r.FallbackKeys) > 0 {
			return nil, nil, errors.New("redis.fallback_keys requires redis.encryption_key")
		}
		return nil, nil, nil
	}
	if active, err = decodeKey("redis.encryption_key", r.EncryptionKey); err != nil {
		return nil, nil, err
	}
	for i, k := range r.FallbackKeys {
		key, err := decodeKey(fmt.Sprintf("redis.fallback_keys[%d]", i), k)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(name, s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%s is not hex: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s must be 32 bytes (64 hex characters), got %d bytes", name, len(key))
	}
	return key, nil
}

// WatchConfig drives hot reload. Nothing is watched when Paths is empty.
type WatchConfig struct {
	Paths           []string      `mapstructure:"paths" yaml:"paths"`
	DependencyFiles []string      `mapstructure:"dependency_files" yaml:"dependency_files"`
	Debounce        time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second, Metrics: true},
		Log:    LogConfig{Level: "info", Format: string(logging.FormatText)},
		Engine: EngineConfig{MaxReruns: 16},
		Redis:  RedisConfig{Prefix: "rerun:"},
		Watch: WatchConfig{
			DependencyFiles: []string{"go.mod", "go.sum"},
			Debounce:        100 * time.Millisecond,
		},
	}
}

// binding maps an environment variable onto a section and field of the file layout.
type binding struct {
	env, section, field string
}

var bindings = []binding{
	{"RERUN_ADDR", "server", "addr"},
	{"RERUN_DEV_MODE", "server", "dev_mode"},
	{"RERUN_SHUTDOWN_TIMEOUT", "server", "shutdown_timeout"},
	{"RERUN_METRICS", "server", "metrics"},
	{"RERUN_LOG_LEVEL", "log", "level"},
	{"RERUN_LOG_FORMAT", "log", "format"},
	{"RERUN_MAX_RERUNS", "engine", "max_reruns"},
	{"RERUN_HEARTBEAT", "engine", "heartbeat"},
	{"RERUN_REDIS_ADDR", "redis", "addr"},
	{"RERUN_REDIS_PASSWORD", "redis", "password"},
	{"RERUN_REDIS_DB", "redis", "db"},
	{"RERUN_REDIS_PREFIX", "redis", "prefix"},
	{"RERUN_REDIS_TTL", "redis", "ttl"},
	{"RERUN_REDIS_ENCRYPTION_KEY", "redis", "encryption_key"},
	{"RERUN_REDIS_FALLBACK_KEYS", "redis", "fallback_keys"},
	{"RERUN_REDIS_MASK_PATTERNS", "redis", "mask_patterns"},
	{"RERUN_WATCH_PATHS", "watch", "paths"},
	{"RERUN_WATCH_DEPENDENCY_FILES", "watch", "dependency_files"},
	{"RERUN_WATCH_DEBOUNCE", "watch", "debounce"},
}

type loader struct {
	envFile string
	lookup  func(string) (string, bool)
}

// Option configures Load.
type Option func(*loader)

// WithEnvFile reads a different .env file. An empty name disables .env support.
func WithEnvFile(name string) Option {
	return func(l *loader) {
		l.envFile = name
	}
}

// WithLookupEnv replaces os.LookupEnv.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(l *loader) {
		if fn != nil {
			l.lookup = fn
		}
	}
}

// Load builds the configuration. An empty path skips the YAML file; a path that does not exist
// is an error. Process environment variables take precedence over the .env file.
func Load(path string, opts ...Option) (*Config, error) {
	l := &loader{envFile: DefaultEnvFile, lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(l)
	}

	raw := make(map[string]any)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	dotenv, err := l.readEnvFile()
	if err != nil {
		return nil, err
	}
	for _, b := range bindings {
		v, ok := l.lookup(b.env)
		if !ok {
			v, ok = dotenv[b.env]
		}
		if !ok {
			continue
		}
		section, _ := raw[b.section].(map[string]any)
		if section == nil {
			section = make(map[string]any)
			raw[b.section] = section
		}
		section[b.field] = v
	}

	cfg := Default()
	if err := decode(raw, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *loader) readEnvFile() (map[string]string, error) {
	if l.envFile == "" {
		return nil, nil
	}
	values, err := godotenv.Read(l.envFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", l.envFile, err)
	}
	return values, nil
}

func decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		// Lists replace the defaults instead of overwriting them element by element.
		ZeroFields: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must be set"))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must not be negative"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		errs = append(errs, err)
	}
	if c.Engine.MaxReruns < 0 {
		errs = append(errs, errors.New("engine.max_reruns must not be negative"))
	}
	if c.Engine.Heartbeat < 0 {
		errs = append(errs, errors.New("engine.heartbeat must not be negative"))
	}
	if c.Redis.TTL < 0 {
		errs = append(errs, errors.New("redis.ttl must not be negative"))
	}
	if _, _, err := c.Redis.Keys(); err != nil {
		errs = append(errs, err)
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, errors.New("watch.debounce must not be negative"))
	}
	return errors.Join(errs...)
}
