// Package config loads portal settings from a YAML or JSON file and
// FIXPATH_* environment variables.
package config

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/fixpath/internal/logging"
	"github.com/aretw0/fixpath/pkg/domain"
	"github.com/aretw0/fixpath/pkg/media"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "fixpath.yaml"

// Session store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Ticket backend kinds.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendEdge   = "edge"
)

// Duration is a time.Duration written as "90s" or "24h".
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText writes the duration in Go syntax.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the full portal configuration.
type Config struct {
	Tree      string         `yaml:"tree" json:"tree"`
	Language  string         `yaml:"language" json:"language"`
	Listen    string         `yaml:"listen" json:"listen"`
	LogLevel  string         `yaml:"log_level" json:"log_level"`
	LogFormat string         `yaml:"log_format" json:"log_format"`
	Sessions  SessionsConfig `yaml:"sessions" json:"sessions"`
	Backend   BackendConfig  `yaml:"backend" json:"backend"`
	Redis     RedisConfig    `yaml:"redis" json:"redis"`
	SQLite    SQLiteConfig   `yaml:"sqlite" json:"sqlite"`
	Media     MediaConfig    `yaml:"media" json:"media"`
	Ticket    TicketConfig   `yaml:"ticket" json:"ticket"`
}

// SessionsConfig selects where wizard snapshots live.
type SessionsConfig struct {
	Store string `yaml:"store" json:"store"`
	Dir   string `yaml:"dir" json:"dir"`
	// EncryptionKey is a hex encoded 32 byte key. Empty disables encryption.
	EncryptionKey string   `yaml:"encryption_key" json:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys" json:"fallback_keys"`
}

// BackendConfig selects the ticket backend.
type BackendConfig struct {
	Kind  string `yaml:"kind" json:"kind"`
	URL   string `yaml:"url" json:"url"`
	Token string `yaml:"token" json:"token"`
}

type RedisConfig struct {
	Addr     string   `yaml:"addr" json:"addr"`
	Password string   `yaml:"password" json:"password"`
	DB       int      `yaml:"db" json:"db"`
	Prefix   string   `yaml:"prefix" json:"prefix"`
	TTL      Duration `yaml:"ttl" json:"ttl"`
	// DraftCache puts the redis draft cache in front of the ticket backend.
	DraftCache bool `yaml:"draft_cache" json:"draft_cache"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" json:"path"`
}

type MediaConfig struct {
	MaxFiles     int      `yaml:"max_files" json:"max_files"`
	MaxBytes     int64    `yaml:"max_bytes" json:"max_bytes"`
	AllowedTypes []string `yaml:"allowed_types" json:"allowed_types"`
	Secret       string   `yaml:"secret" json:"secret"`
	BaseURL      string   `yaml:"base_url" json:"base_url"`
	TTL          Duration `yaml:"ttl" json:"ttl"`
}

type TicketConfig struct {
	MinDescription int `yaml:"min_description" json:"min_description"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	policy := media.DefaultPolicy()
	return Config{
		Tree:      "tree.yaml",
		Language:  domain.LangEN,
		Listen:    ":8080",
		LogLevel:  "info",
		LogFormat: string(logging.FormatText),
		Sessions: SessionsConfig{
			Store: StoreMemory,
			Dir:   ".fixpath/sessions",
		},
		Backend: BackendConfig{Kind: BackendMemory},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "fixpath:",
		},
		SQLite: SQLiteConfig{Path: "fixpath.db"},
		Media: MediaConfig{
			MaxFiles:     policy.MaxFiles,
			MaxBytes:     policy.MaxBytes,
			AllowedTypes: policy.AllowedTypes,
			BaseURL:      "http://localhost:8080/uploads",
			TTL:          Duration(media.DefaultURLTTL),
		},
	}
}

// Load reads path over the defaults and applies the environment.
// An empty path tries DefaultFile and tolerates its absence; an explicit
// path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, path, &cfg); err != nil {
			return Config{}, err
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from FIXPATH_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *Duration) {
		if v, ok := lookup(key); ok {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}

	str("FIXPATH_TREE", &c.Tree)
	str("FIXPATH_LANGUAGE", &c.Language)
	str("FIXPATH_LISTEN", &c.Listen)
	str("FIXPATH_LOG_LEVEL", &c.LogLevel)
	str("FIXPATH_LOG_FORMAT", &c.LogFormat)
	str("FIXPATH_SESSION_STORE", &c.Sessions.Store)
	str("FIXPATH_SESSION_DIR", &c.Sessions.Dir)
	str("FIXPATH_SESSION_KEY", &c.Sessions.EncryptionKey)
	str("FIXPATH_BACKEND", &c.Backend.Kind)
	str("FIXPATH_BACKEND_URL", &c.Backend.URL)
	str("FIXPATH_BACKEND_TOKEN", &c.Backend.Token)
	str("FIXPATH_REDIS_ADDR", &c.Redis.Addr)
	str("FIXPATH_REDIS_PASSWORD", &c.Redis.Password)
	num("FIXPATH_REDIS_DB", &c.Redis.DB)
	str("FIXPATH_REDIS_PREFIX", &c.Redis.Prefix)
	dur("FIXPATH_REDIS_TTL", &c.Redis.TTL)
	str("FIXPATH_SQLITE_PATH", &c.SQLite.Path)
	str("FIXPATH_MEDIA_SECRET", &c.Media.Secret)
	str("FIXPATH_MEDIA_BASE_URL", &c.Media.BaseURL)
	num("FIXPATH_MIN_DESCRIPTION", &c.Ticket.MinDescription)

	return errors.Join(errs...)
}

// Validate reports every inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Tree == "" {
		errs = append(errs, errors.New("tree path is required"))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch logging.Format(c.LogFormat) {
	case logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}

	switch c.Sessions.Store {
	case StoreMemory, StoreFile:
	case StoreRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for the redis session store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session store %q", c.Sessions.Store))
	}
	if _, _, err := c.EncryptionKeys(); err != nil {
		errs = append(errs, err)
	}

	switch c.Backend.Kind {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLite.Path == "" {
			errs = append(errs, errors.New("sqlite.path is required for the sqlite backend"))
		}
	case BackendEdge:
		if c.Backend.URL == "" {
			errs = append(errs, errors.New("backend.url is required for the edge backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ticket backend %q", c.Backend.Kind))
	}
	if c.Redis.DraftCache && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required for the draft cache"))
	}

	if c.Ticket.MinDescription < 0 {
		errs = append(errs, errors.New("ticket.min_description must not be negative"))
	}
	if c.Media.MaxFiles < 0 || c.Media.MaxBytes < 0 {
		errs = append(errs, errors.New("media limits must not be negative"))
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level.
func (c Config) Level() slog.Level {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// EncryptionKeys decodes the session keys. A nil active key means
// encryption is off.
func (c Config) EncryptionKeys() (active []byte, fallbacks [][]byte, err error) {
	if c.Sessions.EncryptionKey == "" {
		if len(c.Sessions.FallbackKeys) > 0 {
			return nil, nil, errors.New("sessions.fallback_keys requires sessions.encryption_key")
		}
		return nil, nil, nil
	}
	active, err = decodeKey(c.Sessions.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("sessions.encryption_key: %w", err)
	}
	for i, k := range c.Sessions.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("sessions.fallback_keys[%d]: %w", i, err)
		}
		fallbacks = append(fallbacks, key)
	}
	return active, fallbacks, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("not hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// MediaPolicy returns the attachment limits, falling back to the defaults
// for unset fields.
func (c Config) MediaPolicy() media.Policy {
	p := media.DefaultPolicy()
	if c.Media.MaxFiles > 0 {
		p.MaxFiles = c.Media.MaxFiles
	}
	if c.Media.MaxBytes > 0 {
		p.MaxBytes = c.Media.MaxBytes
	}
	if len(c.Media.AllowedTypes) > 0 {
		p.AllowedTypes = c.Media.AllowedTypes
	}
	return p
}
