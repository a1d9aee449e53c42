package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures everything cmd/ binaries need to wire the form engine.
type Config struct {
	Server  Server        `yaml:"server"`
	Remote  Remote        `yaml:"remote"`
	Lookup  Lookup        `yaml:"lookup"`
	Session SessionConfig `yaml:"session"`
	Redis   RedisConfig   `yaml:"redis"`
	DB      DBConfig      `yaml:"database"`
	Audit   AuditConfig   `yaml:"audit"`
	Log     LogConfig     `yaml:"log"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// FormIdleTTL bounds how long an untouched form session is kept.
	FormIdleTTL time.Duration `yaml:"form_idle_ttl"`
}

// Remote points at the REST service that owns options, padron and records.
type Remote struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Lookup tunes the padron code lookup attached to the replica form.
type Lookup struct {
	Debounce  time.Duration `yaml:"debounce"`
	MinDigits int           `yaml:"min_digits"`
}

// SessionConfig selects where the current ambassador is persisted.
type SessionConfig struct {
	// Store is one of memory, file, redis, postgres.
	Store string `yaml:"store"`
	Path  string `yaml:"path"`
	Key   string `yaml:"key"`
	// TTL expires idle actors in the redis store. Zero keeps them until logout.
	TTL time.Duration `yaml:"ttl"`
}

// RedisConfig holds connection settings for the optional Redis backend.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DBConfig holds connection settings for the optional Postgres backend.
type DBConfig struct {
	URL   string `yaml:"url"`
	Table string `yaml:"table"`
}

// AuditConfig enables the Kafka audit sink when Brokers is non-empty.
type AuditConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Buffer  int      `yaml:"buffer"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults returns the development configuration.
func Defaults() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			FormIdleTTL:     30 * time.Minute,
		},
		Remote: Remote{
			BaseURL: "http://localhost:3000",
			Timeout: 10 * time.Second,
		},
		Lookup: Lookup{
			Debounce:  500 * time.Millisecond,
			MinDigits: 3,
		},
		Session: SessionConfig{
			Store: "memory",
			Path:  "embajador.actual.json",
			Key:   "embajador.actual",
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 1,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		DB: DBConfig{
			Table: "current_actor",
		},
		Audit: AuditConfig{
			Topic:  "fieldreg.audit",
			Buffer: 256,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// FromEnv builds a Config from defaults, an optional YAML file named by
// FIELDREG_CONFIG, and environment overrides, in that order.
func FromEnv() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("FIELDREG_CONFIG"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML document at path onto cfg.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return c.LoadYAML(data)
}

// LoadYAML overlays a YAML document onto cfg. Absent keys keep their values.
func (c *Config) LoadYAML(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("FIELDREG_ADDR", &c.Server.Addr)
	str("FIELDREG_API_URL", &c.Remote.BaseURL)
	str("FIELDREG_SESSION_STORE", &c.Session.Store)
	str("FIELDREG_SESSION_PATH", &c.Session.Path)
	str("REDIS_URL", &c.Redis.URL)
	str("DATABASE_URL", &c.DB.URL)
	str("FIELDREG_AUDIT_TOPIC", &c.Audit.Topic)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Audit.Brokers = splitList(v)
	}
	if v := getenv("FIELDREG_LOOKUP_MIN_DIGITS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FIELDREG_LOOKUP_MIN_DIGITS: %w", err)
		}
		c.Lookup.MinDigits = n
	}
	for key, dst := range map[string]*time.Duration{
		"FIELDREG_API_TIMEOUT":     &c.Remote.Timeout,
		"FIELDREG_LOOKUP_DEBOUNCE": &c.Lookup.Debounce,
		"FIELDREG_FORM_IDLE_TTL":   &c.Server.FormIdleTTL,
		"FIELDREG_SESSION_TTL":     &c.Session.TTL,
	} {
		if err := dur(key, dst); err != nil {
			return err
		}
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
