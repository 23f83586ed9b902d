// Package config loads server configuration from defaults, an optional YAML
// file, and AMLGUARD_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

const devSigningKey = "dev-secret-key-change-in-production"

type Config struct {
	Server     Server           `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Log        LogConfig        `yaml:"log"`
	Escalation EscalationConfig `yaml:"escalation"`
	Workers    WorkersConfig    `yaml:"workers"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	JWTSigningKey   string        `yaml:"jwt_signing_key"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	// Backend is "memory" or "postgres".
	Backend     string `yaml:"backend"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// RedisConfig configures the failure-window backend. Empty URL keeps it in memory.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// KafkaConfig enables the audit fan-out sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers           []string `yaml:"brokers"`
	AuditTopic        string   `yaml:"audit_topic"`
	Partitions        int32    `yaml:"partitions"`
	ReplicationFactor int16    `yaml:"replication_factor"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// EscalationConfig drives automatic blocking after repeated failed logins.
type EscalationConfig struct {
	Threshold int           `yaml:"threshold"`
	Window    time.Duration `yaml:"window"`
}

type WorkersConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	AuditBuffer   int           `yaml:"audit_buffer"`
}

// Default returns a configuration suitable for local development.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			JWTSigningKey:   devSigningKey,
			ShutdownTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{Backend: StorageMemory},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			AuditTopic:        "amlguard.audit",
			Partitions:        3,
			ReplicationFactor: 1,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Escalation: EscalationConfig{
			Threshold: 5,
			Window:    15 * time.Minute,
		},
		Workers: WorkersConfig{
			SweepInterval: time.Hour,
			AuditBuffer:   1024,
		},
	}
}

// FromEnv builds a config from defaults and environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads the YAML file at path (if any) over the defaults, then applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field requirements.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.JWTSigningKey == "" {
		return fmt.Errorf("server.jwt_signing_key is required")
	}
	switch c.Storage.Backend {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", StorageMemory, StoragePostgres, c.Storage.Backend)
	}
	if c.Escalation.Threshold < 1 {
		return fmt.Errorf("escalation.threshold must be at least 1")
	}
	if c.Escalation.Window <= 0 {
		return fmt.Errorf("escalation.window must be positive")
	}
	if c.Workers.SweepInterval <= 0 {
		return fmt.Errorf("workers.sweep_interval must be positive")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.AuditTopic == "" {
		return fmt.Errorf("kafka.audit_topic is required when brokers are set")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text")
	}
	return nil
}

// UsesDevSigningKey reports whether the built-in development key is active.
func (c Config) UsesDevSigningKey() bool {
	return c.Server.JWTSigningKey == devSigningKey
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("AMLGUARD_ADDR", &c.Server.Addr)
	str("AMLGUARD_JWT_SIGNING_KEY", &c.Server.JWTSigningKey)
	str("AMLGUARD_STORAGE", &c.Storage.Backend)
	str("AMLGUARD_POSTGRES_DSN", &c.Storage.PostgresDSN)
	str("AMLGUARD_REDIS_URL", &c.Redis.URL)
	str("AMLGUARD_KAFKA_TOPIC", &c.Kafka.AuditTopic)
	str("AMLGUARD_LOG_LEVEL", &c.Log.Level)
	str("AMLGUARD_LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("AMLGUARD_KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v, ok := lookup("AMLGUARD_ESCALATION_THRESHOLD"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AMLGUARD_ESCALATION_THRESHOLD: %w", err)
		}
		c.Escalation.Threshold = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"AMLGUARD_ESCALATION_WINDOW", &c.Escalation.Window},
		{"AMLGUARD_SWEEP_INTERVAL", &c.Workers.SweepInterval},
		{"AMLGUARD_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout},
	}
	for _, d := range durations {
		v, ok := lookup(d.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
