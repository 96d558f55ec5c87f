// Package config loads the directory service configuration from a YAML
// file with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no -config flag is given.
const DefaultPath = "internal/directory/config/config.yaml"

const (
	minSecretLength = 32
	redacted        = "[REDACTED]"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Mock      MockConfig      `yaml:"mock"`
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type ServerConfig struct {
	GRPCPort        int           `yaml:"grpc_port" env:"GRPC_PORT" env-default:"9090"`
	HTTPPort        int           `yaml:"http_port" env:"HTTP_PORT" env-default:"3001"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// MockConfig selects mock mode. In mock mode the live datastore is never
// contacted and JWT_SECRET may be short.
type MockConfig struct {
	Enabled  bool   `yaml:"enabled" env:"USE_MOCK" env-default:"false"`
	DataPath string `yaml:"data_path" env:"MOCK_DATA_PATH" env-default:""`
}

type DatabaseConfig struct {
	Host           string        `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port           int           `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User           string        `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password       string        `yaml:"password" env:"DB_PASSWORD"`
	Name           string        `yaml:"name" env:"DB_NAME" env-default:"directory"`
	SSLMode        string        `yaml:"ssl_mode" env:"DB_SSLMODE" env-default:"disable"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"DB_CONNECT_TIMEOUT" env-default:"15s"`
}

// KafkaConfig: no brokers disables the producer, no audit group disables
// the audit consumer.
type KafkaConfig struct {
	Brokers    []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic      string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"directory.events"`
	AuditGroup string   `yaml:"audit_group" env:"KAFKA_AUDIT_GROUP"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" env:"RATE_LIMIT_ENABLED" env-default:"true"`
	RPS     float64 `yaml:"rps" env:"RATE_LIMIT_RPS" env-default:"0.11"`
	Burst   int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"100"`
}

type LogConfig struct {
	Level       string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Development bool   `yaml:"development" env:"LOG_DEVELOPMENT" env-default:"false"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
}

// Load reads path and applies environment overrides. A missing file is
// not an error: defaults and the environment are used instead.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	err := cleanenv.ReadConfig(path, cfg)
	if errors.Is(err, fs.ErrNotExist) {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	port := func(name string, p int) {
		if p < 1 || p > 65535 {
			errs = append(errs, fmt.Errorf("%s must be between 1 and 65535, got %d", name, p))
		}
	}
	port("GRPC_PORT", c.Server.GRPCPort)
	port("HTTP_PORT", c.Server.HTTPPort)
	if c.Server.GRPCPort == c.Server.HTTPPort {
		errs = append(errs, fmt.Errorf("GRPC_PORT and HTTP_PORT must differ"))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("JWT_SECRET is required"))
	} else if !c.Mock.Enabled && len(c.Auth.JWTSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLength))
	}

	if !c.Mock.Enabled {
		port("DB_PORT", c.Database.Port)
		if c.Database.Host == "" {
			errs = append(errs, fmt.Errorf("DB_HOST is required unless USE_MOCK is set"))
		}
		if c.Database.ConnectTimeout <= 0 {
			errs = append(errs, fmt.Errorf("DB_CONNECT_TIMEOUT must be positive"))
		}
	}

	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}

	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1) {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	if c.Mock.DataPath != "" {
		if info, err := os.Stat(c.Mock.DataPath); err != nil || !info.IsDir() {
			errs = append(errs, fmt.Errorf("MOCK_DATA_PATH %q is not a directory", c.Mock.DataPath))
		}
	}

	return errors.Join(errs...)
}

// Dump writes the effective configuration as YAML with secrets redacted.
func (c *Config) Dump(w io.Writer) error {
	out := *c
	if out.Database.Password != "" {
		out.Database.Password = redacted
	}
	if out.Auth.JWTSecret != "" {
		out.Auth.JWTSecret = redacted
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&out); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
