package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const secret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  grpc_port: 9191
database:
  host: db.internal
  password: from-file
kafka:
  brokers: ["k1:9092"]
log:
  level: debug
`)
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("HTTP_PORT", "4000")
	t.Setenv("DB_HOST", "db.override")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.GRPCPort)
	assert.Equal(t, 4000, cfg.Server.HTTPPort)
	assert.Equal(t, "db.override", cfg.Database.Host)
	assert.Equal(t, "from-file", cfg.Database.Password)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "debug", cfg.Log.Level)

	assert.Equal(t, "directory.events", cfg.Kafka.Topic)
	assert.Equal(t, 15*time.Second, cfg.Database.ConnectTimeout)
	assert.InDelta(t, 0.11, cfg.RateLimit.RPS, 1e-9)
	assert.Equal(t, 100, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_MissingFileUsesEnvironment(t *testing.T) {
	t.Setenv("USE_MOCK", "true")
	t.Setenv("JWT_SECRET", "dev")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.True(t, cfg.Mock.Enabled)
	assert.Equal(t, 9090, cfg.Server.GRPCPort)
	assert.Equal(t, 3001, cfg.Server.HTTPPort)
}

func valid() *Config {
	return &Config{
		Server:    ServerConfig{GRPCPort: 9090, HTTPPort: 3001},
		Database:  DatabaseConfig{Host: "localhost", Port: 5432, ConnectTimeout: time.Second},
		Kafka:     KafkaConfig{Topic: "directory.events"},
		Auth:      AuthConfig{JWTSecret: secret},
		RateLimit: RateLimitConfig{Enabled: true, RPS: 1, Burst: 1},
		Log:       LogConfig{Level: "info"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr []string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "short secret outside mock mode",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "short" },
			wantErr: []string{"JWT_SECRET must be at least 32 characters"},
		},
		{
			name: "short secret in mock mode",
			mutate: func(c *Config) {
				c.Auth.JWTSecret = "short"
				c.Mock.Enabled = true
			},
		},
		{
			name:    "missing secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "" },
			wantErr: []string{"JWT_SECRET is required"},
		},
		{
			name: "database ignored in mock mode",
			mutate: func(c *Config) {
				c.Mock.Enabled = true
				c.Database = DatabaseConfig{}
			},
		},
		{
			name: "every problem reported",
			mutate: func(c *Config) {
				c.Server.GRPCPort = 0
				c.Server.HTTPPort = 70000
				c.Database.Host = ""
				c.Log.Level = "loud"
				c.RateLimit.RPS = 0
			},
			wantErr: []string{"GRPC_PORT", "HTTP_PORT", "DB_HOST", "LOG_LEVEL", "RATE_LIMIT_RPS"},
		},
		{
			name:    "same ports",
			mutate:  func(c *Config) { c.Server.HTTPPort = c.Server.GRPCPort },
			wantErr: []string{"must differ"},
		},
		{
			name:    "missing mock data dir",
			mutate:  func(c *Config) { c.Mock.DataPath = "/does/not/exist" },
			wantErr: []string{"MOCK_DATA_PATH"},
		},
		{
			name:   "rate limit disabled skips its checks",
			mutate: func(c *Config) { c.RateLimit = RateLimitConfig{} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestDump_RedactsSecrets(t *testing.T) {
	cfg := valid()
	cfg.Database.Password = "hunter2"

	var buf bytes.Buffer
	require.NoError(t, cfg.Dump(&buf))
	assert.NotContains(t, buf.String(), "hunter2")
	assert.NotContains(t, buf.String(), secret)

	var back Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, redacted, back.Database.Password)
	assert.Equal(t, redacted, back.Auth.JWTSecret)
	assert.Equal(t, 9090, back.Server.GRPCPort)

	assert.Equal(t, "hunter2", cfg.Database.Password, "dump must not touch the live config")
}
