package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testYAML = `
environment: test
server:
  port: 8080
  read_timeout: 10s
  write_timeout: 10s
  shutdown_timeout: 5s
clickhouse:
  host: localhost
  port: 9000
  database: finpredict
redis:
  addr: localhost:6379
registry:
  dir: /var/lib/finpredict/models
prediction:
  cache_ttl: 15m
training:
  symbols: [AAPL, MSFT]
  workers: 2
  queue_workers: 1
`

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, testYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Environment != "test" {
		t.Fatalf("environment = %q", cfg.Environment)
	}
	if cfg.Prediction.CacheTTL != 15*time.Minute {
		t.Fatalf("cache_ttl = %v", cfg.Prediction.CacheTTL)
	}
	if len(cfg.Training.Symbols) != 2 || cfg.Training.Symbols[0] != "AAPL" {
		t.Fatalf("symbols = %v", cfg.Training.Symbols)
	}
}

func TestValidateRejectsMissingRegistryDir(t *testing.T) {
	cfg, err := Load(writeConfig(t, testYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Registry.Dir = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for empty registry.dir")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis-prod:6380")
	t.Setenv("SYMBOLS", "TSLA,NVDA,GOOG")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := LoadWithEnv(writeConfig(t, testYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Redis.Addr != "redis-prod:6380" {
		t.Fatalf("redis addr = %q", cfg.Redis.Addr)
	}
	if len(cfg.Training.Symbols) != 3 {
		t.Fatalf("symbols = %v", cfg.Training.Symbols)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 2 {
		t.Fatalf("kafka = %+v", cfg.Kafka)
	}
}
