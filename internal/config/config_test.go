package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envVars = []string{
	"ELICIT_EPS", "ELICIT_CRITERION", "ELICIT_CUTOFF", "ELICIT_DATASET_PATH",
	"ELICIT_DATABASE_URL", "ELICIT_STORE_PATH", "ELICIT_HERMES_URL", "ELICIT_PORT",
	"ELICIT_METRICS_PORT", "ELICIT_ADMIN_TOKEN", "ELICIT_LOG_LEVEL", "ELICIT_DATASET_DIR",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Search.Criterion != "LP" {
		t.Errorf("expected criterion LP, got %s", cfg.Search.Criterion)
	}
	if cfg.Search.Eps != 0 {
		t.Errorf("expected eps 0, got %f", cfg.Search.Eps)
	}
	if cfg.Search.Cutoff != 1000 {
		t.Errorf("expected cutoff 1000, got %d", cfg.Search.Cutoff)
	}
	if !cfg.Search.FastPath {
		t.Error("expected fast path enabled by default")
	}
	if cfg.Search.ParallelChecks {
		t.Error("expected parallel checks disabled by default")
	}
	if cfg.Oracle.Kind != "simulated" {
		t.Errorf("expected simulated oracle, got %s", cfg.Oracle.Kind)
	}
	if cfg.Solver.Tolerance != 1e-9 {
		t.Errorf("expected tolerance 1e-9, got %g", cfg.Solver.Tolerance)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("expected memory store, got %s", cfg.Store.Driver)
	}
	if cfg.Server.Port != 8700 {
		t.Errorf("expected port 8700, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected metrics port 8701, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Hermes.URL != "" {
		t.Errorf("expected hermes disabled by default, got %s", cfg.Hermes.URL)
	}
	if cfg.Broker.MaxConcurrentRuns != 2 {
		t.Errorf("expected 2 concurrent runs, got %d", cfg.Broker.MaxConcurrentRuns)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got '%s'", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "elicit.yaml")
	yaml := `
search:
  eps: 0.05
  criterion: exhaustive
  negative_attributes: [1, 3]
  cutoff: 50
oracle:
  utility: [0.2, 0.8]
  seed: 7
dataset:
  driver: sqlite
  path: data.db
  table: hotels
store:
  driver: bolt
  path: runs.db
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Search.Eps != 0.05 {
		t.Errorf("expected eps 0.05, got %f", cfg.Search.Eps)
	}
	if cfg.Search.Criterion != "exhaustive" {
		t.Errorf("expected exhaustive, got %s", cfg.Search.Criterion)
	}
	if len(cfg.Search.NegativeAttributes) != 2 || cfg.Search.NegativeAttributes[1] != 3 {
		t.Errorf("unexpected negative attributes %v", cfg.Search.NegativeAttributes)
	}
	if len(cfg.Oracle.Utility) != 2 || cfg.Oracle.Utility[1] != 0.8 {
		t.Errorf("unexpected utility %v", cfg.Oracle.Utility)
	}
	if cfg.Dataset.Table != "hotels" {
		t.Errorf("expected table hotels, got %s", cfg.Dataset.Table)
	}
	// Unset sections keep their defaults.
	if cfg.Server.Port != 8700 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ELICIT_EPS", "0.1")
	t.Setenv("ELICIT_CRITERION", "bruteforce")
	t.Setenv("ELICIT_CUTOFF", "25")
	t.Setenv("ELICIT_DATASET_PATH", "/data/cars.csv")
	t.Setenv("ELICIT_DATASET_DIR", "/data")
	t.Setenv("ELICIT_DATABASE_URL", "postgres://db/elicit")
	t.Setenv("ELICIT_STORE_PATH", "/var/lib/elicit/runs.db")
	t.Setenv("ELICIT_HERMES_URL", "nats://hermes:4222")
	t.Setenv("ELICIT_PORT", "9000")
	t.Setenv("ELICIT_METRICS_PORT", "9001")
	t.Setenv("ELICIT_ADMIN_TOKEN", "secret")
	t.Setenv("ELICIT_LOG_LEVEL", "DEBUG")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Search.Eps != 0.1 {
		t.Errorf("expected eps 0.1, got %f", cfg.Search.Eps)
	}
	if cfg.Search.Criterion != "bruteforce" {
		t.Errorf("expected bruteforce, got %s", cfg.Search.Criterion)
	}
	if cfg.Dataset.Dir != "/data" {
		t.Errorf("expected dataset dir /data, got %s", cfg.Dataset.Dir)
	}
	if cfg.Search.Cutoff != 25 {
		t.Errorf("expected cutoff 25, got %d", cfg.Search.Cutoff)
	}
	if cfg.Dataset.Path != "/data/cars.csv" {
		t.Errorf("unexpected dataset path %s", cfg.Dataset.Path)
	}
	if cfg.Dataset.URL != "postgres://db/elicit" || cfg.Store.URL != "postgres://db/elicit" {
		t.Errorf("database url not applied: %s / %s", cfg.Dataset.URL, cfg.Store.URL)
	}
	if cfg.Store.Path != "/var/lib/elicit/runs.db" {
		t.Errorf("unexpected store path %s", cfg.Store.Path)
	}
	if cfg.Hermes.URL != "nats://hermes:4222" {
		t.Errorf("unexpected hermes url %s", cfg.Hermes.URL)
	}
	if cfg.Server.Port != 9000 || cfg.Server.MetricsPort != 9001 {
		t.Errorf("unexpected ports %d/%d", cfg.Server.Port, cfg.Server.MetricsPort)
	}
	if cfg.Server.AdminToken != "secret" {
		t.Errorf("unexpected admin token %s", cfg.Server.AdminToken)
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.LogLevel())
	}
}

func TestEnvIgnoresUnparsableNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("ELICIT_PORT", "not-a-port")
	t.Setenv("ELICIT_EPS", "abc")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8700 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
	if cfg.Search.Eps != 0 {
		t.Errorf("expected default eps, got %f", cfg.Search.Eps)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative eps", func(c *Config) { c.Search.Eps = -0.1 }},
		{"unknown criterion", func(c *Config) { c.Search.Criterion = "simplex" }},
		{"negative attribute index", func(c *Config) { c.Search.NegativeAttributes = []int{-1} }},
		{"negative cutoff", func(c *Config) { c.Search.Cutoff = -5 }},
		{"unknown oracle", func(c *Config) { c.Oracle.Kind = "psychic" }},
		{"tolerance above delta/10", func(c *Config) { c.Solver.Tolerance = 1e-6 }},
		{"zero tolerance", func(c *Config) { c.Solver.Tolerance = 0 }},
		{"unknown dataset driver", func(c *Config) { c.Dataset.Driver = "parquet" }},
		{"bolt without path", func(c *Config) { c.Store.Driver = "bolt" }},
		{"postgres without url", func(c *Config) { c.Store.Driver = "postgres" }},
		{"remote oracle without hermes", func(c *Config) { c.Oracle.Kind = "remote" }},
		{"same ports", func(c *Config) { c.Server.MetricsPort = c.Server.Port }},
		{"zero concurrency", func(c *Config) { c.Broker.MaxConcurrentRuns = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestDurations(t *testing.T) {
	cfg := Default()
	if cfg.TickInterval() != 2*time.Second {
		t.Errorf("expected 2s tick, got %v", cfg.TickInterval())
	}
	if cfg.RemoteTimeout() != time.Minute {
		t.Errorf("expected 1m remote timeout, got %v", cfg.RemoteTimeout())
	}
}
