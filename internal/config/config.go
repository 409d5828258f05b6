package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

var validate = validator.New()

type Config struct {
	Search  SearchConfig  `yaml:"search"`
	Oracle  OracleConfig  `yaml:"oracle"`
	Solver  SolverConfig  `yaml:"solver"`
	Dataset DatasetConfig `yaml:"dataset"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
	Hermes  HermesConfig  `yaml:"hermes"`
	Broker  BrokerConfig  `yaml:"broker"`
	Logging LoggingConfig `yaml:"logging"`
}

type SearchConfig struct {
	Eps                float64 `yaml:"eps" validate:"gte=0"`
	Criterion          string  `yaml:"criterion" validate:"required,oneof=LP lp exhaustive bruteforce"`
	NegativeAttributes []int   `yaml:"negative_attributes" validate:"dive,gte=0"`
	Cutoff             int     `yaml:"cutoff" validate:"gte=0"`
	FastPath           bool    `yaml:"fast_path"`
	ParallelChecks     bool    `yaml:"parallel_checks"`
}

type OracleConfig struct {
	Kind string `yaml:"kind" validate:"oneof=simulated interactive remote"`
	// Utility is the simulated oracle's weight vector. Empty draws a random
	// one from Seed.
	Utility         []float64 `yaml:"utility"`
	Seed            int64     `yaml:"seed"`
	RemoteTimeoutMs int       `yaml:"remote_timeout_ms" validate:"gte=0"`
}

type SolverConfig struct {
	Tolerance float64 `yaml:"tolerance" validate:"gt=0,lte=1e-7"`
}

type DatasetConfig struct {
	Driver string `yaml:"driver" validate:"omitempty,oneof=csv sqlite postgres"`
	Path   string `yaml:"path"`
	// Dir is the directory csv datasets named by API and event-bus run
	// requests are resolved in. Empty refuses such names for the csv driver.
	Dir     string   `yaml:"dir"`
	URL     string   `yaml:"url"`
	Table   string   `yaml:"table"`
	Columns []string `yaml:"columns"`
	OrderBy string   `yaml:"order_by"`
	Name    string   `yaml:"name"`
}

type StoreConfig struct {
	Driver string `yaml:"driver" validate:"oneof=memory bolt postgres"`
	Path   string `yaml:"path"`
	URL    string `yaml:"url"`
}

type ServerConfig struct {
	Port               int    `yaml:"port" validate:"gt=0,lte=65535"`
	MetricsPort        int    `yaml:"metrics_port" validate:"gt=0,lte=65535"`
	AdminToken         string `yaml:"admin_token"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute" validate:"gte=0"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

type BrokerConfig struct {
	TickIntervalMs    int `yaml:"tick_interval_ms" validate:"gt=0"`
	MaxConcurrentRuns int `yaml:"max_concurrent_runs" validate:"gt=0"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Broker.TickIntervalMs) * time.Millisecond
}

func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Oracle.RemoteTimeoutMs) * time.Millisecond
}

// LogLevel maps the configured level name to a slog level.
func (c *Config) LogLevel() slog.Level {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Default() *Config {
	return &Config{
		Search: SearchConfig{
			Eps:       0,
			Criterion: "LP",
			Cutoff:    1000,
			FastPath:  true,
		},
		Oracle: OracleConfig{
			Kind:            "simulated",
			RemoteTimeoutMs: 60000,
		},
		Solver: SolverConfig{
			Tolerance: 1e-9,
		},
		Dataset: DatasetConfig{
			Driver: "csv",
		},
		Store: StoreConfig{
			Driver: "memory",
		},
		Server: ServerConfig{
			Port:               8700,
			MetricsPort:        8701,
			RateLimitPerMinute: 120,
		},
		Broker: BrokerConfig{
			TickIntervalMs:    2000,
			MaxConcurrentRuns: 2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load applies the YAML file at path (if any) and ELICIT_* environment
// overrides on top of the defaults. It does not validate; callers apply
// their own overrides first and then call Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for i, w := range c.Oracle.Utility {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: oracle.utility[%d] is not finite", ErrInvalidConfig, i)
		}
	}
	if c.Store.Driver == "bolt" && c.Store.Path == "" {
		return fmt.Errorf("%w: store.path is required for the bolt store", ErrInvalidConfig)
	}
	if c.Store.Driver == "postgres" && c.Store.URL == "" {
		return fmt.Errorf("%w: store.url is required for the postgres store", ErrInvalidConfig)
	}
	if c.Oracle.Kind == "remote" && c.Hermes.URL == "" {
		return fmt.Errorf("%w: hermes.url is required for the remote oracle", ErrInvalidConfig)
	}
	if c.Server.Port == c.Server.MetricsPort {
		return fmt.Errorf("%w: server.port and server.metrics_port must differ", ErrInvalidConfig)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ELICIT_EPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.Eps = f
		}
	}
	if v := os.Getenv("ELICIT_CRITERION"); v != "" {
		cfg.Search.Criterion = v
	}
	if v := os.Getenv("ELICIT_CUTOFF"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.Cutoff = n
		}
	}
	if v := os.Getenv("ELICIT_DATASET_PATH"); v != "" {
		cfg.Dataset.Path = v
	}
	if v := os.Getenv("ELICIT_DATASET_DIR"); v != "" {
		cfg.Dataset.Dir = v
	}
	if v := os.Getenv("ELICIT_DATABASE_URL"); v != "" {
		cfg.Dataset.URL = v
		cfg.Store.URL = v
	}
	if v := os.Getenv("ELICIT_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("ELICIT_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("ELICIT_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("ELICIT_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("ELICIT_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("ELICIT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
