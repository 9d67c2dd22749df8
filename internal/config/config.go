package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Hermes      HermesConfig      `yaml:"hermes"`
	Solver      SolverConfig      `yaml:"solver"`
	Elicitation ElicitationConfig `yaml:"elicitation"`
	Oracle      OracleConfig      `yaml:"oracle"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
}

// DatabaseConfig selects the catalog backend. Driver is one of memory,
// postgres or sqlite; URL is used by postgres and Path by sqlite.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
	Path   string `yaml:"path"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

type SolverConfig struct {
	Tolerance float64 `yaml:"tolerance"`
	TimeoutMs int     `yaml:"timeout_ms"`
	Workers   int     `yaml:"workers"`
}

type ElicitationConfig struct {
	Epsilon                float64 `yaml:"epsilon"`
	MaxQueries             int     `yaml:"max_queries"`
	MaxConcurrentSessions  int     `yaml:"max_concurrent_sessions"`
	PruneDominated         bool    `yaml:"prune_dominated"`
	ResultRetentionMinutes int     `yaml:"result_retention_minutes"` // how long finished async sessions stay queryable
}

// OracleConfig points at a remote decision-maker service used when a
// session asks for the "remote" oracle.
type OracleConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) SolverTimeout() time.Duration {
	return time.Duration(c.Solver.TimeoutMs) * time.Millisecond
}

func (c *Config) ResultRetention() time.Duration {
	return time.Duration(c.Elicitation.ResultRetentionMinutes) * time.Minute
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory", "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.URL == "" {
		return fmt.Errorf("database.url required for postgres driver")
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		return fmt.Errorf("database.path required for sqlite driver")
	}
	if !(c.Elicitation.Epsilon > 0) {
		return fmt.Errorf("elicitation.epsilon must be positive, got %v", c.Elicitation.Epsilon)
	}
	if c.Elicitation.MaxQueries < 0 {
		return fmt.Errorf("elicitation.max_queries must be non-negative, got %d", c.Elicitation.MaxQueries)
	}
	if c.Solver.Tolerance < 0 {
		return fmt.Errorf("solver.tolerance must be non-negative, got %v", c.Solver.Tolerance)
	}
	return nil
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		Database: DatabaseConfig{
			Driver: "memory",
			Path:   "elicit.db",
		},
		Hermes: HermesConfig{
			URL: "nats://localhost:4222",
		},
		Solver: SolverConfig{
			Tolerance: 1e-10,
			TimeoutMs: 5000,
			Workers:   4,
		},
		Elicitation: ElicitationConfig{
			Epsilon:                0.01,
			MaxQueries:             100,
			MaxConcurrentSessions:  4,
			ResultRetentionMinutes: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

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

func applyEnv(cfg *Config) {
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
	if v := os.Getenv("ELICIT_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("ELICIT_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("ELICIT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("ELICIT_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("ELICIT_SOLVER_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Solver.TimeoutMs = n
		}
	}
	if v := os.Getenv("ELICIT_SOLVER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Solver.Workers = n
		}
	}
	if v := os.Getenv("ELICIT_EPSILON"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Elicitation.Epsilon = f
		}
	}
	if v := os.Getenv("ELICIT_MAX_QUERIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Elicitation.MaxQueries = n
		}
	}
	if v := os.Getenv("ELICIT_PRUNE_DOMINATED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Elicitation.PruneDominated = b
		}
	}
	if v := os.Getenv("ELICIT_ORACLE_URL"); v != "" {
		cfg.Oracle.URL = v
	}
	if v := os.Getenv("ELICIT_ORACLE_TOKEN"); v != "" {
		cfg.Oracle.Token = v
	}
	if v := os.Getenv("ELICIT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
