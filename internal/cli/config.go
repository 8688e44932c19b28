package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/xraph/dropout"
)

// Supported --driver values.
const (
	DriverPostgres = "postgres"
	DriverBun      = "bun"
	DriverSQLite   = "sqlite"
)

// Config is the CLI configuration. Precedence: flag > env > file > default.
type Config struct {
	Database struct {
		Driver          string `yaml:"driver"`
		DSN             string `yaml:"dsn"`
		ConnectAttempts int    `yaml:"connect_attempts"`
	} `yaml:"database"`

	Job struct {
		Name       string        `yaml:"name"`
		BatchSize  int           `yaml:"batch_size"`
		DryRun     bool          `yaml:"dry_run"`
		PageRate   float64       `yaml:"page_rate"`
		RunTimeout time.Duration `yaml:"run_timeout"`
	} `yaml:"job"`

	Schedule struct {
		Expr        string `yaml:"expr"`
		MetricsAddr string `yaml:"metrics_addr"`
	} `yaml:"schedule"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Audit struct {
		Enabled bool     `yaml:"enabled"`
		Actions []string `yaml:"actions"`
	} `yaml:"audit"`
}

func defaultConfig() *Config {
	var cfg Config
	cfg.Database.Driver = DriverPostgres
	cfg.Database.ConnectAttempts = 5
	cfg.Job.Name = dropout.DefaultJobName
	cfg.Job.BatchSize = dropout.DefaultBatchSize
	cfg.Schedule.Expr = "0 2 * * *"
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Audit.Enabled = true
	return &cfg
}

// loadConfig reads path over the defaults. An empty path yields the
// defaults; a missing explicit path is an error.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return cfg, nil
}

// loadDotEnv loads .env from the working directory when present.
func loadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// applyEnv overrides cfg with DROPOUT_* variables.
func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("DROPOUT_DRIVER", &cfg.Database.Driver)
	str("DROPOUT_DSN", &cfg.Database.DSN)
	str("DROPOUT_JOB_NAME", &cfg.Job.Name)
	str("DROPOUT_SCHEDULE", &cfg.Schedule.Expr)
	str("DROPOUT_METRICS_ADDR", &cfg.Schedule.MetricsAddr)
	str("DROPOUT_LOG_LEVEL", &cfg.Log.Level)
	str("DROPOUT_LOG_FORMAT", &cfg.Log.Format)

	if v := getenv("DROPOUT_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DROPOUT_BATCH_SIZE: %w", err)
		}
		cfg.Job.BatchSize = n
	}
	if v := getenv("DROPOUT_DRY_RUN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DROPOUT_DRY_RUN: %w", err)
		}
		cfg.Job.DryRun = b
	}
	if v := getenv("DROPOUT_PAGE_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("DROPOUT_PAGE_RATE: %w", err)
		}
		cfg.Job.PageRate = f
	}
	if v := getenv("DROPOUT_RUN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DROPOUT_RUN_TIMEOUT: %w", err)
		}
		cfg.Job.RunTimeout = d
	}
	return nil
}

// JobConfig converts the job section into a dropout.Config.
func (c *Config) JobConfig() dropout.Config {
	policy := dropout.PolicyCommit
	if c.Job.DryRun {
		policy = dropout.PolicyRollback
	}
	return dropout.Config{
		Name:       c.Job.Name,
		BatchSize:  c.Job.BatchSize,
		Policy:     policy,
		PageRate:   c.Job.PageRate,
		RunTimeout: c.Job.RunTimeout,
	}
}

// Validate checks the settings the engine does not own.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverBun, DriverSQLite:
	default:
		return fmt.Errorf("%w: unknown driver %q", dropout.ErrConfiguration, c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("%w: dsn is required", dropout.ErrConfiguration)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", dropout.ErrConfiguration, c.Log.Format)
	}
	return c.JobConfig().Validate()
}

// newLogger builds the process logger from the log section.
func newLogger(c *Config, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return nil, fmt.Errorf("%w: log level: %w", dropout.ErrConfiguration, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
