// Package config holds the run configuration: which engine to benchmark, how
// to reach it, and where the dataset and result log live.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var engines = map[string]bool{"mysql": true, "postgres": true, "sqlite": true}

// Connection describes how to reach the relational store. Fields can be
// overridden from the environment so credentials stay out of the yaml file.
type Connection struct {
	Host     string `yaml:"host" env:"BENCH_DB_HOST"`
	Port     int    `yaml:"port" env:"BENCH_DB_PORT"`
	User     string `yaml:"user" env:"BENCH_DB_USER"`
	Password string `yaml:"password" env:"BENCH_DB_PASSWORD"`
	Database string `yaml:"database" env:"BENCH_DB_NAME"`
	SSLMode  string `yaml:"sslMode" env:"BENCH_DB_SSLMODE"`
	// Path is the database file for the sqlite engine
	Path string `yaml:"path" env:"BENCH_DB_PATH"`
}

type Config struct {
	Engine            string     `yaml:"engine"`
	Connection        Connection `yaml:"connection"`
	Table             string     `yaml:"table"`
	Dataset           string     `yaml:"dataset"`
	ResultLog         string     `yaml:"resultLog"`
	Runs              int        `yaml:"runs"`
	TruncateBeforeRun bool       `yaml:"truncateBeforeRun"`
	VacuumAfterRun    bool       `yaml:"vacuumAfterRun"`
	FileData          []byte     `yaml:"-"` // config file contents
}

func Default() *Config {
	return &Config{
		Engine: "mysql",
		Connection: Connection{
			Host:     "localhost",
			User:     "user",
			Database: "benchmark_db",
		},
		Table:             "steam_games",
		Dataset:           "data/steam_games_complete.csv",
		ResultLog:         "results.csv",
		Runs:              1,
		TruncateBeforeRun: true,
	}
}

// Load reads the yaml file at path over the defaults, then applies the
// optional .env file and the BENCH_DB_* environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("missing config file")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := env.Parse(&cfg.Connection); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return cfg, cfg.Validate()
}

// Parse decodes yaml config data over the defaults without touching the
// environment.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.FileData = data
	return cfg, nil
}

func (c *Config) Validate() error {
	if !engines[c.Engine] {
		return fmt.Errorf("unknown engine %q", c.Engine)
	}
	if !ValidIdentifier(c.Table) {
		return fmt.Errorf("invalid table name %q", c.Table)
	}
	if c.Runs < 1 {
		return fmt.Errorf("runs must be at least 1, got %d", c.Runs)
	}
	if c.ResultLog == "" {
		return errors.New("resultLog is required")
	}
	if c.Engine == "sqlite" && c.Connection.Path == "" {
		return errors.New("connection.path is required for the sqlite engine")
	}
	return nil
}

// ValidIdentifier reports whether name can be spliced into SQL as a table or
// column name.
func ValidIdentifier(name string) bool {
	return identifier.MatchString(name)
}
