//-------------------------------------------------------------------------
//
// pgEdge Retail ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-retail-etl.
// Configuration is loaded from config files and CLI flags (no environment variables).
// CLI flags take precedence over config file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/pgEdge/pgedge-retail-etl/internal/source"
)

// Config holds all configuration for pgedge-retail-etl.
type Config struct {
	// Connection is the PostgreSQL connection string.
	Connection string `mapstructure:"connection"`

	// CSVPath is the retail transactions file loaded by the run command.
	CSVPath string `mapstructure:"csv_path"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// Load holds configuration for the staging load.
	Load LoadConfig `mapstructure:"load"`

	// Generate holds configuration for the generate subcommand.
	Generate GenerateConfig `mapstructure:"generate"`

	// Report holds configuration for the report subcommand.
	Report ReportConfig `mapstructure:"report"`
}

// LoadConfig holds configuration for the CSV to staging load.
type LoadConfig struct {
	// BatchSize is the number of rows sent per COPY batch.
	BatchSize int `mapstructure:"batch_size"`

	// ProgressInterval is how often to log progress (in rows).
	ProgressInterval int64 `mapstructure:"progress_interval"`
}

// GenerateConfig holds configuration for synthetic CSV generation.
type GenerateConfig struct {
	// Output is the path of the CSV file to write.
	Output string `mapstructure:"output"`

	// Rows is the number of transactions to generate.
	Rows int `mapstructure:"rows"`

	// Customers is the size of the customer pool. Zero gives every
	// transaction its own customer, as in the public dataset.
	Customers int `mapstructure:"customers"`

	// Seed makes generation reproducible (0 = random).
	Seed uint64 `mapstructure:"seed"`

	// StartDate and EndDate bound the transaction dates (YYYY-MM-DD).
	StartDate string `mapstructure:"start_date"`
	EndDate   string `mapstructure:"end_date"`
}

// ReportConfig holds configuration for the report subcommand.
type ReportConfig struct {
	// Limit caps the number of rows printed per report section.
	Limit int `mapstructure:"limit"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		CSVPath:  "data/retail_sales_dataset.csv",
		LogLevel: "info",
		Load: LoadConfig{
			BatchSize:        1000,
			ProgressInterval: 10000,
		},
		Generate: GenerateConfig{
			Output:    "data/retail_sales_dataset.csv",
			Rows:      1000,
			StartDate: "2023-01-01",
			EndDate:   "2023-12-31",
		},
		Report: ReportConfig{
			Limit: 12,
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-retail-etl.yaml
// 3. ~/.config/pgedge-retail-etl/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("pgedge-retail-etl")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-retail-etl"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Connection == "" {
		return fmt.Errorf("connection string is required")
	}
	return nil
}

// ValidateRun checks configuration required for the run command.
func (c *Config) ValidateRun() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.CSVPath == "" {
		return fmt.Errorf("csv_path is required")
	}
	if c.Load.BatchSize < 1 {
		return fmt.Errorf("load.batch_size must be at least 1")
	}
	if c.Load.ProgressInterval < 1 {
		return fmt.Errorf("load.progress_interval must be at least 1")
	}
	return nil
}

// ValidateGenerate checks configuration required for the generate command.
// It does not need a database connection.
func (c *Config) ValidateGenerate() error {
	g := c.Generate
	if g.Output == "" {
		return fmt.Errorf("generate.output is required")
	}
	if g.Rows < 1 {
		return fmt.Errorf("generate.rows must be at least 1")
	}
	if g.Customers < 0 {
		return fmt.Errorf("generate.customers must be non-negative")
	}
	start, end, err := g.DateRange()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("generate.end_date must not be before generate.start_date")
	}
	return nil
}

// DateRange parses the generate start and end dates in the same format as
// the CSV Date column.
func (g GenerateConfig) DateRange() (time.Time, time.Time, error) {
	start, err := source.ParseDate(g.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid generate.start_date %q: %w", g.StartDate, err)
	}
	end, err := source.ParseDate(g.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid generate.end_date %q: %w", g.EndDate, err)
	}
	return start.Time, end.Time, nil
}
