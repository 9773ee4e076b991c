// Package config loads the yaml configuration for the rjq binaries.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete worker configuration.
type Config struct {
	Redis   RedisConfig   `yaml:"redis"`
	Worker  WorkerConfig  `yaml:"worker"`
	Archive ArchiveConfig `yaml:"archive"`
	Logging LoggingConfig `yaml:"logging"`
}

// RedisConfig holds the Redis connection and queue identity.
type RedisConfig struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

// WorkerConfig holds the worker loop knobs.
type WorkerConfig struct {
	Wait          time.Duration `yaml:"wait"`
	Timeout       time.Duration `yaml:"timeout"`
	PollFrequency int           `yaml:"poll_frequency"`
	ResultExpire  time.Duration `yaml:"result_expire"`
	FatalOnLost   bool          `yaml:"fatal_on_lost"`
}

// ArchiveConfig enables the optional SQL audit trail. Disabled when DSN is
// empty.
type ArchiveConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Redis.URL == "" {
		return fmt.Errorf("redis url is required")
	}

	if c.Redis.Queue == "" {
		return fmt.Errorf("redis queue name is required")
	}

	if c.Worker.Wait <= 0 {
		return fmt.Errorf("worker wait must be greater than 0")
	}

	if c.Worker.Timeout <= 0 {
		return fmt.Errorf("worker timeout must be greater than 0")
	}

	if c.Worker.PollFrequency <= 0 {
		return fmt.Errorf("worker poll_frequency must be greater than 0")
	}

	if c.Worker.ResultExpire <= 0 {
		return fmt.Errorf("worker result_expire must be greater than 0")
	}

	if c.Archive.DSN != "" && c.Archive.Driver == "" {
		return fmt.Errorf("archive driver is required when dsn is set")
	}

	return nil
}
