package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Sandbox   SandboxConfig   `mapstructure:"sandbox"`
	Security  SecurityConfig  `mapstructure:"security"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Data      DataConfig      `mapstructure:"data"`
	History   HistoryConfig   `mapstructure:"history"`
	Policy    PolicyConfig    `mapstructure:"policy"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	HTTPPort  int    `mapstructure:"http_port"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// SandboxConfig holds sandbox configuration
type SandboxConfig struct {
	Backend    string `mapstructure:"backend"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
	MemoryMB   int    `mapstructure:"memory_mb"`
	WorkerPath string `mapstructure:"worker_path"`
}

// SecurityConfig holds input screening configuration
type SecurityConfig struct {
	MaxInputLength int `mapstructure:"max_input_length"`
}

// GeneratorConfig holds code generation configuration
type GeneratorConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

// DataConfig holds dataset configuration
type DataConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

// HistoryConfig holds query history configuration
type HistoryConfig struct {
	Path       string `mapstructure:"path"`
	MaxEntries int    `mapstructure:"max_entries"`
}

// PolicyConfig holds validation policy configuration
type PolicyConfig struct {
	RulesFile string `mapstructure:"rules_file"`
}

// New loads and validates the application configuration
func New() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set default values
	viper.SetDefault("server.transport", "stdio")
	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("logging.mode", "production")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("sandbox.backend", "process")
	viper.SetDefault("sandbox.timeout_sec", 10)
	viper.SetDefault("sandbox.memory_mb", 512)
	viper.SetDefault("sandbox.worker_path", "")
	viper.SetDefault("security.max_input_length", 1000)
	viper.SetDefault("generator.base_url", "http://localhost:11434/v1")
	viper.SetDefault("generator.model", "qwen2.5-coder:7b")
	viper.SetDefault("generator.timeout_sec", 60)
	viper.SetDefault("data.path", "data/students.csv")
	viper.SetDefault("data.watch", true)
	viper.SetDefault("history.path", "querybox-history.db")
	viper.SetDefault("history.max_entries", 1000)
	viper.SetDefault("policy.rules_file", "")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.Transport != "stdio" && c.Server.Transport != "http" {
		return fmt.Errorf("invalid server.transport: %s, must be 'stdio' or 'http'", c.Server.Transport)
	}

	if c.Sandbox.Backend != "vm" && c.Sandbox.Backend != "process" {
		return fmt.Errorf("unsupported sandbox.backend: %s", c.Sandbox.Backend)
	}

	if c.Sandbox.TimeoutSec <= 0 {
		return fmt.Errorf("sandbox.timeout_sec must be positive, got: %d", c.Sandbox.TimeoutSec)
	}

	if c.Sandbox.MemoryMB <= 0 {
		return fmt.Errorf("sandbox.memory_mb must be positive, got: %d", c.Sandbox.MemoryMB)
	}

	if c.Security.MaxInputLength <= 0 {
		return fmt.Errorf("security.max_input_length must be positive, got: %d", c.Security.MaxInputLength)
	}

	if c.Generator.TimeoutSec <= 0 {
		return fmt.Errorf("generator.timeout_sec must be positive, got: %d", c.Generator.TimeoutSec)
	}

	if c.Data.Path == "" {
		return fmt.Errorf("data.path must not be empty")
	}

	if c.History.MaxEntries <= 0 {
		return fmt.Errorf("history.max_entries must be positive, got: %d", c.History.MaxEntries)
	}

	return nil
}

// GetTimeout returns the execution timeout as a duration
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.Sandbox.TimeoutSec) * time.Second
}

// GetGeneratorTimeout returns the generation timeout as a duration
func (c *Config) GetGeneratorTimeout() time.Duration {
	return time.Duration(c.Generator.TimeoutSec) * time.Second
}
