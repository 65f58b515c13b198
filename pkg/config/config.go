// Package config provides configuration handling for flowboard.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server"`

	// Storage configuration
	Storage StorageConfig `json:"storage"`

	// Editor configuration
	Editor EditorConfig `json:"editor"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	// Host to bind to
	Host string `json:"host"`

	// Port to listen on
	Port int `json:"port"`
}

// StorageConfig contains storage settings
type StorageConfig struct {
	// Type of storage to use
	Type string `json:"type"` // "memory", "badger", "redis", "postgresql"

	// Badger configuration
	Badger BadgerConfig `json:"badger"`

	// Redis configuration
	Redis RedisConfig `json:"redis"`

	// PostgreSQL configuration
	Postgres PostgresConfig `json:"postgres"`
}

// BadgerConfig contains Badger settings
type BadgerConfig struct {
	// Path is the on-disk database directory
	Path string `json:"path"`
}

// RedisConfig contains Redis settings
type RedisConfig struct {
	// Addr is the host:port of the Redis server
	Addr string `json:"addr"`

	// Password for the Redis server, if any
	Password string `json:"password"`

	// DB is the Redis database number
	DB int `json:"db"`
}

// PostgresConfig contains PostgreSQL settings
type PostgresConfig struct {
	// Host is the database host
	Host string `json:"host"`

	// Port is the database port
	Port int `json:"port"`

	// Database is the database name
	Database string `json:"database"`

	// User is the database user
	User string `json:"user"`

	// Password is the database password
	Password string `json:"password"`

	// SSLMode is the SSL mode
	SSLMode string `json:"ssl_mode"`
}

// EditorConfig contains editor session tuning
type EditorConfig struct {
	// MaxHistorySize is the number of undo snapshots kept per session
	MaxHistorySize int `json:"max_history_size"`

	// SnapshotDebounceMs is the quiet period before a burst of canvas
	// edits is recorded as one undo step
	SnapshotDebounceMs int `json:"snapshot_debounce_ms"`

	// PersistDebounceMs is the quiet period before dirty flows are
	// written to storage
	PersistDebounceMs int `json:"persist_debounce_ms"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	// Level is the logging level
	Level string `json:"level"` // "debug", "info", "warn", "error"

	// Format is the log format
	Format string `json:"format"` // "json", "text"

	// Output is the log output
	Output string `json:"output"` // "stdout", "file"

	// FilePath is the path to the log file
	FilePath string `json:"file_path"`
}

// LoadConfig loads the configuration from a file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Storage: StorageConfig{
			Type: "memory",
			Badger: BadgerConfig{
				Path: "./data/flowboard",
			},
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "flowboard",
				User:     "flowboard",
				SSLMode:  "disable",
			},
		},
		Editor: EditorConfig{
			MaxHistorySize:     50,
			SnapshotDebounceMs: 500,
			PersistDebounceMs:  1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// SaveConfig saves the configuration to a file
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
