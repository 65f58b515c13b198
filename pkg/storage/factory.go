package storage

import (
	"fmt"
)

// ProviderType represents the type of storage provider
type ProviderType string

const (
	// MemoryProviderType is an in-memory storage provider
	MemoryProviderType ProviderType = "memory"

	// BadgerProviderType is an embedded Badger storage provider
	BadgerProviderType ProviderType = "badger"

	// RedisProviderType is a Redis storage provider
	RedisProviderType ProviderType = "redis"

	// PostgreSQLProviderType is a PostgreSQL storage provider
	PostgreSQLProviderType ProviderType = "postgresql"
)

// ProviderConfig contains configuration for storage providers
type ProviderConfig struct {
	// Type is the type of storage provider to create
	Type ProviderType

	// Badger contains configuration for the Badger provider
	Badger *BadgerProviderConfig

	// Redis contains configuration for the Redis provider
	Redis *RedisProviderConfig

	// PostgreSQL contains configuration for the PostgreSQL provider
	PostgreSQL *PostgreSQLProviderConfig
}

// NewProvider creates a new storage provider based on the configuration
func NewProvider(config ProviderConfig) (StorageProvider, error) {
	switch config.Type {
	case MemoryProviderType:
		return NewMemoryProvider(), nil

	case BadgerProviderType:
		if config.Badger == nil {
			return nil, fmt.Errorf("badger configuration is required for badger provider")
		}
		return NewBadgerProvider(*config.Badger)

	case RedisProviderType:
		if config.Redis == nil {
			return nil, fmt.Errorf("redis configuration is required for redis provider")
		}
		return NewRedisProvider(*config.Redis)

	case PostgreSQLProviderType:
		if config.PostgreSQL == nil {
			return nil, fmt.Errorf("PostgreSQL configuration is required for PostgreSQL provider")
		}
		return NewPostgreSQLProvider(*config.PostgreSQL)

	default:
		return nil, fmt.Errorf("unknown provider type: %s", config.Type)
	}
}
