package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisProviderConfig contains configuration for the Redis provider
type RedisProviderConfig struct {
	// Addr is the host:port of the Redis server
	Addr string

	// Password for the Redis server, if any
	Password string

	// DB is the Redis database number
	DB int
}

// RedisProvider implements the StorageProvider interface using Redis
type RedisProvider struct {
	config RedisProviderConfig
	client *redis.Client
}

// NewRedisProvider creates a new Redis storage provider
func NewRedisProvider(config RedisProviderConfig) (*RedisProvider, error) {
	if config.Addr == "" {
		return nil, fmt.Errorf("redis provider requires an address")
	}
	return &RedisProvider{config: config}, nil
}

// Initialize connects to Redis and verifies the connection
func (p *RedisProvider) Initialize() error {
	p.client = redis.NewClient(&redis.Options{
		Addr:     p.config.Addr,
		Password: p.config.Password,
		DB:       p.config.DB,
	})

	if err := p.client.Ping(context.Background()).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (p *RedisProvider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

// GetDocumentStore returns a store for the flows document
func (p *RedisProvider) GetDocumentStore() DocumentStore {
	return &documentStore{kv: &redisKV{client: p.client}}
}

// GetCustomNodeStore returns a store for custom node type definitions
func (p *RedisProvider) GetCustomNodeStore() CustomNodeStore {
	return &customNodeStore{kv: &redisKV{client: p.client}}
}

// redisKV adapts a redis client to the kvClient surface
type redisKV struct {
	client *redis.Client
}

func (r *redisKV) get(key string) ([]byte, error) {
	value, err := r.client.Get(context.Background(), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis read failed: %w", err)
	}
	return value, nil
}

func (r *redisKV) put(key string, value []byte) error {
	if err := r.client.Set(context.Background(), key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis write failed: %w", err)
	}
	return nil
}
