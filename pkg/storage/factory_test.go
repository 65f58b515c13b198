package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderMemory(t *testing.T) {
	provider, err := NewProvider(ProviderConfig{Type: MemoryProviderType})
	require.NoError(t, err)
	assert.IsType(t, &MemoryProvider{}, provider)
}

func TestNewProviderBadger(t *testing.T) {
	provider, err := NewProvider(ProviderConfig{
		Type:   BadgerProviderType,
		Badger: &BadgerProviderConfig{Path: t.TempDir()},
	})
	require.NoError(t, err)
	assert.IsType(t, &BadgerProvider{}, provider)
}

func TestNewProviderMissingConfig(t *testing.T) {
	tests := []struct {
		name   string
		config ProviderConfig
	}{
		{"badger without config", ProviderConfig{Type: BadgerProviderType}},
		{"redis without config", ProviderConfig{Type: RedisProviderType}},
		{"postgresql without config", ProviderConfig{Type: PostgreSQLProviderType}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(tt.config)
			assert.Error(t, err)
		})
	}
}

func TestNewProviderUnknownType(t *testing.T) {
	_, err := NewProvider(ProviderConfig{Type: "carrier-pigeon"})
	assert.Error(t, err)
}
