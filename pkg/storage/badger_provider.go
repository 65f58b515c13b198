package storage

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
)

// BadgerProviderConfig contains configuration for the Badger provider
type BadgerProviderConfig struct {
	// Path is the directory holding the database files
	Path string

	// InMemory runs the database without touching disk (tests)
	InMemory bool
}

// BadgerProvider implements the StorageProvider interface using an embedded
// Badger key-value database. This is the default durable backend: local,
// single-client, no external service.
type BadgerProvider struct {
	config BadgerProviderConfig
	db     *badger.DB
}

// NewBadgerProvider creates a new Badger storage provider
func NewBadgerProvider(config BadgerProviderConfig) (*BadgerProvider, error) {
	if config.Path == "" && !config.InMemory {
		return nil, fmt.Errorf("badger provider requires a database path")
	}
	return &BadgerProvider{config: config}, nil
}

// Initialize opens the database
func (p *BadgerProvider) Initialize() error {
	opts := badger.DefaultOptions(p.config.Path).
		WithLoggingLevel(badger.ERROR)
	if p.config.InMemory {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open badger database: %w", err)
	}

	p.db = db
	return nil
}

// Close closes the database
func (p *BadgerProvider) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

// GetDocumentStore returns a store for the flows document
func (p *BadgerProvider) GetDocumentStore() DocumentStore {
	return &documentStore{kv: &badgerKV{db: p.db}}
}

// GetCustomNodeStore returns a store for custom node type definitions
func (p *BadgerProvider) GetCustomNodeStore() CustomNodeStore {
	return &customNodeStore{kv: &badgerKV{db: p.db}}
}

// badgerKV adapts a badger.DB to the kvClient surface
type badgerKV struct {
	db *badger.DB
}

func (b *badgerKV) get(key string) ([]byte, error) {
	var value []byte

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger read failed: %w", err)
	}

	return value, nil
}

func (b *badgerKV) put(key string, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("badger write failed: %w", err)
	}
	return nil
}
