package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgreSQLProviderConfig contains configuration for the PostgreSQL provider
type PostgreSQLProviderConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// PostgreSQLProvider implements the StorageProvider interface using a
// single key-value table in PostgreSQL
type PostgreSQLProvider struct {
	config PostgreSQLProviderConfig
	db     *sql.DB
}

// NewPostgreSQLProvider creates a new PostgreSQL storage provider
func NewPostgreSQLProvider(config PostgreSQLProviderConfig) (*PostgreSQLProvider, error) {
	// Set default port if not specified
	if config.Port == 0 {
		config.Port = 5432
	}

	// Set default SSL mode if not specified
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	return &PostgreSQLProvider{config: config}, nil
}

// Initialize connects to the database and creates the key-value table
func (p *PostgreSQLProvider) Initialize() error {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.config.Host, p.config.Port, p.config.User, p.config.Password,
		p.config.Database, p.config.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS flowboard_kv (
			key TEXT PRIMARY KEY,
			value JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create key-value table: %w", err)
	}

	p.db = db
	return nil
}

// Close closes the database connection
func (p *PostgreSQLProvider) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

// GetDocumentStore returns a store for the flows document
func (p *PostgreSQLProvider) GetDocumentStore() DocumentStore {
	return &documentStore{kv: &postgresKV{db: p.db}}
}

// GetCustomNodeStore returns a store for custom node type definitions
func (p *PostgreSQLProvider) GetCustomNodeStore() CustomNodeStore {
	return &customNodeStore{kv: &postgresKV{db: p.db}}
}

// postgresKV adapts the key-value table to the kvClient surface
type postgresKV struct {
	db *sql.DB
}

func (p *postgresKV) get(key string) ([]byte, error) {
	var value []byte
	err := p.db.QueryRow(
		"SELECT value FROM flowboard_kv WHERE key = $1", key,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres read failed: %w", err)
	}
	return value, nil
}

func (p *postgresKV) put(key string, value []byte) error {
	_, err := p.db.Exec(`
		INSERT INTO flowboard_kv (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()
	`, key, value)
	if err != nil {
		return fmt.Errorf("postgres write failed: %w", err)
	}
	return nil
}
