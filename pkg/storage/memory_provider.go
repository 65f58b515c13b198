package storage

import "sync"

// MemoryProvider implements the StorageProvider interface using in-memory
// storage. State does not survive process restart; it exists for tests and
// for degraded, persistence-less operation.
type MemoryProvider struct {
	kv *memoryKV
}

// NewMemoryProvider creates a new in-memory storage provider
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		kv: &memoryKV{values: make(map[string][]byte)},
	}
}

// Initialize sets up the storage backend
func (p *MemoryProvider) Initialize() error {
	// Nothing to initialize for in-memory storage
	return nil
}

// Close cleans up resources
func (p *MemoryProvider) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

// GetDocumentStore returns a store for the flows document
func (p *MemoryProvider) GetDocumentStore() DocumentStore {
	return &documentStore{kv: p.kv}
}

// GetCustomNodeStore returns a store for custom node type definitions
func (p *MemoryProvider) GetCustomNodeStore() CustomNodeStore {
	return &customNodeStore{kv: p.kv}
}

// memoryKV is a mutex-guarded in-memory key-value map
type memoryKV struct {
	values map[string][]byte
	mu     sync.RWMutex
}

func (m *memoryKV) get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}

	// Copy so callers cannot mutate stored state
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *memoryKV) put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.values[key] = stored

	return nil
}
