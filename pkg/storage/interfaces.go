// Package storage provides interfaces for persistent storage of the flows
// document and the custom node type registry.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/probelab/flowboard/pkg/models"
)

// Errors returned by storage providers
var (
	// ErrNotFound indicates the requested key has never been written
	ErrNotFound = errors.New("not found in storage")
)

// Storage keys. The flows document and the custom node registry live under
// independent keys so custom types survive flow deletion and creation.
const (
	flowsKey       = "flowboard:flows"
	customNodesKey = "flowboard:custom-nodes"
)

// StorageProvider defines the interface for persistence backends
type StorageProvider interface {
	// Initialize sets up the storage backend
	Initialize() error

	// Close cleans up resources
	Close() error

	// GetDocumentStore returns a store for the flows document
	GetDocumentStore() DocumentStore

	// GetCustomNodeStore returns a store for custom node type definitions
	GetCustomNodeStore() CustomNodeStore
}

// DocumentStore manages flows document persistence
type DocumentStore interface {
	// SaveDocument persists the whole flows document
	SaveDocument(doc models.FlowDocument) error

	// GetDocument retrieves the flows document; returns ErrNotFound when
	// the document has never been saved
	GetDocument() (models.FlowDocument, error)
}

// CustomNodeStore manages custom node type persistence
type CustomNodeStore interface {
	// SaveCustomNodes persists the whole custom node registry
	SaveCustomNodes(reg models.CustomNodeStorage) error

	// GetCustomNodes retrieves the custom node registry; returns
	// ErrNotFound when it has never been saved
	GetCustomNodes() (models.CustomNodeStorage, error)
}

// kvClient is the minimal key-value surface a backend must expose. Both
// typed stores are implemented once on top of it.
type kvClient interface {
	get(key string) ([]byte, error)
	put(key string, value []byte) error
}

// documentStore implements DocumentStore over a kvClient
type documentStore struct {
	kv kvClient
}

// SaveDocument persists the whole flows document
func (s *documentStore) SaveDocument(doc models.FlowDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal flows document: %w", err)
	}
	return s.kv.put(flowsKey, data)
}

// GetDocument retrieves the flows document
func (s *documentStore) GetDocument() (models.FlowDocument, error) {
	data, err := s.kv.get(flowsKey)
	if err != nil {
		return models.FlowDocument{}, err
	}

	var doc models.FlowDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.FlowDocument{}, fmt.Errorf("failed to parse flows document: %w", err)
	}
	return doc, nil
}

// customNodeStore implements CustomNodeStore over a kvClient
type customNodeStore struct {
	kv kvClient
}

// SaveCustomNodes persists the whole custom node registry
func (s *customNodeStore) SaveCustomNodes(reg models.CustomNodeStorage) error {
	data, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("failed to marshal custom nodes: %w", err)
	}
	return s.kv.put(customNodesKey, data)
}

// GetCustomNodes retrieves the custom node registry
func (s *customNodeStore) GetCustomNodes() (models.CustomNodeStorage, error) {
	data, err := s.kv.get(customNodesKey)
	if err != nil {
		return models.CustomNodeStorage{}, err
	}

	var reg models.CustomNodeStorage
	if err := json.Unmarshal(data, &reg); err != nil {
		return models.CustomNodeStorage{}, fmt.Errorf("failed to parse custom nodes: %w", err)
	}
	return reg, nil
}
