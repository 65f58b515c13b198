// Package registry manages custom node type definitions and resolves node
// type tags (builtin or custom) into renderable type descriptors.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/probelab/flowboard/pkg/models"
	"github.com/probelab/flowboard/pkg/storage"
)

// Errors returned by the custom node registry
var (
	ErrDefinitionNotFound = errors.New("custom node type not found")
	ErrInvalidDefinition  = errors.New("invalid custom node type definition")
)

// CustomNodeRegistry owns the set of user-authored node type definitions.
// Its lifecycle is independent of the flows document: definitions survive
// flow deletion and creation.
type CustomNodeRegistry struct {
	store  storage.CustomNodeStore
	defs   []models.CustomNodeDefinition
	logger hclog.Logger
	mu     sync.RWMutex
}

// NewCustomNodeRegistry creates a registry backed by the given store and
// loads any previously persisted definitions. A corrupt or missing stored
// registry yields an empty one; the session keeps working either way.
func NewCustomNodeRegistry(store storage.CustomNodeStore, logger hclog.Logger) *CustomNodeRegistry {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	r := &CustomNodeRegistry{
		store:  store,
		logger: logger.Named("registry"),
	}

	stored, err := store.GetCustomNodes()
	switch {
	case err == nil:
		r.defs = stored.CustomNodes
	case errors.Is(err, storage.ErrNotFound):
		// First run, nothing persisted yet
	default:
		r.logger.Warn("failed to load custom node types, starting empty", "error", err)
	}

	return r
}

// Upsert validates and stores a definition. An existing id is replaced in
// place; a new one is appended. Missing id and creation time are filled in.
// The full registry is persisted after the mutation; persistence failures
// are logged and the in-memory registry keeps the change.
func (r *CustomNodeRegistry) Upsert(def models.CustomNodeDefinition) (models.CustomNodeDefinition, error) {
	if err := ValidateDefinition(def); err != nil {
		return models.CustomNodeDefinition{}, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	if def.ID == "" {
		def.ID = uuid.New().String()
	}
	if def.CreatedAt.IsZero() {
		def.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	replaced := false
	for i, existing := range r.defs {
		if existing.ID == def.ID {
			r.defs[i] = def
			replaced = true
			break
		}
	}
	if !replaced {
		r.defs = append(r.defs, def)
	}
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	r.persist(snapshot)
	r.logger.Debug("custom node type stored", "id", def.ID, "name", def.Name, "replaced", replaced)

	return def, nil
}

// Resolve returns the definition for the given id
func (r *CustomNodeRegistry) Resolve(id string) (models.CustomNodeDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, def := range r.defs {
		if def.ID == id {
			return def.Clone(), nil
		}
	}
	return models.CustomNodeDefinition{}, ErrDefinitionNotFound
}

// List returns all definitions in registration order
func (r *CustomNodeRegistry) List() []models.CustomNodeDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.CustomNodeDefinition, len(r.defs))
	for i, def := range r.defs {
		out[i] = def.Clone()
	}
	return out
}

// Delete removes a definition by id
func (r *CustomNodeRegistry) Delete(id string) error {
	r.mu.Lock()
	index := -1
	for i, def := range r.defs {
		if def.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		r.mu.Unlock()
		return ErrDefinitionNotFound
	}
	r.defs = append(r.defs[:index], r.defs[index+1:]...)
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	r.persist(snapshot)
	return nil
}

// snapshotLocked copies the registry for persistence; callers hold the lock
func (r *CustomNodeRegistry) snapshotLocked() models.CustomNodeStorage {
	defs := make([]models.CustomNodeDefinition, len(r.defs))
	for i, def := range r.defs {
		defs[i] = def.Clone()
	}
	return models.CustomNodeStorage{CustomNodes: defs}
}

// persist writes the registry; failures degrade to memory-only operation
func (r *CustomNodeRegistry) persist(reg models.CustomNodeStorage) {
	if err := r.store.SaveCustomNodes(reg); err != nil {
		r.logger.Error("failed to persist custom node types, continuing in memory", "error", err)
	}
}
