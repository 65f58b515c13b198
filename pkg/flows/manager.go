// Package flows owns the document-level collection of flows: lifecycle
// operations, the active-flow pointer, and the durable persistence
// boundary between the in-memory document and storage.
package flows

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/probelab/flowboard/pkg/models"
	"github.com/probelab/flowboard/pkg/storage"
)

// Errors returned by the flow manager
var (
	ErrFlowNotFound  = errors.New("flow not found")
	ErrEmptyFlowName = errors.New("flow name must not be empty")
	ErrLastFlow      = errors.New("cannot delete the last remaining flow")
)

// DefaultPersistDebounce is the quiet period before a dirty document is
// written to storage
const DefaultPersistDebounce = time.Second

// Options configures a Manager
type Options struct {
	// Logger for persistence and lifecycle events
	Logger hclog.Logger

	// PersistDebounce overrides the write quiet period; zero selects
	// DefaultPersistDebounce
	PersistDebounce time.Duration

	// Synchronous writes the document on every mutation instead of
	// debouncing; used by tests and one-shot CLI commands
	Synchronous bool
}

// Manager owns the flows document. All mutation goes through its
// operations; persistence is a debounced, explicitly flushable boundary
// decoupled from in-memory state, and a failing store degrades the session
// to memory-only operation rather than interrupting it.
type Manager struct {
	store       storage.DocumentStore
	doc         models.FlowDocument
	logger      hclog.Logger
	debounce    time.Duration
	synchronous bool
	timer       *time.Timer
	dirty       bool
	mu          sync.Mutex
}

// NewManager creates a manager over the given store. A missing or corrupt
// stored document is replaced by the seed document with one example flow;
// the invariant that at least one flow exists holds from construction on.
func NewManager(store storage.DocumentStore, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	debounce := opts.PersistDebounce
	if debounce <= 0 {
		debounce = DefaultPersistDebounce
	}

	m := &Manager{
		store:       store,
		logger:      logger.Named("flows"),
		debounce:    debounce,
		synchronous: opts.Synchronous,
	}

	doc, err := store.GetDocument()
	switch {
	case err == nil && len(doc.Flows) > 0:
		m.doc = doc
		if _, ok := m.findLocked(doc.ActiveFlowID); !ok {
			m.doc.ActiveFlowID = m.doc.Flows[0].ID
		}
	case errors.Is(err, storage.ErrNotFound):
		m.doc = seedDocument()
		m.markDirtyLocked()
	default:
		if err != nil {
			m.logger.Warn("stored flows document unreadable, starting from seed", "error", err)
		} else {
			m.logger.Warn("stored flows document empty, starting from seed")
		}
		m.doc = seedDocument()
		m.markDirtyLocked()
	}

	return m
}

// Create appends a new empty flow and makes it active
func (m *Manager) Create(name string) (models.Flow, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Flow{}, ErrEmptyFlowName
	}

	now := time.Now().UTC()
	flow := models.Flow{
		ID:        uuid.New().String(),
		Name:      name,
		Nodes:     []models.Node{},
		Edges:     []models.Edge{},
		NodeID:    1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.doc.Flows = append(m.doc.Flows, flow)
	m.doc.ActiveFlowID = flow.ID
	m.markDirtyLocked()
	m.mu.Unlock()

	m.logger.Info("flow created", "id", flow.ID, "name", name)
	return flow.Clone(), nil
}

// Delete removes a flow. Deleting the last remaining flow is refused; when
// the active flow is deleted the pointer falls back to the first remaining
// flow in collection order.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	index := -1
	for i, f := range m.doc.Flows {
		if f.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		return ErrFlowNotFound
	}

	if len(m.doc.Flows) <= 1 {
		return ErrLastFlow
	}

	m.doc.Flows = append(m.doc.Flows[:index], m.doc.Flows[index+1:]...)
	if m.doc.ActiveFlowID == id {
		m.doc.ActiveFlowID = m.doc.Flows[0].ID
	}
	m.markDirtyLocked()

	m.logger.Info("flow deleted", "id", id)
	return nil
}

// Rename changes a flow's name
func (m *Manager) Rename(id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyFlowName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	flow, ok := m.findLocked(id)
	if !ok {
		return ErrFlowNotFound
	}

	flow.Name = name
	flow.UpdatedAt = time.Now().UTC()
	m.markDirtyLocked()
	return nil
}

// Select makes the given flow active
func (m *Manager) Select(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.findLocked(id); !ok {
		return ErrFlowNotFound
	}

	m.doc.ActiveFlowID = id
	m.markDirtyLocked()
	return nil
}

// SaveActiveGraph writes the given graph into the active flow's record
func (m *Manager) SaveActiveGraph(nodes []models.Node, edges []models.Edge, nextNodeID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	flow, ok := m.findLocked(m.doc.ActiveFlowID)
	if !ok {
		return ErrFlowNotFound
	}

	flow.Nodes = models.CloneNodes(nodes)
	flow.Edges = models.CloneEdges(edges)
	flow.NodeID = nextNodeID
	flow.UpdatedAt = time.Now().UTC()
	m.markDirtyLocked()
	return nil
}

// Active returns a copy of the active flow
func (m *Manager) Active() (models.Flow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	flow, ok := m.findLocked(m.doc.ActiveFlowID)
	if !ok {
		return models.Flow{}, ErrFlowNotFound
	}
	return flow.Clone(), nil
}

// Get returns a copy of the flow with the given id
func (m *Manager) Get(id string) (models.Flow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	flow, ok := m.findLocked(id)
	if !ok {
		return models.Flow{}, ErrFlowNotFound
	}
	return flow.Clone(), nil
}

// List returns copies of all flows in collection order
func (m *Manager) List() []models.Flow {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Flow, len(m.doc.Flows))
	for i, f := range m.doc.Flows {
		out[i] = f.Clone()
	}
	return out
}

// Document returns a copy of the whole flows document
func (m *Manager) Document() models.FlowDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.Clone()
}

// Flush writes the document to storage now if it has unsaved changes.
// Write failures are logged and leave the document dirty for a later
// attempt; the in-memory session is unaffected.
func (m *Manager) Flush() error {
	m.mu.Lock()
	if !m.dirty {
		m.mu.Unlock()
		return nil
	}
	snapshot := m.doc.Clone()
	m.dirty = false
	m.mu.Unlock()

	if err := m.store.SaveDocument(snapshot); err != nil {
		m.mu.Lock()
		m.dirty = true
		m.mu.Unlock()
		m.logger.Error("failed to persist flows document, continuing in memory", "error", err)
		return fmt.Errorf("failed to persist flows document: %w", err)
	}
	return nil
}

// Close stops the pending persistence timer and flushes
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()
	return m.Flush()
}

// markDirtyLocked schedules a debounced write; callers hold the lock. Each
// new mutation restarts the quiet-period timer.
func (m *Manager) markDirtyLocked() {
	m.dirty = true

	if m.synchronous {
		snapshot := m.doc.Clone()
		m.dirty = false
		if err := m.store.SaveDocument(snapshot); err != nil {
			m.dirty = true
			m.logger.Error("failed to persist flows document, continuing in memory", "error", err)
		}
		return
	}

	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.debounce, func() { _ = m.Flush() })
}

// findLocked returns a pointer into the flow slice; callers hold the lock
func (m *Manager) findLocked(id string) (*models.Flow, bool) {
	if id == "" {
		return nil, false
	}
	for i := range m.doc.Flows {
		if m.doc.Flows[i].ID == id {
			return &m.doc.Flows[i], true
		}
	}
	return nil, false
}

// seedDocument builds the default document used when nothing is stored:
// a single example flow, active, with two connected nodes.
func seedDocument() models.FlowDocument {
	now := time.Now().UTC()
	flow := models.Flow{
		ID:   uuid.New().String(),
		Name: "Investigation Flow",
		Nodes: []models.Node{
			{
				ID:       "1",
				Type:     "web",
				Position: models.Position{X: 250, Y: 100},
				Data: map[string]interface{}{
					"label":    "Target API",
					"url":      "https://api.target.com",
					"method":   "GET",
					"authType": "bearer",
					"status":   200,
				},
			},
			{
				ID:       "2",
				Type:     "credential",
				Position: models.Position{X: 250, Y: 300},
				Data: map[string]interface{}{
					"label": "API Token",
					"type":  "bearer",
					"value": "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9",
				},
			},
		},
		Edges: []models.Edge{
			{ID: "e1-2", Source: "1", Target: "2", Animated: true},
		},
		NodeID:    3,
		CreatedAt: now,
		UpdatedAt: now,
	}

	return models.FlowDocument{
		Flows:        []models.Flow{flow},
		ActiveFlowID: flow.ID,
	}
}
