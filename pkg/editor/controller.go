// Package editor is the interaction layer between the canvas and the flow
// document: it owns the live session graph for the active flow, applies
// canvas change events, and drives history and persistence.
package editor

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/probelab/flowboard/pkg/flows"
	"github.com/probelab/flowboard/pkg/history"
	"github.com/probelab/flowboard/pkg/models"
	"github.com/probelab/flowboard/pkg/registry"
)

// Errors returned by the controller
var (
	ErrNodeNotFound      = errors.New("node not found")
	ErrInvalidConnection = errors.New("invalid connection")
	ErrInvalidImport     = errors.New("invalid import data")
)

// DefaultSnapshotDebounce is the quiet period after a graph edit before a
// history snapshot is recorded, so a drag gesture or burst of edits
// collapses into a single undo step
const DefaultSnapshotDebounce = 500 * time.Millisecond

// Options configures a Controller
type Options struct {
	// Logger for session events
	Logger hclog.Logger

	// MaxHistorySize bounds the undo history; zero selects the history
	// package default
	MaxHistorySize int

	// SnapshotDebounce overrides the snapshot quiet period; zero selects
	// DefaultSnapshotDebounce, negative records a snapshot on every edit
	// (tests)
	SnapshotDebounce time.Duration
}

// Controller translates canvas events and user commands into flow-store
// and history operations. It is the sole mutator of the live session graph.
type Controller struct {
	flows    *flows.Manager
	registry *registry.CustomNodeRegistry
	hist     *history.History
	logger   hclog.Logger

	flowID     string
	nodes      []models.Node
	edges      []models.Edge
	nextNodeID int

	snapshotDebounce time.Duration
	snapshotTimer    *time.Timer
	snapshotGen      uint64
	maxHistorySize   int

	subscribers map[int]chan GraphUpdate
	nextSubID   int

	rng *rand.Rand
	mu  sync.Mutex
}

// NewController creates a controller and loads the active flow's graph
// into the session
func NewController(flowMgr *flows.Manager, reg *registry.CustomNodeRegistry, opts Options) (*Controller, error) {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	debounce := opts.SnapshotDebounce
	if debounce == 0 {
		debounce = DefaultSnapshotDebounce
	}

	c := &Controller{
		flows:            flowMgr,
		registry:         reg,
		logger:           logger.Named("editor"),
		snapshotDebounce: debounce,
		maxHistorySize:   opts.MaxHistorySize,
		subscribers:      make(map[int]chan GraphUpdate),
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	active, err := flowMgr.Active()
	if err != nil {
		return nil, fmt.Errorf("failed to load active flow: %w", err)
	}
	c.loadFlowLocked(active)
	c.hist = history.New(models.GraphState{Nodes: c.nodes, Edges: c.edges}, opts.MaxHistorySize)

	return c, nil
}

// AddNode creates a node of the given type. A nil position places the node
// at a randomized spot within the default viewport region. Unknown types
// degrade to the fallback descriptor rather than failing.
func (c *Controller) AddNode(typeTag string, pos *models.Position) (models.Node, error) {
	nt := c.registry.ResolveType(typeTag)
	if !nt.Known {
		c.logger.Warn("adding node of unresolved type", "type", typeTag)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	position := models.Position{}
	if pos != nil {
		position = *pos
	} else {
		position.X = c.rng.Float64()*400 + 100
		position.Y = c.rng.Float64()*400 + 100
	}

	node := models.Node{
		ID:       strconv.Itoa(c.nextNodeID),
		Type:     typeTag,
		Position: position,
		Data:     nt.DefaultData(),
	}
	c.nextNodeID++
	c.nodes = append(c.nodes, node)

	c.afterChangeLocked()
	return node.Clone(), nil
}

// Connect appends an edge between two existing nodes
func (c *Controller) Connect(source, target string) (models.Edge, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if source == target {
		return models.Edge{}, fmt.Errorf("%w: self connections are not allowed", ErrInvalidConnection)
	}
	if c.findNodeLocked(source) == nil || c.findNodeLocked(target) == nil {
		return models.Edge{}, fmt.Errorf("%w: both endpoints must exist", ErrInvalidConnection)
	}
	for _, e := range c.edges {
		if e.Source == source && e.Target == target {
			return models.Edge{}, fmt.Errorf("%w: edge already exists", ErrInvalidConnection)
		}
	}

	edge := models.Edge{
		ID:       fmt.Sprintf("e%s-%s", source, target),
		Source:   source,
		Target:   target,
		Animated: true,
	}
	c.edges = append(c.edges, edge)

	c.afterChangeLocked()
	return edge, nil
}

// ApplyNodeChanges applies a batch of node change events from the canvas
func (c *Controller) ApplyNodeChanges(changes []NodeChange) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mutated := false
	removed := false

	for _, change := range changes {
		node := c.findNodeLocked(change.ID)
		if node == nil {
			continue
		}

		switch change.Type {
		case NodeChangePosition:
			if change.Position != nil {
				node.Position = *change.Position
				mutated = true
			}

		case NodeChangeDimensions:
			// The canvas layout state is not the source of truth; the
			// dimensions are written into data so they survive reloads
			if change.Width != nil {
				node.Data["width"] = *change.Width
				mutated = true
			}
			if change.Height != nil {
				node.Data["height"] = *change.Height
				mutated = true
			}

		case NodeChangeSelect:
			if change.Selected != nil {
				node.Selected = *change.Selected
				mutated = true
			}

		case NodeChangeRemove:
			c.removeNodeLocked(change.ID)
			mutated = true
			removed = true
		}
	}

	if removed {
		c.removeDanglingEdgesLocked()
	}
	if mutated {
		c.afterChangeLocked()
	}
}

// ApplyEdgeChanges applies a batch of edge change events from the canvas
func (c *Controller) ApplyEdgeChanges(changes []EdgeChange) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mutated := false
	for _, change := range changes {
		switch change.Type {
		case EdgeChangeSelect:
			for i := range c.edges {
				if c.edges[i].ID == change.ID && change.Selected != nil {
					c.edges[i].Selected = *change.Selected
					mutated = true
				}
			}

		case EdgeChangeRemove:
			before := len(c.edges)
			c.removeEdgeLocked(change.ID)
			if len(c.edges) != before {
				mutated = true
			}
		}
	}

	if mutated {
		c.afterChangeLocked()
	}
}

// DeleteSelection removes all selected nodes and edges in one logical
// operation, including edges left dangling by node removal even when those
// edges were not themselves selected. Returns the number of nodes and
// edges removed; (0, 0) means nothing was selected and no state changed.
func (c *Controller) DeleteSelection() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	selectedNodes := make(map[string]bool)
	for _, n := range c.nodes {
		if n.Selected {
			selectedNodes[n.ID] = true
		}
	}

	anyEdgeSelected := false
	for _, e := range c.edges {
		if e.Selected {
			anyEdgeSelected = true
			break
		}
	}

	if len(selectedNodes) == 0 && !anyEdgeSelected {
		return 0, 0
	}

	keptNodes := c.nodes[:0]
	for _, n := range c.nodes {
		if !selectedNodes[n.ID] {
			keptNodes = append(keptNodes, n)
		}
	}
	nodesRemoved := len(c.nodes) - len(keptNodes)
	c.nodes = keptNodes

	remaining := make(map[string]bool, len(c.nodes))
	for _, n := range c.nodes {
		remaining[n.ID] = true
	}

	keptEdges := c.edges[:0]
	for _, e := range c.edges {
		if e.Selected || !remaining[e.Source] || !remaining[e.Target] {
			continue
		}
		keptEdges = append(keptEdges, e)
	}
	edgesRemoved := len(c.edges) - len(keptEdges)
	c.edges = keptEdges

	c.afterChangeLocked()
	c.logger.Debug("selection deleted", "nodes", nodesRemoved, "edges", edgesRemoved)
	return nodesRemoved, edgesRemoved
}

// ClearCanvas removes every node and edge from the active graph. The id
// counter keeps advancing so undone nodes never collide with new ones.
func (c *Controller) ClearCanvas() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.nodes) == 0 && len(c.edges) == 0 {
		return
	}
	c.nodes = []models.Node{}
	c.edges = []models.Edge{}
	c.afterChangeLocked()
}

// Undo steps history back and applies the prior state to the session.
// Returns false at the history boundary.
func (c *Controller) Undo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Commit any pending burst first, so undo steps back from the state
	// the user sees rather than skipping over it
	c.flushSnapshotLocked()

	ok := c.hist.Undo(func(state models.GraphState) {
		c.nodes = state.Nodes
		c.edges = state.Edges
	})
	if !ok {
		return false
	}

	c.persistLocked()
	c.notifyLocked()
	return true
}

// Redo steps history forward. Returns false at the history boundary.
func (c *Controller) Redo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ok := c.hist.Redo(func(state models.GraphState) {
		c.nodes = state.Nodes
		c.edges = state.Edges
	})
	if !ok {
		return false
	}

	c.cancelSnapshotLocked()
	c.persistLocked()
	c.notifyLocked()
	return true
}

// CanUndo reports whether an undo step is available
func (c *Controller) CanUndo() bool { return c.hist.CanUndo() }

// CanRedo reports whether a redo step is available
func (c *Controller) CanRedo() bool { return c.hist.CanRedo() }

// HandleKey resolves a keyboard event into an editor action and performs
// it. All shortcuts are suppressed while focus is in a text-editing field.
func (c *Controller) HandleKey(ev KeyEvent) KeyAction {
	if ev.EditableTarget {
		return KeyActionNone
	}

	mod := ev.Ctrl || ev.Meta

	switch {
	case ev.Key == "Delete" || ev.Key == "Backspace":
		nodes, edges := c.DeleteSelection()
		if nodes == 0 && edges == 0 {
			return KeyActionNone
		}
		return KeyActionDelete

	case mod && (ev.Key == "z" || ev.Key == "Z") && ev.Shift:
		if c.Redo() {
			return KeyActionRedo
		}
		return KeyActionNone

	case mod && (ev.Key == "z" || ev.Key == "Z"):
		if c.Undo() {
			return KeyActionUndo
		}
		return KeyActionNone

	case mod && (ev.Key == "y" || ev.Key == "Y"):
		if c.Redo() {
			return KeyActionRedo
		}
		return KeyActionNone
	}

	return KeyActionNone
}

// CreateFlow creates a new flow, switches the session to it, and resets
// history
func (c *Controller) CreateFlow(name string) (models.Flow, error) {
	flow, err := c.flows.Create(name)
	if err != nil {
		return models.Flow{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.switchToLocked(flow)
	return flow, nil
}

// SelectFlow switches the session to another flow and resets history so
// undo steps never leak across flows
func (c *Controller) SelectFlow(id string) error {
	if err := c.flows.Select(id); err != nil {
		return err
	}

	flow, err := c.flows.Get(id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.switchToLocked(flow)
	return nil
}

// DeleteFlow deletes a flow; when it was the active one the session moves
// to the new active flow
func (c *Controller) DeleteFlow(id string) error {
	if err := c.flows.Delete(id); err != nil {
		return err
	}

	active, err := c.flows.Active()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if active.ID != c.flowID {
		c.switchToLocked(active)
	}
	return nil
}

// RenameFlow renames a flow
func (c *Controller) RenameFlow(id, name string) error {
	return c.flows.Rename(id, name)
}

// Graph returns a copy of the live session graph
func (c *Controller) Graph() ([]models.Node, []models.Edge, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.CloneNodes(c.nodes), models.CloneEdges(c.edges), c.nextNodeID
}

// ActiveFlowID returns the id of the flow the session is editing
func (c *Controller) ActiveFlowID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flowID
}

// Subscribe registers a graph update listener. The returned cancel
// function removes it. Slow consumers miss intermediate updates rather
// than blocking the editor.
func (c *Controller) Subscribe() (<-chan GraphUpdate, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	ch := make(chan GraphUpdate, 16)
	c.subscribers[id] = ch

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subscribers[id]; ok {
			delete(c.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// FlushSnapshot records any pending debounced snapshot immediately
func (c *Controller) FlushSnapshot() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushSnapshotLocked()
}

// flushSnapshotLocked commits a pending debounced snapshot, invalidating
// its timer
func (c *Controller) flushSnapshotLocked() {
	if c.snapshotTimer == nil {
		return
	}
	c.cancelSnapshotLocked()
	c.hist.TakeSnapshot(c.nodes, c.edges)
}

// Close stops pending timers
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelSnapshotLocked()
}

// switchToLocked loads a flow into the session and resets history
func (c *Controller) switchToLocked(flow models.Flow) {
	c.cancelSnapshotLocked()
	c.loadFlowLocked(flow)
	c.hist.Clear(c.nodes, c.edges)
	c.notifyLocked()
}

// loadFlowLocked copies a flow's graph into the session state
func (c *Controller) loadFlowLocked(flow models.Flow) {
	c.flowID = flow.ID
	c.nodes = models.CloneNodes(flow.Nodes)
	c.edges = models.CloneEdges(flow.Edges)
	c.nextNodeID = flow.NodeID
	if c.nextNodeID < 1 {
		c.nextNodeID = 1
	}
}

// afterChangeLocked persists the session graph, schedules a debounced
// history snapshot, and notifies subscribers
func (c *Controller) afterChangeLocked() {
	c.persistLocked()
	c.scheduleSnapshotLocked()
	c.notifyLocked()
}

// persistLocked writes the session graph into the active flow record
func (c *Controller) persistLocked() {
	if err := c.flows.SaveActiveGraph(c.nodes, c.edges, c.nextNodeID); err != nil {
		c.logger.Error("failed to save active graph", "error", err)
	}
}

// scheduleSnapshotLocked restarts the snapshot quiet-period timer; only
// the final state after the quiet period is recorded
func (c *Controller) scheduleSnapshotLocked() {
	if c.snapshotDebounce < 0 {
		c.hist.TakeSnapshot(c.nodes, c.edges)
		return
	}

	c.snapshotGen++
	gen := c.snapshotGen
	if c.snapshotTimer != nil {
		c.snapshotTimer.Stop()
	}
	c.snapshotTimer = time.AfterFunc(c.snapshotDebounce, func() {
		c.snapshotFired(gen)
	})
}

// snapshotFired runs when a quiet-period timer expires. A fired timer can
// lose the race with a cancel or a newer edit while blocked on the lock;
// Stop cannot help then, so the generation check is what keeps a stale
// callback from recording the wrong state.
func (c *Controller) snapshotFired(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.snapshotGen {
		return
	}
	c.snapshotTimer = nil
	c.hist.TakeSnapshot(c.nodes, c.edges)
}

// cancelSnapshotLocked drops any pending debounced snapshot, including one
// whose timer already fired but has not reached the lock yet
func (c *Controller) cancelSnapshotLocked() {
	c.snapshotGen++
	if c.snapshotTimer != nil {
		c.snapshotTimer.Stop()
		c.snapshotTimer = nil
	}
}

// notifyLocked pushes the current graph to all subscribers
func (c *Controller) notifyLocked() {
	if len(c.subscribers) == 0 {
		return
	}

	update := GraphUpdate{
		FlowID:  c.flowID,
		Nodes:   models.CloneNodes(c.nodes),
		Edges:   models.CloneEdges(c.edges),
		CanUndo: c.hist.CanUndo(),
		CanRedo: c.hist.CanRedo(),
	}
	for _, ch := range c.subscribers {
		select {
		case ch <- update:
		default:
		}
	}
}

func (c *Controller) findNodeLocked(id string) *models.Node {
	for i := range c.nodes {
		if c.nodes[i].ID == id {
			return &c.nodes[i]
		}
	}
	return nil
}

func (c *Controller) removeNodeLocked(id string) {
	kept := c.nodes[:0]
	for _, n := range c.nodes {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	c.nodes = kept
}

func (c *Controller) removeEdgeLocked(id string) {
	kept := c.edges[:0]
	for _, e := range c.edges {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	c.edges = kept
}

// removeDanglingEdgesLocked drops edges whose endpoints no longer exist
func (c *Controller) removeDanglingEdgesLocked() {
	remaining := make(map[string]bool, len(c.nodes))
	for _, n := range c.nodes {
		remaining[n.ID] = true
	}

	kept := c.edges[:0]
	for _, e := range c.edges {
		if remaining[e.Source] && remaining[e.Target] {
			kept = append(kept, e)
		}
	}
	c.edges = kept
}
