// Package history provides a bounded, linear undo/redo engine over full
// graph snapshots.
package history

import (
	"sync"

	"github.com/probelab/flowboard/pkg/models"
)

// DefaultMaxSize is the number of snapshots kept when no limit is given
const DefaultMaxSize = 50

// History maintains an ordered sequence of graph snapshots and a cursor
// into it. New snapshots discard any redo branch beyond the cursor; the
// sequence is bounded, evicting the oldest snapshot at capacity.
//
// Applying a historical state back into live editor state happens inside
// the callback passed to Undo/Redo. While that callback runs, TakeSnapshot
// is a no-op, so the act of applying history is never itself recorded.
type History struct {
	snapshots []models.GraphState
	index     int
	maxSize   int
	applying  bool
	mu        sync.Mutex
}

// New creates a history seeded with the given state as its only snapshot.
// A maxSize of zero or less selects DefaultMaxSize.
func New(initial models.GraphState, maxSize int) *History {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &History{
		snapshots: []models.GraphState{initial.Clone()},
		index:     0,
		maxSize:   maxSize,
	}
}

// TakeSnapshot records the given graph as the new current state. Any
// snapshots beyond the cursor are discarded first. The input is deep-copied
// so later mutation cannot corrupt history. No-op while an undo/redo apply
// is in progress.
func (h *History) TakeSnapshot(nodes []models.Node, edges []models.Edge) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.applying {
		return
	}

	// Drop the redo branch
	h.snapshots = h.snapshots[:h.index+1]

	h.snapshots = append(h.snapshots, models.GraphState{
		Nodes: models.CloneNodes(nodes),
		Edges: models.CloneEdges(edges),
	})

	// Evict the oldest snapshot at capacity
	if len(h.snapshots) > h.maxSize {
		h.snapshots = h.snapshots[1:]
	}

	h.index = len(h.snapshots) - 1
}

// Undo steps the cursor back one snapshot and runs apply with a copy of
// that state. TakeSnapshot calls made while apply runs are suppressed.
// Returns false without invoking apply when there is nothing to undo.
func (h *History) Undo(apply func(models.GraphState)) bool {
	h.mu.Lock()
	if h.index <= 0 {
		h.mu.Unlock()
		return false
	}
	h.index--
	state := h.snapshots[h.index].Clone()
	h.applying = true
	h.mu.Unlock()

	apply(state)

	h.mu.Lock()
	h.applying = false
	h.mu.Unlock()
	return true
}

// Redo steps the cursor forward one snapshot and runs apply with a copy of
// that state. Returns false without invoking apply when there is nothing
// to redo.
func (h *History) Redo(apply func(models.GraphState)) bool {
	h.mu.Lock()
	if h.index >= len(h.snapshots)-1 {
		h.mu.Unlock()
		return false
	}
	h.index++
	state := h.snapshots[h.index].Clone()
	h.applying = true
	h.mu.Unlock()

	apply(state)

	h.mu.Lock()
	h.applying = false
	h.mu.Unlock()
	return true
}

// CanUndo reports whether an undo step is available
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index > 0
}

// CanRedo reports whether a redo step is available
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index < len(h.snapshots)-1
}

// Clear resets history to a single snapshot of the given state. Used when
// switching the active flow so histories never leak across flows.
func (h *History) Clear(nodes []models.Node, edges []models.Edge) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.snapshots = []models.GraphState{{
		Nodes: models.CloneNodes(nodes),
		Edges: models.CloneEdges(edges),
	}}
	h.index = 0
	h.applying = false
}

// Len returns the number of snapshots currently held
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.snapshots)
}
