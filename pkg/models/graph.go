// Package models defines the data contracts shared by the flowboard engine:
// graph records, flow documents, and custom node type schemas.
package models

import "time"

// Position is a node's location on the canvas
type Position struct {
	// X coordinate in canvas space
	X float64 `json:"x"`

	// Y coordinate in canvas space
	Y float64 `json:"y"`
}

// Node represents a single typed node in a flow graph
type Node struct {
	// ID is unique within a flow
	ID string `json:"id"`

	// Type is a builtin tag or a custom node type id
	Type string `json:"type"`

	// Position of the node on the canvas
	Position Position `json:"position"`

	// Data holds the node's field values; always includes "label",
	// may include "width"/"height" dimension hints
	Data map[string]interface{} `json:"data"`

	// Selected is the last-known selection state
	Selected bool `json:"selected,omitempty"`
}

// Edge represents a connection between two nodes
type Edge struct {
	// ID is unique within a flow
	ID string `json:"id"`

	// Source is the id of the originating node
	Source string `json:"source"`

	// Target is the id of the destination node
	Target string `json:"target"`

	// Animated indicates whether the edge is drawn animated
	Animated bool `json:"animated,omitempty"`

	// Selected is the last-known selection state
	Selected bool `json:"selected,omitempty"`
}

// Flow is one independent saved investigation graph
type Flow struct {
	// ID of the flow
	ID string `json:"id"`

	// Name of the flow (non-empty after trimming)
	Name string `json:"name"`

	// Nodes in the flow graph
	Nodes []Node `json:"nodes"`

	// Edges in the flow graph
	Edges []Edge `json:"edges"`

	// NodeID is the next node id to allocate, monotonically increasing
	NodeID int `json:"nodeId"`

	// CreatedAt is when the flow was created
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is when the flow was last modified
	UpdatedAt time.Time `json:"updatedAt"`
}

// FlowDocument is the full durable flows state: every flow plus the
// active-flow pointer. It is the single source of truth re-derived into
// editor state on load and on active-flow switch.
type FlowDocument struct {
	// Flows holds every flow; at least one must exist at all times
	Flows []Flow `json:"flows"`

	// ActiveFlowID is the id of the active flow, or empty only
	// transiently during flow-set edits
	ActiveFlowID string `json:"activeFlowId"`
}

// GraphState is a full copy of a flow's nodes and edges at one point in
// history. Snapshots never share memory with live model objects.
type GraphState struct {
	// Nodes at the time of the snapshot
	Nodes []Node `json:"nodes"`

	// Edges at the time of the snapshot
	Edges []Edge `json:"edges"`
}

// GraphExport is the JSON interchange format for import/export
type GraphExport struct {
	// Nodes in the exported graph
	Nodes []Node `json:"nodes"`

	// Edges in the exported graph
	Edges []Edge `json:"edges"`

	// NodeID is the next node id counter
	NodeID int `json:"nodeId"`
}

// Clone returns a deep copy of the node
func (n Node) Clone() Node {
	out := n
	out.Data = cloneMap(n.Data)
	return out
}

// CloneNodes returns a deep copy of a node slice
func CloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// CloneEdges returns a copy of an edge slice
func CloneEdges(edges []Edge) []Edge {
	out := make([]Edge, len(edges))
	copy(out, edges)
	return out
}

// Clone returns a deep copy of the graph state
func (g GraphState) Clone() GraphState {
	return GraphState{
		Nodes: CloneNodes(g.Nodes),
		Edges: CloneEdges(g.Edges),
	}
}

// Clone returns a deep copy of the flow
func (f Flow) Clone() Flow {
	out := f
	out.Nodes = CloneNodes(f.Nodes)
	out.Edges = CloneEdges(f.Edges)
	return out
}

// Clone returns a deep copy of the document
func (d FlowDocument) Clone() FlowDocument {
	out := d
	out.Flows = make([]Flow, len(d.Flows))
	for i, f := range d.Flows {
		out.Flows[i] = f.Clone()
	}
	return out
}

// cloneMap deep-copies a data map, including nested maps and slices
func cloneMap(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return cloneMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
