package editor

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/probelab/flowboard/pkg/models"
)

// ExportJSON serializes the live graph in the interchange format
// {nodes, edges, nodeId}
func (c *Controller) ExportJSON() ([]byte, error) {
	c.mu.Lock()
	doc := models.GraphExport{
		Nodes:  models.CloneNodes(c.nodes),
		Edges:  models.CloneEdges(c.edges),
		NodeID: c.nextNodeID,
	}
	c.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize graph: %w", err)
	}
	return data, nil
}

// ExportFilename returns the download filename for a JSON export,
// including the active flow's name and the current date
func (c *Controller) ExportFilename() string {
	flow, err := c.flows.Active()
	name := "flow"
	if err == nil {
		name = filenameSlug(flow.Name)
	}
	return fmt.Sprintf("%s-%s.json", name, time.Now().Format("2006-01-02"))
}

// ImportJSON replaces the entire active graph from an interchange
// document. The replacement is atomic: malformed input returns
// ErrInvalidImport and leaves the existing graph untouched.
func (c *Controller) ImportJSON(data []byte) error {
	var doc models.GraphExport
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if doc.NodeID < 1 {
		return fmt.Errorf("%w: nodeId must be a positive integer", ErrInvalidImport)
	}

	seen := make(map[string]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node without id", ErrInvalidImport)
		}
		if seen[n.ID] {
			return fmt.Errorf("%w: duplicate node id %q", ErrInvalidImport, n.ID)
		}
		seen[n.ID] = true
	}

	if doc.Nodes == nil {
		doc.Nodes = []models.Node{}
	}
	if doc.Edges == nil {
		doc.Edges = []models.Edge{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nodes = doc.Nodes
	c.edges = doc.Edges
	c.nextNodeID = doc.NodeID
	c.afterChangeLocked()

	c.logger.Info("graph imported", "nodes", len(doc.Nodes), "edges", len(doc.Edges))
	return nil
}

// filenameSlug lowercases a flow name and keeps it filesystem-friendly
func filenameSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Join(strings.Fields(slug), "-")
	var b strings.Builder
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "flow"
	}
	return b.String()
}
